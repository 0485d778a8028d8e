package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Download is one object to write locally.
type Download struct {
	Key       string // storage key, used to disambiguate
	LocalPath string // full local destination path
}

// ResolveCollisions makes every LocalPath unique. Files that would land on
// the same path get their folder appended before the extension:
//
//	posts/hello.md  -> hello_posts.md
//	drafts/hello.md -> hello_drafts.md
//
// Files at the bucket root get "root". The slice is modified in place and
// the number of renamed entries is returned.
func ResolveCollisions(files []Download) ([]Download, int) {
	byPath := make(map[string][]int)
	for i, f := range files {
		byPath[f.LocalPath] = append(byPath[f.LocalPath], i)
	}

	renamed := 0
	for path, indices := range byPath {
		if len(indices) <= 1 {
			continue
		}
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)
		seen := make(map[string]int)
		for _, idx := range indices {
			suffix := folderSuffix(files[idx].Key)
			seen[suffix]++
			if n := seen[suffix]; n > 1 {
				suffix = fmt.Sprintf("%s_%d", suffix, n)
			}
			files[idx].LocalPath = fmt.Sprintf("%s_%s%s", base, suffix, ext)
			renamed++
		}
	}
	return files, renamed
}

// folderSuffix flattens the folder part of key into one name segment.
func folderSuffix(key string) string {
	key = strings.Trim(key, "/")
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return "root"
	}
	var parts []string
	for _, seg := range strings.Split(key[:i], "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "root"
	}
	return strings.Join(parts, "_")
}
