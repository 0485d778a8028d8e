package tree

import (
	"sort"
	"strings"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
)

// Options tunes Build.
type Options struct {
	// PublicURL resolves a file's public URL. A nil func or an error
	// leaves File.PublicURL empty.
	PublicURL func(key string) (string, error)
}

// Build reconstructs the folder hierarchy from a flat listing.
//
//   - Objects may come in any order; for duplicate keys the last one's
//     metadata wins while the node keeps its first position.
//   - Keys ending in the empty-folder sentinel never become files but
//     materialize their folder.
//   - Placeholder entries (no backend ID) are folders.
//   - Every proper prefix of a file key is a folder.
//   - Folders are created in (depth, path) order so parents always exist
//     first; files follow in input order.
//   - A file key equal to a folder path loses to the folder and is
//     reported in Forest.Skipped, as are empty or all-slash keys.
//
// Build is a pure function of its inputs; exp may be nil. The whole tree
// is rebuilt from scratch each time, which stays fast for buckets of a few
// thousand objects.
func Build(objects []storage.Object, exp *Expansion, opts Options) *Forest {
	forest := newForest()

	folderSet := make(map[string]struct{})
	addFolder := func(path string) {
		for path != "" {
			if _, ok := folderSet[path]; ok {
				return
			}
			folderSet[path] = struct{}{}
			path = parentOf(path)
		}
	}

	files := make(map[string]storage.Object)
	var fileOrder []string

	for _, obj := range objects {
		path := normalize(obj.Key)
		if path == "" {
			forest.Skipped = append(forest.Skipped, obj.Key)
			continue
		}
		switch {
		case storage.IsSentinelKey(path):
			addFolder(parentOf(path))
		case obj.IsPlaceholder():
			addFolder(path)
		default:
			if _, seen := files[path]; !seen {
				fileOrder = append(fileOrder, path)
			}
			files[path] = obj
			addFolder(parentOf(path))
		}
	}

	folderPaths := make([]string, 0, len(folderSet))
	for p := range folderSet {
		folderPaths = append(folderPaths, p)
	}
	sort.Slice(folderPaths, func(i, j int) bool {
		di, dj := depth(folderPaths[i]), depth(folderPaths[j])
		if di != dj {
			return di < dj
		}
		return folderPaths[i] < folderPaths[j]
	})

	for _, p := range folderPaths {
		forest.add(&Folder{
			Name:     lastSegment(p),
			FullPath: p,
			Expanded: exp.IsExpanded(p),
		}, parentOf(p))
	}

	for _, p := range fileOrder {
		obj := files[p]
		if _, isFolder := folderSet[p]; isFolder {
			forest.Skipped = append(forest.Skipped, obj.Key)
			continue
		}
		file := &File{
			Name:      lastSegment(p),
			FullPath:  p,
			Key:       obj.Key,
			Size:      obj.Size,
			UpdatedAt: obj.UpdatedAt,
		}
		if opts.PublicURL != nil {
			if u, err := opts.PublicURL(obj.Key); err == nil {
				file.PublicURL = u
			}
		}
		forest.add(file, parentOf(p))
	}

	return forest
}

// normalize trims surrounding slashes and drops empty segments.
func normalize(key string) string {
	if !strings.Contains(key, "//") {
		return strings.Trim(key, "/")
	}
	segs := strings.Split(key, "/")
	kept := segs[:0]
	for _, s := range segs {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}

func parentOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

func lastSegment(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

func depth(path string) int {
	return strings.Count(path, "/")
}
