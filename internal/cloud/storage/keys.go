package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/blogdesk/mdxmanager/internal/constants"
)

// IsSentinelKey reports whether key ends with the empty-folder sentinel.
// Such keys are never files, whatever precedes the suffix.
func IsSentinelKey(key string) bool {
	return strings.HasSuffix(key, constants.EmptyFolderSentinel)
}

// ValidateKey rejects keys that cannot name an object: empty, only
// slashes, or containing "." / ".." segments.
func ValidateKey(key string) error {
	trimmed := strings.Trim(key, "/")
	if trimmed == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, seg)
		}
	}
	if strings.ContainsAny(key, "\x00\r\n") {
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidKey, key)
	}
	return nil
}

// Join joins key segments with "/", dropping empty segments.
func Join(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}

// Base returns the last segment of key.
func Base(key string) string {
	key = strings.TrimRight(key, "/")
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Dir returns key without its last segment, or "" at the root.
func Dir(key string) string {
	key = strings.TrimRight(key, "/")
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i]
	}
	return ""
}

// SentinelKey returns the key that keeps folder alive when empty.
func SentinelKey(folder string) string {
	return Join(folder, constants.EmptyFolderSentinel)
}

// ContentTypeFor picks the content type sent on upload.
func ContentTypeFor(key string) string {
	if IsSentinelKey(key) {
		return "text/plain"
	}
	switch ext := strings.ToLower(path.Ext(key)); ext {
	case ".md", ".mdx", ".markdown":
		return constants.MarkdownContentType
	case "":
		return "application/octet-stream"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// IsMarkdown reports whether key names a Markdown or MDX document.
func IsMarkdown(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".md", ".mdx", ".markdown":
		return true
	}
	return false
}
