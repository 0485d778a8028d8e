// Package validation checks names and local paths derived from bucket keys.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateName validates a single file or folder name typed by the user
// for rename and new-subfolder actions.
//
// Returns an error if the name:
//   - Is empty
//   - Contains path separators (/ or \)
//   - Is "." or ".."
//   - Contains null bytes or line breaks
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, "\x00\r\n") {
		return fmt.Errorf("name contains control characters: %q", name)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, '\\') {
		return fmt.Errorf("name cannot contain path separators: %s", name)
	}
	// "foo..bar.md" is fine, only the literal names are rejected.
	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '%s'", name)
	}
	return nil
}

// ValidatePathInDirectory validates that path, when resolved, stays within
// baseDir. Download destinations built from bucket keys go through it.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "/tmp/out")  // Error: escapes base dir
//	ValidatePathInDirectory("posts/hello.md", "/tmp/out")    // OK: within base dir
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	base, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}
