package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Session storage layout inside the working directory
const (
	SwiftLabelDir = ".swiftlabel"
	SessionFile   = "session.json"
	HistoryFile   = "history.jsonl"
	ConfigFile    = "config.yaml"
)

// allowedExtensions is the image extension allowlist (lowercase).
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// mimeTypes maps allowlisted extensions to MIME types for serving.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// IsImage reports whether path has an allowlisted image extension.
func IsImage(path string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(path))]
}

// MimeType returns the MIME type for an image path, or "" if the extension
// is not in the allowlist (callers may fall back to content sniffing).
func MimeType(path string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(path))]
}

// Normalize converts an absolute path under root to a relative image ID.
// IDs always use forward slashes so they are stable across platforms.
func Normalize(abs, root string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("path %s is not under %s: %w", abs, root, err)
	}
	return filepath.ToSlash(rel), nil
}

// Resolve converts an image ID back to an absolute path under root.
func Resolve(id, root string) string {
	return filepath.Join(root, filepath.FromSlash(id))
}

// Validate checks an image ID for traversal, null bytes, extension, and
// containment within root. A nil return means the ID is safe to resolve.
func Validate(id, root string) error {
	if id == "" {
		return fmt.Errorf("empty image id")
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("null bytes not allowed in path")
	}
	for _, seg := range strings.Split(filepath.ToSlash(id), "/") {
		if seg == ".." {
			return fmt.Errorf("path traversal (..) not allowed")
		}
	}
	if !IsImage(id) {
		return fmt.Errorf("unsupported image extension: %s", filepath.Ext(id))
	}

	// The resolved path must stay inside root after cleaning.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid working directory: %w", err)
	}
	resolved := filepath.Clean(Resolve(id, absRoot))
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return fmt.Errorf("path escapes working directory")
	}
	return nil
}

// InSwiftLabelDir reports whether any segment of the path is the session
// storage directory. Scans must never surface files under it.
func InSwiftLabelDir(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == SwiftLabelDir {
			return true
		}
	}
	return false
}
