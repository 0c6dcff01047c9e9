package formats

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Format identifies a supported annotation layout.
type Format string

const (
	FormatFolder  Format = "folder"
	FormatUnknown Format = "unknown"
)

// Labels maps formats to human-readable names.
var Labels = map[Format]string{
	FormatFolder:  "Folder Classification",
	FormatUnknown: "Unknown",
}

// imagePattern matches images directly inside a candidate class folder.
const imagePattern = "*.{jpg,jpeg,png,webp,gif,bmp,tiff,tif}"

// maxDepth bounds the recursive search for class folders.
const maxDepth = 5

// Detection is the result of a format probe.
type Detection struct {
	Format       Format   `json:"format"`
	Label        string   `json:"format_label"`
	Confidence   float64  `json:"confidence"`
	ClassFolders []string `json:"class_folders,omitempty"`
}

// Detector probes a working directory for a known annotation layout.
type Detector struct {
	root string
}

// NewDetector creates a detector for the given directory.
func NewDetector(root string) *Detector {
	return &Detector{root: filepath.Clean(root)}
}

// Detect scans for folders that directly contain images. Finding any means
// folder classification; the unique folder names are the candidate classes.
func (d *Detector) Detect(ctx context.Context) (Detection, error) {
	seen := map[string]bool{}
	if err := d.scanFolders(ctx, d.root, 0, seen); err != nil {
		return Detection{}, err
	}

	if len(seen) == 0 {
		return Detection{Format: FormatUnknown, Label: Labels[FormatUnknown], Confidence: 1.0}, nil
	}

	folders := make([]string, 0, len(seen))
	for name := range seen {
		folders = append(folders, name)
	}
	sort.Strings(folders)

	return Detection{
		Format:       FormatFolder,
		Label:        Labels[FormatFolder],
		Confidence:   0.95,
		ClassFolders: folders,
	}, nil
}

func (d *Detector) scanFolders(ctx context.Context, dir string, depth int, seen map[string]bool) error {
	if depth > maxDepth {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // unreadable directories are skipped
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sub := filepath.Join(dir, entry.Name())

		matches, err := doublestar.Glob(os.DirFS(sub), imagePattern)
		if err == nil && len(matches) > 0 {
			seen[entry.Name()] = true
		}

		if err := d.scanFolders(ctx, sub, depth+1, seen); err != nil {
			return err
		}
	}
	return nil
}
