package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/ksavkin/SwiftLabel/internal/shared/paths"
)

// Scan walks the working directory and returns the sorted list of image IDs.
// Anything under a .swiftlabel directory is excluded, as are files whose
// extension is not in the image allowlist.
func (o *Ops) Scan(ctx context.Context) ([]string, error) {
	var (
		mu  sync.Mutex
		ids []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, o.Root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		if d.IsDir() {
			if d.Name() == paths.SwiftLabelDir {
				return filepath.SkipDir
			}
			return nil
		}

		if !paths.IsImage(path) {
			return nil
		}

		id, err := paths.Normalize(path, o.Root)
		if err != nil {
			return nil
		}

		// SkipDir already prunes the session directory; this catches IDs
		// that reach it through any other path shape.
		if paths.InSwiftLabelDir(id) {
			return nil
		}

		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", o.Root, err)
	}

	sort.Strings(ids)
	return ids, nil
}
