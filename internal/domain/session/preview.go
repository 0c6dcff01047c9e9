package session

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/ksavkin/SwiftLabel/internal/domain/catalog"
	"github.com/ksavkin/SwiftLabel/internal/shared/paths"
)

// GetPreview computes the pending changes a commit would apply: the delta
// between current state and the baseline captured at the last
// load/create/commit boundary. It has no side effects and is safe to call
// repeatedly.
func (e *Engine) GetPreview() Preview {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previewLocked()
}

func (e *Engine) previewLocked() Preview {
	moves := []Move{}
	deletes := []Delete{}

	for _, rec := range e.catalog.Records() {
		if rec.MarkedForDeletion {
			if !e.initialDeleted[rec.ID] {
				deletes = append(deletes, Delete{Source: rec.ID})
			}
			continue
		}
		if rec.Label == nil {
			continue
		}

		if initial, had := e.initialLabels[rec.ID]; had && initial == *rec.Label {
			continue
		}

		dst := destinationFor(rec.ID, e.classes, e.classes[*rec.Label])
		if dst != rec.ID {
			moves = append(moves, Move{Source: rec.ID, Destination: dst})
		}
	}

	return Preview{
		TotalChanges: len(moves) + len(deletes),
		Moves:        moves,
		Deletes:      deletes,
		Warnings:     []string{},
	}
}

// destinationFor computes where a labeled image should live: the deepest
// ancestor segment matching any class name (case-insensitive) is replaced
// with the new class; with no matching segment the class is appended as a
// trailing directory.
func destinationFor(id string, classes []string, className string) string {
	dir := path.Dir(id)
	base := path.Base(id)

	var segments []string
	if dir != "." && dir != "/" {
		segments = strings.Split(dir, "/")
	}

	replaced := false
	for i := len(segments) - 1; i >= 0; i-- {
		if matchesAnyClass(segments[i], classes) {
			segments[i] = className
			replaced = true
			break
		}
	}
	if !replaced {
		segments = append(segments, className)
	}

	return path.Join(append(segments, base)...)
}

func matchesAnyClass(segment string, classes []string) bool {
	for _, c := range classes {
		if strings.EqualFold(segment, c) {
			return true
		}
	}
	return false
}

// Commit applies the current preview to the filesystem, collecting per-item
// errors without aborting the batch. State is cleared and the catalog
// rebuilt from a fresh scan regardless of errors: after a commit attempt
// the filesystem is the source of truth, and the rescan reconciles any
// discrepancy.
func (e *Engine) Commit(ctx context.Context) (CommitResult, error) {
	e.mu.Lock()

	preview := e.previewLocked()

	movesCompleted, deletesCompleted := 0, 0
	errs := []string{}

	for _, mv := range preview.Moves {
		src := paths.Resolve(mv.Source, e.root)
		dst := paths.Resolve(mv.Destination, e.root)
		if err := e.fs.Move(src, dst); err != nil {
			errs = append(errs, fmt.Sprintf("failed to move %s: %v", mv.Source, err))
			continue
		}
		movesCompleted++
	}

	for _, del := range preview.Deletes {
		if err := e.fs.Remove(paths.Resolve(del.Source, e.root)); err != nil {
			errs = append(errs, fmt.Sprintf("failed to delete %s: %v", del.Source, err))
			continue
		}
		deletesCompleted++
	}

	// Unconditional clear: disk is now authoritative.
	e.labels = map[string]int{}
	e.deleted = map[string]bool{}
	e.ledger.Clear()
	e.initialLabels = map[string]int{}
	e.initialDeleted = map[string]bool{}

	ids, err := e.fs.Scan(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("rescan failed: %v", err))
		ids = nil
	}
	e.catalog = catalog.Build(ids, e.classes, e.labels, e.deleted)
	e.currentIndex = clamp(e.currentIndex, 0, e.catalog.Len()-1)

	saveErr := e.saveLocked()
	e.mu.Unlock()
	if saveErr != nil {
		return CommitResult{}, saveErr
	}

	e.store.LogHistory("commit", map[string]interface{}{
		"moves":   movesCompleted,
		"deletes": deletesCompleted,
	})
	e.notify()

	return CommitResult{
		Success:          len(errs) == 0,
		MovesCompleted:   movesCompleted,
		DeletesCompleted: deletesCompleted,
		Errors:           errs,
	}, nil
}

// GetChangeDiff lists every label change and deletion relative to the
// baseline, including relabels of restored state.
func (e *Engine) GetChangeDiff() ChangeDiff {
	e.mu.Lock()
	defer e.mu.Unlock()

	changes := []ChangeDiffItem{}

	for _, rec := range e.catalog.Records() {
		newLabel, labeled := e.labels[rec.ID]
		if labeled {
			changeType := "new_label"
			var prev *int
			if initial, had := e.initialLabels[rec.ID]; had {
				prev = intPtr(initial)
				changeType = "relabel"
			}
			changes = append(changes, ChangeDiffItem{
				ImageID:       rec.ID,
				PreviousLabel: prev,
				NewLabel:      intPtr(newLabel),
				ChangeType:    changeType,
			})
		}
		if e.deleted[rec.ID] {
			var prev *int
			if initial, had := e.initialLabels[rec.ID]; had {
				prev = intPtr(initial)
			}
			changes = append(changes, ChangeDiffItem{
				ImageID:       rec.ID,
				PreviousLabel: prev,
				ChangeType:    "deletion",
			})
		}
	}

	return ChangeDiff{Changes: changes, TotalChanges: len(changes)}
}
