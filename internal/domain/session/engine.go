package session

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ksavkin/SwiftLabel/internal/domain/catalog"
	"github.com/ksavkin/SwiftLabel/internal/domain/undo"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/providers/filesystem"
	"github.com/ksavkin/SwiftLabel/internal/shared/paths"
)

// Engine is the session state engine for one working directory. Construct
// one per directory; there is no process-wide singleton.
type Engine struct {
	mu sync.Mutex

	root    string
	classes []string
	fs      *filesystem.Ops
	store   *Store
	logger  *logging.Logger

	catalog      *catalog.Catalog
	currentIndex int
	labels       map[string]int
	deleted      map[string]bool
	ledger       *undo.Ledger
	createdAt    time.Time

	// Baseline at the last load/create/commit boundary. Preview diffs
	// against it so restored state is not reported as pending work.
	initialLabels  map[string]int
	initialDeleted map[string]bool

	listeners []func()
}

// New creates an engine for the given working directory and class list.
func New(root string, classes []string, fs *filesystem.Ops, logger *logging.Logger) (*Engine, error) {
	if len(classes) == 0 || len(classes) > MaxClasses {
		return nil, fmt.Errorf("class count must be between 1 and %d, got %d", MaxClasses, len(classes))
	}
	return &Engine{
		root:           root,
		classes:        classes,
		fs:             fs,
		store:          NewStore(fs, root, logger),
		logger:         logger,
		labels:         map[string]int{},
		deleted:        map[string]bool{},
		ledger:         undo.NewLedger(),
		initialLabels:  map[string]int{},
		initialDeleted: map[string]bool{},
	}, nil
}

// WorkingDirectory returns the engine's root path.
func (e *Engine) WorkingDirectory() string {
	return e.root
}

// Classes returns the configured class list.
func (e *Engine) Classes() []string {
	return e.classes
}

// AddListener registers a callback invoked after every state-changing
// command. Callbacks are notifications only and must not call back into
// mutating commands.
func (e *Engine) AddListener(fn func()) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *Engine) notify() {
	e.mu.Lock()
	listeners := make([]func(), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("Listener panicked", zap.Any("panic", r))
				}
			}()
			fn()
		}()
	}
}

// Initialize loads the persisted session if one exists, otherwise creates
// a new one, then logs a session_start record.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.EnsureDir(); err != nil {
		return err
	}

	snap := e.store.Load()

	ids, err := e.fs.Scan(ctx)
	if err != nil {
		return err
	}

	if snap != nil {
		e.restoreLocked(snap, ids)
	} else {
		e.createLocked(ids)
		if err := e.saveLocked(); err != nil {
			return err
		}
	}

	e.store.LogHistory("session_start", map[string]interface{}{
		"classes":      e.classes,
		"total_images": e.catalog.Len(),
	})
	return nil
}

func (e *Engine) restoreLocked(snap *Snapshot, ids []string) {
	if !equalClasses(snap.Classes, e.classes) {
		e.logger.Warn("Session classes differ from requested, using requested",
			zap.Strings("session", snap.Classes),
			zap.Strings("requested", e.classes))
	}

	e.labels = map[string]int{}
	for id, idx := range snap.Labels {
		e.labels[id] = idx
	}
	e.deleted = map[string]bool{}
	for _, id := range snap.Deleted {
		e.deleted[id] = true
	}
	e.ledger.Restore(snap.UndoStack)
	e.currentIndex = clamp(snap.CurrentIndex, 0, len(ids)-1)
	e.createdAt = snap.CreatedAt

	e.catalog = catalog.Build(ids, e.classes, e.labels, e.deleted)
	e.initialLabels = copyLabels(e.labels)
	e.initialDeleted = copySet(e.deleted)

	e.logger.Info("Restored session",
		zap.Int("images", e.catalog.Len()),
		zap.Int("labeled", len(e.labels)),
		zap.Int("deleted", len(e.deleted)))
}

func (e *Engine) createLocked(ids []string) {
	e.labels = map[string]int{}
	e.deleted = map[string]bool{}
	e.ledger.Clear()
	e.currentIndex = 0
	e.createdAt = time.Now().UTC()

	e.catalog = catalog.Build(ids, e.classes, e.labels, e.deleted)
	e.initialLabels = map[string]int{}
	e.initialDeleted = map[string]bool{}

	e.logger.Info("Created session", zap.Int("images", e.catalog.Len()))
}

// LabelImage assigns a class to an image. Labeling supersedes a pending
// deletion; the prior label is captured for undo.
func (e *Engine) LabelImage(id string, classIndex int) (LabelResult, error) {
	e.mu.Lock()
	if classIndex < 0 || classIndex >= len(e.classes) {
		e.mu.Unlock()
		return LabelResult{}, errInvalidClass(classIndex)
	}
	if err := paths.Validate(id, e.root); err != nil {
		e.mu.Unlock()
		return LabelResult{}, errInvalidPath(err)
	}
	rec, ok := e.catalog.Get(id)
	if !ok {
		e.mu.Unlock()
		return LabelResult{}, errNotFound(id)
	}

	prevLabel, prevClass := e.previousLocked(id)

	className := e.classes[classIndex]
	e.labels[id] = classIndex
	rec.Label = intPtr(classIndex)
	rec.ClassName = strPtr(className)

	if e.deleted[id] {
		delete(e.deleted, id)
		rec.MarkedForDeletion = false
	}

	e.ledger.Push(undo.Item{
		Action:            undo.ActionLabel,
		ImageID:           id,
		ClassIndex:        intPtr(classIndex),
		PreviousLabel:     prevLabel,
		PreviousClassName: prevClass,
		Timestamp:         time.Now().UTC(),
	})

	err := e.saveLocked()
	e.mu.Unlock()
	if err != nil {
		return LabelResult{}, err
	}

	e.store.LogHistory("label", map[string]interface{}{
		"image_id":    id,
		"class_index": classIndex,
		"class_name":  className,
	})
	e.notify()

	return LabelResult{ImageID: id, ClassIndex: classIndex, ClassName: className}, nil
}

// DeleteImage marks an image for deletion, clearing any label (deletion and
// labeling are mutually exclusive).
func (e *Engine) DeleteImage(id string) error {
	e.mu.Lock()
	if err := paths.Validate(id, e.root); err != nil {
		e.mu.Unlock()
		return errInvalidPath(err)
	}
	rec, ok := e.catalog.Get(id)
	if !ok {
		e.mu.Unlock()
		return errNotFound(id)
	}
	if e.deleted[id] {
		e.mu.Unlock()
		return errAlreadyDeleted(id)
	}

	prevLabel, prevClass := e.previousLocked(id)

	e.deleted[id] = true
	rec.MarkedForDeletion = true

	if _, labeled := e.labels[id]; labeled {
		delete(e.labels, id)
		rec.Label = nil
		rec.ClassName = nil
	}

	e.ledger.Push(undo.Item{
		Action:            undo.ActionDelete,
		ImageID:           id,
		PreviousLabel:     prevLabel,
		PreviousClassName: prevClass,
		Timestamp:         time.Now().UTC(),
	})

	err := e.saveLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.store.LogHistory("delete", map[string]interface{}{"image_id": id})
	e.notify()
	return nil
}

// Undo reverses the most recent label or delete. The popped item is
// consumed permanently; there is no redo.
func (e *Engine) Undo() (UndoResult, error) {
	e.mu.Lock()
	item, ok := e.ledger.Pop()
	if !ok {
		e.mu.Unlock()
		return UndoResult{}, errEmptyStack()
	}

	switch item.Action {
	case undo.ActionLabel:
		rec, found := e.catalog.Get(item.ImageID)
		if !found {
			e.mu.Unlock()
			return UndoResult{}, errNotFound(item.ImageID)
		}
		if item.PreviousLabel != nil {
			e.labels[item.ImageID] = *item.PreviousLabel
			rec.Label = intPtr(*item.PreviousLabel)
			rec.ClassName = item.PreviousClassName
		} else {
			delete(e.labels, item.ImageID)
			rec.Label = nil
			rec.ClassName = nil
		}

	case undo.ActionDelete:
		delete(e.deleted, item.ImageID)
		if rec, found := e.catalog.Get(item.ImageID); found {
			rec.MarkedForDeletion = false
			if item.PreviousLabel != nil {
				e.labels[item.ImageID] = *item.PreviousLabel
				rec.Label = intPtr(*item.PreviousLabel)
				rec.ClassName = item.PreviousClassName
			}
		}
	}

	err := e.saveLocked()
	e.mu.Unlock()
	if err != nil {
		return UndoResult{}, err
	}

	e.store.LogHistory("undo", map[string]interface{}{
		"undone_action": string(item.Action),
		"image_id":      item.ImageID,
	})
	e.notify()

	return UndoResult{
		UndoneAction: item.Action,
		ImageID:      item.ImageID,
		Message:      fmt.Sprintf("undid %s on %s", item.Action, item.ImageID),
	}, nil
}

// Navigate moves the cursor. Directions next/previous clamp at the
// boundaries; first/last jump to them; index clamps the requested value.
// Returns the new cursor position (0 on an empty catalog).
func (e *Engine) Navigate(direction string, index *int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.catalog == nil || e.catalog.Len() == 0 {
		return 0
	}
	last := e.catalog.Len() - 1

	switch direction {
	case "next":
		e.currentIndex = clamp(e.currentIndex+1, 0, last)
	case "previous":
		e.currentIndex = clamp(e.currentIndex-1, 0, last)
	case "first":
		e.currentIndex = 0
	case "last":
		e.currentIndex = last
	case "index":
		if index != nil {
			e.currentIndex = clamp(*index, 0, last)
		}
	}
	return e.currentIndex
}

// GetStats returns labeling statistics. Deletion-marked images count as
// deleted, not labeled.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	perClass := make(map[string]int, len(e.classes))
	for _, name := range e.classes {
		perClass[name] = 0
	}

	labeled, deleted := 0, 0
	for _, rec := range e.catalog.Records() {
		switch {
		case rec.MarkedForDeletion:
			deleted++
		case rec.Label != nil:
			labeled++
			if *rec.Label >= 0 && *rec.Label < len(e.classes) {
				perClass[e.classes[*rec.Label]]++
			}
		}
	}

	total := e.catalog.Len()
	progress := 0.0
	if total > 0 {
		progress = math.Round(float64(labeled)/float64(total)*1000) / 10
	}

	return Stats{
		TotalImages:     total,
		LabeledCount:    labeled,
		UnlabeledCount:  total - labeled - deleted,
		DeletedCount:    deleted,
		PerClass:        perClass,
		ProgressPercent: progress,
	}
}

// GetCurrentImage returns a copy of the record under the cursor, or nil
// when the catalog is empty. Copies stay valid after the lock is released.
func (e *Engine) GetCurrentImage() *catalog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.catalog.At(e.currentIndex)
	if rec == nil {
		return nil
	}
	cp := rec.Clone()
	return &cp
}

// GetImageByID returns a copy of the record for an image ID.
func (e *Engine) GetImageByID(id string) (*catalog.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.catalog.Get(id)
	if !ok {
		return nil, false
	}
	cp := rec.Clone()
	return &cp, true
}

// CurrentIndex returns the cursor position.
func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentIndex
}

// GetState returns the complete session view. Images are deep copies, so
// the returned state is detached from subsequent commands and safe to
// serialize outside the lock.
func (e *Engine) GetState() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Version:          Version,
		WorkingDirectory: e.root,
		Classes:          e.classes,
		Images:           e.catalog.Snapshot(),
		CurrentIndex:     e.currentIndex,
		UndoStack:        e.ledger.Items(),
	}
}

// GetInfo reports whether the session carries pending labels or deletions.
func (e *Engine) GetInfo() Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Info{
		HasPendingChanges: len(e.labels) > 0 || len(e.deleted) > 0,
		LabelsCount:       len(e.labels),
		DeletionsCount:    len(e.deleted),
	}
}

// Clear discards all labels, deletion marks, undo history, and the
// baseline, then rebuilds the catalog from a fresh scan.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()

	e.labels = map[string]int{}
	e.deleted = map[string]bool{}
	e.ledger.Clear()
	e.initialLabels = map[string]int{}
	e.initialDeleted = map[string]bool{}

	ids, err := e.fs.Scan(ctx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.catalog = catalog.Build(ids, e.classes, e.labels, e.deleted)
	e.currentIndex = clamp(e.currentIndex, 0, e.catalog.Len()-1)

	err = e.saveLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.notify()
	return nil
}

// previousLocked captures the pre-command label state of an image for undo.
// Only explicit labels count; auto-labels are not in the labels map.
func (e *Engine) previousLocked(id string) (*int, *string) {
	idx, ok := e.labels[id]
	if !ok {
		return nil, nil
	}
	prev := idx
	var name *string
	if idx >= 0 && idx < len(e.classes) {
		name = strPtr(e.classes[idx])
	}
	return &prev, name
}

func (e *Engine) saveLocked() error {
	deleted := make([]string, 0, len(e.deleted))
	for id := range e.deleted {
		deleted = append(deleted, id)
	}
	sort.Strings(deleted)

	createdAt := e.createdAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return e.store.Save(&Snapshot{
		Version:          Version,
		WorkingDirectory: e.root,
		Classes:          e.classes,
		CurrentIndex:     e.currentIndex,
		Labels:           copyLabels(e.labels),
		Deleted:          deleted,
		UndoStack:        e.ledger.Items(),
		CreatedAt:        createdAt,
		UpdatedAt:        time.Now().UTC(),
	})
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func equalClasses(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyLabels(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = v
		}
	}
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
