package session

import (
	"time"

	"github.com/ksavkin/SwiftLabel/internal/domain/catalog"
	"github.com/ksavkin/SwiftLabel/internal/domain/undo"
)

// Version is the session file schema version.
const Version = "1.0"

// MaxClasses bounds the configured class list.
const MaxClasses = 10

// Snapshot is the durable session state written to .swiftlabel/session.json.
type Snapshot struct {
	Version          string         `json:"version"`
	WorkingDirectory string         `json:"working_directory"`
	Classes          []string       `json:"classes"`
	CurrentIndex     int            `json:"current_index"`
	Labels           map[string]int `json:"labels"`
	Deleted          []string       `json:"deleted"`
	UndoStack        []undo.Item    `json:"undo_stack"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// State is the complete session view returned to callers.
type State struct {
	Version          string           `json:"version"`
	WorkingDirectory string           `json:"working_directory"`
	Classes          []string         `json:"classes"`
	Images           []catalog.Record `json:"images"`
	CurrentIndex     int              `json:"current_index"`
	UndoStack        []undo.Item      `json:"undo_stack"`
}

// Info summarizes whether a restored session carries pending work.
type Info struct {
	HasPendingChanges bool `json:"has_pending_changes"`
	LabelsCount       int  `json:"labels_count"`
	DeletionsCount    int  `json:"deletions_count"`
}

// Stats are labeling statistics over the current catalog.
type Stats struct {
	TotalImages     int            `json:"total_images"`
	LabeledCount    int            `json:"labeled_count"`
	UnlabeledCount  int            `json:"unlabeled_count"`
	DeletedCount    int            `json:"deleted_count"`
	PerClass        map[string]int `json:"per_class"`
	ProgressPercent float64        `json:"progress_percent"`
}

// Move is a staged rename from source to destination.
type Move struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Delete is a staged file removal.
type Delete struct {
	Source string `json:"source"`
}

// Preview lists the pending changes a commit would apply.
type Preview struct {
	TotalChanges int      `json:"total_changes"`
	Moves        []Move   `json:"moves"`
	Deletes      []Delete `json:"deletes"`
	Warnings     []string `json:"warnings"`
}

// CommitResult reports the outcome of applying staged changes to disk.
type CommitResult struct {
	Success          bool     `json:"success"`
	MovesCompleted   int      `json:"moves_completed"`
	DeletesCompleted int      `json:"deletes_completed"`
	Errors           []string `json:"errors"`
}

// LabelResult reports a successful label command.
type LabelResult struct {
	ImageID    string `json:"image_id"`
	ClassIndex int    `json:"class_index"`
	ClassName  string `json:"class_name"`
}

// UndoResult reports a successful undo command.
type UndoResult struct {
	UndoneAction undo.Action `json:"undone_action"`
	ImageID      string      `json:"image_id"`
	Message      string      `json:"message"`
}

// ChangeDiffItem is one entry in the label diff against the baseline.
type ChangeDiffItem struct {
	ImageID       string `json:"image_id"`
	PreviousLabel *int   `json:"previous_label"`
	NewLabel      *int   `json:"new_label"`
	ChangeType    string `json:"change_type"`
}

// ChangeDiff lists all tracked label and deletion changes.
type ChangeDiff struct {
	Changes      []ChangeDiffItem `json:"changes"`
	TotalChanges int              `json:"total_changes"`
}
