package undo

import "time"

// MaxSize is the maximum number of items retained on the stack.
const MaxSize = 100

// Action identifies the kind of operation an item reverses.
type Action string

const (
	ActionLabel  Action = "label"
	ActionDelete Action = "delete"
)

// Item is a single reversible operation.
type Item struct {
	Action            Action    `json:"action"`
	ImageID           string    `json:"image_id"`
	ClassIndex        *int      `json:"class_index,omitempty"`
	PreviousLabel     *int      `json:"previous_label,omitempty"`
	PreviousClassName *string   `json:"previous_class_name,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Ledger is a bounded LIFO stack of undo items.
type Ledger struct {
	items []Item
	max   int
}

// NewLedger creates a ledger capped at MaxSize.
func NewLedger() *Ledger {
	return &Ledger{max: MaxSize}
}

// Push appends an item, trimming the oldest entries past the cap.
func (l *Ledger) Push(item Item) {
	l.items = append(l.items, item)
	if len(l.items) > l.max {
		l.items = l.items[len(l.items)-l.max:]
	}
}

// Pop removes and returns the most recent item.
func (l *Ledger) Pop() (Item, bool) {
	if len(l.items) == 0 {
		return Item{}, false
	}
	item := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return item, true
}

// Len returns the number of items on the stack.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Clear removes all items.
func (l *Ledger) Clear() {
	l.items = nil
}

// Items returns the stack oldest-first for persistence.
func (l *Ledger) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Restore replaces the stack contents from a persisted snapshot,
// trimming to the cap if the snapshot is oversized.
func (l *Ledger) Restore(items []Item) {
	if len(items) > l.max {
		items = items[len(items)-l.max:]
	}
	l.items = make([]Item, len(items))
	copy(l.items, items)
}
