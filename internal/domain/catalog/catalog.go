package catalog

import (
	"path"
	"strings"
)

// Record describes a single image in the working directory.
type Record struct {
	ID                string  `json:"id"`
	Filename          string  `json:"filename"`
	Label             *int    `json:"label"`
	ClassName         *string `json:"class_name"`
	MarkedForDeletion bool    `json:"marked_for_deletion"`
}

// Clone returns a deep copy of the record. Pointer fields are duplicated
// so the copy stays stable while the original keeps mutating.
func (r *Record) Clone() Record {
	cp := *r
	if r.Label != nil {
		v := *r.Label
		cp.Label = &v
	}
	if r.ClassName != nil {
		s := *r.ClassName
		cp.ClassName = &s
	}
	return cp
}

// Catalog is an ordered, ID-indexed collection of image records.
type Catalog struct {
	records []*Record
	index   map[string]int
}

// Build constructs a catalog from sorted scan IDs merged with durable state.
// Persisted labels always win over auto-labels; deletion marks come from the
// deleted set.
func Build(ids []string, classes []string, labels map[string]int, deleted map[string]bool) *Catalog {
	c := &Catalog{
		records: make([]*Record, 0, len(ids)),
		index:   make(map[string]int, len(ids)),
	}

	classMap := lowerClassMap(classes)

	for _, id := range ids {
		var label *int
		if idx, ok := labels[id]; ok {
			v := idx
			label = &v
		} else if idx, ok := autoLabel(id, classMap); ok {
			v := idx
			label = &v
		}

		var className *string
		if label != nil && *label >= 0 && *label < len(classes) {
			name := classes[*label]
			className = &name
		}

		rec := &Record{
			ID:                id,
			Filename:          id,
			Label:             label,
			ClassName:         className,
			MarkedForDeletion: deleted[id],
		}
		c.index[rec.ID] = len(c.records)
		c.records = append(c.records, rec)
	}
	return c
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// At returns the record at position i, or nil when out of range.
func (c *Catalog) At(i int) *Record {
	if i < 0 || i >= len(c.records) {
		return nil
	}
	return c.records[i]
}

// Get returns the record with the given ID.
func (c *Catalog) Get(id string) (*Record, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.records[i], true
}

// Records returns the ordered record slice. Callers must not reorder it.
func (c *Catalog) Records() []*Record {
	return c.records
}

// Snapshot returns deep value copies of all records in order. Safe to hand
// to readers that outlive the caller's lock.
func (c *Catalog) Snapshot() []Record {
	out := make([]Record, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Clone()
	}
	return out
}

// AutoLabel resolves the inferred class index for an image ID: the deepest
// parent-directory segment whose lowercase name equals a class name wins.
func AutoLabel(id string, classes []string) (int, bool) {
	return autoLabel(id, lowerClassMap(classes))
}

func autoLabel(id string, classMap map[string]int) (int, bool) {
	dir := path.Dir(id)
	if dir == "." || dir == "/" {
		return 0, false
	}
	segments := strings.Split(dir, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if idx, ok := classMap[strings.ToLower(segments[i])]; ok {
			return idx, true
		}
	}
	return 0, false
}

func lowerClassMap(classes []string) map[string]int {
	m := make(map[string]int, len(classes))
	for i, name := range classes {
		m[strings.ToLower(name)] = i
	}
	return m
}
