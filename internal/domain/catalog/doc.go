// Package catalog models the ordered collection of images under a working
// directory.
//
// A catalog is built wholesale from a directory scan merged with persisted
// labels and deletion marks. Images without a persisted label are
// auto-labeled from the deepest ancestor directory whose name matches a
// class (case-insensitive). The catalog is never patched structurally after
// construction; commands only mutate per-record label and deletion fields.
package catalog
