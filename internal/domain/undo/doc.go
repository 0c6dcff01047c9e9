// Package undo implements the bounded stack of reversible labeling actions.
//
// Each item captures enough prior state to fully reverse a label or delete,
// including a label that existed before an overwrite or a deletion. The
// stack holds at most MaxSize items; older entries are dropped silently.
package undo
