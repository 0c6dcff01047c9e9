// Package filesystem provides the disk operations the session engine
// depends on: directory scanning, file moves and deletes, JSON snapshot
// read/write, and append-only log writes.
//
// All session I/O goes through this package. Scan excludes anything under a
// .swiftlabel directory and filters by the image extension allowlist; Move
// creates destination directories and falls back to copy+delete across
// filesystem boundaries.
package filesystem
