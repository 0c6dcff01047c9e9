// Package paths provides standardized path handling for the SwiftLabel backend.
//
// Image identifiers are relative paths under the working directory. This
// package owns the extension allowlist, the MIME map for serving, and the
// validation rules every identifier must pass before it touches the
// filesystem: no traversal segments, no null bytes, allowlisted extension,
// resolved path contained in the working directory.
package paths
