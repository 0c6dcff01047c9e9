// Package formats detects the annotation layout of a working directory.
//
// The only layout SwiftLabel understands is folder classification: class
// names as directories with images inside. Detection reports a confidence
// and the candidate class folders it found.
package formats
