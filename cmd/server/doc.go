// Package main is the entry point for the SwiftLabel server.
//
// SwiftLabel is a keyboard-first local image classification tool: it scans a
// working directory for images, stages labels and deletions in a persisted
// session, and applies them to the filesystem on commit.
//
// The server provides:
//   - REST API for session state, labeling commands, and preview/commit
//   - WebSocket channel for live state updates
//   - Image file serving
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables (SWIFTLABEL_*)
//   - Optional .swiftlabel/config.yaml in the working directory
//   - CLI flags (override both)
//
// Usage:
//
//	swiftlabel ./images -classes cat,dog,bird
//
//	# Custom bind address, debug logs
//	swiftlabel ./images -classes cat,dog -host 127.0.0.1 -port 9000 -debug
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
