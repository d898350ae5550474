// Package main is the entry point for the webterm backend server.
//
// This application hosts the virtual filesystem behind the in-browser
// terminal: an in-memory node tree, a durable store bridge that writes
// persisted mounts through in the background, a session lease that keeps
// one tab in charge of the store, and workspace export/import.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8090 -data ./data
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
