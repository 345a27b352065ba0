// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The [WatchModel] renders live progress for a running cleanup job: a
// spinner and progress bar driven by [tasks.Snapshot] values arriving on a
// channel from the cleanup engine. The model quits on a terminal snapshot
// (done or failed) or when the snapshot stream closes.
//
// Keyboard handling is minimal: q or ctrl+c quits, leaving the job running
// in the background.
package ui
