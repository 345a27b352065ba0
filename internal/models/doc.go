// Package models defines domain entities and persistence interfaces for the cleanify playlist cleanup service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external platform data
//   - [Playlist] : Basic playlist metadata from the music platform
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Song metadata with explicit flag and popularity score
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Job] : One cleanup run with state machine and progress counters
//   - [TrackMapping] : Per-track resolution of a source track to its clean alternative
//   - [SyncConfig] : An enabled recurring synchronization for a completed job
//   - [SyncHistory] : Append-only log of sync attempts with applied counts
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
