// Package tasks implements the cleanup and synchronization engines.
//
// The package is organized around four collaborators:
//
//   - [ProgressTracker] : Batch-based progress cadence for long-running jobs,
//     deciding when to report to listeners and when to persist to storage
//   - [TrackMatcher] : Resolves a source track to its best clean alternative
//     via platform catalog search
//   - [CleanupEngine] : Runs a cleanup job end to end, producing the clean
//     target playlist and one [models.TrackMapping] per source track
//   - [SyncEngine] : Diffs a source playlist against its clean copy with
//     [ComputeDelta] and applies the minimal additions and removals
//
// Storage is reached through small interfaces ([JobStore], [MappingStore],
// [SyncConfigStore], [SyncHistoryStore]) so the engines can be tested
// without a database.
package tasks
