// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
//
// Key Implementations:
//   - [JobRepository] : Cleanup job persistence with status-based worker queries
//   - [MappingRepository] : Append-only track mapping rows, one per (job, source track)
//   - [SyncConfigRepository] : Recurring sync configuration with due-time scheduling queries
//   - [SyncHistoryRepository] : Append-only sync run records
//
// Sequence numbers provide stable, human-readable ordering (e.g., job #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
