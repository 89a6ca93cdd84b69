// Package session manages the open tabs of the Memory Match game and keeps
// their games stored between runs.
//
// The session package implements:
//   - Thread-safe tab storage and retrieval
//   - Time-ordered tab IDs (UUIDv7), reused when a tab is reopened
//   - Resuming a stored game, or a fresh game when nothing usable is stored
//   - Saving snapshots as the game changes, dropping out-of-order writes
//   - Counting moves into the shared aggregate
//
// Core Types:
//
// Manager opens and closes tabs. Adapter listens to each tab's engine and
// decides when to save. SnapshotPersistence is the storage behind it, with
// FilePersistence writing one JSON file per tab and MemoryPersistence for tests.
//
// Save Triggers:
//
// A snapshot is written after every accepted reveal, every move, every
// resolution outcome, every new game and every fifth clock tick. Writes carry
// the engine sequence number; a write older than the last one stored for the
// tab is skipped. Storage errors are logged and the game continues in memory.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	adapter := session.NewAdapter(persistence, session.WithCounters(store, bus))
//	manager := session.NewManager(adapter)
//
//	// Open a new tab, or resume one after a reload
//	tab, err := manager.Open(ctx, previousTabID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer manager.Close(ctx, tab.ID)
package session
