// Package aggregate keeps counters shared by every open tab, such as the total
// number of moves made across all games.
//
// A Store holds the values and a Broadcaster tells interested parties which key
// changed. Updates are read-increment-write; when two tabs race, the last writer
// wins.
//
// Backends:
//   - MemoryStore with LocalBus for tabs living in one process
//   - SQLiteStore for tabs in separate processes sharing a profile file; Watch
//     polls for foreign writes and re-broadcasts them on a local bus
//   - RedisStore for tabs on separate hosts, using PUBLISH/SUBSCRIBE for notifications
package aggregate
