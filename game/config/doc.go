// Package config provides settings management for the Memory Match game.
//
// The config package handles:
//   - Loading settings from a YAML file, falling back to built-in defaults
//   - Environment overrides for deployment-specific values
//   - Difficulty presets and "RxC" board shapes
//   - The tile alphabet, normalized to NFC
//   - Validation that reports every problem at once
//
// Settings Format:
//
//	default_difficulty: medium
//	difficulties: {easy: 2x4, medium: 4x4, hard: 4x6, expert: 6x6, master: 8x8}
//	symbols: []
//	timing: {match_check_delay: 500ms, flip_back_delay: 1s, tick_interval: 1s}
//	persistence: {sessions_dir: sessions, save_every_ticks: 5}
//	aggregate: {backend: sqlite, sqlite_path: profile.db, redis_url: "", watch_interval: 500ms}
//	log_level: info
//
// Difficulties listed in the file are merged with the built-in presets. An empty
// symbols list selects the 32 default sports symbols.
//
// Usage:
//
//	manager, err := config.NewManager("memory.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	shape, err := manager.Difficulty("hard")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	difficulties := manager.ListDifficulties()
package config
