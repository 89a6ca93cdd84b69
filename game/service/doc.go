// Package service provides the business logic layer for the Memory Match game.
//
// The service package implements:
//   - Multi-tab game management
//   - Difficulty resolution through the configuration layer
//   - Reveal processing with invalid moves reported, not failed
//   - The shared move counter and its change notifications
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager opens, resumes and closes tabs.
// ConfigManager resolves difficulty names to board shapes.
//
// Architecture:
//
// The service layer sits between the user interface (the terminal front end in
// main.go) and the game engine. Each tab owns an independent engine; the only
// state tabs share is the aggregate counter, read through an aggregate.Store and
// announced through an aggregate.Broadcaster.
//
// Usage:
//
//	tabs := session.NewManager(session.NewAdapter(persistence, session.WithCounters(counters, bus)))
//	configMgr, _ := config.NewManager("memory.yaml")
//	gameService := service.NewGameService(tabs, configMgr, counters, bus, logger)
//
//	tab, err := gameService.OpenTab(ctx, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unsubscribe, _ := gameService.Subscribe(tab.ID, func(u service.Update) {
//		fmt.Println(u.Kind, u.TotalMoves)
//	})
//	defer unsubscribe()
//
//	result, err := gameService.Reveal(ctx, tab.ID, 3)
package service
