// Package bot plays Memory Match games on its own, for demos and soak tests.
//
// A Player drives any Board (normally an engine.Engine) with a Strategy.
// MemoryStrategy has perfect recall of every tile it has seen face up, which
// finishes a game of n pairs in at most 2n moves.
//
// Usage:
//
//	player := bot.NewPlayer(bot.NewMemoryStrategy(), bot.WithDelay(200*time.Millisecond))
//	result, err := player.Play(ctx, tab.Engine)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d moves in %s\n", result.Moves, result.Elapsed)
package bot
