package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/memory-match-game/game/bot"
	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
)

var errInvalidSettings = errors.New("some settings files have errors")

// fastTiming replaces every delay when autoplay runs with --fast
var fastTiming = config.TimingSettings{
	MatchCheckDelay: time.Millisecond,
	FlipBackDelay:   time.Millisecond,
	TickInterval:    engine.DefaultTickInterval,
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tab",
				Usage: "tab id to resume (a new tab when empty)",
			},
			&cli.IntFlag{
				Name:  "tabs",
				Usage: "number of tabs to open side by side",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "difficulty",
				Usage: "preset name or RxC for new games",
			},
		},
		Action: runPlay,
	}
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	count := int(cmd.Int("tabs"))
	if count < 1 {
		return fmt.Errorf("--tabs must be at least 1, got %d", count)
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	svcs, err := newServices(ctx, cmd, settings)
	if err != nil {
		return err
	}
	defer svcs.Close(ctx)

	stopReload := svcs.reloadOnHangup()
	defer stopReload()

	out := output(cmd)
	difficulty := cmd.String("difficulty")
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		requested := ""
		if i == 0 {
			requested = cmd.String("tab")
		}
		info, err := svcs.game.OpenTab(ctx, requested)
		if err != nil {
			return err
		}
		ids = append(ids, info.ID)

		switch {
		case info.Resumed && difficulty != "":
			fmt.Fprintf(out, "Resumed tab %s; type 'new %s' to start over.\n", info.ID, difficulty)
		case info.Resumed:
			fmt.Fprintf(out, "Resumed tab %s\n", info.ID)
		case difficulty != "":
			if _, err := svcs.game.NewGame(ctx, info.ID, difficulty); err != nil {
				return err
			}
		}
	}

	term := newTerminal(out, svcs.game, ids...)
	if err := term.Run(ctx, input(cmd)); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d tab(s) saved.\n", svcs.sessions.Count())
	for _, id := range ids {
		fmt.Fprintf(out, "Resume with: play --tab %s\n", id)
	}
	return nil
}

func autoplayCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "let a bot with perfect memory play",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "games",
				Usage: "number of games to play",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "difficulty",
				Usage: "preset name or RxC",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "pause between reveals",
				Value: 300 * time.Millisecond,
			},
			&cli.BoolFlag{
				Name:  "fast",
				Usage: "no pauses and near-zero turn delays",
			},
		},
		Action: runAutoplay,
	}
}

func runAutoplay(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	delay := cmd.Duration("delay")
	if cmd.Bool("fast") {
		settings.Timing = fastTiming
		delay = 0
	}

	svcs, err := newServices(ctx, cmd, settings)
	if err != nil {
		return err
	}
	defer svcs.Close(ctx)

	out := output(cmd)
	games := int(cmd.Int("games"))
	for i := 1; i <= games; i++ {
		tab, err := svcs.sessions.Open(ctx, "")
		if err != nil {
			return err
		}
		if _, err := svcs.game.NewGame(ctx, tab.ID, cmd.String("difficulty")); err != nil {
			return err
		}

		player := bot.NewPlayer(bot.NewMemoryStrategy(), bot.WithDelay(delay), bot.WithLogger(svcs.logger))
		result, err := player.Play(ctx, tab.Engine)
		if err != nil {
			return fmt.Errorf("game %d: %w", i, err)
		}
		fmt.Fprintf(out, "Game %d: %s solved in %d moves (%s)\n", i, tab.Engine.Shape(), result.Moves, result.Elapsed)

		if err := svcs.sessions.Delete(ctx, tab.ID); err != nil {
			svcs.logger.Warn("failed to delete finished game", "tab", tab.ID, "error", err)
		}
	}

	total, err := svcs.game.TotalMoves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total moves (all tabs): %d\n", total)
	return nil
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "show the shared move total and stored tabs",
		Action: runStats,
	}
}

func runStats(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	svcs, err := newServices(ctx, cmd, settings)
	if err != nil {
		return err
	}
	defer svcs.Close(ctx)

	out := output(cmd)
	total, err := svcs.game.TotalMoves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total moves (all tabs): %d\n", total)

	ids, err := svcs.store.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No stored tabs")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TAB\tBOARD\tMOVES\tPAIRS\tTIME\tSTATUS")
	for _, id := range ids {
		snap, err := svcs.store.Load(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\tunreadable\n", id)
			continue
		}
		status := "new"
		switch {
		case snap.TotalPairs > 0 && snap.MatchedPairs == snap.TotalPairs:
			status = "complete"
		case snap.GameStarted:
			status = "in progress"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			id, snap.Difficulty, snap.Moves, snap.MatchedPairs, snap.TotalPairs, engine.FormatElapsed(snap.Seconds), status)
	}
	return w.Flush()
}

func difficultiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "difficulties",
		Usage: "list the difficulty presets",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			configs, err := config.NewManagerFromSettings(cmd.String("config"), settings)
			if err != nil {
				return err
			}

			out := output(cmd)
			for _, d := range configs.ListDifficulties() {
				marker := ""
				if d.Default {
					marker = " (default)"
				}
				fmt.Fprintf(out, "  %-8s %-5s %2d pairs%s\n", d.Name, d.Shape, d.Pairs, marker)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "write or show settings",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write the default settings",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: runConfigInit,
			},
			{
				Name:   "show",
				Usage:  "print the effective settings",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		path = cmd.String("config")
	}
	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.SaveSettings(path, config.DefaultSettings()); err != nil {
		return err
	}
	fmt.Fprintf(output(cmd), "Wrote %s\n", path)
	return nil
}

func runConfigShow(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	configs, err := config.NewManagerFromSettings(cmd.String("config"), settings)
	if err != nil {
		return err
	}

	effective := configs.Settings()
	data, err := yaml.Marshal(&effective)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = output(cmd).Write(data)
	return err
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate settings files",
		ArgsUsage: "[file...]",
		Action:    runValidate,
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		files = []string{cmd.String("config")}
	}

	out := output(cmd)
	allValid := true
	for _, file := range files {
		result := config.ValidateFile(file)

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
		} else {
			fmt.Fprintln(out, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(out, "❌ Some settings files have errors")
		return errInvalidSettings
	}
	fmt.Fprintln(out, "✅ All settings files are valid!")
	return nil
}
