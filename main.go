// Command memory-match plays the Memory Match tile game in the terminal.
//
// Every tab is a separate game whose progress is stored under the sessions
// directory, so a tab reopened with --tab continues where it stopped. Moves of
// all tabs are summed in a shared counter kept in memory, in a SQLite profile
// database or in Redis.
//
// Commands:
//  1. "play" – interactive board on stdin/stdout
//  2. "autoplay" – a bot with perfect memory plays one or more games
//  3. "stats" – shared move total and the stored tabs
//  4. "difficulties" – the configured presets
//  5. "config" – writes or prints settings
//  6. "validate" – checks settings files
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/memory-match-game/game/aggregate"
	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
	"github.com/wricardo/memory-match-game/game/session"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memory Match"
)

// defaultConfigPath is used when neither --config nor MEMORY_CONFIG is set
const defaultConfigPath = "memory.yaml"

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the root command
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "memory-match",
		Usage:   AppName + " tile game",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "settings file (YAML)",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("MEMORY_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			playCommand(),
			autoplayCommand(),
			statsCommand(),
			difficultiesCommand(),
			configCommand(),
			validateCommand(),
		},
		DefaultCommand: "play",
	}
}

// loadSettings reads the settings file named by --config and applies the
// environment overrides.
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	settings.ApplyEnv(os.Getenv)
	return settings, nil
}

// newLogger creates the text logger used by every component. debug overrides level.
func newLogger(w io.Writer, level string, debug bool) (*slog.Logger, error) {
	lvl := slog.LevelInfo
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// output returns where a command writes its results
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// errOutput returns where logs go
func errOutput(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// input returns where interactive commands read from
func input(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

// services holds the wired components of one command run
type services struct {
	settings *config.Settings
	configs  *config.Manager
	store    *session.FilePersistence
	sessions *session.Manager
	game     service.GameService
	logger   *slog.Logger
	closers  []func() error
}

// newServices wires configuration, the shared counter, persistence and the
// tab manager behind a GameService.
func newServices(ctx context.Context, cmd *cli.Command, settings *config.Settings) (*services, error) {
	logger, err := newLogger(errOutput(cmd), settings.LogLevel, cmd.Bool("debug"))
	if err != nil {
		return nil, err
	}

	configs, err := config.NewManagerFromSettings(cmd.String("config"), settings)
	if err != nil {
		return nil, err
	}
	configs.UseEnv(os.Getenv)

	s := &services{settings: settings, configs: configs, logger: logger}

	counters, bus, err := s.openAggregate(ctx)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	s.store, err = session.NewFilePersistence(settings.Persistence.SessionsDir)
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to open sessions directory: %w", err)
	}

	adapter := session.NewAdapter(s.store,
		session.WithCounters(counters, bus),
		session.WithSaveEveryTicks(settings.Persistence.SaveEveryTicks),
		session.WithAdapterLogger(logger),
	)
	s.sessions = session.NewManager(adapter,
		session.WithDefaultShape(configs.DefaultShape()),
		session.WithEngineOptions(
			engine.WithAlphabet(configs.Alphabet()),
			engine.WithTiming(settings.EngineTiming()),
			engine.WithLogger(logger),
		),
		session.WithManagerLogger(logger),
	)
	s.game = service.NewGameService(s.sessions, configs, counters, bus, logger)

	logger.Debug("services ready",
		"sessions_dir", settings.Persistence.SessionsDir,
		"aggregate", settings.Aggregate.Backend)
	return s, nil
}

// openAggregate opens the shared counter store selected in the settings
func (s *services) openAggregate(ctx context.Context) (aggregate.Store, aggregate.Broadcaster, error) {
	cfg := s.settings.Aggregate

	switch cfg.Backend {
	case config.BackendMemory:
		return aggregate.NewMemoryStore(), aggregate.NewLocalBus(), nil

	case config.BackendSQLite:
		store, err := aggregate.OpenSQLite(cfg.SQLitePath, aggregate.WithLogger(s.logger))
		if err != nil {
			return nil, nil, err
		}
		bus := aggregate.NewLocalBus()

		// Moves made by other processes show up through the watcher
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := store.Watch(watchCtx, cfg.WatchInterval, bus); err != nil {
				s.logger.Warn("aggregate watch stopped", "error", err)
			}
		}()
		s.closers = append(s.closers, func() error {
			cancel()
			<-done
			return store.Close()
		})
		return store, bus, nil

	case config.BackendRedis:
		store, err := aggregate.NewRedisStore(ctx, cfg.RedisURL, s.logger)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, store, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown aggregate backend %q", config.ErrInvalidConfig, cfg.Backend)
}

// reloadOnHangup re-reads the settings file on SIGHUP until the returned stop is
// called. New games pick up the reloaded difficulties; engine timing and stores
// keep what they were opened with.
func (s *services) reloadOnHangup() (stop func()) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-hangup:
				s.reload()
			}
		}
	}()

	return func() {
		signal.Stop(hangup)
		close(done)
	}
}

func (s *services) reload() {
	if err := s.configs.Reload(); err != nil {
		s.logger.Warn("settings reload failed, keeping current settings", "error", err)
		return
	}
	s.logger.Info("settings reloaded", "default_difficulty", s.configs.DefaultDifficulty())
}

// Close saves and closes every open tab, then releases the stores
func (s *services) Close(ctx context.Context) {
	if s.sessions != nil {
		s.sessions.CloseAll(context.WithoutCancel(ctx))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("failed to close store", "error", err)
		}
	}
	s.closers = nil
}
