package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Memory Match" {
		t.Errorf("Expected app name Memory Match, got %s", AppName)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		debug     bool
		wantLevel slog.Level
		wantErr   bool
	}{
		{level: "", wantLevel: slog.LevelInfo},
		{level: "warn", wantLevel: slog.LevelWarn},
		{level: "ERROR", wantLevel: slog.LevelError},
		{level: "warn", debug: true, wantLevel: slog.LevelDebug},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := newLogger(io.Discard, tt.level, tt.debug)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.wantLevel))
			assert.False(t, logger.Enabled(ctx, tt.wantLevel-1))
		})
	}
}

func TestRenderBoard(t *testing.T) {
	snap := engine.Snapshot{
		SessionState: engine.SessionState{
			Shape: engine.BoardShape{Rows: 2, Cols: 2},
			Tiles: []engine.Tile{
				{ID: 0, Symbol: "A"},
				{ID: 1, Symbol: "B", Revealed: true},
				{ID: 2, Symbol: "A", Revealed: true, Matched: true},
				{ID: 3, Symbol: "B"},
			},
			TotalPairs: 2,
			MoveCount:  4,
		},
		Elapsed: "01:05",
	}

	var buf bytes.Buffer
	renderBoard(&buf, snap, 12)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2x2  Moves: 4  Time: 01:05  Pairs: 0/2  All tabs: 12", lines[0])
	assert.Equal(t, "[ 0]   B", lines[1])
	assert.Equal(t, "  A  [ 3]", lines[2])
}

// testEnv points every store at a temporary directory
func testEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MEMORY_CONFIG", filepath.Join(dir, "memory.yaml"))
	t.Setenv("MEMORY_SESSIONS_DIR", filepath.Join(dir, "sessions"))
	t.Setenv("MEMORY_AGGREGATE_BACKEND", backend)
	t.Setenv("MEMORY_SQLITE_PATH", filepath.Join(dir, "profile.db"))
	t.Setenv("MEMORY_DIFFICULTY", "")
	t.Setenv("MEMORY_LOG_LEVEL", "")
	return dir
}

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(context.Background(), append([]string{"memory-match"}, args...))
	return out.String(), err
}

func TestDifficultiesCommand(t *testing.T) {
	testEnv(t, "memory")

	out, err := runApp(t, "", "difficulties")
	require.NoError(t, err)
	assert.Contains(t, out, "easy")
	assert.Contains(t, out, "medium   4x4    8 pairs (default)")
	assert.Contains(t, out, "master")
}

func TestValidateCommand(t *testing.T) {
	dir := testEnv(t, "memory")

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("default_difficulty: easy\n"), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("difficulties: [1, 2\n"), 0o644))

	out, err := runApp(t, "", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ VALID")
	assert.Contains(t, out, "✅ All settings files are valid!")

	out, err = runApp(t, "", "validate", good, bad)
	assert.ErrorIs(t, err, errInvalidSettings)
	assert.Contains(t, out, "❌ INVALID")
	assert.Contains(t, out, "Invalid YAML")
}

func TestAutoplayCommand(t *testing.T) {
	testEnv(t, "memory")

	out, err := runApp(t, "", "autoplay", "--fast", "--games", "2", "--difficulty", "easy")
	require.NoError(t, err)
	assert.Contains(t, out, "Game 1: 2x4 solved in")
	assert.Contains(t, out, "Game 2: 2x4 solved in")
	assert.Contains(t, out, "Total moves (all tabs): ")
	assert.NotContains(t, out, "Total moves (all tabs): 0\n")
}

func TestPlayCommand_ResumesTab(t *testing.T) {
	dir := testEnv(t, "sqlite")

	out, err := runApp(t, "0\nbogus\n99\nquit\n", "play", "--tab", "t1", "--difficulty", "easy")
	require.NoError(t, err)
	assert.Contains(t, out, "2x4  Moves: 0")
	assert.Contains(t, out, "[ 1]")
	assert.Contains(t, out, `Unknown command "bogus"`)
	assert.Contains(t, out, "tile 99 is out of range")
	assert.Contains(t, out, "1 tab(s) saved.")
	assert.Contains(t, out, "Resume with: play --tab t1")
	assert.FileExists(t, filepath.Join(dir, "sessions", "t1.json"))

	out, err = runApp(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total moves (all tabs): 0")
	assert.Contains(t, out, "t1")
	assert.Contains(t, out, "in progress")

	out, err = runApp(t, "quit\n", "play", "--tab", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "Resumed tab t1")
	assert.Contains(t, out, "Pairs: 0/4")
}

func TestPlayCommand_TotalRepaintsAfterMove(t *testing.T) {
	testEnv(t, "memory")

	out, err := runApp(t, "0\n1\nquit\n", "play", "--difficulty", "easy")
	require.NoError(t, err)
	assert.Contains(t, out, "All tabs: 0")
	assert.Regexp(t, `(?m)^2x4  Moves: 1  Time: \d\d:\d\d  Pairs: [01]/4  All tabs: 1$`, out)
}

func TestPlayCommand_SeveralTabs(t *testing.T) {
	testEnv(t, "memory")

	out, err := runApp(t, "0\n1\ntab\ntab 2\ntab 9\nquit\n", "play", "--tabs", "2", "--difficulty", "easy")
	require.NoError(t, err)

	assert.Contains(t, out, "Tab 1/2")
	assert.Contains(t, out, "* 1")
	// The second tab shows the move made in the first
	assert.Contains(t, out, "Tab 2/2")
	assert.Contains(t, out, "2x4  Moves: 0  Time: 00:00  Pairs: 0/4  All tabs: 1")
	assert.Contains(t, out, "No tab 9; there are 2.")
	assert.Contains(t, out, "2 tab(s) saved.")
	assert.Equal(t, 2, strings.Count(out, "Resume with: play --tab "))
}

func TestPlayCommand_InvalidTabCount(t *testing.T) {
	testEnv(t, "memory")

	_, err := runApp(t, "", "play", "--tabs", "0")
	assert.ErrorContains(t, err, "--tabs must be at least 1")
}

func TestConfigCommands(t *testing.T) {
	dir := testEnv(t, "memory")
	path := filepath.Join(dir, "written.yaml")

	out, err := runApp(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = runApp(t, "", "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = runApp(t, "", "config", "init", "--force", path)
	require.NoError(t, err)

	out, err = runApp(t, "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ VALID")

	t.Setenv("MEMORY_DIFFICULTY", "expert")
	out, err = runApp(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_difficulty: expert")
	assert.Contains(t, out, "backend: memory")
	assert.Contains(t, out, "match_check_delay: 500ms")
}

func TestServices_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_difficulty: easy\n"), 0o644))

	configs, err := config.NewManager(path)
	require.NoError(t, err)

	var logs bytes.Buffer
	svcs := &services{configs: configs, logger: slog.New(slog.NewTextHandler(&logs, nil))}

	require.NoError(t, os.WriteFile(path, []byte("default_difficulty: hard\n"), 0o644))
	svcs.reload()
	assert.Equal(t, "hard", configs.DefaultDifficulty())
	assert.Contains(t, logs.String(), "settings reloaded")

	require.NoError(t, os.WriteFile(path, []byte("default_difficulty: 3x3\n"), 0o644))
	svcs.reload()
	assert.Equal(t, "hard", configs.DefaultDifficulty())
	assert.Contains(t, logs.String(), "settings reload failed")

	stop := svcs.reloadOnHangup()
	stop()
}

func TestPlayCommand_InvalidTab(t *testing.T) {
	testEnv(t, "memory")

	_, err := runApp(t, "", "play", "--tab", "../escape")
	assert.Error(t, err)
}
