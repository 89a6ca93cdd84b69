package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

const helpText = `Commands:
  <n>              reveal tile n
  new [difficulty] start a new game (preset name or RxC)
  tab [n]          list the open tabs, or switch to tab n
  show             redraw the board
  help             this help
  quit             leave (every tab is saved)
`

// terminal renders the active tab and reads commands for it, one per line.
// Only the active tab is drawn, but every tab keeps running.
type terminal struct {
	out  io.Writer
	game service.GameService
	tabs []string

	mu     sync.Mutex
	active int
	total  int64
}

func newTerminal(out io.Writer, game service.GameService, tabs ...string) *terminal {
	return &terminal{out: out, game: game, tabs: tabs}
}

// Run shows the board and handles input until quit, end of input or ctx is done
func (t *terminal) Run(ctx context.Context, in io.Reader) error {
	for _, id := range t.tabs {
		id := id
		unsubscribe, err := t.game.Subscribe(id, func(u service.Update) { t.onUpdate(id, u) })
		if err != nil {
			return err
		}
		defer unsubscribe()
	}

	total, err := t.game.TotalMoves(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()

	if err := t.show(ctx); err != nil {
		return err
	}
	t.printf("Type 'help' for commands.\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := t.handle(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// current returns the id of the active tab
func (t *terminal) current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tabs[t.active]
}

// handle runs one input line
func (t *terminal) handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		t.printf("%s", helpText)
	case "s", "show":
		return false, t.show(ctx)
	case "t", "tab", "tabs":
		if len(fields) == 1 {
			return false, t.listTabs(ctx)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(t.tabs) {
			t.printf("No tab %s; there are %d.\n", fields[1], len(t.tabs))
			return false, nil
		}
		t.mu.Lock()
		t.active = n - 1
		t.mu.Unlock()
		return false, t.show(ctx)
	case "n", "new":
		difficulty := ""
		if len(fields) > 1 {
			difficulty = fields[1]
		}
		if _, err := t.game.NewGame(ctx, t.current(), difficulty); err != nil {
			t.printf("%v\n", err)
		}
	default:
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			t.printf("Unknown command %q. Type 'help' for commands.\n", fields[0])
			return false, nil
		}
		result, err := t.game.Reveal(ctx, t.current(), id)
		if err != nil {
			return false, err
		}
		if !result.Accepted {
			t.printf("%s\n", result.Message)
		}
	}
	return false, nil
}

// onUpdate renders engine events of the active tab and repaints the status
// line when the shared total changes. Every tab subscription hears the total;
// only the active one draws it.
func (t *terminal) onUpdate(tabID string, u service.Update) {
	t.mu.Lock()
	active := t.tabs[t.active] == tabID
	if u.Kind == service.UpdateAggregate {
		t.total = u.TotalMoves
	}
	t.mu.Unlock()
	if !active {
		return
	}

	if u.Kind == service.UpdateAggregate {
		snap, err := t.game.GetState(context.Background(), tabID)
		if err != nil {
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		fmt.Fprintln(t.out, statusLine(*snap, t.total))
		return
	}

	snap := *u.Snapshot
	switch u.Event.Type {
	case engine.EventNewGame, engine.EventRestored, engine.EventReveal, engine.EventHide:
		t.render(snap)
	case engine.EventMatch:
		t.printf("Match!\n")
	case engine.EventMismatch:
		t.printf("No match.\n")
	case engine.EventComplete:
		t.render(snap)
		t.printf("Solved %s in %d moves, %s.\n", snap.Shape, snap.MoveCount, snap.Elapsed)
	}
}

func (t *terminal) show(ctx context.Context) error {
	snap, err := t.game.GetState(ctx, t.current())
	if err != nil {
		return err
	}
	t.render(*snap)
	return nil
}

func (t *terminal) listTabs(ctx context.Context) error {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()

	for i, id := range t.tabs {
		snap, err := t.game.GetState(ctx, id)
		if err != nil {
			return err
		}
		marker := " "
		if i == active {
			marker = "*"
		}
		t.printf("%s %d  %s  %s  Moves: %d  Pairs: %d/%d\n",
			marker, i+1, id, snap.Shape, snap.MoveCount, snap.MatchedPairs, snap.TotalPairs)
	}
	return nil
}

func (t *terminal) render(snap engine.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tabs) > 1 {
		fmt.Fprintf(t.out, "\nTab %d/%d (%s)", t.active+1, len(t.tabs), t.tabs[t.active])
	}
	renderBoard(t.out, snap, t.total)
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// statusLine summarizes a game and the shared total
func statusLine(snap engine.Snapshot, total int64) string {
	return fmt.Sprintf("%s  Moves: %d  Time: %s  Pairs: %d/%d  All tabs: %d",
		snap.Shape, snap.MoveCount, snap.Elapsed, snap.MatchedPairs, snap.TotalPairs, total)
}

// renderBoard draws the status line and the grid. Face down tiles show their id.
func renderBoard(w io.Writer, snap engine.Snapshot, total int64) {
	fmt.Fprintf(w, "\n%s\n", statusLine(snap, total))

	for r := 0; r < snap.Shape.Rows; r++ {
		var row strings.Builder
		for c := 0; c < snap.Shape.Cols; c++ {
			tile := snap.Tiles[r*snap.Shape.Cols+c]
			if tile.Revealed {
				fmt.Fprintf(&row, "  %s  ", tile.Symbol)
			} else {
				fmt.Fprintf(&row, "[%2d] ", tile.ID)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(row.String(), " "))
	}
}
