package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herohde/boardd/internal/storage"
	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/orchestrator"
	"github.com/herohde/boardd/pkg/remotepeer"
	"github.com/herohde/boardd/pkg/sensor"
)

// fakeLink records every broadcast so tests can assert on the sequence of board-state updates
// without reaching into Orchestrator's unexported fields.
type fakeLink struct {
	mu     sync.Mutex
	states []remotepeer.StateChangedPayload
}

func (f *fakeLink) BroadcastStateChanged(p remotepeer.StateChangedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, p)
	return nil
}
func (f *fakeLink) BroadcastPGNFilesDone() error                           { return nil }
func (f *fakeLink) BroadcastRetPGNFile(remotepeer.RetPGNFilePayload) error { return nil }
func (f *fakeLink) BroadcastError(string) error                           { return nil }

func (f *fakeLink) last() (remotepeer.StateChangedPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return remotepeer.StateChangedPayload{}, false
	}
	return f.states[len(f.states)-1], true
}

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *sensor.Simulated, *fakeLink) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(dir+"/db", dir+"/pgn")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	src := sensor.NewSimulated(sensor.StartingSquares)
	link := &fakeLink{}
	o := orchestrator.New(src, store, nil, link)
	return o, src, link
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// TestHumanVsHumanMoveCommits drives a single human-vs-human move (e2e4) through the physical
// sensor grid and checks it lands in the broadcast board state once the 300ms confirm debounce
// settles.
func TestHumanVsHumanMoveCommits(t *testing.T) {
	o, src, link := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- o.Run(ctx) }()

	require.NoError(t, o.OnGameStartRequest(ctx, false, board.White, 10, "g1", ""))

	// Lift the e2 pawn.
	src.Set(sensor.StartingSquares &^ board.BitMask(board.E2))
	// Place it on e4.
	src.Set((sensor.StartingSquares &^ board.BitMask(board.E2)) | board.BitMask(board.E4))

	waitFor(t, time.Second, func() bool {
		p, ok := link.last()
		return ok && p.BoardState != nil && p.BoardState.MoveCount == 1
	})

	p, ok := link.last()
	require.True(t, ok)
	assert.Equal(t, 1, p.BoardState.MoveCount)
	assert.Contains(t, p.BoardState.FEN, " b ", "after White's move it must be Black to move")

	cancel()
	<-runErr
}

// TestUpdateSettingsPersists checks UpdateSettings round-trips through storage.
func TestUpdateSettingsPersists(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go o.Run(ctx)

	require.NoError(t, o.UpdateSettings(ctx, map[string]any{"learningMode": true}))
	assert.Error(t, o.UpdateSettings(ctx, map[string]any{"learningMode": "not-a-bool"}))
	assert.Error(t, o.UpdateSettings(ctx, map[string]any{"bogusKey": true}))
}

// TestOnGameStartRequestRejectsInvalidEngineLevel exercises the validation path without ever
// reaching the board-sensor machinery.
func TestOnGameStartRequestRejectsInvalidEngineLevel(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	err := o.OnGameStartRequest(ctx, true, board.White, 0, "g1", "")
	assert.Error(t, err)

	err = o.OnGameStartRequest(ctx, true, board.Color(99), 10, "g1", "")
	assert.Error(t, err)
}
