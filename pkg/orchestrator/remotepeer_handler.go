package orchestrator

import (
	"context"
	"fmt"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/remotepeer"
)

// Orchestrator implements remotepeer.Handler directly: every method either round-trips through
// the event loop (for anything touching Game/Settings/the outer machine) or talks straight to
// internal/storage, which is safe to call from any goroutine on its own terms.

func (o *Orchestrator) InitialState() remotepeer.StateChangedPayload {
	ch := make(chan remotepeer.StateChangedPayload, 1)
	o.post(func(ctx context.Context) { ch <- o.snapshotState() })
	select {
	case p := <-ch:
		return p
	case <-o.done:
		return remotepeer.StateChangedPayload{}
	}
}

func (o *Orchestrator) snapshotState() remotepeer.StateChangedPayload {
	p := remotepeer.StateChangedPayload{
		GameActive: o.game != nil,
		Settings:   &remotepeer.SettingsPayload{LearningMode: o.settings.LearningMode},
	}
	if files, err := o.store.ListPGNFiles(); err == nil {
		p.GamesToUpload = len(files)
	}
	if o.game != nil {
		p.Game = &remotepeer.GamePayload{
			GameID:      o.game.ID(),
			EngineLevel: o.game.EngineSkill(),
			White:       o.game.PlayerType(board.White).String(),
			Black:       o.game.PlayerType(board.Black).String(),
		}
		p.BoardState = &remotepeer.BoardStatePayload{
			FEN:       o.game.FEN(),
			PGN:       o.game.PGN(),
			MoveCount: o.game.HalfMoves(),
		}
	}
	return p
}

func (o *Orchestrator) OnWritePreferences(ctx context.Context, prefs map[string]any) error {
	return o.UpdateSettings(ctx, prefs)
}

func (o *Orchestrator) OnStartNormalGame(ctx context.Context, p remotepeer.StartNormalGamePayload) error {
	color, ok := parseColor(p.EngineColor)
	if !ok {
		return fmt.Errorf("invalid engineColor %q", p.EngineColor)
	}
	return o.OnGameStartRequest(ctx, p.EnableEngine, color, p.EngineLevel, p.GameID, p.StartFEN)
}

func (o *Orchestrator) OnForceBluetoothMoves(ctx context.Context, p remotepeer.ForceBluetoothMovesPayload) error {
	clientColor, ok := parseColor(p.ClientColor)
	if !ok {
		return fmt.Errorf("invalid clientColor %q", p.ClientColor)
	}

	moves := make([]board.Move, len(p.Moves))
	for i, s := range p.Moves {
		m, err := board.ParseMove(s)
		if err != nil {
			return fmt.Errorf("invalid move %q at index %v: %w", s, i, err)
		}
		moves[i] = m
	}

	forcedWinner := board.Undecided
	if p.Winner != nil {
		w, err := parseOutcome(*p.Winner)
		if err != nil {
			return err
		}
		forcedWinner = w
	}

	return o.ForceRemoteMoves(ctx, p.GameID, clientColor, moves, forcedWinner)
}

func (o *Orchestrator) OnRequestPGNFiles(ctx context.Context) ([]remotepeer.RetPGNFilePayload, error) {
	files, err := o.store.ListPGNFiles()
	if err != nil {
		return nil, err
	}
	return toRetPGNFiles(files), nil
}

func (o *Orchestrator) OnRequestArchivePGNFile(ctx context.Context, p remotepeer.RequestArchivePGNFilePayload) ([]remotepeer.RetPGNFilePayload, error) {
	files, err := o.store.ReadArchivedPGN(p.All, p.Name)
	if err != nil {
		return nil, err
	}
	return toRetPGNFiles(files), nil
}

func (o *Orchestrator) OnTestLEDs(ctx context.Context) error {
	o.TestLEDs(ctx)
	return nil
}

func toRetPGNFiles(files map[string]string) []remotepeer.RetPGNFilePayload {
	out := make([]remotepeer.RetPGNFilePayload, 0, len(files))
	for name, pgn := range files {
		out = append(out, remotepeer.RetPGNFilePayload{Name: name, PGN: pgn})
	}
	return out
}

func parseColor(s string) (board.Color, bool) {
	switch s {
	case "white":
		return board.White, true
	case "black":
		return board.Black, true
	default:
		return board.White, false
	}
}

func parseOutcome(s string) (board.Outcome, error) {
	switch s {
	case "white":
		return board.Win(board.White), nil
	case "black":
		return board.Win(board.Black), nil
	case "draw":
		return board.Draw, nil
	default:
		return board.Undecided, fmt.Errorf("invalid winner %q", s)
	}
}
