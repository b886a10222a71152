// Package orchestrator owns the live Game, Settings, engine and remote-peer link, and drives
// the fsm.Machine in response to board-sensor snapshots and API requests. Every public
// operation below runs on a single goroutine: callers post a closure onto Orchestrator's event
// channel and the loop goroutine runs it, so no other synchronization is needed between them.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/fsm"
	"github.com/herohde/boardd/pkg/remotepeer"
	"github.com/herohde/boardd/pkg/rules"
	"github.com/herohde/boardd/pkg/sensor"
	"github.com/herohde/boardd/internal/storage"
	"github.com/seekerror/logw"
)

// Settings are the persisted, player-facing board preferences.
type Settings struct {
	LearningMode bool `json:"learningMode"`
}

// EngineSettings are the persisted engine-game configuration.
type EngineSettings struct {
	EnableEngine bool        `json:"enableEngine"`
	EngineColor  board.Color `json:"engineColor"`
	EngineLevel  int         `json:"engineLevel"`
	Round        int         `json:"round"`
}

// Orchestrator is the single top-level owner of board state. Construct with New, then call Run
// on a dedicated goroutine. Methods that post a closure onto the event loop are safe to call
// from any goroutine; SetShutdownHandler and GoToState act directly instead, so they are called
// before Run or from the event loop itself.
type Orchestrator struct {
	sensor  sensor.Source
	store   *storage.Store
	adapter *EngineAdapter
	link    remotepeer.Link

	ops  chan func(ctx context.Context)
	done chan struct{}

	outer           fsm.Machine
	waitingForSetup *waitingForSetupState

	game           *rules.Game
	settings       Settings
	engineSettings EngineSettings

	lastBoard      sensor.Occupancy
	piecesEverSeen int

	onShutdown func(ctx context.Context)
}

// SetShutdownHandler installs the hook called when WaitingToPowerOff's timer fires. Actually
// powering the hardware off is cmd/boardd's job (platform-specific process bootstrap, out of
// this module's scope); a typical hook cancels the context passed to Run.
func (o *Orchestrator) SetShutdownHandler(fn func(ctx context.Context)) {
	o.onShutdown = fn
}

func New(sensorSrc sensor.Source, store *storage.Store, adapter *EngineAdapter, link remotepeer.Link) *Orchestrator {
	o := &Orchestrator{
		sensor:  sensorSrc,
		store:   store,
		adapter: adapter,
		link:    link,
		ops:     make(chan func(ctx context.Context), 64),
		done:    make(chan struct{}),
	}
	o.waitingForSetup = &waitingForSetupState{o: o}
	return o
}

// Run loads persisted settings, starts the sensor-watch goroutine, and drains the event loop
// until ctx is cancelled. It blocks; callers should run it on its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) error {
	if s, err := o.store.ReadSettings(); err == nil {
		o.settings = Settings{LearningMode: s.LearningMode}
	}
	if es, err := o.store.ReadEngineSettings(); err == nil {
		o.engineSettings = EngineSettings(es)
	}

	g, err := o.newBootGame()
	if err != nil {
		return fmt.Errorf("create boot game: %w", err)
	}
	o.game = g

	go func() {
		if err := sensor.Watch(ctx, o.sensor, func(occ sensor.Occupancy) {
			o.post(func(ctx context.Context) { o.onBoardChange(ctx, occ) })
		}); err != nil {
			logw.Errorf(ctx, "Sensor watch stopped: %v", err)
		}
	}()

	o.outer.GoToState(ctx, o.waitingForSetup)

	for {
		select {
		case fn := <-o.ops:
			fn(ctx)
		case <-ctx.Done():
			close(o.done)
			return ctx.Err()
		}
	}
}

// post enqueues fn to run on the event loop goroutine. It never blocks indefinitely: if the
// loop has already stopped, fn is dropped.
func (o *Orchestrator) post(fn func(ctx context.Context)) {
	select {
	case o.ops <- fn:
	case <-o.done:
	}
}

func (o *Orchestrator) onBoardChange(ctx context.Context, occ sensor.Occupancy) {
	o.lastBoard = occ
	if occ.PopCount() > 0 && o.piecesEverSeen < occ.PopCount() {
		o.piecesEverSeen = occ.PopCount()
	}
	o.outer.OnBoardChanged(ctx, occ)
}

// beginGame transitions the outer machine into ActiveGame for the current Game, once
// WaitingForSetup has observed the board matching StartingSquares. If no Game is held (the
// previous one ended), a new one is created the same way as at boot.
func (o *Orchestrator) beginGame(ctx context.Context) {
	if o.game == nil {
		g, err := o.newBootGame()
		if err != nil {
			logw.Errorf(ctx, "Create new game: %v", err)
			return
		}
		o.game = g
	}
	o.outer.GoToState(ctx, newActiveGameState(o, o.game))
}

// newBootGame constructs the Game a freshly started Orchestrator begins with, from persisted
// EngineSettings, the same way a "start normal game" request would -- a standalone board with
// no companion app connected still needs a Game the instant correct piece setup is observed.
func (o *Orchestrator) newBootGame() (*rules.Game, error) {
	white, black := rules.Human, rules.Human
	if o.engineSettings.EnableEngine {
		if o.engineSettings.EngineColor == board.White {
			white = rules.Engine
		} else {
			black = rules.Engine
		}
	}

	return rules.NewGame(rules.Config{
		ID:           uuid.NewString(),
		White:        white,
		Black:        black,
		EngineSkill:  o.engineSettings.EngineLevel,
		LearningMode: o.settings.LearningMode,
	})
}

// GoToState releases the current outer state and installs s as the new one.
func (o *Orchestrator) GoToState(ctx context.Context, s fsm.State) {
	o.outer.GoToState(ctx, s)
}

// setLEDs is the one place that talks to the sensor for LED output, so every state shares the
// same fast>slow>constant layering contract.
func (o *Orchestrator) setLEDs(ctx context.Context, constant, slow1, slow2, fast1, fast2 sensor.Occupancy) {
	if err := o.sensor.SetLEDs(ctx, constant, slow1, slow2, fast1, fast2); err != nil {
		logw.Errorf(ctx, "SetLEDs failed: %v", err)
	}
}

func (o *Orchestrator) resetBlinkTimer(ctx context.Context) {
	if err := o.sensor.ResetBlinkTimer(ctx); err != nil {
		logw.Errorf(ctx, "ResetBlinkTimer failed: %v", err)
	}
}

// UpdateSettings validates and merges m into Settings, persists it, and propagates
// LearningMode into the ongoing game (if any).
func (o *Orchestrator) UpdateSettings(ctx context.Context, m map[string]any) error {
	errCh := make(chan error, 1)
	o.post(func(ctx context.Context) {
		errCh <- o.updateSettings(ctx, m)
	})
	return <-errCh
}

func (o *Orchestrator) updateSettings(ctx context.Context, m map[string]any) error {
	next := o.settings
	for k, v := range m {
		switch k {
		case "learningMode":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("learningMode must be a bool, got %T", v)
			}
			next.LearningMode = b
		default:
			return fmt.Errorf("unrecognized settings key %q", k)
		}
	}

	if err := o.store.WriteSettings(storage.Settings(next)); err != nil {
		return err
	}
	o.settings = next

	if o.game != nil {
		o.game.SetLearningMode(next.LearningMode)
	}
	o.outer.OnBoardChanged(ctx, o.lastBoard)
	return nil
}

// OnGameStartRequest creates a new Game unless one with the same id is already in progress.
func (o *Orchestrator) OnGameStartRequest(ctx context.Context, enableEngine bool, engineColor board.Color, engineLevel int, gameID, startFEN string) error {
	errCh := make(chan error, 1)
	o.post(func(ctx context.Context) {
		errCh <- o.startGame(ctx, enableEngine, engineColor, engineLevel, gameID, startFEN, rules.Human, rules.Human)
	})
	return <-errCh
}

func (o *Orchestrator) startGame(ctx context.Context, enableEngine bool, engineColor board.Color, engineLevel int, gameID, startFEN string, whiteOverride, blackOverride rules.PlayerType) error {
	if engineColor != board.White && engineColor != board.Black {
		return fmt.Errorf("engineColor must be white or black")
	}
	if engineLevel < 1 || engineLevel > 20 {
		return fmt.Errorf("engineLevel must be in [1,20]")
	}
	if o.game != nil && o.game.ID() == gameID {
		return nil // already the ongoing game
	}

	white, black := whiteOverride, blackOverride
	if enableEngine {
		if engineColor == board.White {
			white = rules.Engine
		} else {
			black = rules.Engine
		}
	}

	es := EngineSettings{EnableEngine: enableEngine, EngineColor: engineColor, EngineLevel: engineLevel, Round: o.engineSettings.Round}
	if err := o.store.WriteEngineSettings(storage.EngineSettings(es)); err != nil {
		return err
	}
	o.engineSettings = es

	g, err := rules.NewGame(rules.Config{
		ID:           gameID,
		StartFEN:     startFEN,
		White:        white,
		Black:        black,
		EngineSkill:  engineLevel,
		LearningMode: o.settings.LearningMode,
	})
	if err != nil {
		return err
	}
	o.game = g

	o.outer.GoToState(ctx, o.waitingForSetup)
	return nil
}

// ForceRemoteMoves applies a remote-peer move list to the ongoing game, creating a fresh
// RemotePeer-flavored game first if gameID doesn't match the one in progress.
func (o *Orchestrator) ForceRemoteMoves(ctx context.Context, gameID string, clientColor board.Color, moves []board.Move, forcedWinner board.Outcome) error {
	errCh := make(chan error, 1)
	o.post(func(ctx context.Context) {
		errCh <- o.forceRemoteMoves(ctx, gameID, clientColor, moves, forcedWinner)
	})
	return <-errCh
}

func (o *Orchestrator) forceRemoteMoves(ctx context.Context, gameID string, clientColor board.Color, moves []board.Move, forcedWinner board.Outcome) error {
	if o.game == nil || o.game.ID() != gameID {
		remoteColor := clientColor.Opponent()
		white, black := rules.Human, rules.Human
		if remoteColor == board.White {
			white = rules.RemotePeer
		} else {
			black = rules.RemotePeer
		}
		if err := o.startGame(ctx, false, board.White, 20, gameID, "", white, black); err != nil {
			return err
		}
	}

	suffix, changed, err := o.game.ForceMoves(moves, forcedWinner)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	active, ok := o.outer.Current().(*activeGameState)
	if !ok {
		o.outer.GoToState(ctx, newActiveGameState(o, o.game))
		active, _ = o.outer.Current().(*activeGameState)
	}
	active.forceMultipleMoves(ctx, suffix, forcedWinner)
	return nil
}

// TestLEDs enters LedTest, remembering the current outer state as the cancel target.
func (o *Orchestrator) TestLEDs(ctx context.Context) {
	o.post(func(ctx context.Context) {
		o.outer.GoToState(ctx, newLedTestState(o, o.outer.Current()))
	})
}

// onGameMove asks the Remote Peer Link to broadcast the updated board state.
func (o *Orchestrator) onGameMove(ctx context.Context) {
	if o.link == nil || o.game == nil {
		return
	}
	if err := o.link.BroadcastStateChanged(remotepeer.StateChangedPayload{
		GameActive: true,
		Game: &remotepeer.GamePayload{
			GameID:      o.game.ID(),
			EngineLevel: o.game.EngineSkill(),
			White:       o.game.PlayerType(board.White).String(),
			Black:       o.game.PlayerType(board.Black).String(),
		},
		BoardState: &remotepeer.BoardStatePayload{
			FEN:       o.game.FEN(),
			PGN:       o.game.PGN(),
			MoveCount: o.game.HalfMoves(),
		},
	}); err != nil {
		logw.Errorf(ctx, "BroadcastStateChanged failed: %v", err)
	}
}

// onGameEnd archives the PGN (if the game qualifies) and tells the link the game ended.
func (o *Orchestrator) onGameEnd(ctx context.Context) {
	if o.game == nil {
		return
	}
	g := o.game

	persistable := g.PlayerType(board.White) != rules.RemotePeer && g.PlayerType(board.Black) != rules.RemotePeer
	terminal := g.Result(true).Outcome != board.Undecided
	if persistable && (terminal || g.HalfMoves() >= 8) {
		if err := o.store.ArchivePGN(g.ID(), g.PGN()); err != nil {
			logw.Errorf(ctx, "ArchivePGN failed: %v", err)
		}
		if o.link != nil {
			if err := o.link.BroadcastPGNFilesDone(); err != nil {
				logw.Errorf(ctx, "BroadcastPGNFilesDone failed: %v", err)
			}
		}
	}

	o.engineSettings.Round++
	_ = o.store.WriteEngineSettings(storage.EngineSettings(o.engineSettings))

	if o.link != nil {
		if err := o.link.BroadcastStateChanged(remotepeer.StateChangedPayload{GameActive: false}); err != nil {
			logw.Errorf(ctx, "BroadcastStateChanged failed: %v", err)
		}
	}

	o.game = nil
	o.piecesEverSeen = 0
}
