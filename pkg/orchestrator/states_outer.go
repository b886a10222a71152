package orchestrator

import (
	"context"
	"time"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/fsm"
	"github.com/herohde/boardd/pkg/rules"
	"github.com/herohde/boardd/pkg/sensor"
	"github.com/seekerror/logw"
)

const (
	powerOffShortDelay  = 10 * time.Second
	powerOffLongDelay   = 30 * time.Second
	powerOffCancelDelay = 500 * time.Millisecond
	ledTestDuration     = 6 * time.Second
)

// waitingForSetupState is entered at boot and after every terminated game. It is constructed
// once by Orchestrator and reused for the lifetime of the process, per §4.4.
type waitingForSetupState struct {
	o *Orchestrator
}

func (s *waitingForSetupState) OnEnter(ctx context.Context) {
	s.o.setLEDs(ctx, 0, 0, 0, 0, 0)
}

func (s *waitingForSetupState) OnLeave(ctx context.Context) {}

func (s *waitingForSetupState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	missing := sensor.StartingSquares &^ b
	extra := b &^ sensor.StartingSquares

	switch {
	case b == 0:
		long := s.o.piecesEverSeen <= 4
		s.o.outer.GoToState(ctx, newWaitingToPowerOffState(s.o, s, long))
	case missing|extra == 0:
		s.o.beginGame(ctx)
	default:
		s.o.setLEDs(ctx, 0, extra, missing, 0, 0)
	}
}

// waitingToPowerOffState schedules a shutdown timer on entry and cancels it if the board becomes
// non-empty for long enough, per §4.1.
type waitingToPowerOffState struct {
	o            *Orchestrator
	cancelTarget fsm.State
	long         bool

	shutdownTimer *time.Timer
	cancelTimer   *time.Timer
}

func newWaitingToPowerOffState(o *Orchestrator, cancelTarget fsm.State, long bool) *waitingToPowerOffState {
	return &waitingToPowerOffState{o: o, cancelTarget: cancelTarget, long: long}
}

func (s *waitingToPowerOffState) OnEnter(ctx context.Context) {
	delay := powerOffShortDelay
	if s.long {
		delay = powerOffLongDelay
	}
	s.shutdownTimer = time.AfterFunc(delay, func() {
		s.o.post(func(ctx context.Context) { s.o.onShutdownRequested(ctx) })
	})
}

func (s *waitingToPowerOffState) OnLeave(ctx context.Context) {
	s.shutdownTimer.Stop()
	if s.cancelTimer != nil {
		s.cancelTimer.Stop()
	}
}

func (s *waitingToPowerOffState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	if b != 0 {
		if s.cancelTimer == nil {
			s.cancelTimer = time.AfterFunc(powerOffCancelDelay, func() {
				s.o.post(func(ctx context.Context) { s.o.outer.GoToState(ctx, s.cancelTarget) })
			})
		}
		return
	}
	if s.cancelTimer != nil {
		s.cancelTimer.Stop()
		s.cancelTimer = nil
	}
}

// onShutdownRequested is the sole hook through which the event loop learns a shutdown fired.
// Actually powering off is platform-specific process bootstrap and out of this module's scope
// (§1); this just invokes whatever hook cmd/boardd installed, or logs if none was installed.
func (o *Orchestrator) onShutdownRequested(ctx context.Context) {
	logw.Infof(ctx, "Power-off requested by WaitingToPowerOff")
	if o.onShutdown != nil {
		o.onShutdown(ctx)
	}
}

// ledTestState lights the current occupancy as constant LEDs and auto-returns after 6s.
type ledTestState struct {
	o            *Orchestrator
	cancelTarget fsm.State
	timer        *time.Timer
}

func newLedTestState(o *Orchestrator, cancelTarget fsm.State) *ledTestState {
	return &ledTestState{o: o, cancelTarget: cancelTarget}
}

func (s *ledTestState) OnEnter(ctx context.Context) {
	s.o.resetBlinkTimer(ctx)
	s.timer = time.AfterFunc(ledTestDuration, func() {
		s.o.post(func(ctx context.Context) { s.o.outer.GoToState(ctx, s.cancelTarget) })
	})
}

func (s *ledTestState) OnLeave(ctx context.Context) {
	// Per §9 redesign note (c), cancelled unconditionally -- never guarded by a nil check.
	s.timer.Stop()
}

func (s *ledTestState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	s.o.setLEDs(ctx, b, 0, 0, 0, 0)
}

// activeGameState is the outer ActiveGame state: it owns the Game and an inner fsm.Machine, and
// intercepts two global conditions (finish-and-restart, abort) ahead of the inner state.
type activeGameState struct {
	o    *Orchestrator
	game *rules.Game

	inner fsm.Machine
}

func newActiveGameState(o *Orchestrator, g *rules.Game) *activeGameState {
	return &activeGameState{o: o, game: g}
}

func (s *activeGameState) OnEnter(ctx context.Context) {
	s.inner.InitState(ctx, s.nextMoveState(ctx, board.Undecided))
}

func (s *activeGameState) OnLeave(ctx context.Context) {
	s.inner.Leave(ctx)
}

func (s *activeGameState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	authoritative := sensor.Occupancy(s.game.Occupied())

	if b == sensor.StartingSquares && authoritative != sensor.StartingSquares {
		s.finishAndRestart(ctx)
		return
	}

	if abortCondition(b, authoritative) {
		if _, already := s.inner.Current().(*abortLaterState); !already {
			s.inner.Push(ctx, newAbortLaterState(s.o, s))
			return
		}
	}

	s.inner.OnBoardChanged(ctx, b)
}

// abortCondition reports whether the physical board has diverged from the authoritative position
// badly enough (cleared, or more than 8 squares disagree) to suspect the game was abandoned.
func abortCondition(b, authoritative sensor.Occupancy) bool {
	return b == 0 || (b^authoritative).PopCount() > 8
}

// finishAndRestart ends the current game (without forcing a result -- it simply stops) and
// returns the outer machine to WaitingForSetup so a freshly-set-up board starts a new game.
func (s *activeGameState) finishAndRestart(ctx context.Context) {
	s.o.onGameEnd(ctx)
	s.o.outer.GoToState(ctx, s.o.waitingForSetup)
}

// forceMultipleMoves drives the inner machine through ForceMultipleMoves for a remote-peer
// supplied move suffix, per §4.3.
func (s *activeGameState) forceMultipleMoves(ctx context.Context, moves []board.Move, forcedWinner board.Outcome) {
	s.inner.GoToState(ctx, newForceMultipleMovesState(s.o, s, moves, forcedWinner))
}

// nextMoveState implements §4.1's next-move selection table, adjudicating the game's result
// first if the position (or a forced winner) has become terminal.
func (s *activeGameState) nextMoveState(ctx context.Context, forcedWinner board.Outcome) fsm.State {
	g := s.game

	switch {
	case forcedWinner == board.Win(board.White):
		g.Adjudicate(board.Result{Outcome: board.Win(board.White), Reason: board.Resignation})
		return newGameEndIndicatorState(s.o, s, g.Kings()&g.OccupiedBy(board.Black))
	case forcedWinner == board.Win(board.Black):
		g.Adjudicate(board.Result{Outcome: board.Win(board.Black), Reason: board.Resignation})
		return newGameEndIndicatorState(s.o, s, g.Kings()&g.OccupiedBy(board.White))
	case forcedWinner == board.Draw:
		g.Adjudicate(board.Result{Outcome: board.Draw, Reason: board.Resignation})
		return newGameEndIndicatorState(s.o, s, g.Kings())
	case g.IsCheckmate():
		loser := g.Turn()
		result := board.Result{Outcome: board.Win(loser.Opponent()), Reason: board.Checkmate}
		g.Adjudicate(result)
		return newGameEndIndicatorState(s.o, s, g.Kings()&g.OccupiedBy(loser))
	case g.IsStalemate() || g.IsInsufficientMaterial() || g.CanClaimDraw():
		g.Adjudicate(board.Result{Outcome: board.Draw, Reason: board.NoProgress})
		return newGameEndIndicatorState(s.o, s, g.Kings())
	}

	switch g.PlayerType(g.Turn()) {
	case rules.Engine:
		return newCalculateEngineMoveState(s.o, s)
	case rules.RemotePeer:
		return newIdleState(s.o, s)
	default:
		return newPlayerMoveBaseState(s.o, s)
	}
}
