package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/sensor"
	"github.com/seekerror/logw"
)

const (
	confirmMoveDebounce = 300 * time.Millisecond
	gameEndFlashDelay   = 4 * time.Second
	abortFinishDelay    = 2500 * time.Millisecond
)

func destsOf(moves []board.Move) sensor.Occupancy {
	var bb board.Bitboard
	for _, m := range moves {
		bb |= board.BitMask(m.To)
	}
	return bb
}

// playerMoveBaseState awaits the start of a human move: exactly one of the side-to-move's pieces
// lifted from the board.
type playerMoveBaseState struct {
	o  *Orchestrator
	ag *activeGameState
}

func newPlayerMoveBaseState(o *Orchestrator, ag *activeGameState) *playerMoveBaseState {
	return &playerMoveBaseState{o: o, ag: ag}
}

func (s *playerMoveBaseState) OnEnter(ctx context.Context) {}
func (s *playerMoveBaseState) OnLeave(ctx context.Context) {}

func (s *playerMoveBaseState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	g := s.ag.game
	w := g.Occupied()
	if b == w {
		s.o.setLEDs(ctx, 0, 0, 0, 0, 0)
		return
	}

	active := g.OccupiedBy(g.Turn())
	missingActive := (w &^ b) & active
	if missingActive.PopCount() == 1 {
		src := missingActive.LastPopSquare()
		s.ag.inner.GoToState(ctx, newPlayerMoveFromSquareState(s.o, s.ag, src))
		return
	}

	s.o.setLEDs(ctx, 0, 0, 0, b&^w, w&^b)
}

// playerMoveFromSquareState tracks a move in progress from src, once the piece there was lifted.
// Grounded on ChessGame._read_player_move_from's wrong_pieces_missing != {src} guard.
type playerMoveFromSquareState struct {
	o  *Orchestrator
	ag *activeGameState

	src        board.Square
	legalDests sensor.Occupancy

	captureSquare     board.Square
	haveCaptureSquare bool
}

func newPlayerMoveFromSquareState(o *Orchestrator, ag *activeGameState, src board.Square) *playerMoveFromSquareState {
	return &playerMoveFromSquareState{o: o, ag: ag, src: src, legalDests: destsOf(ag.game.LegalMovesFrom(src))}
}

func (s *playerMoveFromSquareState) OnEnter(ctx context.Context) {}
func (s *playerMoveFromSquareState) OnLeave(ctx context.Context) {}

func (s *playerMoveFromSquareState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	g := s.ag.game
	w := g.Occupied()
	active := g.OccupiedBy(g.Turn())
	opponent := g.OccupiedBy(g.Turn().Opponent())

	missingActive := (w &^ b) & active
	if missingActive != board.BitMask(s.src) {
		s.ag.inner.GoToState(ctx, newPlayerMoveBaseState(s.o, s.ag))
		return
	}

	missingOpponent := (w &^ b) & opponent
	extra := b &^ w

	if !s.haveCaptureSquare && missingOpponent.PopCount() == 1 {
		capSq := missingOpponent.LastPopSquare()
		if s.legalDests.IsSet(capSq) && extra == 0 {
			s.captureSquare = capSq
			s.haveCaptureSquare = true
			s.o.setLEDs(ctx, board.BitMask(capSq), board.BitMask(s.src), 0, 0, 0)
			return
		}
	}

	if s.haveCaptureSquare {
		if (b ^ w ^ board.BitMask(s.src)) == 0 {
			if mv, ok := g.FindMove(s.src, s.captureSquare); ok {
				s.ag.inner.GoToState(ctx, newCompleteMoveState(s.o, s.ag, mv))
				return
			}
		}
	} else if missingOpponent == 0 && extra.PopCount() == 1 {
		dst := extra.LastPopSquare()
		if s.legalDests.IsSet(dst) {
			if mv, ok := g.FindMove(s.src, dst); ok {
				s.ag.inner.GoToState(ctx, newCompleteMoveState(s.o, s.ag, mv))
				return
			}
		}
	}

	var constant sensor.Occupancy
	if g.LearningMode() {
		constant = s.legalDests
	} else {
		constant = board.BitMask(s.src)
	}
	fast2 := (w &^ b) &^ board.BitMask(s.src)
	s.o.setLEDs(ctx, constant, board.BitMask(s.src), 0, extra, fast2)
}

// completeMoveState speculatively applies move on entry (so FEN/legality queries already reflect
// it) and watches for the board to settle on the resulting occupancy or to cancel back out.
// Grounded on ChessGame._complete_move's speculative-push/rollback.
type completeMoveState struct {
	o  *Orchestrator
	ag *activeGameState

	move            board.Move
	occupiedAfter   sensor.Occupancy
	changedIndirect sensor.Occupancy
}

func newCompleteMoveState(o *Orchestrator, ag *activeGameState, move board.Move) *completeMoveState {
	before := ag.game.Occupied()
	ag.game.PushSpeculative(move)
	after := ag.game.Occupied()
	changedIndirect := (before ^ after) &^ (board.BitMask(move.From) | board.BitMask(move.To))
	return &completeMoveState{o: o, ag: ag, move: move, occupiedAfter: after, changedIndirect: changedIndirect}
}

func (s *completeMoveState) OnEnter(ctx context.Context) {}
func (s *completeMoveState) OnLeave(ctx context.Context) {}

func (s *completeMoveState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	if b == s.occupiedAfter {
		s.ag.inner.GoToState(ctx, newConfirmMoveState(s.o, s.ag, s.move, s.occupiedAfter))
		return
	}

	wrong := b ^ s.occupiedAfter
	if s.changedIndirect&^wrong != 0 {
		// The indirect squares (castling rook, en-passant pawn) aren't among the anomalies, so
		// the player touched something unrelated to this move: cancel.
		s.ag.game.CancelSpeculative()
		s.ag.inner.GoToState(ctx, newPlayerMoveBaseState(s.o, s.ag))
		return
	}

	missing := s.occupiedAfter &^ b
	extra := b &^ s.occupiedAfter
	s.o.setLEDs(ctx, 0, extra, missing, 0, 0)
}

// confirmMoveState debounces the completed move for 300ms before committing it to history.
type confirmMoveState struct {
	o  *Orchestrator
	ag *activeGameState

	move          board.Move
	occupiedAfter sensor.Occupancy
	timer         *time.Timer
}

func newConfirmMoveState(o *Orchestrator, ag *activeGameState, move board.Move, occupiedAfter sensor.Occupancy) *confirmMoveState {
	return &confirmMoveState{o: o, ag: ag, move: move, occupiedAfter: occupiedAfter}
}

func (s *confirmMoveState) OnEnter(ctx context.Context) {
	s.o.setLEDs(ctx, board.BitMask(s.move.To), 0, 0, 0, 0)
	s.timer = time.AfterFunc(confirmMoveDebounce, func() {
		s.o.post(func(ctx context.Context) { s.confirm(ctx) })
	})
}

func (s *confirmMoveState) OnLeave(ctx context.Context) {
	s.timer.Stop()
}

func (s *confirmMoveState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	if b != s.occupiedAfter {
		s.ag.game.CancelSpeculative()
		s.ag.inner.GoToState(ctx, newCompleteMoveState(s.o, s.ag, s.move))
	}
}

func (s *confirmMoveState) confirm(ctx context.Context) {
	if s.ag.inner.Current() != s {
		return // left already (board moved away before the timer fired)
	}
	s.ag.game.ConfirmSpeculative(s.move, false)
	s.o.onGameMove(ctx)
	s.ag.inner.GoToState(ctx, s.ag.nextMoveState(ctx, board.Undecided))
}

// calculateEngineMoveState asks the engine adapter for a move on a background goroutine.
type calculateEngineMoveState struct {
	o  *Orchestrator
	ag *activeGameState

	active int32
}

func newCalculateEngineMoveState(o *Orchestrator, ag *activeGameState) *calculateEngineMoveState {
	return &calculateEngineMoveState{o: o, ag: ag}
}

func (s *calculateEngineMoveState) OnEnter(ctx context.Context) {
	s.o.setLEDs(ctx, 0, 0, 0, 0, 0)
	atomic.StoreInt32(&s.active, 1)
	s.o.adapter.Query(ctx, s.ag.game, func(m board.Move, err error) {
		s.o.post(func(ctx context.Context) { s.onAnswer(ctx, m, err) })
	})
}

func (s *calculateEngineMoveState) OnLeave(ctx context.Context) {
	atomic.StoreInt32(&s.active, 0)
}

func (s *calculateEngineMoveState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {}

func (s *calculateEngineMoveState) onAnswer(ctx context.Context, m board.Move, err error) {
	if atomic.LoadInt32(&s.active) == 0 {
		return // a late answer for a state already left
	}
	if err != nil {
		logw.Errorf(ctx, "Engine query failed, retrying: %v", err)
		s.ag.inner.GoToState(ctx, newCalculateEngineMoveState(s.o, s.ag))
		return
	}
	s.ag.inner.GoToState(ctx, newForceMoveState(s.o, s.ag, m, func(ctx context.Context) {
		s.ag.inner.GoToState(ctx, s.ag.nextMoveState(ctx, board.Undecided))
	}))
}

// forceMoveState waits for the physical board to match a move chosen by the engine or a remote
// peer, accommodating captures (the captured piece must be lifted before being replaced) and
// indirect changes (castling rook, en-passant pawn).
type forceMoveState struct {
	o  *Orchestrator
	ag *activeGameState

	move           board.Move
	onComplete     func(ctx context.Context)
	occupiedAfter  sensor.Occupancy
	changedSquares sensor.Occupancy
	srcDst         sensor.Occupancy
	isCapture      bool
	capturePickedUp bool
}

func newForceMoveState(o *Orchestrator, ag *activeGameState, move board.Move, onComplete func(ctx context.Context)) *forceMoveState {
	before := ag.game.Occupied()
	after := ag.game.PreviewOccupiedAfter(move)
	srcDst := board.BitMask(move.From) | board.BitMask(move.To)
	return &forceMoveState{
		o:              o,
		ag:             ag,
		move:           move,
		onComplete:     onComplete,
		occupiedAfter:  after,
		changedSquares: before ^ after,
		srcDst:         srcDst,
		isCapture:      move.IsCapture(),
	}
}

func (s *forceMoveState) OnEnter(ctx context.Context) {}
func (s *forceMoveState) OnLeave(ctx context.Context) {}

func (s *forceMoveState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	if s.isCapture && !s.capturePickedUp && !b.IsSet(s.move.To) {
		s.capturePickedUp = true
	}

	if b == s.occupiedAfter && (!s.isCapture || s.capturePickedUp) {
		if err := s.ag.game.Commit(s.move, true); err != nil {
			logw.Errorf(ctx, "ForceMove commit failed for %v: %v", s.move, err)
			return
		}
		s.o.onGameMove(ctx)
		s.onComplete(ctx)
		return
	}

	wrong := b ^ s.occupiedAfter
	if wrong&s.srcDst != 0 || (s.isCapture && !s.capturePickedUp) {
		illegalExtra := (b &^ s.occupiedAfter) &^ s.changedSquares
		illegalMissing := (s.occupiedAfter &^ b) &^ s.changedSquares
		s.o.setLEDs(ctx, 0, s.srcDst, 0, illegalExtra, illegalMissing)
		return
	}

	indirect := s.changedSquares &^ s.srcDst
	s.o.setLEDs(ctx, 0, indirect, 0, 0, 0)
}

// forceMultipleMovesState drives a sequence of forced moves (remote-peer rewind/replay), then
// hands off to the ordinary next-move selection once the suffix is exhausted.
type forceMultipleMovesState struct {
	o  *Orchestrator
	ag *activeGameState

	moves        []board.Move
	idx          int
	forcedWinner board.Outcome
}

func newForceMultipleMovesState(o *Orchestrator, ag *activeGameState, moves []board.Move, forcedWinner board.Outcome) *forceMultipleMovesState {
	return &forceMultipleMovesState{o: o, ag: ag, moves: moves, forcedWinner: forcedWinner}
}

func (s *forceMultipleMovesState) OnEnter(ctx context.Context) {
	s.advance(ctx)
}

func (s *forceMultipleMovesState) OnLeave(ctx context.Context) {}
func (s *forceMultipleMovesState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {}

func (s *forceMultipleMovesState) advance(ctx context.Context) {
	if s.idx >= len(s.moves) {
		s.ag.inner.GoToState(ctx, s.ag.nextMoveState(ctx, s.forcedWinner))
		return
	}
	m := s.moves[s.idx]
	s.idx++
	s.ag.inner.GoToState(ctx, newForceMoveState(s.o, s.ag, m, func(ctx context.Context) { s.advance(ctx) }))
}

// idleState is current when it is a remote peer's turn: no local action is possible.
type idleState struct {
	o  *Orchestrator
	ag *activeGameState
}

func newIdleState(o *Orchestrator, ag *activeGameState) *idleState {
	return &idleState{o: o, ag: ag}
}

func (s *idleState) OnEnter(ctx context.Context) {}
func (s *idleState) OnLeave(ctx context.Context) {}

func (s *idleState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	w := s.ag.game.Occupied()
	s.o.setLEDs(ctx, 0, 0, 0, b&^w, w&^b)
}

// gameEndIndicatorState flashes leds (the loser's king, or both kings for a draw) for 4s, then
// finalizes and restarts the game.
type gameEndIndicatorState struct {
	o  *Orchestrator
	ag *activeGameState

	leds  sensor.Occupancy
	timer *time.Timer
}

func newGameEndIndicatorState(o *Orchestrator, ag *activeGameState, leds sensor.Occupancy) *gameEndIndicatorState {
	return &gameEndIndicatorState{o: o, ag: ag, leds: leds}
}

func (s *gameEndIndicatorState) OnEnter(ctx context.Context) {
	s.o.setLEDs(ctx, 0, 0, 0, s.leds, 0)
	s.timer = time.AfterFunc(gameEndFlashDelay, func() {
		s.o.post(func(ctx context.Context) { s.finalize(ctx) })
	})
}

func (s *gameEndIndicatorState) OnLeave(ctx context.Context) {
	s.timer.Stop()
}

func (s *gameEndIndicatorState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {}

func (s *gameEndIndicatorState) finalize(ctx context.Context) {
	if s.ag.inner.Current() != s {
		return
	}
	s.ag.finishAndRestart(ctx)
}

// abortLaterState is pushed as an overlay once abortCondition holds; if it clears before the
// 2.5s finish timer fires, the overlay pops and the interrupted inner state resumes untouched.
type abortLaterState struct {
	o  *Orchestrator
	ag *activeGameState

	timer *time.Timer
}

func newAbortLaterState(o *Orchestrator, ag *activeGameState) *abortLaterState {
	return &abortLaterState{o: o, ag: ag}
}

func (s *abortLaterState) OnEnter(ctx context.Context) {
	s.timer = time.AfterFunc(abortFinishDelay, func() {
		s.o.post(func(ctx context.Context) { s.finalize(ctx) })
	})
}

func (s *abortLaterState) OnLeave(ctx context.Context) {
	s.timer.Stop()
}

func (s *abortLaterState) OnBoardChanged(ctx context.Context, b sensor.Occupancy) {
	w := s.ag.game.Occupied()
	if !abortCondition(b, w) {
		s.ag.inner.Pop(ctx)
		return
	}
	s.o.setLEDs(ctx, 0, 0, 0, b&^w, w&^b)
}

func (s *abortLaterState) finalize(ctx context.Context) {
	if s.ag.inner.Current() != s {
		return
	}
	s.ag.finishAndRestart(ctx)
}
