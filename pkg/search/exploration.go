package search

import (
	"context"
	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/eval"
)

// Exploration defines move selection and priority in a given position. Limited exploration is required
// by quiescence search and can be used for forward pruning in full search. Default: explore all
// moves in MVVLVA order.
type Exploration func(ctx context.Context, b *board.Board) (board.MovePriorityFn, board.MovePredicateFn)

func FullExploration(ctx context.Context, b *board.Board) (board.MovePriorityFn, board.MovePredicateFn) {
	return MVVLVA, IsAnyMove
}

// Selection returns a move order and priority for exploring the given moves.
func Selection(list []board.Move) (board.MovePriorityFn, board.MovePredicateFn) {
	rank := map[board.Move]board.MovePriority{}
	for i, m := range list {
		rank[m] = board.MovePriority(len(list) - i)
	}

	priority := func(move board.Move) board.MovePriority {
		return rank[move]
	}
	pick := func(move board.Move) bool {
		_, ok := rank[move]
		return ok
	}
	return priority, pick
}

// MVVLVA implements the MVV-LVA move priority.
func MVVLVA(m board.Move) board.MovePriority {
	if p := board.MovePriority(100 * eval.NominalValueGain(m)); p > 0 {
		return p - board.MovePriority(eval.NominalValue(m.Piece))
	}
	return 0
}

// IsAnyMove selects all moves.
func IsAnyMove(m board.Move) bool {
	return true
}

// NoMove selects no moves. Useful to disable quiescence.
func NoMove(m board.Move) bool {
	return false
}

// IsNotUnderPromotion selects any move, except under-promotions.
func IsNotUnderPromotion(m board.Move) bool {
	return !m.IsPromotion() || m.Promotion == board.Queen
}

// QuiescenceExploration limits exploration to quick material gains: promotions and captures
// that are not clearly losing. Suitable as the Explore policy for Quiescence.
func QuiescenceExploration(ctx context.Context, b *board.Board) (board.MovePriorityFn, board.MovePredicateFn) {
	return MVVLVA, IsQuickGain(b)
}

// IsQuickGain selects promotions and captures for the given board: captures that win material
// outright, or into a square not currently defended by the opponent.
func IsQuickGain(b *board.Board) board.MovePredicateFn {
	return func(m board.Move) bool {
		explore := m.IsPromotion()
		if m.IsCapture() {
			if eval.NominalValue(m.Piece) < eval.NominalValue(m.Capture) {
				explore = true
			}
			if !b.Position().IsAttacked(b.Turn().Opponent(), m.To) {
				explore = true
			}
		}
		return explore
	}
}
