// Package search contains move search functionality: alpha-beta pruning with a transposition
// table, quiescence search, and the move exploration/ordering policies that drive them. The
// searchctl subpackage layers iterative deepening and time control on top.
package search

import (
	"context"
	"errors"
	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/eval"
)

// ErrHalted indicates that a search was halted (cancelled) before completion.
var ErrHalted = errors.New("search halted")

// Context carries the dynamic parameters of a single search invocation: window, transposition
// table, evaluation noise, and a ponder line to follow first, if any.
type Context struct {
	Alpha, Beta eval.Score
	TT          TranspositionTable
	Noise       eval.Random
	Ponder      []board.Move
}

// Evaluator is a context-aware static position evaluator, returning a raw pawn-scale value.
type Evaluator interface {
	Evaluate(ctx context.Context, sctx *Context, b *board.Board) eval.Pawns
}

// QuietSearch resolves a position to a stable (quiescent) Score, typically by exploring
// captures and checks beyond the nominal search depth.
type QuietSearch interface {
	QuietSearch(ctx context.Context, sctx *Context, b *board.Board) (uint64, eval.Score)
}

// Search is a depth-limited move search from the given board. It returns the node count,
// the score and principal variation for the side to move, and an error if halted early.
type Search interface {
	Search(ctx context.Context, sctx *Context, b *board.Board, depth int) (uint64, eval.Score, []board.Move, error)
}
