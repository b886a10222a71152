package search

import (
	"context"
	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/eval"
)

// StaticEvaluator adapts a context/board-only eval.Evaluator into a search.Evaluator,
// adding the search Context's evaluation noise, if any.
type StaticEvaluator struct {
	Eval eval.Evaluator
}

func (s StaticEvaluator) Evaluate(ctx context.Context, sctx *Context, b *board.Board) eval.Pawns {
	return s.Eval.Evaluate(ctx, b) + sctx.Noise.Evaluate(ctx, b)
}

// ZeroPly is a trivial QuietSearch that performs no further search: the evaluator's static
// value is used directly as the Score. Useful for tests and shallow/fast engine profiles.
type ZeroPly struct {
	Eval Evaluator
}

func (z ZeroPly) QuietSearch(ctx context.Context, sctx *Context, b *board.Board) (uint64, eval.Score) {
	return 1, eval.HeuristicScore(z.Eval.Evaluate(ctx, sctx, b))
}
