package search_test

import (
	"context"
	"github.com/herohde/boardd/pkg/board/fen"
	"github.com/herohde/boardd/pkg/eval"
	"github.com/herohde/boardd/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestAlphaBeta(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		fen      string
		depth    int
		expected eval.Score
	}{
		{fen.Initial, 4, eval.ZeroScore},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 4, eval.ZeroScore},
		{"k7/7R/6R1/8/8/8/8/7K w - - 0 1", 2, eval.MateInXScore(1)},
	}

	ab := search.AlphaBeta{Eval: search.ZeroPly{Eval: search.StaticEvaluator{Eval: eval.Material{}}}}

	for _, tt := range tests {
		b, err := fen.NewBoard(tt.fen)
		require.NoError(t, err)

		sctx := &search.Context{Alpha: eval.InvalidScore, Beta: eval.InvalidScore, TT: search.NoTranspositionTable{}}
		n, actual, _, err := ab.Search(ctx, sctx, b, tt.depth)
		require.NoError(t, err)
		assert.Lessf(t, n, uint64(20000), "too many nodes: %v", tt.fen)
		assert.Equalf(t, tt.expected, actual, "failed: %v", tt.fen)
	}
}
