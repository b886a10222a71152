package pgn_test

import (
	"testing"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/board/fen"
	"github.com/herohde/boardd/pkg/board/pgn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWritesSevenTagRosterAndMovetext(t *testing.T) {
	moves := []board.Move{
		{From: board.E2, To: board.E4},
		{From: board.E7, To: board.E5},
		{From: board.G1, To: board.F3},
	}

	out, err := pgn.Build(pgn.Headers{"White": "Alice", "Black": "Bob"}, fen.Initial, moves, board.Result{Outcome: board.Undecided})
	require.NoError(t, err)

	assert.Contains(t, out, "[Event \"*\"]\n")
	assert.Contains(t, out, "[White \"Alice\"]\n")
	assert.Contains(t, out, "[Black \"Bob\"]\n")
	assert.Contains(t, out, "[Result \"*\"]\n")
	assert.Contains(t, out, "1. e4 e5 2. Nf3 *")
}

func TestBuildSortsExtraHeadersAfterSevenTagRoster(t *testing.T) {
	out, err := pgn.Build(pgn.Headers{"Zebra": "z", "Annotator": "a"}, fen.Initial, nil, board.Result{Outcome: board.Undecided})
	require.NoError(t, err)

	ai := indexOf(out, "[Annotator")
	zi := indexOf(out, "[Zebra")
	ri := indexOf(out, "[Result")
	require.True(t, ai >= 0 && zi >= 0 && ri >= 0)
	assert.True(t, ri < ai, "seven-tag-roster headers must come before extra headers")
	assert.True(t, ai < zi, "extra headers must be sorted alphabetically")
}

func TestBuildAppendsResultOutcomeToMovetext(t *testing.T) {
	moves := []board.Move{{From: board.E2, To: board.E4}}
	out, err := pgn.Build(pgn.Headers{}, fen.Initial, moves, board.Result{Outcome: board.WhiteWins, Reason: board.Checkmate})
	require.NoError(t, err)

	assert.Contains(t, out, "1-0")
}

func TestBuildRejectsIllegalMoveInHistory(t *testing.T) {
	moves := []board.Move{{From: board.E2, To: board.E5}}
	_, err := pgn.Build(pgn.Headers{}, fen.Initial, moves, board.Result{Outcome: board.Undecided})
	assert.Error(t, err)
}

func TestBuildRejectsInvalidStartFEN(t *testing.T) {
	_, err := pgn.Build(pgn.Headers{}, "not a fen", nil, board.Result{Outcome: board.Undecided})
	assert.Error(t, err)
}

func TestSANAddsCheckmateSuffix(t *testing.T) {
	// Fool's mate position after 1. f3 e5 2. g4, Black to deliver mate with Qh4#.
	b, err := fen.NewBoard("rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2")
	require.NoError(t, err)

	m := board.Move{From: board.D8, To: board.H4}
	san, err := pgn.SAN(b, m)
	require.NoError(t, err)
	assert.Equal(t, "Qh4#", san)

	// SAN must not mutate the board used to render it.
	assert.Equal(t, board.Black, b.Turn())
}

func TestSANRendersCastling(t *testing.T) {
	b, err := fen.NewBoard("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	san, err := pgn.SAN(b, board.Move{Type: board.KingSideCastle, Piece: board.King, From: board.E1, To: board.G1})
	require.NoError(t, err)
	assert.Equal(t, "O-O", san)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
