package rules_test

import (
	"testing"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, startFEN string, white, black rules.PlayerType) *rules.Game {
	t.Helper()
	g, err := rules.NewGame(rules.Config{ID: "t1", StartFEN: startFEN, White: white, Black: black, EngineSkill: 10})
	require.NoError(t, err)
	return g
}

func TestCommitAppendsHistory(t *testing.T) {
	g := newTestGame(t, "", rules.Human, rules.Human)

	m, ok := g.FindMove(board.E2, board.E4)
	require.True(t, ok)
	require.NoError(t, g.Commit(m, false))

	assert.Equal(t, 1, g.HalfMoves())
	assert.False(t, g.IsForced(0))
	assert.Equal(t, board.Black, g.Turn())
}

func TestCommitRejectsIllegalMove(t *testing.T) {
	g := newTestGame(t, "", rules.Human, rules.Human)

	err := g.Commit(board.Move{From: board.E2, To: board.E5}, false)
	assert.Error(t, err)
	assert.Equal(t, 0, g.HalfMoves())
}

func TestSpeculativeConfirmMatchesCommit(t *testing.T) {
	direct := newTestGame(t, "", rules.Human, rules.Human)
	speculative := newTestGame(t, "", rules.Human, rules.Human)

	m1, ok := direct.FindMove(board.E2, board.E4)
	require.True(t, ok)
	require.NoError(t, direct.Commit(m1, false))

	m2, ok := speculative.FindMove(board.E2, board.E4)
	require.True(t, ok)
	require.True(t, speculative.PushSpeculative(m2))
	speculative.ConfirmSpeculative(m2, false)

	assert.Equal(t, direct.FEN(), speculative.FEN())
	assert.Equal(t, direct.HalfMoves(), speculative.HalfMoves())
}

func TestCancelSpeculativeRestoresPosition(t *testing.T) {
	g := newTestGame(t, "", rules.Human, rules.Human)
	before := g.FEN()

	m, ok := g.FindMove(board.E2, board.E4)
	require.True(t, ok)
	require.True(t, g.PushSpeculative(m))
	assert.NotEqual(t, before, g.FEN())

	popped, ok := g.CancelSpeculative()
	require.True(t, ok)
	assert.Equal(t, m, popped)
	assert.Equal(t, before, g.FEN())
	assert.Equal(t, 0, g.HalfMoves())
}

func TestPreviewOccupiedAfterDoesNotMutate(t *testing.T) {
	g := newTestGame(t, "", rules.Human, rules.Human)
	before := g.Occupied()

	m, ok := g.FindMove(board.E2, board.E4)
	require.True(t, ok)

	after := g.PreviewOccupiedAfter(m)
	assert.NotEqual(t, before, after)
	assert.Equal(t, before, g.Occupied(), "PreviewOccupiedAfter must not mutate the live game")
}

func TestForceMovesRewindsToCommonPrefix(t *testing.T) {
	g := newTestGame(t, "", rules.Human, rules.RemotePeer)

	e4, ok := g.FindMove(board.E2, board.E4)
	require.True(t, ok)
	require.NoError(t, g.Commit(e4, false))

	e5, ok := g.FindMove(board.E7, board.E5)
	require.True(t, ok)
	require.NoError(t, g.Commit(e5, false))

	// Remote peer supplies the same first move but a different second move (Nf3 instead of e5).
	nf3 := board.Move{From: board.G1, To: board.F3}
	suffix, changed, err := g.ForceMoves([]board.Move{e4, nf3}, board.Undecided)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, suffix, 1)
	assert.Equal(t, 1, g.HalfMoves(), "Rewind must drop the divergent e5 ply")
}

func TestForceMovesNoopWhenAlreadyCurrent(t *testing.T) {
	g := newTestGame(t, "", rules.Human, rules.RemotePeer)

	e4, ok := g.FindMove(board.E2, board.E4)
	require.True(t, ok)
	require.NoError(t, g.Commit(e4, false))

	_, changed, err := g.ForceMoves([]board.Move{e4}, board.Undecided)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestIsCheckmate(t *testing.T) {
	g := newTestGame(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", rules.Human, rules.Human)
	assert.True(t, g.IsCheckmate())
	assert.False(t, g.IsStalemate())
}

func TestIsStalemate(t *testing.T) {
	g := newTestGame(t, "k7/8/1Q6/8/8/8/8/7K b - - 0 1", rules.Human, rules.Human)
	assert.True(t, g.IsStalemate())
	assert.False(t, g.IsCheckmate())
}
