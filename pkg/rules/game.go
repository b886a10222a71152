// Package rules implements the Chess Rules Oracle: a thin, game-lifecycle-aware wrapper around
// pkg/board/pkg/eval/pkg/search that supplies exactly the primitives §6.2 names, without
// re-implementing move generation or evaluation.
package rules

import (
	"fmt"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/board/fen"
	"github.com/herohde/boardd/pkg/board/pgn"
)

// Game owns a board.Board plus the session metadata the state machine and orchestrator need:
// identity, per-color player assignment, engine skill, learning mode, and move history. At most
// one Game exists per Orchestrator at a time.
type Game struct {
	id    string
	start string

	b       *board.Board
	history []board.Move
	forced  []bool

	players      [board.NumColors]PlayerType
	engineSkill  int
	learningMode bool
}

// Config describes a new Game.
type Config struct {
	ID           string
	StartFEN     string // defaults to fen.Initial if empty
	White, Black PlayerType
	EngineSkill  int // 1..20, meaningful only if a player is Engine
	LearningMode bool
}

func NewGame(cfg Config) (*Game, error) {
	start := cfg.StartFEN
	if start == "" {
		start = fen.Initial
	}

	b, err := fen.NewBoard(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start position %q: %w", start, err)
	}

	return &Game{
		id:           cfg.ID,
		start:        start,
		b:            b,
		players:      [board.NumColors]PlayerType{board.White: cfg.White, board.Black: cfg.Black},
		engineSkill:  cfg.EngineSkill,
		learningMode: cfg.LearningMode,
	}, nil
}

func (g *Game) ID() string { return g.id }

func (g *Game) Board() *board.Board { return g.b }

func (g *Game) Turn() board.Color { return g.b.Turn() }

func (g *Game) PlayerType(c board.Color) PlayerType { return g.players[c] }

func (g *Game) EngineSkill() int { return g.engineSkill }

func (g *Game) LearningMode() bool { return g.learningMode }

func (g *Game) SetLearningMode(v bool) { g.learningMode = v }

// History returns the move history played so far, oldest first. The returned slice must not
// be mutated.
func (g *Game) History() []board.Move { return g.history }

// IsForced reports whether the i'th historical move was injected by the engine or a remote
// peer rather than chosen by the local player.
func (g *Game) IsForced(i int) bool { return g.forced[i] }

// HalfMoves returns the number of half-moves (plies) played.
func (g *Game) HalfMoves() int { return len(g.history) }

// LegalMovesFrom returns the legal moves for the side to move originating at src.
func (g *Game) LegalMovesFrom(src board.Square) []board.Move {
	return g.b.Position().LegalMovesFrom(g.b.Turn(), src)
}

// FindMove returns the legal move, if any, for the side to move from src to dst.
func (g *Game) FindMove(src, dst board.Square) (board.Move, bool) {
	return g.b.Position().FindMove(g.b.Turn(), src, dst)
}

func (g *Game) HasLegalMoves() bool {
	return len(g.b.Position().LegalMoves(g.b.Turn())) > 0
}

func (g *Game) IsCheckmate() bool {
	return !g.HasLegalMoves() && g.b.Position().IsChecked(g.b.Turn())
}

func (g *Game) IsStalemate() bool {
	return !g.HasLegalMoves() && !g.b.Position().IsChecked(g.b.Turn())
}

func (g *Game) IsInsufficientMaterial() bool {
	return g.b.Position().HasInsufficientMaterial()
}

// CanClaimDraw reports a claimable draw (threefold repetition or the fifty-move rule). Both
// are folded into board.Board's automatic Result as soon as they occur, so this is simply
// whether that Result has already settled on Draw for one of those reasons.
func (g *Game) CanClaimDraw() bool {
	r := g.b.Result()
	return r.Outcome == board.Draw && (r.Reason == board.Repetition3 || r.Reason == board.Repetition5 || r.Reason == board.NoProgress)
}

// Result returns the game's terminal result, adjudicating checkmate/stalemate against the
// current position if the board hasn't already settled on one. claimDraw additionally
// adjudicates a pending claimable draw; without it, an as-yet-unclaimed draw condition is
// reported Undecided.
func (g *Game) Result(claimDraw bool) board.Result {
	if r := g.b.Result(); r.Outcome != board.Undecided {
		if !claimDraw && (r.Reason == board.Repetition3 || r.Reason == board.NoProgress) {
			return board.Result{Outcome: board.Undecided}
		}
		return r
	}
	if !g.HasLegalMoves() {
		return g.b.AdjudicateNoLegalMoves()
	}
	return board.Result{Outcome: board.Undecided}
}

func (g *Game) Pieces(pt board.Piece, c board.Color) board.Bitboard {
	return g.b.Position().Piece(c, pt)
}

func (g *Game) Kings() board.Bitboard {
	return g.Pieces(board.King, board.White) | g.Pieces(board.King, board.Black)
}

func (g *Game) Occupied() board.Bitboard {
	return g.b.Position().Rotated().Mask()
}

// PreviewOccupiedAfter returns the occupancy m would produce, without mutating g. Used by the
// ForceMove state to know the target snapshot before committing.
func (g *Game) PreviewOccupiedAfter(m board.Move) board.Bitboard {
	b := g.b.Fork()
	if !b.PushMove(m) {
		return g.Occupied()
	}
	return b.Position().Rotated().Mask()
}

func (g *Game) OccupiedBy(c board.Color) board.Bitboard {
	return g.b.Position().Color(c)
}

func (g *Game) FEN() string {
	return fen.Encode(g.b.Position(), g.b.Turn(), g.b.NoProgress(), g.b.FullMoves())
}

// PGN renders the game record, headers plus movetext, using the standard seven-tag roster.
func (g *Game) PGN() string {
	result := g.Result(true)

	headers := pgn.Headers{
		"Event":  "Electronic Chessboard",
		"Site":   "?",
		"Date":   "????.??.??",
		"Round":  g.id,
		"White":  g.players[board.White].String(),
		"Black":  g.players[board.Black].String(),
		"Result": result.Outcome.String(),
	}

	text, err := pgn.Build(headers, g.start, g.history, result)
	if err != nil {
		// The history is only ever populated via Commit, which already validated legality,
		// so this can only fire on a programming error; surface it visibly rather than
		// silently truncating the record.
		return fmt.Sprintf("[Event \"invalid PGN: %v\"]\n", err)
	}
	return text
}

// Commit applies a legal move to the board and appends it to history. forced marks a move
// injected by the engine or a remote peer rather than chosen by the local player.
func (g *Game) Commit(m board.Move, forced bool) error {
	if !g.b.PushMove(m) {
		return fmt.Errorf("illegal move: %v", m)
	}
	g.history = append(g.history, m)
	g.forced = append(g.forced, forced)
	return nil
}

// PushSpeculative applies m to the board without recording it in history yet, so FEN/legality
// queries reflect it immediately. Pair with ConfirmSpeculative or CancelSpeculative.
func (g *Game) PushSpeculative(m board.Move) bool {
	return g.b.PushMove(m)
}

// ConfirmSpeculative records a move already applied via PushSpeculative into history.
func (g *Game) ConfirmSpeculative(m board.Move, forced bool) {
	g.history = append(g.history, m)
	g.forced = append(g.forced, forced)
}

// CancelSpeculative undoes a move applied via PushSpeculative that was never confirmed.
func (g *Game) CancelSpeculative() (board.Move, bool) {
	return g.b.PopMove()
}

// Adjudicate forces a terminal result, e.g. for an abort or a remote-peer-declared winner.
func (g *Game) Adjudicate(result board.Result) {
	g.b.Adjudicate(result)
}

// Rewind pops the board and history back to the given ply count k.
func (g *Game) Rewind(k int) error {
	if k < 0 || k > len(g.history) {
		return fmt.Errorf("invalid rewind target %v (history has %v plies)", k, len(g.history))
	}
	for len(g.history) > k {
		if _, ok := g.b.PopMove(); !ok {
			return fmt.Errorf("cannot pop past root of history")
		}
		g.history = g.history[:len(g.history)-1]
		g.forced = g.forced[:len(g.forced)-1]
	}
	return nil
}

// ForceMoves validates and applies a remote-peer-supplied move list per §4.3: moves is parsed
// against the game's start position to reject any null or illegal move, then rewound and
// replayed from the longest common prefix with the current history. If moves already equals
// the current history and forcedWinner is Undecided, this is a no-op. forcedWinner, if not
// Undecided, is adjudicated once the suffix has been committed by the caller (typically the
// fsm's ForceMultipleMoves state) -- ForceMoves itself only rewinds and validates.
func (g *Game) ForceMoves(moves []board.Move, forcedWinner board.Outcome) (suffix []board.Move, changed bool, err error) {
	if g.players[board.White] != RemotePeer && g.players[board.Black] != RemotePeer {
		return nil, false, fmt.Errorf("force_moves requires a remote-peer player")
	}
	resolved, err := validateMoveList(g.start, moves)
	if err != nil {
		return nil, false, err
	}

	k := commonPrefixLen(g.history, resolved)
	if k == len(resolved) && k == len(g.history) && forcedWinner == board.Undecided {
		return nil, false, nil
	}

	if err := g.Rewind(k); err != nil {
		return nil, false, err
	}
	return resolved[k:], true, nil
}

func validateMoveList(startFEN string, moves []board.Move) ([]board.Move, error) {
	b, err := fen.NewBoard(startFEN)
	if err != nil {
		return nil, fmt.Errorf("invalid start position: %w", err)
	}
	var resolved []board.Move
	for i, m := range moves {
		if m == (board.Move{}) {
			return nil, fmt.Errorf("null move at index %v", i)
		}
		candidate, ok := b.Position().FindMove(b.Turn(), m.From, m.To)
		if !ok || candidate.Promotion != m.Promotion {
			return nil, fmt.Errorf("illegal move at index %v: %v", i, m)
		}
		if !b.PushMove(candidate) {
			return nil, fmt.Errorf("illegal move at index %v: %v", i, m)
		}
		resolved = append(resolved, candidate)
	}
	return resolved, nil
}

func commonPrefixLen(a, b []board.Move) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
