package board

import (
	"fmt"
	"sort"
	"strings"
)

// MoveType indicates the type of move. The no-progress counter is reset with any non-Normal move.
type MoveType uint8

const (
	Normal    MoveType = iota
	Push               // Pawn move
	Jump               // Pawn 2-square move
	EnPassant          // Implicitly a pawn capture
	QueenSideCastle
	KingSideCastle
	Capture
	Promotion
	CapturePromotion
)

// TODO(herohde) 2/21/2021: add remarks, like "dubious", to represent standard notation?

// Move represents a not-necessarily legal move along with contextual metadata. 64bits.
type Move struct {
	Type      MoveType
	Piece     Piece // piece being moved
	From, To  Square
	Promotion Piece // desired piece for promotion, if any.
	Capture   Piece // captured piece, if any.
}

// IsCapture returns true iff the move captures a piece, including en passant.
func (m Move) IsCapture() bool {
	return m.Type == Capture || m.Type == CapturePromotion || m.Type == EnPassant
}

// IsPromotion returns true iff the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Type == Promotion || m.Type == CapturePromotion
}

// EnPassantCapture returns the square of the pawn captured en passant, if any.
func (m Move) EnPassantCapture() (Square, bool) {
	if m.Type != EnPassant {
		return ZeroSquare, false
	}
	return NewSquare(m.To.File(), m.From.Rank()), true
}

// EnPassantTarget returns the square passed over by a 2-square pawn jump, if any. It is
// ZeroSquare for non-Jump moves, which is safe to use unconditionally for incremental hashing
// because ZeroSquare (H1) is never a valid en passant target square.
func (m Move) EnPassantTarget() (Square, bool) {
	if m.Type != Jump {
		return ZeroSquare, false
	}
	mid := (m.From + m.To) / 2
	return mid, true
}

// CastlingRookMove returns the rook's From/To squares for a castling move.
func (m Move) CastlingRookMove() (Square, Square, bool) {
	switch m.Type {
	case KingSideCastle:
		if m.From == E1 {
			return H1, F1, true
		}
		return H8, F8, true
	case QueenSideCastle:
		if m.From == E1 {
			return A1, D1, true
		}
		return A8, D8, true
	default:
		return ZeroSquare, ZeroSquare, false
	}
}

// CastlingRightsLost returns the castling rights mask that survives this move, i.e., the
// rights to AND with the position's existing rights to obtain the post-move rights.
func (m Move) CastlingRightsLost() Castling {
	var lost Castling
	switch m.From {
	case E1:
		lost |= WhiteKingSideCastle | WhiteQueenSideCastle
	case E8:
		lost |= BlackKingSideCastle | BlackQueenSideCastle
	}
	for _, sq := range []Square{m.From, m.To} {
		switch sq {
		case H1:
			lost |= WhiteKingSideCastle
		case A1:
			lost |= WhiteQueenSideCastle
		case H8:
			lost |= BlackKingSideCastle
		case A8:
			lost |= BlackQueenSideCastle
		}
	}
	return FullCastingRights &^ lost
}

// ParseMove parses a move in pure algebraic coordinate notation, such as "a2a4" or "a7a8q".
// The parsed move does not contain contextual information like castling or en passant.
func ParseMove(str string) (Move, error) {
	runes := []rune(str)

	if len(runes) < 4 || len(runes) > 5 {
		return Move{}, fmt.Errorf("invalid move: '%v'", str)
	}

	from, err := ParseSquare(runes[0], runes[1])
	if err != nil {
		return Move{}, fmt.Errorf("invalid from: '%v': %v", str, err)
	}
	to, err := ParseSquare(runes[2], runes[3])
	if err != nil {
		return Move{}, fmt.Errorf("invalid to: '%v': %v", str, err)
	}

	if len(runes) == 5 {
		promo, ok := ParsePiece(runes[4])
		if !ok || promo == Pawn || promo == King {
			return Move{}, fmt.Errorf("invalid promotion: '%v'", str)
		}
		return Move{From: from, To: to, Promotion: promo}, nil
	}

	return Move{From: from, To: to}, nil
}

func (m Move) Equals(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

func (m Move) String() string {
	if m.Promotion.IsValid() {
		return strings.ToLower(fmt.Sprintf("%v%v%v", m.From, m.To, m.Promotion))
	}
	return strings.ToLower(fmt.Sprintf("%v%v", m.From, m.To))
}

// FormatMoves formats a move list using the given per-move formatter, space-separated.
func FormatMoves(moves []Move, fn func(Move) string) string {
	var sb strings.Builder
	for i, m := range moves {
		if i > 0 {
			sb.WriteRune(' ')
		}
		sb.WriteString(fn(m))
	}
	return sb.String()
}

// PrintMoves formats a move list in pure algebraic coordinate notation, space-separated.
func PrintMoves(moves []Move) string {
	return FormatMoves(moves, Move.String)
}

// nominalValue is a minimal, package-local material scale used only for MVV-LVA ordering.
// The authoritative evaluation scale lives in package eval; board cannot import it without
// introducing a cycle.
var nominalValue = map[Piece]int{NoPiece: 0, Pawn: 1, Bishop: 3, Knight: 3, Rook: 5, Queen: 9, King: 100}

func mvvlvaRank(m Move) int {
	var gain int
	switch m.Type {
	case CapturePromotion:
		gain = nominalValue[m.Capture] + nominalValue[m.Promotion] - nominalValue[Pawn]
	case Promotion:
		gain = nominalValue[m.Promotion] - nominalValue[Pawn]
	case Capture:
		gain = nominalValue[m.Capture]
	case EnPassant:
		gain = nominalValue[Pawn]
	}
	if gain > 0 {
		return 100*gain - nominalValue[m.Piece]
	}
	return 0
}

// ByMVVLVA sorts moves by most-valuable-victim/least-valuable-aggressor, descending.
type ByMVVLVA []Move

func (a ByMVVLVA) Len() int      { return len(a) }
func (a ByMVVLVA) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByMVVLVA) Less(i, j int) bool {
	return mvvlvaRank(a[i]) > mvvlvaRank(a[j])
}

var _ sort.Interface = ByMVVLVA(nil)
