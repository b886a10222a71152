package sensor

import (
	"fmt"
	"unicode"

	"github.com/herohde/boardd/pkg/board"
)

// ParsePlacement decodes the piece-placement field of a FEN string (the part before the first
// space) into an Occupancy bitboard. livechess.EBoardEventResponse.Board carries exactly this
// field, not a full 6-field FEN, so this is kept separate from pkg/board/fen.Decode rather than
// reusing it.
func ParsePlacement(placement string) (Occupancy, error) {
	var occ Occupancy

	sq := board.A8
	for _, r := range placement {
		switch {
		case r == '/':
			// rank separator, cosmetic.
		case unicode.IsDigit(r):
			sq -= board.Square(r - '0')
		case unicode.IsLetter(r):
			occ |= board.BitMask(sq)
			sq--
		default:
			return 0, fmt.Errorf("invalid character %q in piece placement %q", r, placement)
		}
	}
	if sq+1 != board.H1 {
		return 0, fmt.Errorf("invalid number of squares in piece placement %q", placement)
	}
	return occ, nil
}
