package eval

import (
	"fmt"
	"github.com/herohde/boardd/pkg/board"
)

// Score is a signed position or move score in pawns. Positive favors the side to move. Scores near the
// extremes of the range encode a forced mate: MaxScore-N means the side to move mates in N
// plies; MinScore+N means the side to move is mated in N plies. Heuristic (non-mate) scores
// stay well clear of that range.
type Score float32

const (
	NegInfScore  Score = MinScore - 1
	MinScore     Score = -1000000
	MaxScore     Score = 1000000
	InfScore     Score = MaxScore + 1
	InvalidScore Score = MinScore - 2

	ZeroScore Score = 0

	// mateThreshold is the boundary beyond which a Score is interpreted as mate distance
	// rather than a heuristic material/positional evaluation.
	mateThreshold Score = MaxScore - 1000
)

// Pawns is a raw, unbounded evaluation in pawns, as returned by an Evaluator. Convert to a
// Score with HeuristicScore before using it in search.
type Pawns float32

// HeuristicScore wraps a static evaluation as a Score, clamped away from the mate range.
func HeuristicScore(p Pawns) Score {
	s := Score(p)
	switch {
	case s >= mateThreshold:
		return mateThreshold - 1
	case s <= -mateThreshold:
		return -mateThreshold + 1
	default:
		return s
	}
}

// MateInXScore returns the Score for "side to move delivers mate in x plies".
func MateInXScore(plies int) Score {
	return MaxScore - Score(plies)
}

// MatedInXScore returns the Score for "side to move is mated in x plies".
func MatedInXScore(plies int) Score {
	return MinScore + Score(plies)
}

// IsInvalid returns true iff the score is a sentinel for a cancelled/incomplete search.
func (s Score) IsInvalid() bool {
	return s == InvalidScore
}

// IsMate returns true iff the score encodes a forced mate for either side.
func (s Score) IsMate() bool {
	return s >= mateThreshold || s <= -mateThreshold
}

// MateDistance returns the number of plies to mate and true iff the score encodes a forced
// mate. The distance is negative if the side to move is the one being mated.
func (s Score) MateDistance() (int, bool) {
	switch {
	case s >= mateThreshold:
		return int(MaxScore - s), true
	case s <= -mateThreshold:
		return -int(MaxScore + s), true
	default:
		return 0, false
	}
}

// IncrementMateDistance extends a mate score by one more ply, as it is passed up one level
// of the search tree. Heuristic scores are unaffected.
func IncrementMateDistance(s Score) Score {
	switch {
	case s >= mateThreshold:
		return s - 1
	case s <= -mateThreshold:
		return s + 1
	default:
		return s
	}
}

// Negate flips the score to the opposing side's perspective.
func (s Score) Negate() Score {
	if s.IsInvalid() {
		return s
	}
	return -s
}

// Less reports whether s is a worse outcome than o for the side to move.
func (s Score) Less(o Score) bool {
	return s < o
}

func (s Score) String() string {
	if d, ok := s.MateDistance(); ok {
		return fmt.Sprintf("mate(%v)", d)
	}
	return fmt.Sprintf("%.2f", float32(s))
}

// Unit returns the signed unit for the color: 1 for White and -1 for Black.
func Unit(c board.Color) Score {
	if c == board.White {
		return 1
	}
	return -1
}

// Crop crops a Score into [MinScore;MaxScore].
func Crop(s Score) Score {
	switch {
	case s > MaxScore:
		return MaxScore
	case s < MinScore:
		return MinScore
	default:
		return s
	}
}

// Max returns the largest of the given scores.
func Max(a, b Score) Score {
	if a < b {
		return b
	}
	return a
}

// Min returns the smallest of the given scores.
func Min(a, b Score) Score {
	if a < b {
		return a
	}
	return b
}
