// Package pgn builds Portable Game Notation text from a board.Board's move history. No PGN
// library is grounded in the example corpus, so this builder works directly off pkg/board's
// bitboard and move-generation primitives.
package pgn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/board/fen"
)

// Headers are the PGN tag-pair section. The seven-tag roster (Event, Site, Date, Round, White,
// Black, Result) is written first, with "*" for any missing roster tag, followed by the other
// tags in alphabetical order.
type Headers map[string]string

var sevenTagRoster = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

// Build renders a full PGN game: tag pairs followed by the movetext, replayed from startFEN
// through moves. The replay recomputes SAN and therefore does not trust any annotation cached
// on the moves themselves.
func Build(headers Headers, startFEN string, moves []board.Move, result board.Result) (string, error) {
	b, err := fen.NewBoard(startFEN)
	if err != nil {
		return "", fmt.Errorf("invalid start position: %w", err)
	}

	var sb strings.Builder
	for _, tag := range sevenTagRoster {
		v, ok := headers[tag]
		if !ok {
			v = "*"
		}
		fmt.Fprintf(&sb, "[%v \"%v\"]\n", tag, v)
	}
	var rest []string
	for k := range headers {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		if contains(sevenTagRoster, k) {
			continue
		}
		fmt.Fprintf(&sb, "[%v \"%v\"]\n", k, headers[k])
	}
	sb.WriteString("\n")

	var movetext []string
	for i, m := range moves {
		for _, candidate := range b.Position().LegalMoves(b.Turn()) {
			if candidate.Equals(m) {
				m = candidate
				break
			}
		}
		if b.Turn() == board.White {
			movetext = append(movetext, fmt.Sprintf("%v.", b.FullMoves()))
		}

		san, err := SAN(b, m)
		if err != nil {
			return "", fmt.Errorf("move %v (%v): %w", i+1, m, err)
		}
		movetext = append(movetext, san)

		if !b.PushMove(m) {
			return "", fmt.Errorf("illegal move %v in history at ply %v", m, i)
		}
	}
	movetext = append(movetext, result.Outcome.String())

	writeWrapped(&sb, movetext)
	return sb.String(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// writeWrapped writes space-separated tokens, wrapping at roughly 80 columns as PGN convention.
func writeWrapped(sb *strings.Builder, tokens []string) {
	col := 0
	for i, tok := range tokens {
		if i > 0 {
			if col+1+len(tok) > 79 {
				sb.WriteRune('\n')
				col = 0
			} else {
				sb.WriteRune(' ')
				col++
			}
		}
		sb.WriteString(tok)
		col += len(tok)
	}
	sb.WriteRune('\n')
}

// SAN renders m in Standard Algebraic Notation relative to b's current position. b is not
// mutated: the check/checkmate suffix is computed against a fork.
func SAN(b *board.Board, m board.Move) (string, error) {
	turn := b.Turn()
	pos := b.Position()
	for _, candidate := range pos.LegalMoves(turn) {
		if candidate.Equals(m) {
			m = candidate
			break
		}
	}

	var body string
	switch m.Type {
	case board.KingSideCastle:
		body = "O-O"
	case board.QueenSideCastle:
		body = "O-O-O"
	default:
		body = nonCastlingSAN(pos, turn, m)
	}

	fork := b.Fork()
	if !fork.PushMove(m) {
		return "", fmt.Errorf("illegal move: %v", m)
	}
	opp := turn.Opponent()
	if fork.Position().IsChecked(opp) {
		if len(fork.Position().LegalMoves(opp)) == 0 {
			body += "#"
		} else {
			body += "+"
		}
	}
	return body, nil
}

func nonCastlingSAN(pos *board.Position, turn board.Color, m board.Move) string {
	var sb strings.Builder

	if m.Piece == board.Pawn {
		if m.IsCapture() {
			sb.WriteString(strings.ToLower(m.From.File().String()))
			sb.WriteRune('x')
		}
		sb.WriteString(strings.ToLower(m.To.String()))
		if m.IsPromotion() {
			sb.WriteRune('=')
			sb.WriteString(strings.ToUpper(m.Promotion.String()))
		}
		return sb.String()
	}

	sb.WriteString(strings.ToUpper(m.Piece.String()))

	file, rank := disambiguate(pos, turn, m)
	if file {
		sb.WriteString(strings.ToLower(m.From.File().String()))
	}
	if rank {
		sb.WriteString(m.From.Rank().String())
	}
	if m.IsCapture() {
		sb.WriteRune('x')
	}
	sb.WriteString(strings.ToLower(m.To.String()))
	return sb.String()
}

// disambiguate returns whether the source file and/or rank must be included to distinguish m
// from other legal moves of the same piece type to the same destination.
func disambiguate(pos *board.Position, turn board.Color, m board.Move) (file, rank bool) {
	var sameFile, sameRank, ambiguous bool
	for _, from := range pos.Piece(turn, m.Piece).ToSquares() {
		if from == m.From {
			continue
		}
		if _, ok := pos.FindMove(turn, from, m.To); !ok {
			continue
		}
		ambiguous = true
		if from.File() == m.From.File() {
			sameFile = true
		}
		if from.Rank() == m.From.Rank() {
			sameRank = true
		}
	}
	if !ambiguous {
		return false, false
	}
	if !sameFile {
		return true, false
	}
	if !sameRank {
		return false, true
	}
	return true, true
}
