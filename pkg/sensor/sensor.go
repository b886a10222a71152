// Package sensor abstracts the physical board's reed-switch occupancy grid behind a single
// interface, so the state machine never knows whether it is driven by a real board, a
// livechess-go eBoard, or a test double.
package sensor

import (
	"context"

	"github.com/herohde/boardd/pkg/board"
)

// Occupancy mirrors board.Bitboard exactly: bit i set means square i is physically occupied,
// regardless of which piece (if any) the rules oracle believes sits there. Aliasing rather than
// wrapping lets every existing Bitboard method (IsSet, PopCount, ToSquares, set algebra) apply
// directly to sensor readings.
type Occupancy = board.Bitboard

// StartingSquares is the occupancy grid at the start of a standard game.
const StartingSquares Occupancy = board.BitRank(board.Rank1) | board.BitRank(board.Rank2) |
	board.BitRank(board.Rank7) | board.BitRank(board.Rank8)

// LEDState is the per-square illumination state of the board's LED grid, if it has one.
type LEDState uint8

const (
	LEDOff LEDState = iota
	LEDSolid
	LEDBlinkSlow
	LEDBlinkFast
)

// Source is the physical sensor/actuator surface the state machine drives. Implementations must
// be safe for concurrent use by the scan goroutine and by callers issuing SetLEDs.
type Source interface {
	// ScanBoard returns the current occupancy grid. It may block briefly on the underlying
	// hardware but must not block indefinitely; Watch calls it in a tight loop.
	ScanBoard(ctx context.Context) (Occupancy, error)

	// SetLEDs drives the LED grid. Layering is fast-blink > slow-blink > constant, per square:
	// a square set in more than one group renders at its highest-priority state.
	SetLEDs(ctx context.Context, constant, slow1, slow2, fast1, fast2 Occupancy) error

	// ResetBlinkTimer restarts the hardware's blink-phase clock, so a freshly entered state's
	// blink pattern starts from a consistent phase instead of wherever the previous state left
	// it (grounded on boardController.resetBlinkTimer, called at the start of every
	// multi-snapshot wait in the original source).
	ResetBlinkTimer(ctx context.Context) error
}

// Watch runs src.ScanBoard in a tight loop, invoking onChange once per distinct reading, until
// ctx is cancelled or ScanBoard returns an error. It is the Go analogue of the original
// ScanThread: a single dedicated goroutine with no polling interval, relying on the sensor call
// itself to pace the loop.
func Watch(ctx context.Context, src Source, onChange func(Occupancy)) error {
	var last Occupancy
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		occ, err := src.ScanBoard(ctx)
		if err != nil {
			return err
		}

		if first || occ != last {
			first = false
			last = occ
			onChange(occ)
		}
	}
}
