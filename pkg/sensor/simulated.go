package sensor

import (
	"context"
	"fmt"
	"sync"

	"github.com/herohde/boardd/pkg/board"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

// Simulated is an in-memory Source for tests and the boardctl CLI: occupancy is driven
// explicitly via Set rather than read off hardware. The first ScanBoard call returns the
// initial occupancy immediately; every call after that blocks until Set supplies a new value,
// mirroring a real sensor's blocking scan.
type Simulated struct {
	mu           sync.Mutex
	occ          Occupancy
	lastReturned Occupancy
	scanned      bool
	blinkResets  int
	leds         ledFrame
	pulse        *iox.Pulse
}

type ledFrame struct {
	constant, slow1, slow2, fast1, fast2 Occupancy
}

// NewSimulated creates a Simulated source starting at the given occupancy.
func NewSimulated(initial Occupancy) *Simulated {
	return &Simulated{
		occ:   initial,
		pulse: iox.NewPulse(),
	}
}

func (s *Simulated) ScanBoard(ctx context.Context) (Occupancy, error) {
	s.mu.Lock()
	if !s.scanned {
		s.scanned = true
		s.lastReturned = s.occ
		cur := s.occ
		s.mu.Unlock()
		return cur, nil
	}
	last := s.lastReturned
	s.mu.Unlock()

	for {
		s.mu.Lock()
		cur := s.occ
		s.mu.Unlock()

		if cur != last {
			s.mu.Lock()
			s.lastReturned = cur
			s.mu.Unlock()
			return cur, nil
		}

		select {
		case <-s.pulse.Chan():
			// ok: re-check
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Set overwrites the simulated occupancy grid, waking any blocked ScanBoard callers.
func (s *Simulated) Set(occ Occupancy) {
	s.mu.Lock()
	s.occ = occ
	s.mu.Unlock()
	s.pulse.Emit()
}

func (s *Simulated) SetLEDs(ctx context.Context, constant, slow1, slow2, fast1, fast2 Occupancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leds = ledFrame{constant, slow1, slow2, fast1, fast2}
	return nil
}

func (s *Simulated) ResetBlinkTimer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blinkResets++
	return nil
}

// LEDState returns the effective (highest-priority) LED state for sq, per the test assertions
// described by the LED-precedence testable property: fast-blink beats slow-blink beats constant.
func (s *Simulated) LEDState(sq board.Square) LEDState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.leds.fast1.IsSet(sq) || s.leds.fast2.IsSet(sq):
		return LEDBlinkFast
	case s.leds.slow1.IsSet(sq) || s.leds.slow2.IsSet(sq):
		return LEDBlinkSlow
	case s.leds.constant.IsSet(sq):
		return LEDSolid
	default:
		return LEDOff
	}
}

func (s *Simulated) BlinkResets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blinkResets
}

func (s *Simulated) Close() error {
	return nil
}

func (s *Simulated) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Simulated[%v]", s.occ)
}
