package sensor_test

import (
	"context"
	"testing"
	"time"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedScanBoardReturnsInitialThenBlocks(t *testing.T) {
	ctx := context.Background()
	s := sensor.NewSimulated(sensor.StartingSquares)

	occ, err := s.ScanBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, sensor.StartingSquares, occ)

	done := make(chan sensor.Occupancy, 1)
	go func() {
		occ, err := s.ScanBoard(ctx)
		require.NoError(t, err)
		done <- occ
	}()

	select {
	case <-done:
		t.Fatal("ScanBoard must block until Set supplies a new reading")
	case <-time.After(20 * time.Millisecond):
	}

	s.Set(0)
	select {
	case occ := <-done:
		assert.Equal(t, sensor.Occupancy(0), occ)
	case <-time.After(time.Second):
		t.Fatal("ScanBoard never unblocked after Set")
	}
}

func TestSimulatedLEDPrecedence(t *testing.T) {
	s := sensor.NewSimulated(0)
	sq := board.E4

	require.NoError(t, s.SetLEDs(context.Background(), board.BitMask(sq), board.BitMask(sq), 0, board.BitMask(sq), 0))
	assert.Equal(t, sensor.LEDBlinkFast, s.LEDState(sq), "fast-blink must beat slow-blink and constant")

	require.NoError(t, s.SetLEDs(context.Background(), board.BitMask(sq), board.BitMask(sq), 0, 0, 0))
	assert.Equal(t, sensor.LEDBlinkSlow, s.LEDState(sq), "slow-blink must beat constant")

	require.NoError(t, s.SetLEDs(context.Background(), board.BitMask(sq), 0, 0, 0, 0))
	assert.Equal(t, sensor.LEDSolid, s.LEDState(sq))

	require.NoError(t, s.SetLEDs(context.Background(), 0, 0, 0, 0, 0))
	assert.Equal(t, sensor.LEDOff, s.LEDState(sq))
}

func TestWatchEmitsOnlyDistinctReadings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := sensor.NewSimulated(sensor.StartingSquares)

	var seen []sensor.Occupancy
	errCh := make(chan error, 1)
	go func() {
		errCh <- sensor.Watch(ctx, s, func(occ sensor.Occupancy) {
			seen = append(seen, occ)
		})
	}()

	time.Sleep(20 * time.Millisecond)
	s.Set(sensor.StartingSquares) // no-op: same reading, must not re-fire
	s.Set(0)
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, seen, 2)
	assert.Equal(t, sensor.StartingSquares, seen[0])
	assert.Equal(t, sensor.Occupancy(0), seen[1])
}
