package sensor

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/herohde/livechess-go/pkg/livechess"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

// LiveChess adapts a livechess-go eBoard feed to the Source interface. It mirrors the
// atomic.Pointer + iox.Pulse pattern used by cmd/livechess-uci's own adaptor: the feed's event
// channel is drained by a single goroutine that stores the latest reading and emits a pulse, so
// ScanBoard never blocks on the feed channel directly.
type LiveChess struct {
	client livechess.FeedClient

	last  atomic.Pointer[livechess.EBoardEventResponse]
	pulse *iox.Pulse
}

// NewLiveChess wraps an already-connected feed. Establishing the connection (AutoDetect,
// NewFeed, optional Flip/Setup) is the caller's responsibility, matching cmd/livechess-uci.
func NewLiveChess(ctx context.Context, client livechess.FeedClient, events <-chan livechess.EBoardEventResponse) *LiveChess {
	l := &LiveChess{
		client: client,
		pulse:  iox.NewPulse(),
	}
	go l.process(ctx, events)
	return l
}

func (l *LiveChess) process(ctx context.Context, events <-chan livechess.EBoardEventResponse) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			l.last.Store(&event)
			l.pulse.Emit()

		case <-ctx.Done():
			return
		}
	}
}

func (l *LiveChess) ScanBoard(ctx context.Context) (Occupancy, error) {
	if last := l.last.Load(); last != nil {
		return l.parse(last)
	}

	select {
	case <-l.pulse.Chan():
		if last := l.last.Load(); last != nil {
			return l.parse(last)
		}
		return 0, ctx.Err()
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (l *LiveChess) parse(event *livechess.EBoardEventResponse) (Occupancy, error) {
	placement := strings.Split(event.Board, " ")[0]
	return ParsePlacement(placement)
}

// SetLEDs is a no-op: livechess-go's eBoard feed exposes no per-square LED control.
func (l *LiveChess) SetLEDs(ctx context.Context, constant, slow1, slow2, fast1, fast2 Occupancy) error {
	logw.Debugf(ctx, "SetLEDs ignored: LiveChess source has no LED matrix")
	return nil
}

// ResetBlinkTimer is a no-op for the same reason.
func (l *LiveChess) ResetBlinkTimer(ctx context.Context) error {
	return nil
}

func (l *LiveChess) Close() error {
	return nil
}
