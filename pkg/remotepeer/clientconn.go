package remotepeer

import (
	"context"
	"sync"

	"github.com/seekerror/logw"
)

// outboundQueueSize bounds how many frames can be buffered for a single slow client before
// further sends are dropped rather than stalling the broadcaster.
const outboundQueueSize = 32

type queuedFrame struct {
	action  int8
	payload []byte
}

// clientConn pairs a registered Conn with its own outbound queue and a dedicated writer
// goroutine, so a broadcast from the orchestrator's event loop and an OnError reply from this
// connection's own reader goroutine never call conn.WriteFrame concurrently.
type clientConn struct {
	conn Conn

	out chan queuedFrame

	closeOnce sync.Once
	closed    chan struct{}
}

func newClientConn(c Conn) *clientConn {
	return &clientConn{
		conn:   c,
		out:    make(chan queuedFrame, outboundQueueSize),
		closed: make(chan struct{}),
	}
}

// enqueue queues a frame for the writer goroutine. Returns false if the connection has closed
// or its outbound queue is full -- a slow or dead client must never stall delivery to everyone
// else.
func (cc *clientConn) enqueue(action int8, payload []byte) bool {
	select {
	case cc.out <- queuedFrame{action: action, payload: payload}:
		return true
	case <-cc.closed:
		return false
	default:
		return false
	}
}

// writeLoop is the only goroutine allowed to call conn.WriteFrame. It drains out until the
// connection closes or a write fails.
func (cc *clientConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-cc.closed:
			return
		case f := <-cc.out:
			if err := cc.conn.WriteFrame(f.action, f.payload); err != nil {
				logw.Errorf(ctx, "remotepeer: write failed: %v", err)
				cc.close()
				return
			}
		}
	}
}

func (cc *clientConn) close() {
	cc.closeOnce.Do(func() {
		close(cc.closed)
		_ = cc.conn.Close()
	})
}
