package remotepeer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/seekerror/logw"
)

// Handler is the inbound half of the protocol, implemented by pkg/orchestrator: every
// recognized client action is dispatched to one of these methods on the caller's own
// goroutine (the Server never assumes a single caller goroutine the way Orchestrator's own
// event loop does -- Orchestrator's methods already post internally).
type Handler interface {
	InitialState() StateChangedPayload
	OnWritePreferences(ctx context.Context, prefs map[string]any) error
	OnStartNormalGame(ctx context.Context, p StartNormalGamePayload) error
	OnForceBluetoothMoves(ctx context.Context, p ForceBluetoothMovesPayload) error
	OnRequestPGNFiles(ctx context.Context) ([]RetPGNFilePayload, error)
	OnRequestArchivePGNFile(ctx context.Context, p RequestArchivePGNFilePayload) ([]RetPGNFilePayload, error)
	OnTestLEDs(ctx context.Context) error
}

// Server accepts client connections over any transport presenting a Conn and mediates the
// framed protocol. It implements Link, broadcasting to every connected client. Every outbound
// write, whether triggered by a broadcast or by a connection's own reader goroutine, funnels
// through that connection's clientConn writer goroutine -- see clientconn.go.
type Server struct {
	handler Handler

	mu    sync.Mutex
	conns map[Conn]*clientConn
}

func NewServer(handler Handler) *Server {
	return &Server{handler: handler, conns: map[Conn]*clientConn{}}
}

// SetHandler installs handler, replacing any handler given to NewServer. Orchestrator and
// Server have a construction-order cycle (Server needs a Handler, Orchestrator needs a Link),
// so cmd/boardd constructs the Server with a nil handler first and wires it here once the
// Orchestrator exists.
func (s *Server) SetHandler(handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Serve accepts connections from ln until ctx is cancelled, handling each on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go s.handle(ctx, NewNetConn(c))
	}
}

// HandleConn registers and serves an already-established connection (e.g. an upgraded
// websocket) on the calling goroutine until it disconnects.
func (s *Server) HandleConn(ctx context.Context, c Conn) {
	s.handle(ctx, c)
}

func (s *Server) handle(ctx context.Context, c Conn) {
	cc := newClientConn(c)
	s.register(cc)
	defer s.deregister(cc)
	defer cc.close()

	go cc.writeLoop(ctx)

	cc.enqueue(int8(StateChanged), mustJSON(s.handler.InitialState()))

	for {
		frame, err := c.ReadFrame()
		if err != nil {
			logw.Errorf(ctx, "remotepeer: connection closed: %v", err)
			return
		}
		if err := s.dispatch(ctx, cc, frame); err != nil {
			logw.Errorf(ctx, "remotepeer: %v", err)
			cc.enqueue(int8(OnError), mustJSON(OnErrorPayload{Message: err.Error()}))
		}
	}
}

func (s *Server) dispatch(ctx context.Context, cc *clientConn, frame Frame) error {
	action := ClientAction(frame.Action)

	switch action {
	case WritePreferences:
		var prefs map[string]any
		if err := json.Unmarshal(frame.Payload, &prefs); err != nil {
			return &ProtocolError{Action: action, Message: "invalid JSON: " + err.Error()}
		}
		return s.handler.OnWritePreferences(ctx, prefs)

	case StartNormalGame:
		var p StartNormalGamePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return &ProtocolError{Action: action, Message: "invalid JSON: " + err.Error()}
		}
		return s.handler.OnStartNormalGame(ctx, p)

	case ForceBluetoothMoves:
		var p ForceBluetoothMovesPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return &ProtocolError{Action: action, Message: "invalid JSON: " + err.Error()}
		}
		return s.handler.OnForceBluetoothMoves(ctx, p)

	case RequestPGNFiles:
		files, err := s.handler.OnRequestPGNFiles(ctx)
		if err != nil {
			return err
		}
		s.sendPGNFiles(cc, files)
		return nil

	case RequestArchivePGNFile:
		var p RequestArchivePGNFilePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return &ProtocolError{Action: action, Message: "invalid JSON: " + err.Error()}
		}
		files, err := s.handler.OnRequestArchivePGNFile(ctx, p)
		if err != nil {
			return err
		}
		s.sendPGNFiles(cc, files)
		return nil

	case TestLEDs:
		return s.handler.OnTestLEDs(ctx)

	default:
		return &ProtocolError{Action: action, Message: "unrecognized action tag"}
	}
}

func (s *Server) sendPGNFiles(cc *clientConn, files []RetPGNFilePayload) {
	for _, f := range files {
		cc.enqueue(int8(RetPGNFile), mustJSON(f))
	}
	cc.enqueue(int8(PGNFilesDone), nil)
}

func (s *Server) register(cc *clientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[cc.conn] = cc
}

func (s *Server) deregister(cc *clientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, cc.conn)
}

func (s *Server) BroadcastStateChanged(p StateChangedPayload) error {
	return s.broadcast(int8(StateChanged), mustJSON(p))
}

func (s *Server) BroadcastPGNFilesDone() error {
	return s.broadcast(int8(PGNFilesDone), nil)
}

func (s *Server) BroadcastRetPGNFile(p RetPGNFilePayload) error {
	return s.broadcast(int8(RetPGNFile), mustJSON(p))
}

func (s *Server) BroadcastError(message string) error {
	return s.broadcast(int8(OnError), mustJSON(OnErrorPayload{Message: message}))
}

func (s *Server) broadcast(action int8, payload []byte) error {
	s.mu.Lock()
	conns := make([]*clientConn, 0, len(s.conns))
	for _, cc := range s.conns {
		conns = append(conns, cc)
	}
	s.mu.Unlock()

	var dropped int
	for _, cc := range conns {
		if !cc.enqueue(action, payload) {
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("remotepeer: dropped broadcast to %d of %d clients (outbound queue full or closed)", dropped, len(conns))
	}
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every payload type above is a plain struct/map of JSON-marshalable fields; a
		// marshal failure here means a programming error, not a runtime condition.
		panic(fmt.Sprintf("remotepeer: marshal payload: %v", err))
	}
	return b
}
