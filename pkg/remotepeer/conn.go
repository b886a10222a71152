package remotepeer

import (
	"bufio"
	"net"

	"github.com/gorilla/websocket"
)

// Conn is the transport each client connection presents to the reader/writer goroutines,
// regardless of whether it is a raw byte stream or a websocket: read/write one logical Frame
// at a time.
type Conn interface {
	ReadFrame() (Frame, error)
	WriteFrame(action int8, payload []byte) error
	Close() error
}

// netConn frames messages over a plain net.Conn (TCP, or any other reliable byte stream --
// the abstraction the source's BluetoothSocket ultimately presented).
type netConn struct {
	c net.Conn
	r *bufio.Reader
}

// NewNetConn wraps a net.Conn (e.g. from a net.Listener.Accept) as a Conn.
func NewNetConn(c net.Conn) Conn {
	return &netConn{c: c, r: bufio.NewReader(c)}
}

func (n *netConn) ReadFrame() (Frame, error) {
	return DecodeFrame(n.r)
}

func (n *netConn) WriteFrame(action int8, payload []byte) error {
	return EncodeFrame(n.c, action, payload)
}

func (n *netConn) Close() error {
	return n.c.Close()
}

// wsConn frames messages over a gorilla/websocket connection, one frame per binary message.
type wsConn struct {
	ws *websocket.Conn
}

// NewWebSocketConn wraps an upgraded *websocket.Conn as a Conn.
func NewWebSocketConn(ws *websocket.Conn) Conn {
	return &wsConn{ws: ws}
}

func (w *wsConn) ReadFrame() (Frame, error) {
	_, data, err := w.ws.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	if len(data) < 5 {
		return Frame{}, &ProtocolError{Message: "websocket frame shorter than header"}
	}
	action := int8(data[0])
	payload := data[5:]
	return Frame{Action: action, Payload: payload}, nil
}

func (w *wsConn) WriteFrame(action int8, payload []byte) error {
	buf := make([]byte, 5+len(payload))
	buf[0] = byte(action)
	buf[1] = byte(len(payload) >> 24)
	buf[2] = byte(len(payload) >> 16)
	buf[3] = byte(len(payload) >> 8)
	buf[4] = byte(len(payload))
	copy(buf[5:], payload)
	return w.ws.WriteMessage(websocket.BinaryMessage, buf)
}

func (w *wsConn) Close() error {
	return w.ws.Close()
}
