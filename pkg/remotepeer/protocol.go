// Package remotepeer implements the framed binary wire protocol used to mediate a companion
// app or phone (the "remote peer") that plays one side of a game through the physical board.
package remotepeer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ClientAction identifies a client->server message.
type ClientAction int8

const (
	WritePreferences     ClientAction = 0
	StartNormalGame      ClientAction = 1
	ForceBluetoothMoves  ClientAction = 2
	RequestPGNFiles      ClientAction = 3
	RequestArchivePGNFile ClientAction = 4
	TestLEDs             ClientAction = 5
)

func (a ClientAction) String() string {
	switch a {
	case WritePreferences:
		return "WritePreferences"
	case StartNormalGame:
		return "StartNormalGame"
	case ForceBluetoothMoves:
		return "ForceBluetoothMoves"
	case RequestPGNFiles:
		return "RequestPGNFiles"
	case RequestArchivePGNFile:
		return "RequestArchivePGNFile"
	case TestLEDs:
		return "TestLEDs"
	default:
		return fmt.Sprintf("ClientAction(%d)", int8(a))
	}
}

// ServerAction identifies a server->client message.
type ServerAction int8

const (
	StateChanged ServerAction = 0
	RetPGNFile   ServerAction = 1
	PGNFilesDone ServerAction = 2
	OnError      ServerAction = 3
)

func (a ServerAction) String() string {
	switch a {
	case StateChanged:
		return "StateChanged"
	case RetPGNFile:
		return "RetPGNFile"
	case PGNFilesDone:
		return "PGNFilesDone"
	case OnError:
		return "OnError"
	default:
		return fmt.Sprintf("ServerAction(%d)", int8(a))
	}
}

// Frame is one decoded message: a one-byte action tag followed by a length-prefixed UTF-8
// payload. Layout, confirmed byte-for-byte against original_source/BluetoothManager.py:
//
//	byte 0         : action tag  (int8, signed)
//	bytes 1..4     : payload length L (int32, big-endian, signed)
//	bytes 5..5+L-1 : UTF-8 payload
type Frame struct {
	Action  int8
	Payload []byte
}

// MaxPayload bounds a single frame's payload to guard against a corrupt or hostile length
// prefix claiming an enormous allocation.
const MaxPayload = 16 << 20

// EncodeFrame writes a frame to w.
func EncodeFrame(w io.Writer, action int8, payload []byte) error {
	var header [5]byte
	header[0] = byte(action)
	binary.BigEndian.PutUint32(header[1:], uint32(int32(len(payload))))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// DecodeFrame reads one frame from r.
func DecodeFrame(r io.Reader) (Frame, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	action := int8(header[0])
	length := int32(binary.BigEndian.Uint32(header[1:]))
	if length < 0 || length > MaxPayload {
		return Frame{}, fmt.Errorf("invalid frame length %d", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}
	return Frame{Action: action, Payload: payload}, nil
}
