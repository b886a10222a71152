package remotepeer_test

import (
	"bytes"
	"testing"

	"github.com/herohde/boardd/pkg/remotepeer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, remotepeer.EncodeFrame(&buf, int8(remotepeer.StartNormalGame), []byte(`{"engineLevel":5}`)))

	frame, err := remotepeer.DecodeFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, int8(remotepeer.StartNormalGame), frame.Action)
	assert.Equal(t, []byte(`{"engineLevel":5}`), frame.Payload)
}

func TestEncodeDecodeFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, remotepeer.EncodeFrame(&buf, int8(remotepeer.PGNFilesDone), nil))

	frame, err := remotepeer.DecodeFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, int8(remotepeer.PGNFilesDone), frame.Action)
	assert.Empty(t, frame.Payload)
}

func TestDecodeFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, remotepeer.EncodeFrame(&buf, 0, nil))

	raw := buf.Bytes()
	// Overwrite the 4-byte big-endian length with something past MaxPayload.
	raw[1], raw[2], raw[3], raw[4] = 0x7f, 0xff, 0xff, 0xff

	_, err := remotepeer.DecodeFrame(bytes.NewReader(raw))
	assert.Error(t, err)
}

func TestDecodeFrameRejectsTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, remotepeer.EncodeFrame(&buf, int8(remotepeer.StateChanged), []byte("0123456789")))

	truncated := buf.Bytes()[:7] // header + 2 of the 10 payload bytes
	_, err := remotepeer.DecodeFrame(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestClientActionAndServerActionString(t *testing.T) {
	assert.Equal(t, "StartNormalGame", remotepeer.StartNormalGame.String())
	assert.Equal(t, "StateChanged", remotepeer.StateChanged.String())
	assert.Contains(t, remotepeer.ClientAction(99).String(), "99")
}
