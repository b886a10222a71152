package fsm_test

import (
	"context"
	"testing"

	"github.com/herohde/boardd/pkg/fsm"
	"github.com/herohde/boardd/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingState struct {
	name    string
	entered int
	left    int
	changes []sensor.Occupancy
}

func (s *recordingState) OnEnter(ctx context.Context) { s.entered++ }
func (s *recordingState) OnLeave(ctx context.Context) { s.left++ }
func (s *recordingState) OnBoardChanged(ctx context.Context, occ sensor.Occupancy) {
	s.changes = append(s.changes, occ)
}

func TestGoToStateReplaysLastSnapshot(t *testing.T) {
	ctx := context.Background()
	var m fsm.Machine

	a := &recordingState{name: "a"}
	m.GoToState(ctx, a)
	require.Equal(t, 1, a.entered)
	assert.Empty(t, a.changes, "no snapshot yet, nothing to replay")

	m.OnBoardChanged(ctx, 0x1)
	require.Len(t, a.changes, 1)
	assert.Equal(t, sensor.Occupancy(0x1), a.changes[0])

	b := &recordingState{name: "b"}
	m.GoToState(ctx, b)
	assert.Equal(t, 1, a.left)
	require.Equal(t, 1, b.entered)
	require.Len(t, b.changes, 1, "GoToState must replay the last snapshot into the new state")
	assert.Equal(t, sensor.Occupancy(0x1), b.changes[0])
}

func TestPushPopResumesUnderlyingStateUntouched(t *testing.T) {
	ctx := context.Background()
	var m fsm.Machine

	base := &recordingState{name: "base"}
	m.GoToState(ctx, base)
	m.OnBoardChanged(ctx, 0x1)

	overlay := &recordingState{name: "overlay"}
	m.Push(ctx, overlay)
	assert.Same(t, overlay, m.Current())
	require.Len(t, overlay.changes, 1, "Push must replay the last snapshot")

	m.OnBoardChanged(ctx, 0x2)
	assert.Len(t, base.changes, 1, "base must not see board changes while overlaid")
	assert.Len(t, overlay.changes, 2)

	m.Pop(ctx)
	assert.Same(t, base, m.Current())
	assert.Equal(t, 1, overlay.left)
	require.Len(t, base.changes, 2, "Pop must replay the last snapshot into the resumed state")
	assert.Equal(t, sensor.Occupancy(0x2), base.changes[1])
}

func TestLeaveTearsDownWithoutReplacement(t *testing.T) {
	ctx := context.Background()
	var m fsm.Machine

	base := &recordingState{name: "base"}
	overlay := &recordingState{name: "overlay"}
	m.GoToState(ctx, base)
	m.Push(ctx, overlay)

	m.Leave(ctx)
	assert.Equal(t, 1, overlay.left)
	assert.Equal(t, 1, base.left)
	assert.Nil(t, m.Current())
}
