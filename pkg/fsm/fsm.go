// Package fsm implements the generic two-tier hierarchical state machine driving board
// interaction: a single "current state" abstraction reused both by the Orchestrator (for its
// four outer states) and by the ActiveGame outer state (for its own nested inner states).
package fsm

import (
	"context"

	"github.com/herohde/boardd/pkg/sensor"
)

// State is a node in the state machine. OnEnter/OnLeave bracket the state's lifetime;
// OnBoardChanged delivers every sensor snapshot while the state is current (including one
// synthetic replay immediately after OnEnter, so a state never has to separately ask for the
// board it already missed).
type State interface {
	OnEnter(ctx context.Context)
	OnLeave(ctx context.Context)
	OnBoardChanged(ctx context.Context, occ sensor.Occupancy)
}

// Machine holds the single active State of one tier, plus an overlay stack used for the
// AbortLater pattern: a state can be pushed over the current one without leaving it, and later
// popped to resume exactly where it left off.
type Machine struct {
	current State
	stack   []State
	last    sensor.Occupancy
	haveLast bool
}

// GoToState releases the current state (OnLeave, if any) and any overlay, installs s as the new
// current state, calls OnEnter, then replays the last known board snapshot so s doesn't have to
// wait for the next physical change to see where things stand.
func (m *Machine) GoToState(ctx context.Context, s State) {
	m.leaveOverlay(ctx)
	if m.current != nil {
		m.current.OnLeave(ctx)
	}
	m.current = s
	s.OnEnter(ctx)
	if m.haveLast {
		s.OnBoardChanged(ctx, m.last)
	}
}

// InitState is GoToState under another name: the Orchestrator calls GoToState on its own outer
// Machine and InitState on an ActiveGame's nested inner Machine, but both are the same
// operation from the Machine's point of view -- naming them separately documents, at the call
// site, which tier is being driven.
func (m *Machine) InitState(ctx context.Context, s State) {
	m.GoToState(ctx, s)
}

// Current returns the active state (the top of the overlay stack, if any, else the base state).
func (m *Machine) Current() State {
	if n := len(m.stack); n > 0 {
		return m.stack[n-1]
	}
	return m.current
}

// Push overlays s on top of the current state without leaving it -- used for AbortLater, which
// must later resume the interrupted move state with its fields (e.g. captureSquare) intact.
func (m *Machine) Push(ctx context.Context, s State) {
	m.stack = append(m.stack, s)
	s.OnEnter(ctx)
	if m.haveLast {
		s.OnBoardChanged(ctx, m.last)
	}
}

// Pop leaves the topmost overlay and resumes whatever is beneath, replaying the last snapshot.
func (m *Machine) Pop(ctx context.Context) {
	n := len(m.stack)
	if n == 0 {
		return
	}
	top := m.stack[n-1]
	m.stack = m.stack[:n-1]
	top.OnLeave(ctx)
	if m.haveLast {
		m.Current().OnBoardChanged(ctx, m.last)
	}
}

// Leave releases the current state (and any overlay) without installing a replacement, for a
// Machine that is itself being torn down (e.g. ActiveGame's nested inner Machine, on leaving
// ActiveGame).
func (m *Machine) Leave(ctx context.Context) {
	m.leaveOverlay(ctx)
	if m.current != nil {
		m.current.OnLeave(ctx)
		m.current = nil
	}
}

func (m *Machine) leaveOverlay(ctx context.Context) {
	for len(m.stack) > 0 {
		m.Pop(ctx)
	}
}

// OnBoardChanged stores occ and forwards it to the active state.
func (m *Machine) OnBoardChanged(ctx context.Context, occ sensor.Occupancy) {
	m.last = occ
	m.haveLast = true
	if cur := m.Current(); cur != nil {
		cur.OnBoardChanged(ctx, occ)
	}
}

// Last returns the last delivered board snapshot, if any.
func (m *Machine) Last() (sensor.Occupancy, bool) {
	return m.last, m.haveLast
}
