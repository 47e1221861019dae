package anim_graph

import (
	"fmt"
)

// StateMachineNode owns a sub-graph of states joined by transition edges.
// Exactly one state is active at a time; during a cross-fade the active state
// blends into the target of the in-flight transition. States may themselves
// be state machines.
type StateMachineNode struct {
	m          machine
	start, end NodeIndex
}

// NewStateMachineNode creates a state machine with an empty sub-graph.
//
// Returns:
//   - *StateMachineNode: the new node
func NewStateMachineNode() *StateMachineNode {
	return &StateMachineNode{m: newMachine(NewGraph())}
}

func (*StateMachineNode) Kind() NodeKind { return KindStateMachine }
func (*StateMachineNode) animNode()      {}

// Graph returns the sub-graph holding the machine's states and transitions.
func (s *StateMachineNode) Graph() *Graph {
	return s.m.graph
}

// SetStart designates the entry state and moves the machine onto it.
//
// Parameters:
//   - n: a live node of the sub-graph
//
// Returns:
//   - error: ErrStaleHandle if n is not alive
func (s *StateMachineNode) SetStart(n NodeIndex) error {
	if _, ok := s.m.graph.Node(n); !ok {
		return fmt.Errorf("%w: start %v", ErrStaleHandle, n)
	}
	s.start = n
	s.m.enter(n)
	return nil
}

// SetEnd designates the exit state reported by Finished.
//
// Parameters:
//   - n: a live node of the sub-graph
//
// Returns:
//   - error: ErrStaleHandle if n is not alive
func (s *StateMachineNode) SetEnd(n NodeIndex) error {
	if _, ok := s.m.graph.Node(n); !ok {
		return fmt.Errorf("%w: end %v", ErrStaleHandle, n)
	}
	s.end = n
	return nil
}

// Start returns the entry state.
func (s *StateMachineNode) Start() NodeIndex {
	return s.start
}

// End returns the exit state, if one was set.
func (s *StateMachineNode) End() (NodeIndex, bool) {
	return s.end, s.end.Valid()
}

// ActiveNode returns the active state. During a cross-fade this is the source state.
func (s *StateMachineNode) ActiveNode() NodeIndex {
	return s.m.active
}

// ActiveEdge returns the in-flight transition, if any.
func (s *StateMachineNode) ActiveEdge() (EdgeIndex, bool) {
	if _, _, _, ok := s.m.transition(); !ok {
		return EdgeIndex{}, false
	}
	return s.m.edge, true
}

// OnNode reports whether the machine rests on a state with no transition in flight.
func (s *StateMachineNode) OnNode() bool {
	return s.m.onNode
}

// StartTransition begins the cross-fade along a transition edge of the sub-graph.
// The state is left unchanged on error.
//
// Parameters:
//   - e: the transition edge
//
// Returns:
//   - error: ErrStaleHandle, ErrNotTransition, ErrMissingTarget or ErrNotFromActive
func (s *StateMachineNode) StartTransition(e EdgeIndex) error {
	return s.m.start(e)
}

// RequestTransition begins a cross-fade by transition name or by target state name.
// The state is left unchanged on error.
//
// Parameters:
//   - name: the transition or target state name
//
// Returns:
//   - error: ErrMissingTarget, ErrUnknownTransition or ErrNotFromActive
func (s *StateMachineNode) RequestTransition(name string) error {
	return s.m.request(name)
}

// CancelTransition drops the in-flight transition and stays on the active state.
func (s *StateMachineNode) CancelTransition() {
	s.m.cancel()
}

// TransitionProgress reports how far the in-flight transition has run.
//
// Returns:
//   - float32: progress from 0 to 1
//   - bool: false if no transition is in flight
func (s *StateMachineNode) TransitionProgress() (float32, bool) {
	return s.m.progress()
}

// Finished reports whether the active state is the designated end state.
func (s *StateMachineNode) Finished() bool {
	return s.end.Valid() && s.m.onNode && s.m.active == s.end
}

// Reset returns the machine to its start state and rewinds it.
func (s *StateMachineNode) Reset() {
	s.m.enter(s.start)
	if s.start.Valid() {
		restart(s.m.graph, s.start, 0)
	}
}
