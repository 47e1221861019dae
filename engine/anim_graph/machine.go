package anim_graph

import (
	"fmt"
)

// machine tracks the position of evaluation inside one graph: the active
// node, and while cross-fading, the transition edge leaving it. It backs both
// StateMachineNode and the top level of AnimGraph.
type machine struct {
	graph  *Graph
	active NodeIndex
	edge   EdgeIndex
	onNode bool
}

func newMachine(g *Graph) machine {
	return machine{graph: g, onNode: true}
}

// enter places the machine on n with no transition in flight.
func (m *machine) enter(n NodeIndex) {
	m.active = n
	m.edge = EdgeIndex{}
	m.onNode = true
}

// transition returns the in-flight transition, if any.
func (m *machine) transition() (*TransitionEdge, NodeIndex, NodeIndex, bool) {
	if m.onNode {
		return nil, NodeIndex{}, NodeIndex{}, false
	}
	payload, ok := m.graph.Edge(m.edge)
	if !ok {
		return nil, NodeIndex{}, NodeIndex{}, false
	}
	from, to, _ := m.graph.Endpoints(m.edge)
	return payload.(*TransitionEdge), from, to, true
}

// start begins the cross-fade along e. During a cross-fade, e may leave
// either the in-flight target, which then becomes the active node, or the
// active node itself. On error the machine is left untouched.
func (m *machine) start(e EdgeIndex) error {
	payload, ok := m.graph.Edge(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrStaleHandle, e)
	}
	t, ok := payload.(*TransitionEdge)
	if !ok {
		return fmt.Errorf("%w: %v is a %s edge", ErrNotTransition, e, payload.Kind())
	}
	from, to, _ := m.graph.Endpoints(e)
	if _, ok := m.graph.Node(to); !ok {
		return fmt.Errorf("%w: %q", ErrMissingTarget, t.Name)
	}

	switch _, _, inFlightTo, inFlight := m.transition(); {
	case inFlight && from == inFlightTo:
	case from == m.active:
	default:
		return fmt.Errorf("%w: %q leaves %q", ErrNotFromActive, t.Name, m.graph.NodeName(from))
	}

	t.reset(seekOf(m.graph, from, 0))
	restart(m.graph, to, 0)
	m.active = from
	m.edge = e
	m.onNode = false
	return nil
}

// request starts a transition by name. The name is matched against the
// transitions leaving the current source, then against the target state
// names of those transitions, then against every transition in the graph.
func (m *machine) request(name string) error {
	sources := []NodeIndex{m.active}
	if _, _, to, ok := m.transition(); ok {
		sources = []NodeIndex{to, m.active}
	}

	for _, src := range sources {
		for _, e := range m.graph.Outgoing(src) {
			if t, ok := m.edgeTransition(e); ok && t.Name == name {
				return m.start(e)
			}
		}
	}
	if target, ok := m.graph.NodeByName(name); ok {
		for _, src := range sources {
			for _, e := range m.graph.Outgoing(src) {
				if _, ok := m.edgeTransition(e); !ok {
					continue
				}
				if _, to, _ := m.graph.Endpoints(e); to == target {
					return m.start(e)
				}
			}
		}
	}
	if e, ok := m.graph.FindTransition(name); ok {
		return m.start(e)
	}

	if _, ok := m.graph.NodeByName(name); ok {
		return fmt.Errorf("%w: no transition from %q to %q", ErrUnknownTransition, m.graph.NodeName(sources[0]), name)
	}
	return fmt.Errorf("%w: no transition or state named %q", ErrMissingTarget, name)
}

func (m *machine) edgeTransition(e EdgeIndex) (*TransitionEdge, bool) {
	payload, ok := m.graph.Edge(e)
	if !ok {
		return nil, false
	}
	t, ok := payload.(*TransitionEdge)
	return t, ok
}

// cancel drops the in-flight transition and stays on the active node.
func (m *machine) cancel() {
	m.edge = EdgeIndex{}
	m.onNode = true
}

// progress reports the in-flight transition's progress.
func (m *machine) progress() (float32, bool) {
	t, _, _, ok := m.transition()
	if !ok {
		return 0, false
	}
	return t.Progress(), true
}

// evaluate advances the machine by dt. While on a node, the first outgoing
// transition whose conditions all hold starts before the node is evaluated.
func (m *machine) evaluate(c *evalContext, dt float32) (pose, error) {
	if !m.active.Valid() {
		return pose{}, ErrNoRoot
	}
	if m.onNode {
		for _, e := range m.graph.Outgoing(m.active) {
			if t, ok := m.edgeTransition(e); ok && allHold(t.Conditions, c.params) {
				if m.start(e) == nil {
					break
				}
			}
		}
	}

	t, from, to, ok := m.transition()
	if !ok {
		m.onNode = true
		return c.eval(m.graph, m.active, dt)
	}

	a, err := c.eval(m.graph, from, dt*t.Speed1)
	if err != nil {
		return pose{}, err
	}
	b, err := c.eval(m.graph, to, dt*t.Speed2)
	if err != nil {
		return pose{}, err
	}
	if a.locals == nil || b.locals == nil {
		return pose{}, fmt.Errorf("%w: transition %q needs local transforms on both states", ErrInvalidDefinition, t.Name)
	}
	// The fade only moves once both sides produced a pose.
	t.advance(dt)
	t.Seek1 = seekOf(m.graph, from, 0)
	t.Seek2 = seekOf(m.graph, to, 0)

	out := t.mix(a, b)
	if t.Complete() {
		m.enter(to)
	}
	return out, nil
}
