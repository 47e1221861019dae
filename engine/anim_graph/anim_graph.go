package anim_graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// AnimGraph is the per-character animation evaluator. It owns a node graph,
// tracks the current position in it the same way a state machine does, and
// turns each frame's evaluation into model-space joint matrices.
//
// An AnimGraph is not safe for concurrent use.
type AnimGraph struct {
	skeleton *model.Skeleton
	m        machine
	root     NodeIndex
	frame    uint64

	l2m    *LocalToModelNode
	locals []model.Transform
	models []mgl32.Mat4
}

// NewAnimGraph creates an empty AnimGraph for a skeleton.
//
// Parameters:
//   - skeleton: the joint hierarchy every node of the graph is built for
//
// Returns:
//   - *AnimGraph: the new graph
func NewAnimGraph(skeleton *model.Skeleton) *AnimGraph {
	if skeleton == nil {
		panic("anim_graph: NewAnimGraph requires a skeleton")
	}
	return &AnimGraph{
		skeleton: skeleton,
		m:        newMachine(NewGraph()),
		l2m:      NewLocalToModelNode(skeleton),
	}
}

// Skeleton returns the skeleton the graph evaluates for.
func (a *AnimGraph) Skeleton() *model.Skeleton {
	return a.skeleton
}

// Graph returns the top-level node graph.
func (a *AnimGraph) Graph() *Graph {
	return a.m.graph
}

// SetRoot designates the entry node and moves evaluation onto it.
//
// Parameters:
//   - n: a live node of the top-level graph
//
// Returns:
//   - error: ErrStaleHandle if n is not alive
func (a *AnimGraph) SetRoot(n NodeIndex) error {
	if _, ok := a.m.graph.Node(n); !ok {
		return fmt.Errorf("%w: root %v", ErrStaleHandle, n)
	}
	a.root = n
	a.m.enter(n)
	return nil
}

// Root returns the entry node.
func (a *AnimGraph) Root() NodeIndex {
	return a.root
}

// CurrentNode returns the node evaluation currently rests on, or the source
// node while a top-level transition is in flight.
func (a *AnimGraph) CurrentNode() NodeIndex {
	return a.m.active
}

// CurrentEdge returns the in-flight top-level transition, if any.
func (a *AnimGraph) CurrentEdge() (EdgeIndex, bool) {
	if _, _, _, ok := a.m.transition(); !ok {
		return EdgeIndex{}, false
	}
	return a.m.edge, true
}

// OnNode reports whether no top-level transition is in flight.
func (a *AnimGraph) OnNode() bool {
	return a.m.onNode
}

// StartTransition begins a top-level cross-fade along a transition edge.
//
// Parameters:
//   - e: the transition edge
//
// Returns:
//   - error: ErrStaleHandle, ErrNotTransition, ErrMissingTarget or ErrNotFromActive
func (a *AnimGraph) StartTransition(e EdgeIndex) error {
	return a.m.start(e)
}

// RequestTransition begins a top-level cross-fade by transition or target node name.
//
// Parameters:
//   - name: the transition or target node name
//
// Returns:
//   - error: ErrMissingTarget, ErrUnknownTransition or ErrNotFromActive
func (a *AnimGraph) RequestTransition(name string) error {
	return a.m.request(name)
}

// CancelTransition drops the in-flight top-level transition.
func (a *AnimGraph) CancelTransition() {
	a.m.cancel()
}

// TransitionProgress reports how far the in-flight top-level transition has run.
//
// Returns:
//   - float32: progress from 0 to 1
//   - bool: false if no transition is in flight
func (a *AnimGraph) TransitionProgress() (float32, bool) {
	return a.m.progress()
}

// StateMachine resolves a state machine by the node names leading to it,
// starting from the top-level graph.
//
// Parameters:
//   - path: node names, each naming a state machine inside the previous one
//
// Returns:
//   - *StateMachineNode: the state machine
//   - error: ErrUnresolvedReference if a name is missing or not a state machine
func (a *AnimGraph) StateMachine(path ...string) (*StateMachineNode, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty state machine path", ErrUnresolvedReference)
	}
	g := a.m.graph
	var sm *StateMachineNode
	for _, name := range path {
		idx, ok := g.NodeByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: node %q", ErrUnresolvedReference, name)
		}
		node, _ := g.Node(idx)
		if sm, ok = node.(*StateMachineNode); !ok {
			return nil, fmt.Errorf("%w: node %q is a %s node, not a state machine", ErrUnresolvedReference, name, node.Kind())
		}
		g = sm.Graph()
	}
	return sm, nil
}

// Evaluate advances the graph by dt and refreshes Locals and Output.
// When the evaluated node yields only local transforms, they are converted
// to model space with the skeleton. On error the previous outputs are kept.
//
// Parameters:
//   - dt: the elapsed time in seconds, not negative
//   - params: the parameter source; nil reads every parameter as zero
//
// Returns:
//   - error: an error from any node on the evaluated path
func (a *AnimGraph) Evaluate(dt float32, params ParameterProvider) error {
	if dt < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeDelta, dt)
	}
	if params == nil {
		params = NoParameters{}
	}

	a.frame++
	c := evalContext{frame: a.frame, params: params}
	p, err := a.m.evaluate(&c, dt)
	if err != nil {
		return err
	}
	if p.models == nil {
		if p.locals == nil {
			return fmt.Errorf("%w: evaluated node produced no pose", ErrInvalidDefinition)
		}
		p.models = a.l2m.Propagate(p.locals)
	}
	a.locals, a.models = p.locals, p.models
	return nil
}

// Output returns the model-space joint matrices of the latest evaluation.
// The slice is reused by the next Evaluate.
func (a *AnimGraph) Output() []mgl32.Mat4 {
	return a.models
}

// Locals returns the local joint transforms of the latest evaluation.
// The slice is reused by the next Evaluate.
func (a *AnimGraph) Locals() []model.Transform {
	return a.locals
}

// Frame returns the number of evaluations attempted so far.
func (a *AnimGraph) Frame() uint64 {
	return a.frame
}
