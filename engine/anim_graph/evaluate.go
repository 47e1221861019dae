package anim_graph

import (
	"fmt"
	"sort"
)

// evalContext carries the per-frame state of one evaluation pass.
type evalContext struct {
	frame  uint64
	params ParameterProvider
}

// eval evaluates node n of g at most once per frame. A node reached again
// while its own inputs are being evaluated is a data-flow cycle.
func (c *evalContext) eval(g *Graph, n NodeIndex, dt float32) (pose, error) {
	s := g.nodeSlot(n)
	if s == nil {
		return pose{}, fmt.Errorf("%w: %v", ErrStaleHandle, n)
	}
	if s.stamp == c.frame {
		return s.cached, nil
	}
	if s.visiting {
		return pose{}, fmt.Errorf("%w: through node %q", ErrCycle, s.name)
	}

	s.visiting = true
	out, err := c.dispatch(g, n, s.node, dt)
	s = &g.nodes[n.slot]
	s.visiting = false
	if err != nil {
		return pose{}, err
	}
	s.stamp, s.cached = c.frame, out
	return out, nil
}

func (c *evalContext) dispatch(g *Graph, n NodeIndex, node AnimNode, dt float32) (pose, error) {
	switch node := node.(type) {
	case *SampleNode:
		locals, err := node.Advance(dt)
		if err != nil {
			return pose{}, fmt.Errorf("sample %q: %w", g.NodeName(n), err)
		}
		return pose{locals: locals}, nil

	case *BlendNode:
		node.inputs = blendInputs(g, n, node.inputs[:0])
		if len(node.inputs) == 0 {
			return pose{}, fmt.Errorf("blend %q: %w", g.NodeName(n), ErrNoInput)
		}
		node.layers = node.layers[:0]
		for _, in := range node.inputs {
			p, err := c.eval(g, in.from, dt*in.edge.Speed)
			if err != nil {
				return pose{}, err
			}
			if p.locals == nil {
				return pose{}, fmt.Errorf("blend %q: input %q has no local transforms: %w", g.NodeName(n), g.NodeName(in.from), ErrInvalidDefinition)
			}
			in.edge.Seek = seekOf(g, in.from, 0)
			node.layers = append(node.layers, BlendLayer{Transforms: p.locals, Weight: in.edge.weight(c.params)})
		}
		return pose{locals: node.Blend(node.layers)}, nil

	case *LocalToModelNode:
		from, speed, ok := singleInput(g, n)
		if !ok {
			return pose{}, fmt.Errorf("local_to_model %q: %w", g.NodeName(n), ErrNoInput)
		}
		p, err := c.eval(g, from, dt*speed)
		if err != nil {
			return pose{}, err
		}
		if p.locals == nil {
			return pose{}, fmt.Errorf("local_to_model %q: input %q has no local transforms: %w", g.NodeName(n), g.NodeName(from), ErrInvalidDefinition)
		}
		return pose{locals: p.locals, models: node.Propagate(p.locals)}, nil

	case *StateMachineNode:
		p, err := node.m.evaluate(c, dt)
		if err != nil {
			return pose{}, fmt.Errorf("state machine %q: %w", g.NodeName(n), err)
		}
		return p, nil

	default:
		panic(fmt.Sprintf("anim_graph: unknown node type %T", node))
	}
}

// blendInput is one resolved OutputEdge feeding a BlendNode.
type blendInput struct {
	from NodeIndex
	edge *OutputEdge
}

// blendInputs collects the OutputEdges entering n ordered by layer, keeping
// insertion order within a layer.
func blendInputs(g *Graph, n NodeIndex, buf []blendInput) []blendInput {
	for _, e := range g.Incoming(n) {
		payload, _ := g.Edge(e)
		if out, ok := payload.(*OutputEdge); ok {
			from, _, _ := g.Endpoints(e)
			buf = append(buf, blendInput{from: from, edge: out})
		}
	}
	sort.SliceStable(buf, func(i, j int) bool { return buf[i].edge.Layer < buf[j].edge.Layer })
	return buf
}

// singleInput returns the first Simple or Output edge entering n and the speed it applies.
func singleInput(g *Graph, n NodeIndex) (NodeIndex, float32, bool) {
	for _, e := range g.Incoming(n) {
		payload, _ := g.Edge(e)
		from, _, _ := g.Endpoints(e)
		switch edge := payload.(type) {
		case *SimpleEdge:
			return from, 1, true
		case *OutputEdge:
			return from, edge.Speed, true
		}
	}
	return NodeIndex{}, 0, false
}

// seekOf reports the playback position a node exposes: its own seek for a
// sample, the active state's for a state machine, and the first input's for
// blends and local-to-model nodes.
func seekOf(g *Graph, n NodeIndex, depth int) float32 {
	if depth > g.NodeCount() {
		return 0
	}
	node, ok := g.Node(n)
	if !ok {
		return 0
	}
	switch node := node.(type) {
	case *SampleNode:
		return node.Seek
	case *StateMachineNode:
		return seekOf(node.m.graph, node.m.active, 0)
	case *BlendNode:
		if ins := blendInputs(g, n, nil); len(ins) > 0 {
			return seekOf(g, ins[0].from, depth+1)
		}
	case *LocalToModelNode:
		if from, _, ok := singleInput(g, n); ok {
			return seekOf(g, from, depth+1)
		}
	}
	return 0
}

// restart rewinds every sample feeding n and resets nested state machines.
func restart(g *Graph, n NodeIndex, depth int) {
	if depth > g.NodeCount() {
		return
	}
	node, ok := g.Node(n)
	if !ok {
		return
	}
	switch node := node.(type) {
	case *SampleNode:
		node.Seek = 0
	case *StateMachineNode:
		node.Reset()
	case *BlendNode:
		for _, in := range blendInputs(g, n, nil) {
			restart(g, in.from, depth+1)
		}
	case *LocalToModelNode:
		if from, _, ok := singleInput(g, n); ok {
			restart(g, from, depth+1)
		}
	}
}
