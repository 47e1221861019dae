package anim_graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeIndex is a generational handle to a node inside a Graph.
// The zero value never refers to a node.
type NodeIndex struct {
	slot uint32
	gen  uint32
}

// Valid reports whether the handle was issued by a Graph. It does not check
// whether the node is still alive; use Graph.Node for that.
func (n NodeIndex) Valid() bool {
	return n.gen != 0
}

func (n NodeIndex) String() string {
	return fmt.Sprintf("node(%d@%d)", n.slot, n.gen)
}

// EdgeIndex is a generational handle to an edge inside a Graph.
// The zero value never refers to an edge.
type EdgeIndex struct {
	slot uint32
	gen  uint32
}

// Valid reports whether the handle was issued by a Graph.
func (e EdgeIndex) Valid() bool {
	return e.gen != 0
}

func (e EdgeIndex) String() string {
	return fmt.Sprintf("edge(%d@%d)", e.slot, e.gen)
}

// pose is the output of one node evaluation. A node yields locals, model
// matrices, or both; buffers belong to the producing node and are reused.
type pose struct {
	locals []model.Transform
	models []mgl32.Mat4
}

type nodeSlot struct {
	gen  uint32
	live bool
	name string
	node AnimNode

	in, out []EdgeIndex

	// per-frame memo
	stamp    uint64
	visiting bool
	cached   pose
}

type edgeSlot struct {
	gen      uint32
	live     bool
	from, to NodeIndex
	edge     AnimEdge
}

// Graph is a directed multigraph of animation nodes and edges stored in a
// slot arena. Handles stay stable while entries around them are added and
// removed, and removed entries invalidate their outstanding handles.
//
// A Graph is not safe for concurrent use; it belongs to one character.
type Graph struct {
	nodes     []nodeSlot
	edges     []edgeSlot
	freeNodes []uint32
	freeEdges []uint32
	names     map[string]NodeIndex

	nodeCount, edgeCount int
}

// NewGraph creates an empty Graph.
//
// Returns:
//   - *Graph: the new graph
func NewGraph() *Graph {
	return &Graph{names: make(map[string]NodeIndex)}
}

// AddNode inserts a node under a unique name.
//
// Parameters:
//   - name: the node name, unique within this graph (may be empty for anonymous nodes)
//   - node: the node to insert
//
// Returns:
//   - NodeIndex: the handle to the inserted node
//   - error: ErrDuplicateName if the name is taken
func (g *Graph) AddNode(name string, node AnimNode) (NodeIndex, error) {
	if node == nil {
		panic("anim_graph: AddNode requires a node")
	}
	if name != "" {
		if _, ok := g.names[name]; ok {
			return NodeIndex{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}

	var slot uint32
	if n := len(g.freeNodes); n > 0 {
		slot = g.freeNodes[n-1]
		g.freeNodes = g.freeNodes[:n-1]
	} else {
		slot = uint32(len(g.nodes))
		g.nodes = append(g.nodes, nodeSlot{gen: 1})
	}

	s := &g.nodes[slot]
	s.live = true
	s.name = name
	s.node = node
	s.in, s.out = s.in[:0], s.out[:0]
	s.stamp, s.visiting, s.cached = 0, false, pose{}

	idx := NodeIndex{slot: slot, gen: s.gen}
	if name != "" {
		g.names[name] = idx
	}
	g.nodeCount++
	return idx, nil
}

func (g *Graph) nodeSlot(n NodeIndex) *nodeSlot {
	if !n.Valid() || int(n.slot) >= len(g.nodes) {
		return nil
	}
	s := &g.nodes[n.slot]
	if !s.live || s.gen != n.gen {
		return nil
	}
	return s
}

func (g *Graph) edgeSlot(e EdgeIndex) *edgeSlot {
	if !e.Valid() || int(e.slot) >= len(g.edges) {
		return nil
	}
	s := &g.edges[e.slot]
	if !s.live || s.gen != e.gen {
		return nil
	}
	return s
}

// Node returns the node behind a handle.
//
// Parameters:
//   - n: the node handle
//
// Returns:
//   - AnimNode: the node, or nil if the handle is stale
//   - bool: true if the node is alive
func (g *Graph) Node(n NodeIndex) (AnimNode, bool) {
	s := g.nodeSlot(n)
	if s == nil {
		return nil, false
	}
	return s.node, true
}

// NodeName returns the name a node was added under, or "" for stale handles.
func (g *Graph) NodeName(n NodeIndex) string {
	if s := g.nodeSlot(n); s != nil {
		return s.name
	}
	return ""
}

// NodeByName looks up a node by name.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - NodeIndex: the node handle
//   - bool: true if a live node has that name
func (g *Graph) NodeByName(name string) (NodeIndex, bool) {
	idx, ok := g.names[name]
	return idx, ok
}

// RemoveNode deletes a node and every edge incident to it.
//
// Parameters:
//   - n: the node handle
//
// Returns:
//   - bool: true if the node was alive and has been removed
func (g *Graph) RemoveNode(n NodeIndex) bool {
	s := g.nodeSlot(n)
	if s == nil {
		return false
	}
	for _, e := range append(append([]EdgeIndex(nil), s.in...), s.out...) {
		g.RemoveEdge(e)
	}
	if s.name != "" {
		delete(g.names, s.name)
	}
	*s = nodeSlot{gen: s.gen + 1, in: s.in[:0], out: s.out[:0]}
	g.freeNodes = append(g.freeNodes, n.slot)
	g.nodeCount--
	return true
}

// AddEdge inserts a directed edge between two live nodes.
//
// Parameters:
//   - from: the source node
//   - to: the target node
//   - edge: the edge payload
//
// Returns:
//   - EdgeIndex: the handle to the inserted edge
//   - error: ErrStaleHandle if either endpoint is not alive
func (g *Graph) AddEdge(from, to NodeIndex, edge AnimEdge) (EdgeIndex, error) {
	if edge == nil {
		panic("anim_graph: AddEdge requires an edge")
	}
	if g.nodeSlot(from) == nil {
		return EdgeIndex{}, fmt.Errorf("%w: edge source %v", ErrStaleHandle, from)
	}
	if g.nodeSlot(to) == nil {
		return EdgeIndex{}, fmt.Errorf("%w: edge target %v", ErrStaleHandle, to)
	}

	var slot uint32
	if n := len(g.freeEdges); n > 0 {
		slot = g.freeEdges[n-1]
		g.freeEdges = g.freeEdges[:n-1]
	} else {
		slot = uint32(len(g.edges))
		g.edges = append(g.edges, edgeSlot{gen: 1})
	}

	s := &g.edges[slot]
	s.live = true
	s.from, s.to = from, to
	s.edge = edge

	idx := EdgeIndex{slot: slot, gen: s.gen}
	g.nodes[from.slot].out = append(g.nodes[from.slot].out, idx)
	g.nodes[to.slot].in = append(g.nodes[to.slot].in, idx)
	g.edgeCount++
	return idx, nil
}

// Edge returns the edge payload behind a handle.
//
// Parameters:
//   - e: the edge handle
//
// Returns:
//   - AnimEdge: the edge, or nil if the handle is stale
//   - bool: true if the edge is alive
func (g *Graph) Edge(e EdgeIndex) (AnimEdge, bool) {
	s := g.edgeSlot(e)
	if s == nil {
		return nil, false
	}
	return s.edge, true
}

// Endpoints returns the source and target of an edge.
//
// Parameters:
//   - e: the edge handle
//
// Returns:
//   - NodeIndex: the source node
//   - NodeIndex: the target node
//   - bool: true if the edge is alive
func (g *Graph) Endpoints(e EdgeIndex) (NodeIndex, NodeIndex, bool) {
	s := g.edgeSlot(e)
	if s == nil {
		return NodeIndex{}, NodeIndex{}, false
	}
	return s.from, s.to, true
}

// RemoveEdge deletes an edge.
//
// Parameters:
//   - e: the edge handle
//
// Returns:
//   - bool: true if the edge was alive and has been removed
func (g *Graph) RemoveEdge(e EdgeIndex) bool {
	s := g.edgeSlot(e)
	if s == nil {
		return false
	}
	if from := g.nodeSlot(s.from); from != nil {
		from.out = removeEdgeIndex(from.out, e)
	}
	if to := g.nodeSlot(s.to); to != nil {
		to.in = removeEdgeIndex(to.in, e)
	}
	*s = edgeSlot{gen: s.gen + 1}
	g.freeEdges = append(g.freeEdges, e.slot)
	g.edgeCount--
	return true
}

// removeEdgeIndex deletes e from list preserving insertion order.
func removeEdgeIndex(list []EdgeIndex, e EdgeIndex) []EdgeIndex {
	for i, x := range list {
		if x == e {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Outgoing returns the edges leaving a node in insertion order.
// The slice is owned by the graph and must not be modified.
func (g *Graph) Outgoing(n NodeIndex) []EdgeIndex {
	if s := g.nodeSlot(n); s != nil {
		return s.out
	}
	return nil
}

// Incoming returns the edges entering a node in insertion order.
// The slice is owned by the graph and must not be modified.
func (g *Graph) Incoming(n NodeIndex) []EdgeIndex {
	if s := g.nodeSlot(n); s != nil {
		return s.in
	}
	return nil
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	return g.nodeCount
}

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// Nodes returns the handles of all live nodes in slot order.
func (g *Graph) Nodes() []NodeIndex {
	out := make([]NodeIndex, 0, g.nodeCount)
	for i := range g.nodes {
		if g.nodes[i].live {
			out = append(out, NodeIndex{slot: uint32(i), gen: g.nodes[i].gen})
		}
	}
	return out
}

// Edges returns the handles of all live edges in slot order.
func (g *Graph) Edges() []EdgeIndex {
	out := make([]EdgeIndex, 0, g.edgeCount)
	for i := range g.edges {
		if g.edges[i].live {
			out = append(out, EdgeIndex{slot: uint32(i), gen: g.edges[i].gen})
		}
	}
	return out
}

// FindTransition returns the first live transition edge with the given name.
//
// Parameters:
//   - name: the transition name
//
// Returns:
//   - EdgeIndex: the edge handle
//   - bool: true if a transition with that name exists
func (g *Graph) FindTransition(name string) (EdgeIndex, bool) {
	for i := range g.edges {
		s := &g.edges[i]
		if !s.live {
			continue
		}
		if t, ok := s.edge.(*TransitionEdge); ok && t.Name == name {
			return EdgeIndex{slot: uint32(i), gen: s.gen}, true
		}
	}
	return EdgeIndex{}, false
}
