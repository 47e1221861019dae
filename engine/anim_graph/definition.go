package anim_graph

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/tanema/gween/ease"
	"gopkg.in/yaml.v3"
)

// GraphDefinition is the declarative description of an AnimGraph.
type GraphDefinition struct {
	Root  string           `yaml:"root"`
	Nodes []NodeDefinition `yaml:"nodes"`
	Edges []EdgeDefinition `yaml:"edges"`
}

// NodeDefinition describes one node. Type is one of sample, blend,
// local_to_model or state_machine; the remaining fields apply per type.
type NodeDefinition struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// sample
	Clip      string   `yaml:"clip,omitempty"`
	Looping   bool     `yaml:"looping,omitempty"`
	Speed     *float32 `yaml:"speed,omitempty"`
	Seek      float32  `yaml:"seek,omitempty"`
	EndPolicy string   `yaml:"end_policy,omitempty"` // restart (default) or clamp

	// state_machine
	Start string           `yaml:"start,omitempty"`
	End   string           `yaml:"end,omitempty"`
	Nodes []NodeDefinition `yaml:"nodes,omitempty"`
	Edges []EdgeDefinition `yaml:"edges,omitempty"`
}

// EdgeDefinition describes one edge. Type is one of simple, output or transition.
type EdgeDefinition struct {
	Type string `yaml:"type"`
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// output
	Weight      *float32 `yaml:"weight,omitempty"`
	Speed       *float32 `yaml:"speed,omitempty"`
	Layer       int      `yaml:"layer,omitempty"`
	WeightParam *int     `yaml:"weight_param,omitempty"`

	// transition
	Name       string                `yaml:"name,omitempty"`
	Duration   *float32              `yaml:"duration,omitempty"`
	SpeedFrom  *float32              `yaml:"speed_from,omitempty"`
	SpeedTo    *float32              `yaml:"speed_to,omitempty"`
	Easing     string                `yaml:"easing,omitempty"`
	Conditions []ConditionDefinition `yaml:"conditions,omitempty"`
}

// ConditionDefinition describes one transition condition.
// Param is one of bool, float, int, uint or vec3_length.
type ConditionDefinition struct {
	Param string  `yaml:"param"`
	Index int     `yaml:"index"`
	Op    string  `yaml:"op"`
	Value float64 `yaml:"value"`
}

var easingByName = map[string]ease.TweenFunc{
	"":             ease.Linear,
	"linear":       ease.Linear,
	"in_quad":      ease.InQuad,
	"out_quad":     ease.OutQuad,
	"in_out_quad":  ease.InOutQuad,
	"in_cubic":     ease.InCubic,
	"out_cubic":    ease.OutCubic,
	"in_out_cubic": ease.InOutCubic,
	"in_sine":      ease.InSine,
	"out_sine":     ease.OutSine,
	"in_out_sine":  ease.InOutSine,
}

// ParseDefinition decodes a YAML graph definition.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *GraphDefinition: the decoded definition
//   - error: a wrapped decode error
func ParseDefinition(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &def, nil
}

// LoadDefinition reads and decodes a YAML graph definition file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - *GraphDefinition: the decoded definition
//   - error: a read or decode error
func LoadDefinition(path string) (*GraphDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDefinition(data)
}

// WriteDefinition encodes a graph definition to a YAML file.
//
// Parameters:
//   - def: the definition
//   - path: the file path
//
// Returns:
//   - error: an encode or write error
func WriteDefinition(def *GraphDefinition, path string) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildFromDefinition constructs an AnimGraph from a definition, resolving
// clips by name. Nothing is substituted for a missing reference.
//
// Parameters:
//   - skeleton: the skeleton every node is built for
//   - def: the graph definition
//   - clips: the available clips keyed by name
//
// Returns:
//   - *AnimGraph: the graph, positioned on its root
//   - error: an error wrapping ErrUnresolvedReference, ErrInvalidDefinition or ErrCycle
func BuildFromDefinition(skeleton *model.Skeleton, def *GraphDefinition, clips map[string]*model.AnimationClip) (*AnimGraph, error) {
	if skeleton == nil {
		panic("anim_graph: BuildFromDefinition requires a skeleton")
	}
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}

	a := NewAnimGraph(skeleton)
	b := &builder{skeleton: skeleton, clips: clips}
	if err := b.build(a.Graph(), def.Nodes, def.Edges, ""); err != nil {
		return nil, err
	}
	if def.Root == "" {
		return nil, fmt.Errorf("%w: no root", ErrInvalidDefinition)
	}
	root, ok := a.Graph().NodeByName(def.Root)
	if !ok {
		return nil, fmt.Errorf("%w: root %q", ErrUnresolvedReference, def.Root)
	}
	if err := a.SetRoot(root); err != nil {
		return nil, err
	}
	return a, nil
}

type builder struct {
	skeleton *model.Skeleton
	clips    map[string]*model.AnimationClip
}

// build fills g from node and edge definitions. scope prefixes names in errors.
func (b *builder) build(g *Graph, nodes []NodeDefinition, edges []EdgeDefinition, scope string) error {
	for i := range nodes {
		nd := &nodes[i]
		if nd.Name == "" {
			return fmt.Errorf("%w: %snode %d has no name", ErrInvalidDefinition, scope, i)
		}
		node, err := b.node(nd, scope)
		if err != nil {
			return err
		}
		if _, err := g.AddNode(nd.Name, node); err != nil {
			return fmt.Errorf("%w: %s%w", ErrInvalidDefinition, scope, err)
		}
	}

	for i := range edges {
		ed := &edges[i]
		from, ok := g.NodeByName(ed.From)
		if !ok {
			return fmt.Errorf("%w: %sedge %d source %q", ErrUnresolvedReference, scope, i, ed.From)
		}
		to, ok := g.NodeByName(ed.To)
		if !ok {
			return fmt.Errorf("%w: %sedge %d target %q", ErrUnresolvedReference, scope, i, ed.To)
		}
		edge, err := b.edge(ed, scope)
		if err != nil {
			return err
		}
		if _, err := g.AddEdge(from, to, edge); err != nil {
			return err
		}
	}

	return validate(g, scope)
}

func (b *builder) node(nd *NodeDefinition, scope string) (AnimNode, error) {
	switch nd.Type {
	case "sample":
		clip, ok := b.clips[nd.Clip]
		if !ok || clip == nil {
			return nil, fmt.Errorf("%w: %s%s clip %q", ErrUnresolvedReference, scope, nd.Name, nd.Clip)
		}
		n := NewSampleNode(b.skeleton, clip)
		n.Looping = nd.Looping
		n.Speed = common.Deref(nd.Speed, 1)
		n.Seek = nd.Seek
		switch nd.EndPolicy {
		case "", "restart":
			n.EndPolicy = EndRestart
		case "clamp":
			n.EndPolicy = EndClamp
		default:
			return nil, fmt.Errorf("%w: %s%s end policy %q", ErrInvalidDefinition, scope, nd.Name, nd.EndPolicy)
		}
		return n, nil

	case "blend":
		return NewBlendNode(b.skeleton.JointCount()), nil

	case "local_to_model":
		return NewLocalToModelNode(b.skeleton), nil

	case "state_machine":
		sm := NewStateMachineNode()
		sub := scope + nd.Name + "/"
		if err := b.build(sm.Graph(), nd.Nodes, nd.Edges, sub); err != nil {
			return nil, err
		}
		if nd.Start == "" {
			return nil, fmt.Errorf("%w: %s%s has no start state", ErrInvalidDefinition, scope, nd.Name)
		}
		start, ok := sm.Graph().NodeByName(nd.Start)
		if !ok {
			return nil, fmt.Errorf("%w: %sstart %q", ErrUnresolvedReference, sub, nd.Start)
		}
		if err := sm.SetStart(start); err != nil {
			return nil, err
		}
		if nd.End != "" {
			end, ok := sm.Graph().NodeByName(nd.End)
			if !ok {
				return nil, fmt.Errorf("%w: %send %q", ErrUnresolvedReference, sub, nd.End)
			}
			if err := sm.SetEnd(end); err != nil {
				return nil, err
			}
		}
		return sm, nil

	default:
		return nil, fmt.Errorf("%w: %s%s has unknown type %q", ErrInvalidDefinition, scope, nd.Name, nd.Type)
	}
}

func (b *builder) edge(ed *EdgeDefinition, scope string) (AnimEdge, error) {
	switch ed.Type {
	case "simple":
		return &SimpleEdge{}, nil

	case "output":
		e := NewOutputEdge(common.Deref(ed.Weight, 1), ed.Layer)
		e.Speed = common.Deref(ed.Speed, 1)
		if ed.WeightParam != nil {
			if *ed.WeightParam < 0 {
				return nil, fmt.Errorf("%w: %s%s->%s weight parameter %d", ErrInvalidDefinition, scope, ed.From, ed.To, *ed.WeightParam)
			}
			e.WeightParam = *ed.WeightParam
		}
		return e, nil

	case "transition":
		name := common.Coalesce(ed.Name, ed.To)
		e := NewTransitionEdge(name, common.Deref(ed.Duration, DefaultTransitionDuration))
		e.Speed1 = common.Deref(ed.SpeedFrom, 1)
		e.Speed2 = common.Deref(ed.SpeedTo, 1)
		fn, ok := easingByName[ed.Easing]
		if !ok {
			return nil, fmt.Errorf("%w: %stransition %q easing %q", ErrInvalidDefinition, scope, name, ed.Easing)
		}
		e.Easing = fn
		for _, cd := range ed.Conditions {
			c, err := condition(cd)
			if err != nil {
				return nil, fmt.Errorf("%stransition %q: %w", scope, name, err)
			}
			e.Conditions = append(e.Conditions, c)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("%w: %s%s->%s has unknown edge type %q", ErrInvalidDefinition, scope, ed.From, ed.To, ed.Type)
	}
}

func condition(cd ConditionDefinition) (Condition, error) {
	kind, ok := paramKindNames[cd.Param]
	if !ok {
		return Condition{}, fmt.Errorf("%w: parameter kind %q", ErrInvalidDefinition, cd.Param)
	}
	op, ok := compareOpNames[cd.Op]
	if !ok {
		return Condition{}, fmt.Errorf("%w: compare op %q", ErrInvalidDefinition, cd.Op)
	}
	if cd.Index < 0 {
		return Condition{}, fmt.Errorf("%w: parameter index %d", ErrInvalidDefinition, cd.Index)
	}
	return Condition{Kind: kind, Index: cd.Index, Op: op, Value: cd.Value}, nil
}

// validate checks the input arity of blend and local-to-model nodes and
// rejects data-flow cycles through simple and output edges.
func validate(g *Graph, scope string) error {
	for _, n := range g.Nodes() {
		node, _ := g.Node(n)
		switch node.(type) {
		case *BlendNode:
			if len(blendInputs(g, n, nil)) == 0 {
				return fmt.Errorf("%w: %sblend %q: %w", ErrInvalidDefinition, scope, g.NodeName(n), ErrNoInput)
			}
		case *LocalToModelNode:
			if count := len(dataInputs(g, n)); count != 1 {
				return fmt.Errorf("%w: %slocal_to_model %q has %d inputs, want 1", ErrInvalidDefinition, scope, g.NodeName(n), count)
			}
		}
	}

	const (
		unseen = iota
		active
		done
	)
	state := make(map[NodeIndex]int, g.NodeCount())
	var visit func(n NodeIndex) error
	visit = func(n NodeIndex) error {
		switch state[n] {
		case active:
			return fmt.Errorf("%w: %sthrough node %q", ErrCycle, scope, g.NodeName(n))
		case done:
			return nil
		}
		state[n] = active
		for _, from := range dataInputs(g, n) {
			if err := visit(from); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}
	for _, n := range g.Nodes() {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// dataInputs returns the sources of the simple and output edges entering n.
func dataInputs(g *Graph, n NodeIndex) []NodeIndex {
	var out []NodeIndex
	for _, e := range g.Incoming(n) {
		payload, _ := g.Edge(e)
		if payload.Kind() == KindTransition {
			continue
		}
		from, _, _ := g.Endpoints(e)
		out = append(out, from)
	}
	return out
}
