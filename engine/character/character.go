package character

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-anim/engine/anim_graph"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

type character struct {
	mu *sync.Mutex

	id      uint64
	enabled atomic.Bool

	mdl    model.Model
	graph  *anim_graph.AnimGraph
	params *ParamTable

	position    mgl32.Vec3
	orientation mgl32.Quat

	// slot counts applied to params at construction
	paramCounts [5]int
}

// Character defines the interface for an animated entity: one AnimGraph, its
// parameter table, and a world placement. Evaluate and Output are safe to call
// from any goroutine; a single character is evaluated by one caller at a time.
type Character interface {
	// ID returns the character's identifier.
	//
	// Returns:
	//   - uint64: the ID, 0 until assigned
	ID() uint64

	// SetID sets the character's identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Enabled reports whether the character is evaluated each frame.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the character is evaluated each frame.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Model returns the shared skeleton and clip set, or nil if the character
	// was built directly from a graph without one.
	//
	// Returns:
	//   - model.Model: the model or nil
	Model() model.Model

	// Skeleton returns the skeleton the character's graph evaluates.
	//
	// Returns:
	//   - *model.Skeleton: the skeleton
	Skeleton() *model.Skeleton

	// Graph returns the character's animation graph.
	//
	// Returns:
	//   - *anim_graph.AnimGraph: the graph
	Graph() *anim_graph.AnimGraph

	// Params returns the parameter table the graph reads from.
	//
	// Returns:
	//   - *ParamTable: the parameter table
	Params() *ParamTable

	// Position returns the world position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition sets the world position.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p mgl32.Vec3)

	// Orientation returns the world orientation.
	//
	// Returns:
	//   - mgl32.Quat: the unit orientation
	Orientation() mgl32.Quat

	// SetOrientation sets the world orientation. The quaternion is normalized;
	// a zero quaternion resets to identity.
	//
	// Parameters:
	//   - q: the new orientation
	SetOrientation(q mgl32.Quat)

	// WorldMatrix returns translation(position) * rotation(orientation).
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	WorldMatrix() mgl32.Mat4

	// Evaluate advances the character's graph by dt seconds.
	//
	// Parameters:
	//   - dt: the elapsed time, not negative
	//
	// Returns:
	//   - error: the graph evaluation error, if any
	Evaluate(dt float32) error

	// Output returns the model-space joint matrices of the latest evaluation.
	// The slice is reused by the next Evaluate.
	//
	// Returns:
	//   - []mgl32.Mat4: one matrix per joint
	Output() []mgl32.Mat4

	// RequestTransition requests a named transition on the top-level graph, or
	// on the state machine reached by machinePath when given.
	//
	// Parameters:
	//   - name: the transition or target state name
	//   - machinePath: node names leading to a nested state machine
	//
	// Returns:
	//   - error: an error wrapping an anim_graph sentinel on failure
	RequestTransition(name string, machinePath ...string) error
}

var _ Character = &character{}

// NewCharacter creates a Character around an existing graph.
// Panics if graph is nil.
//
// Parameters:
//   - graph: the animation graph the character owns
//   - options: functional options to configure the character
//
// Returns:
//   - Character: the newly created character
func NewCharacter(graph *anim_graph.AnimGraph, options ...CharacterBuilderOption) Character {
	if graph == nil {
		panic("character: NewCharacter requires a non-nil AnimGraph")
	}
	c := &character{
		mu:          &sync.Mutex{},
		graph:       graph,
		orientation: mgl32.QuatIdent(),
	}
	c.enabled.Store(true)
	for _, option := range options {
		option(c)
	}
	c.params = NewParamTable(c.paramCounts[0], c.paramCounts[1], c.paramCounts[2], c.paramCounts[3], c.paramCounts[4])
	return c
}

// NewCharacterFromDefinition builds the character's graph from a definition,
// resolving clips against the model.
//
// Parameters:
//   - m: the model providing the skeleton and clips
//   - def: the graph definition
//   - options: functional options to configure the character
//
// Returns:
//   - Character: the newly created character
//   - error: an error from anim_graph.BuildFromDefinition
func NewCharacterFromDefinition(m model.Model, def *anim_graph.GraphDefinition, options ...CharacterBuilderOption) (Character, error) {
	if m == nil {
		panic("character: NewCharacterFromDefinition requires a non-nil Model")
	}
	graph, err := anim_graph.BuildFromDefinition(m.Skeleton(), def, m.ClipsByName())
	if err != nil {
		return nil, fmt.Errorf("character for model %q: %w", m.Name(), err)
	}
	return NewCharacter(graph, append([]CharacterBuilderOption{WithModel(m)}, options...)...), nil
}

func (c *character) ID() uint64 {
	return c.id
}

func (c *character) SetID(id uint64) {
	c.id = id
}

func (c *character) Enabled() bool {
	return c.enabled.Load()
}

func (c *character) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

func (c *character) Model() model.Model {
	return c.mdl
}

func (c *character) Skeleton() *model.Skeleton {
	return c.graph.Skeleton()
}

func (c *character) Graph() *anim_graph.AnimGraph {
	return c.graph
}

func (c *character) Params() *ParamTable {
	return c.params
}

func (c *character) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *character) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
}

func (c *character) Orientation() mgl32.Quat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orientation
}

func (c *character) SetOrientation(q mgl32.Quat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orientation = normalizeOrientation(q)
}

func (c *character) WorldMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mgl32.Translate3D(c.position.X(), c.position.Y(), c.position.Z()).Mul4(c.orientation.Mat4())
}

func (c *character) Evaluate(dt float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph.Evaluate(dt, c.params)
}

func (c *character) Output() []mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph.Output()
}

func (c *character) RequestTransition(name string, machinePath ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(machinePath) == 0 {
		return c.graph.RequestTransition(name)
	}
	sm, err := c.graph.StateMachine(machinePath...)
	if err != nil {
		return err
	}
	return sm.RequestTransition(name)
}

func normalizeOrientation(q mgl32.Quat) mgl32.Quat {
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}
