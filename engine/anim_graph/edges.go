package anim_graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween/ease"
)

// EdgeKind identifies the concrete type behind an AnimEdge.
type EdgeKind uint8

const (
	KindSimple EdgeKind = iota
	KindOutput
	KindTransition
)

func (k EdgeKind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindOutput:
		return "output"
	case KindTransition:
		return "transition"
	default:
		return fmt.Sprintf("EdgeKind(%d)", uint8(k))
	}
}

// AnimEdge is implemented by SimpleEdge, OutputEdge and TransitionEdge only.
type AnimEdge interface {
	// Kind reports the concrete edge type.
	Kind() EdgeKind

	animEdge()
}

var (
	_ AnimEdge = &SimpleEdge{}
	_ AnimEdge = &OutputEdge{}
	_ AnimEdge = &TransitionEdge{}
)

// SimpleEdge feeds its source's output unchanged into its target.
type SimpleEdge struct{}

func (*SimpleEdge) Kind() EdgeKind { return KindSimple }
func (*SimpleEdge) animEdge()      {}

// NoParam marks an OutputEdge weight that is not bound to a parameter.
const NoParam = -1

// OutputEdge feeds a weighted layer into a BlendNode.
type OutputEdge struct {
	// Weight is the layer's blend weight.
	Weight float32

	// Seek mirrors the source node's playback position after each evaluation.
	Seek float32

	// Speed scales the delta time the source node is advanced by.
	Speed float32

	// Layer orders inputs of the same blend; lower layers blend first.
	Layer int

	// WeightParam, when not NoParam, reads Weight from a float parameter every evaluation.
	WeightParam int
}

// NewOutputEdge creates an OutputEdge at normal speed with a fixed weight.
//
// Parameters:
//   - weight: the layer weight
//   - layer: the layer order
//
// Returns:
//   - *OutputEdge: the new edge
func NewOutputEdge(weight float32, layer int) *OutputEdge {
	return &OutputEdge{Weight: weight, Speed: 1, Layer: layer, WeightParam: NoParam}
}

func (*OutputEdge) Kind() EdgeKind { return KindOutput }
func (*OutputEdge) animEdge()      {}

// weight returns the effective layer weight for this evaluation.
func (e *OutputEdge) weight(p ParameterProvider) float32 {
	if e.WeightParam != NoParam {
		e.Weight = p.Float(e.WeightParam)
	}
	return e.Weight
}

// DefaultTransitionDuration is the cross-fade length used when none is given.
const DefaultTransitionDuration float32 = 0.2

// TransitionEdge is a timed cross-fade between two states of a state machine.
// Runtime fields are reset whenever the transition starts.
type TransitionEdge struct {
	// Name identifies the transition for RequestTransition.
	Name string

	// Seek1 and Seek2 mirror the source and target playback positions.
	Seek1, Seek2 float32

	// Weight1 and Weight2 are the source and target blend weights, summing to 1.
	Weight1, Weight2 float32

	// Speed1 and Speed2 scale the delta time of the source and target.
	Speed1, Speed2 float32

	// Duration is the cross-fade length in seconds. Zero or less completes instantly.
	Duration float32

	// Elapsed is the time spent in the cross-fade so far.
	Elapsed float32

	// Easing shapes the source weight over the cross-fade; nil means linear.
	Easing ease.TweenFunc

	// Conditions start the transition automatically once all of them hold.
	Conditions []Condition

	blend  *BlendNode
	layers [2]BlendLayer
}

// NewTransitionEdge creates a linear TransitionEdge at normal speeds.
//
// Parameters:
//   - name: the transition name
//   - duration: the cross-fade length in seconds
//
// Returns:
//   - *TransitionEdge: the new edge
func NewTransitionEdge(name string, duration float32) *TransitionEdge {
	return &TransitionEdge{
		Name:     name,
		Weight1:  1,
		Speed1:   1,
		Speed2:   1,
		Duration: duration,
		blend:    NewBlendNode(0),
	}
}

func (*TransitionEdge) Kind() EdgeKind { return KindTransition }
func (*TransitionEdge) animEdge()      {}

// Weights computes the source and target weights at the current Elapsed.
//
// Returns:
//   - float32: the source weight, in [0, 1]
//   - float32: the target weight, 1 minus the source weight
func (e *TransitionEdge) Weights() (float32, float32) {
	if e.Duration <= 0 {
		return 0, 1
	}
	fn := e.Easing
	if fn == nil {
		fn = ease.Linear
	}
	t := mgl32.Clamp(e.Elapsed, 0, e.Duration)
	w1 := common.Clamp01(fn(t, 1, -1, e.Duration))
	return w1, 1 - w1
}

// Progress returns how far the cross-fade has run, from 0 to 1.
func (e *TransitionEdge) Progress() float32 {
	if e.Duration <= 0 {
		return 1
	}
	return common.Clamp01(e.Elapsed / e.Duration)
}

// Complete reports whether the cross-fade has finished.
func (e *TransitionEdge) Complete() bool {
	return e.Duration <= 0 || e.Elapsed >= e.Duration
}

// reset clears runtime state before the transition starts.
func (e *TransitionEdge) reset(seek1 float32) {
	e.Seek1, e.Seek2 = seek1, 0
	e.Elapsed = 0
	e.Weight1, e.Weight2 = 1, 0
}

// advance moves the cross-fade forward by dt and refreshes the weights.
func (e *TransitionEdge) advance(dt float32) {
	e.Elapsed += dt
	e.Weight1, e.Weight2 = e.Weights()
}

// mix blends the source and target outputs with the current weights.
func (e *TransitionEdge) mix(from, to pose) pose {
	if e.blend == nil {
		e.blend = NewBlendNode(len(from.locals))
	}
	e.layers[0] = BlendLayer{Transforms: from.locals, Weight: e.Weight1}
	e.layers[1] = BlendLayer{Transforms: to.locals, Weight: e.Weight2}
	return pose{locals: e.blend.Blend(e.layers[:])}
}
