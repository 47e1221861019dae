package anim_graph

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ParameterProvider gives graph evaluation read-only access to a character's
// parameters, keyed by small integer indices. Out-of-range indices read as zero.
type ParameterProvider interface {
	Bool(index int) bool
	Float(index int) float32
	Int(index int) int64
	Uint(index int) uint64
	Vec3(index int) mgl32.Vec3
}

// NoParameters is a ParameterProvider whose every parameter reads as zero.
type NoParameters struct{}

var _ ParameterProvider = NoParameters{}

func (NoParameters) Bool(int) bool { return false }
func (NoParameters) Float(int) float32 { return 0 }
func (NoParameters) Int(int) int64 { return 0 }
func (NoParameters) Uint(int) uint64 { return 0 }
func (NoParameters) Vec3(int) mgl32.Vec3 { return mgl32.Vec3{} }

// ParamKind selects which parameter array a Condition reads.
type ParamKind uint8

const (
	ParamBool ParamKind = iota
	ParamFloat
	ParamInt
	ParamUint
	// ParamVec3Length compares the length of a vec3 parameter.
	ParamVec3Length
)

var paramKindNames = map[string]ParamKind{
	"bool":        ParamBool,
	"float":       ParamFloat,
	"int":         ParamInt,
	"uint":        ParamUint,
	"vec3_length": ParamVec3Length,
}

// CompareOp is the comparison a Condition applies.
type CompareOp uint8

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

var compareOpNames = map[string]CompareOp{
	"==": OpEqual,
	"!=": OpNotEqual,
	"<":  OpLess,
	"<=": OpLessEqual,
	">":  OpGreater,
	">=": OpGreaterEqual,
}

// Condition is a predicate over one parameter. A transition with conditions
// starts on its own once all of them hold while its source state is active.
// Bool parameters compare as 0 or 1.
type Condition struct {
	Kind  ParamKind
	Index int
	Op    CompareOp
	Value float64
}

// Holds evaluates the condition against a provider.
//
// Parameters:
//   - p: the parameter source
//
// Returns:
//   - bool: true if the condition is satisfied
func (c Condition) Holds(p ParameterProvider) bool {
	var v float64
	switch c.Kind {
	case ParamBool:
		if p.Bool(c.Index) {
			v = 1
		}
	case ParamFloat:
		v = float64(p.Float(c.Index))
	case ParamInt:
		v = float64(p.Int(c.Index))
	case ParamUint:
		v = float64(p.Uint(c.Index))
	case ParamVec3Length:
		v = float64(p.Vec3(c.Index).Len())
	default:
		panic(fmt.Sprintf("anim_graph: unknown parameter kind %d", c.Kind))
	}

	switch c.Op {
	case OpEqual:
		return v == c.Value
	case OpNotEqual:
		return v != c.Value
	case OpLess:
		return v < c.Value
	case OpLessEqual:
		return v <= c.Value
	case OpGreater:
		return v > c.Value
	case OpGreaterEqual:
		return v >= c.Value
	default:
		panic(fmt.Sprintf("anim_graph: unknown compare op %d", c.Op))
	}
}

// allHold reports whether every condition holds. An empty list never holds,
// so unconditioned transitions only start on request.
func allHold(conds []Condition, p ParameterProvider) bool {
	if len(conds) == 0 {
		return false
	}
	for _, c := range conds {
		if !c.Holds(p) {
			return false
		}
	}
	return true
}
