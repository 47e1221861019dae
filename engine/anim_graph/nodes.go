package anim_graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeKind identifies the concrete type behind an AnimNode.
type NodeKind uint8

const (
	KindSample NodeKind = iota
	KindBlend
	KindLocalToModel
	KindStateMachine
)

func (k NodeKind) String() string {
	switch k {
	case KindSample:
		return "sample"
	case KindBlend:
		return "blend"
	case KindLocalToModel:
		return "local_to_model"
	case KindStateMachine:
		return "state_machine"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// AnimNode is implemented by SampleNode, BlendNode, LocalToModelNode and
// StateMachineNode only. Evaluation dispatches on the concrete type.
type AnimNode interface {
	// Kind reports the concrete node type.
	Kind() NodeKind

	animNode()
}

var (
	_ AnimNode = &SampleNode{}
	_ AnimNode = &BlendNode{}
	_ AnimNode = &LocalToModelNode{}
	_ AnimNode = &StateMachineNode{}
)

// --- SampleNode ---

// EndPolicy decides what a non-looping SampleNode does once it reaches the end of its clip.
type EndPolicy uint8

const (
	// EndRestart jumps back to the first frame when the seek reaches the clip duration.
	EndRestart EndPolicy = iota

	// EndClamp holds the last frame.
	EndClamp
)

// SampleNode plays a single clip, producing one local transform per joint.
type SampleNode struct {
	// Seek is the playback position in seconds.
	Seek float32

	// Speed multiplies the delta time on every advance.
	Speed float32

	// Looping wraps the seek into [0, duration).
	Looping bool

	// EndPolicy applies when Looping is false.
	EndPolicy EndPolicy

	clip     *model.AnimationClip
	bindPose []model.Transform
	out      []model.Transform
}

// NewSampleNode creates a SampleNode playing clip at normal speed.
//
// Parameters:
//   - skeleton: the skeleton the clip is sampled for
//   - clip: the clip to play (nil leaves the node unbound)
//
// Returns:
//   - *SampleNode: the new node
func NewSampleNode(skeleton *model.Skeleton, clip *model.AnimationClip) *SampleNode {
	if skeleton == nil {
		panic("anim_graph: NewSampleNode requires a skeleton")
	}
	return &SampleNode{
		Speed:    1,
		clip:     clip,
		bindPose: skeleton.BindPose(),
		out:      make([]model.Transform, skeleton.JointCount()),
	}
}

func (*SampleNode) Kind() NodeKind { return KindSample }
func (*SampleNode) animNode()      {}

// Clip returns the bound clip, or nil.
func (n *SampleNode) Clip() *model.AnimationClip {
	return n.clip
}

// SetClip rebinds the node to another clip and rewinds it.
func (n *SampleNode) SetClip(clip *model.AnimationClip) {
	n.clip = clip
	n.Seek = 0
}

// Advance moves the playback position by dt*Speed and samples the clip there.
//
// Parameters:
//   - dt: the elapsed time in seconds, not negative
//
// Returns:
//   - []model.Transform: the sampled local transforms, owned by the node
//   - error: ErrMissingClip, ErrInvalidDuration or ErrNegativeDelta
func (n *SampleNode) Advance(dt float32) ([]model.Transform, error) {
	if n.clip == nil {
		return nil, ErrMissingClip
	}
	d := n.clip.Duration
	if d <= 0 {
		return nil, fmt.Errorf("%w: %q has duration %v", ErrInvalidDuration, n.clip.Name, d)
	}
	if dt < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeDelta, dt)
	}

	n.Seek += dt * n.Speed
	switch {
	case n.Looping:
		n.Seek = common.Wrap(n.Seek, d)
	case n.EndPolicy == EndClamp:
		n.Seek = mgl32.Clamp(n.Seek, 0, d)
	case n.Seek >= d || n.Seek < 0:
		n.Seek = 0
	}

	n.clip.Sample(n.Seek/d, n.bindPose, n.out)
	return n.out, nil
}

// --- BlendNode ---

// BlendLayer is one weighted input of a blend.
type BlendLayer struct {
	Transforms []model.Transform
	Weight     float32
}

// BlendNode mixes any number of local-transform buffers by weight.
type BlendNode struct {
	out    []model.Transform
	layers []BlendLayer
	inputs []blendInput
}

// NewBlendNode creates a BlendNode with an output buffer sized for jointCount joints.
// The buffer resizes if later inputs carry a different joint count.
//
// Parameters:
//   - jointCount: the expected joint count
//
// Returns:
//   - *BlendNode: the new node
func NewBlendNode(jointCount int) *BlendNode {
	return &BlendNode{out: make([]model.Transform, jointCount)}
}

func (*BlendNode) Kind() NodeKind { return KindBlend }
func (*BlendNode) animNode()      {}

// Blend combines layers into the node's output buffer. Negative weights count
// as zero and the rest are normalized by their sum; when nothing is left,
// layer 0 is passed through unweighted. Translation and scale are averaged,
// rotation is accumulated by nlerp in layer order along the shortest arc.
// Panics if there are no layers or the layers disagree on joint count.
//
// Parameters:
//   - layers: the weighted inputs
//
// Returns:
//   - []model.Transform: the blended local transforms, owned by the node
func (b *BlendNode) Blend(layers []BlendLayer) []model.Transform {
	if len(layers) == 0 {
		panic("anim_graph: Blend requires at least one layer")
	}
	n := len(layers[0].Transforms)
	var sum float32
	for i, l := range layers {
		if len(l.Transforms) != n {
			panic(fmt.Sprintf("anim_graph: Blend layer %d has %d joints, layer 0 has %d", i, len(l.Transforms), n))
		}
		sum += max(l.Weight, 0)
	}
	if cap(b.out) < n {
		b.out = make([]model.Transform, n)
	}
	b.out = b.out[:n]

	if sum <= 0 {
		copy(b.out, layers[0].Transforms)
		return b.out
	}

	for j := range n {
		var t, s mgl32.Vec3
		var q mgl32.Quat
		var acc float32
		for _, l := range layers {
			w := max(l.Weight, 0)
			if w == 0 {
				continue
			}
			nw := w / sum
			x := &l.Transforms[j]
			t = t.Add(x.Translation.Mul(nw))
			s = s.Add(x.Scale.Mul(nw))

			r := x.Rotation
			if acc == 0 {
				q, acc = r, nw
				continue
			}
			if q.Dot(r) < 0 {
				r = r.Scale(-1)
			}
			acc += nw
			q = mgl32.QuatNlerp(q, r, nw/acc)
		}
		b.out[j] = model.Transform{Translation: t, Rotation: q, Scale: s}
	}
	return b.out
}

// --- LocalToModelNode ---

// LocalToModelNode resolves the joint hierarchy, turning local transforms into model-space matrices.
type LocalToModelNode struct {
	skeleton *model.Skeleton
	out      []mgl32.Mat4
}

// NewLocalToModelNode creates a LocalToModelNode for a skeleton.
//
// Parameters:
//   - skeleton: the joint hierarchy
//
// Returns:
//   - *LocalToModelNode: the new node
func NewLocalToModelNode(skeleton *model.Skeleton) *LocalToModelNode {
	if skeleton == nil {
		panic("anim_graph: NewLocalToModelNode requires a skeleton")
	}
	return &LocalToModelNode{
		skeleton: skeleton,
		out:      make([]mgl32.Mat4, skeleton.JointCount()),
	}
}

func (*LocalToModelNode) Kind() NodeKind { return KindLocalToModel }
func (*LocalToModelNode) animNode()      {}

// Propagate converts locals into the node's model-space output buffer.
//
// Parameters:
//   - locals: one local transform per joint
//
// Returns:
//   - []mgl32.Mat4: the model-space matrices, owned by the node
func (n *LocalToModelNode) Propagate(locals []model.Transform) []mgl32.Mat4 {
	return Propagate(n.skeleton, locals, n.out)
}

// Propagate chains local transforms down the hierarchy: a root joint's model
// matrix is its local matrix, any other joint's is its parent's model matrix
// times its local matrix. Panics if either buffer does not match the joint count.
//
// Parameters:
//   - skeleton: the joint hierarchy
//   - locals: one local transform per joint
//   - out: the destination, one matrix per joint
//
// Returns:
//   - []mgl32.Mat4: out, filled
func Propagate(skeleton *model.Skeleton, locals []model.Transform, out []mgl32.Mat4) []mgl32.Mat4 {
	jc := skeleton.JointCount()
	if len(locals) != jc || len(out) != jc {
		panic(fmt.Sprintf("anim_graph: Propagate has %d locals and %d outputs for %d joints", len(locals), len(out), jc))
	}
	for j := range jc {
		local := locals[j].Matrix()
		if p, ok := skeleton.ParentOf(j); ok {
			out[j] = out[p].Mul4(local)
		} else {
			out[j] = local
		}
	}
	return out
}
