package anim_graph

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSampleNodeLoopWraps(t *testing.T) {
	sk := testSkeleton(t)
	n := NewSampleNode(sk, rampClip("walk", 1, 1))
	n.Looping = true

	for _, dt := range []float32{0.6, 0.6} {
		if _, err := n.Advance(dt); err != nil {
			t.Fatalf("SampleNode.Advance:\nhave %v\nwant nil", err)
		}
	}
	if !approx(n.Seek, 0.2) {
		t.Fatalf("SampleNode.Seek after 0.6+0.6:\nhave %v\nwant 0.2", n.Seek)
	}
	if have := n.out[0].Translation.X(); !approx(have, 0.2) {
		t.Fatalf("SampleNode.Advance root x:\nhave %v\nwant 0.2", have)
	}
}

func TestSampleNodeLoopRange(t *testing.T) {
	sk := testSkeleton(t)
	const d = 0.75
	n := NewSampleNode(sk, rampClip("walk", d, 1))
	n.Looping = true

	for _, start := range []float32{0, 0.1, 0.5, 0.7499} {
		for _, dt := range []float32{0, 0.001, 0.25, 0.75, 1, 3.3, 100} {
			n.Seek = start
			if _, err := n.Advance(dt); err != nil {
				t.Fatal(err)
			}
			if n.Seek < 0 || n.Seek >= d {
				t.Fatalf("SampleNode.Advance(%v) from %v:\nhave seek %v\nwant 0 <= seek < %v", dt, start, n.Seek, d)
			}
		}
	}

	n.Speed = -1
	n.Seek = 0.1
	if _, err := n.Advance(0.3); err != nil {
		t.Fatal(err)
	}
	if !approx(n.Seek, 0.55) {
		t.Fatalf("SampleNode.Advance reverse:\nhave seek %v\nwant 0.55", n.Seek)
	}
}

func TestSampleNodeEndPolicy(t *testing.T) {
	sk := testSkeleton(t)

	n := NewSampleNode(sk, rampClip("jump", 1, 1))
	if _, err := n.Advance(1.5); err != nil {
		t.Fatal(err)
	}
	if n.Seek != 0 {
		t.Fatalf("SampleNode.Advance past end (restart):\nhave seek %v\nwant 0", n.Seek)
	}

	n = NewSampleNode(sk, rampClip("jump", 1, 1))
	n.EndPolicy = EndClamp
	if _, err := n.Advance(1.5); err != nil {
		t.Fatal(err)
	}
	if n.Seek != 1 {
		t.Fatalf("SampleNode.Advance past end (clamp):\nhave seek %v\nwant 1", n.Seek)
	}
	if have := n.out[0].Translation.X(); have != 1 {
		t.Fatalf("SampleNode.Advance past end (clamp) root x:\nhave %v\nwant 1", have)
	}
}

func TestSampleNodeErrors(t *testing.T) {
	sk := testSkeleton(t)
	if _, err := NewSampleNode(sk, nil).Advance(0.1); !errors.Is(err, ErrMissingClip) {
		t.Fatalf("SampleNode.Advance(no clip):\nhave %v\nwant %v", err, ErrMissingClip)
	}
	if _, err := NewSampleNode(sk, &model.AnimationClip{Name: "empty"}).Advance(0.1); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("SampleNode.Advance(zero duration):\nhave %v\nwant %v", err, ErrInvalidDuration)
	}
	n := NewSampleNode(sk, rampClip("walk", 1, 1))
	n.Seek = 0.5
	if _, err := n.Advance(-0.1); !errors.Is(err, ErrNegativeDelta) {
		t.Fatalf("SampleNode.Advance(-0.1):\nhave %v\nwant %v", err, ErrNegativeDelta)
	}
	if n.Seek != 0.5 {
		t.Fatalf("SampleNode.Seek after rejected advance:\nhave %v\nwant 0.5", n.Seek)
	}
}

func pose3(rot mgl32.Quat, xs ...float32) []model.Transform {
	out := make([]model.Transform, len(xs))
	for i, x := range xs {
		out[i] = model.Transform{
			Translation: mgl32.Vec3{x, float32(i), 0},
			Rotation:    rot,
			Scale:       mgl32.Vec3{1 + x, 1, 1},
		}
	}
	return out
}

func TestBlendIdentity(t *testing.T) {
	rot := mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	layer := pose3(rot, 0.5, -2, 3)
	b := NewBlendNode(3)
	have := b.Blend([]BlendLayer{{Transforms: layer, Weight: 1}})
	for j := range layer {
		if have[j] != layer[j] {
			t.Fatalf("BlendNode.Blend single layer joint %d:\nhave %v\nwant %v", j, have[j], layer[j])
		}
	}
}

func TestBlendScaleInvariance(t *testing.T) {
	a := pose3(mgl32.QuatIdent(), 0, 1, 2)
	c := pose3(mgl32.QuatRotate(1.1, mgl32.Vec3{1, 0, 0}), 4, 5, 6)

	one := append([]model.Transform(nil), NewBlendNode(3).Blend([]BlendLayer{{a, 1}, {c, 1}})...)
	two := NewBlendNode(3).Blend([]BlendLayer{{a, 2}, {c, 2}})
	for j := range one {
		if one[j] != two[j] {
			t.Fatalf("BlendNode.Blend (1,1) vs (2,2) joint %d:\nhave %v\nwant %v", j, two[j], one[j])
		}
	}
}

func TestBlendMean(t *testing.T) {
	standing := []model.Transform{offset(0, 0, 0), offset(0, 1, 0), offset(0, 2, 0)}
	running := []model.Transform{offset(2, 0, 0), offset(0, 3, 0), offset(4, 2, 2)}
	have := NewBlendNode(3).Blend([]BlendLayer{{standing, 0.5}, {running, 0.5}})
	for j := range have {
		want := standing[j].Translation.Add(running[j].Translation).Mul(0.5)
		if !have[j].Translation.ApproxEqualThreshold(want, 1e-6) {
			t.Fatalf("BlendNode.Blend mean joint %d:\nhave %v\nwant %v", j, have[j].Translation, want)
		}
	}
}

func TestBlendRotation(t *testing.T) {
	axis := mgl32.Vec3{0, 0, 1}
	a := []model.Transform{{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}}
	c := []model.Transform{{Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), axis), Scale: mgl32.Vec3{1, 1, 1}}}
	want := mgl32.QuatRotate(mgl32.DegToRad(45), axis)

	have := NewBlendNode(1).Blend([]BlendLayer{{a, 1}, {c, 1}})[0].Rotation
	if !have.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("BlendNode.Blend rotation:\nhave %v\nwant %v", have, want)
	}

	// The same orientation with a flipped sign must blend along the short arc.
	neg := c[0].Rotation.Scale(-1)
	c[0].Rotation = neg
	have = NewBlendNode(1).Blend([]BlendLayer{{a, 1}, {c, 1}})[0].Rotation
	if !have.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("BlendNode.Blend rotation (flipped):\nhave %v\nwant %v", have, want)
	}
	if l := have.Len(); !approx(l, 1) {
		t.Fatalf("BlendNode.Blend rotation length:\nhave %v\nwant 1", l)
	}
}

func TestBlendZeroWeights(t *testing.T) {
	a := pose3(mgl32.QuatIdent(), 1, 2, 3)
	c := pose3(mgl32.QuatIdent(), 7, 8, 9)
	for _, w := range [][2]float32{{0, 0}, {-1, 0}, {-1, -3}} {
		have := NewBlendNode(3).Blend([]BlendLayer{{a, w[0]}, {c, w[1]}})
		for j := range have {
			if have[j] != a[j] {
				t.Fatalf("BlendNode.Blend weights %v joint %d:\nhave %v\nwant %v", w, j, have[j], a[j])
			}
		}
	}

	// A negative weight counts as zero.
	have := NewBlendNode(3).Blend([]BlendLayer{{a, -5}, {c, 1}})
	for j := range have {
		if have[j] != c[j] {
			t.Fatalf("BlendNode.Blend negative weight joint %d:\nhave %v\nwant %v", j, have[j], c[j])
		}
	}
}

func TestBlendPanics(t *testing.T) {
	mustPanic(t, "BlendNode.Blend(no layers)", func() {
		NewBlendNode(3).Blend(nil)
	})
	mustPanic(t, "BlendNode.Blend(joint mismatch)", func() {
		NewBlendNode(3).Blend([]BlendLayer{
			{pose3(mgl32.QuatIdent(), 1, 2, 3), 1},
			{pose3(mgl32.QuatIdent(), 1, 2), 1},
		})
	})
}

func TestPropagate(t *testing.T) {
	sk := testSkeleton(t)
	locals := []model.Transform{
		{Translation: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 0}), Scale: mgl32.Vec3{1, 1, 1}},
		{Translation: mgl32.Vec3{0, 1, 0}, Rotation: mgl32.QuatRotate(-0.8, mgl32.Vec3{1, 0, 0}), Scale: mgl32.Vec3{2, 2, 2}},
		{Translation: mgl32.Vec3{0, 0.5, 0.25}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 0.5, 1}},
	}
	models := NewLocalToModelNode(sk).Propagate(locals)

	if have, want := models[0], locals[0].Matrix(); have != want {
		t.Fatalf("Propagate root:\nhave %v\nwant %v", have, want)
	}
	for j := 1; j < sk.JointCount(); j++ {
		p, _ := sk.ParentOf(j)
		if have, want := models[j], models[p].Mul4(locals[j].Matrix()); have != want {
			t.Fatalf("Propagate joint %d:\nhave %v\nwant %v", j, have, want)
		}
	}

	// head sits two units above the origin in the bind pose.
	bind := Propagate(sk, sk.BindPose(), make([]mgl32.Mat4, 3))
	if have := bind[2].Col(3).Vec3(); !have.ApproxEqualThreshold(mgl32.Vec3{0, 2, 0}, 1e-6) {
		t.Fatalf("Propagate bind head position:\nhave %v\nwant [0 2 0]", have)
	}

	mustPanic(t, "Propagate(short locals)", func() {
		Propagate(sk, locals[:2], make([]mgl32.Mat4, 3))
	})
}

func BenchmarkBlend(b *testing.B) {
	const joints = 64
	x := make([]model.Transform, joints)
	y := make([]model.Transform, joints)
	for j := range x {
		x[j] = offset(float32(j), 0, 0)
		y[j] = model.Transform{Translation: mgl32.Vec3{0, float32(j), 0}, Rotation: mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0}), Scale: mgl32.Vec3{1, 1, 1}}
	}
	n := NewBlendNode(joints)
	layers := []BlendLayer{{x, 0.3}, {y, 0.7}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Blend(layers)
	}
}

func BenchmarkPropagate(b *testing.B) {
	bones := make([]model.Bone, 64)
	for i := range bones {
		bones[i] = model.Bone{ParentIndex: int32(i - 1), LocalTransform: offset(0, 1, 0)}
	}
	sk, err := model.NewSkeleton(bones)
	if err != nil {
		b.Fatal(err)
	}
	n := NewLocalToModelNode(sk)
	locals := sk.BindPose()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Propagate(locals)
	}
}
