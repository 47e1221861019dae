package anim_graph

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func offset(x, y, z float32) model.Transform {
	t := model.IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

// testSkeleton returns a root -> spine -> head chain.
func testSkeleton(t testing.TB) *model.Skeleton {
	t.Helper()
	s, err := model.NewSkeleton([]model.Bone{
		{Name: "root", ParentIndex: -1, LocalTransform: model.IdentityTransform()},
		{Name: "spine", ParentIndex: 0, LocalTransform: offset(0, 1, 0)},
		{Name: "head", ParentIndex: 1, LocalTransform: offset(0, 1, 0)},
	})
	if err != nil {
		t.Fatalf("model.NewSkeleton:\nhave %v\nwant nil", err)
	}
	return s
}

// holdClip keeps the root joint at x for its whole duration.
func holdClip(name string, duration, x float32) *model.AnimationClip {
	return &model.AnimationClip{
		Name:     name,
		Duration: duration,
		Channels: []model.AnimationChannel{{
			BoneIndex:    0,
			PositionKeys: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{x, 0, 0}}},
		}},
	}
}

// rampClip moves the root joint from 0 to x over its duration.
func rampClip(name string, duration, x float32) *model.AnimationClip {
	return &model.AnimationClip{
		Name:     name,
		Duration: duration,
		Channels: []model.AnimationChannel{{
			BoneIndex: 0,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{}},
				{Time: duration, Value: mgl32.Vec3{x, 0, 0}},
			},
		}},
	}
}

type testParams struct {
	bools  []bool
	floats []float32
	ints   []int64
	uints  []uint64
	vecs   []mgl32.Vec3
}

func (p *testParams) Bool(i int) bool {
	if i < 0 || i >= len(p.bools) {
		return false
	}
	return p.bools[i]
}

func (p *testParams) Float(i int) float32 {
	if i < 0 || i >= len(p.floats) {
		return 0
	}
	return p.floats[i]
}

func (p *testParams) Int(i int) int64 {
	if i < 0 || i >= len(p.ints) {
		return 0
	}
	return p.ints[i]
}

func (p *testParams) Uint(i int) uint64 {
	if i < 0 || i >= len(p.uints) {
		return 0
	}
	return p.uints[i]
}

func (p *testParams) Vec3(i int) mgl32.Vec3 {
	if i < 0 || i >= len(p.vecs) {
		return mgl32.Vec3{}
	}
	return p.vecs[i]
}

func approx(a, b float32) bool {
	return mgl32.FloatEqualThreshold(a, b, 1e-5)
}

func mustAddNode(t testing.TB, g *Graph, name string, n AnimNode) NodeIndex {
	t.Helper()
	idx, err := g.AddNode(name, n)
	if err != nil {
		t.Fatalf("Graph.AddNode(%q):\nhave %v\nwant nil", name, err)
	}
	return idx
}

func mustAddEdge(t testing.TB, g *Graph, from, to NodeIndex, e AnimEdge) EdgeIndex {
	t.Helper()
	idx, err := g.AddEdge(from, to, e)
	if err != nil {
		t.Fatalf("Graph.AddEdge:\nhave %v\nwant nil", err)
	}
	return idx
}

func mustPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s:\nhave no panic\nwant panic", name)
		}
	}()
	f()
}
