package character

import (
	"errors"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/anim_graph"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

const mixYAML = `
root: pose
nodes:
  - {name: pose, type: local_to_model}
  - {name: mix, type: blend}
  - {name: idle, type: sample, clip: idle, looping: true}
  - {name: walk, type: sample, clip: walk, looping: true}
edges:
  - {type: output, from: idle, to: mix, weight_param: 0}
  - {type: output, from: walk, to: mix, weight_param: 1, layer: 1}
  - {type: simple, from: mix, to: pose}
`

const machineYAML = `
root: loco
nodes:
  - name: loco
    type: state_machine
    start: idle
    nodes:
      - {name: idle, type: sample, clip: idle, looping: true}
      - {name: walk, type: sample, clip: walk, looping: true}
    edges:
      - {type: transition, from: idle, to: walk}
`

func hold(name string, x float32) *model.AnimationClip {
	return &model.AnimationClip{
		Name:     name,
		Duration: 1,
		Channels: []model.AnimationChannel{{
			BoneIndex:    0,
			PositionKeys: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{x, 0, 0}}},
		}},
	}
}

func testModel(t *testing.T) model.Model {
	t.Helper()
	up := model.IdentityTransform()
	up.Translation = mgl32.Vec3{0, 1, 0}
	sk, err := model.NewSkeleton([]model.Bone{
		{Name: "root", ParentIndex: -1, LocalTransform: model.IdentityTransform()},
		{Name: "spine", ParentIndex: 0, LocalTransform: up},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := model.NewModel(sk, model.WithName("hero"), model.WithAnimations(hold("idle", 0), hold("walk", 2)))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testCharacter(t *testing.T, src string, options ...CharacterBuilderOption) Character {
	t.Helper()
	def, err := anim_graph.ParseDefinition([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCharacterFromDefinition(testModel(t), def, options...)
	if err != nil {
		t.Fatalf("NewCharacterFromDefinition:\nhave %v\nwant nil", err)
	}
	return c
}

func rootX(c Character) float32 {
	return c.Output()[0].Col(3).X()
}

func TestCharacterParameterBlend(t *testing.T) {
	c := testCharacter(t, mixYAML, WithID(7), WithParamCounts(0, 2, 0, 0, 0))
	if c.ID() != 7 || !c.Enabled() || c.Model().Name() != "hero" {
		t.Fatalf("NewCharacterFromDefinition options:\nhave id %d, enabled %t, model %q\nwant 7, true, hero", c.ID(), c.Enabled(), c.Model().Name())
	}
	if _, floats, _, _, _ := c.Params().Counts(); floats != 2 {
		t.Fatalf("ParamTable float slots:\nhave %d\nwant 2", floats)
	}

	// Unset weights sum to zero and fall back to the first layer.
	if err := c.Evaluate(0.1); err != nil {
		t.Fatalf("Character.Evaluate:\nhave %v\nwant nil", err)
	}
	if have := rootX(c); have != 0 {
		t.Fatalf("root x with zero weights:\nhave %v\nwant 0", have)
	}

	c.Params().SetFloat(0, 1)
	c.Params().SetFloat(1, 3)
	if err := c.Evaluate(0.1); err != nil {
		t.Fatal(err)
	}
	if have := rootX(c); !mgl32.FloatEqualThreshold(have, 1.5, 1e-5) {
		t.Fatalf("root x with weights 1, 3:\nhave %v\nwant 1.5", have)
	}
	if have := c.Output()[1].Col(3).Vec3(); !have.ApproxEqualThreshold(mgl32.Vec3{1.5, 1, 0}, 1e-5) {
		t.Fatalf("spine position:\nhave %v\nwant [1.5 1 0]", have)
	}

	if err := c.Evaluate(-1); !errors.Is(err, anim_graph.ErrNegativeDelta) {
		t.Fatalf("Character.Evaluate(-1):\nhave %v\nwant %v", err, anim_graph.ErrNegativeDelta)
	}
}

func TestCharacterRequestTransition(t *testing.T) {
	c := testCharacter(t, machineYAML)

	if err := c.RequestTransition("walk"); !errors.Is(err, anim_graph.ErrMissingTarget) {
		t.Fatalf("Character.RequestTransition(walk) at top level:\nhave %v\nwant %v", err, anim_graph.ErrMissingTarget)
	}
	if err := c.RequestTransition("walk", "nope"); !errors.Is(err, anim_graph.ErrUnresolvedReference) {
		t.Fatalf("Character.RequestTransition(walk, nope):\nhave %v\nwant %v", err, anim_graph.ErrUnresolvedReference)
	}
	if err := c.RequestTransition("walk", "loco"); err != nil {
		t.Fatalf("Character.RequestTransition(walk, loco):\nhave %v\nwant nil", err)
	}

	if err := c.Evaluate(anim_graph.DefaultTransitionDuration); err != nil {
		t.Fatal(err)
	}
	sm, _ := c.Graph().StateMachine("loco")
	if !sm.OnNode() || sm.Graph().NodeName(sm.ActiveNode()) != "walk" {
		t.Fatalf("state after transition:\nhave %q, on node %t\nwant walk, true", sm.Graph().NodeName(sm.ActiveNode()), sm.OnNode())
	}
	if have := rootX(c); !mgl32.FloatEqualThreshold(have, 2, 1e-5) {
		t.Fatalf("root x after transition:\nhave %v\nwant 2", have)
	}
}

func TestCharacterWorldMatrix(t *testing.T) {
	c := testCharacter(t, mixYAML,
		WithPosition(1, 2, 3),
		WithOrientation(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}).Scale(2)),
		WithEnabled(false),
	)
	if c.Enabled() {
		t.Fatal("Character.Enabled:\nhave true\nwant false")
	}
	if l := c.Orientation().Len(); !mgl32.FloatEqualThreshold(l, 1, 1e-6) {
		t.Fatalf("Character.Orientation length:\nhave %v\nwant 1", l)
	}

	have := c.WorldMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if want := (mgl32.Vec3{1, 2, 2}); !have.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("Character.WorldMatrix * x:\nhave %v\nwant %v", have, want)
	}

	c.SetOrientation(mgl32.Quat{})
	c.SetPosition(mgl32.Vec3{})
	if have := c.WorldMatrix(); have != mgl32.Ident4() {
		t.Fatalf("Character.WorldMatrix at origin:\nhave %v\nwant identity", have)
	}
}

func TestNewCharacterFromDefinitionError(t *testing.T) {
	def := &anim_graph.GraphDefinition{
		Root:  "a",
		Nodes: []anim_graph.NodeDefinition{{Name: "a", Type: "sample", Clip: "swim"}},
	}
	c, err := NewCharacterFromDefinition(testModel(t), def)
	if !errors.Is(err, anim_graph.ErrUnresolvedReference) || c != nil {
		t.Fatalf("NewCharacterFromDefinition(missing clip):\nhave %v, %v\nwant nil, %v", c, err, anim_graph.ErrUnresolvedReference)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("NewCharacter(nil):\nhave no panic\nwant panic")
		}
	}()
	NewCharacter(nil)
}

func TestParamTable(t *testing.T) {
	p := NewParamTable(1, 0, 0, 0, 0)
	if p.Bool(0) || p.Float(3) != 0 || p.Int(-1) != 0 || p.Uint(9) != 0 || p.Vec3(2) != (mgl32.Vec3{}) {
		t.Fatal("ParamTable: unset parameters are not zero")
	}

	p.SetBool(0, true)
	p.SetFloat(3, 0.5)
	p.SetInt(1, -4)
	p.SetUint(0, 8)
	p.SetVec3(2, mgl32.Vec3{3, 4, 0})
	if !p.Bool(0) || p.Float(3) != 0.5 || p.Int(1) != -4 || p.Uint(0) != 8 || p.Vec3(2).Len() != 5 {
		t.Fatal("ParamTable: stored parameters do not read back")
	}
	b, f, i, u, v := p.Counts()
	if b != 1 || f != 4 || i != 2 || u != 1 || v != 3 {
		t.Fatalf("ParamTable.Counts:\nhave %d %d %d %d %d\nwant 1 4 2 1 3", b, f, i, u, v)
	}

	p.Reset()
	if p.Bool(0) || p.Float(3) != 0 {
		t.Fatal("ParamTable.Reset: parameters not cleared")
	}
	if _, f, _, _, _ := p.Counts(); f != 4 {
		t.Fatalf("ParamTable.Reset float slots:\nhave %d\nwant 4", f)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("ParamTable.SetFloat(-1):\nhave no panic\nwant panic")
		}
	}()
	p.SetFloat(-1, 1)
}

func TestCharacterConcurrentParams(t *testing.T) {
	c := testCharacter(t, mixYAML)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 100 {
			c.Params().SetFloat(i%2, float32(i))
		}
	}()
	for range 100 {
		if err := c.Evaluate(0.01); err != nil {
			t.Error(err)
			break
		}
	}
	wg.Wait()
}
