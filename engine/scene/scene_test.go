package scene

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/anim_graph"
	"github.com/Carmen-Shannon/oxy-anim/engine/character"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/skinned_model"
	"github.com/go-gl/mathgl/mgl32"
)

const walkYAML = `
root: walk
nodes:
  - {name: walk, type: sample, clip: walk, looping: true}
`

// fakeWriter records every write it is handed.
type fakeWriter struct {
	mu     sync.Mutex
	calls  int
	writes []bind_group_provider.BufferWrite
}

func (w *fakeWriter) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.writes = append(w.writes, writes...)
}

func testModel(t *testing.T, joints int) model.Model {
	t.Helper()
	bones := []model.Bone{{Name: "root", ParentIndex: -1, LocalTransform: model.IdentityTransform()}}
	for j := 1; j < joints; j++ {
		up := model.IdentityTransform()
		up.Translation = mgl32.Vec3{0, 1, 0}
		bones = append(bones, model.Bone{Name: fmt.Sprintf("joint%d", j), ParentIndex: int32(j - 1), LocalTransform: up})
	}
	sk, err := model.NewSkeleton(bones)
	if err != nil {
		t.Fatal(err)
	}
	walk := &model.AnimationClip{
		Name:     "walk",
		Duration: 1,
		Channels: []model.AnimationChannel{{
			BoneIndex:    0,
			PositionKeys: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{2, 0, 0}}},
		}},
	}
	m, err := model.NewModel(sk, model.WithAnimations(walk))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testCharacter(t *testing.T, m model.Model, options ...character.CharacterBuilderOption) character.Character {
	t.Helper()
	def, err := anim_graph.ParseDefinition([]byte(walkYAML))
	if err != nil {
		t.Fatal(err)
	}
	c, err := character.NewCharacterFromDefinition(m, def, options...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	s, err := NewScene("test", append([]SceneBuilderOption{WithComputeWorkers(2)}, options...)...)
	if err != nil {
		t.Fatalf("NewScene:\nhave %v\nwant nil", err)
	}
	t.Cleanup(s.Release)
	return s
}

func TestScenePrepareFrame(t *testing.T) {
	m := testModel(t, 2)
	w := &fakeWriter{}
	s := newTestScene(t, WithBufferWriter(w), WithActive(true))

	a := testCharacter(t, m, character.WithPosition(0, 0, 5))
	b := testCharacter(t, m, character.WithPosition(1, 0, 0))
	idA, err := s.Add(a)
	if err != nil {
		t.Fatalf("Scene.Add:\nhave %v\nwant nil", err)
	}
	idB, _ := s.Add(b)
	if idA == 0 || idB == idA || s.Count() != 2 || !s.Active() {
		t.Fatalf("Scene.Add ids:\nhave %d, %d (count %d)\nwant distinct non-zero", idA, idB, s.Count())
	}
	if len(s.SkinnedModels()) != 1 {
		t.Fatalf("len(Scene.SkinnedModels) with one skeleton:\nhave %d\nwant 1", len(s.SkinnedModels()))
	}

	stats := s.PrepareFrame(0.1)
	if stats.Evaluated != 2 || stats.Skipped != 0 {
		t.Fatalf("Scene.PrepareFrame stats:\nhave %+v\nwant 2 evaluated, 0 skipped", stats)
	}
	if w.calls != 1 || stats.Writes != len(w.writes) || len(w.writes) != 2 {
		t.Fatalf("BufferWriter:\nhave %d calls, %d writes (stats %d)\nwant 1 call, 2 writes", w.calls, len(w.writes), stats.Writes)
	}

	sm, instance, ok := s.InstanceOf(idB)
	if !ok {
		t.Fatal("Scene.InstanceOf(b): not found")
	}
	for j, bone := range sm.BoneMatrices(instance) {
		if want := mgl32.Translate3D(2, 0, 0); !bone.Matrix.ApproxEqualThreshold(want, 1e-5) {
			t.Fatalf("bone %d of b:\nhave %v\nwant %v", j, bone.Matrix, want)
		}
	}
	if have := sm.InstanceTransform(instance); have != b.WorldMatrix() {
		t.Fatalf("instance transform of b:\nhave %v\nwant %v", have, b.WorldMatrix())
	}

	// Moving a character updates its instance on the next frame.
	b.SetPosition(mgl32.Vec3{4, 0, 0})
	s.PrepareFrame(0.1)
	if have := sm.InstanceTransform(instance).Col(3).X(); have != 4 {
		t.Fatalf("instance x after move:\nhave %v\nwant 4", have)
	}
}

func TestSceneSkipsFailingAndDisabled(t *testing.T) {
	m := testModel(t, 2)
	s := newTestScene(t)

	good := testCharacter(t, m)
	broken := testCharacter(t, m)
	off := testCharacter(t, m, character.WithEnabled(false))
	idx, ok := broken.Graph().Graph().NodeByName("walk")
	if !ok {
		t.Fatal("walk node not found")
	}
	n, _ := broken.Graph().Graph().Node(idx)
	n.(*anim_graph.SampleNode).SetClip(nil)

	for _, c := range []character.Character{good, broken, off} {
		if _, err := s.Add(c); err != nil {
			t.Fatal(err)
		}
	}

	stats := s.PrepareFrame(0.1)
	if stats.Evaluated != 1 || stats.Skipped != 1 {
		t.Fatalf("Scene.PrepareFrame stats:\nhave %+v\nwant 1 evaluated, 1 skipped", stats)
	}

	// Characters that did not evaluate keep their rest pose.
	for _, c := range []character.Character{broken, off} {
		sm, instance, _ := s.InstanceOf(c.ID())
		if have := sm.BoneMatrices(instance)[0].Matrix; have != mgl32.Ident4() {
			t.Fatalf("bone 0 of character %d:\nhave %v\nwant identity", c.ID(), have)
		}
	}
	if off.Graph().Frame() != 0 {
		t.Fatalf("disabled character frames:\nhave %d\nwant 0", off.Graph().Frame())
	}
}

func TestSceneRemove(t *testing.T) {
	m := testModel(t, 2)
	s := newTestScene(t)

	var ids []uint64
	for range 3 {
		id, err := s.Add(testCharacter(t, m))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	if !s.Remove(ids[0]) {
		t.Fatal("Scene.Remove(first):\nhave false\nwant true")
	}
	if s.Remove(ids[0]) {
		t.Fatal("Scene.Remove(removed):\nhave true\nwant false")
	}
	if s.Get(ids[0]) != nil || s.Count() != 2 {
		t.Fatalf("Scene after Remove:\nhave count %d\nwant 2 and the removed character gone", s.Count())
	}

	// The last instance was swapped into the freed slot.
	sm, instance, ok := s.InstanceOf(ids[2])
	if !ok || instance != 0 {
		t.Fatalf("Scene.InstanceOf(last):\nhave %d, %t\nwant 0, true", instance, ok)
	}
	if sm.InstanceCount() != 2 {
		t.Fatalf("SkinnedModel.InstanceCount:\nhave %d\nwant 2", sm.InstanceCount())
	}
	if _, second, _ := s.InstanceOf(ids[1]); second != 1 {
		t.Fatalf("Scene.InstanceOf(second):\nhave %d\nwant 1", second)
	}

	s.Clear()
	if s.Count() != 0 || len(s.SkinnedModels()) != 0 {
		t.Fatal("Scene.Clear left characters or skinned models")
	}
}

func TestSceneGrowAndSkeletons(t *testing.T) {
	short, tall := testModel(t, 2), testModel(t, 3)
	w := &fakeWriter{}
	s := newTestScene(t, WithMaxInstances(1), WithBufferWriter(w))

	for range 3 {
		if _, err := s.Add(testCharacter(t, short)); err != nil {
			t.Fatal(err)
		}
	}
	tallID, err := s.Add(testCharacter(t, tall))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.SkinnedModels()) != 2 {
		t.Fatalf("len(Scene.SkinnedModels) with two skeletons:\nhave %d\nwant 2", len(s.SkinnedModels()))
	}

	sm, _, _ := s.InstanceOf(1)
	if !sm.NeedsRebuild() || sm.MaxInstances() != 8 {
		t.Fatalf("grown SkinnedModel:\nhave rebuild %t, max %d\nwant true, 8", sm.NeedsRebuild(), sm.MaxInstances())
	}

	stats := s.PrepareFrame(0.1)
	if sm.NeedsRebuild() {
		t.Fatal("SkinnedModel.NeedsRebuild after PrepareFrame:\nhave true\nwant false")
	}
	if stats.Evaluated != 4 || stats.Writes != 4 {
		t.Fatalf("Scene.PrepareFrame stats:\nhave %+v\nwant 4 evaluated, 4 writes", stats)
	}
	tallModel, _, _ := s.InstanceOf(tallID)
	if tallModel.JointCount() != 3 || tallModel == sm {
		t.Fatal("tall character shares the short skeleton's SkinnedModel")
	}
}

func TestSceneAddErrors(t *testing.T) {
	m := testModel(t, 2)
	errInit := errors.New("no device")
	failing := func(s *scene) {
		s.initBuffers = func(skinned_model.SkinnedModel) error { return errInit }
	}

	sc, err := NewScene("broken", failing, WithCharacters(testCharacter(t, m)))
	if !errors.Is(err, errInit) || sc != nil {
		t.Fatalf("NewScene with failing buffers:\nhave %v, %v\nwant nil, %v", sc, err, errInit)
	}

	s := newTestScene(t, WithCharacters(testCharacter(t, m, character.WithID(5))))
	if s.Get(5) == nil {
		t.Fatal("WithCharacters: character 5 not registered")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Scene.Add(duplicate ID):\nhave no panic\nwant panic")
		}
	}()
	s.Add(testCharacter(t, m, character.WithID(5)))
}

// settledGoroutines waits for the goroutine count to drop to at most limit
// and returns the last count seen.
func settledGoroutines(limit int) int {
	n := runtime.NumGoroutine()
	for deadline := time.Now().Add(2 * time.Second); n > limit && time.Now().Before(deadline); n = runtime.NumGoroutine() {
		time.Sleep(10 * time.Millisecond)
	}
	return n
}

func TestSceneReleaseStopsWorkers(t *testing.T) {
	m := testModel(t, 2)
	before := runtime.NumGoroutine()

	for range 10 {
		s, err := NewScene("workers", WithComputeWorkers(4), WithCharacters(testCharacter(t, m)))
		if err != nil {
			t.Fatal(err)
		}
		s.PrepareFrame(0.1)
		s.Release()
		s.Release()
	}

	// A scene whose initial characters fail to add stops its workers too.
	failing := func(s *scene) {
		s.initBuffers = func(skinned_model.SkinnedModel) error { return errors.New("no device") }
	}
	for range 10 {
		if _, err := NewScene("broken", WithComputeWorkers(4), failing, WithCharacters(testCharacter(t, m))); err == nil {
			t.Fatal("NewScene with failing buffers:\nhave nil\nwant error")
		}
	}

	if after := settledGoroutines(before + 2); after > before+2 {
		t.Fatalf("goroutines after Release:\nhave %d\nwant <= %d", after, before+2)
	}
}
