package scene

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/engine/character"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/skinned_model"
)

// Scene manages a collection of Characters and the SkinnedModels their poses are
// skinned into. Characters sharing a Skeleton share one SkinnedModel, each owning
// one instance slot.
// Scenes can be hot-swapped via the Active flag to switch between crowds or levels.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is evaluated by the engine.
	Active() bool

	// SetActive sets whether this scene is evaluated by the engine.
	SetActive(active bool)

	// Count returns the number of characters in the scene.
	//
	// Returns:
	//   - int: count of registered characters
	Count() int

	// Add adds a Character to the scene. A character without an ID is assigned
	// the next free one. The scene creates a SkinnedModel for the character's
	// skeleton on first use and adds an instance seeded with the character's
	// world transform.
	//
	// Panics if the character is nil or its ID is already registered.
	//
	// Parameters:
	//   - c: the Character to add
	//
	// Returns:
	//   - uint64: the assigned character ID
	//   - error: error if GPU buffers for a new SkinnedModel could not be created
	Add(c character.Character) (uint64, error)

	// Get retrieves a Character by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the character's unique ID
	//
	// Returns:
	//   - character.Character: the character or nil
	Get(id uint64) character.Character

	// Remove removes a Character by ID and swap-removes its instance from its
	// SkinnedModel.
	//
	// Parameters:
	//   - id: the character's unique ID
	//
	// Returns:
	//   - bool: false if no character had the ID
	Remove(id uint64) bool

	// Clear removes all characters and releases every SkinnedModel.
	Clear()

	// SkinnedModels returns the scene's SkinnedModels, one per distinct skeleton.
	//
	// Returns:
	//   - []skinned_model.SkinnedModel: the skinned models in no particular order
	SkinnedModels() []skinned_model.SkinnedModel

	// InstanceOf returns the SkinnedModel and instance slot a character is skinned into.
	//
	// Parameters:
	//   - id: the character's unique ID
	//
	// Returns:
	//   - skinned_model.SkinnedModel: the character's SkinnedModel
	//   - uint32: the instance index within it
	//   - bool: false if no character had the ID
	InstanceOf(id uint64) (skinned_model.SkinnedModel, uint32, bool)

	// PrepareFrame evaluates every enabled character in parallel, skins the
	// resulting poses into their SkinnedModels, then flushes the dirty ranges
	// to the BufferWriter in one coalesced submission. A character whose
	// evaluation fails is logged and skipped; its previous pose stays uploaded.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - FrameStats: what the frame did
	PrepareFrame(deltaTime float32) FrameStats

	// Release releases every SkinnedModel and stops the compute workers.
	// The scene must not be evaluated afterwards; calling Release again is a no-op.
	Release()
}

// FrameStats summarizes one PrepareFrame call.
type FrameStats struct {
	Evaluated int
	Skipped   int
	Writes    int
	Duration  time.Duration
}

// maxTasksPerFrame bounds the tasks PrepareFrame queues on the worker pool.
const maxTasksPerFrame = 256

// entry is a registered character and where its pose is skinned.
type entry struct {
	c        character.Character
	sm       skinned_model.SkinnedModel
	instance uint32
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	registry map[uint64]*entry
	skinned  map[*model.Skeleton]skinned_model.SkinnedModel
	nextID   uint64

	writer       renderer.BufferWriter
	initBuffers  func(skinned_model.SkinnedModel) error
	maxInstances int

	pending []character.Character // added by WithCharacters once the scene is built

	// Pre-allocated slices reused each frame to avoid per-frame allocations.
	writePool []bind_group_provider.BufferWrite
	taskPool  []*entry

	// computePool runs character evaluation. Workers persist across frames.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new inactive Scene. Without WithBufferWriter the scene
// evaluates headless and discards its buffer writes; without WithDevice no GPU
// buffers are created.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
//   - error: error if a character given through WithCharacters could not be added
func NewScene(name string, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		registry:       make(map[uint64]*entry),
		skinned:        make(map[*model.Skeleton]skinned_model.SkinnedModel),
		nextID:         1,
		writer:         renderer.Discard,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)

	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		if _, err := s.Add(c); err != nil {
			s.Release()
			return nil, fmt.Errorf("scene %q: %w", name, err)
		}
	}
	return s, nil
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(c character.Character) (uint64, error) {
	if c == nil {
		panic("scene: Add requires a non-nil Character")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID() == 0 {
		for s.registry[s.nextID] != nil {
			s.nextID++
		}
		c.SetID(s.nextID)
		s.nextID++
	}
	id := c.ID()
	if _, exists := s.registry[id]; exists {
		panic(fmt.Sprintf("scene: character ID %d is already registered", id))
	}

	sm, err := s.skinnedModelFor(c.Skeleton())
	if err != nil {
		return 0, err
	}
	instance := sm.AddInstance()
	sm.SetInstanceTransform(instance, c.WorldMatrix())
	s.registry[id] = &entry{c: c, sm: sm, instance: instance}
	return id, nil
}

// skinnedModelFor returns the SkinnedModel for a skeleton, creating it and its
// GPU buffers on first use. Caller must hold the write lock.
func (s *scene) skinnedModelFor(sk *model.Skeleton) (skinned_model.SkinnedModel, error) {
	if sm, ok := s.skinned[sk]; ok {
		return sm, nil
	}

	var opts []skinned_model.SkinnedModelBuilderOption
	if s.maxInstances > 0 {
		opts = append(opts, skinned_model.WithMaxInstances(s.maxInstances))
	}
	sm := skinned_model.NewSkinnedModel(sk, opts...)
	if s.initBuffers != nil {
		if err := s.initBuffers(sm); err != nil {
			sm.Release()
			return nil, fmt.Errorf("skinned model for %d joints: %w", sm.JointCount(), err)
		}
	}
	s.skinned[sk] = sm
	return sm, nil
}

func (s *scene) Get(id uint64) character.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.registry[id]; ok {
		return e.c
	}
	return nil
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.registry[id]
	if !exists {
		return false
	}
	delete(s.registry, id)

	swappedFrom, swapped := e.sm.RemoveInstance(e.instance)
	if swapped {
		// The instance at swappedFrom was moved into the removed slot; find the
		// character that owned it and update its stored index.
		for _, o := range s.registry {
			if o.sm == e.sm && o.instance == swappedFrom {
				o.instance = e.instance
				break
			}
		}
	}
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sm := range s.skinned {
		sm.Release()
	}
	s.registry = make(map[uint64]*entry)
	s.skinned = make(map[*model.Skeleton]skinned_model.SkinnedModel)
}

func (s *scene) SkinnedModels() []skinned_model.SkinnedModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]skinned_model.SkinnedModel, 0, len(s.skinned))
	for _, sm := range s.skinned {
		out = append(out, sm)
	}
	return out
}

func (s *scene) InstanceOf(id uint64) (skinned_model.SkinnedModel, uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.registry[id]
	if !ok {
		return nil, 0, false
	}
	return e.sm, e.instance, true
}

func (s *scene) PrepareFrame(deltaTime float32) FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	// Models that grew since the last frame need new buffers before they can
	// stage writes.
	for _, sm := range s.skinned {
		if !sm.NeedsRebuild() {
			continue
		}
		if s.initBuffers == nil {
			sm.ClearNeedsRebuild()
			continue
		}
		if err := s.initBuffers(sm); err != nil {
			log.Printf("[Scene] %s: rebuilding skinned model buffers: %v", s.name, err)
		}
	}

	// Phase 1: parallel evaluation. Characters are split into contiguous
	// chunks, one task per chunk; each character writes only its own
	// instance slot.
	tasks := s.taskPool[:0]
	for _, e := range s.registry {
		if e.c.Enabled() {
			tasks = append(tasks, e)
		}
	}
	s.taskPool = tasks

	var (
		wg      sync.WaitGroup
		statsMu sync.Mutex
		stats   FrameStats
	)
	chunks := min(len(tasks), s.computeWorkers*4, maxTasksPerFrame)
	taskID := 0
	for i := range chunks {
		chunk := tasks[i*len(tasks)/chunks : (i+1)*len(tasks)/chunks]
		wg.Add(1)
		id := taskID
		taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()

				evaluated, skipped := 0, 0
				for _, e := range chunk {
					if err := e.c.Evaluate(deltaTime); err != nil {
						log.Printf("[Scene] %s: character %d skipped: %v", s.name, e.c.ID(), err)
						skipped++
						continue
					}
					e.sm.Skin(e.instance, e.c.Output())
					e.sm.SetInstanceTransform(e.instance, e.c.WorldMatrix())
					evaluated++
				}

				statsMu.Lock()
				stats.Evaluated += evaluated
				stats.Skipped += skipped
				statsMu.Unlock()
				return nil, nil
			},
		})
	}
	wg.Wait()

	// Phase 2: coalesced GPU submission. Collect every model's staged writes
	// into one slice and hand it to the writer once.
	allWrites := s.writePool[:0]
	for _, sm := range s.skinned {
		sm.Flush(skinned_model.BoneBinding, skinned_model.InstanceBinding)
		allWrites = append(allWrites, sm.StagedWriteData()...)
	}
	s.writePool = allWrites

	if len(allWrites) > 0 {
		s.writer.WriteBuffers(allWrites)
	}

	stats.Writes = len(allWrites)
	stats.Duration = time.Since(start)
	return stats
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sm := range s.skinned {
		sm.Release()
	}
	s.registry = make(map[uint64]*entry)
	s.skinned = make(map[*model.Skeleton]skinned_model.SkinnedModel)
	if s.computePool != nil {
		s.computePool.Stop()
		s.computePool = nil
	}
}
