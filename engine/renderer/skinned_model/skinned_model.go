package skinned_model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// BoneBinding is the default storage binding of the bone matrix buffer.
	BoneBinding = 0
	// InstanceBinding is the default storage binding of the instance world matrix buffer.
	InstanceBinding = 1

	defaultMaxInstances = 64
)

// dirtyRange tracks the half-open span of instances written since the last flush.
type dirtyRange struct {
	dirty      bool
	start, end uint32
}

func (d *dirtyRange) mark(index uint32) {
	d.markSpan(index, index+1)
}

func (d *dirtyRange) markSpan(start, end uint32) {
	if start >= end {
		return
	}
	if !d.dirty {
		d.start, d.end, d.dirty = start, end, true
		return
	}
	d.start = min(d.start, start)
	d.end = max(d.end, end)
}

func (d *dirtyRange) reset() {
	*d = dirtyRange{}
}

// skinnedModel is the concrete implementation of SkinnedModel. Bone matrices
// for every instance live in one flat joint-major array, instance i occupying
// [i*jointCount, (i+1)*jointCount).
type skinnedModel struct {
	mu *sync.Mutex

	skeleton    *model.Skeleton
	inverseBind []mgl32.Mat4
	jointCount  uint32

	outputProvider bind_group_provider.BindGroupProvider

	maxInstances, instanceCount uint32

	boneData     []GPUBoneMatrix
	instanceData []GPUInstanceData

	boneDirty, instanceDirty dirtyRange
	needsRebuild             bool

	stagedWriteData []bind_group_provider.BufferWrite

	// wgpu copies buffer data before WriteBuffer returns, so one staging
	// slice per buffer is reused every frame.
	stagingBones, stagingInstances []byte
}

// SkinnedModel defines the interface for the per-skeleton skinning buffer: it
// holds bone-matrix arrays for many instances of one skeleton and stages
// dirty ranges for upload into GPU storage buffers.
type SkinnedModel interface {
	// Skeleton returns the skeleton every instance shares.
	//
	// Returns:
	//   - *model.Skeleton: the skeleton
	Skeleton() *model.Skeleton

	// JointCount returns the bone matrices per instance.
	//
	// Returns:
	//   - int: the joint count
	JointCount() int

	// AddInstance reserves a new instance slot initialised to the bind pose,
	// doubling capacity (minimum 8) when full. Growth sets NeedsRebuild.
	//
	// Returns:
	//   - uint32: the new instance index
	AddInstance() uint32

	// RemoveInstance removes the instance at the given index using a swap-remove
	// strategy: the last instance moves into the freed slot.
	//
	// Parameters:
	//   - index: the instance index to remove
	//
	// Returns:
	//   - uint32: the old last index that was swapped into the removed slot (only meaningful when bool is true)
	//   - bool: true if the last instance was swapped into the removed slot
	RemoveInstance(index uint32) (uint32, bool)

	// InstanceCount returns the number of live instances.
	InstanceCount() uint32

	// MaxInstances returns the current instance capacity.
	MaxInstances() uint32

	// Skin computes and stores the bone matrices of one instance from its
	// model-space joint matrices. Out-of-range instances are ignored.
	// Panics if models does not hold one matrix per joint.
	//
	// Parameters:
	//   - instance: the instance index
	//   - models: model-space joint matrices
	Skin(instance uint32, models []mgl32.Mat4)

	// SetInstanceTransform stores the world matrix of one instance.
	//
	// Parameters:
	//   - instance: the instance index
	//   - world: the world matrix
	SetInstanceTransform(instance uint32, world mgl32.Mat4)

	// InstanceTransform returns the world matrix of one instance, or identity if out of range.
	//
	// Parameters:
	//   - instance: the instance index
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	InstanceTransform(instance uint32) mgl32.Mat4

	// BoneMatrices returns a copy of one instance's bone matrices, or nil if out of range.
	//
	// Parameters:
	//   - instance: the instance index
	//
	// Returns:
	//   - []GPUBoneMatrix: one matrix per joint
	BoneMatrices(instance uint32) []GPUBoneMatrix

	// OutputBindGroupProvider returns the provider owning the storage buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	OutputBindGroupProvider() bind_group_provider.BindGroupProvider

	// SetOutputBindGroupProvider replaces the provider owning the storage buffers.
	//
	// Parameters:
	//   - provider: the new provider
	SetOutputBindGroupProvider(provider bind_group_provider.BindGroupProvider)

	// BufferSizes returns the byte sizes the storage buffers need at the current capacity.
	//
	// Returns:
	//   - bones: the bone matrix buffer size
	//   - instances: the instance world matrix buffer size
	BufferSizes() (bones, instances uint64)

	// Flush stages BufferWrites for every dirty range. Nothing is staged while a
	// rebuild is pending.
	//
	// Parameters:
	//   - boneBinding: the storage binding of the bone matrix buffer
	//   - instanceBinding: the storage binding of the instance buffer
	//
	// Returns:
	//   - uint32: the number of instances whose bone matrices were staged
	Flush(boneBinding, instanceBinding int) uint32

	// StagedWriteData drains the writes staged by Flush. The data slices are
	// valid until the next Flush.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the staged writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Grow increases capacity to newMax, preserving instance data and marking
	// it all dirty. No-op if newMax does not exceed the current capacity.
	//
	// Parameters:
	//   - newMax: the new capacity
	Grow(newMax uint32)

	// NeedsRebuild reports whether a Grow has occurred that requires GPU buffer recreation.
	NeedsRebuild() bool

	// ClearNeedsRebuild resets the needsRebuild flag once the GPU buffers are recreated.
	ClearNeedsRebuild()

	// Release releases the provider's GPU resources and drops CPU buffers.
	Release()
}

var _ SkinnedModel = &skinnedModel{}

// NewSkinnedModel creates a SkinnedModel for the given skeleton.
// Panics if skeleton is nil.
//
// Parameters:
//   - skeleton: the skeleton every instance shares
//   - options: functional options to configure the skinned model
//
// Returns:
//   - SkinnedModel: the newly created skinned model
func NewSkinnedModel(skeleton *model.Skeleton, options ...SkinnedModelBuilderOption) SkinnedModel {
	if skeleton == nil {
		panic("skinned_model: NewSkinnedModel requires a non-nil Skeleton")
	}
	s := &skinnedModel{
		mu:           &sync.Mutex{},
		skeleton:     skeleton,
		inverseBind:  skeleton.InverseBindMatrices(),
		jointCount:   uint32(skeleton.JointCount()),
		maxInstances: defaultMaxInstances,
	}
	for _, option := range options {
		option(s)
	}
	if s.outputProvider == nil {
		s.outputProvider = bind_group_provider.NewBindGroupProvider("skinned_model_output")
	}
	s.allocate()
	s.stagedWriteData = make([]bind_group_provider.BufferWrite, 0, 2)
	return s
}

// allocate sizes the CPU buffers and staging pool to maxInstances, keeping
// the first instanceCount instances.
func (s *skinnedModel) allocate() {
	bones := make([]GPUBoneMatrix, s.maxInstances*s.jointCount)
	copy(bones, s.boneData[:min(len(s.boneData), int(s.instanceCount*s.jointCount))])
	s.boneData = bones

	instances := make([]GPUInstanceData, s.maxInstances)
	copy(instances, s.instanceData[:min(len(s.instanceData), int(s.instanceCount))])
	for i := s.instanceCount; i < s.maxInstances; i++ {
		instances[i].World = mgl32.Ident4()
	}
	s.instanceData = instances

	s.stagingBones = make([]byte, len(s.boneData)*(&GPUBoneMatrix{}).Size())
	s.stagingInstances = make([]byte, len(s.instanceData)*(&GPUInstanceData{}).Size())
}

// restPose fills one instance's bone matrices with identity, the skinning
// matrix of the bind pose.
func (s *skinnedModel) restPose(index uint32) {
	bones := s.boneData[index*s.jointCount : (index+1)*s.jointCount]
	for j := range bones {
		bones[j].Matrix = mgl32.Ident4()
	}
}

func (s *skinnedModel) Skeleton() *model.Skeleton {
	return s.skeleton
}

func (s *skinnedModel) JointCount() int {
	return int(s.jointCount)
}

func (s *skinnedModel) AddInstance() uint32 {
	s.mu.Lock()
	if s.instanceCount >= s.maxInstances {
		// Auto-grow: double capacity (minimum 8). Unlock first because Grow acquires its own lock.
		newCap := max(s.maxInstances*2, 8)
		s.mu.Unlock()
		s.Grow(newCap)
		s.mu.Lock()
	}
	defer s.mu.Unlock()
	idx := s.instanceCount
	s.instanceCount++
	s.restPose(idx)
	s.instanceData[idx].World = mgl32.Ident4()
	s.boneDirty.mark(idx)
	s.instanceDirty.mark(idx)
	return idx
}

func (s *skinnedModel) RemoveInstance(index uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instanceCount == 0 || index >= s.instanceCount {
		return 0, false
	}

	last := s.instanceCount - 1
	swapped := index != last
	if swapped {
		j := s.jointCount
		copy(s.boneData[index*j:(index+1)*j], s.boneData[last*j:(last+1)*j])
		s.instanceData[index] = s.instanceData[last]
		s.boneDirty.mark(index)
		s.instanceDirty.mark(index)
	}

	// Zero out the now-unused last slot and decrement
	clear(s.boneData[last*s.jointCount : (last+1)*s.jointCount])
	s.instanceData[last].World = mgl32.Ident4()
	s.instanceCount--

	// A pending range may now extend past the live instances.
	for _, d := range []*dirtyRange{&s.boneDirty, &s.instanceDirty} {
		if d.dirty {
			d.end = min(d.end, s.instanceCount)
			if d.start >= d.end {
				d.reset()
			}
		}
	}
	return last, swapped
}

func (s *skinnedModel) InstanceCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instanceCount
}

func (s *skinnedModel) MaxInstances() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInstances
}

func (s *skinnedModel) Skin(instance uint32, models []mgl32.Mat4) {
	if len(models) != int(s.jointCount) {
		panic("skinned_model: Skin requires one model matrix per joint")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if instance >= s.instanceCount {
		return
	}
	Skin(models, s.inverseBind, s.boneData[instance*s.jointCount:(instance+1)*s.jointCount])
	s.boneDirty.mark(instance)
}

func (s *skinnedModel) SetInstanceTransform(instance uint32, world mgl32.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if instance >= s.instanceCount {
		return
	}
	s.instanceData[instance].World = world
	s.instanceDirty.mark(instance)
}

func (s *skinnedModel) InstanceTransform(instance uint32) mgl32.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if instance >= s.instanceCount {
		return mgl32.Ident4()
	}
	return s.instanceData[instance].World
}

func (s *skinnedModel) BoneMatrices(instance uint32) []GPUBoneMatrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	if instance >= s.instanceCount {
		return nil
	}
	out := make([]GPUBoneMatrix, s.jointCount)
	copy(out, s.boneData[instance*s.jointCount:(instance+1)*s.jointCount])
	return out
}

func (s *skinnedModel) OutputBindGroupProvider() bind_group_provider.BindGroupProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputProvider
}

func (s *skinnedModel) SetOutputBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputProvider = provider
}

func (s *skinnedModel) BufferSizes() (bones, instances uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// wgpu rejects zero-sized bindings.
	bones = max(uint64(len(s.boneData)*(&GPUBoneMatrix{}).Size()), 64)
	instances = max(uint64(len(s.instanceData)*(&GPUInstanceData{}).Size()), 64)
	return bones, instances
}

func (s *skinnedModel) Flush(boneBinding, instanceBinding int) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.needsRebuild {
		return 0
	}

	var count uint32

	if d := s.boneDirty; d.dirty {
		count = d.end - d.start
		size := uint64((&GPUBoneMatrix{}).Size())
		offset := uint64(d.start*s.jointCount) * size

		raw := common.SliceToBytes(s.boneData[d.start*s.jointCount : d.end*s.jointCount])
		buf := s.stagingBones[offset : offset+uint64(len(raw))]
		copy(buf, raw)

		s.stagedWriteData = append(s.stagedWriteData, bind_group_provider.BufferWrite{
			Provider: s.outputProvider,
			Binding:  boneBinding,
			Offset:   offset,
			Data:     buf,
		})
		s.boneDirty.reset()
	}

	if d := s.instanceDirty; d.dirty {
		offset := uint64(d.start) * uint64((&GPUInstanceData{}).Size())

		raw := common.SliceToBytes(s.instanceData[d.start:d.end])
		buf := s.stagingInstances[offset : offset+uint64(len(raw))]
		copy(buf, raw)

		s.stagedWriteData = append(s.stagedWriteData, bind_group_provider.BufferWrite{
			Provider: s.outputProvider,
			Binding:  instanceBinding,
			Offset:   offset,
			Data:     buf,
		})
		s.instanceDirty.reset()
	}

	return count
}

func (s *skinnedModel) StagedWriteData() []bind_group_provider.BufferWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.stagedWriteData
	s.stagedWriteData = s.stagedWriteData[:0]
	return w
}

func (s *skinnedModel) Grow(newMax uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newMax <= s.maxInstances {
		return
	}

	s.maxInstances = newMax
	s.allocate()

	// Mark instance data dirty for full re-upload after rebuild
	s.boneDirty.markSpan(0, s.instanceCount)
	s.instanceDirty.markSpan(0, s.instanceCount)

	// Discard stale staged writes and signal rebuild
	s.stagedWriteData = s.stagedWriteData[:0]
	s.needsRebuild = true
}

func (s *skinnedModel) NeedsRebuild() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsRebuild
}

func (s *skinnedModel) ClearNeedsRebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needsRebuild = false
}

func (s *skinnedModel) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputProvider != nil {
		s.outputProvider.Release()
	}
	s.boneData = nil
	s.instanceData = nil
	s.stagedWriteData = nil
	s.stagingBones = nil
	s.stagingInstances = nil
	s.instanceCount = 0
	s.maxInstances = 0
	s.boneDirty.reset()
	s.instanceDirty.reset()
}
