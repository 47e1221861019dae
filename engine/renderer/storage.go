package renderer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/skinned_model"
	"github.com/cogentcore/webgpu/wgpu"
)

// InitStorageBindGroup creates one read-only storage buffer per binding, a
// bind group layout (unless the provider already holds one) and the bind
// group, and stores them on the provider. Existing buffers of the requested
// size are reused; buffers of another size are released and recreated.
//
// Parameters:
//   - device: the GPU device
//   - provider: the provider receiving the resources
//   - sizes: the buffer byte size per binding index
//   - visibility: the shader stages that read the buffers
//
// Returns:
//   - error: an error if any GPU resource creation fails
func InitStorageBindGroup(device *wgpu.Device, provider bind_group_provider.BindGroupProvider, sizes map[int]uint64, visibility wgpu.ShaderStage) error {
	if len(sizes) == 0 {
		return nil
	}
	bindings := slices.Sorted(maps.Keys(sizes))

	layout := provider.BindGroupLayout()
	if layout == nil {
		entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
		for i, binding := range bindings {
			entries[i] = wgpu.BindGroupLayoutEntry{
				Binding:    uint32(binding),
				Visibility: visibility,
			}
			entries[i].Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		var err error
		layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   provider.Label() + " Bind Group Layout",
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("%s: bind group layout: %w", provider.Label(), err)
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(bindings))
	for i, binding := range bindings {
		size := sizes[binding]
		buf := provider.Buffer(binding)
		if buf != nil && provider.BufferSize(binding) != size {
			buf.Release()
			buf = nil
		}
		if buf == nil {
			var err error
			buf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: provider.Label() + " Buffer",
				Size:  size,
				Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("%s: buffer %d: %w", provider.Label(), binding, err)
			}
			provider.SetBuffer(binding, buf, size)
		}
		bindGroupEntries[i] = wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	if old := provider.BindGroup(); old != nil {
		old.Release()
	}
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return fmt.Errorf("%s: bind group: %w", provider.Label(), err)
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

// InitSkinnedModelBuffers sizes a SkinnedModel's storage buffers to its
// current capacity and clears its rebuild flag. Call it after creation and
// whenever NeedsRebuild reports true.
//
// Parameters:
//   - device: the GPU device
//   - s: the skinned model
//
// Returns:
//   - error: an error if any GPU resource creation fails
func InitSkinnedModelBuffers(device *wgpu.Device, s skinned_model.SkinnedModel) error {
	bones, instances := s.BufferSizes()
	err := InitStorageBindGroup(device, s.OutputBindGroupProvider(), map[int]uint64{
		skinned_model.BoneBinding:     bones,
		skinned_model.InstanceBinding: instances,
	}, wgpu.ShaderStageVertex)
	if err != nil {
		return err
	}
	s.ClearNeedsRebuild()
	return nil
}
