package scene

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/character"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/skinned_model"
	"github.com/cogentcore/webgpu/wgpu"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is evaluated by the engine.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCharacters adds initial characters to the scene once it is built.
// Characters without IDs will be assigned new IDs.
//
// Parameters:
//   - characters: the characters to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCharacters(characters ...character.Character) SceneBuilderOption {
	return func(s *scene) {
		s.pending = append(s.pending, characters...)
	}
}

// WithComputeWorkers sets the number of worker goroutines used to evaluate
// characters during PrepareFrame. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithBufferWriter sets where PrepareFrame submits its staged buffer writes.
//
// Parameters:
//   - w: the BufferWriter, nil keeps renderer.Discard
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBufferWriter(w renderer.BufferWriter) SceneBuilderOption {
	return func(s *scene) {
		if w != nil {
			s.writer = w
		}
	}
}

// WithDevice uploads skinned output to the GPU. Each SkinnedModel gets its
// storage buffers created on the device when first used and recreated after it
// grows, and writes are enqueued on the device's queue.
//
// Parameters:
//   - device: the wgpu device
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDevice(device *wgpu.Device) SceneBuilderOption {
	return func(s *scene) {
		s.initBuffers = func(sm skinned_model.SkinnedModel) error {
			return renderer.InitSkinnedModelBuffers(device, sm)
		}
		s.writer = renderer.NewQueueWriter(device.GetQueue())
	}
}

// WithMaxInstances sets the initial instance capacity of each SkinnedModel the
// scene creates.
func WithMaxInstances(n int) SceneBuilderOption {
	return func(s *scene) {
		s.maxInstances = n
	}
}
