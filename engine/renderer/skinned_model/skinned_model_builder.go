package skinned_model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
)

// SkinnedModelBuilderOption is a functional option for configuring a SkinnedModel during construction.
type SkinnedModelBuilderOption func(*skinnedModel)

// WithMaxInstances sets the initial instance capacity. Values below 1 are treated as 1.
//
// Parameters:
//   - maxInstances: the number of instances to allocate up front
//
// Returns:
//   - SkinnedModelBuilderOption: a function that applies the capacity option
func WithMaxInstances(maxInstances int) SkinnedModelBuilderOption {
	return func(s *skinnedModel) {
		s.maxInstances = uint32(max(maxInstances, 1))
	}
}

// WithOutputBindGroupProvider sets the provider owning the storage buffers.
//
// Parameters:
//   - provider: the provider that BufferWrites target
//
// Returns:
//   - SkinnedModelBuilderOption: a function that applies the provider option
func WithOutputBindGroupProvider(provider bind_group_provider.BindGroupProvider) SkinnedModelBuilderOption {
	return func(s *skinnedModel) {
		s.outputProvider = provider
	}
}
