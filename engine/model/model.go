package model

import (
	"fmt"
)

// model is the implementation of the Model interface.
type model struct {
	name        string
	skeleton    *Skeleton
	animations  []*AnimationClip
	clipsByName map[string]*AnimationClip
}

// Model defines the interface for a skinned character asset.
// A Model pairs one Skeleton with the animation clips authored against it and
// is shared read-only by every character and graph built from it.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Skeleton retrieves the joint hierarchy for this model.
	//
	// Returns:
	//   - *Skeleton: the skeleton
	Skeleton() *Skeleton

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// AnimationCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: the animation clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int

	// Clip looks up an animation clip by name.
	//
	// Parameters:
	//   - name: the animation clip name
	//
	// Returns:
	//   - *AnimationClip: the clip, or nil if not found
	//   - bool: true if the clip exists
	Clip(name string) (*AnimationClip, bool)

	// ClipsByName returns the name-to-clip index used to resolve graph definitions.
	// The map is shared and must not be modified.
	//
	// Returns:
	//   - map[string]*AnimationClip: the clips keyed by name
	ClipsByName() map[string]*AnimationClip
}

var _ Model = &model{}

// NewModel creates a new Model around a skeleton with the specified options applied.
// Every clip is validated against the skeleton.
//
// Parameters:
//   - skeleton: the joint hierarchy shared by all clips
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
//   - error: an error if a clip is invalid or two clips share a name
func NewModel(skeleton *Skeleton, options ...ModelBuilderOption) (Model, error) {
	if skeleton == nil {
		panic("model: NewModel requires a skeleton")
	}
	m := &model{skeleton: skeleton}
	for _, opt := range options {
		opt(m)
	}

	m.clipsByName = make(map[string]*AnimationClip, len(m.animations))
	for _, clip := range m.animations {
		if err := clip.Validate(skeleton.JointCount()); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.name, err)
		}
		if _, dup := m.clipsByName[clip.Name]; dup {
			return nil, fmt.Errorf("model %q: %w: duplicate clip name %q", m.name, ErrInvalidClip, clip.Name)
		}
		m.clipsByName[clip.Name] = clip
	}
	return m, nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Skeleton() *Skeleton {
	return m.skeleton
}

func (m *model) Animations() []*AnimationClip {
	return m.animations
}

func (m *model) AnimationCount() int {
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	for i, anim := range m.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (m *model) Clip(name string) (*AnimationClip, bool) {
	clip, ok := m.clipsByName[name]
	return clip, ok
}

func (m *model) ClipsByName() map[string]*AnimationClip {
	return m.clipsByName
}
