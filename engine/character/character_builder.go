package character

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// CharacterBuilderOption is a functional option for configuring a Character during construction.
type CharacterBuilderOption func(*character)

// WithID sets the ID of the Character.
//
// Parameters:
//   - id: unique identifier for the Character
//
// Returns:
//   - CharacterBuilderOption: functional option to set the ID
func WithID(id uint64) CharacterBuilderOption {
	return func(c *character) {
		c.id = id
	}
}

// WithEnabled sets whether the Character is evaluated each frame. Characters
// are enabled by default.
//
// Parameters:
//   - enabled: false to skip the character during scene evaluation
//
// Returns:
//   - CharacterBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) CharacterBuilderOption {
	return func(c *character) {
		c.enabled.Store(enabled)
	}
}

// WithModel associates the Model the character's graph was built from.
//
// Parameters:
//   - m: the Model to associate
//
// Returns:
//   - CharacterBuilderOption: functional option to set the Model
func WithModel(m model.Model) CharacterBuilderOption {
	return func(c *character) {
		c.mdl = m
	}
}

// WithPosition sets the initial world position.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - CharacterBuilderOption: functional option to set the initial position
func WithPosition(x, y, z float32) CharacterBuilderOption {
	return func(c *character) {
		c.position = mgl32.Vec3{x, y, z}
	}
}

// WithOrientation sets the initial world orientation.
//
// Parameters:
//   - q: the orientation, normalized on assignment
//
// Returns:
//   - CharacterBuilderOption: functional option to set the initial orientation
func WithOrientation(q mgl32.Quat) CharacterBuilderOption {
	return func(c *character) {
		c.orientation = normalizeOrientation(q)
	}
}

// WithParamCounts pre-sizes the parameter table.
//
// Parameters:
//   - bools, floats, ints, uints, vecs: the slot counts per kind
//
// Returns:
//   - CharacterBuilderOption: functional option to size the parameter table
func WithParamCounts(bools, floats, ints, uints, vecs int) CharacterBuilderOption {
	return func(c *character) {
		c.paramCounts = [5]int{bools, floats, ints, uints, vecs}
	}
}
