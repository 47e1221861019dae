package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// --- Transform & Skeleton Types ---

// Transform represents a decomposed joint transform relative to its parent joint.
type Transform struct {
	// Translation is the position offset.
	Translation mgl32.Vec3

	// Rotation is the orientation as a unit quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns the transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes the transform into a column-major 4x4 matrix as T * R * S.
//
// Returns:
//   - mgl32.Mat4: the composed matrix
func (t Transform) Matrix() mgl32.Mat4 {
	m := t.Rotation.Mat4()
	m[0], m[1], m[2] = m[0]*t.Scale[0], m[1]*t.Scale[0], m[2]*t.Scale[0]
	m[4], m[5], m[6] = m[4]*t.Scale[1], m[5]*t.Scale[1], m[6]*t.Scale[1]
	m[8], m[9], m[10] = m[8]*t.Scale[2], m[9]*t.Scale[2], m[10]*t.Scale[2]
	m[12], m[13], m[14] = t.Translation[0], t.Translation[1], t.Translation[2]
	return m
}

// Bone represents a single bone in a skeleton hierarchy as handed to NewSkeleton.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	// Leave it zero to have NewSkeleton derive it from the bind pose.
	InverseBindMatrix mgl32.Mat4

	// LocalTransform is the bone's rest transform relative to its parent.
	LocalTransform Transform
}

// --- Animation Types ---

// AnimationClip represents a single animation (walk, run, attack, etc.).
// Clips are shared read-only between every graph that samples them.
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// TicksPerSecond is the sample rate the clip was authored at.
	TicksPerSecond float32

	// Channels contains animation data for each animated bone.
	// Bones without a channel hold their bind pose.
	Channels []AnimationChannel
}

// AnimationChannel contains keyframe data for a single bone.
type AnimationChannel struct {
	// BoneIndex is the index of the bone this channel animates.
	BoneIndex int32

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the quaternion value at this keyframe.
	Value mgl32.Quat
}
