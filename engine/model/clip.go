package model

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Validate checks that the clip can be sampled against a skeleton with jointCount joints.
//
// Parameters:
//   - jointCount: the joint count of the target skeleton
//
// Returns:
//   - error: an error wrapping ErrInvalidClip, or nil
func (c *AnimationClip) Validate(jointCount int) error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: %q duration %v must be positive", ErrInvalidClip, c.Name, c.Duration)
	}
	for i, ch := range c.Channels {
		if ch.BoneIndex < 0 || int(ch.BoneIndex) >= jointCount {
			return fmt.Errorf("%w: %q channel %d targets joint %d of %d", ErrInvalidClip, c.Name, i, ch.BoneIndex, jointCount)
		}
		if !sortedVectorKeys(ch.PositionKeys) || !sortedVectorKeys(ch.ScaleKeys) || !sortedQuatKeys(ch.RotationKeys) {
			return fmt.Errorf("%w: %q channel %d keyframes are not sorted by time", ErrInvalidClip, c.Name, i)
		}
	}
	return nil
}

func sortedVectorKeys(keys []VectorKeyframe) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return false
		}
	}
	return true
}

func sortedQuatKeys(keys []QuaternionKeyframe) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return false
		}
	}
	return true
}

// Sample evaluates the clip at a normalized ratio into out.
// Joints without a channel, and channel components without keys, take their
// value from bindPose. Translation and scale interpolate linearly, rotation
// slerps along the shortest arc. Ratios outside [0, 1] clamp to the first or
// last keyframe.
//
// Parameters:
//   - ratio: the playback position as a fraction of Duration
//   - bindPose: the skeleton's rest local transforms
//   - out: the destination buffer, one transform per joint
func (c *AnimationClip) Sample(ratio float32, bindPose, out []Transform) {
	if len(bindPose) != len(out) {
		panic(fmt.Sprintf("model: Sample bind pose has %d joints, output has %d", len(bindPose), len(out)))
	}
	copy(out, bindPose)

	t := mgl32.Clamp(ratio, 0, 1) * c.Duration
	for i := range c.Channels {
		ch := &c.Channels[i]
		j := int(ch.BoneIndex)
		if j < 0 || j >= len(out) {
			continue
		}
		if len(ch.PositionKeys) > 0 {
			out[j].Translation = sampleVector(ch.PositionKeys, t)
		}
		if len(ch.RotationKeys) > 0 {
			out[j].Rotation = sampleQuat(ch.RotationKeys, t)
		}
		if len(ch.ScaleKeys) > 0 {
			out[j].Scale = sampleVector(ch.ScaleKeys, t)
		}
	}
}

// keySpan locates the keyframe pair bracketing t and the interpolation factor between them.
func keySpan(n int, timeAt func(int) float32, t float32) (int, int, float32) {
	if t <= timeAt(0) {
		return 0, 0, 0
	}
	if t >= timeAt(n-1) {
		return n - 1, n - 1, 0
	}
	hi := sort.Search(n, func(i int) bool { return timeAt(i) > t })
	lo := hi - 1
	span := timeAt(hi) - timeAt(lo)
	if span <= 0 {
		return hi, hi, 0
	}
	return lo, hi, (t - timeAt(lo)) / span
}

func sampleVector(keys []VectorKeyframe, t float32) mgl32.Vec3 {
	lo, hi, f := keySpan(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if lo == hi {
		return keys[lo].Value
	}
	a, b := keys[lo].Value, keys[hi].Value
	return a.Add(b.Sub(a).Mul(f))
}

func sampleQuat(keys []QuaternionKeyframe, t float32) mgl32.Quat {
	lo, hi, f := keySpan(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if lo == hi {
		return keys[lo].Value.Normalize()
	}
	a, b := keys[lo].Value, keys[hi].Value
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, f).Normalize()
}
