package model

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInvalidSkeleton is returned when a bone hierarchy cannot form a skeleton.
	ErrInvalidSkeleton = errors.New("invalid skeleton")

	// ErrInvalidClip is returned when an animation clip fails validation.
	ErrInvalidClip = errors.New("invalid animation clip")
)

// Skeleton is an immutable joint hierarchy. Joints are stored in topological
// order: a joint's parent always has a smaller index than the joint itself, so
// a single forward pass visits every parent before its children.
// A Skeleton is safe for concurrent reads and is shared by every character built on it.
type Skeleton struct {
	names           []string
	parents         []int32
	rootBoneIndices []int32
	boneNameToIndex map[string]int32
	bindPose        []Transform
	inverseBind     []mgl32.Mat4
}

// NewSkeleton builds a Skeleton from an unordered bone list.
//
// Parameters:
//   - bones: the bones, with ParentIndex referring to positions within this slice
//
// Returns:
//   - *Skeleton: the sorted skeleton
//   - error: an error wrapping ErrInvalidSkeleton if the hierarchy is malformed
func NewSkeleton(bones []Bone) (*Skeleton, error) {
	s, _, err := NewSkeletonWithMapping(bones)
	return s, err
}

// NewSkeletonWithMapping builds a Skeleton and returns the old-to-new joint index mapping.
// The mapping is needed to remap clip channels and mesh joint indices authored
// against the unsorted bone order.
//
// Parameters:
//   - bones: the bones, with ParentIndex referring to positions within this slice
//
// Returns:
//   - *Skeleton: the sorted skeleton
//   - map[int32]int32: mapping from input bone index to sorted joint index
//   - error: an error wrapping ErrInvalidSkeleton if the hierarchy is malformed
func NewSkeletonWithMapping(bones []Bone) (*Skeleton, map[int32]int32, error) {
	n := len(bones)
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: no bones", ErrInvalidSkeleton)
	}

	children := make(map[int32][]int32)
	var roots []int32
	for i, bone := range bones {
		switch p := bone.ParentIndex; {
		case p < 0:
			roots = append(roots, int32(i))
		case int(p) >= n:
			return nil, nil, fmt.Errorf("%w: bone %d parent %d out of range", ErrInvalidSkeleton, i, p)
		case int(p) == i:
			return nil, nil, fmt.Errorf("%w: bone %d is its own parent", ErrInvalidSkeleton, i)
		default:
			children[p] = append(children[p], int32(i))
		}
	}

	// BFS from roots to get topological order
	sorted := make([]int32, 0, n)
	queue := append(make([]int32, 0, n), roots...)
	for len(queue) > 0 {
		oldIdx := queue[0]
		queue = queue[1:]
		sorted = append(sorted, oldIdx)
		queue = append(queue, children[oldIdx]...)
	}
	if len(sorted) < n {
		return nil, nil, fmt.Errorf("%w: %d bones are not reachable from a root (parent cycle)", ErrInvalidSkeleton, n-len(sorted))
	}

	oldToNew := make(map[int32]int32, n)
	for newIdx, oldIdx := range sorted {
		oldToNew[oldIdx] = int32(newIdx)
	}

	s := &Skeleton{
		names:           make([]string, n),
		parents:         make([]int32, n),
		boneNameToIndex: make(map[string]int32, n),
		bindPose:        make([]Transform, n),
		inverseBind:     make([]mgl32.Mat4, n),
	}

	for newIdx, oldIdx := range sorted {
		bone := bones[oldIdx]
		name := bone.Name
		if name == "" {
			name = fmt.Sprintf("bone_%d", oldIdx)
		}
		if _, dup := s.boneNameToIndex[name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate bone name %q", ErrInvalidSkeleton, name)
		}
		s.names[newIdx] = name
		s.boneNameToIndex[name] = int32(newIdx)
		s.bindPose[newIdx] = bone.LocalTransform

		if bone.ParentIndex >= 0 {
			s.parents[newIdx] = oldToNew[bone.ParentIndex]
		} else {
			s.parents[newIdx] = -1
			s.rootBoneIndices = append(s.rootBoneIndices, int32(newIdx))
		}
	}

	// Inverse bind matrices default to the inverse of the bind pose in model space.
	bindModel := make([]mgl32.Mat4, n)
	for j := range n {
		local := s.bindPose[j].Matrix()
		if p := s.parents[j]; p >= 0 {
			bindModel[j] = bindModel[p].Mul4(local)
		} else {
			bindModel[j] = local
		}

		ibm := bones[sorted[j]].InverseBindMatrix
		if ibm == (mgl32.Mat4{}) {
			if bindModel[j].Det() == 0 {
				return nil, nil, fmt.Errorf("%w: bone %q bind pose is singular", ErrInvalidSkeleton, s.names[j])
			}
			ibm = bindModel[j].Inv()
		}
		s.inverseBind[j] = ibm
	}

	return s, oldToNew, nil
}

// JointCount returns the number of joints in the skeleton.
func (s *Skeleton) JointCount() int {
	return len(s.parents)
}

// ParentOf returns the parent joint of joint j. The second result is false for
// root joints and for out-of-range indices.
//
// Parameters:
//   - j: the joint index
//
// Returns:
//   - int: the parent joint index
//   - bool: true if j has a parent
func (s *Skeleton) ParentOf(j int) (int, bool) {
	if j < 0 || j >= len(s.parents) || s.parents[j] < 0 {
		return -1, false
	}
	return int(s.parents[j]), true
}

// IndexOfName looks up a joint by name.
//
// Parameters:
//   - name: the joint name
//
// Returns:
//   - int: the joint index
//   - bool: true if the joint exists
func (s *Skeleton) IndexOfName(name string) (int, bool) {
	idx, ok := s.boneNameToIndex[name]
	return int(idx), ok
}

// JointName returns the name of joint j, or "" when out of range.
func (s *Skeleton) JointName(j int) string {
	if j < 0 || j >= len(s.names) {
		return ""
	}
	return s.names[j]
}

// RootJoints returns the indices of all joints without a parent.
func (s *Skeleton) RootJoints() []int {
	roots := make([]int, len(s.rootBoneIndices))
	for i, r := range s.rootBoneIndices {
		roots[i] = int(r)
	}
	return roots
}

// BindPose returns the rest local transform of every joint.
// The slice is shared and must not be modified.
func (s *Skeleton) BindPose() []Transform {
	return s.bindPose
}

// InverseBindMatrices returns the inverse bind matrix of every joint.
// The slice is shared and must not be modified.
func (s *Skeleton) InverseBindMatrices() []mgl32.Mat4 {
	return s.inverseBind
}
