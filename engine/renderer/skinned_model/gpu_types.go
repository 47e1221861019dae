package skinned_model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUBoneMatrixSource is the WGSL declaration matching GPUBoneMatrix.
const GPUBoneMatrixSource = `struct BoneMatrix {
    matrix: mat4x4<f32>,
}`

// GPUBoneMatrix is the GPU-aligned skinning matrix for one joint of one instance:
// the joint's model-space matrix times its inverse bind matrix.
// Size: 64 bytes (column-major mat4x4<f32>, std430 aligned).
type GPUBoneMatrix struct {
	Matrix mgl32.Mat4 // offset 0, size 64
}

// Size returns the size of the GPUBoneMatrix struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUBoneMatrix) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBoneMatrix struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUBoneMatrix) Marshal() []byte {
	buf := make([]byte, 64)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Matrix[i]))
	}
	return buf
}

// GPUInstanceData is the GPU-aligned per-instance world transform.
// Size: 64 bytes (std430 aligned).
type GPUInstanceData struct {
	World mgl32.Mat4 // offset 0, size 64 (mat4x4<f32>)
}

// Size returns the size of the GPUInstanceData struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUInstanceData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstanceData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUInstanceData) Marshal() []byte {
	buf := make([]byte, 64)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.World[i]))
	}
	return buf
}

// Skin writes one skinning matrix per joint: out[j] = models[j] * inverseBind[j].
// Panics if the three slices differ in length.
//
// Parameters:
//   - models: model-space joint matrices
//   - inverseBind: per-joint inverse bind matrices
//   - out: the destination, one entry per joint
func Skin(models, inverseBind []mgl32.Mat4, out []GPUBoneMatrix) {
	if len(models) != len(inverseBind) || len(models) != len(out) {
		panic("skinned_model: Skin requires equal joint counts")
	}
	for j := range models {
		out[j].Matrix = models[j].Mul4(inverseBind[j])
	}
}
