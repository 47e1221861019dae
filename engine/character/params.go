package character

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/anim_graph"
	"github.com/go-gl/mathgl/mgl32"
)

// ParamTable is a typed, index-addressed parameter store read by an AnimGraph
// through the ParameterProvider interface. Reads of unset indices return the
// zero value; writes past the end grow the backing array.
type ParamTable struct {
	mu *sync.RWMutex

	bools  []bool
	floats []float32
	ints   []int64
	uints  []uint64
	vecs   []mgl32.Vec3
}

var _ anim_graph.ParameterProvider = &ParamTable{}

// NewParamTable creates a ParamTable with the given number of slots per kind.
//
// Parameters:
//   - bools, floats, ints, uints, vecs: the initial slot counts
//
// Returns:
//   - *ParamTable: the zeroed table
func NewParamTable(bools, floats, ints, uints, vecs int) *ParamTable {
	return &ParamTable{
		mu:     &sync.RWMutex{},
		bools:  make([]bool, max(bools, 0)),
		floats: make([]float32, max(floats, 0)),
		ints:   make([]int64, max(ints, 0)),
		uints:  make([]uint64, max(uints, 0)),
		vecs:   make([]mgl32.Vec3, max(vecs, 0)),
	}
}

func get[T any](s []T, i int) T {
	if i < 0 || i >= len(s) {
		var zero T
		return zero
	}
	return s[i]
}

func set[T any](s []T, i int, v T) []T {
	if i < 0 {
		panic("character: negative parameter index")
	}
	if i >= len(s) {
		s = append(s, make([]T, i+1-len(s))...)
	}
	s[i] = v
	return s
}

func (p *ParamTable) Bool(i int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return get(p.bools, i)
}

func (p *ParamTable) Float(i int) float32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return get(p.floats, i)
}

func (p *ParamTable) Int(i int) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return get(p.ints, i)
}

func (p *ParamTable) Uint(i int) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return get(p.uints, i)
}

func (p *ParamTable) Vec3(i int) mgl32.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return get(p.vecs, i)
}

// SetBool stores a bool parameter, growing the table if needed.
func (p *ParamTable) SetBool(i int, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bools = set(p.bools, i, v)
}

// SetFloat stores a float parameter, growing the table if needed.
func (p *ParamTable) SetFloat(i int, v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.floats = set(p.floats, i, v)
}

// SetInt stores a signed integer parameter, growing the table if needed.
func (p *ParamTable) SetInt(i int, v int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ints = set(p.ints, i, v)
}

// SetUint stores an unsigned integer parameter, growing the table if needed.
func (p *ParamTable) SetUint(i int, v uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uints = set(p.uints, i, v)
}

// SetVec3 stores a vector parameter, growing the table if needed.
func (p *ParamTable) SetVec3(i int, v mgl32.Vec3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vecs = set(p.vecs, i, v)
}

// Counts returns the number of slots per kind.
//
// Returns:
//   - bools, floats, ints, uints, vecs: the slot counts
func (p *ParamTable) Counts() (bools, floats, ints, uints, vecs int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.bools), len(p.floats), len(p.ints), len(p.uints), len(p.vecs)
}

// Reset zeroes every parameter without changing the slot counts.
func (p *ParamTable) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.bools)
	clear(p.floats)
	clear(p.ints)
	clear(p.uints)
	clear(p.vecs)
}
