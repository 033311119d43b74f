// Package coin provides the sparse support types the propagation engine is
// built on: packed vectors for reporting bound changes and packed matrices
// for row- and column-major views of a constraint system.
package coin

import "fmt"

// PackedVector is a sparse vector held as parallel index/value slices.
// Entries are kept in insertion order; no attempt is made to sort or to
// coalesce duplicate indices. Callers that need a canonical ordering should
// insert in that order.
type PackedVector struct {
	indices []int
	values  []float64
}

// NewPackedVector creates an empty packed vector with capacity for n entries.
func NewPackedVector(n int) *PackedVector {
	return &PackedVector{
		indices: make([]int, 0, n),
		values:  make([]float64, 0, n),
	}
}

// Insert appends an entry for the given index.
func (pv *PackedVector) Insert(ndx int, val float64) {
	pv.indices = append(pv.indices, ndx)
	pv.values = append(pv.values, val)
}

// Clear removes all entries, retaining capacity.
func (pv *PackedVector) Clear() {
	pv.indices = pv.indices[:0]
	pv.values = pv.values[:0]
}

// Len returns the number of entries.
func (pv *PackedVector) Len() int { return len(pv.indices) }

// Indices returns the index slice. The slice is owned by the vector and must
// not be modified.
func (pv *PackedVector) Indices() []int { return pv.indices }

// Values returns the value slice. The slice is owned by the vector and must
// not be modified.
func (pv *PackedVector) Values() []float64 { return pv.values }

// Entry returns the k'th index/value pair.
func (pv *PackedVector) Entry(k int) (int, float64) {
	return pv.indices[k], pv.values[k]
}

// String returns a compact human-readable rendering, e.g. "{3:1.5, 7:-2}".
func (pv *PackedVector) String() string {
	s := "{"
	for k := range pv.indices {
		if k > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d:%g", pv.indices[k], pv.values[k])
	}
	return s + "}"
}
