package coin

import (
	"github.com/pkg/errors"
)

// Ordering selects the major dimension of a PackedMatrix.
type Ordering int

const (
	// ColMajor stores one packed vector per column; minor indices are rows.
	ColMajor Ordering = iota
	// RowMajor stores one packed vector per row; minor indices are columns.
	RowMajor
)

// PackedMatrix is a sparse matrix in packed major-vector form: for major
// vector i, the nonzeros live at positions starts[i] .. starts[i]+lens[i]-1
// of the indices/coeffs slices. Gaps between vectors are permitted (lens[i]
// may be smaller than starts[i+1]-starts[i]), which is why lengths are kept
// explicitly rather than derived from consecutive starts.
//
// A PackedMatrix is immutable once built. The engine treats matrices as
// externally owned structures and never writes to them.
type PackedMatrix struct {
	ordering Ordering
	nMajor   int
	nMinor   int
	starts   []int
	lens     []int
	indices  []int
	coeffs   []float64
}

// NewPackedMatrix wraps raw packed arrays without copying. The caller
// warrants that the arrays describe a valid packed structure and will not
// modify them for the life of the matrix.
func NewPackedMatrix(ordering Ordering, nMajor, nMinor int,
	starts, lens, indices []int, coeffs []float64) (*PackedMatrix, error) {

	if nMajor < 0 || nMinor < 0 {
		return nil, errors.Errorf("packed matrix: negative dimension %dx%d", nMajor, nMinor)
	}
	if len(starts) < nMajor || len(lens) < nMajor {
		return nil, errors.Errorf(
			"packed matrix: %d major vectors but %d starts, %d lengths",
			nMajor, len(starts), len(lens))
	}
	if len(indices) != len(coeffs) {
		return nil, errors.Errorf(
			"packed matrix: %d indices vs %d coefficients", len(indices), len(coeffs))
	}
	for i := 0; i < nMajor; i++ {
		if lens[i] < 0 || starts[i] < 0 || starts[i]+lens[i] > len(indices) {
			return nil, errors.Errorf(
				"packed matrix: vector %d spans [%d,%d) outside %d nonzeros",
				i, starts[i], starts[i]+lens[i], len(indices))
		}
	}
	return &PackedMatrix{
		ordering: ordering,
		nMajor:   nMajor,
		nMinor:   nMinor,
		starts:   starts,
		lens:     lens,
		indices:  indices,
		coeffs:   coeffs,
	}, nil
}

// NewRowMajorFromDense builds a row-major packed matrix from dense rows,
// dropping exact zeros. ncols fixes the column count so trailing all-zero
// columns are preserved.
func NewRowMajorFromDense(rows [][]float64, ncols int) (*PackedMatrix, error) {
	nrows := len(rows)
	starts := make([]int, nrows)
	lens := make([]int, nrows)
	var indices []int
	var coeffs []float64
	for i, row := range rows {
		if len(row) > ncols {
			return nil, errors.Errorf(
				"dense row %d has %d entries, matrix has %d columns", i, len(row), ncols)
		}
		starts[i] = len(indices)
		for j, aij := range row {
			if aij == 0 {
				continue
			}
			indices = append(indices, j)
			coeffs = append(coeffs, aij)
		}
		lens[i] = len(indices) - starts[i]
	}
	return NewPackedMatrix(RowMajor, nrows, ncols, starts, lens, indices, coeffs)
}

// Ordering returns the major orientation.
func (pm *PackedMatrix) Ordering() Ordering { return pm.ordering }

// NumRows returns the number of rows regardless of orientation.
func (pm *PackedMatrix) NumRows() int {
	if pm.ordering == RowMajor {
		return pm.nMajor
	}
	return pm.nMinor
}

// NumCols returns the number of columns regardless of orientation.
func (pm *PackedMatrix) NumCols() int {
	if pm.ordering == RowMajor {
		return pm.nMinor
	}
	return pm.nMajor
}

// NumMajor returns the major dimension.
func (pm *PackedMatrix) NumMajor() int { return pm.nMajor }

// VectorStarts returns the major-vector start offsets.
func (pm *PackedMatrix) VectorStarts() []int { return pm.starts }

// VectorLengths returns the major-vector lengths.
func (pm *PackedMatrix) VectorLengths() []int { return pm.lens }

// Indices returns the minor-index slice.
func (pm *PackedMatrix) Indices() []int { return pm.indices }

// Elements returns the coefficient slice.
func (pm *PackedMatrix) Elements() []float64 { return pm.coeffs }

// NumNonzeros returns the total nonzero count over all major vectors.
func (pm *PackedMatrix) NumNonzeros() int {
	nnz := 0
	for i := 0; i < pm.nMajor; i++ {
		nnz += pm.lens[i]
	}
	return nnz
}

// ReverseOrderedCopy builds a gap-free copy of the matrix in the opposite
// ordering: a row-major view of a column-major matrix and vice versa. This
// is the standard two-pass bucket transpose; O(nnz + major + minor).
func (pm *PackedMatrix) ReverseOrderedCopy() *PackedMatrix {
	nnz := pm.NumNonzeros()
	starts := make([]int, pm.nMinor+1)
	lens := make([]int, pm.nMinor)
	indices := make([]int, nnz)
	coeffs := make([]float64, nnz)

	// Count nonzeros per minor index.
	for i := 0; i < pm.nMajor; i++ {
		for k := pm.starts[i]; k < pm.starts[i]+pm.lens[i]; k++ {
			lens[pm.indices[k]]++
		}
	}
	for j := 0; j < pm.nMinor; j++ {
		starts[j+1] = starts[j] + lens[j]
	}

	// Scatter pass; next[j] tracks the fill position within vector j.
	next := make([]int, pm.nMinor)
	copy(next, starts[:pm.nMinor])
	for i := 0; i < pm.nMajor; i++ {
		for k := pm.starts[i]; k < pm.starts[i]+pm.lens[i]; k++ {
			j := pm.indices[k]
			indices[next[j]] = i
			coeffs[next[j]] = pm.coeffs[k]
			next[j]++
		}
	}

	ordering := RowMajor
	if pm.ordering == RowMajor {
		ordering = ColMajor
	}
	return &PackedMatrix{
		ordering: ordering,
		nMajor:   pm.nMinor,
		nMinor:   pm.nMajor,
		starts:   starts[:pm.nMinor],
		lens:     lens,
		indices:  indices,
		coeffs:   coeffs,
	}
}
