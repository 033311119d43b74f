package coin

import "testing"

// TestNewRowMajorFromDense checks the dense builder drops zeros and keeps
// the requested column count.
func TestNewRowMajorFromDense(t *testing.T) {
	pm, err := NewRowMajorFromDense([][]float64{
		{2, 0, 3},
		{0, 0, 0},
		{-1, 4, 0},
	}, 4)
	if err != nil {
		t.Fatalf("NewRowMajorFromDense: %v", err)
	}
	if pm.NumRows() != 3 || pm.NumCols() != 4 {
		t.Fatalf("dimensions %dx%d, want 3x4", pm.NumRows(), pm.NumCols())
	}
	if pm.NumNonzeros() != 4 {
		t.Fatalf("nnz = %d, want 4", pm.NumNonzeros())
	}
	if got := pm.VectorLengths(); got[0] != 2 || got[1] != 0 || got[2] != 2 {
		t.Errorf("row lengths %v, want [2 0 2]", got)
	}

	if _, err := NewRowMajorFromDense([][]float64{{1, 2}}, 1); err == nil {
		t.Error("oversized dense row accepted")
	}
}

// TestNewPackedMatrix_Validation checks the raw-array constructor's
// consistency checks.
func TestNewPackedMatrix_Validation(t *testing.T) {
	tests := []struct {
		name    string
		nMajor  int
		starts  []int
		lens    []int
		indices []int
		coeffs  []float64
		wantErr bool
	}{
		{"valid", 2, []int{0, 1}, []int{1, 1}, []int{0, 1}, []float64{1, 2}, false},
		{"short starts", 2, []int{0}, []int{1, 1}, []int{0, 1}, []float64{1, 2}, true},
		{"index/coeff mismatch", 2, []int{0, 1}, []int{1, 1}, []int{0, 1}, []float64{1}, true},
		{"vector out of range", 2, []int{0, 2}, []int{1, 1}, []int{0, 1}, []float64{1, 2}, true},
		{"negative length", 1, []int{0}, []int{-1}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPackedMatrix(RowMajor, tt.nMajor, 2,
				tt.starts, tt.lens, tt.indices, tt.coeffs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPackedMatrix error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestReverseOrderedCopy transposes the storage order twice and checks the
// round trip reproduces every entry.
func TestReverseOrderedCopy(t *testing.T) {
	dense := [][]float64{
		{2, 0, 3, 0},
		{0, -1, 0, 5},
		{7, 0, 0, 1},
	}
	rm, err := NewRowMajorFromDense(dense, 4)
	if err != nil {
		t.Fatalf("NewRowMajorFromDense: %v", err)
	}

	cm := rm.ReverseOrderedCopy()
	if cm.Ordering() != ColMajor {
		t.Fatalf("ordering = %v, want ColMajor", cm.Ordering())
	}
	if cm.NumRows() != 3 || cm.NumCols() != 4 {
		t.Fatalf("dimensions %dx%d, want 3x4", cm.NumRows(), cm.NumCols())
	}
	if cm.NumNonzeros() != rm.NumNonzeros() {
		t.Fatalf("nnz %d, want %d", cm.NumNonzeros(), rm.NumNonzeros())
	}

	// Materialize the column-major copy and compare against the dense form.
	got := make([][]float64, 3)
	for i := range got {
		got[i] = make([]float64, 4)
	}
	starts, lens := cm.VectorStarts(), cm.VectorLengths()
	indices, coeffs := cm.Indices(), cm.Elements()
	for j := 0; j < cm.NumMajor(); j++ {
		for k := starts[j]; k < starts[j]+lens[j]; k++ {
			got[indices[k]][j] = coeffs[k]
		}
	}
	for i := range dense {
		for j := range dense[i] {
			if got[i][j] != dense[i][j] {
				t.Errorf("entry (%d,%d) = %g, want %g", i, j, got[i][j], dense[i][j])
			}
		}
	}

	// And back again.
	rm2 := cm.ReverseOrderedCopy()
	if rm2.Ordering() != RowMajor || rm2.NumNonzeros() != rm.NumNonzeros() {
		t.Errorf("double reverse gives ordering %v with %d nonzeros",
			rm2.Ordering(), rm2.NumNonzeros())
	}
}

// TestPackedVector covers insert, clear, and accessors.
func TestPackedVector(t *testing.T) {
	pv := NewPackedVector(2)
	if pv.Len() != 0 {
		t.Fatalf("fresh vector has %d entries", pv.Len())
	}
	pv.Insert(3, 1.5)
	pv.Insert(7, -2)
	if pv.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", pv.Len())
	}
	if j, v := pv.Entry(1); j != 7 || v != -2 {
		t.Errorf("Entry(1) = (%d,%g), want (7,-2)", j, v)
	}
	if got := pv.String(); got != "{3:1.5, 7:-2}" {
		t.Errorf("String() = %q", got)
	}
	pv.Clear()
	if pv.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", pv.Len())
	}
}
