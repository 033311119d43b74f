package phic

import (
	"testing"

	"github.com/sheerluck/Cgl/pkg/coin"
)

// TestRecordVarBndChg_FirstTouch checks that the original bounds are
// captured exactly once, on the first change, and never rewritten.
func TestRecordVarBndChg_FirstTouch(t *testing.T) {
	p := newTestPhic(t, nil,
		[][]float64{{1, 1}}, 2,
		[]float64{-inf}, []float64{10},
		[]float64{0, 0}, []float64{8, 8},
		nil)

	p.RecordVarBndChg(0, SideUpper, 6)
	p.RecordVarBndChg(0, SideUpper, 4)
	p.RecordVarBndChg(0, SideLower, 1)

	if got := p.NumVarBndChgs(); got != 1 {
		t.Fatalf("log holds %d records for one variable, want 1", got)
	}
	chg := p.varChgs[0]
	if chg.OrigL != 0 || chg.OrigU != 8 {
		t.Errorf("originals [%g,%g], want [0,8]", chg.OrigL, chg.OrigU)
	}
	if chg.NewL != 1 || chg.NewU != 4 {
		t.Errorf("currents [%g,%g], want [1,4]", chg.NewL, chg.NewU)
	}
	if chg.RevL != 1 || chg.RevU != 2 {
		t.Errorf("revisions (%d,%d), want (1,2)", chg.RevL, chg.RevU)
	}
	colL, colU := p.ColBnds()
	if colL[0] != 1 || colU[0] != 4 {
		t.Errorf("live bounds [%g,%g], want [1,4]", colL[0], colU[0])
	}
}

// TestRecordVarBndChg_Growth pushes the log past its seed capacity and
// checks that records survive the reallocation.
func TestRecordVarBndChg_Growth(t *testing.T) {
	n := 100
	row := make([]float64, n)
	colL := make([]float64, n)
	colU := make([]float64, n)
	for j := range row {
		row[j] = 1
		colU[j] = 10
	}
	p := newTestPhic(t, nil, [][]float64{row}, n,
		[]float64{-inf}, []float64{inf}, colL, colU, nil)

	for j := 0; j < n; j++ {
		p.RecordVarBndChg(j, SideUpper, float64(j))
	}
	if got := p.NumVarBndChgs(); got != n {
		t.Fatalf("log holds %d records, want %d", got, n)
	}
	for j := 0; j < n; j++ {
		chg := p.varChgs[p.varChgNdx[j]]
		if chg.Ndx != j || chg.NewU != float64(j) || chg.OrigU != 10 {
			t.Fatalf("record for x<%d> = %+v", j, chg)
		}
	}
}

// TestRevert_LeftInverse applies a mixed sequence of variable and row
// tightenings against loaned column bounds, reverts everything, and
// requires the caller's arrays and all row bounds back at their
// pre-sequence values with the logs fully cleared.
func TestRevert_LeftInverse(t *testing.T) {
	mtx, err := coin.NewRowMajorFromDense([][]float64{
		{2, 3, 0},
		{0, 1, 1},
	}, 3)
	if err != nil {
		t.Fatalf("building matrix: %v", err)
	}
	p := New()
	if err := p.LoanSystem(mtx, nil, []float64{-inf, -inf}, []float64{12, 9}); err != nil {
		t.Fatalf("LoanSystem: %v", err)
	}
	colL := []float64{0, 0, 0}
	colU := []float64{5, inf, 4}
	if err := p.LoanColBnds(colL, colU); err != nil {
		t.Fatalf("LoanColBnds: %v", err)
	}
	p.InitLhsBnds()
	p.InitPropagation()

	wantL0, wantU0 := p.LhsBnds(0)
	wantL1, wantU1 := p.LhsBnds(1)

	if err := p.TightenVarBnd(1, SideUpper, 2); err != nil {
		t.Fatalf("TightenVarBnd: %v", err)
	}
	if err := p.TightenVarBnd(0, SideLower, 1); err != nil {
		t.Fatalf("TightenVarBnd: %v", err)
	}
	if p.NumVarBndChgs() == 0 || p.NumLhsBndChgs() == 0 {
		t.Fatal("expected outstanding changes before revert")
	}

	p.Revert(true, true)

	// The loaned arrays themselves must be restored.
	if colL[0] != 0 || colU[1] != inf {
		t.Errorf("loaned bounds not restored: l(x0)=%g u(x1)=%g", colL[0], colU[1])
	}
	gotL0, gotU0 := p.LhsBnds(0)
	gotL1, gotU1 := p.LhsBnds(1)
	if gotL0 != wantL0 || gotU0 != wantU0 || gotL1 != wantL1 || gotU1 != wantU1 {
		t.Errorf("row bounds not restored: {%v,%v} {%v,%v}", gotL0, gotU0, gotL1, gotU1)
	}
	if p.NumVarBndChgs() != 0 || p.NumLhsBndChgs() != 0 {
		t.Errorf("logs not empty after revert: %d var, %d lhs",
			p.NumVarBndChgs(), p.NumLhsBndChgs())
	}

	// Exports from a reverted engine are empty.
	lbs := coin.NewPackedVector(3)
	ubs := coin.NewPackedVector(3)
	p.GetColBndChgs(lbs, ubs)
	if lbs.Len() != 0 || ubs.Len() != 0 {
		t.Errorf("export after revert has %d+%d entries, want none", lbs.Len(), ubs.Len())
	}

	// The presence index is clear: a fresh change allocates a fresh record.
	p.RecordVarBndChg(1, SideUpper, 3)
	if p.varChgs[0].OrigU != inf {
		t.Errorf("fresh record original = %g, want inf", p.varChgs[0].OrigU)
	}
}

// TestRevert_ColumnsOnly reverts only the column log and checks the row log
// survives untouched.
func TestRevert_ColumnsOnly(t *testing.T) {
	p := newTestPhic(t, nil,
		[][]float64{{1, 1}}, 2,
		[]float64{-inf}, []float64{10},
		[]float64{0, 0}, []float64{5, 5},
		nil)

	if err := p.TightenVarBnd(0, SideUpper, 3); err != nil {
		t.Fatalf("TightenVarBnd: %v", err)
	}
	p.Revert(true, false)

	colL, colU := p.ColBnds()
	if colL[0] != 0 || colU[0] != 5 {
		t.Errorf("column bounds [%g,%g], want [0,5]", colL[0], colU[0])
	}
	if p.NumLhsBndChgs() != 1 {
		t.Errorf("row log holds %d records, want 1", p.NumLhsBndChgs())
	}
}

// TestClearPropagation drops the logs while keeping the tightened bounds
// live.
func TestClearPropagation(t *testing.T) {
	p := newTestPhic(t, nil,
		[][]float64{{1, 1}}, 2,
		[]float64{-inf}, []float64{10},
		[]float64{0, 0}, []float64{5, 5},
		nil)

	if err := p.TightenVarBnd(0, SideUpper, 3); err != nil {
		t.Fatalf("TightenVarBnd: %v", err)
	}
	p.ClearPropagation()

	if p.NumVarBndChgs() != 0 || p.NumLhsBndChgs() != 0 {
		t.Fatalf("logs not empty after clear: %d var, %d lhs",
			p.NumVarBndChgs(), p.NumLhsBndChgs())
	}
	_, colU := p.ColBnds()
	if colU[0] != 3 {
		t.Errorf("live bound %g after clear, want the committed 3", colU[0])
	}
	// A later change sees the committed bound as its original.
	p.RecordVarBndChg(0, SideUpper, 2)
	if p.varChgs[0].OrigU != 3 {
		t.Errorf("post-clear original = %g, want 3", p.varChgs[0].OrigU)
	}
}

// TestEditColBnds_CleanOnly checks the bulk edit and its precondition: an
// edit with outstanding changes must fail loudly.
func TestEditColBnds_CleanOnly(t *testing.T) {
	p := newTestPhic(t, nil,
		[][]float64{{1, 1}}, 2,
		[]float64{-inf}, []float64{10},
		[]float64{0, 0}, []float64{5, 5},
		nil)

	lbs := coin.NewPackedVector(1)
	lbs.Insert(1, 2)
	ubs := coin.NewPackedVector(1)
	ubs.Insert(0, 4)
	p.EditColBnds(lbs, ubs)

	colL, colU := p.ColBnds()
	if colL[1] != 2 || colU[0] != 4 {
		t.Errorf("edited bounds l(x1)=%g u(x0)=%g, want 2 and 4", colL[1], colU[0])
	}

	p.RecordVarBndChg(0, SideUpper, 3)
	defer func() {
		if recover() == nil {
			t.Error("edit with outstanding changes did not panic")
		}
	}()
	p.EditColBnds(lbs, ubs)
}

// TestEditColBndPairs applies the pair form of the bulk edit.
func TestEditColBndPairs(t *testing.T) {
	p := newTestPhic(t, nil,
		[][]float64{{1, 1}}, 2,
		[]float64{-inf}, []float64{10},
		[]float64{0, 0}, []float64{5, 5},
		nil)

	p.EditColBndPairs([]BndPair{
		{Ndx: 0, LB: 1, UB: 4},
		{Ndx: 1, LB: -1, UB: 2},
	})
	colL, colU := p.ColBnds()
	if colL[0] != 1 || colU[0] != 4 || colL[1] != -1 || colU[1] != 2 {
		t.Errorf("edited bounds [%g,%g] [%g,%g]", colL[0], colU[0], colL[1], colU[1])
	}
}

// TestRevisionLimitForcesRecalc patches one row's upper bound past the
// revision limit and checks the forced full recalculation resets the
// counter.
func TestRevisionLimitForcesRecalc(t *testing.T) {
	p := newTestPhic(t, []Option{WithRevLimit(3)},
		[][]float64{{1, 1, 1, 1, 1}}, 5,
		[]float64{-inf}, []float64{100},
		[]float64{0, 0, 0, 0, 0}, []float64{10, 10, 10, 10, 10},
		nil)

	// Each tightening of a distinct variable patches the row upper bound
	// once. Three patches stay incremental.
	for j := 0; j < 3; j++ {
		if err := p.TightenVarBnd(j, SideUpper, 5); err != nil {
			t.Fatalf("TightenVarBnd x<%d>: %v", j, err)
		}
	}
	if _, up := p.LhsBnds(0); up.Revs() != 3 {
		t.Fatalf("upper revs = %d after three patches, want 3", up.Revs())
	}

	// The fourth would exceed the limit; it must arrive via full
	// recalculation with the counter reset.
	if err := p.TightenVarBnd(3, SideUpper, 5); err != nil {
		t.Fatalf("TightenVarBnd x<3>: %v", err)
	}
	_, up := p.LhsBnds(0)
	if up.Revs() != 0 {
		t.Errorf("upper revs = %d after forced recalc, want 0", up.Revs())
	}
	if up.Value() != 5+5+5+5+10 {
		t.Errorf("upper = %g after forced recalc, want 30", up.Value())
	}
	ndx := p.lhsChgNdx[0]
	if ndx < 0 || !p.lhsChgs[ndx].FullRecalc {
		t.Error("row change record does not mark the full recalculation")
	}
}
