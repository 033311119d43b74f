// Package phic: change logging, revert, clear, and bulk edit of bounds.
//
// Both logs follow the same discipline: a record is created lazily on the
// first change to an entity within an episode, seeded with the entity's
// current bounds as "original"; later changes update only the "new" fields
// and revision counters. Presence is tracked by a per-entity index array
// (-1 meaning "no record"), so repeated changes never duplicate records and
// lookup is O(1).
package phic

import (
	"fmt"

	"github.com/sheerluck/Cgl/pkg/coin"
)

// VarBndChg records the bound changes applied to one variable since the log
// was last cleared or reverted.
type VarBndChg struct {
	Ndx  int
	Kind VarKind
	// Revision counts per side; zero means the side never changed.
	RevL, RevU int
	// Bounds at first touch and the current bounds.
	OrigL, NewL float64
	OrigU, NewU float64
}

// String renders the record as in trace output.
func (c VarBndChg) String() string {
	return fmt.Sprintf("x<%d> %v [%g,%g] --#%d,%d#-> [%g,%g]",
		c.Ndx, c.Kind, c.OrigL, c.OrigU, c.RevL, c.RevU, c.NewL, c.NewU)
}

// LhsBndChg records the lhs bound changes applied to one row since the log
// was last cleared or reverted.
type LhsBndChg struct {
	Ndx         int
	RevL, RevU  int
	OrigL, NewL LhsBnd
	OrigU, NewU LhsBnd
	// FullRecalc is set when any change to this row was applied by full
	// recomputation rather than an incremental patch.
	FullRecalc bool
}

// String renders the record as in trace output.
func (c LhsBndChg) String() string {
	return fmt.Sprintf("r(%d) {%v,%v} --#%d,%d#-> {%v,%v}",
		c.Ndx, c.OrigL, c.OrigU, c.RevL, c.RevU, c.NewL, c.NewU)
}

// seedSize returns the initial log capacity for a dimension of size dim.
func seedSize(dim int) int {
	sze := dim/4 + 10
	if sze > dim {
		sze = dim
	}
	return sze
}

// grownCap returns the next capacity after cur: half again plus ten, never
// beyond the dimension (a log holds at most one record per entity).
func grownCap(cur, dim int) int {
	sze := cur + cur/2 + 10
	if sze > dim {
		sze = dim
	}
	if sze <= cur {
		sze = cur + 1
	}
	return sze
}

// InitPropagation allocates or resets the change logs and the scheduler
// state for a new propagation episode. It must be called after the system
// and bounds are installed and before any Record*, Tighten*, or Propagate
// call. Existing backing stores are reused when they still fit.
func (p *Phic) InitPropagation() {
	if p.colMtx == nil {
		panic("phic: no system installed")
	}

	if cap(p.varChgs) < seedSize(p.n) {
		p.varChgs = make([]VarBndChg, 0, seedSize(p.n))
	} else {
		p.varChgs = p.varChgs[:0]
	}
	if p.varChgNdx == nil {
		p.varChgNdx = make([]int32, p.n)
	}
	for j := range p.varChgNdx {
		p.varChgNdx[j] = -1
	}

	if cap(p.lhsChgs) < seedSize(p.m) {
		p.lhsChgs = make([]LhsBndChg, 0, seedSize(p.m))
	} else {
		p.lhsChgs = p.lhsChgs[:0]
	}
	if p.lhsChgNdx == nil {
		p.lhsChgNdx = make([]int32, p.m)
	}
	for i := range p.lhsChgNdx {
		p.lhsChgNdx[i] = -1
	}

	if cap(p.pending.rows) < seedSize(p.m) {
		p.pending.rows = make([]int, 0, seedSize(p.m))
	} else {
		p.pending.rows = p.pending.rows[:0]
	}
	p.pending.phic = p
	p.inProcess = -1
	p.rebuildHeap = false
	if p.cand == nil {
		p.cand = make([]candidate, p.m)
	}
	for i := range p.cand {
		p.cand[i].isPending = false
	}
}

// RecordVarBndChg applies a new bound to variable j and logs the change.
//
// The caller warrants that nbnd genuinely tightens the bound: the log
// mechanism does not validate monotonicity, and downstream incremental
// reasoning relies on it.
func (p *Phic) RecordVarBndChg(j int, side Side, nbnd float64) {
	p.checkCol(j)
	if p.varChgNdx == nil {
		panic("phic: change logs not initialised; call InitPropagation first")
	}
	if side != SideLower && side != SideUpper {
		panic(fmt.Sprintf("phic: invalid side %d", uint8(side)))
	}

	ndx := p.varChgNdx[j]
	if ndx < 0 {
		if len(p.varChgs) == cap(p.varChgs) {
			grown := make([]VarBndChg, len(p.varChgs), grownCap(cap(p.varChgs), p.n))
			copy(grown, p.varChgs)
			p.varChgs = grown
		}
		kind := KindContinuous
		if p.varKind != nil {
			kind = p.varKind[j]
		}
		p.varChgs = append(p.varChgs, VarBndChg{
			Ndx:   j,
			Kind:  kind,
			OrigL: p.colL[j],
			NewL:  p.colL[j],
			OrigU: p.colU[j],
			NewU:  p.colU[j],
		})
		ndx = int32(len(p.varChgs) - 1)
		p.varChgNdx[j] = ndx
	}
	chg := &p.varChgs[ndx]

	if p.verbosity >= 5 {
		if side == SideLower {
			p.log.Debugf("          x<%d> %v [%g,%g] lb #%d: %g -> %g",
				j, chg.Kind, chg.OrigL, chg.OrigU, chg.RevL+1, p.colL[j], nbnd)
		} else {
			p.log.Debugf("          x<%d> %v [%g,%g] ub #%d: %g -> %g",
				j, chg.Kind, chg.OrigL, chg.OrigU, chg.RevU+1, p.colU[j], nbnd)
		}
	}

	if side == SideLower {
		p.colL[j] = nbnd
		chg.RevL++
		chg.NewL = nbnd
	} else {
		p.colU[j] = nbnd
		chg.RevU++
		chg.NewU = nbnd
	}
}

// RecordLhsBndChg applies a new lhs bound to row i and logs the change.
//
// With fullRecalc set, the stored bound is not patched with nbnd; instead
// both sides and the row metrics are recomputed from the live column bounds.
// The change record still advances for the side that triggered the
// re-derivation, and its "new" fields are taken from the recomputed state.
func (p *Phic) RecordLhsBndChg(i int, fullRecalc bool, side Side, nbnd LhsBnd) {
	p.checkRow(i)
	if p.lhsChgNdx == nil {
		panic("phic: change logs not initialised; call InitPropagation first")
	}
	if side != SideLower && side != SideUpper {
		panic(fmt.Sprintf("phic: invalid side %d", uint8(side)))
	}

	ndx := p.lhsChgNdx[i]
	if ndx < 0 {
		if len(p.lhsChgs) == cap(p.lhsChgs) {
			grown := make([]LhsBndChg, len(p.lhsChgs), grownCap(cap(p.lhsChgs), p.m))
			copy(grown, p.lhsChgs)
			p.lhsChgs = grown
		}
		p.lhsChgs = append(p.lhsChgs, LhsBndChg{
			Ndx:   i,
			OrigL: p.lhsL[i],
			NewL:  p.lhsL[i],
			OrigU: p.lhsU[i],
			NewU:  p.lhsU[i],
		})
		ndx = int32(len(p.lhsChgs) - 1)
		p.lhsChgNdx[i] = ndx
	}
	chg := &p.lhsChgs[ndx]

	if p.verbosity >= 5 {
		mark := ""
		if fullRecalc {
			mark = "*"
		}
		if side == SideLower {
			p.log.Debugf("          r(%d) {%v,%v} %sL #%d: %v -> %v",
				i, chg.OrigL, chg.OrigU, mark, chg.RevL+1, p.lhsL[i], nbnd)
		} else {
			p.log.Debugf("          r(%d) {%v,%v} %sU #%d: %v -> %v",
				i, chg.OrigL, chg.OrigU, mark, chg.RevU+1, p.lhsU[i], nbnd)
		}
	}

	if fullRecalc {
		p.CalcLhsBnds(i)
		chg.FullRecalc = true
		chg.NewL = p.lhsL[i]
		chg.NewU = p.lhsU[i]
		// The recalculation refreshed the row's metrics; a queued entry now
		// has a stale heap key.
		if p.cand != nil && p.cand[i].isPending {
			p.rebuildHeap = true
		}
	} else if side == SideLower {
		p.lhsL[i] = nbnd
		chg.NewL = nbnd
	} else {
		p.lhsU[i] = nbnd
		chg.NewU = nbnd
	}
	if side == SideLower {
		chg.RevL++
	} else {
		chg.RevU++
	}
}

// NumVarBndChgs returns the number of variables with outstanding changes.
func (p *Phic) NumVarBndChgs() int { return len(p.varChgs) }

// NumLhsBndChgs returns the number of rows with outstanding changes.
func (p *Phic) NumLhsBndChgs() int { return len(p.lhsChgs) }

// Revert backs out the current change logs in reverse-chronological order,
// restoring the bounds recorded at first touch and emptying the logs.
//
// Row bounds are restored verbatim from the stored originals. This is
// consistent because the column log is replayed first: the stored row
// originals were captured against exactly the column bounds that the column
// replay restores. Reverting row bounds without also reverting column
// bounds leaves the two views inconsistent; callers doing that are expected
// to recompute the rows they care about.
func (p *Phic) Revert(revertColBnds, revertRowBnds bool) {
	if p.verbosity >= 3 {
		p.log.Infof("          reverting %d var bnds, %d lhs bnds",
			len(p.varChgs), len(p.lhsChgs))
	}
	if revertColBnds {
		for k := len(p.varChgs) - 1; k >= 0; k-- {
			chg := &p.varChgs[k]
			if p.verbosity >= 4 {
				p.log.Debugf("            %v", *chg)
			}
			j := chg.Ndx
			p.colL[j] = chg.OrigL
			p.colU[j] = chg.OrigU
			p.varChgNdx[j] = -1
		}
		p.varChgs = p.varChgs[:0]
	}
	if revertRowBnds {
		for k := len(p.lhsChgs) - 1; k >= 0; k-- {
			chg := &p.lhsChgs[k]
			if p.verbosity >= 4 {
				p.log.Debugf("            %v", *chg)
			}
			i := chg.Ndx
			p.lhsL[i] = chg.OrigL
			p.lhsU[i] = chg.OrigU
			p.lhsChgNdx[i] = -1
		}
		p.lhsChgs = p.lhsChgs[:0]
	}
}

// ClearPropagation drops the change logs and the pending set without
// touching the live bounds. Use it to commit the current tightenings as the
// new baseline between episodes.
func (p *Phic) ClearPropagation() {
	if p.verbosity >= 2 {
		p.log.Info("    clearing pending set and change records")
	}
	p.pending.rows = p.pending.rows[:0]
	for i := range p.cand {
		p.cand[i].isPending = false
	}
	for k := range p.varChgs {
		p.varChgNdx[p.varChgs[k].Ndx] = -1
	}
	p.varChgs = p.varChgs[:0]
	for k := range p.lhsChgs {
		p.lhsChgNdx[p.lhsChgs[k].Ndx] = -1
	}
	p.lhsChgs = p.lhsChgs[:0]
}

// EditColBnds overwrites column bounds in bulk from sparse vectors. The
// result becomes the new baseline. Legal only when no column changes are
// logged; an edit colliding with an open change record has no sensible
// semantics, so the precondition fails loudly.
func (p *Phic) EditColBnds(lbs, ubs *coin.PackedVector) {
	if lbs == nil && ubs == nil {
		panic("phic: EditColBnds requires at least one vector")
	}
	if len(p.varChgs) != 0 {
		panic(fmt.Sprintf("phic: EditColBnds with %d changes outstanding", len(p.varChgs)))
	}
	if lbs != nil {
		for k := 0; k < lbs.Len(); k++ {
			j, v := lbs.Entry(k)
			p.checkCol(j)
			p.colL[j] = v
		}
	}
	if ubs != nil {
		for k := 0; k < ubs.Len(); k++ {
			j, v := ubs.Entry(k)
			p.checkCol(j)
			p.colU[j] = v
		}
	}
}

// EditColBndPairs overwrites column bounds in bulk from BndPair entries,
// under the same no-outstanding-changes precondition as EditColBnds.
func (p *Phic) EditColBndPairs(newBnds []BndPair) {
	if newBnds == nil {
		panic("phic: EditColBndPairs requires a bound array")
	}
	if len(p.varChgs) != 0 {
		panic(fmt.Sprintf("phic: EditColBndPairs with %d changes outstanding", len(p.varChgs)))
	}
	for k := range newBnds {
		j := newBnds[k].Ndx
		p.checkCol(j)
		p.colL[j] = newBnds[k].LB
		p.colU[j] = newBnds[k].UB
	}
}
