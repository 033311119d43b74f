// Package phic: the propagation scheduler. A priority-ordered pending set
// of rows is driven to a fixed point: popping a row derives tightened
// variable bounds from its lhs bounds and rhs interval, each recorded
// tightening patches the lhs bounds of every row touching that variable and
// requeues the rows whose bounds moved enough to matter.
package phic

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrIncomplete reports that propagation stopped on a caller-supplied
// budget before reaching a fixed point. All bounds derived so far remain
// valid and exportable.
var ErrIncomplete = errors.New("phic: propagation incomplete, budget exhausted")

// InfeasError reports that propagation derived a bound crossing its
// opposite bound beyond the feasibility tolerance. Tightenings recorded
// before the offending step remain logged and exportable.
type InfeasError struct {
	// Row being processed when the crossing was found, -1 when the
	// offending tightening was supplied directly by the caller.
	Row int
	// Var is the variable whose bounds crossed.
	Var int
	// Side is the side whose tightening caused the crossing.
	Side Side
	// Violation is the magnitude of the crossing.
	Violation float64
}

func (e *InfeasError) Error() string {
	return fmt.Sprintf("phic: infeasible at row %d: %s bound of x<%d> crosses by %g",
		e.Row, e.Side, e.Var, e.Violation)
}

// candidate holds per-row scheduling state.
type candidate struct {
	isPending bool
}

// pendingHeap orders pending rows by descending total gap, the
// coefficient-weighted spread of the row's finite variable bounds taken
// from the last full recomputation. Rows with large gaps have the most
// room to yield a tightening. Ties break on ascending row index so the
// processing order is deterministic.
type pendingHeap struct {
	rows []int
	phic *Phic
}

// key returns the scheduling priority for row i. PosGap is nonnegative and
// NegGap nonpositive, so this is the total gap across both coefficient
// directions.
func (p *Phic) key(i int) float64 {
	return p.info[i].PosGap - p.info[i].NegGap
}

func (h *pendingHeap) Len() int { return len(h.rows) }

func (h *pendingHeap) Less(a, b int) bool {
	ka, kb := h.phic.key(h.rows[a]), h.phic.key(h.rows[b])
	if ka != kb {
		return ka > kb
	}
	return h.rows[a] < h.rows[b]
}

func (h *pendingHeap) Swap(a, b int) { h.rows[a], h.rows[b] = h.rows[b], h.rows[a] }

func (h *pendingHeap) Push(x interface{}) { h.rows = append(h.rows, x.(int)) }

func (h *pendingHeap) Pop() interface{} {
	last := len(h.rows) - 1
	i := h.rows[last]
	h.rows = h.rows[:last]
	return i
}

// addToPending queues row i for re-examination. A row already pending is
// left alone; an attempt to queue the row currently being processed is
// discarded (reentrancy guard).
func (p *Phic) addToPending(i int) {
	if i == p.inProcess {
		return
	}
	if p.cand[i].isPending {
		return
	}
	p.cand[i].isPending = true
	heap.Push(&p.pending, i)
}

// PropagateOption configures one Propagate call.
type PropagateOption func(*propConfig)

type propConfig struct {
	maxPasses int
}

// WithMaxPasses bounds the number of rows examined in one Propagate call.
// When the budget runs out, Propagate returns ErrIncomplete with all bounds
// derived so far intact.
func WithMaxPasses(n int) PropagateOption {
	return func(c *propConfig) { c.maxPasses = n }
}

// TightenVarBnd applies a tightened bound to variable j, records it, and
// incrementally updates the lhs bounds of every row touching j, queuing
// rows whose bounds moved beyond the row propagation tolerance. This is the
// caller's entry point for seeding an episode with externally derived
// tightenings; Propagate then drives the consequences to a fixed point.
//
// The caller warrants that nbnd tightens the bound (raises a lower bound or
// lowers an upper bound). A crossing of the opposite bound beyond the
// feasibility tolerance is returned as *InfeasError.
func (p *Phic) TightenVarBnd(j int, side Side, nbnd float64) error {
	p.checkCol(j)
	if p.varChgNdx == nil {
		panic("phic: change logs not initialised; call InitPropagation first")
	}

	var obnd float64
	switch side {
	case SideLower:
		obnd = p.colL[j]
		if u := p.colU[j]; nbnd > u+p.feasTol*(1+math.Abs(u)) {
			return &InfeasError{Row: p.inProcess, Var: j, Side: SideLower, Violation: nbnd - u}
		}
	case SideUpper:
		obnd = p.colU[j]
		if l := p.colL[j]; nbnd < l-p.feasTol*(1+math.Abs(l)) {
			return &InfeasError{Row: p.inProcess, Var: j, Side: SideUpper, Violation: l - nbnd}
		}
	default:
		panic(fmt.Sprintf("phic: invalid side %d", uint8(side)))
	}

	p.RecordVarBndChg(j, side, nbnd)
	p.chgColBnd(j, side, obnd, nbnd)
	return nil
}

// chgColBnd walks column j after a bound change on the given side and
// patches the affected lhs bound of each row touching j.
//
// The affected side follows the coefficient sign: an upper bound change
// feeds the row's upper lhs bound through positive coefficients and the
// lower lhs bound through negative ones; a lower bound change is the
// mirror image.
//
// Patching discipline, per row:
//   - old bound finite: O(1) delta patch, one revision.
//   - old bound infinite, row had j as its sole infinite contributor:
//     O(1) finitizing patch (add coeff*new bound, drop the infinite part).
//   - old bound infinite, row had exactly two infinite contributors: full
//     recalculation, since the identity of the remaining contributor is not
//     recorded.
//   - old bound infinite, three or more contributors: decrement the count
//     and absorb the new finite contribution.
//   - accumulated revisions past the revision limit: full recalculation in
//     place of the patch.
func (p *Phic) chgColBnd(j int, side Side, obnd, nbnd float64) {
	if nbnd >= p.infty || nbnd <= -p.infty {
		// Still unbounded after the change; nothing to patch.
		return
	}
	var oldInf bool
	if side == SideUpper {
		oldInf = obnd >= p.infty
	} else {
		oldInf = obnd <= -p.infty
	}

	first := p.cmStarts[j]
	last := first + p.cmLens[j]
	for k := first; k < last; k++ {
		i := p.cmIndices[k]
		aij := p.cmCoeffs[k]
		if aij <= p.zeroTol && aij >= -p.zeroTol {
			continue
		}

		var rowSide Side
		if (side == SideUpper) == (aij > 0) {
			rowSide = SideUpper
		} else {
			rowSide = SideLower
		}
		var b LhsBnd
		if rowSide == SideUpper {
			b = p.lhsU[i]
		} else {
			b = p.lhsL[i]
		}

		var nb LhsBnd
		requeue := true
		switch {
		case oldInf && b.inf == 1:
			if int(b.ndx) != j {
				panic(fmt.Sprintf(
					"phic: row %d %s bound claims contributor x<%d>, finitized x<%d>",
					i, rowSide, b.ndx, j))
			}
			nb = LhsBnd{bnd: b.bnd + aij*nbnd, ndx: -1, revs: b.revs + 1}
		case oldInf && b.inf == 2:
			// The remaining contributor's identity was not recorded.
			p.RecordLhsBndChg(i, true, rowSide, b)
			p.queueAfterRecalc(i)
			continue
		case oldInf && b.inf > 2:
			nb = LhsBnd{bnd: b.bnd + aij*nbnd, inf: b.inf - 1, ndx: -1, revs: b.revs + 1}
		case oldInf:
			panic(fmt.Sprintf(
				"phic: row %d %s bound finite but x<%d> was an infinite contributor",
				i, rowSide, j))
		default:
			delta := aij * (nbnd - obnd)
			nb = b
			nb.bnd += delta
			nb.revs++
			if math.Abs(delta) <= p.rowPropTol*(1+math.Abs(b.bnd)) {
				requeue = false
			}
		}

		if int(nb.revs) > p.revLimit {
			p.RecordLhsBndChg(i, true, rowSide, b)
			p.queueAfterRecalc(i)
			continue
		}
		p.RecordLhsBndChg(i, false, rowSide, nb)
		if requeue {
			p.addToPending(i)
		}
	}
}

// queueAfterRecalc requeues row i after a full recalculation. The
// recalculation refreshed the row's metrics, so if the row is already
// sitting in the heap its key is stale and the heap is marked for rebuild.
func (p *Phic) queueAfterRecalc(i int) {
	if p.cand[i].isPending {
		p.rebuildHeap = true
		return
	}
	p.addToPending(i)
}

// Propagate drives the pending set to a fixed point. It returns nil on a
// fixed point, ErrIncomplete when WithMaxPasses runs out, the context error
// on cancellation or deadline, and *InfeasError when a bound crossing is
// derived. In every non-nil case the bounds and change logs reflect all
// tightenings applied before the stop and remain valid.
func (p *Phic) Propagate(ctx context.Context, opts ...PropagateOption) error {
	if p.cand == nil {
		panic("phic: scheduler not initialised; call InitPropagation first")
	}
	var cfg propConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	passes := 0
	for len(p.pending.rows) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.maxPasses > 0 && passes >= cfg.maxPasses {
			return ErrIncomplete
		}
		passes++

		if p.rebuildHeap {
			heap.Init(&p.pending)
			p.rebuildHeap = false
		}
		i := heap.Pop(&p.pending).(int)
		p.cand[i].isPending = false

		p.inProcess = i
		err := p.processRow(i)
		p.inProcess = -1
		if err != nil {
			return err
		}
	}
	if p.verbosity >= 2 {
		p.log.Infof("    fixed point after %d passes, %d var chgs, %d lhs chgs",
			passes, len(p.varChgs), len(p.lhsChgs))
	}
	return nil
}

// processRow derives tightened bounds for the variables of row i from the
// row's current lhs bounds against its rhs interval.
//
// For each variable j with coefficient a, the lhs bound with j's own
// contribution removed gives the implied bound: sum <= rhsU yields
// a*x_j <= rhsU - L(i \ j), and sum >= rhsL yields a*x_j >= rhsL - U(i \ j).
// Removal is possible when the lhs bound is finite or when j is its sole
// infinite contributor; otherwise that side offers nothing for j.
func (p *Phic) processRow(i int) error {
	if p.verbosity >= 3 {
		p.log.Debugf("      processing r(%d) %v <= lhs <= %v, rhs [%g,%g]",
			i, p.lhsL[i], p.lhsU[i], p.rhsL[i], p.rhsU[i])
	}
	bL := p.rhsL[i]
	bU := p.rhsU[i]

	first := p.rmStarts[i]
	last := first + p.rmLens[i]
	for k := first; k < last; k++ {
		j := p.rmIndices[k]
		aij := p.rmCoeffs[k]
		if aij <= p.zeroTol && aij >= -p.zeroTol {
			continue
		}
		kind := KindContinuous
		if p.varKind != nil {
			kind = p.varKind[j]
		}
		if !p.propMask.Has(kind) {
			continue
		}

		// Re-read the row bounds each iteration: tightenings applied for
		// earlier variables of this row have already patched them.
		if bU < p.infty {
			if lwo, ok := p.lhsWithout(p.lhsL[i], SideLower, j, aij); ok {
				implied := (bU - lwo) / aij
				var err error
				if aij > 0 {
					err = p.tryTighten(i, j, kind, SideUpper, implied)
				} else {
					err = p.tryTighten(i, j, kind, SideLower, implied)
				}
				if err != nil {
					return err
				}
			}
		}
		if bL > -p.infty {
			if uwo, ok := p.lhsWithout(p.lhsU[i], SideUpper, j, aij); ok {
				implied := (bL - uwo) / aij
				var err error
				if aij > 0 {
					err = p.tryTighten(i, j, kind, SideLower, implied)
				} else {
					err = p.tryTighten(i, j, kind, SideUpper, implied)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// lhsWithout returns the finite value of the lhs bound b with variable j's
// contribution removed. side says which row bound b is, which determines
// whether j contributes through its lower or upper bound.
func (p *Phic) lhsWithout(b LhsBnd, side Side, j int, aij float64) (float64, bool) {
	if b.inf == 1 {
		if int(b.ndx) == j {
			// j is the sole infinite contributor: its contribution is not
			// in the accumulation at all.
			return b.bnd, true
		}
		return 0, false
	}
	if b.inf != 0 {
		return 0, false
	}
	var cb float64
	if (side == SideLower) == (aij > 0) {
		cb = p.colL[j]
	} else {
		cb = p.colU[j]
	}
	return b.bnd - aij*cb, true
}

// tryTighten applies an implied bound to variable j if it improves on the
// current bound by more than the column propagation tolerance. Integer and
// binary variables are rounded inward first.
func (p *Phic) tryTighten(i, j int, kind VarKind, side Side, implied float64) error {
	if implied >= p.infty || implied <= -p.infty {
		return nil
	}
	if kind != KindContinuous {
		if side == SideUpper {
			implied = math.Floor(implied + p.feasTol)
		} else {
			implied = math.Ceil(implied - p.feasTol)
		}
	}
	if side == SideUpper {
		ou := p.colU[j]
		if ou < p.infty && ou-implied <= p.colPropTol*(1+math.Abs(ou)) {
			return nil
		}
	} else {
		ol := p.colL[j]
		if ol > -p.infty && implied-ol <= p.colPropTol*(1+math.Abs(ol)) {
			return nil
		}
	}
	return p.TightenVarBnd(j, side, implied)
}
