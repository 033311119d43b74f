// Package phic: full recomputation of row lhs bounds and row metrics.
package phic

import (
	"context"
	"runtime"
	"sync"

	"github.com/sheerluck/Cgl/internal/parallel"
)

// Rows below this count are initialised on the calling goroutine; larger
// sweeps fan out across a worker pool. Rows are disjoint so the sweep needs
// no coordination beyond the final wait.
const parallelInitThreshold = 4096

// CalcLhsBnds recomputes both lhs bounds and the metrics for row i from
// scratch with a single pass over the row's nonzeros. Both revision counts
// are reset: a full recompute retires all prior incremental patches.
//
// Coefficients with magnitude at or below the zero tolerance are ignored.
// Gaps are accumulated only over variables with both bounds finite.
func (p *Phic) CalcLhsBnds(i int) {
	p.checkRow(i)
	if p.colL == nil || p.colU == nil {
		panic("phic: column bounds not installed")
	}

	var l1norm, posGap, negGap float64
	var bndL, bndU float64
	infL, infU := 0, 0
	ndxL, ndxU := -1, -1

	first := p.rmStarts[i]
	last := first + p.rmLens[i]
	for k := first; k < last; k++ {
		j := p.rmIndices[k]
		aij := p.rmCoeffs[k]
		lj := p.colL[j]
		uj := p.colU[j]
		if aij > p.zeroTol {
			l1norm += aij
			if uj >= p.infty {
				infU++
				ndxU = j
			} else {
				bndU += aij * uj
				if lj > -p.infty && aij*(uj-lj) > posGap {
					posGap = aij * (uj - lj)
				}
			}
			if lj <= -p.infty {
				infL++
				ndxL = j
			} else {
				bndL += aij * lj
				if uj < p.infty && aij*(uj-lj) > posGap {
					posGap = aij * (uj - lj)
				}
			}
		} else if aij < -p.zeroTol {
			l1norm -= aij
			if uj >= p.infty {
				infL++
				ndxL = j
			} else {
				bndL += aij * uj
				if lj > -p.infty && aij*(uj-lj) < negGap {
					negGap = aij * (uj - lj)
				}
			}
			if lj <= -p.infty {
				infU++
				ndxU = j
			} else {
				bndU += aij * lj
				if uj < p.infty && aij*(uj-lj) < negGap {
					negGap = aij * (uj - lj)
				}
			}
		}
	}

	switch {
	case infL == 1:
		p.lhsL[i] = UnboundedOneBnd(bndL, ndxL)
	case infL == 0:
		p.lhsL[i] = FiniteBnd(bndL)
	default:
		p.lhsL[i] = UnboundedBnd(bndL, infL)
	}
	switch {
	case infU == 1:
		p.lhsU[i] = UnboundedOneBnd(bndU, ndxU)
	case infU == 0:
		p.lhsU[i] = FiniteBnd(bndU)
	default:
		p.lhsU[i] = UnboundedBnd(bndU, infU)
	}
	p.info[i] = RowInfo{L1Norm: l1norm, PosGap: posGap, NegGap: negGap}

	if p.verbosity >= 4 {
		p.log.Debugf("        init %g < %v <= r(%d) <= %v < %g, l1 %g, pGap %g, nGap %g",
			p.rhsL[i], p.lhsL[i], i, p.lhsU[i], p.rhsU[i], l1norm, posGap, negGap)
	}
}

// InitLhsBnds allocates the lhs bound and metric arrays if needed and
// recomputes every row. Large systems are swept in parallel; the per-row
// writes are disjoint.
func (p *Phic) InitLhsBnds() {
	if p.colL == nil || p.colU == nil || p.rowMtx == nil {
		panic("phic: system and column bounds must be installed before InitLhsBnds")
	}
	if p.verbosity >= 3 {
		p.log.Infof("    initialising row info and lhs bounds for %d rows", p.m)
	}
	if p.lhsL == nil {
		p.lhsL = make([]LhsBnd, p.m)
	}
	if p.lhsU == nil {
		p.lhsU = make([]LhsBnd, p.m)
	}
	if p.info == nil {
		p.info = make([]RowInfo, p.m)
	}

	if p.m < parallelInitThreshold {
		for i := 0; i < p.m; i++ {
			p.CalcLhsBnds(i)
		}
		return
	}

	workers := runtime.NumCPU()
	pool := parallel.NewWorkerPool(workers)
	defer pool.Shutdown()

	chunk := (p.m + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < p.m; lo += chunk {
		hi := lo + chunk
		if hi > p.m {
			hi = p.m
		}
		lo, hi := lo, hi
		wg.Add(1)
		if err := pool.Submit(context.Background(), func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				p.CalcLhsBnds(i)
			}
		}); err != nil {
			// Pool shut down under us; finish on the calling goroutine.
			for i := lo; i < hi; i++ {
				p.CalcLhsBnds(i)
			}
			wg.Done()
		}
	}
	wg.Wait()
}
