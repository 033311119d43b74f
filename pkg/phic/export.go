// Package phic: read-only exports of the change logs. Entities appear only
// when a side actually changed (revision count > 0). Row exports collapse
// any number of infinite contributors to the infinity sentinel; the
// one-vs-many distinction is internal state only.
package phic

import "github.com/sheerluck/Cgl/pkg/coin"

// GetColBndChgs fills lbs and ubs with the tightened column bounds: one
// entry per variable whose respective side changed. Convenient for
// assembling a column cut. The vectors are cleared first.
func (p *Phic) GetColBndChgs(lbs, ubs *coin.PackedVector) {
	lbs.Clear()
	ubs.Clear()
	for k := range p.varChgs {
		chg := &p.varChgs[k]
		if chg.RevL > 0 {
			lbs.Insert(chg.Ndx, chg.NewL)
		}
		if chg.RevU > 0 {
			ubs.Insert(chg.Ndx, chg.NewU)
		}
	}
}

// GetColBndPairs reports the column change log as index-aligned new/old
// BndPair slices, filtered by variable kind. The Changed mask on the new
// entry says which sides moved; old entries carry the first-touch bounds
// with a zero mask.
func (p *Phic) GetColBndPairs(binVar, intVar, conVar bool) (newBnds, oldBnds []BndPair) {
	newBnds = make([]BndPair, 0, len(p.varChgs))
	oldBnds = make([]BndPair, 0, len(p.varChgs))
	for k := range p.varChgs {
		chg := &p.varChgs[k]
		switch chg.Kind {
		case KindBinary:
			if !binVar {
				continue
			}
		case KindGenInt:
			if !intVar {
				continue
			}
		default:
			if !conVar {
				continue
			}
		}
		var changed uint8
		if chg.RevL > 0 {
			changed |= ChangedLB
		}
		if chg.RevU > 0 {
			changed |= ChangedUB
		}
		newBnds = append(newBnds, BndPair{
			Ndx: chg.Ndx, LB: chg.NewL, UB: chg.NewU, Changed: changed,
		})
		oldBnds = append(oldBnds, BndPair{
			Ndx: chg.Ndx, LB: chg.OrigL, UB: chg.OrigU,
		})
	}
	return newBnds, oldBnds
}

// collapse returns the exportable numeric value of a lhs bound, mapping any
// infinite contribution to the signed infinity sentinel.
func (p *Phic) collapse(b LhsBnd, side Side) float64 {
	if b.IsFinite() {
		return b.Value()
	}
	if side == SideLower {
		return -p.infty
	}
	return p.infty
}

// GetRowLhsBndChgs fills lhsLChgs and lhsUChgs with the changed row lhs
// bounds, one entry per row whose respective side changed. The vectors are
// cleared first.
func (p *Phic) GetRowLhsBndChgs(lhsLChgs, lhsUChgs *coin.PackedVector) {
	lhsLChgs.Clear()
	lhsUChgs.Clear()
	for k := range p.lhsChgs {
		chg := &p.lhsChgs[k]
		if chg.RevL > 0 {
			lhsLChgs.Insert(chg.Ndx, p.collapse(chg.NewL, SideLower))
		}
		if chg.RevU > 0 {
			lhsUChgs.Insert(chg.Ndx, p.collapse(chg.NewU, SideUpper))
		}
	}
}

// GetRowLhsBndPairs reports the row change log as index-aligned new/old
// BndPair slices, one entry per row in the log.
func (p *Phic) GetRowLhsBndPairs() (newBnds, oldBnds []BndPair) {
	newBnds = make([]BndPair, 0, len(p.lhsChgs))
	oldBnds = make([]BndPair, 0, len(p.lhsChgs))
	for k := range p.lhsChgs {
		chg := &p.lhsChgs[k]
		var changed uint8
		if chg.RevL > 0 {
			changed |= ChangedLB
		}
		if chg.RevU > 0 {
			changed |= ChangedUB
		}
		newBnds = append(newBnds, BndPair{
			Ndx:     chg.Ndx,
			LB:      p.collapse(chg.NewL, SideLower),
			UB:      p.collapse(chg.NewU, SideUpper),
			Changed: changed,
		})
		oldBnds = append(oldBnds, BndPair{
			Ndx: chg.Ndx,
			LB:  p.collapse(chg.OrigL, SideLower),
			UB:  p.collapse(chg.OrigU, SideUpper),
		})
	}
	return newBnds, oldBnds
}
