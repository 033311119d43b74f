// Package phic implements bound tightening (domain propagation) over linear
// constraint systems. Given a sparse constraint matrix, row right-hand-side
// bounds, and variable bounds, it maintains lower and upper bounds on each
// row's left-hand-side expression and propagates tightenings between rows
// and variables to a fixed point.
//
// This file defines the bound value model: the per-side row bound with its
// infinite-contributor accounting, the per-row metrics, and the exported
// bound-pair form.
package phic

import "fmt"

// VarKind classifies a variable for propagation purposes.
type VarKind uint8

const (
	// KindContinuous marks a continuous variable.
	KindContinuous VarKind = 0
	// KindBinary marks a 0/1 variable.
	KindBinary VarKind = 1
	// KindGenInt marks a general integer variable.
	KindGenInt VarKind = 2
)

// String returns the single-letter rendering used in trace output.
func (k VarKind) String() string {
	switch k {
	case KindContinuous:
		return "c"
	case KindBinary:
		return "b"
	case KindGenInt:
		return "g"
	}
	return "?"
}

// PropMask selects which variable kinds participate in propagation.
type PropMask uint8

const (
	// PropContinuous enables propagation onto continuous variables.
	PropContinuous PropMask = 1 << KindContinuous
	// PropBinary enables propagation onto binary variables.
	PropBinary PropMask = 1 << KindBinary
	// PropGenInt enables propagation onto general integer variables.
	PropGenInt PropMask = 1 << KindGenInt
	// PropAll enables propagation onto every variable kind.
	PropAll = PropContinuous | PropBinary | PropGenInt
)

// Has reports whether the mask includes the given kind.
func (m PropMask) Has(k VarKind) bool { return m&(1<<k) != 0 }

// Side selects the lower or upper bound of a variable or row.
type Side uint8

const (
	// SideLower selects the lower bound.
	SideLower Side = iota
	// SideUpper selects the upper bound.
	SideUpper
)

// String returns "lower" or "upper".
func (s Side) String() string {
	switch s {
	case SideLower:
		return "lower"
	case SideUpper:
		return "upper"
	}
	panic(fmt.Sprintf("phic: invalid side %d", uint8(s)))
}

// LhsBnd is a one-sided bound on a row's lhs expression.
//
// The finite accumulation in bnd sums coefficient*bound over every variable
// whose relevant bound is finite. The infinite part is tracked separately:
// inf == 0 means the bound is finite and bnd is authoritative; inf >= 2
// means that many variables contribute an unbounded amount; inf == 1 means
// exactly one variable, ndx, contributes the unbounded amount. The single
// contributor case is the critical one: when that variable's bound later
// becomes finite the row bound is patched in O(1) (add coeff*newBnd to bnd,
// drop the infinite part) instead of rescanning the row.
//
// inf == 1 always carries a valid ndx; a bare count of one is not
// representable, so decoding is never ambiguous.
//
// revs counts incremental patches applied since the last full recomputation
// of the row. Once it passes the engine's revision limit the next patch is
// replaced by a full recalculation, bounding accumulated floating-point
// drift.
type LhsBnd struct {
	bnd  float64
	inf  int32
	ndx  int32
	revs int32
}

// FiniteBnd returns a finite bound with the given value.
func FiniteBnd(v float64) LhsBnd {
	return LhsBnd{bnd: v, ndx: -1}
}

// UnboundedBnd returns a bound with count infinite contributors (count >= 2)
// and the given finite accumulation over the remaining variables.
func UnboundedBnd(v float64, count int) LhsBnd {
	if count < 2 {
		panic(fmt.Sprintf("phic: unbounded count %d; use UnboundedOneBnd or FiniteBnd", count))
	}
	return LhsBnd{bnd: v, inf: int32(count), ndx: -1}
}

// UnboundedOneBnd returns a bound whose sole infinite contributor is the
// variable with index j.
func UnboundedOneBnd(v float64, j int) LhsBnd {
	if j < 0 {
		panic(fmt.Sprintf("phic: invalid contributor index %d", j))
	}
	return LhsBnd{bnd: v, inf: 1, ndx: int32(j)}
}

// Value returns the finite accumulation. Authoritative only when IsFinite.
func (b LhsBnd) Value() float64 { return b.bnd }

// IsFinite reports whether no variable contributes an unbounded amount.
func (b LhsBnd) IsFinite() bool { return b.inf == 0 }

// InfCount returns the number of variables contributing an unbounded amount.
func (b LhsBnd) InfCount() int { return int(b.inf) }

// Contributor returns the index of the single infinite contributor, if there
// is exactly one.
func (b LhsBnd) Contributor() (int, bool) {
	if b.inf == 1 {
		return int(b.ndx), true
	}
	return -1, false
}

// Revs returns the number of incremental patches since the last full
// recomputation.
func (b LhsBnd) Revs() int { return int(b.revs) }

// String renders the bound as "(inf,value)", with the single-contributor
// case shown as "(x(j),value)".
func (b LhsBnd) String() string {
	if b.inf == 1 {
		return fmt.Sprintf("(x(%d),%g)", b.ndx, b.bnd)
	}
	return fmt.Sprintf("(%d,%g)", b.inf, b.bnd)
}

// RowInfo holds per-row metrics computed alongside the lhs bounds on a full
// recomputation: the L1 norm of the row's coefficients and the largest
// coefficient-weighted bound gap in the positive and negative coefficient
// directions. Gaps are taken only over variables with both bounds finite.
type RowInfo struct {
	L1Norm float64
	PosGap float64
	NegGap float64
}

// Changed-side flags for BndPair.
const (
	// ChangedLB marks the lower bound as changed.
	ChangedLB uint8 = 0x01
	// ChangedUB marks the upper bound as changed.
	ChangedUB uint8 = 0x02
)

// BndPair reports both bounds of a variable or row in one record, with a
// bitmask saying which sides actually changed. For rows, any number of
// infinite contributors collapses to the infinity sentinel; the distinction
// between one and many contributors exists only inside the engine.
type BndPair struct {
	Ndx     int
	LB      float64
	UB      float64
	Changed uint8
}
