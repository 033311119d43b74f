// Package phic: engine construction, configuration, and system installation.
package phic

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sheerluck/Cgl/pkg/coin"
)

// Default configuration values. The zero and feasibility tolerances and the
// revision limit follow long-standing practice in branch-and-cut codes.
const (
	// DefaultZeroTol is the tolerance below which a coefficient is treated
	// as structurally zero.
	DefaultZeroTol = 1.0e-11
	// DefaultFeasTol is the feasibility tolerance used when comparing
	// constraint and variable bounds.
	DefaultFeasTol = 1.0e-7
	// DefaultColPropTol is the minimum column bound improvement worth
	// propagating.
	DefaultColPropTol = 1.0e-3
	// DefaultRowPropTol is the minimum row lhs bound improvement worth
	// propagating.
	DefaultRowPropTol = 1.0e-3
	// DefaultRevLimit is the number of incremental patches allowed on a row
	// bound before a full recalculation is forced.
	DefaultRevLimit = 10
	// DefaultInfinity is the bound magnitude treated as unbounded.
	DefaultInfinity = math.MaxFloat64
)

// DefaultPropMask propagates onto binary and general integer variables only.
const DefaultPropMask = PropBinary | PropGenInt

// Option configures a Phic engine at construction.
type Option func(*Phic)

// WithZeroTol sets the structural zero tolerance.
func WithZeroTol(tol float64) Option { return func(p *Phic) { p.zeroTol = tol } }

// WithFeasTol sets the feasibility tolerance.
func WithFeasTol(tol float64) Option { return func(p *Phic) { p.feasTol = tol } }

// WithInfinity sets the value treated as infinity in bound arrays.
func WithInfinity(inf float64) Option { return func(p *Phic) { p.infty = inf } }

// WithColPropTol sets the minimum column bound improvement worth recording
// and propagating.
func WithColPropTol(tol float64) Option { return func(p *Phic) { p.colPropTol = tol } }

// WithRowPropTol sets the minimum row lhs bound improvement that requeues
// the row for propagation.
func WithRowPropTol(tol float64) Option { return func(p *Phic) { p.rowPropTol = tol } }

// WithRevLimit sets the incremental-patch limit per row bound.
func WithRevLimit(limit int) Option { return func(p *Phic) { p.revLimit = limit } }

// WithPropMask selects which variable kinds receive propagated bounds.
func WithPropMask(mask PropMask) Option { return func(p *Phic) { p.propMask = mask } }

// WithVerbosity sets the diagnostic trace level, 0 (silent) to 5
// (per-variable trace). Trace output goes to the engine's logger.
func WithVerbosity(v int) Option { return func(p *Phic) { p.verbosity = v } }

// WithLogger replaces the engine's logger. The default logger discards all
// output; install one and raise the verbosity to see the propagation trace.
func WithLogger(log *logrus.Logger) Option { return func(p *Phic) { p.log = log } }

// Phic is a bound-tightening engine for one constraint system. It is not
// safe for concurrent use: one propagation episode has exactly one writer,
// and callers must not read exported bounds while an episode is running.
type Phic struct {
	zeroTol    float64
	feasTol    float64
	infty      float64
	colPropTol float64
	rowPropTol float64
	revLimit   int
	propMask   PropMask
	verbosity  int
	log        *logrus.Logger

	m int // rows
	n int // columns

	// Matrix views. One of the two may be engine-owned (built by
	// ReverseOrderedCopy when the caller supplied only the other ordering);
	// borrowed matrices are never mutated.
	rowMtx    *coin.PackedMatrix
	colMtx    *coin.PackedMatrix
	ownRowMtx bool
	ownColMtx bool

	// Unpacked matrix structure, cached at install time.
	rmStarts, rmLens, rmIndices []int
	rmCoeffs                    []float64
	cmStarts, cmLens, cmIndices []int
	cmCoeffs                    []float64

	rhsL, rhsU []float64 // borrowed, read-only

	// Column bounds: loaned (caller slices, tightened in place) or owned
	// (private copies).
	colL, colU  []float64
	ownColBnds  bool
	varKind     []VarKind

	lhsL []LhsBnd
	lhsU []LhsBnd
	info []RowInfo

	// Change logs; see change.go.
	varChgs   []VarBndChg
	varChgNdx []int32
	lhsChgs   []LhsBndChg
	lhsChgNdx []int32

	// Scheduler state; see propagate.go.
	cand        []candidate
	pending     pendingHeap
	inProcess   int
	rebuildHeap bool
}

// New creates an engine with default tolerances and no installed system.
func New(opts ...Option) *Phic {
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := &Phic{
		zeroTol:    DefaultZeroTol,
		feasTol:    DefaultFeasTol,
		infty:      DefaultInfinity,
		colPropTol: DefaultColPropTol,
		rowPropTol: DefaultRowPropTol,
		revLimit:   DefaultRevLimit,
		propMask:   DefaultPropMask,
		log:        log,
		inProcess:  -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// NumRows returns the number of rows in the installed system.
func (p *Phic) NumRows() int { return p.m }

// NumCols returns the number of columns in the installed system.
func (p *Phic) NumCols() int { return p.n }

// LoanSystem installs a constraint system on loan from the caller: matrix
// views, and row rhs bound arrays. At least one matrix ordering must be
// given; if only one is, the engine builds and owns the other. The rhs
// arrays are borrowed read-only for the life of the installation.
//
// Installing a system with more rows than the previous one invalidates the
// derived lhs bound arrays; InitLhsBnds must be called before propagating.
func (p *Phic) LoanSystem(rowMtx, colMtx *coin.PackedMatrix, rhsLower, rhsUpper []float64) error {
	if rhsLower == nil || rhsUpper == nil {
		return errors.New("phic: rhs bound arrays must not be nil")
	}
	if rowMtx == nil && colMtx == nil {
		return errors.New("phic: at least one matrix ordering is required")
	}
	if rowMtx != nil && rowMtx.Ordering() != coin.RowMajor {
		return errors.Errorf("phic: rowMtx has ordering %d, want row-major", rowMtx.Ordering())
	}
	if colMtx != nil && colMtx.Ordering() != coin.ColMajor {
		return errors.Errorf("phic: colMtx has ordering %d, want column-major", colMtx.Ordering())
	}

	switch {
	case rowMtx != nil && colMtx != nil:
		if rowMtx.NumRows() != colMtx.NumRows() || rowMtx.NumCols() != colMtx.NumCols() {
			return errors.Errorf("phic: matrix views disagree, %dx%d vs %dx%d",
				rowMtx.NumRows(), rowMtx.NumCols(), colMtx.NumRows(), colMtx.NumCols())
		}
		p.rowMtx, p.ownRowMtx = rowMtx, false
		p.colMtx, p.ownColMtx = colMtx, false
	case colMtx != nil:
		p.colMtx, p.ownColMtx = colMtx, false
		p.rowMtx, p.ownRowMtx = colMtx.ReverseOrderedCopy(), true
	default:
		p.rowMtx, p.ownRowMtx = rowMtx, false
		p.colMtx, p.ownColMtx = rowMtx.ReverseOrderedCopy(), true
	}

	if len(rhsLower) < p.rowMtx.NumRows() || len(rhsUpper) < p.rowMtx.NumRows() {
		return errors.Errorf("phic: rhs arrays of length %d, %d for %d rows",
			len(rhsLower), len(rhsUpper), p.rowMtx.NumRows())
	}
	p.rhsL = rhsLower
	p.rhsU = rhsUpper

	// Derived arrays no longer fit once the system grows.
	if p.rowMtx.NumRows() > p.m {
		p.lhsL = nil
		p.lhsU = nil
		p.info = nil
		p.cand = nil
		p.lhsChgNdx = nil
	}
	if p.rowMtx.NumCols() > p.n {
		p.varChgNdx = nil
	}
	p.m = p.rowMtx.NumRows()
	p.n = p.rowMtx.NumCols()

	// Unpack the structure vectors once; they are read on every row scan.
	p.rmStarts = p.rowMtx.VectorStarts()
	p.rmLens = p.rowMtx.VectorLengths()
	p.rmIndices = p.rowMtx.Indices()
	p.rmCoeffs = p.rowMtx.Elements()
	p.cmStarts = p.colMtx.VectorStarts()
	p.cmLens = p.colMtx.VectorLengths()
	p.cmIndices = p.colMtx.Indices()
	p.cmCoeffs = p.colMtx.Elements()

	return nil
}

// LoanColBnds installs column bound arrays on loan from the caller. The
// engine tightens them in place; Revert restores the caller's originals.
func (p *Phic) LoanColBnds(colLower, colUpper []float64) error {
	if colLower == nil || colUpper == nil {
		return errors.New("phic: column bound arrays must not be nil")
	}
	if len(colLower) < p.n || len(colUpper) < p.n {
		return errors.Errorf("phic: column bound arrays of length %d, %d for %d columns",
			len(colLower), len(colUpper), p.n)
	}
	p.colL = colLower
	p.colU = colUpper
	p.ownColBnds = false
	return nil
}

// SetColBnds installs private copies of the caller's column bounds. The
// caller's arrays are not touched by propagation.
func (p *Phic) SetColBnds(colLower, colUpper []float64) error {
	if colLower == nil || colUpper == nil {
		return errors.New("phic: column bound arrays must not be nil")
	}
	if len(colLower) < p.n || len(colUpper) < p.n {
		return errors.Errorf("phic: column bound arrays of length %d, %d for %d columns",
			len(colLower), len(colUpper), p.n)
	}
	if !p.ownColBnds || len(p.colL) < p.n {
		p.colL = make([]float64, p.n)
		p.colU = make([]float64, p.n)
	}
	copy(p.colL, colLower[:p.n])
	copy(p.colU, colUpper[:p.n])
	p.ownColBnds = true
	return nil
}

// SetVarKinds installs the per-variable kind tags. A nil argument marks
// every variable continuous.
func (p *Phic) SetVarKinds(kinds []VarKind) error {
	if kinds == nil {
		p.varKind = make([]VarKind, p.n)
		return nil
	}
	if len(kinds) < p.n {
		return errors.Errorf("phic: kind array of length %d for %d columns", len(kinds), p.n)
	}
	p.varKind = kinds
	return nil
}

// ColBnds returns the live column bound arrays. The slices are the engine's
// working state (possibly the caller's loaned arrays); treat them as
// read-only outside a propagation episode.
func (p *Phic) ColBnds() (lower, upper []float64) { return p.colL, p.colU }

// LhsBnds returns the internal lhs bound records for row i.
func (p *Phic) LhsBnds(i int) (lower, upper LhsBnd) {
	p.checkRow(i)
	return p.lhsL[i], p.lhsU[i]
}

// GetRowInfo returns the metrics from row i's last full recomputation.
func (p *Phic) GetRowInfo(i int) RowInfo {
	p.checkRow(i)
	return p.info[i]
}

// GetRowLhsBnds materializes the row lhs bounds as dense arrays, collapsing
// any infinite contribution to the infinity sentinel. The result slices are
// freshly allocated.
func (p *Phic) GetRowLhsBnds() (lhsLower, lhsUpper []float64) {
	if p.lhsL == nil || p.lhsU == nil {
		panic("phic: lhs bounds not initialised; call InitLhsBnds first")
	}
	lhsLower = make([]float64, p.m)
	lhsUpper = make([]float64, p.m)
	for i := 0; i < p.m; i++ {
		if p.lhsL[i].IsFinite() {
			lhsLower[i] = p.lhsL[i].Value()
		} else {
			lhsLower[i] = -p.infty
		}
		if p.lhsU[i].IsFinite() {
			lhsUpper[i] = p.lhsU[i].Value()
		} else {
			lhsUpper[i] = p.infty
		}
	}
	return lhsLower, lhsUpper
}

// checkRow asserts that i is a valid row index and the derived arrays exist.
func (p *Phic) checkRow(i int) {
	if i < 0 || i >= p.m {
		panic(fmt.Sprintf("phic: row %d out of range [0,%d)", i, p.m))
	}
	if p.lhsL == nil || p.lhsU == nil || p.info == nil {
		panic("phic: lhs bounds not initialised; call InitLhsBnds first")
	}
}

// checkCol asserts that j is a valid column index.
func (p *Phic) checkCol(j int) {
	if j < 0 || j >= p.n {
		panic(fmt.Sprintf("phic: column %d out of range [0,%d)", j, p.n))
	}
}
