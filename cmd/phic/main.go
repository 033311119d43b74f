// Command phic runs the bound-tightening engine on a small built-in
// demonstration system and prints the tightened bounds. It exists to
// exercise the library end to end; the engine itself is embedded, not
// driven from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sheerluck/Cgl/pkg/coin"
	"github.com/sheerluck/Cgl/pkg/phic"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbosity int
		revLimit  int
		maxPasses int
		feasTol   float64
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "phic",
		Short: "bound tightening over a demonstration constraint system",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(verbosity, revLimit, maxPasses, feasTol, timeout)
		},
	}
	flags := pflag.NewFlagSet("phic", pflag.ContinueOnError)
	flags.IntVarP(&verbosity, "verbosity", "v", 0, "trace level, 0 (silent) to 5 (per-variable)")
	flags.IntVar(&revLimit, "rev-limit", phic.DefaultRevLimit, "incremental patches per row bound before a full recalculation")
	flags.Float64Var(&feasTol, "feas-tol", phic.DefaultFeasTol, "feasibility tolerance for bound comparisons")
	flags.IntVar(&maxPasses, "passes", 0, "row-examination budget, 0 for unlimited")
	flags.DurationVar(&timeout, "timeout", 0, "wall-clock budget, 0 for unlimited")
	cmd.Flags().AddFlagSet(flags)
	return cmd
}

func run(verbosity, revLimit, maxPasses int, feasTol float64, timeout time.Duration) error {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	// A small mixed-integer system:
	//   r0:  2x0 + 3x1        <= 12
	//   r1:        x1 +  x2   >= 4
	//   r2:   x0       - 2x2  <= 3
	// with x0,x1,x2 general integer in [0,10], x2 capped at 1 externally.
	mtx, err := coin.NewRowMajorFromDense([][]float64{
		{2, 3, 0},
		{0, 1, 1},
		{1, 0, -2},
	}, 3)
	if err != nil {
		return errors.Wrap(err, "building demonstration matrix")
	}
	neginf := -phic.DefaultInfinity
	posinf := phic.DefaultInfinity

	p := phic.New(
		phic.WithVerbosity(verbosity),
		phic.WithLogger(log),
		phic.WithRevLimit(revLimit),
		phic.WithFeasTol(feasTol),
	)
	if err := p.LoanSystem(mtx, nil, []float64{neginf, 4, neginf}, []float64{12, posinf, 3}); err != nil {
		return errors.Wrap(err, "installing system")
	}
	if err := p.SetColBnds([]float64{0, 0, 0}, []float64{10, 10, 10}); err != nil {
		return errors.Wrap(err, "installing column bounds")
	}
	if err := p.SetVarKinds([]phic.VarKind{phic.KindGenInt, phic.KindGenInt, phic.KindGenInt}); err != nil {
		return errors.Wrap(err, "installing variable kinds")
	}
	p.InitLhsBnds()
	p.InitPropagation()

	if err := p.TightenVarBnd(2, phic.SideUpper, 1); err != nil {
		return errors.Wrap(err, "seeding episode")
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var opts []phic.PropagateOption
	if maxPasses > 0 {
		opts = append(opts, phic.WithMaxPasses(maxPasses))
	}

	switch err := p.Propagate(ctx, opts...); {
	case err == nil:
		fmt.Println("propagation reached a fixed point")
	case err == phic.ErrIncomplete:
		fmt.Println("propagation incomplete (budget exhausted); partial bounds follow")
	default:
		if infeas, ok := err.(*phic.InfeasError); ok {
			fmt.Printf("system infeasible: %v\n", infeas)
			return nil
		}
		return errors.Wrap(err, "propagating")
	}

	lbs := coin.NewPackedVector(p.NumCols())
	ubs := coin.NewPackedVector(p.NumCols())
	p.GetColBndChgs(lbs, ubs)
	fmt.Printf("tightened lower bounds: %v\n", lbs)
	fmt.Printf("tightened upper bounds: %v\n", ubs)

	lhsL, lhsU := p.GetRowLhsBnds()
	for i := 0; i < p.NumRows(); i++ {
		fmt.Printf("r(%d): lhs in [%s, %s]\n", i, fmtBnd(lhsL[i]), fmtBnd(lhsU[i]))
	}
	return nil
}

func fmtBnd(v float64) string {
	switch {
	case v >= phic.DefaultInfinity:
		return "+inf"
	case v <= -phic.DefaultInfinity:
		return "-inf"
	}
	return fmt.Sprintf("%g", v)
}
