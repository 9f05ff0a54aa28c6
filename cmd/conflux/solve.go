// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/cgubbin/conflux"
	"github.com/cgubbin/conflux/internal/problem"
	"github.com/cgubbin/conflux/matops"
	"github.com/cgubbin/conflux/sliceops"
)

// solveConfig is the resolved configuration of the solve command.
type solveConfig struct {
	Problem   string
	Mixer     string
	Backend   string
	Dim       int
	Rate      float64
	Seed      int64
	Beta      float64
	Tol       float64
	MaxIter   int
	Budget    int
	Memory    int
	Safeguard float64
	Timeout   time.Duration
	Trace     string
	Show      int
}

func newSolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a reference fixed-point problem",
		Long: `Solve runs a mixer on one of the reference problems and prints a
summary of the run.

Problems:
  sqrt       F(v)_i = sqrt(v_i + c_i) with random c
  affine     F(x) = A x + b with a random sparse contraction A
  laplacian  Jacobi iteration of the 1-D Poisson equation
  trig       six-dimensional coupled sin/cos map`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSolveConfig(a.v)
			if err != nil {
				return err
			}
			return runSolve(cmd.Context(), cfg, a.logger, cmd.OutOrStdout())
		},
	}
	addSolveFlags(cmd.Flags())
	return cmd
}

func addSolveFlags(fs *pflag.FlagSet) {
	fs.String("problem", "laplacian", "Problem: sqrt, affine, laplacian, trig")
	fs.String("mixer", "anderson", "Mixer: linear, anderson")
	fs.String("backend", "slice", "Arithmetic backend: slice, mat")
	fs.Int("dim", 50, "Problem dimension (ignored by trig)")
	fs.Float64("rate", 0.5, "Contraction rate of the affine problem")
	fs.Int64("seed", 1, "Random seed")
	fs.Float64("beta", 1, "Relaxation parameter")
	fs.Float64("tol", 1e-10, "Convergence tolerance")
	fs.Int("max-iter", 1000, "Iteration limit of the mixer")
	fs.Int("budget", 0, "Iteration budget of the solver (0 for unlimited)")
	fs.Int("memory", 5, "Anderson memory length")
	fs.Float64("safeguard", 1e6, "Anderson safeguard factor")
	fs.Duration("timeout", 0, "Stop the run after this duration (0 for none)")
	fs.String("trace", "", "Directory for a JSONL iteration trace")
	fs.Int("show", 6, "Number of solution components to print")
}

func loadSolveConfig(v *viper.Viper) (solveConfig, error) {
	cfg := solveConfig{
		Problem:   v.GetString("problem"),
		Mixer:     v.GetString("mixer"),
		Backend:   v.GetString("backend"),
		Dim:       v.GetInt("dim"),
		Rate:      v.GetFloat64("rate"),
		Seed:      v.GetInt64("seed"),
		Beta:      v.GetFloat64("beta"),
		Tol:       v.GetFloat64("tol"),
		MaxIter:   v.GetInt("max-iter"),
		Budget:    v.GetInt("budget"),
		Memory:    v.GetInt("memory"),
		Safeguard: v.GetFloat64("safeguard"),
		Timeout:   v.GetDuration("timeout"),
		Trace:     v.GetString("trace"),
		Show:      v.GetInt("show"),
	}
	switch cfg.Problem {
	case "sqrt", "affine", "laplacian", "trig":
	default:
		return cfg, fmt.Errorf("unknown problem: %s", cfg.Problem)
	}
	switch cfg.Mixer {
	case "linear", "anderson":
	default:
		return cfg, fmt.Errorf("unknown mixer: %s", cfg.Mixer)
	}
	switch cfg.Backend {
	case "slice", "mat":
	default:
		return cfg, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
	if cfg.Problem == "trig" {
		cfg.Dim = 6
	}
	if cfg.Dim <= 0 {
		return cfg, fmt.Errorf("dimension must be positive, got %d", cfg.Dim)
	}
	if cfg.Budget < 0 || cfg.MaxIter < 0 || cfg.Memory < 0 {
		return cfg, errors.New("iteration limits and memory must not be negative")
	}
	return cfg, nil
}

// newProblem returns the configured problem and its starting point.
func newProblem(cfg solveConfig) (problem.Slice, []float64) {
	rnd := rand.New(rand.NewSource(cfg.Seed))
	x0 := make([]float64, cfg.Dim)
	switch cfg.Problem {
	case "sqrt":
		for i := range x0 {
			x0[i] = 1
		}
		return problem.NewSqrt(cfg.Dim, rnd), x0
	case "affine":
		return problem.NewAffine(cfg.Dim, cfg.Rate, rnd), x0
	case "laplacian":
		return problem.NewLaplacian(cfg.Dim), x0
	case "trig":
		return problem.NewTrig(), x0
	}
	panic("unreachable")
}

// summary is the backend-independent outcome of a run.
type summary struct {
	mixer  string
	result conflux.Result[[]float64]
	runID  string
	trace  string
}

func runSolve(ctx context.Context, cfg solveConfig, logger *slog.Logger, out io.Writer) (err error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if logger == nil {
		logger = slog.Default()
	}

	runID := uuid.New().String()
	logger = logger.With("run_id", runID)
	settings := conflux.DefaultSettings()
	if cfg.Budget > 0 {
		settings.MaxIterations = cfg.Budget
	}
	settings.Logger = logger

	s := summary{runID: runID}
	if cfg.Trace != "" {
		tw, terr := newTraceWriter(cfg.Trace, runID)
		if terr != nil {
			return terr
		}
		defer func() {
			// A lost flush means a truncated trace.
			if cerr := tw.Close(); err == nil {
				err = cerr
			}
		}()
		settings.Recorder = tw
		s.trace = tw.Path()
	}

	p, x0 := newProblem(cfg)
	logger.Info("starting solve",
		"problem", cfg.Problem,
		"mixer", cfg.Mixer,
		"backend", cfg.Backend,
		"dim", cfg.Dim,
	)

	switch cfg.Backend {
	case "slice":
		m := newMixer[[]float64, blas64.General](cfg, sliceops.Ops{}, logger)
		s.mixer = m.Name()
		s.result, err = conflux.Solve[[]float64](ctx, p, m, sliceops.Ops{}, x0, settings)
	case "mat":
		m := newMixer[*mat.VecDense, *mat.Dense](cfg, matops.Ops{}, logger)
		s.mixer = m.Name()
		var r conflux.Result[*mat.VecDense]
		r, err = conflux.Solve[*mat.VecDense](ctx, problem.MatAdapter{P: p}, m, matops.Ops{}, mat.NewVecDense(cfg.Dim, x0), settings)
		s.result = toSlice(r)
	}

	var tooMany *conflux.TooManyIterationsError
	switch {
	case err == nil:
	case errors.As(err, &tooMany), errors.Is(err, conflux.ErrStopped):
		// The partial result is still worth reporting.
		printSummary(out, s, cfg.Show)
		return err
	default:
		return err
	}

	logger.Info("solve finished",
		"reason", s.result.Reason,
		"iterations", s.result.IterationCount(),
		"cost", s.result.Cost,
	)
	printSummary(out, s, cfg.Show)
	return nil
}

func newMixer[P, S any](cfg solveConfig, ops conflux.AndersonOps[P, S], logger *slog.Logger) conflux.Mixer[P] {
	if cfg.Mixer == "linear" {
		return conflux.NewLinearMixer[P](ops, cfg.Beta, cfg.Tol, cfg.MaxIter)
	}
	a := conflux.NewAndersonType1(ops, cfg.Dim, cfg.Tol, cfg.MaxIter)
	a.Memory = cfg.Memory
	a.Relaxation = cfg.Beta
	a.Safeguard = cfg.Safeguard
	a.Logger = logger
	return a
}

func toSlice(r conflux.Result[*mat.VecDense]) conflux.Result[[]float64] {
	col := func(v *mat.VecDense) []float64 {
		if v == nil {
			return nil
		}
		return mat.Col(nil, 0, v)
	}
	return conflux.Result[[]float64]{
		Param:     col(r.Param),
		Cost:      r.Cost,
		BestParam: col(r.BestParam),
		BestCost:  r.BestCost,
		Reason:    r.Reason,
		Stats:     r.Stats,
	}
}

func printSummary(w io.Writer, s summary, show int) {
	r := s.result
	fmt.Fprintf(w, "run:        %s\n", s.runID)
	fmt.Fprintf(w, "mixer:      %s\n", s.mixer)
	fmt.Fprintf(w, "reason:     %v\n", r.Reason)
	fmt.Fprintf(w, "iterations: %d\n", r.IterationCount())
	fmt.Fprintf(w, "updates:    %d\n", r.Stats.Updates)
	fmt.Fprintf(w, "cost:       %.3e\n", r.Cost)
	fmt.Fprintf(w, "best cost:  %.3e (iteration %d)\n", r.BestCost, r.Stats.LastBestIter)
	fmt.Fprintf(w, "runtime:    %v\n", r.Stats.Runtime)
	if show > 0 && len(r.Param) > 0 {
		n := min(show, len(r.Param))
		fmt.Fprintf(w, "solution:   %.8g", r.Param[:n])
		if n < len(r.Param) {
			fmt.Fprint(w, " ...")
		}
		fmt.Fprintln(w)
	}
	if s.trace != "" {
		fmt.Fprintf(w, "trace:      %s\n", s.trace)
	}
}
