// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Settings holds various settings for
// solving a fixed-point problem.
type Settings struct {
	// MaxIterations is the iteration
	// budget of the Solver. It is
	// independent of the limit kept by
	// the Mixer. The zero value means
	// that no iteration will be done;
	// DefaultSettings returns an
	// unlimited budget.
	// MaxIterations must not be
	// negative.
	MaxIterations int

	// Logger receives progress
	// messages. If it is nil,
	// slog.Default() is used.
	Logger *slog.Logger

	// Recorder, if not nil, is called
	// with the current statistics
	// after every iteration.
	Recorder Recorder
}

// DefaultSettings returns Settings with an unlimited iteration budget.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: math.MaxInt,
	}
}

// Recorder records the progress of an iteration. A non-nil error returned
// from Record stops the iteration.
type Recorder interface {
	Record(Stats) error
}

// Stats holds statistics about a fixed-point solve.
type Stats struct {
	// Iterations is the number of
	// iterations done by the Mixer.
	Iterations int
	// Updates is the number of
	// Problem.Update evaluations
	// commanded by the Mixer.
	Updates int
	// Cost is the cost of the current
	// iterate.
	Cost float64
	// BestCost is the lowest cost seen.
	BestCost float64
	// LastBestIter is the iteration at
	// which BestCost was reached.
	LastBestIter int
	// StartTime is an approximate time
	// when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration
	// of the solve.
	Runtime time.Duration
}

// Result holds the result of a fixed-point solve.
type Result[P any] struct {
	// Param is the final iterate.
	Param P
	// Cost is the cost of Param.
	Cost float64
	// BestParam is the iterate with the
	// lowest cost.
	BestParam P
	// BestCost is the cost of BestParam.
	BestCost float64
	// Reason is the termination reason
	// reported by the Mixer.
	Reason TerminationReason
	// Stats holds the statistics of the
	// solve.
	Stats Stats
}

// Terminated reports whether the Mixer declared the iteration finished.
func (r Result[P]) Terminated() bool { return r.Reason != NotTerminated }

// IterationCount returns the number of completed iterations.
func (r Result[P]) IterationCount() int { return r.Stats.Iterations }

// Solver drives a Mixer on a fixed-point problem. A Solver owns its Mixer and
// State and must not be used concurrently.
type Solver[P any] struct {
	mixer    Mixer[P]
	state    *State[P]
	settings Settings
	stats    Stats
}

// NewSolver returns a Solver that starts the iteration at x0. c is used to
// copy parameters out of the State.
func NewSolver[P any](m Mixer[P], c Cloner[P], x0 P, settings Settings) *Solver[P] {
	if m == nil {
		panic("conflux: nil mixer")
	}
	if settings.MaxIterations < 0 {
		panic("conflux: negative iteration budget")
	}
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	state := NewState(x0, c)
	state.maxIters = settings.MaxIterations
	return &Solver[P]{
		mixer:    m,
		state:    state,
		settings: settings,
	}
}

// State returns the iteration state. It must not be modified.
func (s *Solver[P]) State() *State[P] { return s.state }

// Solve is a convenience wrapper that builds a Solver and runs it on p.
func Solve[P any](ctx context.Context, p Problem[P], m Mixer[P], c Cloner[P], x0 P, settings Settings) (Result[P], error) {
	return NewSolver(m, c, x0, settings).Run(ctx, p)
}

// Run iterates until the Mixer reports termination, the budget is exhausted,
// ctx is done, or an error occurs.
//
// Errors from the Mixer and the Recorder abort the run and are returned with
// a zero Result. If ctx is done, the current Result is returned with an
// error wrapping ErrStopped and the context error. If the budget is
// exhausted, the current Result is returned with a *TooManyIterationsError.
func (s *Solver[P]) Run(ctx context.Context, p Problem[P]) (Result[P], error) {
	s.stats = Stats{StartTime: time.Now()}
	log := s.settings.Logger.With("mixer", s.mixer.Name())
	log.Debug("starting fixed point solver", "max_iterations", s.state.maxIters)

	counted := &countingProblem[P]{p: p, n: &s.stats.Updates}
	var zero Result[P]
	for {
		if err := ctx.Err(); err != nil {
			return s.result(), fmt.Errorf("%w: %w", ErrStopped, err)
		}

		reason, err := s.mixer.Terminate(s.state)
		if err != nil {
			return zero, err
		}
		s.state.SetTerminationReason(reason)
		if s.state.Terminated() {
			break
		}
		if s.state.iter >= s.state.maxIters {
			break
		}

		data, err := s.mixer.NextIter(counted, s.state)
		if err != nil {
			return zero, err
		}
		s.state.update(data)
		s.collect()
		log.Debug("iteration", "iteration", s.state.iter, "cost", s.state.cost)

		if s.settings.Recorder != nil {
			if err := s.settings.Recorder.Record(s.stats); err != nil {
				return zero, err
			}
		}
	}

	res := s.result()
	if s.state.iter < s.state.maxIters || s.state.reason == ToleranceBeaten {
		log.Debug("fixed point iteration finished",
			"iterations", s.state.iter,
			"cost", s.state.cost,
			"reason", s.state.reason,
		)
		return res, nil
	}
	log.Warn("failed to reach required tolerance",
		"iterations", s.state.iter,
		"cost", s.state.cost,
	)
	return res, &TooManyIterationsError{
		Cost:       s.state.cost,
		Iterations: s.state.iter,
	}
}

func (s *Solver[P]) collect() {
	s.stats.Iterations = s.state.iter
	s.stats.Cost = s.state.cost
	s.stats.BestCost = s.state.bestCost
	s.stats.LastBestIter = s.state.lastBestIter
	s.stats.Runtime = time.Since(s.stats.StartTime)
}

func (s *Solver[P]) result() Result[P] {
	s.collect()
	return Result[P]{
		Param:     s.state.Param(),
		Cost:      s.state.cost,
		BestParam: s.state.BestParam(),
		BestCost:  s.state.bestCost,
		Reason:    s.state.reason,
		Stats:     s.stats,
	}
}

// countingProblem counts the Update evaluations commanded by a Mixer.
type countingProblem[P any] struct {
	p Problem[P]
	n *int
}

func (c *countingProblem[P]) Update(x P) (P, error) {
	*c.n++
	return c.p.Update(x)
}
