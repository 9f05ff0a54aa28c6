// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conflux provides mixing algorithms that accelerate the solution of
// fixed-point problems
//
//	F(x) = x,
//
// where F is an expensive update supplied by the caller, for example one
// step of a self-consistent field calculation.
//
// A Solver repeatedly asks a Mixer for the next iterate and folds it into the
// iteration State until the Mixer reports termination or the iteration
// budget is spent. Mixers operate on any representation of the parameter
// for which the operations in LinearOps or AndersonOps are provided; the
// sliceops and matops packages implement them for []float64 and gonum
// matrices.
package conflux

// Problem is the fixed-point problem to be solved.
type Problem[P any] interface {
	// Update carries out one full self-consistent evaluation F(x). It
	// must not modify x. Update may keep internal state between calls.
	Update(x P) (P, error)
}

// ProblemFunc is an adapter to allow the use of an ordinary function as a
// Problem.
type ProblemFunc[P any] func(x P) (P, error)

// Update implements the Problem interface. A nil ProblemFunc returns
// ErrUnimplemented.
func (f ProblemFunc[P]) Update(x P) (P, error) {
	if f == nil {
		var zero P
		return zero, ErrUnimplemented
	}
	return f(x)
}

// Mixer is a strategy producing the next iterate of a fixed-point iteration.
//
// The State passed to a Mixer is owned by the Solver and must only be read.
type Mixer[P any] interface {
	// Name returns the name of the mixing algorithm.
	Name() string

	// NextIter computes one iteration. Errors returned by p are wrapped
	// with ErrUpdateFailed.
	NextIter(p Problem[P], s *State[P]) (IterData[P], error)

	// Terminate decides whether the iteration described by s is finished.
	Terminate(s *State[P]) (TerminationReason, error)
}

// TerminationReason describes why an iteration terminated.
type TerminationReason int

const (
	NotTerminated TerminationReason = iota
	ToleranceBeaten
	HitMaxIterations
)

func (r TerminationReason) String() string {
	switch r {
	case NotTerminated:
		return "NotTerminated"
	case ToleranceBeaten:
		return "ToleranceBeaten"
	case HitMaxIterations:
		return "HitMaxIterations"
	}
	return "UnknownTerminationReason"
}

// IterData is the output of a single Mixer iteration: the proposed parameter
// and its cost. Both must be set before it is handed to the Solver.
type IterData[P any] struct {
	param    P
	cost     float64
	hasParam bool
	hasCost  bool
}

// NewIterData returns an empty IterData.
func NewIterData[P any]() IterData[P] {
	return IterData[P]{}
}

// WithParam returns a copy of d with the parameter set to x.
func (d IterData[P]) WithParam(x P) IterData[P] {
	d.param = x
	d.hasParam = true
	return d
}

// WithCost returns a copy of d with the cost set to c.
func (d IterData[P]) WithCost(c float64) IterData[P] {
	d.cost = c
	d.hasCost = true
	return d
}

// Param returns the parameter and whether it has been set.
func (d IterData[P]) Param() (P, bool) {
	return d.param, d.hasParam
}

// Cost returns the cost and whether it has been set.
func (d IterData[P]) Cost() (float64, bool) {
	return d.cost, d.hasCost
}

// terminate is the termination policy shared by the mixers in this package.
func terminate[P any](s *State[P], tol float64, maxIter int) TerminationReason {
	switch {
	case s.Cost() < tol:
		return ToleranceBeaten
	case s.Iter() > maxIter:
		return HitMaxIterations
	}
	return NotTerminated
}
