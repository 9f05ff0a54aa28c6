// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

// LinearMixer implements linear mixing with a relaxation parameter β,
//
//	x_{k+1} = β F(x_k) + (1-β) x_k.
//
// With β = 1 it is the plain fixed-point iteration.
//
// The cost of an iterate is the norm of the step ‖x_{k+1} - x_k‖.
type LinearMixer[P any] struct {
	Ops LinearOps[P]

	// Beta is the relaxation parameter.
	Beta float64
	// Tolerance is the cost below which
	// the iteration has converged.
	Tolerance float64
	// MaxIterations is the number of
	// iterations after which Terminate
	// reports HitMaxIterations.
	MaxIterations int
}

// NewLinearMixer returns a LinearMixer with the given parameters.
func NewLinearMixer[P any](ops LinearOps[P], beta, tol float64, maxIter int) *LinearMixer[P] {
	return &LinearMixer[P]{
		Ops:           ops,
		Beta:          beta,
		Tolerance:     tol,
		MaxIterations: maxIter,
	}
}

// DefaultLinearMixer returns an unrelaxed LinearMixer with tolerance 1e-6
// and at most 1000 iterations.
func DefaultLinearMixer[P any](ops LinearOps[P]) *LinearMixer[P] {
	return NewLinearMixer(ops, 1, 1e-6, 1000)
}

// Name implements the Mixer interface.
func (l *LinearMixer[P]) Name() string { return "Linear Mixing" }

// NextIter implements the Mixer interface.
func (l *LinearMixer[P]) NextIter(p Problem[P], s *State[P]) (IterData[P], error) {
	ops := l.Ops
	x := s.Param()
	fx, err := p.Update(x)
	if err != nil {
		return IterData[P]{}, updateFailed(err)
	}

	// x + β (F(x) - x) leaves an exact fixed point unchanged.
	step := ops.Scale(l.Beta, ops.Sub(fx, x))
	next := ops.Add(x, step)
	if ops.HasNaN(next) {
		return IterData[P]{}, ErrNumericalDivergence
	}

	return NewIterData[P]().
		WithCost(ops.Norm(ops.Sub(next, x))).
		WithParam(next), nil
}

// Terminate implements the Mixer interface.
func (l *LinearMixer[P]) Terminate(s *State[P]) (TerminationReason, error) {
	return terminate(s, l.Tolerance, l.MaxIterations), nil
}
