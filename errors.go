// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

import (
	"errors"
	"fmt"
)

var (
	// ErrUnimplemented is returned when a required operation has no
	// implementation, for example a nil ProblemFunc.
	ErrUnimplemented = errors.New("conflux: unimplemented operation")

	// ErrUpdateFailed wraps every error returned by Problem.Update.
	ErrUpdateFailed = errors.New("conflux: failed to evaluate update")

	// ErrNumericalDivergence is returned when an iterate holds NaN or
	// infinite values.
	ErrNumericalDivergence = errors.New("conflux: solution diverged")

	// ErrStopped is returned when the context passed to Run is done before
	// the iteration terminates.
	ErrStopped = errors.New("conflux: run stopped")
)

// TooManyIterationsError is returned by Solver.Run when the iteration
// budget is exhausted before the Mixer reports convergence.
type TooManyIterationsError struct {
	// Cost is the cost of the last iterate.
	Cost float64
	// Iterations is the number of completed iterations.
	Iterations int
}

func (e *TooManyIterationsError) Error() string {
	return fmt.Sprintf("conflux: exceeded maximum iterations (%d), final cost %v", e.Iterations, e.Cost)
}

func updateFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
}
