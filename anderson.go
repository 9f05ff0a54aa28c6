// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

import (
	"log/slog"
	"math"
)

// AndersonType1 implements the type-I Anderson acceleration with Powell-type
// regularization, restarted memory and a safeguard, as described in
//
//	J. Zhang, B. O'Donoghue and S. Boyd, Globally convergent type-I Anderson
//	acceleration for nonsmooth fixed-point iterations, SIAM J. Optim. 30(4),
//	2020.
//
// The method keeps a low-rank approximation
//
//	H = I + hv1^T * hv2
//
// of the inverse Jacobian of the residual g(x) = x - F(x) and proposes the
// step x - H g(x). The approximation is built from at most Memory past steps
// and is discarded when the window is full or when a new step is nearly
// linearly dependent on the stored ones. A proposed step is accepted only
// while the residual norm decays fast enough relative to the initial one;
// otherwise the mixer falls back to a relaxed linear step.
//
// Zero values of the parameters mean default values. Parameters must not be
// changed during a run.
type AndersonType1[P, S any] struct {
	Ops AndersonOps[P, S]

	// Dim is the dimension of the
	// problem. If it is zero, it is
	// taken from the initial parameter.
	Dim int
	// Tolerance is the cost below which
	// the iteration has converged.
	Tolerance float64
	// MaxIterations is the number of
	// iterations after which Terminate
	// reports HitMaxIterations.
	MaxIterations int

	// Memory is the maximum number of
	// stored steps. Default 5.
	Memory int
	// Relaxation is the relaxation
	// parameter β of the fallback
	// linear step. Default 1.
	Relaxation float64
	// RegTolerance is the threshold τ
	// on ‖ŝ‖/‖s‖ below which the memory
	// is restarted. Default 1e-3.
	RegTolerance float64
	// Safeguard is the factor D of the
	// safeguard bound
	//
	//	D Ū (n+1)^(-1-ε).
	//
	// Default 1e6.
	Safeguard float64
	// Epsilon is the exponent ε of the
	// safeguard bound. Default 1e-6.
	Epsilon float64
	// ThetaBar is the Powell clipping
	// threshold θ̄. Default 1e-2.
	ThetaBar float64

	// Logger receives debug messages.
	// If it is nil, slog.Default() is
	// used.
	Logger *slog.Logger

	iter      int
	m         int
	nAnderson int
	ubar      float64

	// inferDim is set when Dim was taken from the initial parameter.
	inferDim bool

	x0  P
	fx0 P
	g0  P

	sHat *rowMemory[P, S]
	hv1  *rowMemory[P, S]
	hv2  *rowMemory[P, S]
}

// NewAndersonType1 returns an AndersonType1 mixer for problems of dimension
// dim with default regularization parameters.
func NewAndersonType1[P, S any](ops AndersonOps[P, S], dim int, tol float64, maxIter int) *AndersonType1[P, S] {
	return &AndersonType1[P, S]{
		Ops:           ops,
		Dim:           dim,
		Tolerance:     tol,
		MaxIterations: maxIter,
	}
}

// DefaultAndersonType1 returns an AndersonType1 mixer with tolerance 1e-6
// and at most 1000 iterations.
func DefaultAndersonType1[P, S any](ops AndersonOps[P, S], dim int) *AndersonType1[P, S] {
	return NewAndersonType1(ops, dim, 1e-6, 1000)
}

func (a *AndersonType1[P, S]) defaults() {
	if a.Memory == 0 {
		a.Memory = 5
	}
	if a.Relaxation == 0 {
		a.Relaxation = 1
	}
	if a.RegTolerance == 0 {
		a.RegTolerance = 1e-3
	}
	if a.Safeguard == 0 {
		a.Safeguard = 1e6
	}
	if a.Epsilon == 0 {
		a.Epsilon = 1e-6
	}
	if a.ThetaBar == 0 {
		a.ThetaBar = 1e-2
	}
	if a.Memory < 0 {
		panic("conflux: negative Anderson memory")
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
}

// Name implements the Mixer interface.
func (a *AndersonType1[P, S]) Name() string { return "Type-I Anderson Mixing" }

// Reset discards the internal state so that the next call to NextIter starts
// a new iteration. A dimension taken from the initial parameter is
// forgotten; an explicitly set Dim is kept.
func (a *AndersonType1[P, S]) Reset() {
	a.iter = 0
	a.nAnderson = 0
	if a.inferDim {
		a.Dim = 0
		a.inferDim = false
	}
	if a.hv1 != nil {
		a.clearMemory()
	}
}

// MemoryLen returns the number of steps currently stored.
func (a *AndersonType1[P, S]) MemoryLen() int {
	if a.hv1 == nil {
		return 0
	}
	return a.hv1.len()
}

// AndersonSteps returns the number of accepted extrapolation steps since the
// start of the iteration.
func (a *AndersonType1[P, S]) AndersonSteps() int { return a.nAnderson }

// InverseJacobian returns the current approximation
//
//	I + hv1^T * hv2
//
// of the inverse Jacobian of the residual as a Dim×Dim matrix.
func (a *AndersonType1[P, S]) InverseJacobian() S {
	ops := a.Ops
	eye := ops.Eye(a.Dim)
	if a.MemoryLen() == 0 {
		return eye
	}
	return ops.AddMat(eye, ops.MatMul(ops.T(a.hv1.rows()), a.hv2.rows()))
}

// apply returns H v.
func (a *AndersonType1[P, S]) apply(v P) P {
	if a.MemoryLen() == 0 {
		return v
	}
	ops := a.Ops
	return ops.Add(v, ops.MatTransVec(a.hv1.rows(), ops.MatVec(a.hv2.rows(), v)))
}

// applyTrans returns H^T v.
func (a *AndersonType1[P, S]) applyTrans(v P) P {
	if a.MemoryLen() == 0 {
		return v
	}
	ops := a.Ops
	return ops.Add(v, ops.MatTransVec(a.hv2.rows(), ops.MatVec(a.hv1.rows(), v)))
}

func (a *AndersonType1[P, S]) clearMemory() {
	a.sHat.reset()
	a.hv1.reset()
	a.hv2.reset()
}

func (a *AndersonType1[P, S]) diverged(x P) bool {
	return a.Ops.HasNaN(x) || math.IsInf(a.Ops.Norm(x), 0)
}

// NextIter implements the Mixer interface.
//
// A call that returns an error leaves the mixer unchanged.
func (a *AndersonType1[P, S]) NextIter(p Problem[P], s *State[P]) (IterData[P], error) {
	a.defaults()
	ops := a.Ops

	first := a.iter == 0
	x0, fx0, g0 := a.x0, a.fx0, a.g0
	ubar, nAnderson, m := a.ubar, a.nAnderson, a.m
	if first {
		x0 = s.Param()
		if a.Dim == 0 {
			a.Dim = ops.Len(x0)
			a.inferDim = true
		}
		if ops.Len(x0) != a.Dim {
			panic("conflux: mismatched dimension of the initial parameter")
		}
		var err error
		fx0, err = p.Update(x0)
		if err != nil {
			return IterData[P]{}, updateFailed(err)
		}
		g0 = ops.Sub(x0, fx0)
		ubar = ops.Norm(g0)
		nAnderson = 0
		m = 0
	}

	// Extrapolate.
	m++
	var x1 P
	if first {
		x1 = fx0
	} else {
		x1 = ops.Sub(x0, a.apply(g0))
	}

	// Evaluate the candidate.
	s0 := ops.Sub(x1, x0)
	fx1, err := p.Update(x1)
	if err != nil {
		return IterData[P]{}, updateFailed(err)
	}
	g1 := ops.Sub(x1, fx1)
	y0 := ops.Sub(g1, g0)

	// Safeguard.
	bound := ubar * a.Safeguard * math.Pow(float64(nAnderson+1), -1-a.Epsilon)
	if first || ops.Norm(g0) <= bound {
		nAnderson++
		x0 = x1
		fx0 = fx1
	} else {
		beta := a.Relaxation
		x1 = ops.Add(ops.Scale(beta, fx0), ops.Scale(1-beta, x0))
		x0 = x1
		fx0, err = p.Update(x0)
		if err != nil {
			return IterData[P]{}, updateFailed(err)
		}
		fx1 = fx0
		a.Logger.Debug("anderson step rejected", "iteration", a.iter, "bound", bound)
	}

	gPrev := g0
	g0 = ops.Sub(x0, fx0)

	residual := ops.Sub(fx1, x1)
	if a.diverged(x1) || a.diverged(residual) {
		return IterData[P]{}, ErrNumericalDivergence
	}

	if first {
		a.sHat = newRowMemory(ops, a.Memory)
		a.hv1 = newRowMemory(ops, a.Memory)
		a.hv2 = newRowMemory(ops, a.Memory)
	}
	a.x0, a.fx0, a.g0 = x0, fx0, g0
	a.ubar, a.nAnderson = ubar, nAnderson
	a.m = m
	a.regularize(s0, y0, gPrev)
	a.iter++

	return NewIterData[P]().
		WithCost(ops.Norm(residual)).
		WithParam(x1), nil
}

// regularize adds the step s0 to the memory with the Powell-type
// regularization of the secant condition.
func (a *AndersonType1[P, S]) regularize(s0, y0, gPrev P) {
	ops := a.Ops

	var sHat P
	if a.m <= a.Memory {
		sHat = s0
		if a.sHat.len() > 0 {
			q := a.sHat.rows()
			sHat = ops.Sub(s0, ops.MatTransVec(q, ops.MatVec(q, s0)))
		}
		if ops.Norm(sHat) < a.RegTolerance*ops.Norm(s0) {
			a.Logger.Debug("anderson memory restarted: dependent step", "iteration", a.iter)
			a.clearMemory()
			a.m = 1
			sHat = s0
		}
	} else {
		a.clearMemory()
		a.m = 1
		sHat = s0
	}

	norm := ops.Norm(sHat)
	if norm == 0 {
		// No step was taken, there is no secant information.
		a.clearMemory()
		a.m = 0
		return
	}

	hy := a.apply(y0)
	gamma := ops.Dot(sHat, hy) / (norm * norm)
	theta := 1.0
	if math.Abs(gamma) < a.ThetaBar {
		sign := 1.0
		if math.Signbit(gamma) {
			sign = -1
		}
		theta = 1 - sign*a.ThetaBar/(1-gamma)
	}

	yTilde := ops.Sub(ops.Scale(theta, y0), ops.Scale(1-theta, gPrev))
	hyTilde := a.apply(yTilde)
	denom := ops.Dot(sHat, hyTilde)
	if denom == 0 {
		a.Logger.Debug("anderson memory restarted: singular update", "iteration", a.iter)
		a.clearMemory()
		a.m = 0
		return
	}

	u := ops.Sub(s0, hyTilde)
	v := ops.Div(a.applyTrans(sHat), denom)
	a.sHat.push(ops.Div(sHat, norm))
	a.hv1.push(u)
	a.hv2.push(v)
}

// Terminate implements the Mixer interface.
func (a *AndersonType1[P, S]) Terminate(s *State[P]) (TerminationReason, error) {
	return terminate(s, a.Tolerance, a.MaxIterations), nil
}
