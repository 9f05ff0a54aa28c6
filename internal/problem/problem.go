// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package problem provides reference fixed-point problems on []float64.
package problem

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cgubbin/conflux/internal/dok"
	"github.com/cgubbin/conflux/internal/triplet"
)

// Sqrt is the map
//
//	F(v)_i = sqrt(v_i + C_i).
//
// For non-negative C its fixed point is v_i = (1 + sqrt(1 + 4 C_i)) / 2.
type Sqrt struct {
	C []float64
}

// NewSqrt returns a Sqrt problem of dimension n with C drawn uniformly
// from [0, 1).
func NewSqrt(n int, rnd *rand.Rand) *Sqrt {
	c := make([]float64, n)
	for i := range c {
		c[i] = rnd.Float64()
	}
	return &Sqrt{C: c}
}

func (p *Sqrt) Update(v []float64) ([]float64, error) {
	if len(v) != len(p.C) {
		panic("problem: dimension mismatch")
	}
	out := make([]float64, len(v))
	for i, vi := range v {
		out[i] = math.Sqrt(vi + p.C[i])
	}
	return out, nil
}

// Solution returns the fixed point of p.
func (p *Sqrt) Solution() []float64 {
	x := make([]float64, len(p.C))
	for i, c := range p.C {
		x[i] = (1 + math.Sqrt(1+4*c)) / 2
	}
	return x
}

// Affine is the map
//
//	F(x) = A*x + B
//
// with a sparse A. If ‖A‖∞ < 1 the map is a contraction.
type Affine struct {
	A *triplet.Matrix
	B []float64
}

// NewAffine returns an Affine contraction of dimension n with a random
// banded A scaled so that ‖A‖∞ = rate and a random B.
func NewAffine(n int, rate float64, rnd *rand.Rand) *Affine {
	const band = 2
	a := dok.New(n, n)
	for i := 0; i < n; i++ {
		for j := max(0, i-band); j <= min(n-1, i+band); j++ {
			a.SetAt(i, j, 2*rnd.Float64()-1)
		}
	}
	t := a.Triplet()
	if norm := t.NormInf(); norm > 0 {
		t.Scale(rate / norm)
	}
	b := make([]float64, n)
	for i := range b {
		b[i] = 2*rnd.Float64() - 1
	}
	return &Affine{A: t, B: b}
}

// NewLaplacian returns the Affine map of the Jacobi iteration for the 1-D
// Poisson problem -u'' = 1 on n interior points with zero boundary values,
//
//	F(x)_i = (x_{i-1} + x_{i+1} + h^2) / 2.
//
// Its convergence slows down as n grows.
func NewLaplacian(n int) *Affine {
	a := dok.New(n, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			a.AddAt(i, i-1, 0.5)
		}
		if i < n-1 {
			a.AddAt(i, i+1, 0.5)
		}
	}
	h := 1 / float64(n+1)
	b := make([]float64, n)
	for i := range b {
		b[i] = h * h / 2
	}
	return &Affine{A: a.Triplet(), B: b}
}

func (p *Affine) Update(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	p.A.MulVec(out, x)
	floats.Add(out, p.B)
	return out, nil
}

// Residual returns ‖F(x) - x‖.
func (p *Affine) Residual(x []float64) float64 {
	fx, _ := p.Update(x)
	return floats.Distance(fx, x, 2)
}

// Trig is a map coupling every component to the first two,
//
//	F(v)_{2k}   = sin(v_0) v_0^2 + C_{2k},
//	F(v)_{2k+1} = cos(v_1) v_1^2 + C_{2k+1}.
type Trig struct {
	C []float64
}

// NewTrig returns the six-dimensional Trig problem.
func NewTrig() *Trig {
	return &Trig{C: []float64{0.05, 0.05, 0.09, 0.1, 0.25, 0.35}}
}

func (p *Trig) Update(v []float64) ([]float64, error) {
	if len(v) != len(p.C) || len(v) < 2 {
		panic("problem: dimension mismatch")
	}
	a := math.Sin(v[0]) * v[0] * v[0]
	b := math.Cos(v[1]) * v[1] * v[1]
	out := make([]float64, len(v))
	for i := range out {
		if i%2 == 0 {
			out[i] = a + p.C[i]
		} else {
			out[i] = b + p.C[i]
		}
	}
	return out, nil
}

// NaN always returns a vector of NaN values.
type NaN struct{}

func (NaN) Update(v []float64) ([]float64, error) {
	out := make([]float64, len(v))
	for i := range out {
		out[i] = math.NaN()
	}
	return out, nil
}

// Slice is implemented by the problems in this package.
type Slice interface {
	Update(x []float64) ([]float64, error)
}

// MatAdapter lifts a problem on []float64 to *mat.VecDense.
type MatAdapter struct {
	P Slice
}

func (a MatAdapter) Update(x *mat.VecDense) (*mat.VecDense, error) {
	out, err := a.P.Update(mat.Col(nil, 0, x))
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(out), out), nil
}
