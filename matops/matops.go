// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package matops implements the conflux arithmetic contracts for gonum
// matrices: parameters are *mat.VecDense and square structures are
// *mat.Dense.
package matops

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Ops implements conflux.AndersonOps[*mat.VecDense, *mat.Dense].
// The zero value is ready to use.
//
// Zero-length vectors cannot be represented by mat.VecDense; a problem
// dimension of zero is not supported.
type Ops struct{}

func (Ops) Add(x, y *mat.VecDense) *mat.VecDense {
	var dst mat.VecDense
	dst.AddVec(x, y)
	return &dst
}

func (Ops) Sub(x, y *mat.VecDense) *mat.VecDense {
	var dst mat.VecDense
	dst.SubVec(x, y)
	return &dst
}

func (Ops) Scale(alpha float64, x *mat.VecDense) *mat.VecDense {
	var dst mat.VecDense
	dst.ScaleVec(alpha, x)
	return &dst
}

func (Ops) Div(x *mat.VecDense, alpha float64) *mat.VecDense {
	var dst mat.VecDense
	dst.ScaleVec(1/alpha, x)
	return &dst
}

func (Ops) Dot(x, y *mat.VecDense) float64 { return mat.Dot(x, y) }

func (Ops) Norm(x *mat.VecDense) float64 { return mat.Norm(x, 2) }

func (Ops) HasNaN(x *mat.VecDense) bool {
	raw := x.RawVector()
	if raw.Inc == 1 {
		return floats.HasNaN(raw.Data[:raw.N])
	}
	return floats.HasNaN(mat.Col(nil, 0, x))
}

func (Ops) Clone(x *mat.VecDense) *mat.VecDense {
	if x == nil {
		return nil
	}
	return mat.VecDenseCopyOf(x)
}

func (Ops) Len(x *mat.VecDense) int { return x.Len() }

func (Ops) Zeros(n int) *mat.VecDense { return mat.NewVecDense(n, nil) }

func (Ops) ZerosLike(x *mat.VecDense) *mat.VecDense { return mat.NewVecDense(x.Len(), nil) }

func (Ops) MatVec(a *mat.Dense, x *mat.VecDense) *mat.VecDense {
	var dst mat.VecDense
	dst.MulVec(a, x)
	return &dst
}

func (Ops) MatTransVec(a *mat.Dense, x *mat.VecDense) *mat.VecDense {
	var dst mat.VecDense
	dst.MulVec(a.T(), x)
	return &dst
}

func (Ops) MatMul(a, b *mat.Dense) *mat.Dense {
	var c mat.Dense
	c.Mul(a, b)
	return &c
}

func (Ops) AddMat(a, b *mat.Dense) *mat.Dense {
	var c mat.Dense
	c.Add(a, b)
	return &c
}

func (Ops) T(a *mat.Dense) *mat.Dense {
	if a.IsEmpty() {
		return &mat.Dense{}
	}
	return mat.DenseCopyOf(a.T())
}

func (Ops) Eye(n int) *mat.Dense {
	e := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		e.Set(i, i, 1)
	}
	return e
}

func (Ops) ZerosMat(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, nil)
}

func (Ops) IsEmpty(a *mat.Dense) bool { return a.IsEmpty() }

func (Ops) Rows(a *mat.Dense) int {
	if a.IsEmpty() {
		return 0
	}
	r, _ := a.Dims()
	return r
}

func (Ops) Into2D(x *mat.VecDense) *mat.Dense {
	return mat.NewDense(1, x.Len(), mat.Col(nil, 0, x))
}

func (o Ops) Stack(a *mat.Dense, x *mat.VecDense) *mat.Dense {
	if a.IsEmpty() {
		return o.Into2D(x)
	}
	var s mat.Dense
	s.Stack(a, x.T())
	return &s
}

func (Ops) SetRow(a *mat.Dense, i int, x *mat.VecDense) {
	a.SetRow(i, mat.Col(nil, 0, x))
}

func (Ops) Head(a *mat.Dense, n int) *mat.Dense {
	_, c := a.Dims()
	return a.Slice(0, n, 0, c).(*mat.Dense)
}
