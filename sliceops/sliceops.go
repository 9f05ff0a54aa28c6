// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sliceops implements the conflux arithmetic contracts for
// parameters stored in []float64 and square structures stored in row-major
// blas64.General matrices.
package sliceops

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// Ops implements conflux.AndersonOps[[]float64, blas64.General].
// The zero value is ready to use.
type Ops struct{}

func (Ops) Add(x, y []float64) []float64 {
	return floats.AddTo(make([]float64, len(x)), x, y)
}

func (Ops) Sub(x, y []float64) []float64 {
	return floats.SubTo(make([]float64, len(x)), x, y)
}

func (Ops) Scale(alpha float64, x []float64) []float64 {
	return floats.ScaleTo(make([]float64, len(x)), alpha, x)
}

func (Ops) Div(x []float64, alpha float64) []float64 {
	return floats.ScaleTo(make([]float64, len(x)), 1/alpha, x)
}

func (Ops) Dot(x, y []float64) float64 { return floats.Dot(x, y) }

func (Ops) Norm(x []float64) float64 { return floats.Norm(x, 2) }

func (Ops) HasNaN(x []float64) bool { return floats.HasNaN(x) }

func (Ops) Clone(x []float64) []float64 {
	if x == nil {
		return nil
	}
	dst := make([]float64, len(x))
	copy(dst, x)
	return dst
}

func (Ops) Len(x []float64) int { return len(x) }

func (Ops) Zeros(n int) []float64 { return make([]float64, n) }

func (Ops) ZerosLike(x []float64) []float64 { return make([]float64, len(x)) }

func (Ops) MatVec(a blas64.General, x []float64) []float64 {
	if a.Cols != len(x) {
		panic("sliceops: dimension mismatch")
	}
	dst := make([]float64, a.Rows)
	blas64.Gemv(blas.NoTrans, 1, a, vec(x), 0, vec(dst))
	return dst
}

func (Ops) MatTransVec(a blas64.General, x []float64) []float64 {
	if a.Rows != len(x) {
		panic("sliceops: dimension mismatch")
	}
	dst := make([]float64, a.Cols)
	blas64.Gemv(blas.Trans, 1, a, vec(x), 0, vec(dst))
	return dst
}

func (Ops) MatMul(a, b blas64.General) blas64.General {
	if a.Cols != b.Rows {
		panic("sliceops: dimension mismatch")
	}
	c := general(a.Rows, b.Cols)
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, c)
	return c
}

func (Ops) AddMat(a, b blas64.General) blas64.General {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		panic("sliceops: dimension mismatch")
	}
	c := general(a.Rows, a.Cols)
	for i := 0; i < a.Rows; i++ {
		floats.AddTo(row(c, i), row(a, i), row(b, i))
	}
	return c
}

func (Ops) T(a blas64.General) blas64.General {
	t := general(a.Cols, a.Rows)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			t.Data[j*t.Stride+i] = a.Data[i*a.Stride+j]
		}
	}
	return t
}

func (Ops) Eye(n int) blas64.General {
	e := general(n, n)
	for i := 0; i < n; i++ {
		e.Data[i*e.Stride+i] = 1
	}
	return e
}

func (Ops) ZerosMat(r, c int) blas64.General { return general(r, c) }

func (Ops) IsEmpty(a blas64.General) bool { return a.Rows == 0 || a.Cols == 0 }

func (Ops) Rows(a blas64.General) int { return a.Rows }

func (Ops) Into2D(x []float64) blas64.General {
	a := general(1, len(x))
	copy(a.Data, x)
	return a
}

func (Ops) Stack(a blas64.General, x []float64) blas64.General {
	if a.Cols != len(x) {
		panic("sliceops: dimension mismatch")
	}
	s := general(a.Rows+1, a.Cols)
	for i := 0; i < a.Rows; i++ {
		copy(row(s, i), row(a, i))
	}
	copy(row(s, a.Rows), x)
	return s
}

func (Ops) SetRow(a blas64.General, i int, x []float64) {
	if i < 0 || a.Rows <= i {
		panic("sliceops: row index out of range")
	}
	if a.Cols != len(x) {
		panic("sliceops: dimension mismatch")
	}
	copy(row(a, i), x)
}

func (Ops) Head(a blas64.General, n int) blas64.General {
	if n <= 0 || a.Rows < n {
		panic("sliceops: row count out of range")
	}
	return blas64.General{
		Rows:   n,
		Cols:   a.Cols,
		Stride: a.Stride,
		Data:   a.Data[:(n-1)*a.Stride+a.Cols],
	}
}

func general(r, c int) blas64.General {
	stride := c
	if stride == 0 {
		stride = 1
	}
	return blas64.General{
		Rows:   r,
		Cols:   c,
		Stride: stride,
		Data:   make([]float64, r*c),
	}
}

func row(a blas64.General, i int) []float64 {
	return a.Data[i*a.Stride : i*a.Stride+a.Cols]
}

func vec(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Inc: 1, Data: x}
}
