// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package triplet implements a sparse matrix in coordinate format.
package triplet

import "math"

type triplet struct {
	i, j int
	v    float64
}

// Matrix is an r×c sparse matrix stored as a list of (i, j, v) entries.
// Entries with the same indices are summed.
type Matrix struct {
	r, c int
	data []triplet
}

func New(r, c int) *Matrix {
	return &Matrix{
		r: r,
		c: c,
	}
}

func (m *Matrix) Dims() (r, c int) {
	return m.r, m.c
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.data)
}

func (m *Matrix) Append(i, j int, v float64) {
	if i < 0 || m.r <= i {
		panic("row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("column index out of range")
	}
	m.data = append(m.data, triplet{i, j, v})
}

// MulVec computes dst = A*x.
func (m *Matrix) MulVec(dst, x []float64) {
	if m.c != len(x) {
		panic("dimension mismatch")
	}
	if m.r != len(dst) {
		panic("dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, aij := range m.data {
		dst[aij.i] += aij.v * x[aij.j]
	}
}

// NormInf returns the maximum absolute row sum of the matrix.
func (m *Matrix) NormInf() float64 {
	sums := make([]float64, m.r)
	for _, aij := range m.data {
		sums[aij.i] += math.Abs(aij.v)
	}
	var norm float64
	for _, s := range sums {
		norm = math.Max(norm, s)
	}
	return norm
}

// Scale multiplies every entry by alpha.
func (m *Matrix) Scale(alpha float64) {
	for k := range m.data {
		m.data[k].v *= alpha
	}
}
