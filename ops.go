// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

// The interfaces below describe the arithmetic a Mixer needs from the
// representation of a parameter P (vector-like) and of a square structure S
// (matrix-like). They are split by operation family so that a backend only
// has to provide what the chosen Mixer uses.
//
// Implementations must not modify their arguments and must return newly
// allocated values, with the exception of Stacking.SetRow which writes into
// its matrix argument. Mismatched dimensions are a programming error and an
// implementation is expected to panic.

// Additive is the additive family of operations on P.
type Additive[P any] interface {
	// Add returns x + y.
	Add(x, y P) P
	// Sub returns x - y.
	Sub(x, y P) P
}

// Multiplicative is the scalar multiplicative family of operations on P.
type Multiplicative[P any] interface {
	// Scale returns alpha * x.
	Scale(alpha float64, x P) P
	// Div returns x / alpha.
	Div(x P, alpha float64) P
}

// Metric provides the inner product and the Euclidean norm on P.
type Metric[P any] interface {
	Dot(x, y P) float64
	Norm(x P) float64
}

// NaNChecker reports whether a value holds a NaN element.
type NaNChecker[P any] interface {
	HasNaN(x P) bool
}

// Cloner returns an independent copy of a value.
type Cloner[P any] interface {
	Clone(x P) P
}

// Shape groups construction and size queries of P.
type Shape[P any] interface {
	Cloner[P]

	// Len returns the dimension of x.
	Len(x P) int
	// Zeros returns the zero vector of dimension n.
	Zeros(n int) P
	// ZerosLike returns the zero vector with the dimension of x.
	ZerosLike(x P) P
}

// Matrix is the family of operations on S and between S and P.
type Matrix[P, S any] interface {
	// MatVec returns a*x.
	MatVec(a S, x P) P
	// MatTransVec returns a^T*x.
	MatTransVec(a S, x P) P
	// MatMul returns a*b.
	MatMul(a, b S) S
	// AddMat returns a + b.
	AddMat(a, b S) S
	// T returns the transpose of a.
	T(a S) S
	// Eye returns the n×n identity.
	Eye(n int) S
	// ZerosMat returns the r×c zero matrix. Either dimension may be zero,
	// in which case the result is empty.
	ZerosMat(r, c int) S
	// IsEmpty reports whether a has no elements.
	IsEmpty(a S) bool
	// Rows returns the number of rows of a.
	Rows(a S) int
}

// Stacking manipulates S as a stack of rows of dimension Len(x).
type Stacking[P, S any] interface {
	// Into2D returns x promoted to a 1×n matrix.
	Into2D(x P) S
	// Stack returns a with x appended as a new last row.
	Stack(a S, x P) S
	// SetRow overwrites row i of a with x.
	SetRow(a S, i int, x P)
	// Head returns a view of the first n rows of a, n > 0.
	Head(a S, n int) S
}

// LinearOps is what LinearMixer needs.
type LinearOps[P any] interface {
	Additive[P]
	Multiplicative[P]
	Metric[P]
	NaNChecker[P]
}

// AndersonOps is what AndersonType1 needs.
type AndersonOps[P, S any] interface {
	LinearOps[P]
	Shape[P]
	Matrix[P, S]
	Stacking[P, S]
}
