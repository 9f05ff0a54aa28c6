// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

// rowMemory is a bounded stack of rows kept in a single S. The backing
// matrix grows by stacking until it holds capacity rows; after a reset the
// rows are overwritten in place.
type rowMemory[P, S any] struct {
	ops interface {
		Matrix[P, S]
		Stacking[P, S]
	}
	buf      S
	n        int
	capacity int
}

func newRowMemory[P, S any](ops AndersonOps[P, S], capacity int) *rowMemory[P, S] {
	return &rowMemory[P, S]{
		ops:      ops,
		buf:      ops.ZerosMat(0, 0),
		capacity: capacity,
	}
}

// len returns the number of live rows.
func (r *rowMemory[P, S]) len() int { return r.n }

func (r *rowMemory[P, S]) reset() { r.n = 0 }

// push appends x as the last live row.
func (r *rowMemory[P, S]) push(x P) {
	if r.n == r.capacity {
		panic("conflux: memory capacity exceeded")
	}
	switch {
	case r.ops.IsEmpty(r.buf):
		r.buf = r.ops.Into2D(x)
	case r.n < r.ops.Rows(r.buf):
		r.ops.SetRow(r.buf, r.n, x)
	default:
		r.buf = r.ops.Stack(r.buf, x)
	}
	r.n++
}

// rows returns the live rows. It must not be called on an empty memory.
func (r *rowMemory[P, S]) rows() S {
	if r.n == 0 {
		panic("conflux: empty memory")
	}
	return r.ops.Head(r.buf, r.n)
}
