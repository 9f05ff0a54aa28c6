// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dok

import (
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestDOK(t *testing.T) {
	m := New(3, 4)
	m.SetAt(2, 1, 5)
	m.SetAt(0, 3, -1)
	m.AddAt(0, 3, 3)
	m.AddAt(1, 1, 2)
	m.AddAt(1, 1, -2)

	if m.NNZ() != 2 {
		t.Errorf("unexpected number of non-zeros %d", m.NNZ())
	}
	if m.At(0, 3) != 2 || m.At(2, 1) != 5 || m.At(1, 1) != 0 {
		t.Errorf("unexpected entries")
	}

	tr := m.Triplet()
	if r, c := tr.Dims(); r != 3 || c != 4 {
		t.Errorf("unexpected dimensions %d×%d", r, c)
	}
	if tr.NNZ() != 2 {
		t.Errorf("unexpected number of triplets %d", tr.NNZ())
	}
	dst := make([]float64, 3)
	tr.MulVec(dst, []float64{1, 1, 1, 1})
	if !floats.Equal(dst, []float64{2, 0, 5}) {
		t.Errorf("unexpected product %v", dst)
	}
}

func TestDOKBounds(t *testing.T) {
	m := New(2, 2)
	for _, ij := range [][2]int{{-1, 0}, {2, 0}, {0, -1}, {0, 2}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Case %v: no panic", ij)
				}
			}()
			m.SetAt(ij[0], ij[1], 1)
		}()
	}
}
