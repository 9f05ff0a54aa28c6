// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dok implements a dictionary-of-keys sparse matrix used to assemble
// operators before conversion to a compact format.
package dok

import (
	"sort"

	"github.com/cgubbin/conflux/internal/triplet"
)

type DOK struct {
	Rows, Cols int

	data map[index]float64
}

type index struct {
	row, col int
}

func New(r, c int) *DOK {
	return &DOK{
		Rows: r,
		Cols: c,
		data: make(map[index]float64),
	}
}

func (m *DOK) At(i, j int) float64 {
	m.check(i, j)
	return m.data[index{i, j}]
}

func (m *DOK) SetAt(i, j int, v float64) {
	m.check(i, j)
	if v == 0 {
		delete(m.data, index{i, j})
		return
	}
	m.data[index{i, j}] = v
}

// AddAt adds v to the entry at (i, j).
func (m *DOK) AddAt(i, j int, v float64) {
	m.SetAt(i, j, m.At(i, j)+v)
}

// NNZ returns the number of non-zero entries.
func (m *DOK) NNZ() int {
	return len(m.data)
}

// Triplet returns the matrix in coordinate format with entries in row-major
// order.
func (m *DOK) Triplet() *triplet.Matrix {
	keys := make([]index, 0, len(m.data))
	for ij := range m.data {
		keys = append(keys, ij)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].row != keys[b].row {
			return keys[a].row < keys[b].row
		}
		return keys[a].col < keys[b].col
	})
	t := triplet.New(m.Rows, m.Cols)
	for _, ij := range keys {
		t.Append(ij.row, ij.col, m.data[ij])
	}
	return t
}

func (m *DOK) check(i, j int) {
	if i < 0 || m.Rows <= i {
		panic("row index out of range")
	}
	if j < 0 || m.Cols <= j {
		panic("column index out of range")
	}
}
