// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cgubbin/conflux/internal/problem"
	"github.com/cgubbin/conflux/matops"
	"github.com/cgubbin/conflux/sliceops"
)

type sliceAnderson = AndersonType1[[]float64, blas64.General]

func newSliceAnderson(dim int, tol float64, maxIter int) *sliceAnderson {
	return NewAndersonType1[[]float64, blas64.General](sliceops.Ops{}, dim, tol, maxIter)
}

// failAfter fails the n-th call to Update, counting from one.
type failAfter struct {
	p     problem.Slice
	n     int
	calls int
}

var errInjected = errors.New("injected failure")

func (f *failAfter) Update(x []float64) ([]float64, error) {
	f.calls++
	if f.calls == f.n {
		return nil, errInjected
	}
	return f.p.Update(x)
}

func TestAndersonAffine(t *testing.T) {
	for _, n := range []int{1, 2, 5, 10, 20, 50} {
		rnd := rand.New(rand.NewSource(1))
		p := problem.NewAffine(n, 0.3, rnd)
		ops := sliceops.Ops{}
		mixer := newSliceAnderson(n, 1e-10, 1000)

		r, err := Solve[[]float64](context.Background(), p, mixer, ops, make([]float64, n), DefaultSettings())
		if err != nil {
			t.Errorf("Case n=%v: unexpected error %v", n, err)
			continue
		}
		if r.Reason != ToleranceBeaten {
			t.Errorf("Case n=%v: unexpected termination %v", n, r.Reason)
		}
		if res := p.Residual(r.Param); res > 1e-9 {
			t.Errorf("Case n=%v: residual %v too large", n, res)
		}
		if r.BestCost > r.Cost {
			t.Errorf("Case n=%v: best cost %v above final cost %v", n, r.BestCost, r.Cost)
		}
	}
}

func TestAndersonTrig(t *testing.T) {
	p := problem.NewTrig()
	ops := sliceops.Ops{}
	mixer := DefaultAndersonType1[[]float64, blas64.General](ops, 0)
	mixer.Tolerance = 1e-12

	r, err := Solve[[]float64](context.Background(), p, mixer, ops, make([]float64, 6), DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	fx, _ := p.Update(r.Param)
	if dist := floats.Distance(fx, r.Param, 2); dist > 1e-11 {
		t.Errorf("not a fixed point, |F(x)-x|=%v", dist)
	}
	if mixer.Dim != 6 {
		t.Errorf("dimension not taken from the initial parameter: %d", mixer.Dim)
	}
}

func TestAndersonBackendsAgree(t *testing.T) {
	const (
		n     = 12
		steps = 10
	)
	p := problem.NewAffine(n, 0.6, rand.New(rand.NewSource(2)))
	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = float64(i) / n
	}

	sops := sliceops.Ops{}
	sm := newSliceAnderson(n, 1e-14, 1000)
	ss := NewState(x0, sops)

	mops := matops.Ops{}
	mm := NewAndersonType1[*mat.VecDense, *mat.Dense](mops, n, 1e-14, 1000)
	ms := NewState(mat.NewVecDense(n, append([]float64(nil), x0...)), mops)
	mp := problem.MatAdapter{P: p}

	for i := 0; i < steps; i++ {
		sd, err := sm.NextIter(p, ss)
		if err != nil {
			t.Fatalf("slice backend: unexpected error %v", err)
		}
		md, err := mm.NextIter(mp, ms)
		if err != nil {
			t.Fatalf("mat backend: unexpected error %v", err)
		}
		ss.update(sd)
		ms.update(md)

		got := mat.Col(nil, 0, ms.Param())
		want := ss.Param()
		if dist := floats.Distance(got, want, math.Inf(1)); dist > 1e-8*(1+floats.Norm(want, math.Inf(1))) {
			t.Errorf("Step %d: backends differ by %v", i, dist)
		}
		if sm.MemoryLen() != mm.MemoryLen() {
			t.Errorf("Step %d: memory lengths differ: %d and %d", i, sm.MemoryLen(), mm.MemoryLen())
		}
	}
}

func TestAndersonDivergence(t *testing.T) {
	ops := sliceops.Ops{}
	mixer := newSliceAnderson(3, 1e-10, 100)

	_, err := mixer.NextIter(problem.NaN{}, NewState(ones(3), ops))
	if !errors.Is(err, ErrNumericalDivergence) {
		t.Errorf("unexpected error %v", err)
	}
	if mixer.iter != 0 || mixer.MemoryLen() != 0 {
		t.Errorf("mixer changed by a failed step: iteration %d, memory %d", mixer.iter, mixer.MemoryLen())
	}
}

func TestAndersonUpdateFailed(t *testing.T) {
	ops := sliceops.Ops{}
	const n = 8
	for _, failAt := range []int{1, 2, 3, 6} {
		p := &failAfter{
			p: problem.NewAffine(n, 0.5, rand.New(rand.NewSource(3))),
			n: failAt,
		}
		mixer := newSliceAnderson(n, 1e-10, 100)
		s := NewState(make([]float64, n), ops)

		var (
			failed         bool
			iter, memory   int
			x0, fx0, g0    []float64
			ubar           float64
			steps, window  int
			hv1Len, hv2Len int
		)
		for i := 0; i < 10 && !failed; i++ {
			iter, memory = mixer.iter, mixer.MemoryLen()
			x0, fx0, g0 = ops.Clone(mixer.x0), ops.Clone(mixer.fx0), ops.Clone(mixer.g0)
			ubar, steps, window = mixer.ubar, mixer.nAnderson, mixer.m
			if mixer.hv2 != nil {
				hv1Len, hv2Len = mixer.hv1.len(), mixer.hv2.len()
			}

			d, err := mixer.NextIter(p, s)
			if err != nil {
				failed = true
				if !errors.Is(err, ErrUpdateFailed) || !errors.Is(err, errInjected) {
					t.Errorf("Case %d: unexpected error %v", failAt, err)
				}
				break
			}
			s.update(d)
		}
		if !failed {
			t.Errorf("Case %d: failure not reported", failAt)
			continue
		}
		if mixer.iter != iter || mixer.MemoryLen() != memory || mixer.ubar != ubar ||
			mixer.nAnderson != steps || mixer.m != window {
			t.Errorf("Case %d: mixer counters changed by a failed step", failAt)
		}
		if !floats.Equal(mixer.x0, x0) || !floats.Equal(mixer.fx0, fx0) || !floats.Equal(mixer.g0, g0) {
			t.Errorf("Case %d: mixer iterates changed by a failed step", failAt)
		}
		if mixer.hv2 != nil && (mixer.hv1.len() != hv1Len || mixer.hv2.len() != hv2Len) {
			t.Errorf("Case %d: memory changed by a failed step", failAt)
		}

		// The iteration resumes once the problem recovers.
		if _, err := mixer.NextIter(p, s); err != nil {
			t.Errorf("Case %d: unexpected error after recovery: %v", failAt, err)
		}
	}
}

func TestAndersonMemoryBound(t *testing.T) {
	ops := sliceops.Ops{}
	const n = 20
	for _, memory := range []int{1, 2, 3, 5} {
		p := problem.NewAffine(n, 0.9, rand.New(rand.NewSource(4)))
		mixer := newSliceAnderson(n, 1e-14, 100)
		mixer.Memory = memory
		s := NewState(make([]float64, n), ops)

		var seen int
		for i := 0; i < 60; i++ {
			d, err := mixer.NextIter(p, s)
			if err != nil {
				t.Fatalf("Case %d: unexpected error %v", memory, err)
			}
			s.update(d)
			l := mixer.MemoryLen()
			if l > memory {
				t.Errorf("Case %d: memory holds %d steps", memory, l)
			}
			if mixer.sHat.len() != l || mixer.hv2.len() != l {
				t.Errorf("Case %d: memories out of step: %d, %d, %d", memory, mixer.sHat.len(), l, mixer.hv2.len())
			}
			seen = max(seen, l)
			if s.Cost() < mixer.Tolerance {
				break
			}
		}
		if seen == 0 {
			t.Errorf("Case %d: memory never used", memory)
		}
	}
}

func TestAndersonSafeguardFallback(t *testing.T) {
	ops := sliceops.Ops{}
	const (
		n    = 10
		beta = 0.5
	)
	p := problem.NewAffine(n, 0.5, rand.New(rand.NewSource(5)))
	mixer := newSliceAnderson(n, 1e-10, 1000)
	mixer.Safeguard = 1e-300
	mixer.Relaxation = beta
	s := NewState(ones(n), ops)

	for i := 0; i < 5; i++ {
		x := s.Param()
		fx, _ := p.Update(x)
		d, err := mixer.NextIter(p, s)
		if err != nil {
			t.Fatalf("Step %d: unexpected error %v", i, err)
		}
		got, _ := d.Param()
		want := fx
		if i > 0 {
			want = ops.Add(ops.Scale(beta, fx), ops.Scale(1-beta, x))
		}
		if dist := floats.Distance(got, want, math.Inf(1)); dist > 1e-14 {
			t.Errorf("Step %d: unexpected fallback step, |want-got|=%v", i, dist)
		}
		cost, _ := d.Cost()
		if want := p.Residual(got); math.Abs(cost-want) > 1e-14 {
			t.Errorf("Step %d: cost %v is not the residual %v of the iterate", i, cost, want)
		}
		s.update(d)
	}
	if mixer.AndersonSteps() != 1 {
		t.Errorf("unexpected number of accepted steps %d", mixer.AndersonSteps())
	}

	mixer.Reset()
	r, err := Solve[[]float64](context.Background(), p, mixer, ops, ones(n), DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Reason != ToleranceBeaten {
		t.Errorf("unexpected termination %v", r.Reason)
	}
}

func TestAndersonInverseJacobian(t *testing.T) {
	ops := sliceops.Ops{}
	const n = 7
	rnd := rand.New(rand.NewSource(6))
	p := problem.NewAffine(n, 0.7, rnd)
	mixer := newSliceAnderson(n, 1e-14, 100)

	h := mixer.InverseJacobian()
	if !floats.Equal(h.Data, ops.Eye(n).Data) {
		t.Errorf("initial approximation is not the identity")
	}

	s := NewState(make([]float64, n), ops)
	for i := 0; i < 4; i++ {
		d, err := mixer.NextIter(p, s)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		s.update(d)
		if mixer.MemoryLen() == 0 {
			continue
		}

		h = mixer.InverseJacobian()
		v := make([]float64, n)
		for j := range v {
			v[j] = rnd.NormFloat64()
		}
		want := mixer.apply(v)
		got := ops.MatVec(h, v)
		if dist := floats.Distance(got, want, math.Inf(1)); dist > 1e-12*(1+floats.Norm(want, math.Inf(1))) {
			t.Errorf("Step %d: H v differs from the low-rank product by %v", i, dist)
		}
		wantT := mixer.applyTrans(v)
		gotT := ops.MatTransVec(h, v)
		if dist := floats.Distance(gotT, wantT, math.Inf(1)); dist > 1e-12*(1+floats.Norm(wantT, math.Inf(1))) {
			t.Errorf("Step %d: H^T v differs from the low-rank product by %v", i, dist)
		}
	}
}

func TestAndersonFixedPoint(t *testing.T) {
	ops := sliceops.Ops{}
	identity := ProblemFunc[[]float64](func(x []float64) ([]float64, error) {
		return ops.Clone(x), nil
	})
	mixer := newSliceAnderson(3, 1e-12, 100)

	r, err := Solve[[]float64](context.Background(), identity, mixer, ops, []float64{1, -2, 3}, DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Reason != ToleranceBeaten || r.IterationCount() != 1 || r.Cost != 0 {
		t.Errorf("unexpected result: %v after %d iterations with cost %v", r.Reason, r.IterationCount(), r.Cost)
	}
	if mixer.MemoryLen() != 0 {
		t.Errorf("zero step stored in memory")
	}
}

func TestAndersonReset(t *testing.T) {
	ops := sliceops.Ops{}
	const n = 10
	p := problem.NewAffine(n, 0.4, rand.New(rand.NewSource(7)))
	mixer := newSliceAnderson(n, 1e-10, 1000)

	first, err := Solve[[]float64](context.Background(), p, mixer, ops, make([]float64, n), DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	mixer.Reset()
	if mixer.MemoryLen() != 0 || mixer.AndersonSteps() != 0 {
		t.Errorf("reset left state behind")
	}
	second, err := Solve[[]float64](context.Background(), p, mixer, ops, make([]float64, n), DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !floats.Equal(first.Param, second.Param) || first.IterationCount() != second.IterationCount() {
		t.Errorf("reset mixer does not reproduce the first run")
	}
}

func TestAndersonDimensionMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("no panic for a mismatched dimension")
		}
	}()
	mixer := newSliceAnderson(4, 1e-10, 10)
	mixer.NextIter(problem.NaN{}, NewState(ones(3), sliceops.Ops{}))
}

func TestAndersonResetDimension(t *testing.T) {
	ops := sliceops.Ops{}
	mixer := newSliceAnderson(0, 1e-10, 1000)
	if _, err := Solve[[]float64](context.Background(), problem.NewLaplacian(4), mixer, ops, make([]float64, 4), DefaultSettings()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if mixer.Dim != 4 {
		t.Errorf("dimension not inferred: got %d, want 4", mixer.Dim)
	}
	mixer.Reset()
	if mixer.Dim != 0 {
		t.Errorf("inferred dimension kept after reset: %d", mixer.Dim)
	}
	r, err := Solve[[]float64](context.Background(), problem.NewLaplacian(7), mixer, ops, make([]float64, 7), DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(r.Param) != 7 || mixer.Dim != 7 {
		t.Errorf("unexpected dimension after reset: len %d, Dim %d", len(r.Param), mixer.Dim)
	}

	fixed := newSliceAnderson(4, 1e-10, 1000)
	if _, err := Solve[[]float64](context.Background(), problem.NewLaplacian(4), fixed, ops, make([]float64, 4), DefaultSettings()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	fixed.Reset()
	if fixed.Dim != 4 {
		t.Errorf("explicit dimension changed by reset: %d", fixed.Dim)
	}
}
