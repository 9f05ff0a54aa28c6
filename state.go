// Copyright ©2026 The conflux Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conflux

import "math"

// State holds the progress of a fixed-point iteration. It is created and
// updated by a Solver; Mixers only read it.
type State[P any] struct {
	param         P
	prevParam     P
	bestParam     P
	prevBestParam P

	cost         float64
	prevCost     float64
	bestCost     float64
	prevBestCost float64

	iter         int
	lastBestIter int
	maxIters     int

	reason TerminationReason

	c Cloner[P]
}

// NewState returns the initial State of an iteration started at x0. All
// costs are +Inf and the iteration budget is unlimited.
func NewState[P any](x0 P, c Cloner[P]) *State[P] {
	inf := math.Inf(1)
	return &State[P]{
		param:         c.Clone(x0),
		prevParam:     c.Clone(x0),
		bestParam:     c.Clone(x0),
		prevBestParam: c.Clone(x0),
		cost:          inf,
		prevCost:      inf,
		bestCost:      inf,
		prevBestCost:  inf,
		maxIters:      math.MaxInt,
		c:             c,
	}
}

// Param returns a copy of the current parameter.
func (s *State[P]) Param() P { return s.c.Clone(s.param) }

// PrevParam returns a copy of the previous parameter.
func (s *State[P]) PrevParam() P { return s.c.Clone(s.prevParam) }

// BestParam returns a copy of the parameter with the lowest cost so far.
func (s *State[P]) BestParam() P { return s.c.Clone(s.bestParam) }

// PrevBestParam returns a copy of the previous best parameter.
func (s *State[P]) PrevBestParam() P { return s.c.Clone(s.prevBestParam) }

func (s *State[P]) Cost() float64         { return s.cost }
func (s *State[P]) PrevCost() float64     { return s.prevCost }
func (s *State[P]) BestCost() float64     { return s.bestCost }
func (s *State[P]) PrevBestCost() float64 { return s.prevBestCost }

// Iter returns the number of completed iterations.
func (s *State[P]) Iter() int { return s.iter }

// LastBestIter returns the iteration at which the best cost was found.
func (s *State[P]) LastBestIter() int { return s.lastBestIter }

// MaxIters returns the iteration budget.
func (s *State[P]) MaxIters() int { return s.maxIters }

// Terminated reports whether a termination reason other than NotTerminated
// has been set.
func (s *State[P]) Terminated() bool { return s.reason != NotTerminated }

// TerminationReason returns the current termination reason.
func (s *State[P]) TerminationReason() TerminationReason { return s.reason }

// SetTerminationReason sets the termination reason.
func (s *State[P]) SetTerminationReason(r TerminationReason) { s.reason = r }

// update folds the output of one Mixer iteration into the state.
func (s *State[P]) update(d IterData[P]) {
	x, ok := d.Param()
	if !ok {
		panic("conflux: mixer returned IterData without a parameter")
	}
	cost, ok := d.Cost()
	if !ok {
		panic("conflux: mixer returned IterData without a cost")
	}

	s.prevParam = s.param
	s.param = x
	s.prevCost = s.cost
	s.cost = cost

	if s.cost < s.bestCost {
		s.prevBestCost = s.bestCost
		s.prevBestParam = s.bestParam
		s.bestCost = s.cost
		s.bestParam = s.param
		s.lastBestIter = s.iter + 1
	}

	s.iter++
}
