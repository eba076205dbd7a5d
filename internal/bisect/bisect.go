// Package bisect carries out a binary search whose direction decisions
// come from outside, usually a human judging one candidate at a time.
package bisect

import "math/bits"

// window is one saved (lower, upper, index) triple.
type window struct {
	lower, upper, index int
}

// BisectionState manages the state of a binary search over a zero-based
// index range. It never looks at the actual data; the caller retrieves
// the current pivot via Index, judges the item there, and calls
// MarkAfter, MarkBefore, or Backtrack to choose where to look next.
//
// Backtracking restores the state at the previous step, all the way up
// to the initial state if needed; it exists for manual searching, where
// the user may notice a wrong judgment and want to try again.
//
// Callers must gate every transition on the corresponding CanGoAfter,
// CanGoBefore, or CanBacktrack check; violating a precondition panics.
type BisectionState struct {
	numItems int
	lower    int
	upper    int
	index    int
	stack    []window
}

// New creates a BisectionState over numItems items. If startAtEnd is
// true the search starts at the last item rather than the middle,
// convenient when the most recent item is unusually likely to be the
// goal. numItems must be at least 1.
func New(numItems int, startAtEnd bool) *BisectionState {
	if numItems < 1 {
		panic("bisect: must have at least one item to bisect")
	}
	s := &BisectionState{
		numItems: numItems,
		lower:    0,
		upper:    numItems - 1,
	}
	if startAtEnd {
		s.index = s.upper
	} else {
		s.index = numItems / 2
	}
	return s
}

// Index returns the current pivot point.
func (s *BisectionState) Index() int { return s.index }

// NumItems returns the total number of items in the bisection set.
func (s *BisectionState) NumItems() int { return s.numItems }

// AtStart reports whether we are looking at the first item of the full
// list (not just the current search window).
func (s *BisectionState) AtStart() bool { return s.index == 0 }

// AtEnd reports whether we are looking at the last item of the full list.
func (s *BisectionState) AtEnd() bool { return s.index == s.numItems-1 }

// AtOnly reports whether the full list has a single item.
func (s *BisectionState) AtOnly() bool { return s.numItems == 1 }

// CanGoAfter reports whether an item after the current one remains in
// the search window.
func (s *BisectionState) CanGoAfter() bool { return s.index < s.upper }

// CanGoBefore reports whether an item before the current one remains in
// the search window.
func (s *BisectionState) CanGoBefore() bool { return s.index > s.lower }

// CanBacktrack reports whether at least one previous choice is on record.
func (s *BisectionState) CanBacktrack() bool { return len(s.stack) > 0 }

// RemainingSteps returns the maximum number of steps it will take to
// converge on a single value.
func (s *BisectionState) RemainingSteps() int {
	span := s.upper - s.lower
	switch {
	case span == 0:
		return 0
	case span == 1:
		return 1
	default:
		return ceilLog2(span)
	}
}

// ceilLog2 returns ceil(log2(n)) for n >= 2, in exact integer arithmetic.
func ceilLog2(n int) int {
	return bits.Len(uint(n - 1))
}

// MarkAfter indicates the desired item is after the current one. The
// pivot advances by at least one and the window shrinks from below.
func (s *BisectionState) MarkAfter() {
	if !s.CanGoAfter() {
		panic("bisect: invalid step, already at end of window")
	}
	s.push()
	s.lower = s.index + 1
	s.index += ceilDiv(s.upper-s.index+1, 2)
}

// MarkBefore indicates the desired item is before the current one.
func (s *BisectionState) MarkBefore() {
	if !s.CanGoBefore() {
		panic("bisect: invalid step, already at beginning of window")
	}
	s.push()
	s.upper = s.index - 1
	s.index -= ceilDiv(s.index-s.lower+1, 2)
}

// Backtrack restores the exact window and pivot of the previous step.
func (s *BisectionState) Backtrack() {
	if !s.CanBacktrack() {
		panic("bisect: invalid step, no steps to back out")
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.lower, s.upper, s.index = top.lower, top.upper, top.index
}

func (s *BisectionState) push() {
	s.stack = append(s.stack, window{s.lower, s.upper, s.index})
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
