package planner

/*
 * gnc-motion - CNC motion-control firmware
 *
 * Copyright 2026, gnc-motion contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"testing"

	"github.com/rcornwell/gnc-motion/nvs"
)

func newTestPlanner() *Planner {
	store := nvs.Default()
	return New(8, store)
}

func TestEnqueueZeroLengthDropped(t *testing.T) {
	p := newTestPlanner()
	ok, err := p.Enqueue(Line{Target: [AxisCount]float64{0, 0, 0}, FeedRate: 100})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if ok {
		t.Fatalf("expected zero-length move to be dropped")
	}
	if p.Len() != 0 {
		t.Fatalf("len = %d, want 0", p.Len())
	}
}

func TestEnqueueSingleBlock(t *testing.T) {
	p := newTestPlanner()
	ok, err := p.Enqueue(Line{Target: [AxisCount]float64{10, 0, 0}, FeedRate: 600})
	if err != nil || !ok {
		t.Fatalf("enqueue failed: ok=%v err=%v", ok, err)
	}
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	b, ok := p.Begin()
	if !ok {
		t.Fatalf("Begin returned no block")
	}
	if b.StepEventCount == 0 {
		t.Fatalf("step event count is zero")
	}
	if b.EntrySpeedSqr > b.MaxEntrySpeedSqr || b.MaxEntrySpeedSqr > b.NominalSpeedSqr {
		t.Fatalf("invariant violated: entry=%v max=%v nominal=%v", b.EntrySpeedSqr, b.MaxEntrySpeedSqr, b.NominalSpeedSqr)
	}
}

func TestThreeCollinearMovesNonZeroMiddleJunction(t *testing.T) {
	p := newTestPlanner()
	moves := [][AxisCount]float64{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	for _, m := range moves {
		ok, err := p.Enqueue(Line{Target: m, FeedRate: 100})
		if err != nil || !ok {
			t.Fatalf("enqueue %v failed: ok=%v err=%v", m, ok, err)
		}
	}
	if p.Len() != 3 {
		t.Fatalf("len = %d, want 3", p.Len())
	}
	middle := p.at(1)
	if middle.EntrySpeedSqr <= 0 {
		t.Fatalf("middle block entry speed sqr = %v, want > 0 for collinear continuation", middle.EntrySpeedSqr)
	}
}

func TestRingFullReturnsError(t *testing.T) {
	p := New(2, nvs.Default())
	for i := 1; i <= 2; i++ {
		ok, err := p.Enqueue(Line{Target: [AxisCount]float64{float64(i), 0, 0}, FeedRate: 100})
		if err != nil || !ok {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}
	_, err := p.Enqueue(Line{Target: [AxisCount]float64{10, 0, 0}, FeedRate: 100})
	if err != ErrRingFull {
		t.Fatalf("err = %v, want ErrRingFull", err)
	}
}

func TestAdvanceFreesSlot(t *testing.T) {
	p := New(2, nvs.Default())
	p.Enqueue(Line{Target: [AxisCount]float64{1, 0, 0}, FeedRate: 100})
	p.Enqueue(Line{Target: [AxisCount]float64{2, 0, 0}, FeedRate: 100})
	if _, err := p.Enqueue(Line{Target: [AxisCount]float64{3, 0, 0}, FeedRate: 100}); err != ErrRingFull {
		t.Fatalf("expected full ring")
	}
	if _, ok := p.Begin(); !ok {
		t.Fatalf("Begin failed")
	}
	p.Advance()
	ok, err := p.Enqueue(Line{Target: [AxisCount]float64{3, 0, 0}, FeedRate: 100})
	if err != nil || !ok {
		t.Fatalf("enqueue after advance failed: %v", err)
	}
}

func TestSoftLimitRejectsOutOfRangeTarget(t *testing.T) {
	store := nvs.Default()
	store.Set(nvs.SettingSoftLimits, 1)
	p := New(4, store)
	maxTravel := store.MaxTravel(0)
	_, err := p.Enqueue(Line{Target: [AxisCount]float64{-(maxTravel + 10), 0, 0}, FeedRate: 100})
	if err != ErrSoftLimit {
		t.Fatalf("err = %v, want ErrSoftLimit", err)
	}
}

func TestExecutingBlockEntrySpeedFrozen(t *testing.T) {
	p := newTestPlanner()
	p.Enqueue(Line{Target: [AxisCount]float64{10, 0, 0}, FeedRate: 600})
	b, _ := p.Begin()
	frozen := b.EntrySpeedSqr
	p.Enqueue(Line{Target: [AxisCount]float64{20, 0, 0}, FeedRate: 600})
	head := p.at(0)
	if head.EntrySpeedSqr != frozen {
		t.Fatalf("executing block entry speed changed: got %v want %v", head.EntrySpeedSqr, frozen)
	}
}
