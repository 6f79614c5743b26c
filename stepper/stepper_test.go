package stepper

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
	"time"

	"github.com/rcornwell/gnc-motion/internal/isrclock"
	"github.com/rcornwell/gnc-motion/nvs"
	"github.com/rcornwell/gnc-motion/planner"
)

func newTestPlanner() *planner.Planner {
	store := nvs.Default()
	return planner.New(8, store)
}

func TestAmassLevelDecreasesWithStepRate(t *testing.T) {
	if amassLevel(10) < amassLevel(5000) {
		t.Fatalf("expected low step rate to need a higher (or equal) AMASS level")
	}
	if amassLevel(100000) != 0 {
		t.Fatalf("high step rate should need no subdivision, got level %d", amassLevel(100000))
	}
}

func TestCyclesPerTickNeverZero(t *testing.T) {
	for _, rate := range []float64{0, 1, 500, 30000, 1e6} {
		level := amassLevel(rate)
		c := cyclesPerTick(rate, level)
		if c == 0 {
			t.Fatalf("cyclesPerTick(%v, %d) = 0, want >= 1", rate, level)
		}
	}
}

func TestSegmentRingPushPopOrder(t *testing.T) {
	r := NewSegmentRing()
	for i := 0; i < segmentRingCapacity; i++ {
		if !r.Push(Segment{BlockIndex: i}) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	if r.Push(Segment{BlockIndex: 99}) {
		t.Fatalf("push into a full ring should fail")
	}
	for i := 0; i < segmentRingCapacity; i++ {
		s, ok := r.TryPop()
		if !ok || s.BlockIndex != i {
			t.Fatalf("pop %d: got (%v, %v), want (%d, true)", i, s.BlockIndex, ok, i)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatalf("pop from an empty ring should fail")
	}
}

func TestSegmentRingFlushDropsQueued(t *testing.T) {
	r := NewSegmentRing()
	r.Push(Segment{})
	r.Push(Segment{})
	r.Flush()
	if r.Len() != 0 {
		t.Fatalf("Len() after Flush = %d, want 0", r.Len())
	}
}

func TestPrepFillProducesSegmentsFromTheBlock(t *testing.T) {
	p := newTestPlanner()
	ok, err := p.Enqueue(planner.Line{
		Target:   [planner.AxisCount]float64{10, 0, 0},
		FeedRate: 100,
	})
	if !ok || err != nil {
		t.Fatalf("Enqueue failed: ok=%v err=%v", ok, err)
	}

	ring := NewSegmentRing()
	prep := NewPrep(p, ring)
	prep.Fill()

	if ring.Len() == 0 {
		t.Fatalf("expected prep to produce at least one segment")
	}

	var totalSteps uint32
	for {
		seg, ok := ring.TryPop()
		if !ok {
			break
		}
		totalSteps += seg.NStep
		if seg.StepperBlock.StepEventCount == 0 {
			t.Fatalf("segment's stepper block has zero step_event_count")
		}
	}
	if totalSteps == 0 {
		t.Fatalf("total steps emitted across segments was zero")
	}
}

func TestPrepAdvancesPlannerWhenBlockExhausted(t *testing.T) {
	p := newTestPlanner()
	p.Enqueue(planner.Line{Target: [planner.AxisCount]float64{1, 0, 0}, FeedRate: 50})

	ring := NewSegmentRing()
	prep := NewPrep(p, ring)

	for i := 0; i < 50 && !p.Empty(); i++ {
		prep.Fill()
		for {
			if _, ok := ring.TryPop(); !ok {
				break
			}
		}
	}
	if !p.Empty() {
		t.Fatalf("planner should have drained after repeated Fill/drain cycles")
	}
}

func TestLoadNextBlockUsesPlannedContinuitySpeed(t *testing.T) {
	p := newTestPlanner()
	moves := [][planner.AxisCount]float64{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	for _, m := range moves {
		if ok, err := p.Enqueue(planner.Line{Target: m, FeedRate: 100}); !ok || err != nil {
			t.Fatalf("enqueue %v failed: ok=%v err=%v", m, ok, err)
		}
	}

	ring := NewSegmentRing()
	prep := NewPrep(p, ring)
	if !prep.loadNextBlock() {
		t.Fatalf("loadNextBlock should have succeeded with three queued blocks")
	}
	if prep.exitSpeedSqr <= 0 {
		t.Fatalf("exitSpeedSqr = %v, want > 0 for a collinear continuation into a queued block", prep.exitSpeedSqr)
	}
}

func TestLoadNextBlockStopsWhenHoldRequested(t *testing.T) {
	p := newTestPlanner()
	moves := [][planner.AxisCount]float64{{1, 0, 0}, {2, 0, 0}}
	for _, m := range moves {
		if ok, err := p.Enqueue(planner.Line{Target: m, FeedRate: 100}); !ok || err != nil {
			t.Fatalf("enqueue %v failed: ok=%v err=%v", m, ok, err)
		}
	}

	ring := NewSegmentRing()
	prep := NewPrep(p, ring)
	prep.Hold(true)
	if !prep.loadNextBlock() {
		t.Fatalf("loadNextBlock should still load the already-active block under hold")
	}
	if prep.exitSpeedSqr != 0 {
		t.Fatalf("exitSpeedSqr = %v, want 0 while a hold is requested", prep.exitSpeedSqr)
	}
}

func TestLoadNextBlockStopsWhenNoFurtherBlockQueued(t *testing.T) {
	p := newTestPlanner()
	if ok, err := p.Enqueue(planner.Line{Target: [planner.AxisCount]float64{5, 0, 0}, FeedRate: 100}); !ok || err != nil {
		t.Fatalf("enqueue failed: ok=%v err=%v", ok, err)
	}

	ring := NewSegmentRing()
	prep := NewPrep(p, ring)
	if !prep.loadNextBlock() {
		t.Fatalf("loadNextBlock should have succeeded with one queued block")
	}
	if prep.exitSpeedSqr != 0 {
		t.Fatalf("exitSpeedSqr = %v, want 0 with no further block queued", prep.exitSpeedSqr)
	}
}

func TestISRInitializesBresenhamCounterToHalfStepEventCount(t *testing.T) {
	p := newTestPlanner()
	ring := NewSegmentRing()
	prep := NewPrep(p, ring)
	isr := NewISR(ring, prep, nil)
	seg := Segment{
		BlockIndex: 1,
		NStep:      1,
		StepperBlock: Block{
			Steps:          [AxisCount]uint32{10, 0, 0},
			StepEventCount: 10,
		},
	}
	isr.ring.Push(seg)
	isr.tick(fakeClock{})
	if isr.counter[0] != 5 {
		t.Fatalf("counter[0] = %d, want 5 (step_event_count/2) after loading a new block", isr.counter[0])
	}
}

func TestCloneAxisMirrorsConfiguredAxis(t *testing.T) {
	var primaryCalls []Pulse
	var cloneCalls []ClonePulse

	base := func(p Pulse) { primaryCalls = append(primaryCalls, p) }
	sink := NewCloneAxis(base, 1, "Y2", func(cp ClonePulse) { cloneCalls = append(cloneCalls, cp) })

	sink(Pulse{StepBits: 0b010, DirectionBits: 0b010})
	sink(Pulse{StepBits: 0b001, DirectionBits: 0})

	if len(primaryCalls) != 2 {
		t.Fatalf("expected every pulse to reach the primary sink, got %d", len(primaryCalls))
	}
	if len(cloneCalls) != 1 {
		t.Fatalf("expected exactly one clone pulse (axis 1 stepped once), got %d", len(cloneCalls))
	}
	if !cloneCalls[0].Step || !cloneCalls[0].Direction || cloneCalls[0].AxisLabel != "Y2" {
		t.Fatalf("unexpected clone pulse: %+v", cloneCalls[0])
	}
}

func TestISRProducesStepsForAQueuedSegment(t *testing.T) {
	p := newTestPlanner()
	p.Enqueue(planner.Line{Target: [planner.AxisCount]float64{5, 0, 0}, FeedRate: 200})

	ring := NewSegmentRing()
	prep := NewPrep(p, ring)
	prep.Fill()

	var pulses int
	isr := NewISR(ring, prep, func(Pulse) { pulses++ })
	clock := fakeClock{}

	for i := 0; i < 100000 && (ring.Len() > 0 || !p.Empty()); i++ {
		isr.tick(clock)
	}
	if pulses == 0 {
		t.Fatalf("expected the ISR loop to emit step pulses")
	}
}

type fakeClock struct{}

func (fakeClock) C() <-chan time.Time       { return nil }
func (fakeClock) Stop()                     {}
func (fakeClock) Reset(period time.Duration) {}

var _ isrclock.Clock = fakeClock{}
