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
	"math"
	"sync"

	"github.com/rcornwell/gnc-motion/planner"
)

// defaultTicksPerSecond is ACCELERATION_TICKS_PER_SECOND from spec.md
// §4.3: each segment covers about 1/100s of motion.
const defaultTicksPerSecond = 100.0

// Prep is the step-segment generator: it carves the head planner
// block's remaining trajectory into short fixed-duration segments,
// tracking the running accelerate/cruise/decelerate state spec.md
// §4.3 describes.
type Prep struct {
	mu sync.Mutex

	planner *planner.Planner
	ring    *SegmentRing

	ticksPerSecond float64
	blockCounter   int

	holdRequested bool
	active        bool
	block         planner.Block
	mmPerStep     float64
	mmRemaining   float64
	speedSqr      float64 // current (mm/s)^2
	accelDistance float64 // distance at which cruise begins
	decelDistance float64 // distance remaining at which decel begins
	cruiseSpeedSqr float64
	exitSpeedSqr   float64

	spindlePWM uint8
}

// NewPrep returns a segment generator feeding ring from p.
func NewPrep(p *planner.Planner, ring *SegmentRing) *Prep {
	return &Prep{
		planner:        p,
		ring:           ring,
		ticksPerSecond: defaultTicksPerSecond,
	}
}

// SetSpindlePWM snapshots the spindle duty cycle stamped onto segments
// produced from here on (spec.md §3's "spindle PWM snapshot").
func (pr *Prep) SetSpindlePWM(pwm uint8) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.spindlePWM = pwm
}

// Fill keeps the segment ring non-empty by repeatedly carving the
// head planner block until the ring is full or the planner is empty
// (spec.md §4.3's top-level responsibility). While a hold is
// requested, Fill finishes carving whatever block is already active
// (so it still decelerates to its own end) but refuses to load the
// next one, giving feed-hold a natural stopping point at a block
// boundary (spec.md §4.5's Hold row).
func (pr *Prep) Fill() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	for !pr.ring.Full() {
		if !pr.active {
			if pr.holdRequested {
				return
			}
			if !pr.loadNextBlock() {
				return
			}
		}
		if !pr.emitSegment() {
			pr.active = false
			pr.planner.Advance()
		}
	}
}

// Hold sets or clears the feed-hold request (see Fill's doc comment).
func (pr *Prep) Hold(requested bool) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.holdRequested = requested
}

func (pr *Prep) loadNextBlock() bool {
	b, ok := pr.planner.Begin()
	if !ok {
		return false
	}
	pr.block = b
	pr.active = true
	pr.mmRemaining = b.Millimeters
	pr.speedSqr = b.EntrySpeedSqr
	pr.mmPerStep = 0
	if b.StepEventCount > 0 {
		pr.mmPerStep = b.Millimeters / float64(b.StepEventCount)
	}
	pr.cruiseSpeedSqr = b.NominalSpeedSqr

	// Exit speed comes from the planner's own junction-deviation
	// recompute (spec.md:127): the block handed off next already
	// carries the continuity speed that recompute() solved for, so
	// carving a full decelerate-to-rest trapezoid here would throw
	// that optimisation away. Only fall back to a full stop when there
	// is no next block queued yet or a hold is in effect (spec.md
	// §4.5's Hold row), matching the block-boundary-pause scope
	// recorded in DESIGN.md.
	pr.exitSpeedSqr = 0
	if !pr.holdRequested {
		if next, ok := pr.planner.PeekNextEntrySpeedSqr(); ok {
			pr.exitSpeedSqr = next
		}
	}

	// Three-phase distance split: accelerate to cruise, cruise, then
	// decelerate to exit speed (spec.md §4.3's phase model).
	accelNeeded := (pr.cruiseSpeedSqr - pr.speedSqr) / (2 * b.Acceleration)
	decelNeeded := (pr.cruiseSpeedSqr - pr.exitSpeedSqr) / (2 * b.Acceleration)
	if accelNeeded < 0 {
		accelNeeded = 0
	}
	if decelNeeded < 0 {
		decelNeeded = 0
	}
	if accelNeeded+decelNeeded > b.Millimeters {
		// Triangular profile: never reaches cruise speed.
		accelNeeded = (b.Millimeters + (pr.speedSqr-pr.exitSpeedSqr)/(2*b.Acceleration)) / 2
		if accelNeeded < 0 {
			accelNeeded = 0
		}
		if accelNeeded > b.Millimeters {
			accelNeeded = b.Millimeters
		}
		decelNeeded = b.Millimeters - accelNeeded
	}
	pr.accelDistance = accelNeeded
	pr.decelDistance = decelNeeded

	pr.blockCounter++
	return true
}

// Recompute discards no state here beyond what loadNextBlock already
// captures fresh each block; cross-block re-sync (spec.md §4.3's
// "recomputing after planner-side updates") happens naturally because
// Fill always re-reads the live planner.Block fields when it starts a
// new block. Mid-block exit-speed changes from the planner are out of
// scope once a block's segments are already queued, matching the
// stated simplification that only the not-yet-executing blocks are
// recomputed (spec.md §4.2).
func (pr *Prep) Recompute() {}

// emitSegment produces one ~1/ticksPerSecond-duration segment from
// the remaining trajectory of the active block, advancing the
// consumed-distance accumulator. Returns false when the block is
// exhausted.
func (pr *Prep) emitSegment() bool {
	if pr.mmRemaining <= 0 || pr.mmPerStep <= 0 {
		return false
	}

	dt := 1.0 / pr.ticksPerSecond
	speed := math.Sqrt(pr.speedSqr)
	distanceCovered := pr.distanceTraveledInBlock()

	var targetSpeedSqr float64
	accel := pr.block.Acceleration
	switch {
	case distanceCovered < pr.accelDistance:
		v := speed + accel*dt
		targetSpeedSqr = v * v
		if targetSpeedSqr > pr.cruiseSpeedSqr {
			targetSpeedSqr = pr.cruiseSpeedSqr
		}
	case distanceCovered >= pr.block.Millimeters-pr.decelDistance:
		targetSpeedSqr = pr.speedSqr - 2*accel*(speed*dt)
		if targetSpeedSqr < pr.exitSpeedSqr {
			targetSpeedSqr = pr.exitSpeedSqr
		}
		if targetSpeedSqr < 0 {
			targetSpeedSqr = 0
		}
	default:
		targetSpeedSqr = pr.cruiseSpeedSqr
	}

	avgSpeed := (speed + math.Sqrt(targetSpeedSqr)) / 2
	segMM := avgSpeed * dt
	if segMM > pr.mmRemaining {
		segMM = pr.mmRemaining
	}
	if segMM <= 0 {
		return false
	}

	nSteps := uint32(math.Round(segMM / pr.mmPerStep))
	if nSteps == 0 {
		nSteps = 1
	}
	stepRateHz := avgSpeed / pr.mmPerStep
	level := amassLevel(stepRateHz)

	seg := Segment{
		NStep:         nSteps,
		CyclesPerTick: cyclesPerTick(stepRateHz, level),
		BlockIndex:    pr.blockCounter,
		AmassLevel:    level,
		SpindlePWM:    pr.spindlePWM,
		StepperBlock: Block{
			Steps:          pr.block.Steps,
			StepEventCount: pr.block.StepEventCount,
			DirectionBits:  pr.block.DirectionBits,
			SystemMotion:   pr.block.Condition&planner.CondSystemMotion != 0,
		},
	}
	pr.ring.Push(seg)

	pr.mmRemaining -= segMM
	pr.speedSqr = targetSpeedSqr
	return pr.mmRemaining > 1e-9
}

func (pr *Prep) distanceTraveledInBlock() float64 {
	return pr.block.Millimeters - pr.mmRemaining
}
