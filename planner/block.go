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
	"math"

	"github.com/rcornwell/gnc-motion/nvs"
)

// AxisCount mirrors nvs.AxisCount.
const AxisCount = nvs.AxisCount

// Condition is plan_block_t's condition bitset (spec.md §3).
type Condition uint8

const (
	CondRapid Condition = 1 << iota
	CondInverseTime
	CondSystemMotion
	CondNominalLength
)

// Line is the target + metadata the parser hands to Enqueue: a
// resolved mm target plus feed-rate/condition data (spec.md §4.2).
type Line struct {
	Target     [AxisCount]float64
	FeedRate   float64
	Condition  Condition
	LineNumber int
}

// Block is plan_block_t: one straight-line motion segment expressed in
// step units, plus the velocity-plan fields the recompute pass tunes.
type Block struct {
	Steps          [AxisCount]uint32
	StepEventCount uint32
	DirectionBits  uint8

	Millimeters   float64
	Acceleration  float64 // steps / min^2 equivalent, scaled to mm here
	ProgrammedFeed float64
	Condition     Condition
	LineNumber    int

	EntrySpeedSqr    float64
	MaxEntrySpeedSqr float64
	NominalSpeedSqr  float64
	MaxJunctionSqr   float64

	unitVector [AxisCount]float64
}

// axisLimits is the per-axis max-rate/acceleration/steps-per-mm triple
// the block builder pulls from nvs.Store; kept narrow so planner does
// not need the whole store type in its hot path signatures.
type axisLimits struct {
	stepsPerMM   [AxisCount]float64
	maxRate      [AxisCount]float64
	acceleration [AxisCount]float64
}

func limitsFromStore(store *nvs.Store) axisLimits {
	var l axisLimits
	for a := 0; a < AxisCount; a++ {
		l.stepsPerMM[a] = store.StepsPerMM(a)
		l.maxRate[a] = store.MaxRate(a)
		l.acceleration[a] = store.Acceleration(a)
	}
	return l
}

// buildBlock implements spec.md §4.2's "Block construction": convert
// target mm to step counts relative to position, compute direction
// bits, step_event_count, Euclidean length, and the acceleration /
// nominal-speed ceiling clipped to the tightest per-axis limit scaled
// by that axis's participation ratio.
func buildBlock(position, target [AxisCount]float64, line Line, limits axisLimits) (*Block, bool) {
	b := &Block{
		ProgrammedFeed: line.FeedRate,
		Condition:      line.Condition,
		LineNumber:     line.LineNumber,
	}

	var deltaMM [AxisCount]float64
	var sumSq float64
	for a := 0; a < AxisCount; a++ {
		deltaMM[a] = target[a] - position[a]
		sumSq += deltaMM[a] * deltaMM[a]
		steps := int64(math.Round(deltaMM[a] * limits.stepsPerMM[a]))
		if steps < 0 {
			b.DirectionBits |= 1 << uint(a)
			steps = -steps
		}
		b.Steps[a] = uint32(steps)
		if b.Steps[a] > b.StepEventCount {
			b.StepEventCount = b.Steps[a]
		}
	}
	if b.StepEventCount == 0 {
		return nil, false // zero-length move: EMPTY per spec.md §4.2
	}
	b.Millimeters = math.Sqrt(sumSq)

	// Unit vector and per-axis participation ratio drive both the
	// acceleration/nominal-speed clipping here and the junction-angle
	// computation in junction.go.
	minAccel := math.Inf(1)
	minRateSqrRatio := math.Inf(1)
	for a := 0; a < AxisCount; a++ {
		if b.Millimeters > 0 {
			b.unitVector[a] = deltaMM[a] / b.Millimeters
		}
		if b.Steps[a] == 0 {
			continue
		}
		participation := float64(b.Steps[a]) / float64(b.StepEventCount)
		if participation == 0 {
			continue
		}
		if a2 := limits.acceleration[a] / participation; a2 < minAccel {
			minAccel = a2
		}
		if r2 := (limits.maxRate[a] / participation); r2*r2 < minRateSqrRatio {
			minRateSqrRatio = r2 * r2
		}
	}
	if math.IsInf(minAccel, 1) {
		minAccel = 1
	}
	b.Acceleration = minAccel

	nominalRate := line.FeedRate
	if line.Condition&CondInverseTime != 0 && b.Millimeters > 0 {
		nominalRate = line.FeedRate * b.Millimeters
	}
	if line.Condition&CondRapid != 0 || nominalRate <= 0 {
		nominalRate = math.Sqrt(minRateSqrRatio)
	}
	if capRate := math.Sqrt(minRateSqrRatio); nominalRate > capRate {
		nominalRate = capRate
	}
	b.NominalSpeedSqr = nominalRate * nominalRate

	return b, true
}

// nominalLength reports whether the block is long enough to accelerate
// from zero to nominal speed and decelerate back to zero within its
// own length — such a block's entry speed is pinned by the recompute
// pass (spec.md §4.2).
func (b *Block) nominalLength() bool {
	if b.Acceleration <= 0 {
		return false
	}
	minDistance := b.NominalSpeedSqr / (2 * b.Acceleration)
	return b.Millimeters >= minDistance
}
