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

// Package stepper implements the step-segment generator ("prep"),
// the fixed-capacity segment ring, and the ISR-equivalent goroutine
// that drains it with a per-axis Bresenham line algorithm under
// adaptive step-rate smoothing (spec.md §4.3, §4.4, glossary "AMASS").
package stepper

import "github.com/rcornwell/gnc-motion/nvs"

// AxisCount mirrors nvs.AxisCount.
const AxisCount = nvs.AxisCount

// Block is the immutable "stepper block" the ISR reads: it mirrors
// the direction bits and step-event count of its parent planner
// block so the ISR never touches planner memory directly (spec.md
// §4.4: "never reads a planner block directly").
type Block struct {
	Steps          [AxisCount]uint32
	StepEventCount uint32
	DirectionBits  uint8
	SystemMotion   bool
}

// Segment is segment_t: a short constant-rate slice of the active
// block prepared for the ISR (spec.md §3). StepperBlock carries the
// immutable direction/step-count fields the spec describes as a
// separate "stepper block" cache record; embedding it by value here
// is the Go-idiomatic equivalent of that back-reference, since Go
// gives no reason to chase a shared index into a second ring when a
// plain value copy is just as cheap and race-free.
type Segment struct {
	NStep         uint32
	CyclesPerTick uint32
	BlockIndex    int // monotonically increasing; a change resets the ISR's Bresenham counters
	AmassLevel    int
	SpindlePWM    uint8
	StepperBlock  Block
}
