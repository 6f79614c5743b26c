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

// ClonePulse is the extra pulse CloneAxis derives for the shadow motor
// of an auto-squaring gantry axis: same step/direction state as the
// primary axis, delivered on its own output identity.
type ClonePulse struct {
	Step      bool
	Direction bool
	AxisLabel string
}

// CloneSink receives the derived shadow-axis pulses.
type CloneSink func(ClonePulse)

// CloneAxis wraps a Sink so that one physical axis's step/direction
// state is mirrored onto a second motor's pin pair, sharing the same
// step count and direction bit, for gantry designs that square two
// motors against a single commanded axis (spec.md §9's "cloned-axis
// decorator").
type CloneAxis struct {
	next  Sink
	axis  int
	label string
	clone CloneSink
}

// NewCloneAxis returns a Sink decorator: every Pulse is first passed
// through to next unchanged, then, if it steps axis, a ClonePulse
// carrying the same step/direction state is delivered to clone under
// label (the shadow motor's identity, e.g. "Y2").
func NewCloneAxis(next Sink, axis int, label string, clone CloneSink) Sink {
	c := &CloneAxis{next: next, axis: axis, label: label, clone: clone}
	return c.sink
}

func (c *CloneAxis) sink(p Pulse) {
	if c.next != nil {
		c.next(p)
	}
	bit := uint8(1) << uint(c.axis)
	if p.StepBits&bit == 0 {
		return
	}
	if c.clone != nil {
		c.clone(ClonePulse{
			Step:      true,
			Direction: p.DirectionBits&bit != 0,
			AxisLabel: c.label,
		})
	}
}
