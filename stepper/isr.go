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
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/gnc-motion/internal/isrclock"
)

// Pulse is one ISR tick's output: which axes stepped and in which
// direction, for a consumer (simulated driver, test harness) to
// observe. It mirrors the grbl ISR's write to the step/direction
// ports (spec.md §4.4).
type Pulse struct {
	StepBits      uint8
	DirectionBits uint8
	BlockIndex    int
	SystemMotion  bool
}

// Sink receives pulses as the ISR goroutine produces them.
type Sink func(Pulse)

// ISR is the Bresenham step generator: it drains the segment ring one
// segment at a time, stepping each axis's counter under a periodic
// timer exactly as spec.md §4.4 describes grbl's interrupt handler,
// modeled here as a goroutine rather than a hardware interrupt
// (spec.md §9).
type ISR struct {
	wg      sync.WaitGroup
	done    chan struct{}
	running bool

	ring *SegmentRing
	prep *Prep
	sink Sink

	counter      [AxisCount]int32
	seg          Segment
	stepsDone    uint32
	haveSeg      bool
	lastBlockIdx int
}

// NewISR returns a stepper ISR goroutine draining ring, asking prep to
// refill it, and delivering pulses to sink.
func NewISR(ring *SegmentRing, prep *Prep, sink Sink) *ISR {
	return &ISR{
		done: make(chan struct{}),
		ring: ring,
		prep: prep,
		sink: sink,
	}
}

// Start runs the ISR loop until Stop is called, matching the teacher
// core's Start/Stop/done-channel shape.
func (isr *ISR) Start() {
	isr.wg.Add(1)
	defer isr.wg.Done()

	clock := isrclock.New(time.Millisecond)
	defer clock.Stop()

	isr.running = true
	for {
		select {
		case <-isr.done:
			slog.Info("stepper ISR stopped")
			return
		case <-clock.C():
			isr.tick(clock)
		}
	}
}

// Stop halts the ISR goroutine, waiting up to a second for it to
// drain (mirrors the teacher core's Stop timeout behaviour).
func (isr *ISR) Stop() {
	close(isr.done)
	done := make(chan struct{})
	go func() {
		isr.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for stepper ISR to finish")
	}
}

// tick implements one interrupt cycle: load a segment if needed, step
// the Bresenham counters by one AMASS sub-tick, and emit a pulse when
// a real step event fires on the dividing line (spec.md §4.4 steps
// 1-4).
func (isr *ISR) tick(clock isrclock.Clock) {
	if !isr.haveSeg {
		seg, ok := isr.ring.TryPop()
		if !ok {
			isr.prep.Fill()
			seg, ok = isr.ring.TryPop()
			if !ok {
				return // starved: nothing queued
			}
		}
		isr.seg = seg
		isr.stepsDone = 0
		isr.haveSeg = true
		if seg.BlockIndex != isr.lastBlockIdx {
			isr.lastBlockIdx = seg.BlockIndex
			half := int32(seg.StepperBlock.StepEventCount / 2)
			for a := range isr.counter {
				isr.counter[a] = half
			}
		}
		clock.Reset(isrPeriod(seg))
		isr.prep.Fill()
	}

	seg := isr.seg
	divisor := int32(1) << uint(seg.AmassLevel)

	var pulse Pulse
	for a := 0; a < AxisCount; a++ {
		steps := seg.StepperBlock.Steps[a]
		if steps == 0 {
			continue
		}
		isr.counter[a] -= int32(steps)
		if isr.counter[a] < 0 {
			isr.counter[a] += int32(seg.StepperBlock.StepEventCount) * divisor
			pulse.StepBits |= 1 << uint(a)
		}
	}
	pulse.DirectionBits = seg.StepperBlock.DirectionBits
	pulse.BlockIndex = seg.BlockIndex
	pulse.SystemMotion = seg.StepperBlock.SystemMotion

	if pulse.StepBits != 0 && isr.sink != nil {
		isr.sink(pulse)
	}

	isr.stepsDone++
	if isr.stepsDone >= seg.NStep*uint32(divisor) {
		isr.haveSeg = false
	}
}

// isrPeriod converts a segment's cycles_per_tick (a hardware timer
// reload value against amass.timerFrequencyHz) into a wall-clock tick
// period for isrclock.
func isrPeriod(seg Segment) time.Duration {
	if seg.CyclesPerTick == 0 {
		return time.Millisecond
	}
	seconds := float64(seg.CyclesPerTick) / timerFrequencyHz
	d := time.Duration(seconds * float64(time.Second))
	if d < time.Microsecond {
		d = time.Microsecond
	}
	return d
}
