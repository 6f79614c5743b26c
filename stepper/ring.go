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

import "sync"

// segmentRingCapacity matches spec.md §3's "small fixed-capacity
// (≈6) circular buffer."
const segmentRingCapacity = 6

// SegmentRing is single-producer (prep), single-consumer (ISR),
// guarded by a mutex rather than the lock-free atomic head/tail the
// original embedded target used — Go's scheduler makes a short
// critical section cheaper than hand-rolled lock-free indices, and
// correctness is easier to see (spec.md §9 endorses either strategy
// on a hosted target).
type SegmentRing struct {
	mu       sync.Mutex
	cond     *sync.Cond
	segments [segmentRingCapacity]Segment
	head     int
	tail     int
	count    int
}

// NewSegmentRing returns an empty segment ring.
func NewSegmentRing() *SegmentRing {
	r := &SegmentRing{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push appends a segment prepared by prep. It reports false if the
// ring is already full (the caller should stop preparing for now).
func (r *SegmentRing) Push(s Segment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == segmentRingCapacity {
		return false
	}
	r.segments[r.head] = s
	r.head = (r.head + 1) % segmentRingCapacity
	r.count++
	r.cond.Broadcast()
	return true
}

// Pop removes and returns the oldest segment, blocking until one is
// available; Flush does not release a blocked Pop.
func (r *SegmentRing) Pop() (Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.count == 0 {
		r.cond.Wait()
	}
	s := r.segments[r.tail]
	r.tail = (r.tail + 1) % segmentRingCapacity
	r.count--
	r.cond.Broadcast()
	return s, true
}

// TryPop is Pop's non-blocking form, used by the ISR goroutine so it
// can also observe a stop signal.
func (r *SegmentRing) TryPop() (Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return Segment{}, false
	}
	s := r.segments[r.tail]
	r.tail = (r.tail + 1) % segmentRingCapacity
	r.count--
	r.cond.Broadcast()
	return s, true
}

// Full reports whether prep should stop producing for now.
func (r *SegmentRing) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count == segmentRingCapacity
}

// Len reports the number of buffered segments.
func (r *SegmentRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Flush discards all buffered segments (spec.md §4.5 Reset/JogCancel).
func (r *SegmentRing) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head, r.tail, r.count = 0, 0, 0
	r.cond.Broadcast()
}
