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

// Package planner implements the trajectory planner: a bounded ring of
// motion blocks across which junction velocities are optimised under
// per-axis acceleration and junction-deviation constraints (spec.md
// §4.2). Ring discipline follows §4.2's "Ring discipline": producer
// (Enqueue) only ever mutates at and after head; the consumer
// (stepper/prep) frees blocks only by advancing tail.
package planner

import (
	"errors"
	"sync"

	"github.com/rcornwell/gnc-motion/nvs"
)

// ErrRingFull is returned by Enqueue when the ring has no free slot;
// spec.md §4.2: "A full ring requires the caller to wait; there is no
// spill." Callers loop on WaitForSpace or retry.
var ErrRingFull = errors.New("planner: ring full")

// ErrSoftLimit reports a target outside the configured travel limits
// (supplemented feature, see SPEC_FULL.md).
var ErrSoftLimit = errors.New("planner: target exceeds soft limit")

// Planner owns the block ring and the mm position it advances as
// blocks are enqueued (the producer-side view of position; the
// authoritative step-accurate position lives in the stepper).
type Planner struct {
	mu    sync.Mutex
	cond  *sync.Cond
	store *nvs.Store

	blocks   []Block
	capacity int
	head     int // next free write slot
	tail     int // oldest unconsumed block
	count    int

	executing bool // true once the tail block has been handed to the stepper

	position [AxisCount]float64
}

// New returns a Planner with the given ring capacity backed by store
// for per-axis kinematic limits and soft-limit bounds.
func New(capacity int, store *nvs.Store) *Planner {
	if capacity < 2 {
		capacity = 2
	}
	p := &Planner{
		store:    store,
		blocks:   make([]Block, capacity),
		capacity: capacity,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetPosition resynchronises the planner's mm position, used on abort
// and after homing (spec.md §3's "reconciled on abort and homing").
// Callers must ensure the ring is empty first.
func (p *Planner) SetPosition(pos [AxisCount]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
}

// Position returns the planner's current mm position (the tip of the
// queued motion, not necessarily the stepper's executed position).
func (p *Planner) Position() [AxisCount]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Planner) checkSoftLimit(target [AxisCount]float64) bool {
	if p.store == nil || !p.store.SoftLimitsEnabled() {
		return true
	}
	for a := 0; a < AxisCount; a++ {
		max := p.store.MaxTravel(a)
		if max <= 0 {
			continue
		}
		if target[a] > 0 || target[a] < -max {
			return false
		}
	}
	return true
}

// Enqueue implements spec.md §4.2's block construction plus junction
// recompute. A zero-length move returns (false, nil): EMPTY, no error.
func (p *Planner) Enqueue(line Line) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checkSoftLimit(line.Target) {
		return false, ErrSoftLimit
	}

	next := (p.head + 1) % p.capacity
	if p.count == p.capacity {
		return false, ErrRingFull
	}

	limits := limitsFromStore(p.store)
	block, ok := buildBlock(p.position, line.Target, line, limits)
	if !ok {
		return false, nil // zero-length move silently dropped
	}
	block.MaxJunctionSqr = junctionSpeedSqrSentinel
	if p.count > 0 {
		prevIdx := (p.head - 1 + p.capacity) % p.capacity
		prev := &p.blocks[prevIdx]
		deviation := 0.0
		if p.store != nil {
			deviation = p.store.JunctionDeviation()
		}
		accel := block.Acceleration
		if prev.Acceleration < accel {
			accel = prev.Acceleration
		}
		block.MaxJunctionSqr = maxJunctionSpeedSqr(prev.unitVector, block.unitVector, accel, deviation)
	}

	p.blocks[p.head] = *block
	p.head = next
	p.count++
	p.position = line.Target

	p.recompute()
	p.cond.Broadcast()
	return true, nil
}

// WaitForSpace blocks until the ring has a free slot.
func (p *Planner) WaitForSpace() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.count == p.capacity {
		p.cond.Wait()
	}
}

// WaitForEmpty blocks until the ring drains, implementing spec.md
// §5's protocol_buffer_synchronize suspension point.
func (p *Planner) WaitForEmpty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.count > 0 {
		p.cond.Wait()
	}
}

// Empty reports whether the ring currently holds no blocks.
func (p *Planner) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count == 0
}

// Len returns the number of queued blocks.
func (p *Planner) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Begin hands the tail block to the consumer (stepper/prep) and
// freezes its entry speed against further recompute, per spec.md
// §4.2: "The block currently being executed by the stepper is never
// modified." It returns a copy and false if the ring is empty.
func (p *Planner) Begin() (Block, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count == 0 {
		return Block{}, false
	}
	p.executing = true
	return p.blocks[p.tail], true
}

// PeekNextEntrySpeedSqr reports the planner-computed entry speed of the
// block queued immediately after the one most recently returned by
// Begin, so the consumer can plan that block's exit speed for
// continuity instead of always decelerating to rest (spec.md:127). It
// returns ok=false when no such block is queued yet.
func (p *Planner) PeekNextEntrySpeedSqr() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count < 2 {
		return 0, false
	}
	return p.at(1).EntrySpeedSqr, true
}

// Advance discards the executing block and advances tail, implementing
// §4.2's "consumer frees only by advancing tail."
func (p *Planner) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count == 0 {
		return
	}
	p.tail = (p.tail + 1) % p.capacity
	p.count--
	p.executing = false
	p.cond.Broadcast()
}

// Flush discards all queued blocks without advancing position,
// implementing the Reset/JogCancel abort path (spec.md §4.5, §5).
func (p *Planner) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head = 0
	p.tail = 0
	p.count = 0
	p.executing = false
	p.cond.Broadcast()
}

// at returns the block at the given offset from tail (0 is the oldest
// queued block). Caller must hold p.mu and ensure offset < p.count.
func (p *Planner) at(offset int) *Block {
	return &p.blocks[(p.tail+offset)%p.capacity]
}

// recompute implements spec.md §4.2's reverse/forward two-pass
// junction-speed optimisation over offsets [stopOffset, count-1] from
// tail. Caller must hold p.mu.
func (p *Planner) recompute() {
	if p.count == 0 {
		return
	}

	stopOffset := 0
	if p.executing {
		if p.count == 1 {
			return // only the frozen executing block exists
		}
		stopOffset = 1
	}
	headOffset := p.count - 1

	// Reverse pass: newest back to stopOffset, deriving each block's
	// MaxEntrySpeedSqr from the chain built so far.
	nextEntrySqr := 0.0
	for o := headOffset; o >= stopOffset; o-- {
		b := p.at(o)
		cap := min(b.NominalSpeedSqr, b.MaxJunctionSqr)
		if b.nominalLength() {
			b.Condition |= CondNominalLength
			b.MaxEntrySpeedSqr = cap
		} else {
			reach := nextEntrySqr + 2*b.Acceleration*b.Millimeters
			b.MaxEntrySpeedSqr = min(reach, cap)
		}
		nextEntrySqr = b.MaxEntrySpeedSqr
	}

	// Forward pass: stopOffset to head, capping actual entry speed by
	// kinematic reach from the previous block's actual entry speed.
	if !p.executing {
		b := p.at(stopOffset)
		if b.EntrySpeedSqr > b.MaxEntrySpeedSqr {
			b.EntrySpeedSqr = b.MaxEntrySpeedSqr
		}
	}
	prevEntrySqr := p.at(stopOffset).EntrySpeedSqr
	for o := stopOffset + 1; o <= headOffset; o++ {
		b := p.at(o)
		reach := prevEntrySqr + 2*b.Acceleration*b.Millimeters
		entry := b.MaxEntrySpeedSqr
		if reach < entry {
			entry = reach
		}
		b.EntrySpeedSqr = entry
		prevEntrySqr = entry
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
