package executor

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

import "sync/atomic"

// ExecFlag bits make up rt_exec_state: set by the serial RX path (or
// any realtime-byte source) without going through the parser, cleared
// only by the protocol loop's realtime handler (spec.md §4.5, §5).
type ExecFlag uint32

const (
	ExecStatusReport ExecFlag = 1 << iota
	ExecCycleStart
	ExecFeedHold
	ExecReset
	ExecMotionCancel
	ExecSleep
	ExecJogCancel
)

// AlarmCode enumerates rt_exec_alarm values (spec.md §7's alarm
// taxonomy).
type AlarmCode uint8

const (
	AlarmNone AlarmCode = iota
	AlarmHardLimit
	AlarmSoftLimit
	AlarmAbortCycle
	AlarmProbeFail
	AlarmHomingFail
)

// OverrideRequest enumerates rt_exec_motion_override values, the
// realtime-byte-driven feed/rapid override change requests.
type OverrideRequest uint8

const (
	OverrideNone OverrideRequest = iota
	OverrideFeedReset
	OverrideFeedCoarsePlus
	OverrideFeedCoarseMinus
	OverrideFeedFinePlus
	OverrideFeedFineMinus
	OverrideRapidFull
	OverrideRapidHalf
	OverrideRapidQuarter
)

// RealtimeState is the word triple spec.md §4.5 names: rt_exec_state,
// rt_exec_alarm, rt_exec_motion_override. All three are accessed with
// atomic loads/stores so an RX-path goroutine can set them without
// taking the same lock the protocol loop holds while executing a line
// (spec.md §5's "interrupt-safe read-modify-write" requirement,
// expressed here as lock-free atomics instead of a disable-interrupts
// critical section since there is no interrupt to disable on a hosted
// target).
type RealtimeState struct {
	execState uint32
	alarm     uint32
	override  uint32
}

// SetFlag ORs bits into rt_exec_state. Safe to call from any goroutine.
func (r *RealtimeState) SetFlag(f ExecFlag) {
	for {
		old := atomic.LoadUint32(&r.execState)
		if atomic.CompareAndSwapUint32(&r.execState, old, old|uint32(f)) {
			return
		}
	}
}

// ClearFlag clears bits in rt_exec_state. Only the protocol loop's
// realtime handler calls this.
func (r *RealtimeState) ClearFlag(f ExecFlag) {
	for {
		old := atomic.LoadUint32(&r.execState)
		if atomic.CompareAndSwapUint32(&r.execState, old, old&^uint32(f)) {
			return
		}
	}
}

// TestAndClear reports whether f was set, clearing it atomically.
// This is the primitive the protocol loop uses so a flag set between
// the test and the clear is never silently dropped.
func (r *RealtimeState) TestAndClear(f ExecFlag) bool {
	for {
		old := atomic.LoadUint32(&r.execState)
		if old&uint32(f) == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&r.execState, old, old&^uint32(f)) {
			return true
		}
	}
}

// Flags returns the current rt_exec_state snapshot.
func (r *RealtimeState) Flags() ExecFlag {
	return ExecFlag(atomic.LoadUint32(&r.execState))
}

// SetAlarm stores the outstanding alarm code; the most recent call
// wins, matching grbl's single-slot rt_exec_alarm.
func (r *RealtimeState) SetAlarm(a AlarmCode) {
	atomic.StoreUint32(&r.alarm, uint32(a))
}

// Alarm returns and clears the outstanding alarm code.
func (r *RealtimeState) Alarm() AlarmCode {
	return AlarmCode(atomic.SwapUint32(&r.alarm, uint32(AlarmNone)))
}

// RequestOverride queues an override-change request for the protocol
// loop to apply.
func (r *RealtimeState) RequestOverride(o OverrideRequest) {
	atomic.StoreUint32(&r.override, uint32(o))
}

// TakeOverride returns and clears the pending override request.
func (r *RealtimeState) TakeOverride() OverrideRequest {
	return OverrideRequest(atomic.SwapUint32(&r.override, uint32(OverrideNone)))
}
