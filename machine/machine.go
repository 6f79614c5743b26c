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

// Package machine implements the owning value spec.md §9 calls for:
// "encapsulate in an owning Machine value" wiring gc_state, the
// planner and segment rings, and the settings store. It is the one
// place that reaches across the gcode/planner/stepper/executor
// package boundaries, translating parser directives into planner
// lines and exposing the executor.MotionControl surface those
// packages otherwise never see concrete implementations of.
package machine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rcornwell/gnc-motion/executor"
	"github.com/rcornwell/gnc-motion/gcode"
	"github.com/rcornwell/gnc-motion/nvs"
	"github.com/rcornwell/gnc-motion/planner"
	"github.com/rcornwell/gnc-motion/stepper"
)

// Machine is sys_position + gc_state + the two rings, bundled into one
// value per spec.md §9's design note.
type Machine struct {
	mu sync.Mutex

	Store    *nvs.Store
	gcState  *gcode.State
	Planner  *planner.Planner
	Ring     *stepper.SegmentRing
	Prep     *stepper.Prep
	ISR      *stepper.ISR
	Executor *executor.Executor

	checkMode bool
	jogActive bool

	// feedOverridePct and rapidOverridePct are the live percentages
	// applied to every enqueued line's feed rate (spec.md §6's 0x90-0x97
	// realtime override bytes). grbl clamps feed override to [10,200]
	// in steps of 1/10; rapid override is one of three fixed levels.
	feedOverridePct  float64
	rapidOverridePct float64

	// sysPosition is the ISR-side authoritative step-accurate position,
	// updated from Pulse callbacks; it is the cross-thread boundary
	// spec.md §9 calls out as needing "interior mutability only at the
	// documented ISR-crossing boundary."
	sysPosition [stepper.AxisCount]int64
}

// New wires a Machine around store: a fresh parser state, an 8-block
// planner ring, a segment ring, the prep/ISR pair, and an Executor
// bound back to this Machine's MotionControl implementation.
func New(store *nvs.Store) *Machine {
	m := &Machine{
		Store:            store,
		gcState:          gcode.NewState(),
		Planner:          planner.New(8, store),
		Ring:             stepper.NewSegmentRing(),
		feedOverridePct:  100,
		rapidOverridePct: 100,
	}
	m.Prep = stepper.NewPrep(m.Planner, m.Ring)
	m.ISR = stepper.NewISR(m.Ring, m.Prep, m.onPulse)
	m.Executor = executor.New(m)
	return m
}

// onPulse is the only place ISR-goroutine state (sysPosition) is
// written; Position() reads it back under the same mutex.
func (m *Machine) onPulse(p stepper.Pulse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for a := 0; a < stepper.AxisCount; a++ {
		if p.StepBits&(1<<uint(a)) == 0 {
			continue
		}
		if p.DirectionBits&(1<<uint(a)) != 0 {
			m.sysPosition[a]--
		} else {
			m.sysPosition[a]++
		}
	}
	if m.Planner.Empty() && m.Ring.Len() == 0 {
		m.Executor.NotifyCycleComplete()
		if m.jogActive {
			m.jogActive = false
			m.Executor.NotifyJogCancelled()
		}
	}
}

// Position returns the ISR's step-accurate machine position in mm.
func (m *Machine) Position() [stepper.AxisCount]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pos [stepper.AxisCount]float64
	for a := 0; a < stepper.AxisCount; a++ {
		steps := m.Store.StepsPerMM(a)
		if steps == 0 {
			continue
		}
		pos[a] = float64(m.sysPosition[a]) / steps
	}
	return pos
}

// Execute implements executor.MotionControl: run line through the
// settings-command dispatcher or the G-code parser, translating any
// resulting directives into planner lines.
func (m *Machine) Execute(line string) string {
	norm := gcode.Normalize(line)
	if len(norm) > 0 && norm[0] == '$' {
		return m.dollarCommand(norm)
	}

	result := gcode.Parse(norm, m.gcState, m.Store)
	if result.Status != gcode.OK {
		return fmt.Sprintf("error:%d", int(result.Status))
	}
	if m.checkMode {
		return "ok"
	}
	if err := m.enqueueDirectives(result.Directives, false); err != nil {
		return m.motionEnqueueError(err)
	}
	if result.DwellSeconds > 0 {
		m.dwell(result.DwellSeconds)
	}
	return "ok"
}

// BeginJog implements executor.MotionControl for `$J=` lines: admitted
// through gcode.ParseJog, enqueued the same way, but never committed
// to modal state (spec.md §4.1, §4.5).
func (m *Machine) BeginJog(line string) string {
	result := gcode.ParseJog(line, m.gcState, m.Store)
	if result.Status != gcode.OK {
		return fmt.Sprintf("error:%d", int(result.Status))
	}
	if err := m.enqueueDirectives(result.Directives, true); err != nil {
		return m.motionEnqueueError(err)
	}
	m.mu.Lock()
	m.jogActive = len(result.Directives) > 0
	m.mu.Unlock()
	return "ok"
}

func (m *Machine) enqueueDirectives(dirs []gcode.Directive, jog bool) error {
	m.mu.Lock()
	feedPct, rapidPct := m.feedOverridePct, m.rapidOverridePct
	m.mu.Unlock()

	for _, d := range dirs {
		cond := conditionFromGCode(d.Condition)
		feed := d.FeedRate
		if cond&planner.CondRapid != 0 {
			feed *= rapidPct / 100
		} else {
			feed *= feedPct / 100
		}
		line := planner.Line{
			Target:     d.Target,
			FeedRate:   feed,
			Condition:  cond,
			LineNumber: d.LineNumber,
		}
		for {
			ok, err := m.Planner.Enqueue(line)
			if err == planner.ErrRingFull {
				m.Planner.WaitForSpace()
				continue
			}
			if err != nil {
				return err
			}
			_ = ok
			break
		}
	}
	if len(dirs) > 0 {
		m.Executor.NotifyCycleStart()
	}
	m.Prep.Fill()
	return nil
}

// motionEnqueueError maps a planner-side Enqueue failure onto the
// line's response: a soft-limit violation raises the alarm (spec.md
// §7: alarms cause the executor to enter Alarm), anything else is an
// ordinary per-line error.
func (m *Machine) motionEnqueueError(err error) string {
	if err == planner.ErrSoftLimit {
		m.Executor.Realtime.SetAlarm(executor.AlarmSoftLimit)
		return gcode.AlarmSoftLimit.Error()
	}
	return fmt.Sprintf("error:%d", int(gcode.ErrStatementOverflow))
}

// ApplyOverride implements executor.MotionControl: updates the live
// feed/rapid override percentage applied to lines enqueued from here
// on (spec.md §6's realtime override bytes). Already-queued blocks are
// unaffected, matching grbl's "overrides change the target speed of
// future planning, not blocks already committed."
func (m *Machine) ApplyOverride(o executor.OverrideRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch o {
	case executor.OverrideFeedReset:
		m.feedOverridePct = 100
	case executor.OverrideFeedCoarsePlus:
		m.feedOverridePct += 10
	case executor.OverrideFeedCoarseMinus:
		m.feedOverridePct -= 10
	case executor.OverrideFeedFinePlus:
		m.feedOverridePct++
	case executor.OverrideFeedFineMinus:
		m.feedOverridePct--
	case executor.OverrideRapidFull:
		m.rapidOverridePct = 100
	case executor.OverrideRapidHalf:
		m.rapidOverridePct = 50
	case executor.OverrideRapidQuarter:
		m.rapidOverridePct = 25
	}
	if m.feedOverridePct < 10 {
		m.feedOverridePct = 10
	}
	if m.feedOverridePct > 200 {
		m.feedOverridePct = 200
	}
}

func conditionFromGCode(c gcode.BlockCondition) planner.Condition {
	var out planner.Condition
	if c&gcode.CondRapid != 0 {
		out |= planner.CondRapid
	}
	if c&gcode.CondInverseTime != 0 {
		out |= planner.CondInverseTime
	}
	if c&gcode.CondSystemMotion != 0 {
		out |= planner.CondSystemMotion
	}
	return out
}

// FeedHold implements executor.MotionControl: stop admitting new
// blocks to the stepper, letting the block already loaded decelerate
// to rest at its own end (spec.md §4.5's Hold row; see DESIGN.md for
// why this rewrite's planner always plans a to-rest exit rather than
// continuous multi-block feed, which makes a hold-point a block
// boundary rather than an arbitrary mid-block point).
func (m *Machine) FeedHold() {
	m.Prep.Hold(true)
}

// CycleResume implements executor.MotionControl.
func (m *Machine) CycleResume() {
	m.Prep.Hold(false)
	m.Prep.Fill()
}

// Abort implements executor.MotionControl: flush both rings, reset
// the parser, and resync planner/parser position to the ISR's
// step-accurate position (spec.md §5's Cancellation: "Reset is
// immediate").
func (m *Machine) Abort() bool {
	wasMoving := !m.Planner.Empty() || m.Ring.Len() > 0
	m.Planner.Flush()
	m.Ring.Flush()
	m.Prep.Hold(false)
	pos := m.Position()
	m.Planner.SetPosition(pos)
	m.gcState.Position = pos
	m.gcState.Reset()
	m.mu.Lock()
	m.jogActive = false
	m.mu.Unlock()
	return wasMoving
}

// JogCancelDecel implements executor.MotionControl: spec.md §5 calls
// for a graceful decel then flush; since this rewrite's planner
// already plans every block (jog blocks included) to decelerate to
// rest at its own end, "cancel" only needs to stop admitting further
// jog segments and let the in-flight one finish, then flush (see
// DESIGN.md).
func (m *Machine) JogCancelDecel() {
	m.Prep.Hold(true)
	m.Planner.WaitForEmpty()
	m.Abort()
}

// StatusReport implements executor.MotionControl: a `<...>`-framed
// line carrying state, machine position, and feed rate (spec.md §6).
func (m *Machine) StatusReport() string {
	pos := m.Position()
	return fmt.Sprintf("<%s|MPos:%.3f,%.3f,%.3f|FS:%.0f,0>",
		m.Executor.State(), pos[0], pos[1], pos[2], m.gcState.FeedRate)
}

// dwell blocks the protocol loop for seconds, polling the reset flag
// in small increments so a soft reset mid-dwell is noticed promptly
// instead of only after the full interval elapses (spec.md §5's
// "checkpoint" requirement for long-running main-loop operations).
func (m *Machine) dwell(seconds float64) {
	const pollInterval = 10 * time.Millisecond
	remaining := time.Duration(seconds * float64(time.Second))
	for remaining > 0 {
		if m.Executor.Realtime.Flags()&executor.ExecReset != 0 {
			return
		}
		step := pollInterval
		if step > remaining {
			step = remaining
		}
		time.Sleep(step)
		remaining -= step
	}
}
