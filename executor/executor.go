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

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/gnc-motion/internal/debug"
)

// Line is one unit of work submitted to the protocol loop: either a
// G-code/$-command line, or a jog line (spec.md §6's `$J=` prefix).
type Line struct {
	Text  string
	IsJog bool
}

// MotionControl is the subset of machine operations the protocol loop
// drives in response to realtime events and state transitions. The
// machine package implements it; executor never reaches into planner
// or stepper internals directly (spec.md §9's "encapsulate in an
// owning Machine value").
type MotionControl interface {
	// Execute runs a non-jog line through the parser/planner pipeline,
	// returning a response string for the transport layer.
	Execute(line string) string
	// BeginJog admits a jog line as a one-shot block (spec.md §4.5:
	// "Admit jog as a one-shot block bypassing modal state").
	BeginJog(line string) string
	// FeedHold issues deceleration to zero via step control.
	FeedHold()
	// CycleResume re-plans the active block from rest and resumes.
	CycleResume()
	// Abort flushes the planner and segment rings, resets the parser,
	// and reports whether motion was active (so the caller can decide
	// whether to enter Alarm).
	Abort() (wasMoving bool)
	// JogCancelDecel decelerates the jog move to zero, then flushes.
	JogCancelDecel()
	// StatusReport returns a `<...>` framed status line.
	StatusReport() string
	// ApplyOverride applies a feed/rapid override change requested by a
	// realtime byte (spec.md §6's 0x90-0x97 range).
	ApplyOverride(o OverrideRequest)
}

// Executor owns the real-time flag/alarm/override words, the dwell
// scheduler, and the run-state machine, and drives MotionControl from
// a goroutine loop shaped after the teacher's emu/core.Start: a
// cooperative for-select over a done channel and an inbound work
// channel (spec.md §5's "single cooperative task" foreground model,
// translated into a dedicated goroutine since Go has no single global
// main loop to piggy-back on).
type Executor struct {
	Realtime RealtimeState

	wg      sync.WaitGroup
	done    chan struct{}
	lines   chan lineRequest
	mc      MotionControl
	sched   Scheduler

	mu    sync.Mutex
	state State
}

type lineRequest struct {
	line Line
	resp chan string
}

// New returns an Executor in Idle state driving mc.
func New(mc MotionControl) *Executor {
	return &Executor{
		done:  make(chan struct{}),
		lines: make(chan lineRequest),
		mc:    mc,
		state: Idle,
	}
}

// State returns the current run state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	if prev != s {
		debug.Tracef("executor", debug.Executor, "state %s -> %s", prev, s)
	}
}

// Submit hands a line to the protocol loop and blocks for its
// response, the way a synchronous serial command/response exchange
// behaves from the caller's side.
func (e *Executor) Submit(line Line) string {
	resp := make(chan string, 1)
	select {
	case e.lines <- lineRequest{line: line, resp: resp}:
	case <-e.done:
		return "error:shutdown"
	}
	select {
	case r := <-resp:
		return r
	case <-e.done:
		return "error:shutdown"
	}
}

// Run is the protocol loop: it alternates between servicing realtime
// flags and executing the next queued line, exactly the two things
// spec.md §4.5 says happen "between line reads." Call it in its own
// goroutine; Stop ends it.
func (e *Executor) Run() {
	e.wg.Add(1)
	defer e.wg.Done()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()

	for {
		e.serviceRealtime()

		select {
		case <-e.done:
			slog.Info("executor stopped")
			return
		case req := <-e.lines:
			req.resp <- e.handleLine(req.line)
		case now := <-ticker.C:
			e.sched.Advance(now.Sub(last))
			last = now
		default:
		}
	}
}

// Stop ends the protocol loop, waiting briefly for it to drain.
func (e *Executor) Stop() {
	close(e.done)
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for executor to stop")
	}
}

// serviceRealtime implements spec.md §4.5's transition table by
// draining whichever realtime flags are set, highest priority first:
// reset preempts everything, then alarm, then hold/resume/jog-cancel.
func (e *Executor) serviceRealtime() {
	if e.Realtime.TestAndClear(ExecReset) {
		e.handleReset()
		return
	}
	if a := e.Realtime.Alarm(); a != AlarmNone {
		e.handleAlarm(a)
		return
	}

	state := e.State()
	switch state {
	case Cycle:
		if e.Realtime.TestAndClear(ExecFeedHold) {
			e.mc.FeedHold()
			e.transition(EventFeedHold)
		}
	case Hold:
		if e.Realtime.TestAndClear(ExecCycleStart) {
			e.mc.CycleResume()
			e.transition(EventCycleStart)
		}
	case Jog:
		if e.Realtime.TestAndClear(ExecJogCancel) {
			e.mc.JogCancelDecel()
			e.transition(EventJogCancel)
		}
	default:
		// Clear stray cycle-start/feed-hold bytes outside a run: grbl
		// treats them as no-ops rather than queuing them.
		e.Realtime.ClearFlag(ExecCycleStart | ExecFeedHold)
	}

	if e.Realtime.TestAndClear(ExecStatusReport) {
		_ = e.mc.StatusReport()
	}

	if o := e.Realtime.TakeOverride(); o != OverrideNone {
		e.mc.ApplyOverride(o)
	}
}

func (e *Executor) handleReset() {
	wasMoving := e.mc.Abort()
	e.sched = Scheduler{}
	if wasMoving {
		e.Realtime.SetAlarm(AlarmAbortCycle)
		e.setState(Alarm)
		return
	}
	e.setState(Idle)
}

func (e *Executor) handleAlarm(code AlarmCode) {
	e.mc.Abort()
	slog.Error("alarm", "code", code)
	e.setState(Alarm)
}

// transition applies ev to the current state if legal, logging a
// warning (not a panic) if the caller raced a state change.
func (e *Executor) transition(ev Event) {
	e.mu.Lock()
	to, ok := Apply(e.state, ev)
	if ok {
		e.state = to
	}
	e.mu.Unlock()
	if !ok {
		slog.Warn("executor: illegal transition", "event", ev)
	}
}

// handleLine executes one queued line against the current state,
// refusing motion lines while alarmed (spec.md §7: "only $-settings
// access permitted" in Alarm).
func (e *Executor) handleLine(line Line) string {
	state := e.State()
	if state == Alarm && !isSettingsLine(line.Text) {
		return "ALARM:1"
	}

	if line.IsJog {
		if state != Idle {
			return "error:jog requires idle"
		}
		e.setState(Jog)
		resp := e.mc.BeginJog(line.Text)
		return resp
	}

	return e.mc.Execute(line.Text)
}

// DwellAfter schedules cb to run after d on the scheduler that Run
// advances. G4 dwell blocks do not go through it: the machine package
// waits out a dwell itself.
func (e *Executor) DwellAfter(d time.Duration, tag int, cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.Add(d, tag, 0, cb)
}

func isSettingsLine(text string) bool {
	return len(text) > 0 && text[0] == '$'
}

// NotifyCycleStart lets machine tell the executor a block was
// enqueued while Idle, entering Cycle (spec.md §4.5's Idle transition
// is driven by the planner gaining work, not by a realtime byte).
func (e *Executor) NotifyCycleStart() {
	if e.State() == Idle {
		e.transition(EventCycleStart)
	}
}

// NotifyCycleComplete lets machine tell the executor the planner and
// segment rings have drained, returning to Idle.
func (e *Executor) NotifyCycleComplete() {
	if e.State() == Cycle {
		e.transition(EventCycleComplete)
	}
}

// NotifyJogCancelled lets machine report that a one-shot jog block
// finished executing on its own (no explicit cancel byte arrived).
func (e *Executor) NotifyJogCancelled() {
	if e.State() == Jog {
		e.transition(EventJogCancel)
	}
}

// ClearAlarm implements `$X`: the only recovery from Alarm besides
// reset (spec.md §7).
func (e *Executor) ClearAlarm() {
	e.transition(EventAlarmClear)
}

// ToggleCheckMode implements `$C` (spec.md §6).
func (e *Executor) ToggleCheckMode() {
	e.transition(EventCheckModeToggle)
}
