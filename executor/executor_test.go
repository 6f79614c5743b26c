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
	"sync"
	"testing"
	"time"
)

type fakeMotion struct {
	mu         sync.Mutex
	executed   []string
	holds      int
	resumes    int
	aborts       int
	jogCancels   int
	wasMoving    bool
	lastOverride OverrideRequest
}

func (f *fakeMotion) Execute(line string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, line)
	return "ok"
}
func (f *fakeMotion) BeginJog(line string) string { return "ok" }
func (f *fakeMotion) FeedHold()                   { f.holds++ }
func (f *fakeMotion) CycleResume()                { f.resumes++ }
func (f *fakeMotion) Abort() bool                 { f.aborts++; return f.wasMoving }
func (f *fakeMotion) JogCancelDecel()             { f.jogCancels++ }
func (f *fakeMotion) StatusReport() string        { return "<Idle>" }
func (f *fakeMotion) ApplyOverride(o OverrideRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOverride = o
}

func TestStateMachineLegalAndIllegalTransitions(t *testing.T) {
	to, ok := Apply(Idle, EventCycleStart)
	if !ok || to != Cycle {
		t.Fatalf("Idle+CycleStart = (%v,%v), want (Cycle,true)", to, ok)
	}
	if _, ok := Apply(Idle, EventCycleComplete); ok {
		t.Fatalf("Idle+CycleComplete should be illegal")
	}
	to, ok = Apply(Hold, EventCycleStart)
	if !ok || to != Cycle {
		t.Fatalf("Hold+CycleStart = (%v,%v), want (Cycle,true)", to, ok)
	}
}

func TestFeedHoldThenCycleStartSequence(t *testing.T) {
	mc := &fakeMotion{}
	ex := New(mc)
	ex.setState(Cycle)

	ex.Realtime.SetFlag(ExecFeedHold)
	ex.serviceRealtime()
	if ex.State() != Hold {
		t.Fatalf("state after feed hold = %v, want Hold", ex.State())
	}
	if mc.holds != 1 {
		t.Fatalf("FeedHold called %d times, want 1", mc.holds)
	}

	ex.Realtime.SetFlag(ExecCycleStart)
	ex.serviceRealtime()
	if ex.State() != Cycle {
		t.Fatalf("state after cycle start = %v, want Cycle", ex.State())
	}
	if mc.resumes != 1 {
		t.Fatalf("CycleResume called %d times, want 1", mc.resumes)
	}
}

func TestResetFromCycleEntersAlarmWhenMoving(t *testing.T) {
	mc := &fakeMotion{wasMoving: true}
	ex := New(mc)
	ex.setState(Cycle)

	ex.Realtime.SetFlag(ExecReset)
	ex.serviceRealtime()

	if ex.State() != Alarm {
		t.Fatalf("state after reset-while-moving = %v, want Alarm", ex.State())
	}
	if mc.aborts != 1 {
		t.Fatalf("Abort called %d times, want 1", mc.aborts)
	}
}

func TestResetWhenIdleReturnsToIdle(t *testing.T) {
	mc := &fakeMotion{wasMoving: false}
	ex := New(mc)
	ex.Realtime.SetFlag(ExecReset)
	ex.serviceRealtime()
	if ex.State() != Idle {
		t.Fatalf("state after idle reset = %v, want Idle", ex.State())
	}
}

func TestAlarmLineRejectedUnlessSettings(t *testing.T) {
	mc := &fakeMotion{}
	ex := New(mc)
	ex.setState(Alarm)

	if resp := ex.handleLine(Line{Text: "G1 X1"}); resp != "ALARM:1" {
		t.Fatalf("motion line while alarmed = %q, want ALARM:1", resp)
	}
	if resp := ex.handleLine(Line{Text: "$$"}); resp != "ok" {
		t.Fatalf("settings line while alarmed = %q, want ok", resp)
	}
}

func TestClearAlarmReturnsToIdle(t *testing.T) {
	mc := &fakeMotion{}
	ex := New(mc)
	ex.setState(Alarm)
	ex.ClearAlarm()
	if ex.State() != Idle {
		t.Fatalf("state after ClearAlarm = %v, want Idle", ex.State())
	}
}

func TestSchedulerFiresInOrder(t *testing.T) {
	var s Scheduler
	var fired []int
	s.Add(30*time.Millisecond, 1, 1, func(arg int) { fired = append(fired, arg) })
	s.Add(10*time.Millisecond, 2, 2, func(arg int) { fired = append(fired, arg) })

	s.Advance(15 * time.Millisecond)
	if len(fired) != 1 || fired[0] != 2 {
		t.Fatalf("after 15ms fired=%v, want [2]", fired)
	}
	s.Advance(20 * time.Millisecond)
	if len(fired) != 2 || fired[1] != 1 {
		t.Fatalf("after 35ms total fired=%v, want [2 1]", fired)
	}
}

func TestSchedulerCancelRemovesEvent(t *testing.T) {
	var s Scheduler
	fired := false
	s.Add(10*time.Millisecond, 7, 0, func(int) { fired = true })
	s.Cancel(7)
	s.Advance(20 * time.Millisecond)
	if fired {
		t.Fatalf("cancelled event fired")
	}
}

func TestJogRequiresIdle(t *testing.T) {
	mc := &fakeMotion{}
	ex := New(mc)
	ex.setState(Cycle)
	resp := ex.handleLine(Line{Text: "$J=G91G1X1F100", IsJog: true})
	if resp != "error:jog requires idle" {
		t.Fatalf("jog-while-cycle response = %q", resp)
	}
}

func TestOverrideRequestDispatchedToMotionControl(t *testing.T) {
	mc := &fakeMotion{}
	ex := New(mc)
	ex.Realtime.RequestOverride(OverrideFeedCoarsePlus)
	ex.serviceRealtime()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.lastOverride != OverrideFeedCoarsePlus {
		t.Fatalf("lastOverride = %v, want OverrideFeedCoarsePlus", mc.lastOverride)
	}
}

func TestRealtimeFlagTestAndClearIsOneShot(t *testing.T) {
	var rt RealtimeState
	rt.SetFlag(ExecFeedHold)
	if !rt.TestAndClear(ExecFeedHold) {
		t.Fatalf("expected flag to be set")
	}
	if rt.TestAndClear(ExecFeedHold) {
		t.Fatalf("flag should have been cleared by the first TestAndClear")
	}
}
