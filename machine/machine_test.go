package machine

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
	"strings"
	"testing"

	"github.com/rcornwell/gnc-motion/executor"
	"github.com/rcornwell/gnc-motion/gcode"
	"github.com/rcornwell/gnc-motion/nvs"
)

func newTestMachine() *Machine {
	return New(nvs.Default())
}

func TestExecuteParsesAndEnqueuesMotion(t *testing.T) {
	m := newTestMachine()
	if resp := m.Execute("G1 X10 F100"); resp != "ok" {
		t.Fatalf("Execute = %q, want ok", resp)
	}
	if m.Planner.Empty() && m.Ring.Len() == 0 {
		t.Fatalf("expected motion to reach the planner or segment ring")
	}
}

func TestCheckModeSkipsEnqueue(t *testing.T) {
	m := newTestMachine()
	if resp := m.dollarCommand("$C"); resp != "ok" {
		t.Fatalf("$C = %q, want ok", resp)
	}
	if resp := m.Execute("G1 X10 F100"); resp != "ok" {
		t.Fatalf("Execute in check mode = %q, want ok", resp)
	}
	if !m.Planner.Empty() || m.Ring.Len() != 0 {
		t.Fatalf("check mode should not enqueue motion")
	}
}

func TestParseErrorDoesNotEnqueue(t *testing.T) {
	m := newTestMachine()
	resp := m.Execute("G1 X")
	if !strings.HasPrefix(resp, "error:") {
		t.Fatalf("Execute with bad word value = %q, want error:*", resp)
	}
	if !m.Planner.Empty() {
		t.Fatalf("a parse error must not reach the planner")
	}
}

func TestDollarSettingsDumpEndsOK(t *testing.T) {
	m := newTestMachine()
	resp := m.dollarCommand("$$")
	if !strings.HasSuffix(resp, "ok") {
		t.Fatalf("$$ dump = %q, want trailing ok", resp)
	}
	if !strings.Contains(resp, "$0=") {
		t.Fatalf("$$ dump missing setting 0: %q", resp)
	}
}

func TestAbortFlushesBothRings(t *testing.T) {
	m := newTestMachine()
	m.Execute("G1 X10 Y10 F200")
	wasMoving := m.Abort()
	if !wasMoving {
		t.Fatalf("Abort reported no motion in flight, want true")
	}
	if !m.Planner.Empty() || m.Ring.Len() != 0 {
		t.Fatalf("Abort left queued motion behind")
	}
}

func TestAbortWhenIdleReportsNotMoving(t *testing.T) {
	m := newTestMachine()
	if wasMoving := m.Abort(); wasMoving {
		t.Fatalf("Abort on an idle machine reported motion")
	}
}

func TestHomeRequiresHomingEnabled(t *testing.T) {
	m := newTestMachine()
	if err := m.Home(); err != gcode.ErrHomingNotEnabled {
		t.Fatalf("Home() with homing disabled = %v, want ErrHomingNotEnabled", err)
	}
}

func TestHomeCommandSurfacesTheSameError(t *testing.T) {
	m := newTestMachine()
	if resp := m.homeCommand(); resp != gcode.ErrHomingNotEnabled.Error() {
		t.Fatalf("$H = %q, want %q", resp, gcode.ErrHomingNotEnabled.Error())
	}
}

func TestStatusReportIncludesStateAndPosition(t *testing.T) {
	m := newTestMachine()
	resp := m.StatusReport()
	if !strings.HasPrefix(resp, "<") || !strings.HasSuffix(resp, ">") {
		t.Fatalf("StatusReport = %q, want <...> framing", resp)
	}
	if !strings.Contains(resp, "MPos:") {
		t.Fatalf("StatusReport missing MPos: %q", resp)
	}
}

func TestWriteSettingPersistsValue(t *testing.T) {
	m := newTestMachine()
	if resp := m.writeSetting("$0=42"); resp != "ok" {
		t.Fatalf("$0=42 = %q, want ok", resp)
	}
	if v, _ := m.Store.Get(0); v != 42 {
		t.Fatalf("setting 0 = %v, want 42", v)
	}
}

func TestApplyOverrideClampsFeedPercent(t *testing.T) {
	m := newTestMachine()
	for i := 0; i < 25; i++ {
		m.ApplyOverride(executor.OverrideFeedCoarsePlus)
	}
	if m.feedOverridePct != 200 {
		t.Fatalf("feedOverridePct = %v, want clamped to 200", m.feedOverridePct)
	}
	m.ApplyOverride(executor.OverrideFeedReset)
	if m.feedOverridePct != 100 {
		t.Fatalf("feedOverridePct after reset = %v, want 100", m.feedOverridePct)
	}
}

func TestFeedHoldAndResumeDoNotPanic(t *testing.T) {
	m := newTestMachine()
	m.Execute("G1 X10 F100")
	m.FeedHold()
	m.CycleResume()
}
