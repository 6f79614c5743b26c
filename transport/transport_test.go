package transport

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
	"testing"

	"github.com/rcornwell/gnc-motion/executor"
)

type nopMotion struct{}

func (nopMotion) Execute(line string) string             { return "ok" }
func (nopMotion) BeginJog(line string) string             { return "ok" }
func (nopMotion) FeedHold()                               {}
func (nopMotion) CycleResume()                            {}
func (nopMotion) Abort() bool                             { return false }
func (nopMotion) JogCancelDecel()                         {}
func (nopMotion) StatusReport() string                    { return "<Idle>" }
func (nopMotion) ApplyOverride(o executor.OverrideRequest) {}

func TestAssemblerSplitsLinesOnNewline(t *testing.T) {
	a := NewAssembler(executor.New(nopMotion{}))
	lines := a.Feed([]byte("G1 X10\r\nG1 Y10\n"))
	if len(lines) != 2 || lines[0] != "G1 X10" || lines[1] != "G1 Y10" {
		t.Fatalf("lines = %v, want [G1 X10, G1 Y10]", lines)
	}
}

func TestAssemblerDropsEmptyLines(t *testing.T) {
	a := NewAssembler(executor.New(nopMotion{}))
	lines := a.Feed([]byte("\n\nG1 X1\n"))
	if len(lines) != 1 || lines[0] != "G1 X1" {
		t.Fatalf("lines = %v, want [G1 X1]", lines)
	}
}

func TestAssemblerExtractsRealtimeBytesInlineWithoutBreakingTheLine(t *testing.T) {
	ex := executor.New(nopMotion{})
	a := NewAssembler(ex)
	lines := a.Feed([]byte("G1 X1" + string(rune(ByteStatusReport)) + "0\n"))
	if len(lines) != 1 || lines[0] != "G1 X10" {
		t.Fatalf("lines = %v, want [G1 X10] with the status byte stripped out", lines)
	}
	if ex.Realtime.Flags()&executor.ExecStatusReport == 0 {
		t.Fatalf("status report flag was not set")
	}
}

func TestAssemblerSoftResetSetsResetFlag(t *testing.T) {
	ex := executor.New(nopMotion{})
	a := NewAssembler(ex)
	a.Feed([]byte{ByteSoftReset})
	if !ex.Realtime.TestAndClear(executor.ExecReset) {
		t.Fatalf("reset flag was not set by 0x18")
	}
}

func TestAssemblerFeedOverrideByteQueuesRequest(t *testing.T) {
	ex := executor.New(nopMotion{})
	a := NewAssembler(ex)
	a.Feed([]byte{ByteFeedOverrideCoarsePlus})
	if got := ex.Realtime.TakeOverride(); got != executor.OverrideFeedCoarsePlus {
		t.Fatalf("override = %v, want OverrideFeedCoarsePlus", got)
	}
}

func TestClassifyLineRecognisesJogPrefix(t *testing.T) {
	l := ClassifyLine("$J=G91X5F100")
	if !l.IsJog {
		t.Fatalf("expected $J= line to be classified as jog")
	}
	l = ClassifyLine("G1 X5")
	if l.IsJog {
		t.Fatalf("ordinary motion line misclassified as jog")
	}
}
