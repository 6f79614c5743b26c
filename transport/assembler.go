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
	"strings"

	"github.com/rcornwell/gnc-motion/executor"
	"github.com/rcornwell/gnc-motion/gcode"
)

// Realtime command bytes (spec.md §6's table), never buffered and
// never passed to the parser.
const (
	ByteSoftReset     byte = 0x18
	ByteStatusReport  byte = '?'
	ByteCycleStart    byte = '~'
	ByteFeedHold      byte = '!'
	ByteJogCancel     byte = 0x85
	ByteFeedOverrideReset       byte = 0x90
	ByteFeedOverrideCoarsePlus  byte = 0x91
	ByteFeedOverrideCoarseMinus byte = 0x92
	ByteFeedOverrideFinePlus    byte = 0x93
	ByteFeedOverrideFineMinus   byte = 0x94
	ByteRapidOverrideFull       byte = 0x95
	ByteRapidOverrideHalf       byte = 0x96
	ByteRapidOverrideQuarter    byte = 0x97
)

// Assembler turns a raw byte stream into complete lines, extracting
// realtime bytes inline exactly as spec.md §5 describes Serial RX
// doing "in the interrupt": a realtime byte never reaches the line
// buffer, so it can preempt whatever line is mid-assembly.
type Assembler struct {
	ex  *executor.Executor
	buf []byte
}

// NewAssembler returns an Assembler that applies realtime bytes
// directly to ex's RealtimeState.
func NewAssembler(ex *executor.Executor) *Assembler {
	return &Assembler{ex: ex}
}

// Feed processes newly read bytes and returns any lines it completed.
// A '\n' terminates a line and carriage returns at the end of the line
// are trimmed (a '\r' elsewhere is kept and does not end a line); an
// empty line is discarded rather than submitted (matching grbl's
// "blank line" handling).
func (a *Assembler) Feed(data []byte) []string {
	var lines []string
	for _, b := range data {
		if a.dispatchRealtime(b) {
			continue
		}
		switch b {
		case '\n':
			if line := strings.TrimRight(string(a.buf), "\r"); line != "" {
				lines = append(lines, line)
			}
			a.buf = a.buf[:0]
		default:
			a.buf = append(a.buf, b)
		}
	}
	return lines
}

// IsRealtimeByte reports whether b is one of spec.md §6's realtime
// command bytes, for callers (like console) that need to recognise one
// outside of an Assembler's streaming Feed.
func IsRealtimeByte(b byte) bool {
	switch b {
	case ByteSoftReset, ByteStatusReport, ByteCycleStart, ByteFeedHold, ByteJogCancel,
		ByteFeedOverrideReset, ByteFeedOverrideCoarsePlus, ByteFeedOverrideCoarseMinus,
		ByteFeedOverrideFinePlus, ByteFeedOverrideFineMinus,
		ByteRapidOverrideFull, ByteRapidOverrideHalf, ByteRapidOverrideQuarter:
		return true
	default:
		return false
	}
}

// dispatchRealtime applies b to the executor's realtime state and
// reports whether b was a realtime byte.
func (a *Assembler) dispatchRealtime(b byte) bool {
	switch b {
	case ByteSoftReset:
		a.ex.Realtime.SetFlag(executor.ExecReset)
	case ByteStatusReport:
		a.ex.Realtime.SetFlag(executor.ExecStatusReport)
	case ByteCycleStart:
		a.ex.Realtime.SetFlag(executor.ExecCycleStart)
	case ByteFeedHold:
		a.ex.Realtime.SetFlag(executor.ExecFeedHold)
	case ByteJogCancel:
		a.ex.Realtime.SetFlag(executor.ExecJogCancel)
	case ByteFeedOverrideReset:
		a.ex.Realtime.RequestOverride(executor.OverrideFeedReset)
	case ByteFeedOverrideCoarsePlus:
		a.ex.Realtime.RequestOverride(executor.OverrideFeedCoarsePlus)
	case ByteFeedOverrideCoarseMinus:
		a.ex.Realtime.RequestOverride(executor.OverrideFeedCoarseMinus)
	case ByteFeedOverrideFinePlus:
		a.ex.Realtime.RequestOverride(executor.OverrideFeedFinePlus)
	case ByteFeedOverrideFineMinus:
		a.ex.Realtime.RequestOverride(executor.OverrideFeedFineMinus)
	case ByteRapidOverrideFull:
		a.ex.Realtime.RequestOverride(executor.OverrideRapidFull)
	case ByteRapidOverrideHalf:
		a.ex.Realtime.RequestOverride(executor.OverrideRapidHalf)
	case ByteRapidOverrideQuarter:
		a.ex.Realtime.RequestOverride(executor.OverrideRapidQuarter)
	default:
		return false
	}
	return true
}

// ClassifyLine wraps a completed line as an executor.Line, recognising
// the `$J=` jog prefix (spec.md §6).
func ClassifyLine(text string) executor.Line {
	return executor.Line{
		Text:  text,
		IsJog: strings.HasPrefix(strings.ToUpper(text), gcode.JogPrefix),
	}
}
