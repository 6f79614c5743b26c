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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rcornwell/gnc-motion/gcode"
)

// dollarCommand dispatches the `$`-prefixed non-realtime commands
// named in spec.md §6's prefix table. It runs on the protocol loop's
// goroutine, same as Execute, so it may freely touch m.Store and the
// parser state without extra locking.
func (m *Machine) dollarCommand(cmd string) string {
	switch {
	case cmd == "$$":
		return m.dumpSettings()
	case cmd == "$#":
		return m.dumpParameters()
	case cmd == "$G":
		return m.dumpParserState()
	case cmd == "$I":
		return m.Store.BuildInfo
	case strings.HasPrefix(cmd, "$N"):
		return m.startupLineCommand(cmd)
	case cmd == "$H":
		return m.homeCommand()
	case cmd == "$C":
		m.checkMode = !m.checkMode
		m.Executor.ToggleCheckMode()
		return "ok"
	case cmd == "$X":
		m.Executor.ClearAlarm()
		return "ok"
	case cmd == "$SLP":
		return "ok"
	case cmd == "$RST=*":
		if !m.Planner.Empty() {
			return gcode.ErrStatementOverflow.Error()
		}
		m.Store.WipeAll()
		return "ok"
	case cmd == "$RST=$":
		m.Store.RestoreDefaults()
		return "ok"
	case cmd == "$RST=#":
		m.Store.ClearParameters()
		return "ok"
	case strings.HasPrefix(cmd, "$J="):
		return m.BeginJog(cmd)
	default:
		return m.writeSetting(cmd)
	}
}

// writeSetting implements `$<n>=<v>` (spec.md §6). The non-volatile
// store cannot be written while the stepper is active (spec.md §5),
// so this forces a buffer-synchronise first.
func (m *Machine) writeSetting(cmd string) string {
	body := strings.TrimPrefix(cmd, "$")
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return gcode.ErrInvalidStatement.Error()
	}
	n, err := strconv.Atoi(body[:eq])
	if err != nil {
		return gcode.ErrBadNumberFormat.Error()
	}
	v, err := strconv.ParseFloat(body[eq+1:], 64)
	if err != nil {
		return gcode.ErrBadNumberFormat.Error()
	}
	m.Planner.WaitForEmpty()
	m.Store.Set(n, v)
	return "ok"
}

func (m *Machine) dumpSettings() string {
	var b strings.Builder
	keys := make([]int, 0, len(m.Store.Settings))
	for k := range m.Store.Settings {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "$%d=%g\n", k, m.Store.Settings[k])
	}
	b.WriteString("ok")
	return b.String()
}

// dumpParameters implements `$#`: coordinate-system offsets, G28/G30,
// G92, and tool length offset (spec.md §6's parameter report,
// supplemented per SPEC_FULL.md since the spec names the prefix but
// not its fields).
func (m *Machine) dumpParameters() string {
	var b strings.Builder
	names := []string{"G54", "G55", "G56", "G57", "G58", "G59"}
	for i, name := range names {
		c := m.Store.CoordSystems[i]
		fmt.Fprintf(&b, "[%s:%g,%g,%g]\n", name, c[0], c[1], c[2])
	}
	fmt.Fprintf(&b, "[G28:%g,%g,%g]\n", m.Store.G28[0], m.Store.G28[1], m.Store.G28[2])
	fmt.Fprintf(&b, "[G30:%g,%g,%g]\n", m.Store.G30[0], m.Store.G30[1], m.Store.G30[2])
	g92 := m.gcState.G92Offset
	fmt.Fprintf(&b, "[G92:%g,%g,%g]\n", g92[0], g92[1], g92[2])
	fmt.Fprintf(&b, "[TLO:%g]\n", m.Store.ToolLength)
	b.WriteString("ok")
	return b.String()
}

// dumpParserState implements `$G`: the active modal groups and the
// feed rate (supplemented per SPEC_FULL.md); no work offset is printed.
func (m *Machine) dumpParserState() string {
	mm := m.gcState.Modal
	units := "G21"
	if mm.Units == gcode.UnitsInches {
		units = "G20"
	}
	dist := "G90"
	if mm.Distance == gcode.DistanceIncremental {
		dist = "G91"
	}
	feed := "G94"
	if mm.FeedRateMode == gcode.FeedRateInverseTime {
		feed = "G93"
	}
	return fmt.Sprintf("[GC:G%d %s %s %s G%d F%g]\nok",
		motionGCode(mm.Motion), units, dist, feed, 53+mm.CoordSystem, m.gcState.FeedRate)
}

func motionGCode(mm gcode.MotionMode) int {
	switch mm {
	case gcode.MotionSeek:
		return 0
	case gcode.MotionCWArc:
		return 2
	case gcode.MotionCCWArc:
		return 3
	default:
		return 1
	}
}

// startupLineCommand implements `$N` (dump) and `$N0=<line>` /
// `$N1=<line>` (store), per the grbl convention supplemented in
// SPEC_FULL.md: two startup-line slots, run in order by RunStartupLines.
func (m *Machine) startupLineCommand(cmd string) string {
	body := strings.TrimPrefix(cmd, "$N")
	if body == "" {
		return fmt.Sprintf("$N0=%s\n$N1=%s\nok", m.Store.StartupLines[0], m.Store.StartupLines[1])
	}
	eq := strings.IndexByte(body, '=')
	if eq != 1 {
		return gcode.ErrInvalidStatement.Error()
	}
	slot, err := strconv.Atoi(body[:1])
	if err != nil || slot < 0 || slot > 1 {
		return gcode.ErrInvalidStatement.Error()
	}
	m.Store.StartupLines[slot] = body[eq+1:]
	return "ok"
}

// RunStartupLines executes the two stored startup lines in order. main
// calls it once at boot; a soft reset does not run them again. A
// failing line is reported but
// does not abort the sequence or the boot (SPEC_FULL.md's supplemented
// `$N` semantics).
func (m *Machine) RunStartupLines() {
	for i, line := range m.Store.StartupLines {
		if line == "" {
			continue
		}
		if resp := m.Execute(line); resp != "ok" {
			fmt.Printf("startup line %d failed: %s -> %s\n", i, line, resp)
		}
	}
}

func (m *Machine) homeCommand() string {
	if err := m.Home(); err != nil {
		return err.Error()
	}
	return "ok"
}
