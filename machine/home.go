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
	"github.com/rcornwell/gnc-motion/executor"
	"github.com/rcornwell/gnc-motion/gcode"
	"github.com/rcornwell/gnc-motion/nvs"
	"github.com/rcornwell/gnc-motion/planner"
	"github.com/rcornwell/gnc-motion/stepper"
)

// Home implements `$H`: a system-motion cycle that seeks each
// configured axis toward its limit switch at the configured seek
// rate, backs off, re-seeks at a slower locate rate, and sets
// sys_position directly — the "SYSTEM" case of gc_update_pos that
// spec.md §9's open questions call out as absent from the excerpt
// (supplemented per SPEC_FULL.md).
//
// This rewrite has no real limit-switch input, so each axis's seek is
// modeled as a commanded move to its configured travel limit; the
// "switch trip" is the move completing. This is documented in
// DESIGN.md as the one place a missing hardware collaborator
// (spec.md §1's limit-switch input) is stood in for rather than left
// unimplemented.
func (m *Machine) Home() error {
	if !m.Store.HomingEnabled() {
		return gcode.ErrHomingNotEnabled
	}
	if !m.Planner.Empty() || m.Ring.Len() > 0 {
		return gcode.ErrStatementOverflow
	}

	seekFeed, _ := m.Store.Get(nvs.SettingHomingSeek)
	locateFeed, _ := m.Store.Get(nvs.SettingHomingFeed)
	pulloff, _ := m.Store.Get(nvs.SettingHomingPulloff)
	if seekFeed <= 0 {
		seekFeed = 500
	}
	if locateFeed <= 0 {
		locateFeed = 25
	}

	for axis := 0; axis < stepper.AxisCount; axis++ {
		max := m.Store.MaxTravel(axis)
		if max <= 0 {
			continue
		}
		if err := m.homeAxis(axis, max, seekFeed, locateFeed, pulloff); err != nil {
			m.Executor.Realtime.SetAlarm(executor.AlarmHomingFail)
			return gcode.AlarmHomingFail
		}
	}
	return nil
}

// homeAxis drives one axis through seek / pull-off / locate, then
// resets that axis's position to zero directly in both the planner
// and the ISR-side sys_position (spec.md §9's SYSTEM position update).
func (m *Machine) homeAxis(axis int, maxTravel, seekFeed, locateFeed, pulloff float64) error {
	pos := m.Planner.Position()

	seekTarget := pos
	seekTarget[axis] = -maxTravel
	if err := m.moveSystemAxis(seekTarget, seekFeed); err != nil {
		return err
	}

	pulloffTarget := seekTarget
	pulloffTarget[axis] += pulloff
	if err := m.moveSystemAxis(pulloffTarget, locateFeed); err != nil {
		return err
	}

	locateTarget := pulloffTarget
	locateTarget[axis] = -maxTravel
	if err := m.moveSystemAxis(locateTarget, locateFeed); err != nil {
		return err
	}

	m.Planner.WaitForEmpty()

	zeroed := m.Planner.Position()
	zeroed[axis] = 0
	m.Planner.SetPosition(zeroed)
	m.gcState.Position[axis] = 0

	m.mu.Lock()
	m.sysPosition[axis] = 0
	m.mu.Unlock()
	return nil
}

func (m *Machine) moveSystemAxis(target [planner.AxisCount]float64, feed float64) error {
	line := planner.Line{
		Target:     target,
		FeedRate:   feed,
		Condition:  planner.CondRapid | planner.CondSystemMotion,
		LineNumber: m.gcState.LineNum,
	}
	for {
		_, err := m.Planner.Enqueue(line)
		if err == planner.ErrRingFull {
			m.Planner.WaitForSpace()
			continue
		}
		if err != nil {
			return err
		}
		break
	}
	m.Prep.Fill()
	m.Planner.WaitForEmpty()
	return nil
}
