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

// Package executor implements the real-time flag word, the alarm and
// override words, and the state machine that the protocol loop drives
// between line reads (spec.md §4.5).
package executor

import "fmt"

// State is one of the machine's top-level run states.
type State int

const (
	Idle State = iota
	Cycle
	Hold
	Jog
	Alarm
	CheckMode
	Sleep
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Cycle:
		return "Run"
	case Hold:
		return "Hold"
	case Jog:
		return "Jog"
	case Alarm:
		return "Alarm"
	case CheckMode:
		return "Check"
	case Sleep:
		return "Sleep"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event names the inputs that drive state transitions (spec.md §4.5's
// transition table).
type Event int

const (
	EventCycleStart Event = iota
	EventFeedHold
	EventReset
	EventJogStart
	EventJogCancel
	EventAlarmTrigger
	EventAlarmClear
	EventCheckModeToggle
	EventSleep
	EventCycleComplete
)

// transitions encodes spec.md §4.5's table plus the states it leaves
// implicit (Sleep, CheckMode, Alarm-clear). A transition absent from
// the map is refused: the caller's Apply call returns ok=false and the
// state is unchanged.
var transitions = map[State]map[Event]State{
	Idle: {
		EventCycleStart:      Cycle,
		EventJogStart:        Jog,
		EventAlarmTrigger:    Alarm,
		EventCheckModeToggle: CheckMode,
		EventSleep:           Sleep,
		EventReset:           Idle,
	},
	Cycle: {
		EventFeedHold:      Hold,
		EventReset:         Idle,
		EventAlarmTrigger:  Alarm,
		EventCycleComplete: Idle,
	},
	Hold: {
		EventCycleStart: Cycle,
		EventReset:      Idle,
	},
	Jog: {
		EventJogCancel:    Idle,
		EventReset:        Idle,
		EventAlarmTrigger: Alarm,
	},
	Alarm: {
		EventReset:      Idle,
		EventAlarmClear: Idle,
	},
	CheckMode: {
		EventCheckModeToggle: Idle,
		EventReset:           Idle,
	},
	Sleep: {
		EventReset: Idle,
	},
}

// Apply returns the state that ev leads to from the state from, and
// whether that transition is legal. An illegal transition is a caller
// bug, not a runtime error: callers check the current state before
// applying an event.
func Apply(from State, ev Event) (State, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}
