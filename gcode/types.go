// Package gcode implements the RS274/NGC-subset parser/interpreter:
// it lexes one upper-cased, whitespace-stripped line, resolves modal
// groups, and produces zero or more planner directives plus any
// immediate-action (dwell, program-flow) results, per spec.md §4.1.
package gcode

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


import "github.com/rcornwell/gnc-motion/nvs"

// AxisCount mirrors nvs.AxisCount so this package has no import-cycle
// reason to special-case axis handling.
const AxisCount = nvs.AxisCount

// MotionMode is modal group 1 (the teacher's "word_bit" group, reborn
// as a tagged enum so the compiler can enforce exhaustiveness — see
// spec.md §9's design note on modal groups).
type MotionMode int

const (
	MotionNone MotionMode = iota
	MotionSeek            // G0
	MotionLinear          // G1
	MotionCWArc           // G2
	MotionCCWArc          // G3
	MotionCancel          // G80
)

// NonModal is the non-modal-action group: applies only to the block it
// appears in (spec.md Glossary).
type NonModal int

const (
	NonModalNone NonModal = iota
	NonModalDwell
	NonModalSetCoordData
	NonModalGoHomeG28
	NonModalGoHomeG30
	NonModalSetG92
	NonModalResetG92
	NonModalMachineFrame // G53
)

type UnitsMode int

const (
	UnitsMM UnitsMode = iota
	UnitsInches
)

type DistanceMode int

const (
	DistanceAbsolute DistanceMode = iota
	DistanceIncremental
)

type FeedRateMode int

const (
	FeedRateUnitsPerMinute FeedRateMode = iota
	FeedRateInverseTime
)

type ProgramFlow int

const (
	FlowNone ProgramFlow = iota
	FlowPause               // M0
	FlowOptionalStop        // M1
	FlowProgramEnd          // M2
	FlowProgramEndAndRewind // M30
)

type SpindleState int

const (
	SpindleOff SpindleState = iota
	SpindleCW               // M3
	SpindleCCW              // M4
)

// ModalState is the persistent modal set, copied into each scratch
// block at the start of a line (spec.md §4.1 Phase 1) and mutated only
// on commit (Phase 4).
type ModalState struct {
	Motion       MotionMode
	Units        UnitsMode
	Distance     DistanceMode
	FeedRateMode FeedRateMode
	CoordSystem  int // 1..6, selects G54..G59
	Spindle      SpindleState
}

// DefaultModal is the reset state used on boot and after M2/M30:
// G1 G90 G94 G54.
func DefaultModal() ModalState {
	return ModalState{
		Motion:       MotionLinear,
		Units:        UnitsMM,
		Distance:     DistanceAbsolute,
		FeedRateMode: FeedRateUnitsPerMinute,
		CoordSystem:  1,
		Spindle:      SpindleOff,
	}
}

// State is parser_state_t: modal groups, feed rate, line number, work
// offsets, and the authoritative mm position shadow.
type State struct {
	Modal     ModalState
	Position  [AxisCount]float64 // gc_state.position, mm, machine frame
	G92Offset [AxisCount]float64
	FeedRate  float64
	LineNum   int
}

// NewState returns a parser state at power-on defaults.
func NewState() *State {
	return &State{Modal: DefaultModal()}
}

// Reset restores modal defaults and clears G92, per M2/M30 and abort
// (spec.md §4.1 Phase 4 and §4.5's Reset row). Position is left
// untouched by Reset itself; callers resync it from sys_position.
func (s *State) Reset() {
	s.Modal = DefaultModal()
	s.G92Offset = [AxisCount]float64{}
	s.FeedRate = 0
}

// BlockCondition is plan_block_t's condition bitset (spec.md §3).
type BlockCondition uint8

const (
	CondRapid BlockCondition = 1 << iota
	CondInverseTime
	CondSystemMotion
	CondJog
)

// Directive is the plan-line-data descriptor the parser hands to the
// planner: a resolved target in mm plus feed-rate/condition metadata.
type Directive struct {
	Target     [AxisCount]float64
	FeedRate   float64
	Condition  BlockCondition
	LineNumber int
}

// Result is everything Parse/ParseJog can produce from one line: zero
// or more planner directives (an arc may lower to several short
// segments) plus any immediate-action outcomes.
type Result struct {
	Directives   []Directive
	DwellSeconds float64
	ProgramFlow  ProgramFlow
	SpindleOn    bool
	SpindleSpeed float64
	Status       Status
}

func errResult(status Status) Result {
	return Result{Status: status}
}
