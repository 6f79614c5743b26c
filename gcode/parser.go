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


import (
	"strings"

	"github.com/rcornwell/gnc-motion/nvs"
)

// JogPrefix is the marker recognised by the transport/console layer
// before handing a line to ParseJog (spec.md §6's "$J=<gcode>").
const JogPrefix = "$J="

// Normalize upper-cases a raw line, strips parentheses/semicolon
// comments, and removes whitespace, matching the "null-terminated,
// upper-cased, whitespace-stripped line" Parse operates on (spec.md
// §4.1). Comment stripping is a supplemented ambient convenience: the
// spec is silent on comment syntax, so the convention grbl and NIST
// RS274-NGC share is used.
func Normalize(raw string) string {
	s := raw
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && s[i] != ' ' && s[i] != '\t' {
				b.WriteByte(s[i])
			}
		}
	}
	return strings.ToUpper(b.String())
}

// Parse runs the four-phase pipeline from spec.md §4.1 over one
// normalized line and commits to st only if every phase succeeds
// (spec.md §8 invariant 4: "Parser state after a failing block equals
// state before it").
func Parse(line string, st *State, store *nvs.Store) Result {
	return parseLine(line, st, store, false)
}

// ParseJog runs the same pipeline in jog mode: motion is forced to
// linear units-per-minute, modal state is never committed, and only a
// narrow set of non-motion words is admitted (spec.md §4.1, §4.5).
func ParseJog(line string, st *State, store *nvs.Store) Result {
	line = strings.TrimPrefix(line, JogPrefix)
	return parseLine(line, st, store, true)
}

func parseLine(line string, st *State, store *nvs.Store, jog bool) Result {
	b, status := scanWords(line)
	if status != OK {
		return errResult(status)
	}

	modal := st.Modal
	if jog {
		modal.Motion = MotionLinear
		modal.FeedRateMode = FeedRateUnitsPerMinute
		if status := validateJogWords(b); status != OK {
			return errResult(status)
		}
	}

	var consumed uint16
	markConsumed := func(letters ...byte) {
		for _, l := range letters {
			if idx, ok := letterIndex(l); ok {
				consumed |= 1 << idx
			}
		}
	}

	// a) feed-rate mode.
	for _, c := range b.gWords {
		switch c {
		case 9300:
			modal.FeedRateMode = FeedRateInverseTime
		case 9400:
			modal.FeedRateMode = FeedRateUnitsPerMinute
		}
	}

	// b) feed rate.
	newFeed := st.FeedRate
	if b.has('F') {
		newFeed = b.get('F')
		markConsumed('F')
	}

	// c) coordinate-system select.
	coordOffset, status := resolveCoordOffset(b, store, &modal, &consumed)
	if status != OK {
		return errResult(status)
	}

	// d) distance mode.
	for _, c := range b.gWords {
		switch c {
		case 9000:
			modal.Distance = DistanceAbsolute
		case 9100:
			modal.Distance = DistanceIncremental
		}
	}

	// e) non-modal actions.
	nonModal, nonModalCode := classifyNonModal(b)
	if jog && nonModal != NonModalNone && nonModal != NonModalMachineFrame {
		return errResult(ErrInvalidJogCommand)
	}

	result := Result{Status: OK}
	newG92 := st.G92Offset
	newPosition := st.Position
	machineFrame := false
	axisWordsConsumedByNonModal := false

	switch nonModal {
	case NonModalDwell:
		if !b.has('P') {
			return errResult(ErrGcodeValueWordMissing)
		}
		markConsumed('P')
		result.DwellSeconds = b.get('P')

	case NonModalSetCoordData:
		dirs, g92, status := resolveG10(b, st, store, &consumed)
		if status != OK {
			return errResult(status)
		}
		if dirs != nil {
			newG92 = *dirs
		}
		_ = g92
		axisWordsConsumedByNonModal = true

	case NonModalGoHomeG28, NonModalGoHomeG30:
		dirs, finalPos, status := resolveGoHome(b, st, store, nonModal, &modal, coordOffset, newG92)
		if status != OK {
			return errResult(status)
		}
		result.Directives = append(result.Directives, dirs...)
		newPosition = finalPos
		axisWordsConsumedByNonModal = true

	case NonModalSetG92:
		newG92 = resolveSetG92(b, st, coordOffset)
		axisWordsConsumedByNonModal = true

	case NonModalResetG92:
		newG92 = [AxisCount]float64{}

	case NonModalMachineFrame:
		if modal.Motion != MotionSeek && modal.Motion != MotionLinear {
			return errResult(ErrUnsupportedCommand)
		}
		machineFrame = true
	}
	_ = nonModalCode
	if axisWordsConsumedByNonModal && b.hasAxis() {
		markConsumed('X', 'Y', 'Z')
	}

	// K-word without a third axis: explicit rejection (spec.md §9 open
	// question on N_AXIS=2 configurations).
	if b.ijkWords&4 != 0 && AxisCount < 3 {
		return errResult(ErrUnsupportedCommand)
	}

	// f) motion modes.
	motion := effectiveMotion(b, modal, axisWordsConsumedByNonModal)
	if motion != MotionNone {
		modal.Motion = motion
	}
	if motion == MotionSeek || motion == MotionLinear {
		if !axisWordsConsumedByNonModal && b.hasAxis() {
			markConsumed('X', 'Y', 'Z')
		}
		if motion == MotionLinear && modal.FeedRateMode == FeedRateInverseTime && !b.has('F') && newFeed == 0 {
			return errResult(ErrGcodeValueWordMissing)
		}
		if !axisWordsConsumedByNonModal && (b.hasAxis() || machineFrame) {
			target := resolveLinearTarget(b, st, modal, coordOffset, newG92, machineFrame)
			if target == st.Position {
				// Zero-length move: silently dropped (spec.md §8).
			} else {
				cond := BlockCondition(0)
				if motion == MotionSeek {
					cond |= CondRapid
				}
				if modal.FeedRateMode == FeedRateInverseTime {
					cond |= CondInverseTime
				}
				if jog {
					cond |= CondJog
				}
				result.Directives = append(result.Directives, Directive{
					Target:     target,
					FeedRate:   newFeed,
					Condition:  cond,
					LineNumber: st.LineNum,
				})
				newPosition = target
			}
		}
	} else if motion == MotionCWArc || motion == MotionCCWArc {
		if !b.has('F') && modal.FeedRateMode == FeedRateInverseTime {
			return errResult(ErrGcodeValueWordMissing)
		}
		if !b.hasAxis() && b.ijkWords == 0 && !b.has('R') {
			return errResult(ErrGcodeValueWordMissing)
		}
		dirs, status := resolveArc(b, st, modal, coordOffset, newG92, motion == MotionCCWArc, store)
		if status != OK {
			return errResult(status)
		}
		markConsumed('X', 'Y', 'Z', 'I', 'J', 'K', 'R')
		for _, d := range dirs {
			result.Directives = append(result.Directives, Directive{
				Target:     d,
				FeedRate:   newFeed,
				Condition:  0,
				LineNumber: st.LineNum,
			})
		}
		if len(dirs) > 0 {
			newPosition = dirs[len(dirs)-1]
		}
	}

	// g) program flow / spindle.
	for _, c := range b.mWords {
		switch c {
		case 0:
			result.ProgramFlow = FlowPause
		case 100:
			result.ProgramFlow = FlowOptionalStop
		case 200:
			result.ProgramFlow = FlowProgramEnd
		case 3000:
			result.ProgramFlow = FlowProgramEndAndRewind
		case 300, 400:
			result.SpindleOn = true
			if b.has('S') {
				result.SpindleSpeed = b.get('S')
				markConsumed('S')
			}
		case 500:
			result.SpindleOn = false
		}
	}
	if b.has('N') {
		markConsumed('N')
	}

	if b.valueSeen&^consumed != 0 {
		return errResult(ErrUnusedWords)
	}

	// Phase 4 — commit.
	if !jog {
		st.Modal = modal
		st.G92Offset = newG92
		if b.has('N') {
			st.LineNum = int(b.get('N'))
		}
		if result.ProgramFlow == FlowProgramEnd || result.ProgramFlow == FlowProgramEndAndRewind {
			st.Reset()
		}
	}
	st.Position = newPosition
	st.FeedRate = newFeed
	result.Status = OK
	return result
}

func validateJogWords(b *block) Status {
	for _, c := range b.gWords {
		switch gGroup(c) {
		case groupUnits, groupDistance:
			// admitted
		case groupNonModal:
			if c != 5300 {
				return ErrInvalidJogCommand
			}
		default:
			return ErrInvalidJogCommand
		}
	}
	if len(b.mWords) > 0 {
		return ErrInvalidJogCommand
	}
	if !b.hasAxis() {
		return ErrInvalidJogCommand
	}
	return OK
}

func classifyNonModal(b *block) (NonModal, code) {
	for _, c := range b.gWords {
		switch c {
		case 400:
			return NonModalDwell, c
		case 1000:
			return NonModalSetCoordData, c
		case 2800:
			return NonModalGoHomeG28, c
		case 3000:
			return NonModalGoHomeG30, c
		case 9200:
			return NonModalSetG92, c
		case 9210:
			return NonModalResetG92, c
		case 5300:
			return NonModalMachineFrame, c
		}
	}
	return NonModalNone, 0
}

func effectiveMotion(b *block, modal ModalState, consumedByNonModal bool) MotionMode {
	for _, c := range b.gWords {
		switch c {
		case 0:
			return MotionSeek
		case 100:
			return MotionLinear
		case 200:
			return MotionCWArc
		case 300:
			return MotionCCWArc
		case 8000:
			return MotionCancel
		}
	}
	if consumedByNonModal {
		return MotionNone
	}
	if b.hasAxis() {
		return modal.Motion
	}
	return MotionNone
}

func resolveCoordOffset(b *block, store *nvs.Store, modal *ModalState, consumed *uint16) ([AxisCount]float64, Status) {
	for _, c := range b.gWords {
		if gGroup(c) == groupCoord {
			idx := 1 + int(c-5400)/100
			if _, err := store.CoordinateOffset(idx); err != nil {
				return [AxisCount]float64{}, ErrGcodeCoordSystemRange
			}
			modal.CoordSystem = idx
		}
	}
	offset, err := store.CoordinateOffset(modal.CoordSystem)
	if err != nil {
		return [AxisCount]float64{}, ErrGcodeCoordSystemRange
	}
	return offset, OK
}

// resolveLinearTarget applies spec.md §4.1 Phase 3's distance-mode and
// G53 rules to produce an absolute machine-frame target in mm.
func resolveLinearTarget(b *block, st *State, modal ModalState, coordOffset, g92 [AxisCount]float64, machineFrame bool) [AxisCount]float64 {
	target := st.Position
	setAxis := func(axis int, letter byte) {
		if !b.has(letter) {
			return
		}
		v := b.get(letter)
		switch {
		case machineFrame:
			target[axis] = v
		case modal.Distance == DistanceAbsolute:
			target[axis] = v + coordOffset[axis] + g92[axis]
		default:
			target[axis] = st.Position[axis] + v
		}
	}
	setAxis(0, 'X')
	setAxis(1, 'Y')
	if AxisCount > 2 {
		setAxis(2, 'Z')
	}
	return target
}

func resolveSetG92(b *block, st *State, coordOffset [AxisCount]float64) [AxisCount]float64 {
	g92 := st.G92Offset
	set := func(axis int, letter byte) {
		if !b.has(letter) {
			return
		}
		g92[axis] = st.Position[axis] - coordOffset[axis] - b.get(letter)
	}
	set(0, 'X')
	set(1, 'Y')
	if AxisCount > 2 {
		set(2, 'Z')
	}
	return g92
}

// resolveG10 implements G10 L2/L20 (spec.md §4.1 Phase 3): L2 writes
// the given axis values directly as the new coordinate-system offset;
// L20 chooses the offset so the current position reads as the given
// values. R is forbidden under L2; any L other than 2 or 20 is
// unsupported.
func resolveG10(b *block, st *State, store *nvs.Store, consumed *uint16) (*[AxisCount]float64, bool, Status) {
	if !b.has('L') {
		return nil, false, ErrGcodeValueWordMissing
	}
	l := int(b.get('L'))
	if l != 2 && l != 20 {
		return nil, false, ErrUnsupportedCommand
	}
	if l == 2 && b.has('R') {
		return nil, false, ErrUnsupportedCommand
	}
	p := 0
	if b.has('P') {
		p = int(b.get('P'))
	}
	system := p
	if system == 0 {
		system = st.Modal.CoordSystem
	}
	offset, err := store.CoordinateOffset(system)
	if err != nil {
		return nil, false, ErrGcodeCoordSystemRange
	}

	apply := func(axis int, letter byte) {
		if !b.has(letter) {
			return
		}
		v := b.get(letter)
		if l == 2 {
			offset[axis] = v
		} else {
			offset[axis] = st.Position[axis] - v
		}
	}
	apply(0, 'X')
	apply(1, 'Y')
	if AxisCount > 2 {
		apply(2, 'Z')
	}
	if err := store.SetCoordinateOffset(system, offset); err != nil {
		return nil, false, ErrGcodeCoordSystemRange
	}
	for _, l := range []byte{'L', 'P', 'X', 'Y', 'Z'} {
		if idx, ok := letterIndex(l); ok {
			*consumed |= 1 << idx
		}
	}
	return nil, false, OK
}

// resolveGoHome implements G28/G30: optional intermediate point, then
// the stored reference position. It reports the final position but
// does not mutate st — the caller commits it only once the whole
// block has validated (spec.md §8 invariant 4).
func resolveGoHome(b *block, st *State, store *nvs.Store, which NonModal, modal *ModalState, coordOffset, g92 [AxisCount]float64) ([]Directive, [AxisCount]float64, Status) {
	var dirs []Directive
	cur := st.Position
	if b.hasAxis() {
		target := resolveLinearTarget(b, st, *modal, coordOffset, g92, false)
		dirs = append(dirs, Directive{Target: target, Condition: CondRapid | CondSystemMotion, LineNumber: st.LineNum})
		cur = target
	}
	var ref [AxisCount]float64
	if which == NonModalGoHomeG28 {
		ref = store.G28
	} else {
		ref = store.G30
	}
	dirs = append(dirs, Directive{Target: ref, Condition: CondRapid | CondSystemMotion, LineNumber: st.LineNum})
	cur = ref
	return dirs, cur, OK
}

func resolveArc(b *block, st *State, modal ModalState, coordOffset, g92 [AxisCount]float64, ccw bool, store *nvs.Store) ([][AxisCount]float64, Status) {
	target := resolveLinearTarget(b, st, modal, coordOffset, g92, false)
	dx := target[0] - st.Position[0]
	dy := target[1] - st.Position[1]

	var cx, cy float64
	var status Status
	if b.has('R') {
		cx, cy, status = arcCenterFromRadius(dx, dy, b.get('R'), ccw)
	} else {
		i, j := b.get('I'), b.get('J')
		if dx == 0 && dy == 0 && i == 0 && j == 0 {
			return nil, ErrInvalidTarget
		}
		cx, cy, status = arcCenterFromOffset(dx, dy, i, j)
	}
	if status != OK {
		return nil, status
	}

	center := [2]float64{st.Position[0] + cx, st.Position[1] + cy}
	points, status := generateArc(st.Position, target, center[0], center[1], ccw, store.ArcTolerance())
	if status != OK {
		return nil, status
	}
	out := make([][AxisCount]float64, len(points))
	for i, p := range points {
		out[i] = [AxisCount]float64(p)
	}
	return out, OK
}
