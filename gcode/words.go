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
	"math"
	"strconv"
)

// modalGroup classifies a G/M word for the "one member per group per
// block" check (spec.md §4.1 Phase 2, Glossary "Modal group").
type modalGroup int

const (
	groupNone modalGroup = iota
	groupMotion
	groupNonModal
	groupUnits
	groupDistance
	groupFeedMode
	groupCoord
	groupProgramFlow
	groupSpindle
)

// code is an integer+two-decimal-digit-mantissa encoding: G92.1 -> 9210,
// G38.2 -> 3820, G1 -> 100, M3 -> 300.
type code int

func gGroup(c code) modalGroup {
	switch {
	case c == 0 || c == 100 || c == 200 || c == 300 || c == 3820 || c == 8000:
		return groupMotion
	case c == 400 || c == 1000 || c == 2800 || c == 3000 || c == 9200 || c == 9210 || c == 5300:
		return groupNonModal
	case c == 2000 || c == 2100:
		return groupUnits
	case c == 9000 || c == 9100:
		return groupDistance
	case c == 9300 || c == 9400:
		return groupFeedMode
	case c >= 5400 && c <= 5900 && c%100 == 0:
		return groupCoord
	default:
		return groupNone
	}
}

func mGroup(c code) modalGroup {
	switch c {
	case 0, 100, 200, 3000:
		return groupProgramFlow
	case 300, 400, 500:
		return groupSpindle
	default:
		return groupNone
	}
}

// nonIntegerWhitelist holds the G codes that may carry a non-zero
// mantissa (spec.md §4.1 Phase 2: "Non-integer forms ... accepted only
// for an enumerated whitelist").
var nonIntegerWhitelist = map[code]bool{
	3820: true, // G38.2
	9210: true, // G92.1
}

// valueLetters are the value-bearing words (spec.md §4.1 Phase 2). S is
// not named in spec.md's letter list; it is accepted so a block can
// carry a spindle speed, which Parse returns as Result.SpindleSpeed.
const valueLetters = "FIJKLNPRSXYZ"

func letterIndex(letter byte) (int, bool) {
	for i := 0; i < len(valueLetters); i++ {
		if valueLetters[i] == letter {
			return i, true
		}
	}
	return 0, false
}

func isNegativeRejected(letter byte) bool {
	switch letter {
	case 'F', 'N', 'P', 'S':
		return true
	default:
		return false
	}
}

// block is the scratch block built during Phase 1/2 (spec.md §4.1):
// the current modal set copy plus everything scanned from the line.
type block struct {
	gWords []code
	mWords []code

	values    map[byte]float64
	valueSeen uint16 // bit per letterIndex
	axisWords uint8  // bit0 X, bit1 Y, bit2 Z
	ijkWords  uint8  // bit0 I, bit1 J, bit2 K

	groupSeen map[modalGroup]bool
}

func newBlock() *block {
	return &block{
		values:    map[byte]float64{},
		groupSeen: map[modalGroup]bool{},
	}
}

func (b *block) has(letter byte) bool {
	idx, ok := letterIndex(letter)
	if !ok {
		return false
	}
	return b.valueSeen&(1<<idx) != 0
}

func (b *block) get(letter byte) float64 {
	return b.values[letter]
}

func (b *block) hasAxis() bool { return b.axisWords != 0 }

func (b *block) axisTarget(cur [AxisCount]float64) [AxisCount]float64 {
	t := cur
	if b.has('X') {
		t[0] = b.get('X')
	}
	if b.has('Y') {
		t[1] = b.get('Y')
	}
	if b.has('Z') && AxisCount > 2 {
		t[2] = b.get('Z')
	}
	return t
}

// scanWords performs spec.md §4.1 Phase 2: repeatedly consume one
// letter followed by one signed float.
func scanWords(line string) (*block, Status) {
	b := newBlock()
	i := 0
	for i < len(line) {
		c := line[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if c < 'A' || c > 'Z' {
			return nil, ErrExpectedCommandLetter
		}
		letter := c
		i++
		start := i
		if i < len(line) && (line[i] == '+' || line[i] == '-') {
			i++
		}
		digitsStart := i
		sawDigitOrDot := false
		for i < len(line) && (isDigit(line[i]) || line[i] == '.') {
			if isDigit(line[i]) {
				sawDigitOrDot = true
			}
			i++
		}
		if i == digitsStart || !sawDigitOrDot {
			return nil, ErrBadNumberFormat
		}
		numStr := line[start:i]
		value, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil, ErrBadNumberFormat
		}

		switch letter {
		case 'G', 'M':
			c, status := splitCode(value)
			if status != OK {
				return nil, status
			}
			var group modalGroup
			if letter == 'G' {
				group = gGroup(c)
			} else {
				group = mGroup(c)
			}
			if group == groupNone {
				return nil, ErrUnsupportedCommand
			}
			if b.groupSeen[group] {
				return nil, ErrModalGroupViolation
			}
			b.groupSeen[group] = true
			if letter == 'G' {
				b.gWords = append(b.gWords, c)
			} else {
				b.mWords = append(b.mWords, c)
			}
		default:
			idx, ok := letterIndex(letter)
			if !ok {
				return nil, ErrExpectedCommandLetter
			}
			bit := uint16(1) << idx
			if b.valueSeen&bit != 0 {
				return nil, ErrWordRepeated
			}
			if isNegativeRejected(letter) && value < 0 {
				return nil, ErrNegativeValue
			}
			b.valueSeen |= bit
			b.values[letter] = value
			switch letter {
			case 'X':
				b.axisWords |= 1
			case 'Y':
				b.axisWords |= 2
			case 'Z':
				b.axisWords |= 4
			case 'I':
				b.ijkWords |= 1
			case 'J':
				b.ijkWords |= 2
			case 'K':
				b.ijkWords |= 4
			}
		}
	}
	return b, OK
}

// splitCode turns a scanned G/M value into the integer*100+mantissa
// encoding, rejecting non-integer mantissas outside the whitelist.
func splitCode(value float64) (code, Status) {
	if value < 0 {
		return 0, ErrBadNumberFormat
	}
	intPart := math.Trunc(value)
	frac := value - intPart
	mantissa := int(math.Round(frac * 100))
	c := code(int(intPart)*100 + mantissa)
	if mantissa != 0 && !nonIntegerWhitelist[c] {
		return 0, ErrCommandValueNotInteger
	}
	return c, OK
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
