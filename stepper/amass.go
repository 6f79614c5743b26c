package stepper

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

import "math"

// timerFrequencyHz is the stepper timer's base tick rate. The ISR
// goroutine does not actually run at this rate (it runs at the
// per-segment cycles_per_tick period computed below); this constant
// only calibrates the AMASS thresholds and cycles-per-tick scaling
// against a believable hardware timer, matching the 30 kHz-class
// prescaled AVR/ARM timers grbl targets.
const timerFrequencyHz = 30000.0

// AMASS level thresholds (step rate in Hz, above which that level's
// subdivision is no longer needed), mirroring grbl's AMASS_LEVEL
// ladder referenced in spec.md's glossary entry.
var amassLevelThresholds = [...]float64{
	timerFrequencyHz / 16, // below this, level 3 (divide by 8)
	timerFrequencyHz / 8,  // below this, level 2 (divide by 4)
	timerFrequencyHz / 4,  // below this, level 1 (divide by 2)
}

const maxAmassLevel = 3

// amassLevel picks the subdivision level for a segment's average step
// rate: low step rates get divided into more, smaller sub-ticks so
// the Bresenham counters still see frequent updates, per spec.md
// §4.3 step 4. Level 0 is passthrough (no subdivision).
func amassLevel(stepRateHz float64) int {
	if stepRateHz <= 0 {
		return maxAmassLevel
	}
	if stepRateHz < amassLevelThresholds[0] {
		return 3
	}
	if stepRateHz < amassLevelThresholds[1] {
		return 2
	}
	if stepRateHz < amassLevelThresholds[2] {
		return 1
	}
	return 0
}

// cyclesPerTick derives the stepper timer reload value for a segment
// given its average step rate and AMASS level: the ISR must fire
// 2^level times per step event, so the achieved tick rate is
// stepRateHz * 2^level.
func cyclesPerTick(stepRateHz float64, level int) uint32 {
	if stepRateHz <= 0 {
		return math.MaxUint32
	}
	effectiveRate := stepRateHz * float64(uint32(1)<<uint(level))
	cycles := timerFrequencyHz / effectiveRate
	if cycles < 1 {
		cycles = 1
	}
	return uint32(math.Round(cycles))
}
