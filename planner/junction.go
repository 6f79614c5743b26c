package planner

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

// junctionSpeedSqrSentinel stands in for "effectively unconstrained by
// junction" on a collinear transition (spec.md §4.2 edge case).
const junctionSpeedSqrSentinel = 1e9

// maxJunctionSpeedSqr implements spec.md §4.2's junction-deviation
// model: given the previous and new unit vectors and the configured
// junction-deviation tolerance, returns the admissible centripetal
// speed squared at the junction between them.
//
//	cos_theta = -u_prev . u_new
//	v^2 = a * delta * sin(theta/2) / (1 - sin(theta/2))
func maxJunctionSpeedSqr(prev, next [AxisCount]float64, acceleration, deviation float64) float64 {
	var dot float64
	for a := 0; a < AxisCount; a++ {
		dot += prev[a] * next[a]
	}
	cosTheta := -dot
	if cosTheta < -0.999999 {
		// Collinear continuation (u_prev == u_new): no meaningful corner.
		return junctionSpeedSqrSentinel
	}
	if cosTheta > 0.999999 {
		// Exact reversal (u_new == -u_prev): full stop required.
		return 0
	}
	sinHalf := math.Sqrt(0.5 * (1 - cosTheta))
	if sinHalf >= 1 {
		return 0
	}
	return acceleration * deviation * sinHalf / (1 - sinHalf)
}
