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


import "math"

// arcAngularTravelEpsilon preserves grbl's historical constant for
// telling a true full circle apart from floating-point noise when the
// offset-form start and end points coincide (spec.md §9 open question).
const arcAngularTravelEpsilon = 5e-7

// arcCenterFromRadius implements the perpendicular-offset construction
// from spec.md §4.1 Phase 3 for the R form of G2/G3: given the start
// and end points (dx, dy relative to start) and a signed radius,
// returns the center offset (cx, cy) relative to start.
func arcCenterFromRadius(dx, dy, r float64, ccw bool) (cx, cy float64, status Status) {
	if dx == 0 && dy == 0 {
		return 0, 0, ErrInvalidTarget
	}
	h2 := 4.0*r*r - dx*dx - dy*dy
	if h2 < 0 {
		return 0, 0, ErrArcRadiusError
	}
	hDivD := -math.Sqrt(h2) / math.Hypot(dx, dy)
	if ccw {
		hDivD = -hDivD
	}
	if r < 0 {
		hDivD = -hDivD
	}
	cx = 0.5 * (dx - dy*hDivD)
	cy = 0.5 * (dy + dx*hDivD)
	return cx, cy, OK
}

// arcCenterFromOffset validates the I/J center-offset form: the
// computed arc radius (hypot(i,j)) and the target-side radius
// (hypot(dx-i, dy-j)) must agree within tolerance (spec.md §4.1 Phase 3).
func arcCenterFromOffset(dx, dy, i, j float64) (cx, cy float64, status Status) {
	r1 := math.Hypot(i, j)
	r2 := math.Hypot(dx-i, dy-j)
	delta := math.Abs(r1 - r2)
	if delta > 0.5 || (delta > 0.001*r1 && delta > 0.005) {
		return 0, 0, ErrInvalidTarget
	}
	return i, j, OK
}

// ArcPoint is one interpolated point along an arc, expressed in the
// same mm work-frame as Directive.Target.
type ArcPoint [AxisCount]float64

// generateArc slices a circular (optionally helical, via linear axis-2
// interpolation) arc into short chords bounded by arcTolerance, per
// spec.md §4.1's radius/offset resolution and §8's "produces an arc
// whose chord error <= configured arc-tolerance" scenario.
func generateArc(start, end [AxisCount]float64, cx, cy float64, ccw bool, arcTolerance float64) ([]ArcPoint, Status) {
	sx, sy := start[0]-cx, start[1]-cy
	ex, ey := end[0]-cx, end[1]-cy
	radius := math.Hypot(sx, sy)
	if radius == 0 {
		return nil, ErrArcRadiusError
	}

	angularTravel := math.Atan2(sx*ey-sy*ex, sx*ex+sy*ey)
	if ccw {
		if angularTravel <= 0 {
			angularTravel += 2 * math.Pi
		}
	} else {
		if angularTravel >= 0 {
			angularTravel -= 2 * math.Pi
		}
	}

	if math.Abs(angularTravel) < arcAngularTravelEpsilon {
		// Identical start/end via I/J/K: a full circle, not a
		// zero-length move (spec.md §8 boundary behaviour).
		if ccw {
			angularTravel = 2 * math.Pi
		} else {
			angularTravel = -2 * math.Pi
		}
	}

	if arcTolerance <= 0 {
		arcTolerance = 0.002
	}
	segments := int(math.Floor(math.Abs(angularTravel) / (2 * math.Acos(1-arcTolerance/radius))))
	if segments < 1 {
		segments = 1
	}

	points := make([]ArcPoint, 0, segments)
	thetaPerSegment := angularTravel / float64(segments)
	var linearPerSegment [AxisCount]float64
	for a := 2; a < AxisCount; a++ {
		linearPerSegment[a] = (end[a] - start[a]) / float64(segments)
	}

	cosT := math.Cos(thetaPerSegment)
	sinT := math.Sin(thetaPerSegment)
	x, y := sx, sy
	for s := 1; s < segments; s++ {
		nx := x*cosT - y*sinT
		ny := x*sinT + y*cosT
		x, y = nx, ny
		var p ArcPoint
		p[0] = cx + x
		p[1] = cy + y
		for a := 2; a < AxisCount; a++ {
			p[a] = start[a] + linearPerSegment[a]*float64(s)
		}
		points = append(points, p)
	}
	points = append(points, ArcPoint(end))
	return points, OK
}
