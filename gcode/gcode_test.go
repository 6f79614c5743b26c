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
	"testing"

	"github.com/rcornwell/gnc-motion/nvs"
)

func newTestState() (*State, *nvs.Store) {
	return NewState(), nvs.Default()
}

func TestSimpleLinearMove(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G21G90G1X10F600"), st, store)
	if res.Status != OK {
		t.Fatalf("status = %v, want OK", res.Status)
	}
	if len(res.Directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(res.Directives))
	}
	got := res.Directives[0].Target
	want := [AxisCount]float64{10, 0, 0}
	if got != want {
		t.Fatalf("target = %v, want %v", got, want)
	}
	if st.FeedRate != 600 {
		t.Fatalf("feed rate = %v, want 600", st.FeedRate)
	}
}

func TestThreeLinearMovesCarryModal(t *testing.T) {
	st, store := newTestState()
	lines := []string{"G90G1X10Y0F600", "X10Y10", "X0Y10"}
	var targets [][AxisCount]float64
	for _, l := range lines {
		res := Parse(Normalize(l), st, store)
		if res.Status != OK {
			t.Fatalf("line %q: status = %v", l, res.Status)
		}
		if len(res.Directives) != 1 {
			t.Fatalf("line %q: directives = %d", l, len(res.Directives))
		}
		targets = append(targets, res.Directives[0].Target)
	}
	want := [][AxisCount]float64{{10, 0, 0}, {10, 10, 0}, {0, 10, 0}}
	for i := range want {
		if targets[i] != want[i] {
			t.Fatalf("move %d = %v, want %v", i, targets[i], want[i])
		}
	}
}

func TestHalfCircleArc(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G90G1X0Y0F100"), st, store)
	if res.Status != OK {
		t.Fatalf("setup move failed: %v", res.Status)
	}
	res = Parse(Normalize("G2X10Y0I5J0"), st, store)
	if res.Status != OK {
		t.Fatalf("arc status = %v, want OK", res.Status)
	}
	if len(res.Directives) < 2 {
		t.Fatalf("expected multiple arc segments, got %d", len(res.Directives))
	}
	last := res.Directives[len(res.Directives)-1].Target
	if math.Abs(last[0]-10) > 1e-6 || math.Abs(last[1]) > 1e-6 {
		t.Fatalf("arc endpoint = %v, want (10,0)", last)
	}
	for _, d := range res.Directives {
		dist := math.Hypot(d.Target[0]-5, d.Target[1])
		if math.Abs(dist-5) > 0.01 {
			t.Fatalf("point %v not on radius-5 circle centered at (5,0): dist=%v", d.Target, dist)
		}
	}
}

func TestModalGroupViolation(t *testing.T) {
	st, store := newTestState()
	before := *st
	res := Parse(Normalize("G0G1X10"), st, store)
	if res.Status != ErrModalGroupViolation {
		t.Fatalf("status = %v, want ErrModalGroupViolation", res.Status)
	}
	if *st != before {
		t.Fatalf("state mutated after failing block")
	}
}

func TestWordRepeatedRejected(t *testing.T) {
	st, store := newTestState()
	before := *st
	res := Parse(Normalize("G1X10X20"), st, store)
	if res.Status != ErrWordRepeated {
		t.Fatalf("status = %v, want ErrWordRepeated", res.Status)
	}
	if *st != before {
		t.Fatalf("state mutated after failing block")
	}
}

func TestStateUnchangedAfterFailingBlock(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G21G90G1X5F300"), st, store)
	if res.Status != OK {
		t.Fatalf("setup failed: %v", res.Status)
	}
	before := *st
	res = Parse(Normalize("G4"), st, store) // G4 without P
	if res.Status == OK {
		t.Fatalf("expected failure for dwell without P")
	}
	if *st != before {
		t.Fatalf("state mutated after failing block: got %+v want %+v", *st, before)
	}
}

func TestDwellTakesSecondsFromP(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G4P1.5"), st, store)
	if res.Status != OK {
		t.Fatalf("status = %v, want OK", res.Status)
	}
	if res.DwellSeconds != 1.5 {
		t.Fatalf("dwell = %v, want 1.5", res.DwellSeconds)
	}
}

func TestUnusedWordsRejected(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G4P1L2"), st, store)
	if res.Status != ErrUnusedWords {
		t.Fatalf("status = %v, want ErrUnusedWords for L", res.Status)
	}
}

func TestNegativeFeedRejected(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G1X10F-5"), st, store)
	if res.Status != ErrNegativeValue {
		t.Fatalf("status = %v, want ErrNegativeValue", res.Status)
	}
}

func TestG92OffsetRoundTrip(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G90G1X10F100"), st, store)
	if res.Status != OK {
		t.Fatalf("setup: %v", res.Status)
	}
	res = Parse(Normalize("G92X0"), st, store)
	if res.Status != OK {
		t.Fatalf("G92 status: %v", res.Status)
	}
	if st.G92Offset[0] != 10 {
		t.Fatalf("g92 offset = %v, want 10", st.G92Offset[0])
	}
	res = Parse(Normalize("G1X0"), st, store)
	if res.Status != OK {
		t.Fatalf("move status: %v", res.Status)
	}
	if st.Position[0] != 10 {
		t.Fatalf("position after g92-shifted move = %v, want 10", st.Position[0])
	}
}

func TestJogAdmitsOnlyLinearMotion(t *testing.T) {
	st, store := newTestState()
	res := ParseJog(JogPrefix+"G90G21X5Y5F800", st, store)
	if res.Status != OK {
		t.Fatalf("jog status = %v, want OK", res.Status)
	}
	if len(res.Directives) != 1 {
		t.Fatalf("jog directives = %d, want 1", len(res.Directives))
	}
	if res.Directives[0].Condition&CondJog == 0 {
		t.Fatalf("jog directive missing CondJog flag")
	}
	if st.Modal != DefaultModal() {
		t.Fatalf("jog mutated modal state")
	}
}

func TestJogRejectsProgramFlow(t *testing.T) {
	st, store := newTestState()
	res := ParseJog(JogPrefix+"G90X5M2", st, store)
	if res.Status != ErrInvalidJogCommand {
		t.Fatalf("status = %v, want ErrInvalidJogCommand", res.Status)
	}
}

func TestCoordinateSystemSelection(t *testing.T) {
	st, store := newTestState()
	if err := store.SetCoordinateOffset(2, [AxisCount]float64{100, 0, 0}); err != nil {
		t.Fatalf("SetCoordinateOffset: %v", err)
	}
	res := Parse(Normalize("G55G90G1X10F100"), st, store)
	if res.Status != OK {
		t.Fatalf("status = %v", res.Status)
	}
	want := [AxisCount]float64{110, 0, 0}
	if res.Directives[0].Target != want {
		t.Fatalf("target = %v, want %v", res.Directives[0].Target, want)
	}
}

func TestInverseTimeFeedRequiresF(t *testing.T) {
	st, store := newTestState()
	res := Parse(Normalize("G93G1X10"), st, store)
	if res.Status != ErrGcodeValueWordMissing {
		t.Fatalf("status = %v, want ErrGcodeValueWordMissing", res.Status)
	}
}

func TestG28GoesToStoredReference(t *testing.T) {
	st, store := newTestState()
	store.G28 = [AxisCount]float64{1, 2, 3}
	res := Parse(Normalize("G28"), st, store)
	if res.Status != OK {
		t.Fatalf("status = %v", res.Status)
	}
	if len(res.Directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(res.Directives))
	}
	if res.Directives[0].Target != store.G28 {
		t.Fatalf("target = %v, want %v", res.Directives[0].Target, store.G28)
	}
	if st.Position != store.G28 {
		t.Fatalf("position not updated to G28 reference")
	}
}
