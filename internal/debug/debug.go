// Package debug provides masked, per-subsystem tracing that is free
// when disabled, for the high-frequency paths (step events, segment
// generation, planner recompute) where slog's allocation cost would
// matter on the hot path.
package debug

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
	"io"
	"os"
	"sync"
)

// Mask bits select which subsystems are traced.
const (
	Planner = 1 << iota
	Stepper
	Executor
	GCode
)

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	active int
)

// SetOutput redirects trace output; nil discards it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	out = w
}

// Enable turns on tracing for the given subsystem mask bits.
func Enable(mask int) {
	mu.Lock()
	active |= mask
	mu.Unlock()
}

// Disable turns off tracing for the given subsystem mask bits.
func Disable(mask int) {
	mu.Lock()
	active &^= mask
	mu.Unlock()
}

// Tracef writes a trace line tagged with module if mask intersects the
// currently active set.
func Tracef(module string, mask int, format string, a ...interface{}) {
	mu.Lock()
	on := active&mask != 0
	w := out
	mu.Unlock()
	if !on {
		return
	}
	fmt.Fprintf(w, module+": "+format+"\n", a...)
}
