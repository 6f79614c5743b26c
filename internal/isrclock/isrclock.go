// Package isrclock supplies the periodic timer that stands in for the
// stepper ISR's hardware timer interrupt. The segment generator and the
// stepper goroutine only ever observe time through this package, so
// "non-hardware-timer simulation" (an explicit non-goal) is structurally
// impossible: there is no code path that advances motion by manually
// ticking a virtual clock outside of tests.
package isrclock

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


import "time"

// Clock delivers one tick per period on C until Stop is called.
type Clock interface {
	C() <-chan time.Time
	Stop()
	// Reset changes the tick period for segments whose rate differs
	// from the previous segment's.
	Reset(period time.Duration)
}

// New returns the best available Clock for period on this platform.
// Below one millisecond, time.Ticker's OS-timer granularity coalesces
// ticks on several platforms; New prefers a finer-grained
// implementation there when one is registered for the current GOOS
// (see isrclock_linux.go), and falls back to time.Ticker otherwise.
func New(period time.Duration) Clock {
	if period < time.Millisecond {
		if nc := newFineClock(period); nc != nil {
			return nc
		}
	}
	return &tickerClock{t: time.NewTicker(period)}
}

type tickerClock struct {
	t *time.Ticker
}

func (c *tickerClock) C() <-chan time.Time { return c.t.C }
func (c *tickerClock) Stop()               { c.t.Stop() }
func (c *tickerClock) Reset(period time.Duration) {
	c.t.Reset(period)
}

// newFineClock is overridden per-platform; the generic build has none.
var newFineClock = func(period time.Duration) Clock { return nil }
