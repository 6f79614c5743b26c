//go:build linux

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


import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	newFineClock = func(period time.Duration) Clock {
		return newNanosleepClock(period)
	}
}

// nanosleepClock ticks by repeatedly calling unix.Nanosleep, which on
// Linux honours sub-millisecond durations that time.Ticker's runtime
// timer wheel otherwise coalesces. It is only selected for segment
// periods under one millisecond (very high step rates at low AMASS
// levels); time.Ticker covers everything else.
type nanosleepClock struct {
	periodNs atomic.Int64
	ch       chan time.Time
	done     chan struct{}
}

func newNanosleepClock(period time.Duration) *nanosleepClock {
	c := &nanosleepClock{
		ch:   make(chan time.Time, 1),
		done: make(chan struct{}),
	}
	c.periodNs.Store(int64(period))
	go c.run()
	return c
}

func (c *nanosleepClock) run() {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		ns := c.periodNs.Load()
		req := unix.NsecToTimespec(ns)
		for {
			rem := unix.Timespec{}
			err := unix.Nanosleep(&req, &rem)
			if err == nil {
				break
			}
			req = rem
		}
		select {
		case c.ch <- time.Now():
		default:
		}
	}
}

func (c *nanosleepClock) C() <-chan time.Time { return c.ch }
func (c *nanosleepClock) Stop()               { close(c.done) }
func (c *nanosleepClock) Reset(period time.Duration) {
	c.periodNs.Store(int64(period))
}
