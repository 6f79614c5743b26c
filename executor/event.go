package executor

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

// Callback runs when a scheduled event fires.
type Callback func(arg int)

type timerEvent struct {
	remaining time.Duration // time until this event, relative to the previous one in the list
	cb        Callback
	arg       int
	tag       int
	prev, next *timerEvent
}

// Scheduler is a delta-time ordered event list: each event stores only
// the time remaining after the one before it, so advancing the clock
// by d is a single subtraction off the head rather than a scan of
// every pending event. The Executor advances it from its protocol loop
// and clears it on reset; events are added through Executor.DwellAfter.
type Scheduler struct {
	head, tail *timerEvent
}

// Add schedules cb to run after d, tagged with tag so it can later be
// cancelled with Cancel. d<=0 runs cb immediately and schedules
// nothing.
func (s *Scheduler) Add(d time.Duration, tag, arg int, cb Callback) {
	if d <= 0 {
		cb(arg)
		return
	}
	ev := &timerEvent{remaining: d, cb: cb, arg: arg, tag: tag}

	cur := s.head
	if cur == nil {
		s.head, s.tail = ev, ev
		return
	}
	for cur != nil {
		if ev.remaining <= cur.remaining {
			cur.remaining -= ev.remaining
			ev.prev = cur.prev
			ev.next = cur
			cur.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				s.head = ev
			}
			return
		}
		ev.remaining -= cur.remaining
		cur = cur.next
	}
	ev.prev = s.tail
	s.tail.next = ev
	s.tail = ev
}

// Cancel removes the first pending event matching tag, if any,
// donating its remaining time to the following event so the ordering
// of everything else is unaffected.
func (s *Scheduler) Cancel(tag int) {
	for ev := s.head; ev != nil; ev = ev.next {
		if ev.tag != tag {
			continue
		}
		if ev.next != nil {
			ev.next.remaining += ev.remaining
			ev.next.prev = ev.prev
		} else {
			s.tail = ev.prev
		}
		if ev.prev != nil {
			ev.prev.next = ev.next
		} else {
			s.head = ev.next
		}
		return
	}
}

// Advance moves the clock forward by d, firing every event whose
// remaining time has elapsed.
func (s *Scheduler) Advance(d time.Duration) {
	ev := s.head
	if ev == nil {
		return
	}
	ev.remaining -= d
	for ev != nil && ev.remaining <= 0 {
		over := ev.remaining
		ev.cb(ev.arg)
		s.head = ev.next
		if s.head != nil {
			s.head.prev = nil
			s.head.remaining += over
		} else {
			s.tail = nil
		}
		ev = s.head
	}
}

// Pending reports whether any event is still queued.
func (s *Scheduler) Pending() bool {
	return s.head != nil
}
