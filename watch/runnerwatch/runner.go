/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package runnerwatch implements watch.Registry without a real host event
// loop. Watches and timeouts are recorded in a plain map and must be fired
// explicitly by a caller (typically a test) via Fire/FireAllTimeouts. It
// exists so the transport state machine
// can be driven deterministically without a real poll/select loop.
package runnerwatch

import (
	"sync"
	"time"

	"github.com/nabbar/golib/watch"
)

type Runner struct {
	mu  sync.Mutex
	seq int
	wts map[int]*wtc
	tos map[int]*tmo
}

// New returns an empty, manually-driven watch.Registry.
func New() *Runner {
	return &Runner{
		wts: make(map[int]*wtc),
		tos: make(map[int]*tmo),
	}
}

type wtc struct {
	id   int
	fd   int
	cond watch.Condition
	fn   watch.Handler
}

func (w *wtc) Fd() int                    { return w.fd }
func (w *wtc) Enabled() watch.Condition   { return w.cond }
func (w *wtc) Enable(cond watch.Condition) { w.cond |= cond }
func (w *wtc) Disable(cond watch.Condition) { w.cond &^= cond }

type tmo struct {
	id       int
	interval time.Duration
	repeat   bool
	enabled  bool
	fn       watch.TimeoutHandler
}

func (t *tmo) Interval() time.Duration { return t.interval }
func (t *tmo) Enable()                 { t.enabled = true }
func (t *tmo) Disable()                { t.enabled = false }

func (r *Runner) AddWatch(fd int, cond watch.Condition, fn watch.Handler) (watch.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	w := &wtc{id: r.seq, fd: fd, cond: cond, fn: fn}
	r.wts[w.id] = w

	return w, nil
}

func (r *Runner) RemoveWatch(w watch.Watch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ww, ok := w.(*wtc)
	if !ok {
		return watch.ErrorUnknownWatch.Error()
	}

	delete(r.wts, ww.id)
	return nil
}

func (r *Runner) AddTimeout(d time.Duration, repeat bool, fn watch.TimeoutHandler) (watch.Timeout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t := &tmo{id: r.seq, interval: d, repeat: repeat, enabled: true, fn: fn}
	r.tos[t.id] = t

	return t, nil
}

func (r *Runner) RemoveTimeout(t watch.Timeout) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tt, ok := t.(*tmo)
	if !ok {
		return watch.ErrorUnknownTimeout.Error()
	}

	delete(r.tos, tt.id)
	return nil
}

// Fire invokes the handler of every enabled watch on fd whose enabled
// condition intersects cond, as the host loop would on readiness. A handler
// returning false deregisters its watch.
func (r *Runner) Fire(fd int, cond watch.Condition) {
	r.mu.Lock()
	var matched []*wtc
	for _, w := range r.wts {
		if w.fd == fd && w.cond&cond != 0 {
			matched = append(matched, w)
		}
	}
	r.mu.Unlock()

	for _, w := range matched {
		if !w.fn(w, cond&w.cond) {
			r.mu.Lock()
			delete(r.wts, w.id)
			r.mu.Unlock()
		}
	}
}

// FireAllTimeouts invokes every enabled timeout's handler once, as a test
// driver for time-based behavior without sleeping for real durations.
func (r *Runner) FireAllTimeouts() {
	r.mu.Lock()
	var matched []*tmo
	for _, t := range r.tos {
		if t.enabled {
			matched = append(matched, t)
		}
	}
	r.mu.Unlock()

	for _, t := range matched {
		if !t.fn(t) || !t.repeat {
			r.mu.Lock()
			delete(r.tos, t.id)
			r.mu.Unlock()
		}
	}
}
