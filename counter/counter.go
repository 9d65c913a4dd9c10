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

package counter

import (
	"sync/atomic"

	libatm "github.com/nabbar/golib/atomic"
)

// NotifyFunc is invoked whenever the counter's value crosses the configured
// threshold, in either direction. above reports the new side of the
// threshold. The callback must be cheap: per the concurrency model it may
// run on any goroutine performing Adjust and must not block.
type NotifyFunc func(user interface{}, above bool)

// Counter is an atomic byte counter with a high-water notify callback.
type Counter interface {
	// Adjust applies delta (positive or negative) and returns the new value.
	Adjust(delta int64) int64

	// Value returns the current value.
	Value() int64

	// SetNotify installs the notify callback, replacing any previous one.
	// The callback fires immediately if the current value is already above
	// threshold, so a late SetNotify still observes the present state.
	SetNotify(threshold int64, cb NotifyFunc, user interface{})
}

type notifyState struct {
	threshold int64
	cb        NotifyFunc
	user      interface{}
	above     bool
	armed     bool
}

type cnt struct {
	value  int64
	notify libatm.Value[*notifyState]
}

// New returns a Counter starting at zero with no notify callback armed.
func New() Counter {
	return &cnt{
		notify: libatm.NewValue[*notifyState](),
	}
}

func (c *cnt) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

func (c *cnt) Adjust(delta int64) int64 {
	v := atomic.AddInt64(&c.value, delta)
	c.evaluate(v)
	return v
}

func (c *cnt) SetNotify(threshold int64, cb NotifyFunc, user interface{}) {
	st := &notifyState{
		threshold: threshold,
		cb:        cb,
		user:      user,
		armed:     cb != nil,
	}
	c.notify.Store(st)
	c.evaluate(c.Value())
}

// evaluate re-reads the notify state and fires the callback exactly on a
// threshold crossing, flagging the new side so a second call at the same
// side is a no-op. This is the only part of the package that may execute
// concurrently with the owning transport's lock held elsewhere. The state
// is stored behind a pointer so the swap can use pointer identity instead
// of comparing a struct that embeds a non-comparable callback field.
func (c *cnt) evaluate(v int64) {
	for {
		st := c.notify.Load()
		if st == nil || !st.armed || st.cb == nil {
			return
		}

		above := v >= st.threshold
		if above == st.above {
			return
		}

		next := &notifyState{
			threshold: st.threshold,
			cb:        st.cb,
			user:      st.user,
			above:     above,
			armed:     st.armed,
		}

		if c.notify.CompareAndSwap(st, next) {
			st.cb(st.user, above)
			return
		}
	}
}
