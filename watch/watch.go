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

// Package watch declares the abstract interface a Transport uses to
// register I/O readiness and timer callbacks with the host event loop. The
// event loop itself (file-descriptor readiness, timers) is an external
// collaborator; this package only fixes the contract. The runnerwatch
// sub-package provides an in-process, manually-driven implementation used
// by tests.
package watch

import "time"

// Condition is a bit-set of I/O readiness conditions.
type Condition uint8

const (
	ConditionReadable Condition = 1 << iota
	ConditionWritable
	ConditionError
	ConditionHangup
)

// Has reports whether cond includes every bit set in mask.
func (cond Condition) Has(mask Condition) bool {
	return cond&mask == mask
}

// Watch is a registration for readiness on a single file descriptor.
type Watch interface {
	// Fd returns the watched file descriptor.
	Fd() int

	// Enabled returns the currently armed condition bits.
	Enabled() Condition

	// Enable arms the given condition bits in addition to any already armed.
	Enable(cond Condition)

	// Disable clears the given condition bits.
	Disable(cond Condition)
}

// Handler is invoked by the host loop when a Watch's descriptor becomes
// ready for one of its enabled conditions. Returning false deregisters the
// watch.
type Handler func(w Watch, cond Condition) bool

// Timeout is a registration for a recurring or one-shot timer.
type Timeout interface {
	// Interval returns the configured period.
	Interval() time.Duration

	// Enable (re)arms the timer.
	Enable()

	// Disable stops the timer without removing the registration.
	Disable()
}

// TimeoutHandler is invoked when a Timeout fires. Returning false
// deregisters the timeout (equivalent to a one-shot timer).
type TimeoutHandler func(t Timeout) bool

// Registry is the abstract host event loop surface a Transport consumes to
// register and remove watches and timeouts.
type Registry interface {
	// AddWatch registers fd for cond and returns the new Watch.
	AddWatch(fd int, cond Condition, fn Handler) (Watch, error)

	// RemoveWatch deregisters a previously added Watch.
	RemoveWatch(w Watch) error

	// AddTimeout registers a timer firing every d (or once if repeat is false).
	AddTimeout(d time.Duration, repeat bool, fn TimeoutHandler) (Timeout, error)

	// RemoveTimeout deregisters a previously added Timeout.
	RemoveTimeout(t Timeout) error
}
