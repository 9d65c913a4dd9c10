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

package memalloc

import (
	"os"
	"strconv"

	libatm "github.com/nabbar/golib/atomic"
	libsiz "github.com/nabbar/golib/size"
)

const (
	// EnvFailNth fails every nth allocation; see Debug.SetFailNth.
	EnvFailNth = "DBUS_MALLOC_FAIL_NTH"
	// EnvFailGreaterThan fails allocations whose size exceeds the given size string.
	EnvFailGreaterThan = "DBUS_MALLOC_FAIL_GREATER_THAN"
	// EnvGuards enables guard-band corruption detection.
	EnvGuards = "DBUS_MALLOC_GUARDS"
	// EnvDisablePools is recognized for source compatibility; this allocator
	// never pools, so it is read but has no additional effect here.
	EnvDisablePools = "DBUS_DISABLE_MEM_POOLS"
)

// Debug centralizes the allocator's debug-mode state in a single injectable
// object instead of module globals read lazily at first use.
// NewFromEnvironment reads the environment once per call and is not called
// by this package itself; tests can instead build a Debug directly and drive deterministic policies without
// touching the environment at all.
type Debug struct {
	nthInit libatm.Value[int64]
	nthLeft libatm.Value[int64]
	capSize libatm.Value[libsiz.Size]
	guards  libatm.Value[bool]
	noPools libatm.Value[bool]
}

// NewDebug returns a Debug with every feature disabled.
func NewDebug() *Debug {
	return &Debug{
		nthInit: libatm.NewValue[int64](),
		nthLeft: libatm.NewValue[int64](),
		capSize: libatm.NewValue[libsiz.Size](),
		guards:  libatm.NewValue[bool](),
		noPools: libatm.NewValue[bool](),
	}
}

// NewFromEnvironment builds a Debug by reading the DBUS_MALLOC_* variables
// once. Unset variables leave the corresponding feature disabled.
func NewFromEnvironment() *Debug {
	d := NewDebug()

	if v, ok := os.LookupEnv(EnvFailNth); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			d.SetFailNth(n)
		}
	}

	if v, ok := os.LookupEnv(EnvFailGreaterThan); ok {
		if s, err := libsiz.Parse(v); err == nil {
			d.SetFailGreaterThan(s)
		}
	}

	if _, ok := os.LookupEnv(EnvGuards); ok {
		d.SetGuards(true)
	}

	if _, ok := os.LookupEnv(EnvDisablePools); ok {
		d.SetDisablePools(true)
	}

	return d
}

// SetFailNth arms the decrementing Nth-failure counter: the nth allocation
// from now fails, and the counter then resets to n. n <= 0 disables it.
func (d *Debug) SetFailNth(n int64) {
	d.nthInit.Store(n)
	d.nthLeft.Store(n)
}

// SetFailGreaterThan fails any allocation strictly larger than s. A zero
// size disables the cap.
func (d *Debug) SetFailGreaterThan(s libsiz.Size) {
	d.capSize.Store(s)
}

// SetGuards toggles guard-band corruption detection.
func (d *Debug) SetGuards(b bool) {
	d.guards.Store(b)
}

// SetDisablePools is kept for parity with the debug environment surface;
// this allocator has no pooling layer to bypass.
func (d *Debug) SetDisablePools(b bool) {
	d.noPools.Store(b)
}

func (d *Debug) GuardsEnabled() bool { return d.guards.Load() }
func (d *Debug) PoolsDisabled() bool { return d.noPools.Load() }

// shouldFailNth decrements the countdown and reports whether this call is
// the one that must fail. On the triggering call the counter resets to its
// initial value so the pattern repeats.
func (d *Debug) shouldFailNth() bool {
	init := d.nthInit.Load()
	if init <= 0 {
		return false
	}

	left := d.nthLeft.Load()
	if left <= 1 {
		d.nthLeft.Store(init)
		return true
	}

	d.nthLeft.Store(left - 1)
	return false
}

func (d *Debug) shouldFailSize(n int) bool {
	capv := d.capSize.Load()
	return capv > 0 && libsiz.Size(n) > capv
}
