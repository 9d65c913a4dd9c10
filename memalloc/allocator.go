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

// Allocator is the fallible allocation facade. The zero value is not usable;
// build one with New.
type Allocator struct {
	dbg *Debug
}

// New returns an Allocator governed by dbg. A nil dbg disables every debug
// feature (plain make([]byte, n) semantics, never fails except for a
// negative n).
func New(dbg *Debug) *Allocator {
	if dbg == nil {
		dbg = NewDebug()
	}
	return &Allocator{dbg: dbg}
}

// Debug returns the allocator's debug-mode controller.
func (a *Allocator) Debug() *Debug {
	return a.dbg
}

// Alloc allocates n bytes tagged with tag (used only for diagnostics, never
// interpreted). n == 0 returns a nil Block and nil error.
func (a *Allocator) Alloc(n int, tag string) (*Block, error) {
	return a.alloc(n, tag)
}

// AllocZeroed behaves like Alloc; make() already zeroes, but the method is
// kept distinct since the two are separate operations in the design.
func (a *Allocator) AllocZeroed(n int, tag string) (*Block, error) {
	return a.alloc(n, tag)
}

func (a *Allocator) alloc(n int, tag string) (*Block, error) {
	if n == 0 {
		return nil, nil
	}
	if n < 0 {
		return nil, errOOM(n, tag)
	}

	if a.dbg.shouldFailSize(n) {
		return nil, errOOM(n, tag)
	}
	if a.dbg.shouldFailNth() {
		return nil, errOOM(n, tag)
	}

	if !a.dbg.GuardsEnabled() {
		return &Block{raw: make([]byte, n), off: 0, size: n, tag: tag}, nil
	}

	raw := make([]byte, guardHeaderLen+n+guardTrailLen)
	writeGuardHeader(raw, n)
	writeGuardTrailer(raw[guardHeaderLen+n:])

	return &Block{raw: raw, off: guardHeaderLen, size: n, tag: tag, guarded: true}, nil
}

// Realloc resizes b to n bytes, preserving the overlapping prefix. n == 0
// frees b and returns a nil Block. A nil b behaves like Alloc.
func (a *Allocator) Realloc(b *Block, n int) (*Block, error) {
	if n == 0 {
		_ = a.Free(b)
		return nil, nil
	}
	if b == nil {
		return a.Alloc(n, "")
	}
	if !verifyGuards(b) {
		panic(errGuardCorrupted(b.tag))
	}

	nb, err := a.alloc(n, b.tag)
	if err != nil {
		return nil, err
	}

	copy(nb.Bytes(), b.Bytes())
	_ = a.Free(b)

	return nb, nil
}

// Free releases b. It is a no-op on a nil or already-freed block. A guard
// band mismatch panics, mirroring the source's abort-on-corruption contract.
func (a *Allocator) Free(b *Block) error {
	if b == nil || b.freed {
		return nil
	}
	if !verifyGuards(b) {
		panic(errGuardCorrupted(b.tag))
	}

	b.freed = true
	b.raw = nil

	return nil
}
