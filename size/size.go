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

// Package size provides a Size type expressing byte counts with binary
// (1024-based) units, used across this module to express buffer sizes and
// transport limits such as the live-byte high-water mark.
package size

import (
	"fmt"
)

// Size is a count of bytes. The zero value is SizeNul.
type Size uint64

const SizeNul Size = 0

const (
	SizeUnit Size = 1 << (10 * iota)
	SizeKilo
	SizeMega
	SizeGiga
	SizeTera
	SizePeta
	SizeExa
)

const (
	FormatRound0 = "%.0f"
	FormatRound1 = "%.1f"
	FormatRound2 = "%.2f"
	FormatRound3 = "%.3f"
)

var defaultUnit rune = 'B'

// SetDefaultUnit changes the rune appended by Code when called with a zero
// rune. Passing 0 resets it to 'B'.
func SetDefaultUnit(r rune) {
	if r == 0 {
		r = 'B'
	}
	defaultUnit = r
}

// prefix returns the binary-unit letter ("", "K", "M", "G", "T", "P", "E")
// and the divisor for the given size.
func (s Size) prefix() (string, Size) {
	switch {
	case s >= SizeExa:
		return "E", SizeExa
	case s >= SizePeta:
		return "P", SizePeta
	case s >= SizeTera:
		return "T", SizeTera
	case s >= SizeGiga:
		return "G", SizeGiga
	case s >= SizeMega:
		return "M", SizeMega
	case s >= SizeKilo:
		return "K", SizeKilo
	default:
		return "", SizeUnit
	}
}

// Unit returns the unit suffix for this size ("B", "KB", "MB", ...). A zero
// rune uses 'B' as the trailing letter regardless of SetDefaultUnit.
func (s Size) Unit(r rune) string {
	if r == 0 {
		r = 'B'
	}
	p, _ := s.prefix()
	return p + string(r)
}

// Code behaves like Unit but a zero rune falls back to the package-level
// default unit configured by SetDefaultUnit.
func (s Size) Code(r rune) string {
	if r == 0 {
		r = defaultUnit
	}
	p, _ := s.prefix()
	return p + string(r)
}

// Format renders the size scaled to its natural unit using the given
// fmt-style verb (see FormatRound0..FormatRound3), without a unit suffix.
func (s Size) Format(format string) string {
	_, div := s.prefix()
	return fmt.Sprintf(format, float64(s)/float64(div))
}

// String renders the size scaled to its natural unit with two decimals and
// the matching unit suffix, e.g. "5.00MB".
func (s Size) String() string {
	return s.Format(FormatRound2) + s.Unit(0)
}

func (s Size) Int64() int64   { return int64(s) }
func (s Size) Uint64() uint64 { return uint64(s) }

func (s Size) KiloBytes() uint64 { return uint64(s) / uint64(SizeKilo) }
func (s Size) MegaBytes() uint64 { return uint64(s) / uint64(SizeMega) }
func (s Size) GigaBytes() uint64 { return uint64(s) / uint64(SizeGiga) }
func (s Size) TeraBytes() uint64 { return uint64(s) / uint64(SizeTera) }
