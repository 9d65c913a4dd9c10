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
	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorOOM liberr.CodeError = iota + liberr.MinPkgMemAlloc
	ErrorInvalidSize
	ErrorGuardCorrupted
)

func init() {
	if liberr.ExistInMapMessage(ErrorOOM) {
		panic("memalloc: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorOOM, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorOOM:
		return "allocation failed: out of memory"
	case ErrorInvalidSize:
		return "invalid allocation size"
	case ErrorGuardCorrupted:
		return "guard band corruption detected"
	default:
		return liberr.NullMessage
	}
}

// IsOOM reports whether err is (or wraps) a memalloc out-of-memory error.
// Every allocation failure in this package is tagged with this code so
// callers can distinguish OOM from logical errors per the error taxonomy.
func IsOOM(err error) bool {
	return liberr.IsCode(err, ErrorOOM)
}

func errOOM(n int, tag string) liberr.Error {
	return liberr.Newf(ErrorOOM.Uint16(), "memalloc: allocation of %d bytes failed (tag=%q)", n, tag)
}

func errGuardCorrupted(tag string) liberr.Error {
	return liberr.Newf(ErrorGuardCorrupted.Uint16(), "memalloc: guard band corruption detected (tag=%q)", tag)
}
