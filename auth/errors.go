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

package auth

import (
	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorBadMechanism liberr.CodeError = iota + liberr.MinPkgAuth
	ErrorMalformedLine
	ErrorGuidMismatch
	ErrorRejected
)

func init() {
	if liberr.ExistInMapMessage(ErrorBadMechanism) {
		panic("auth: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorBadMechanism, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorBadMechanism:
		return "unsupported or disallowed SASL mechanism"
	case ErrorMalformedLine:
		return "malformed SASL dialog line"
	case ErrorGuidMismatch:
		return "server guid does not match the expected guid"
	case ErrorRejected:
		return "authentication rejected"
	default:
		return liberr.NullMessage
	}
}
