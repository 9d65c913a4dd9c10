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

package loader

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorMessageTooLarge liberr.CodeError = iota + liberr.MinPkgLoader
	ErrorFrameCorrupt
)

func init() {
	if liberr.ExistInMapMessage(ErrorMessageTooLarge) {
		panic("loader: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorMessageTooLarge, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorMessageTooLarge:
		return "message size exceeds the configured maximum"
	case ErrorFrameCorrupt:
		return "frame length prefix is invalid"
	default:
		return liberr.NullMessage
	}
}

func errTooLarge(sz uint32, max uint32) liberr.Error {
	return ErrorMessageTooLarge.Error(fmt.Errorf("size %d exceeds max %d", sz, max))
}
