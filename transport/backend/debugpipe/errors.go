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

package debugpipe

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorNameInUse liberr.CodeError = iota + liberr.MinPkgBackendDebug
	ErrorNoListener
	ErrorClosed
	ErrorCredentials
)

func init() {
	if liberr.ExistInMapMessage(ErrorNameInUse) {
		panic("transport/backend/debugpipe: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorNameInUse, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorNameInUse:
		return "debugpipe listener name is already registered"
	case ErrorNoListener:
		return "debugpipe listener name is not registered"
	case ErrorClosed:
		return "debugpipe backend is disconnected"
	case ErrorCredentials:
		return "debugpipe backend requires a full transport driver"
	default:
		return liberr.NullMessage
	}
}

func errNameInUse(name string) liberr.Error {
	return ErrorNameInUse.Error(fmt.Errorf("%s", name))
}

func errNoListener(name string) liberr.Error {
	return ErrorNoListener.Error(fmt.Errorf("%s", name))
}

func errClosed(name string) liberr.Error {
	return ErrorClosed.Error(fmt.Errorf("%s", name))
}

func errCredentials(err error) liberr.Error {
	return ErrorCredentials.Error(err)
}
