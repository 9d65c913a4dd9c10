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

package unixsock

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorMissingPath liberr.CodeError = iota + liberr.MinPkgBackendUnix
	ErrorDial
	ErrorListen
	ErrorAccept
	ErrorCredentials
	ErrorRead
	ErrorWrite
)

func init() {
	if liberr.ExistInMapMessage(ErrorMissingPath) {
		panic("transport/backend/unixsock: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorMissingPath, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorMissingPath:
		return "unix socket address is missing a path key"
	case ErrorDial:
		return "unix socket dial failed"
	case ErrorListen:
		return "unix socket listen failed"
	case ErrorAccept:
		return "unix socket accept failed"
	case ErrorCredentials:
		return "unix socket credential exchange failed"
	case ErrorRead:
		return "unix socket read failed"
	case ErrorWrite:
		return "unix socket write failed"
	default:
		return liberr.NullMessage
	}
}

func errMissingPath(raw string) liberr.Error {
	return ErrorMissingPath.Error(fmt.Errorf("address %q has no path key", raw))
}

func errDial(err error) liberr.Error {
	return ErrorDial.Error(err)
}

func errListen(err error) liberr.Error {
	return ErrorListen.Error(err)
}

func errAccept(err error) liberr.Error {
	return ErrorAccept.Error(err)
}

func errCredentials(err error) liberr.Error {
	return ErrorCredentials.Error(err)
}

func errRead(err error) liberr.Error {
	return ErrorRead.Error(err)
}

func errWrite(err error) liberr.Error {
	return ErrorWrite.Error(err)
}
