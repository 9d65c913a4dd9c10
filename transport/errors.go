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

package transport

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
	"github.com/nabbar/golib/transport/config"
)

const (
	ErrorUnknownAddressType liberr.CodeError = iota + liberr.MinPkgTransport
	ErrorBadAddress
	ErrorDidNotConnect
	ErrorDisconnected
	ErrorGuidMismatch
	ErrorUidRejected
	ErrorCorrupted
	ErrorNeedMemory
)

func init() {
	if liberr.ExistInMapMessage(ErrorUnknownAddressType) {
		panic("transport: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorUnknownAddressType, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorUnknownAddressType:
		return "Unknown address type"
	case ErrorBadAddress:
		return "malformed transport address"
	case ErrorDidNotConnect:
		return "address was valid but no backend could establish a session"
	case ErrorDisconnected:
		return "transport is disconnected"
	case ErrorGuidMismatch:
		return "server guid does not match expected_guid"
	case ErrorUidRejected:
		return "connecting uid was rejected"
	case ErrorCorrupted:
		return "message stream corrupted"
	case ErrorNeedMemory:
		return "allocator reported out of memory"
	default:
		return liberr.NullMessage
	}
}

func errUnknownAddressType(methods []string) liberr.Error {
	return ErrorUnknownAddressType.Error(fmt.Errorf("no opener claimed methods %v; examples of valid types are %q and %q", methods, config.NetworkTCP, config.NetworkUnix))
}
