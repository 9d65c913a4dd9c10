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

package certificates

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorLoadKeyPair liberr.CodeError = iota + liberr.MinPkgCertificates
	ErrorLoadCA
	ErrorEmptyConfig
)

func init() {
	if liberr.ExistInMapMessage(ErrorLoadKeyPair) {
		panic("certificates: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorLoadKeyPair, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorLoadKeyPair:
		return "certificates: unable to load certificate/key pair"
	case ErrorLoadCA:
		return "certificates: unable to load CA bundle"
	case ErrorEmptyConfig:
		return "certificates: no certificate and no CA configured"
	default:
		return liberr.NullMessage
	}
}

func errLoadKeyPair(err error) liberr.Error {
	return ErrorLoadKeyPair.Error(err)
}

func errLoadCA(err error) liberr.Error {
	return ErrorLoadCA.Error(err)
}

func errEmptyConfig() liberr.Error {
	return ErrorEmptyConfig.Error(fmt.Errorf("certificates: Config has neither CertFile/KeyFile nor CAFile set"))
}
