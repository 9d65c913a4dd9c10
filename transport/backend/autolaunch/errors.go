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

package autolaunch

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	ErrorWatcher liberr.CodeError = iota + liberr.MinPkgBackendAutol
	ErrorReadFile
	ErrorEmptyFile
)

func init() {
	if liberr.ExistInMapMessage(ErrorWatcher) {
		panic("transport/backend/autolaunch: error code collision with another registered package")
	}

	liberr.RegisterIdFctMessage(ErrorWatcher, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorWatcher:
		return "autolaunch address file watcher could not start"
	case ErrorReadFile:
		return "autolaunch address file could not be read"
	case ErrorEmptyFile:
		return "autolaunch address file is empty"
	default:
		return liberr.NullMessage
	}
}

func errWatcher(err error) liberr.Error {
	return ErrorWatcher.Error(err)
}

func errReadFile(path string, err error) liberr.Error {
	return ErrorReadFile.Error(fmt.Errorf("%s: %w", path, err))
}

func errEmptyFile(path string) liberr.Error {
	return ErrorEmptyFile.Error(fmt.Errorf("%s", path))
}
