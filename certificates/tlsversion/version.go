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

// Package tlsversion parses and formats the minimum/maximum TLS protocol
// version a tcpsock connection negotiates when it is given a *tls.Config.
package tlsversion

import (
	"crypto/tls"
	"strings"
)

// Version is a TLS protocol version, wrapping the crypto/tls int constants.
type Version int

const (
	VersionUnknown Version = iota
	VersionTLS10           = Version(tls.VersionTLS10)
	VersionTLS11           = Version(tls.VersionTLS11)
	VersionTLS12           = Version(tls.VersionTLS12)
	VersionTLS13           = Version(tls.VersionTLS13)
)

// String renders v as a human label, e.g. "TLS 1.2".
func (v Version) String() string {
	switch v {
	case VersionTLS10:
		return "TLS 1.0"
	case VersionTLS11:
		return "TLS 1.1"
	case VersionTLS12:
		return "TLS 1.2"
	case VersionTLS13:
		return "TLS 1.3"
	default:
		return ""
	}
}

// Uint16 returns v as the crypto/tls version constant, or 0 if unknown.
func (v Version) Uint16() uint16 {
	switch v {
	case VersionTLS10:
		return tls.VersionTLS10
	case VersionTLS11:
		return tls.VersionTLS11
	case VersionTLS12:
		return tls.VersionTLS12
	case VersionTLS13:
		return tls.VersionTLS13
	default:
		return 0
	}
}

// Parse returns the Version matching s ("1.2", "tls1.2", "TLS 1.2", ...),
// or VersionUnknown if s matches none of the four known versions.
func Parse(s string) Version {
	s = strings.ToLower(s)
	for _, r := range []string{"\"", "'", "tls", "ssl", ".", "-", "_", " "} {
		s = strings.ReplaceAll(s, r, "")
	}
	s = strings.TrimSpace(s)

	switch s {
	case "1", "10":
		return VersionTLS10
	case "11":
		return VersionTLS11
	case "12":
		return VersionTLS12
	case "13":
		return VersionTLS13
	default:
		return VersionUnknown
	}
}

// List returns every known Version, highest first.
func List() []Version {
	return []Version{VersionTLS13, VersionTLS12, VersionTLS11, VersionTLS10}
}
