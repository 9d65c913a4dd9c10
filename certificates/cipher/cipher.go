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

// Package cipher parses and formats the TLS 1.0-1.3 cipher suites tcpsock's
// optional TLS config restricts a handshake to. Only modern AEAD suites are
// known here; RC4/3DES/CBC-mode suites are deliberately absent.
package cipher

import (
	"crypto/tls"
	"strings"
)

// Cipher is a TLS cipher suite identifier, wrapping the crypto/tls uint16
// constants.
type Cipher uint16

const (
	Unknown Cipher = 0

	TLS_RSA_WITH_AES_128_GCM_SHA256              = Cipher(tls.TLS_RSA_WITH_AES_128_GCM_SHA256)
	TLS_RSA_WITH_AES_256_GCM_SHA384              = Cipher(tls.TLS_RSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256        = Cipher(tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256)
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256      = Cipher(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)
	TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384        = Cipher(tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384      = Cipher(tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384)
	TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256  = Cipher(tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256)
	TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 = Cipher(tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256)
	TLS_AES_128_GCM_SHA256                       = Cipher(tls.TLS_AES_128_GCM_SHA256)
	TLS_AES_256_GCM_SHA384                       = Cipher(tls.TLS_AES_256_GCM_SHA384)
	TLS_CHACHA20_POLY1305_SHA256                 = Cipher(tls.TLS_CHACHA20_POLY1305_SHA256)
)

// List returns every known Cipher.
func List() []Cipher {
	return []Cipher{
		TLS_RSA_WITH_AES_128_GCM_SHA256,
		TLS_RSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		TLS_AES_128_GCM_SHA256,
		TLS_AES_256_GCM_SHA384,
		TLS_CHACHA20_POLY1305_SHA256,
	}
}

func (c Cipher) code() []string {
	switch c {
	case TLS_RSA_WITH_AES_128_GCM_SHA256:
		return []string{"rsa", "aes", "128", "gcm", "sha256"}
	case TLS_RSA_WITH_AES_256_GCM_SHA384:
		return []string{"rsa", "aes", "256", "gcm", "sha384"}
	case TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256:
		return []string{"ecdhe", "rsa", "aes", "128", "gcm", "sha256"}
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return []string{"ecdhe", "ecdsa", "aes", "128", "gcm", "sha256"}
	case TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384:
		return []string{"ecdhe", "rsa", "aes", "256", "gcm", "sha384"}
	case TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384:
		return []string{"ecdhe", "ecdsa", "aes", "256", "gcm", "sha384"}
	case TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256:
		return []string{"ecdhe", "rsa", "chacha20", "poly1305", "sha256"}
	case TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256:
		return []string{"ecdhe", "ecdsa", "chacha20", "poly1305", "sha256"}
	case TLS_AES_128_GCM_SHA256:
		return []string{"aes", "128", "gcm", "sha256"}
	case TLS_AES_256_GCM_SHA384:
		return []string{"aes", "256", "gcm", "sha384"}
	case TLS_CHACHA20_POLY1305_SHA256:
		return []string{"chacha20", "poly1305", "sha256"}
	default:
		return nil
	}
}

// String renders c as its underscore-joined code, e.g. "ecdhe_rsa_aes_128_gcm_sha256".
func (c Cipher) String() string {
	return strings.Join(c.code(), "_")
}

// Uint16 returns c as the crypto/tls cipher suite constant.
func (c Cipher) Uint16() uint16 { return uint16(c) }

func containsAll(parts, want []string) bool {
	for _, w := range want {
		found := false
		for _, p := range parts {
			if p == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Parse returns the Cipher with the longest code that is a subset of s's
// underscore-split parts ("aes128"/"aes256" count as "aes" plus the key
// size), or Unknown if none match.
func Parse(s string) Cipher {
	s = strings.ToLower(s)
	for _, r := range []string{"\"", "'", "tls"} {
		s = strings.ReplaceAll(s, r, "")
	}
	for _, r := range []string{".", "-", " "} {
		s = strings.ReplaceAll(s, r, "_")
	}
	s = strings.ReplaceAll(s, "aes128", "aes_128")
	s = strings.ReplaceAll(s, "aes256", "aes_256")
	parts := strings.Split(strings.Trim(s, "_"), "_")

	best, bestLen := Unknown, 0
	for _, c := range List() {
		if code := c.code(); len(code) > bestLen && containsAll(parts, code) {
			best, bestLen = c, len(code)
		}
	}
	return best
}
