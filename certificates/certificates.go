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
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/nabbar/golib/certificates/cipher"
	"github.com/nabbar/golib/certificates/tlsversion"
)

// Config describes the TLS material and policy of the *tls.Config that
// tcpsock's Dial, Listen and Open wrap a connection with. The zero value is invalid: at least one of
// CertFile/KeyFile (server/mutual-auth identity) or CAFile (client trust
// root) must be set.
type Config struct {
	// CertFile and KeyFile name a PEM certificate/private key pair this
	// side presents during the handshake. Both or neither.
	CertFile string
	KeyFile  string

	// CAFile names a PEM bundle of certificate authorities used to verify
	// the peer's certificate. Leaving it empty falls back to the host's
	// system trust store.
	CAFile string

	// ClientAuth requires the server to verify a client certificate
	// against CAFile. Ignored on the client side.
	ClientAuth bool

	// VersionMin/VersionMax bound the negotiated protocol version.
	// VersionUnknown for either leaves that bound to crypto/tls's default.
	VersionMin tlsversion.Version
	VersionMax tlsversion.Version

	// CipherSuites restricts the handshake to this list, in preference
	// order. Empty selects crypto/tls's own default suite list. Ignored
	// entirely under TLS 1.3, which crypto/tls always cipher-selects on
	// its own.
	CipherSuites []cipher.Cipher

	// ServerName overrides the client-side SNI / certificate hostname
	// check. Empty uses the dialed address's host.
	ServerName string
}

// Build constructs a *tls.Config from c. The returned config is safe to pass
// to tcpsock.Dial, tcpsock.Listen, or crypto/tls directly.
func (c Config) Build() (*tls.Config, error) {
	if c.CertFile == "" && c.CAFile == "" {
		return nil, errEmptyConfig()
	}

	cfg := &tls.Config{
		MinVersion: c.VersionMin.Uint16(),
		MaxVersion: c.VersionMax.Uint16(),
		ServerName: c.ServerName,
	}

	if c.CertFile != "" {
		crt, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, errLoadKeyPair(err)
		}
		cfg.Certificates = []tls.Certificate{crt}
	}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, errLoadCA(err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errLoadCA(os.ErrInvalid)
		}

		if c.ClientAuth {
			cfg.ClientCAs = pool
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			cfg.RootCAs = pool
		}
	}

	if len(c.CipherSuites) > 0 {
		suites := make([]uint16, 0, len(c.CipherSuites))
		for _, cs := range c.CipherSuites {
			suites = append(suites, cs.Uint16())
		}
		cfg.CipherSuites = suites
	}

	return cfg, nil
}
