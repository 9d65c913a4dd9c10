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

package tcpsock_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/auth"
	"github.com/nabbar/golib/certificates"
	"github.com/nabbar/golib/transport"
	"github.com/nabbar/golib/transport/backend/tcpsock"
	"github.com/nabbar/golib/watch"
)

func TestTCPSock(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "tcpsock Suite")
}

type fakeFeeder struct {
	mu       sync.Mutex
	fed      []byte
	peerCred auth.Credentials
	gotPeer  bool
	credSent bool
	errs     []error
	outgoing []byte
}

func (f *fakeFeeder) FeedBytes(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fed = append(f.fed, data...)
	return nil
}

func (f *fakeFeeder) SetPeerCredentials(c auth.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peerCred = c
	f.gotPeer = true
}

func (f *fakeFeeder) CredentialsSent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credSent = true
}

func (f *fakeFeeder) ReportError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeFeeder) TakeOutgoingAuthBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.outgoing
	f.outgoing = nil
	return out
}

func (f *fakeFeeder) snapshot() (fed []byte, gotPeer bool, peer auth.Credentials, credSent bool, errs []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte{}, f.fed...), f.gotPeer, f.peerCred, f.credSent, append([]error{}, f.errs...)
}

func socketPair() (server, client *tcpsock.Backend, cleanup func()) {
	l, err := tcpsock.Listen("127.0.0.1:0", nil)
	Expect(err).NotTo(HaveOccurred())

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := l.Accept()
		accepted <- c
	}()

	clientConn, err := tcpsock.Dial(l.Addr().String(), nil)
	Expect(err).NotTo(HaveOccurred())

	serverConn := <-accepted
	Expect(serverConn).NotTo(BeNil())

	server = tcpsock.New(serverConn, true)
	client = tcpsock.New(clientConn, false)

	cleanup = func() {
		_ = server.Disconnect()
		_ = client.Disconnect()
		_ = l.Close()
	}

	return server, client, cleanup
}

var _ = Describe("tcpsock Backend", func() {
	It("clears the credential-pending gate on ConnectionSet without any handshake", func() {
		server, client, cleanup := socketPair()
		defer cleanup()

		sf := &fakeFeeder{}
		cf := &fakeFeeder{}
		Expect(server.Attach(sf)).To(Succeed())
		Expect(client.Attach(cf)).To(Succeed())

		Expect(server.ConnectionSet()).To(Succeed())
		Expect(client.ConnectionSet()).To(Succeed())

		_, gotPeer, peer, _, _ := sf.snapshot()
		Expect(gotPeer).To(BeTrue())
		Expect(peer.Uid).To(Equal(auth.UnsetUid))

		_, _, _, credSent, _ := cf.snapshot()
		Expect(credSent).To(BeTrue())
	})

	It("relays outgoing auth bytes and incoming payload bytes through DoIteration", func() {
		server, client, cleanup := socketPair()
		defer cleanup()

		sf := &fakeFeeder{}
		cf := &fakeFeeder{}
		Expect(server.Attach(sf)).To(Succeed())
		Expect(client.Attach(cf)).To(Succeed())
		Expect(server.ConnectionSet()).To(Succeed())
		Expect(client.ConnectionSet()).To(Succeed())

		cf.mu.Lock()
		cf.outgoing = []byte("AUTH ANONYMOUS\r\n")
		cf.mu.Unlock()

		Expect(client.DoIteration(transport.DoWriting, 0)).To(Succeed())
		Expect(server.DoIteration(transport.DoReading, 200)).To(Succeed())

		fed, _, _, _, _ := sf.snapshot()
		Expect(fed).To(Equal([]byte("AUTH ANONYMOUS\r\n")))
	})

	It("reports a usable socket file descriptor for a plain connection", func() {
		server, _, cleanup := socketPair()
		defer cleanup()

		fd, ok := server.GetSocketFD()
		Expect(ok).To(BeTrue())
		Expect(fd).To(BeNumerically(">", 0))
	})

	It("routes a hangup watch condition to the feeder's ReportError", func() {
		server, _, cleanup := socketPair()
		defer cleanup()

		sf := &fakeFeeder{}
		Expect(server.Attach(sf)).To(Succeed())

		err := server.HandleWatch(nil, watch.ConditionHangup)
		Expect(err).To(HaveOccurred())

		_, _, _, _, errs := sf.snapshot()
		Expect(errs).To(HaveLen(1))
	})
})

// writeSelfSignedPair generates an ephemeral ECDSA cert/key pair valid for
// "127.0.0.1" and writes both as PEM files under dir.
func writeSelfSignedPair(dir string) (certPath, keyPath string) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).NotTo(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	Expect(err).NotTo(HaveOccurred())

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	Expect(err).NotTo(HaveOccurred())
	Expect(pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der})).To(Succeed())
	Expect(certOut.Close()).To(Succeed())

	keyDer, err := x509.MarshalECPrivateKey(key)
	Expect(err).NotTo(HaveOccurred())

	keyOut, err := os.Create(keyPath)
	Expect(err).NotTo(HaveOccurred())
	Expect(pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer})).To(Succeed())
	Expect(keyOut.Close()).To(Succeed())

	return certPath, keyPath
}

var _ = Describe("tcpsock over TLS", func() {
	It("dials and accepts through a certificates.Config-built *tls.Config", func() {
		dir, err := os.MkdirTemp("", "tcpsock-tls-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = os.RemoveAll(dir) }()

		certPath, keyPath := writeSelfSignedPair(dir)

		serverConf, err := certificates.Config{CertFile: certPath, KeyFile: keyPath}.Build()
		Expect(err).NotTo(HaveOccurred())

		clientConf, err := certificates.Config{CAFile: certPath, ServerName: "127.0.0.1"}.Build()
		Expect(err).NotTo(HaveOccurred())

		ln, err := tcpsock.Listen("127.0.0.1:0", serverConf)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = ln.Close() }()

		accepted := make(chan net.Conn, 1)
		acceptErr := make(chan error, 1)
		go func() {
			c, e := ln.Accept()
			accepted <- c
			acceptErr <- e
		}()

		clientConn, err := tcpsock.Dial(ln.Addr().String(), clientConf)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = clientConn.Close() }()

		serverConn := <-accepted
		Expect(<-acceptErr).NotTo(HaveOccurred())
		defer func() { _ = serverConn.Close() }()

		go func() { _, _ = clientConn.Write([]byte("hello")) }()

		Expect(serverConn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
		buf := make([]byte, 5)
		n, err := serverConn.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))
		Expect(buf).To(Equal([]byte("hello")))
	})
})
