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

//go:build linux

package unixsock_test

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/auth"
	"github.com/nabbar/golib/transport"
	"github.com/nabbar/golib/transport/backend/unixsock"
	"github.com/nabbar/golib/watch"
)

func TestUnixSock(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "unixsock Suite")
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

func socketPair() (server, client *unixsock.Backend, cleanup func()) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("unixsock-test-%d.sock", time.Now().UnixNano()))

	l, err := unixsock.Listen(path)
	Expect(err).NotTo(HaveOccurred())

	accepted := make(chan *net.UnixConn, 1)
	go func() {
		c, _ := l.AcceptUnix()
		accepted <- c
	}()

	clientConn, err := unixsock.Dial(path)
	Expect(err).NotTo(HaveOccurred())

	serverConn := <-accepted
	Expect(serverConn).NotTo(BeNil())

	server = unixsock.New(serverConn, true)
	client = unixsock.New(clientConn, false)

	cleanup = func() {
		_ = l.Close()
		_ = os.Remove(path)
	}

	return server, client, cleanup
}

var _ = Describe("unixsock Backend", func() {
	It("exchanges SCM_CREDENTIALS and the leading zero byte during ConnectionSet", func() {
		server, client, cleanup := socketPair()
		defer cleanup()

		sf := &fakeFeeder{}
		cf := &fakeFeeder{}

		Expect(server.Attach(sf)).To(Succeed())
		Expect(client.Attach(cf)).To(Succeed())

		done := make(chan error, 1)
		go func() { done <- server.ConnectionSet() }()

		Expect(client.ConnectionSet()).To(Succeed())
		Expect(<-done).To(Succeed())

		fed, gotPeer, peer, _, _ := sf.snapshot()
		Expect(fed).To(Equal([]byte{0}))
		Expect(gotPeer).To(BeTrue())
		Expect(peer.Uid).To(Equal(uint64(os.Getuid())))
		Expect(peer.Pid).To(Equal(uint32(os.Getpid())))

		_, _, _, credSent, _ := cf.snapshot()
		Expect(credSent).To(BeTrue())
	})

	It("relays outgoing auth bytes and incoming bytes through DoIteration", func() {
		server, client, cleanup := socketPair()
		defer cleanup()

		sf := &fakeFeeder{}
		cf := &fakeFeeder{}
		Expect(server.Attach(sf)).To(Succeed())
		Expect(client.Attach(cf)).To(Succeed())

		done := make(chan error, 1)
		go func() { done <- server.ConnectionSet() }()
		Expect(client.ConnectionSet()).To(Succeed())
		Expect(<-done).To(Succeed())

		cf.mu.Lock()
		cf.outgoing = []byte("AUTH EXTERNAL\r\n")
		cf.mu.Unlock()

		Expect(client.DoIteration(transport.DoWriting, 0)).To(Succeed())
		Expect(server.DoIteration(transport.DoReading, 200)).To(Succeed())

		fed, _, _, _, _ := sf.snapshot()
		Expect(fed).To(Equal([]byte("AUTH EXTERNAL\r\n")))
	})

	It("reports a usable socket file descriptor", func() {
		server, client, cleanup := socketPair()
		defer cleanup()

		fd, ok := server.GetSocketFD()
		Expect(ok).To(BeTrue())
		Expect(fd).To(BeNumerically(">", 0))

		fd, ok = client.GetSocketFD()
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

	It("disconnects idempotently", func() {
		server, _, cleanup := socketPair()
		defer cleanup()

		Expect(server.Disconnect()).To(Succeed())
		Expect(server.Disconnect()).To(Succeed())

		_, ok := server.GetSocketFD()
		Expect(ok).To(BeFalse())
	})
})
