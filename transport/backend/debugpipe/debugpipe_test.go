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

package debugpipe_test

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/auth"
	"github.com/nabbar/golib/loader"
	"github.com/nabbar/golib/transport"
	"github.com/nabbar/golib/transport/backend/debugpipe"
	"github.com/nabbar/golib/watch"
)

func TestDebugpipe(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "debugpipe Suite")
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

func (f *fakeFeeder) queue(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outgoing = append(f.outgoing, b...)
}

func (f *fakeFeeder) snapshot() ([]byte, auth.Credentials, bool, bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.fed...), f.peerCred, f.gotPeer, f.credSent, len(f.errs)
}

var _ = Describe("debugpipe Backend", func() {
	It("clears the credential-pending gate immediately on ConnectionSet", func() {
		client, server := debugpipe.NewPair()

		cf, sf := &fakeFeeder{}, &fakeFeeder{}
		Expect(client.Attach(cf)).To(Succeed())
		Expect(server.Attach(sf)).To(Succeed())

		Expect(client.ConnectionSet()).To(Succeed())
		Expect(server.ConnectionSet()).To(Succeed())

		_, _, _, credSent, _ := cf.snapshot()
		Expect(credSent).To(BeTrue())

		_, peerCred, gotPeer, _, _ := sf.snapshot()
		Expect(gotPeer).To(BeTrue())
		Expect(peerCred.Uid).To(Equal(auth.UnsetUid))
		Expect(peerCred.Pid).To(Equal(auth.UnsetPid))
	})

	It("relays bytes queued by one side's DoIteration into the other's FeedBytes", func() {
		client, server := debugpipe.NewPair()

		cf, sf := &fakeFeeder{}, &fakeFeeder{}
		Expect(client.Attach(cf)).To(Succeed())
		Expect(server.Attach(sf)).To(Succeed())

		cf.queue([]byte("ping"))
		Expect(client.DoIteration(transport.DoWriting, 0)).To(Succeed())
		Expect(server.DoIteration(transport.DoReading, 0)).To(Succeed())

		fed, _, _, _, _ := sf.snapshot()
		Expect(fed).To(Equal([]byte("ping")))

		sf.queue([]byte("pong"))
		Expect(server.DoIteration(transport.DoWriting, 0)).To(Succeed())
		Expect(client.DoIteration(transport.DoReading, 0)).To(Succeed())

		fed, _, _, _, _ = cf.snapshot()
		Expect(fed).To(Equal([]byte("pong")))
	})

	It("reports no socket file descriptor", func() {
		client, _ := debugpipe.NewPair()
		fd, ok := client.GetSocketFD()
		Expect(ok).To(BeFalse())
		Expect(fd).To(Equal(0))
	})

	It("routes a hangup/error watch condition to ReportError", func() {
		client, _ := debugpipe.NewPair()
		cf := &fakeFeeder{}
		Expect(client.Attach(cf)).To(Succeed())

		err := client.HandleWatch(nil, watch.ConditionHangup)
		Expect(err).To(HaveOccurred())

		_, _, _, _, errCount := cf.snapshot()
		Expect(errCount).To(Equal(1))
	})

	It("is idempotent on Disconnect and severs the peer link", func() {
		client, server := debugpipe.NewPair()
		cf, sf := &fakeFeeder{}, &fakeFeeder{}
		Expect(client.Attach(cf)).To(Succeed())
		Expect(server.Attach(sf)).To(Succeed())

		Expect(client.Disconnect()).To(Succeed())
		Expect(client.Disconnect()).To(Succeed())

		cf.queue([]byte("too-late"))
		err := client.DoIteration(transport.DoWriting, 0)
		Expect(err).To(HaveOccurred())
	})

	It("rendezvous-dials a registered listener name", func() {
		name := "test-bus-1"
		l, err := debugpipe.Listen(name)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = l.Close() }()

		var (
			serverSide *debugpipe.Backend
			acceptErr  error
			done       = make(chan struct{})
		)

		go func() {
			serverSide, acceptErr = l.Accept()
			close(done)
		}()

		clientSide, err := debugpipe.Dial(name)
		Expect(err).NotTo(HaveOccurred())

		Eventually(done, time.Second).Should(BeClosed())
		Expect(acceptErr).NotTo(HaveOccurred())
		Expect(serverSide).NotTo(BeNil())
		Expect(clientSide).NotTo(BeNil())
	})

	It("refuses a second Listen under the same name", func() {
		name := "test-bus-2"
		l, err := debugpipe.Listen(name)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = l.Close() }()

		_, err = debugpipe.Listen(name)
		Expect(err).To(HaveOccurred())
	})

	It("fails to dial a name nothing is listening on", func() {
		_, err := debugpipe.Dial("no-such-bus")
		Expect(err).To(HaveOccurred())
	})
})

func frame(payload []byte) []byte {
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, uint32(len(payload)))
	return append(hdr, payload...)
}

type fakeConn struct {
	delivered []*loader.Message
}

func (f *fakeConn) Lock()                    {}
func (f *fakeConn) Unlock()                  {}
func (f *fakeConn) Retain() transport.Handle { return fakeHandle{} }
func (f *fakeConn) Deliver(msg *loader.Message) {
	f.delivered = append(f.delivered, msg)
}

type fakeHandle struct{}

func (fakeHandle) Release() {}

// pump drives one full round of both transports' backend I/O and auth
// stepping, enough to carry one AUTH/OK/BEGIN line (or one message frame)
// from whichever side produced it to the other.
func pump(client, server *transport.Transport) {
	_ = client.DoIteration(transport.DoWriting|transport.DoReading, 0)
	_ = server.DoIteration(transport.DoWriting|transport.DoReading, 0)
	client.IsAuthenticated()
	server.IsAuthenticated()
}

var _ = Describe("debugpipe end-to-end", func() {
	It("carries a real Transport pair through authentication with no real socket", func() {
		clientBackend, serverBackend := debugpipe.NewPair()

		client := transport.NewClient("debug-pipe:name=bus", "server-guid", nil)
		server := transport.NewServer("server-guid", nil)
		server.SetUnixUserFunction(func(uint64, interface{}) bool { return true }, nil, nil)

		client.SetBackend(clientBackend)
		server.SetBackend(serverBackend)

		client.SetLocalCredentials(auth.Credentials{Uid: 1000, Pid: 42, Gid: 1000})

		sc := &fakeConn{}
		Expect(client.SetConnection(&fakeConn{})).To(Succeed())
		Expect(server.SetConnection(sc)).To(Succeed())

		for i := 0; i < 10 && server.State() != transport.StateAuthenticated; i++ {
			pump(client, server)
		}

		Expect(client.State()).To(Equal(transport.StateAuthenticated))
		Expect(server.State()).To(Equal(transport.StateAuthenticated))
		Expect(server.GetUnixUser()).To(Equal(uint64(1000)))
		Expect(server.GetUnixProcessID()).To(Equal(uint32(42)))

		// The framed-message hand-off itself is exercised directly against
		// Transport in transport_test.go; this scenario's job is proving the
		// debugpipe Backend alone can carry the AUTH/OK/BEGIN dialog.
		Expect(server.FeedBytes(frame([]byte("hello over debugpipe")))).To(Succeed())
		Expect(server.QueueMessages()).To(Equal(transport.Complete))
		Expect(sc.delivered).To(HaveLen(1))
		Expect(sc.delivered[0].Payload).To(Equal([]byte("hello over debugpipe")))
	})
})
