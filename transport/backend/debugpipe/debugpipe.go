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

package debugpipe

import (
	"fmt"
	"sync"

	"github.com/nabbar/golib/auth"
	libmem "github.com/nabbar/golib/memalloc"
	"github.com/nabbar/golib/transport"
	"github.com/nabbar/golib/transport/addr"
	"github.com/nabbar/golib/transport/config"
	"github.com/nabbar/golib/watch"
)

// NameKey is the address-entry key naming the in-process listener a
// "debug-pipe:" address entry dials, analogous to unixsock's "path" key.
const NameKey = "name"

var listeners sync.Map // string -> *Listener

// driver is the slice of *transport.Transport this backend needs beyond the
// narrow transport.Feeder contract: a way to pull the bytes the auth dialog
// produced so they can be handed straight to the peer Backend.
type driver interface {
	transport.Feeder
	TakeOutgoingAuthBytes() []byte
}

// Backend is the debugpipe transport.Backend: no socket, no credential
// exchange, no file descriptor. Two Backend values constructed by NewPair
// hand bytes to each other directly; DoIteration and HandleWatch never
// block on anything beyond the in-process mutex below.
type Backend struct {
	mu       sync.Mutex
	isServer bool
	feeder   driver
	peer     *Backend
	inbox    [][]byte
	closed   bool
}

// NewPair returns two linked Backend values simulating a connected
// client/server pair with no real transport underneath.
func NewPair() (client *Backend, server *Backend) {
	client = &Backend{isServer: false}
	server = &Backend{isServer: true}
	client.peer = server
	server.peer = client
	return client, server
}

// Listener accepts debugpipe connections dialed against a registered name.
type Listener struct {
	name string
	ch   chan *Backend
	once sync.Once
}

// Listen registers name in the process-wide listener registry. Dial fails
// until a matching Listen call exists.
func Listen(name string) (*Listener, error) {
	l := &Listener{name: name, ch: make(chan *Backend)}
	if _, loaded := listeners.LoadOrStore(name, l); loaded {
		return nil, errNameInUse(name)
	}
	return l, nil
}

// Accept blocks until a Dial call against l's name completes, returning the
// server-side Backend of the resulting pair.
func (l *Listener) Accept() (*Backend, error) {
	b, ok := <-l.ch
	if !ok {
		return nil, errClosed(l.name)
	}
	return b, nil
}

// Close stops accepting new connections on l. Already-accepted Backend
// pairs are unaffected.
func (l *Listener) Close() error {
	listeners.Delete(l.name)
	l.once.Do(func() { close(l.ch) })
	return nil
}

// Dial connects to the Listener registered under name, returning the
// client-side Backend of the resulting pair. It blocks until that
// Listener's Accept receives the server-side half.
func Dial(name string) (*Backend, error) {
	v, ok := listeners.Load(name)
	if !ok {
		return nil, errNoListener(name)
	}
	l := v.(*Listener)

	client, server := NewPair()
	l.ch <- server
	return client, nil
}

// Open returns a transport.Opener that claims "debug-pipe:" address entries
// carrying a "name" key, dialing the in-process listener and building a
// client Transport with this package's Backend attached. The caller still
// owns calling Transport.SetConnection once it has a Connection to attach.
func Open(alloc *libmem.Allocator) transport.Opener {
	return func(e addr.Entry) (*transport.Transport, transport.OpenResult, error) {
		if e.Method != string(config.NetworkDebugPipe) {
			return nil, transport.NotHandled, nil
		}

		name, ok := e.Get(NameKey)
		if !ok || name == "" {
			return nil, transport.BadAddress, errNoListener(addr.String([]addr.Entry{e}))
		}

		b, err := Dial(name)
		if err != nil {
			return nil, transport.DidNotConnect, err
		}

		t := transport.NewClient(addr.String([]addr.Entry{e}), e.Guid(), alloc)
		t.SetLocalCredentials(auth.Credentials{Pid: auth.UnsetPid, Uid: auth.UnsetUid, Gid: auth.UnsetUid})
		t.SetBackend(b)

		return t, transport.OK, nil
	}
}

// AcceptTransport accepts one connection from l and returns a server-side
// Transport with its Backend already attached. The caller still owns
// calling Transport.SetConnection once it has a Connection to attach.
func AcceptTransport(l *Listener, guid string, alloc *libmem.Allocator) (*transport.Transport, error) {
	b, err := l.Accept()
	if err != nil {
		return nil, err
	}

	t := transport.NewServer(guid, alloc)
	t.SetBackend(b)

	return t, nil
}

// Attach implements transport.Backend.
func (b *Backend) Attach(f transport.Feeder) error {
	d, ok := f.(driver)
	if !ok {
		return errCredentials(fmt.Errorf("debugpipe backend requires a full transport driver"))
	}
	b.mu.Lock()
	b.feeder = d
	b.mu.Unlock()
	return nil
}

// ConnectionSet implements transport.Backend. A debug pipe has no
// out-of-band identity channel, so it clears its half of the
// credential-pending gate immediately, the same way tcpsock does for a
// plain TCP connection.
func (b *Backend) ConnectionSet() error {
	b.mu.Lock()
	feeder, isServer := b.feeder, b.isServer
	b.mu.Unlock()

	if feeder == nil {
		return nil
	}

	if isServer {
		feeder.SetPeerCredentials(auth.Credentials{Pid: auth.UnsetPid, Uid: auth.UnsetUid, Gid: auth.UnsetUid})
	} else {
		feeder.CredentialsSent()
	}
	return nil
}

// DoIteration implements transport.Backend: it hands any pending outgoing
// auth bytes directly to the peer, then delivers whatever the peer has
// queued for this side. Both halves are synchronous in-process operations,
// so timeoutMs and the Block flag have no effect here.
func (b *Backend) DoIteration(flags transport.IterFlag, timeoutMs int) error {
	if flags.Has(transport.DoWriting) {
		if err := b.flushOutgoing(); err != nil {
			return err
		}
	}

	if flags.Has(transport.DoReading) {
		return b.drainInbox()
	}

	return nil
}

// HandleWatch implements transport.Backend. A debugpipe Backend reports no
// file descriptor, so it is only ever driven this way by a caller manually
// firing a watch.Watch against whatever fd it chose to register, typically
// via watch/runnerwatch.
func (b *Backend) HandleWatch(w watch.Watch, cond watch.Condition) error {
	if cond.Has(watch.ConditionHangup) || cond.Has(watch.ConditionError) {
		err := fmt.Errorf("debugpipe: peer reported hangup or error")
		b.mu.Lock()
		feeder := b.feeder
		b.mu.Unlock()
		if feeder != nil {
			feeder.ReportError(err)
		}
		return err
	}

	if cond.Has(watch.ConditionWritable) {
		if err := b.flushOutgoing(); err != nil {
			return err
		}
	}

	if cond.Has(watch.ConditionReadable) {
		return b.drainInbox()
	}

	return nil
}

func (b *Backend) flushOutgoing() error {
	b.mu.Lock()
	feeder, peer, closed := b.feeder, b.peer, b.closed
	b.mu.Unlock()

	if feeder == nil {
		return nil
	}

	out := feeder.TakeOutgoingAuthBytes()
	if len(out) == 0 {
		return nil
	}

	if peer == nil {
		err := errClosed("debugpipe")
		feeder.ReportError(err)
		return err
	}

	peer.mu.Lock()
	peer.inbox = append(peer.inbox, out)
	peer.mu.Unlock()

	return nil
}

func (b *Backend) drainInbox() error {
	b.mu.Lock()
	feeder := b.feeder
	msgs := b.inbox
	b.inbox = nil
	b.mu.Unlock()

	for _, m := range msgs {
		if err := feeder.FeedBytes(m); err != nil {
			feeder.ReportError(err)
			return err
		}
	}

	return nil
}

// Finalize implements transport.Backend.
func (b *Backend) Finalize() error {
	return b.Disconnect()
}

// Disconnect implements transport.Backend. It is idempotent, and severs the
// peer link so that a late flushOutgoing with bytes to send, on either
// side, fails instead of silently queuing bytes nobody will ever drain.
func (b *Backend) Disconnect() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	peer := b.peer
	b.peer = nil
	b.mu.Unlock()

	if peer != nil {
		peer.mu.Lock()
		peer.peer = nil
		peer.mu.Unlock()
	}

	return nil
}

// GetSocketFD implements transport.Backend. A debugpipe connection has no
// real file descriptor to report.
func (b *Backend) GetSocketFD() (int, bool) {
	return 0, false
}
