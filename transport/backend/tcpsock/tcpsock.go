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

package tcpsock

import (
	"crypto/tls"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/nabbar/golib/auth"
	libmem "github.com/nabbar/golib/memalloc"
	"github.com/nabbar/golib/transport"
	"github.com/nabbar/golib/transport/addr"
	"github.com/nabbar/golib/transport/config"
	"github.com/nabbar/golib/watch"
)

const readBufferSize = 64 * 1024

// driver is the slice of *transport.Transport this backend needs beyond the
// narrow transport.Feeder contract: a way to pull the bytes the auth dialog
// produced so they can be written back to the socket.
type driver interface {
	transport.Feeder
	TakeOutgoingAuthBytes() []byte
}

// Backend is the tcpsock transport.Backend: a plain or TLS-wrapped TCP
// connection. A TCP peer proves nothing about its identity to the kernel,
// so unlike unixsock there is no out-of-band credential exchange here:
// ConnectionSet clears the credential-pending gate immediately with the
// auth package's unset sentinels, and identity (if any) is left to
// whichever SASL mechanism the dialog negotiates.
type Backend struct {
	conn     net.Conn
	isServer bool
	feeder   driver
	readBuf  []byte
}

// New wraps an already-connected or already-accepted TCP (or TLS) conn as a
// Backend. isServer selects which side's ConnectionSet clears its own
// credential-pending half of the gate.
func New(conn net.Conn, isServer bool) *Backend {
	return &Backend{conn: conn, isServer: isServer}
}

// Dial connects to address ("host:port"). A non-nil tlsConf wraps the dial
// in a TLS client handshake.
func Dial(address string, tlsConf *tls.Config) (net.Conn, error) {
	if tlsConf != nil {
		conn, err := tls.Dial("tcp", address, tlsConf)
		if err != nil {
			return nil, errDial(err)
		}
		return conn, nil
	}

	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errDial(err)
	}
	return conn, nil
}

// Listen opens a TCP listener at address. A non-nil tlsConf wraps every
// accepted connection in a TLS server handshake.
func Listen(address string, tlsConf *tls.Config) (net.Listener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errListen(err)
	}
	if tlsConf != nil {
		return tls.NewListener(l, tlsConf), nil
	}
	return l, nil
}

// Open returns a transport.Opener that claims "tcp:" address entries
// carrying an "address" key, dialing the connection (wrapped in TLS when
// tlsConf is non-nil) and building a client Transport with this package's
// Backend attached. The caller still owns calling Transport.SetConnection
// once it has a Connection to attach.
func Open(alloc *libmem.Allocator, tlsConf *tls.Config) transport.Opener {
	return func(e addr.Entry) (*transport.Transport, transport.OpenResult, error) {
		if e.Method != string(config.NetworkTCP) {
			return nil, transport.NotHandled, nil
		}

		address, ok := e.Get("address")
		if !ok || address == "" {
			return nil, transport.BadAddress, errMissingAddress(addr.String([]addr.Entry{e}))
		}

		conn, err := Dial(address, tlsConf)
		if err != nil {
			return nil, transport.DidNotConnect, err
		}

		b := New(conn, false)

		t := transport.NewClient(addr.String([]addr.Entry{e}), e.Guid(), alloc)
		t.SetBackend(b)

		return t, transport.OK, nil
	}
}

// AcceptTransport accepts one connection from l and returns a server-side
// Transport with its Backend already attached. The caller still owns
// calling Transport.SetConnection once it has a Connection to attach.
func AcceptTransport(l net.Listener, guid string, alloc *libmem.Allocator) (*transport.Transport, error) {
	conn, err := l.Accept()
	if err != nil {
		return nil, errAccept(err)
	}

	b := New(conn, true)

	t := transport.NewServer(guid, alloc)
	t.SetBackend(b)

	return t, nil
}

// Attach implements transport.Backend.
func (b *Backend) Attach(f transport.Feeder) error {
	d, ok := f.(driver)
	if !ok {
		return errRead(fmt.Errorf("tcpsock backend requires a full transport driver"))
	}
	b.feeder = d
	return nil
}

// ConnectionSet implements transport.Backend. A TCP connection carries no
// verifiable peer identity, so both sides simply clear their own half of
// the credential-pending gate with the unset sentinels.
func (b *Backend) ConnectionSet() error {
	if b.feeder == nil {
		return nil
	}

	if b.isServer {
		b.feeder.SetPeerCredentials(auth.Credentials{Pid: auth.UnsetPid, Uid: auth.UnsetUid, Gid: auth.UnsetUid})
	} else {
		b.feeder.CredentialsSent()
	}

	return nil
}

// DoIteration implements transport.Backend: it flushes any auth bytes
// pending a write, then reads whatever is available off the socket.
func (b *Backend) DoIteration(flags transport.IterFlag, timeoutMs int) error {
	if b.conn == nil || b.feeder == nil {
		return nil
	}

	if flags.Has(transport.DoWriting) {
		if err := b.flushOutgoing(); err != nil {
			return err
		}
	}

	if flags.Has(transport.DoReading) {
		return b.readOnce(flags.Has(transport.Block), timeoutMs)
	}

	return nil
}

// HandleWatch implements transport.Backend.
func (b *Backend) HandleWatch(w watch.Watch, cond watch.Condition) error {
	if cond.Has(watch.ConditionHangup) || cond.Has(watch.ConditionError) {
		err := fmt.Errorf("tcpsock: socket reported hangup or error")
		if b.feeder != nil {
			b.feeder.ReportError(err)
		}
		return err
	}

	if cond.Has(watch.ConditionWritable) {
		if err := b.flushOutgoing(); err != nil {
			return err
		}
	}

	if cond.Has(watch.ConditionReadable) {
		return b.readOnce(false, 0)
	}

	return nil
}

func (b *Backend) flushOutgoing() error {
	out := b.feeder.TakeOutgoingAuthBytes()
	if len(out) == 0 {
		return nil
	}

	if _, err := b.conn.Write(out); err != nil {
		b.feeder.ReportError(err)
		return errWrite(err)
	}

	return nil
}

func (b *Backend) readOnce(block bool, timeoutMs int) error {
	switch {
	case block:
		_ = b.conn.SetReadDeadline(time.Time{})
	case timeoutMs > 0:
		_ = b.conn.SetReadDeadline(time.Now().Add(time.Duration(timeoutMs) * time.Millisecond))
	default:
		_ = b.conn.SetReadDeadline(time.Now())
	}

	if b.readBuf == nil {
		b.readBuf = make([]byte, readBufferSize)
	}

	n, err := b.conn.Read(b.readBuf)
	if n > 0 {
		if ferr := b.feeder.FeedBytes(b.readBuf[:n]); ferr != nil {
			b.feeder.ReportError(ferr)
			return ferr
		}
	}

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		b.feeder.ReportError(err)
		return errRead(err)
	}

	return nil
}

// Finalize implements transport.Backend.
func (b *Backend) Finalize() error {
	return b.Disconnect()
}

// Disconnect implements transport.Backend. It is idempotent.
func (b *Backend) Disconnect() error {
	if b.conn == nil {
		return nil
	}

	err := b.conn.Close()
	b.conn = nil

	if err != nil {
		return errWrite(err)
	}
	return nil
}

// GetSocketFD implements transport.Backend. It reports false for a TLS
// connection, which has no single addressable descriptor distinct from its
// underlying plain socket.
func (b *Backend) GetSocketFD() (int, bool) {
	sc, ok := b.conn.(syscall.Conn)
	if !ok {
		return 0, false
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}

	var fd int
	if err = rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return 0, false
	}

	return fd, true
}
