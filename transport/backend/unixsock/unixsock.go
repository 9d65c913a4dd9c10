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

package unixsock

import (
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

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

// Backend is the unixsock transport.Backend: a unix-domain socket carrying
// the framed message stream, with peer identity additionally proven out of
// band via SCM_CREDENTIALS ancillary data alongside the SASL dialog's own
// leading zero byte.
type Backend struct {
	conn     *net.UnixConn
	isServer bool
	feeder   driver
	readBuf  []byte
}

// New wraps an already-connected or already-accepted unix socket as a
// Backend. isServer selects which side of the initial credential exchange
// runs in ConnectionSet.
func New(conn *net.UnixConn, isServer bool) *Backend {
	return &Backend{conn: conn, isServer: isServer}
}

// Dial connects to the unix socket at path.
func Dial(path string) (*net.UnixConn, error) {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errDial(err)
	}
	return conn, nil
}

// Listen opens a unix socket listener at path.
func Listen(path string) (*net.UnixListener, error) {
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errListen(err)
	}
	return l, nil
}

// Open returns a transport.Opener that claims "unix:" address entries
// carrying a "path" key, dialing the socket and building a client Transport
// with this package's Backend attached. The caller still owns calling
// Transport.SetConnection once it has a Connection to attach.
func Open(alloc *libmem.Allocator) transport.Opener {
	return func(e addr.Entry) (*transport.Transport, transport.OpenResult, error) {
		if e.Method != string(config.NetworkUnix) {
			return nil, transport.NotHandled, nil
		}

		path, ok := e.Get("path")
		if !ok || path == "" {
			return nil, transport.BadAddress, errMissingPath(addr.String([]addr.Entry{e}))
		}

		conn, err := Dial(path)
		if err != nil {
			return nil, transport.DidNotConnect, err
		}

		b := New(conn, false)

		t := transport.NewClient(addr.String([]addr.Entry{e}), e.Guid(), alloc)
		t.SetLocalCredentials(auth.Credentials{
			Pid: uint32(os.Getpid()),
			Uid: uint64(os.Getuid()),
			Gid: uint64(os.Getgid()),
		})
		t.SetBackend(b)

		return t, transport.OK, nil
	}
}

// AcceptTransport accepts one connection from l and returns a server-side
// Transport with its Backend already attached. The caller still owns
// calling Transport.SetConnection once it has a Connection to attach.
func AcceptTransport(l *net.UnixListener, guid string, alloc *libmem.Allocator) (*transport.Transport, error) {
	conn, err := l.AcceptUnix()
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
		return errCredentials(fmt.Errorf("unixsock backend requires a full transport driver"))
	}
	b.feeder = d
	return nil
}

// ConnectionSet implements transport.Backend: it runs the initial
// credential exchange, the one piece of the handshake carried alongside the
// byte stream rather than inside it.
func (b *Backend) ConnectionSet() error {
	if b.feeder == nil || b.conn == nil {
		return nil
	}

	if b.isServer {
		return b.recvInitialCredentials()
	}
	return b.sendInitialCredentials()
}

// sendInitialCredentials writes the single leading zero byte the SASL
// dialog expects from a client, accompanied by this process's credentials
// as SCM_CREDENTIALS ancillary data.
func (b *Backend) sendInitialCredentials() error {
	ucred := &unix.Ucred{Pid: int32(os.Getpid()), Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
	oob := unix.UnixCredentials(ucred)

	rc, err := b.conn.SyscallConn()
	if err != nil {
		return errWrite(err)
	}

	var sendErr error
	ctrlErr := rc.Write(func(fd uintptr) bool {
		sendErr = unix.Sendmsg(int(fd), []byte{0}, oob, nil, 0)
		return sendErr != unix.EAGAIN
	})
	if ctrlErr != nil {
		return errWrite(ctrlErr)
	}
	if sendErr != nil {
		return errWrite(sendErr)
	}

	b.feeder.CredentialsSent()
	return nil
}

// recvInitialCredentials reads the client's leading zero byte and its
// accompanying SCM_CREDENTIALS ancillary data, feeding the byte into the
// SASL dialog and the parsed credentials into the Feeder.
func (b *Backend) recvInitialCredentials() error {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(unix.SizeofUcred))

	var (
		n, oobn int
		recvErr error
	)

	rc, err := b.conn.SyscallConn()
	if err != nil {
		return errRead(err)
	}

	ctrlErr := rc.Read(func(fd uintptr) bool {
		n, oobn, _, _, recvErr = unix.Recvmsg(int(fd), buf, oob, 0)
		return recvErr != unix.EAGAIN
	})
	if ctrlErr != nil {
		return errRead(ctrlErr)
	}
	if recvErr != nil {
		return errRead(recvErr)
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return errCredentials(err)
	}
	if len(scms) == 0 {
		return errCredentials(fmt.Errorf("no ancillary credentials received"))
	}

	ucred, err := unix.ParseUnixCredentials(&scms[0])
	if err != nil {
		return errCredentials(err)
	}

	b.feeder.SetPeerCredentials(auth.Credentials{
		Pid: uint32(ucred.Pid),
		Uid: uint64(ucred.Uid),
		Gid: uint64(ucred.Gid),
	})

	if n > 0 {
		return b.feeder.FeedBytes(buf[:n])
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
		err := fmt.Errorf("unixsock: socket reported hangup or error")
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

// GetSocketFD implements transport.Backend.
func (b *Backend) GetSocketFD() (int, bool) {
	if b.conn == nil {
		return 0, false
	}

	rc, err := b.conn.SyscallConn()
	if err != nil {
		return 0, false
	}

	var fd int
	if err = rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return 0, false
	}

	return fd, true
}
