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

// Package transport implements the Transport Base dispatch contract: the
// state machine shared by every backend variant (unixsock, tcpsock,
// autolaunch, debugpipe), carrying a connection from its first byte through
// SASL-style authentication into a framed message stream, with
// live-byte-counter backpressure throughout.
//
// A Transport is not safe for concurrent use. Per the cooperative
// single-threaded model it is designed for, every operation runs under the
// owning Connection's lock, with one documented exception: IsAuthenticated
// drops and re-acquires that lock around the unix-user predicate call,
// holding a paranoia reference obtained from Connection.Retain so the
// Connection cannot finalize out from under it while the lock is dropped.
package transport

import (
	"os"
	"sync/atomic"

	"github.com/nabbar/golib/auth"
	"github.com/nabbar/golib/counter"
	errpool "github.com/nabbar/golib/errors/pool"
	"github.com/nabbar/golib/loader"
	"github.com/nabbar/golib/logger"
	libmem "github.com/nabbar/golib/memalloc"
	"github.com/nabbar/golib/transport/addr"
	"github.com/nabbar/golib/transport/config"
	"github.com/nabbar/golib/watch"
)

// State is the Transport Base state machine's four positions.
type State uint32

const (
	StateFresh State = iota
	StateAuthenticating
	StateAuthenticated
	StateDisconnected
)

// Transport carries one connection through authentication into a framed
// message stream. Build one with NewClient or NewServer, attach a Backend
// with SetBackend, then drive it with SetConnection, DoIteration,
// HandleWatch, and QueueMessages.
type Transport struct {
	refcount int32
	state    uint32

	isServer bool

	alloc *libmem.Allocator
	as    auth.Session
	ld    loader.Loader
	cnt   counter.Counter
	log   logger.FuncLog

	maxLiveMessagesSize int64

	backend Backend
	conn    Connection

	address      string
	expectedGuid string

	credentials auth.Credentials

	sendCredPending bool
	recvCredPending bool

	bytesTransferred bool
	lastAuthNeedMem  bool

	authOut []byte
	pending []*loader.Message

	unixUserFn   UnixUserFunc
	unixUserData interface{}
	unixUserDtor func(interface{})
}

func newTransport(isServer bool, alloc *libmem.Allocator) *Transport {
	if alloc == nil {
		alloc = libmem.New(nil)
	}

	c := counter.New()

	t := &Transport{
		refcount:            1,
		state:                uint32(StateFresh),
		isServer:             isServer,
		alloc:                alloc,
		cnt:                  c,
		maxLiveMessagesSize:  int64(config.DefaultMaxLiveMessagesSize),
		ld:                   loader.New(alloc, c),
		credentials:          auth.Credentials{Pid: auth.UnsetPid, Uid: auth.UnsetUid, Gid: auth.UnsetUid},
		sendCredPending:      !isServer,
		recvCredPending:      isServer,
	}

	t.cnt.SetNotify(t.maxLiveMessagesSize, onLiveBytesThreshold, t)

	return t
}

// NewClient returns a fresh client-side Transport that will dial address and
// require the server to present expectedGuid (ignored if empty). alloc may
// be nil to use a plain, non-debug allocator.
func NewClient(address string, expectedGuid string, alloc *libmem.Allocator) *Transport {
	t := newTransport(false, alloc)
	t.address = address
	t.expectedGuid = expectedGuid
	t.as = auth.NewClient(expectedGuid)
	return t
}

// NewServer returns a fresh server-side Transport that will advertise guid
// during the SASL exchange. alloc may be nil to use a plain, non-debug
// allocator.
func NewServer(guid string, alloc *libmem.Allocator) *Transport {
	t := newTransport(true, alloc)
	t.as = auth.NewServer(guid)
	return t
}

// onLiveBytesThreshold is the counter.NotifyFunc installed at construction.
// The live-byte counter's notify callback is the one part of this package's
// concurrency model allowed to run on any goroutine; it must stay cheap and
// must not touch the Transport's state machine. It exists so a future
// backend can wire an edge-triggered wakeup (e.g. stop reading more off the
// wire) without polling Value() on every iteration.
func onLiveBytesThreshold(user interface{}, above bool) {
	_ = user
	_ = above
}

// Retain increments the Transport's own reference count and returns a Handle
// whose Release decrements it. The backend and any registry holding onto a
// Transport across an async boundary should use this instead of storing a
// bare pointer past a Disconnect.
func (t *Transport) Retain() Handle {
	atomic.AddInt32(&t.refcount, 1)
	return &transportHandle{t: t}
}

type transportHandle struct {
	t   *Transport
	rel int32
}

func (h *transportHandle) Release() {
	if atomic.CompareAndSwapInt32(&h.rel, 0, 1) {
		atomic.AddInt32(&h.t.refcount, -1)
	}
}

// SetBackend attaches the backend variant that performs this transport's
// actual I/O. It must be called before SetConnection.
func (t *Transport) SetBackend(b Backend) {
	t.backend = b
}

// SetLogger installs a logger.FuncLog this Transport consults for state
// transitions and disconnect causes. Nil (the default) disables logging
// entirely rather than falling back to some implicit destination.
func (t *Transport) SetLogger(fn logger.FuncLog) {
	t.log = fn
}

// logEntry returns the installed Logger, or nil if none was set. Every call
// site must guard on the result instead of assuming a default destination.
func (t *Transport) logEntry() logger.Logger {
	if t.log == nil {
		return nil
	}
	return t.log()
}

// State returns the current state-machine position.
func (t *Transport) State() State {
	return State(atomic.LoadUint32(&t.state))
}

func (t *Transport) setState(s State) {
	atomic.StoreUint32(&t.state, uint32(s))
}

// IsConnected reports whether the transport has not yet been disconnected.
func (t *Transport) IsConnected() bool {
	return t.State() != StateDisconnected
}

// Address returns the address this transport was opened against (client
// side) or is listening as part of (server side).
func (t *Transport) Address() string {
	return t.address
}

// SetAuthMechanisms restricts the SASL mechanisms this transport's auth
// session will offer (client) or accept (server).
func (t *Transport) SetAuthMechanisms(list []auth.Mechanism) error {
	return t.as.SetMechanisms(list)
}

// SetLocalCredentials supplies the credentials a client proves with the
// EXTERNAL mechanism, normally filled in by the backend from os.Getuid/Getpid
// before the first byte is sent.
func (t *Transport) SetLocalCredentials(c auth.Credentials) {
	t.as.SetLocalCredentials(c)
}

// SetMaxMessageSize caps a single incoming frame's declared payload size.
func (t *Transport) SetMaxMessageSize(n uint32) {
	t.ld.SetMaxMessageSize(n)
}

// SetMaxReceivedSize re-registers the live-byte counter's backpressure
// threshold and returns the previous value.
func (t *Transport) SetMaxReceivedSize(n int64) int64 {
	prev := t.maxLiveMessagesSize
	t.maxLiveMessagesSize = n
	t.cnt.SetNotify(n, onLiveBytesThreshold, t)
	return prev
}

// SetUnixUserFunction installs the server-side predicate consulted once
// authentication completes, returning the previously installed data value
// and destructor (if any) so the caller can release them.
func (t *Transport) SetUnixUserFunction(fn UnixUserFunc, data interface{}, dtor func(interface{})) (interface{}, func(interface{})) {
	oldData, oldDtor := t.unixUserData, t.unixUserDtor
	t.unixUserFn = fn
	t.unixUserData = data
	t.unixUserDtor = dtor
	return oldData, oldDtor
}

// GetUnixUser returns the negotiated peer uid, or auth.UnsetUid if not yet
// authenticated or the backend never supplied one.
func (t *Transport) GetUnixUser() uint64 {
	return t.credentials.Uid
}

// GetUnixProcessID returns the negotiated peer pid, or auth.UnsetPid if not
// yet authenticated or the backend never supplied one.
func (t *Transport) GetUnixProcessID() uint32 {
	return t.credentials.Pid
}

// SetConnection attaches the owning Connection. It is one-shot: a second
// call is a no-op. It also invokes the backend's ConnectionSet hook and
// attaches this transport as the backend's Feeder.
func (t *Transport) SetConnection(c Connection) error {
	if t.conn != nil {
		return nil
	}

	t.conn = c

	if t.backend == nil {
		return nil
	}

	if err := t.backend.Attach(t); err != nil {
		return err
	}

	return t.backend.ConnectionSet()
}

// GetSocketFD delegates to the backend, reporting false if the backend has
// no single addressable descriptor (e.g. debugpipe).
func (t *Transport) GetSocketFD() (int, bool) {
	if t.backend == nil {
		return 0, false
	}
	return t.backend.GetSocketFD()
}

// DoIteration drives one pass of the backend's underlying I/O.
func (t *Transport) DoIteration(flags IterFlag, timeoutMs int) error {
	if t.backend == nil {
		return nil
	}
	return t.backend.DoIteration(flags, timeoutMs)
}

// HandleWatch delegates a readiness notification to the backend. The
// backend may synchronously call back into FeedBytes from within this call.
func (t *Transport) HandleWatch(w watch.Watch, cond watch.Condition) error {
	if t.backend == nil {
		return nil
	}
	return t.backend.HandleWatch(w, cond)
}

// Disconnect tears the transport down. It is idempotent: calling it on an
// already-disconnected transport is a no-op.
func (t *Transport) Disconnect() error {
	if t.State() == StateDisconnected {
		return nil
	}

	t.setState(StateDisconnected)

	if t.backend != nil {
		return t.backend.Disconnect()
	}

	return nil
}

func (t *Transport) disconnectWithCause(err error) {
	if l := t.logEntry(); l != nil {
		l.Error("transport disconnected", err)
	}

	_ = t.Disconnect()
	if t.conn != nil {
		if f, ok := t.conn.(interface{ ReportError(error) }); ok {
			f.ReportError(err)
		}
	}
}

// ReportError implements Feeder: the backend calls this when its own I/O
// fails (read error, peer hangup) to disconnect with a cause.
func (t *Transport) ReportError(err error) {
	t.disconnectWithCause(err)
}

// CredentialsSent implements Feeder: a client-side backend calls this once
// it has completed the out-of-band credential send accompanying the leading
// zero byte.
func (t *Transport) CredentialsSent() {
	t.sendCredPending = false
}

// SetPeerCredentials implements Feeder: a server-side backend calls this
// with credentials obtained out of band (e.g. SCM_CREDENTIALS) before the
// line-based dialog reaches them.
func (t *Transport) SetPeerCredentials(c auth.Credentials) {
	t.as.SetPeerCredentials(c)
	t.recvCredPending = false
}

// FeedBytes implements Feeder: the backend calls this with bytes read off
// the wire. They are routed to the auth dialog while unauthenticated, or to
// the message loader once authenticated.
func (t *Transport) FeedBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if t.State() == StateAuthenticated {
		return t.ld.Feed(data)
	}

	if t.State() == StateFresh {
		t.setState(StateAuthenticating)
	}

	t.as.Feed(data)
	return nil
}

// IsAuthenticated drives the auth dialog one step using whatever bytes are
// currently buffered, returning whether authentication has completed. A
// server-side predicate installed with SetUnixUserFunction, if any, is
// consulted here: the Connection's lock is dropped around that call, with a
// paranoia reference held on the Connection so it cannot finalize while the
// lock is released.
func (t *Transport) IsAuthenticated() bool {
	t.lastAuthNeedMem = false

	switch t.State() {
	case StateDisconnected:
		return false
	case StateAuthenticated:
		return true
	case StateFresh:
		t.setState(StateAuthenticating)
	}

	out, st, err := t.as.Step(t.alloc)
	if len(out) > 0 {
		t.authOut = append(t.authOut, out...)
	}

	switch st {
	case auth.StateNeedMemory:
		t.lastAuthNeedMem = true
		return false

	case auth.StateRejected:
		t.disconnectWithCause(err)
		return false

	case auth.StateContinue:
		return false

	case auth.StateAuthenticated:
		return t.completeAuthentication()
	}

	return false
}

// TakeOutgoingAuthBytes returns and clears any bytes the auth dialog has
// produced (an AUTH/OK/BEGIN line) that the backend must write to the wire.
// A backend's DoIteration or HandleWatch pulls from here after each call to
// IsAuthenticated.
func (t *Transport) TakeOutgoingAuthBytes() []byte {
	out := t.authOut
	t.authOut = nil
	return out
}

// completeAuthentication applies the remaining authentication gates once the
// SASL dialog itself has reached BEGIN: both halves of the credential
// handshake must have completed, the negotiated guid must match on the
// client side, and the unix-user predicate (or, absent one, a same-uid
// check against this process) must permit the connecting uid on the server
// side.
func (t *Transport) completeAuthentication() bool {
	if t.sendCredPending || t.recvCredPending {
		return false
	}

	if !t.isServer {
		g := t.as.Guid()
		if t.expectedGuid != "" && t.expectedGuid != g {
			t.disconnectWithCause(ErrorGuidMismatch.Error())
			return false
		}
		t.expectedGuid = g
	} else if !t.checkUnixUser() {
		t.disconnectWithCause(ErrorUidRejected.Error())
		return false
	}

	t.credentials = t.as.Credentials()
	t.setState(StateAuthenticated)

	if l := t.logEntry(); l != nil {
		l.Debug("transport authenticated", nil, t.credentials.Uid, t.credentials.Pid)
	}

	return true
}

// checkUnixUser consults the installed predicate, dropping the Connection's
// lock around the call and holding a paranoia reference so the Connection
// cannot finalize while the lock is released. Absent an installed
// predicate, the connecting uid must match this process's own uid.
func (t *Transport) checkUnixUser() bool {
	uid := t.as.Credentials().Uid

	if t.unixUserFn == nil {
		return uid == uint64(os.Getuid())
	}

	if t.conn == nil {
		return t.unixUserFn(uid, t.unixUserData)
	}

	h := t.conn.Retain()
	t.conn.Unlock()

	ok := t.unixUserFn(uid, t.unixUserData)

	t.conn.Lock()
	h.Release()

	return ok
}

// transferTrailingBytes performs the one-shot hand-off of bytes the auth
// dialog buffered past its final BEGIN line into the message loader's input.
// It is gated by the bytesTransferred flag, which is set only once the
// transfer succeeds, so it runs exactly once, starting on the first dispatch
// after the Authenticating-to-Authenticated edge. A failure (out of memory decoding)
// leaves bytesTransferred false so the next dispatch retries; nothing is
// lost from the auth session's trailing buffer until this succeeds.
func (t *Transport) transferTrailingBytes() error {
	trailing := t.as.TrailingBytes()
	if len(trailing) == 0 {
		t.bytesTransferred = true
		return nil
	}

	var (
		out []byte
		err error
	)

	if t.as.NeedsDecoding() {
		out, err = t.as.Decode(t.alloc, trailing)
		if err != nil {
			return err
		}
	} else {
		out = trailing
	}

	if err = t.ld.Feed(out); err != nil {
		return err
	}

	t.as.ClearTrailingBytes()
	t.bytesTransferred = true

	return nil
}

// DispatchStatus runs the five-step algorithm that decides what a backend
// should do next: back off under backpressure, drive authentication,
// perform the one-shot trailing-byte transfer, parse buffered bytes, and
// report whether a fully parsed message is ready.
func (t *Transport) DispatchStatus() DispatchStatus {
	if t.cnt.Value() >= t.maxLiveMessagesSize {
		return Complete
	}

	if t.State() != StateAuthenticated {
		if !t.IsAuthenticated() {
			if t.lastAuthNeedMem {
				return NeedMemory
			}
			return Complete
		}
	}

	if !t.bytesTransferred {
		if err := t.transferTrailingBytes(); err != nil {
			if libmem.IsOOM(err) {
				return NeedMemory
			}
			t.disconnectWithCause(err)
			return Complete
		}
	}

	if err := t.ld.Parse(); err != nil {
		if libmem.IsOOM(err) {
			return NeedMemory
		}
		t.disconnectWithCause(ErrorCorrupted.Error(err))
		return Complete
	}

	if t.ld.PendingMessages() > 0 {
		return DataRemains
	}

	return Complete
}

// QueueMessages drains every message DispatchStatus reports ready, handing
// each to the owning Connection and "adopting" its byte size back into the
// live-byte counter: the counter tracked those bytes as unparsed input up to
// this point, and now tracks them as a queued, undelivered message. The
// Connection calls ReleaseMessage once it is done with a delivered message,
// which is the other half of that handshake. It returns the final
// DispatchStatus (Complete or NeedMemory).
func (t *Transport) QueueMessages() DispatchStatus {
	for {
		st := t.DispatchStatus()
		if st != DataRemains {
			return st
		}

		msg, ok := t.ld.Next()
		if !ok {
			return Complete
		}

		t.cnt.Adjust(int64(len(msg.Payload)))

		if t.conn != nil {
			t.conn.Deliver(msg)
		} else {
			t.pending = append(t.pending, msg)
		}
	}
}

// ReleaseMessage decrements the live-byte counter by n bytes, completing the
// adopt/release handshake for one message the Connection has finished with.
func (t *Transport) ReleaseMessage(n int) {
	t.cnt.Adjust(-int64(n))
}

// TakePendingMessages returns and clears messages queued before a Connection
// was attached via SetConnection.
func (t *Transport) TakePendingMessages() []*loader.Message {
	out := t.pending
	t.pending = nil
	return out
}

// LiveBytes returns the live-byte counter's current value.
func (t *Transport) LiveBytes() int64 {
	return t.cnt.Value()
}

// Open scans entries against openers in order, trying the openers against
// one entry before moving to the next entry. The first OK result wins. A
// BadAddress or DidNotConnect result is remembered and ends the scan of that
// entry; scanning continues with the next entry, since an address's
// semicolon-separated entries are independent alternatives. If every entry
// is exhausted with no opener ever recognizing its method, the error reports
// "Unknown address type" with the unclaimed methods and tcp and unix as
// examples of valid ones.
func Open(entries []addr.Entry, openers []Opener) (*Transport, error) {
	var (
		methods  []string
		sawKnown bool
		attempts = errpool.New()
	)

entries:
	for _, e := range entries {
		for _, op := range openers {
			t, res, err := op(e)

			switch res {
			case OK:
				return t, nil
			case BadAddress:
				sawKnown = true
				attempts.Add(ErrorBadAddress.Error(err))
				continue entries
			case DidNotConnect:
				sawKnown = true
				attempts.Add(ErrorDidNotConnect.Error(err))
				continue entries
			case NotHandled:
				methods = appendUnique(methods, e.Method)
			}
		}
	}

	if sawKnown {
		return nil, attempts.Error()
	}

	return nil, errUnknownAddressType(methods)
}

func appendUnique(list []string, s string) []string {
	for _, it := range list {
		if it == s {
			return list
		}
	}
	return append(list, s)
}
