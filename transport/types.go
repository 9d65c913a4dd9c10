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

package transport

import (
	"github.com/nabbar/golib/auth"
	"github.com/nabbar/golib/loader"
	"github.com/nabbar/golib/transport/addr"
	"github.com/nabbar/golib/watch"
)

// IterFlag is the bit-set passed to DoIteration.
type IterFlag uint8

const (
	DoReading IterFlag = 1 << iota
	DoWriting
	Block
)

func (f IterFlag) Has(mask IterFlag) bool { return f&mask == mask }

// OpenResult is an opener's verdict on one address entry.
type OpenResult uint8

const (
	NotHandled OpenResult = iota
	OK
	BadAddress
	DidNotConnect
)

// DispatchStatus is Transport.DispatchStatus's three-way result.
type DispatchStatus uint8

const (
	Complete DispatchStatus = iota
	DataRemains
	NeedMemory
)

// Handle is a non-owning strong reference obtained from Connection.Retain,
// held only for the duration of a call that must survive the Connection's
// lock being dropped (the "paranoia ref" reference-counting strategy).
// Release must be called exactly once.
type Handle interface {
	Release()
}

// Connection is the narrow back-reference contract a Transport needs from
// its owning Connection object. The Connection itself - message queueing,
// handler dispatch, and locking beyond what is described here - is an
// external collaborator, not part of this package.
type Connection interface {
	// Lock and Unlock bracket every transport operation in steady state.
	// IsAuthenticated drops and re-acquires them around the user predicate.
	Lock()
	Unlock()

	// Retain returns a paranoia reference that keeps the Connection alive
	// while the owning transport's lock is dropped around a user callback.
	Retain() Handle

	// Deliver hands one fully parsed message to the Connection's
	// received-message queue.
	Deliver(msg *loader.Message)
}

// Backend is the per-variant dispatch contract every transport backend
// (unixsock, tcpsock, autolaunch, debugpipe) implements.
type Backend interface {
	// Attach is called once, from SetConnection, so the backend can push
	// raw bytes read off the wire into the owning transport's auth/loader
	// pipeline via Feeder.
	Attach(f Feeder) error

	Finalize() error
	Disconnect() error
	DoIteration(flags IterFlag, timeoutMs int) error
	HandleWatch(w watch.Watch, cond watch.Condition) error

	// ConnectionSet runs the backend's post-attach hook (e.g. registering
	// its initial read watch with the host loop).
	ConnectionSet() error

	// GetSocketFD reports the backend's underlying file descriptor, if it
	// has one addressable this way (debugpipe does not).
	GetSocketFD() (int, bool)
}

// Feeder is the narrow surface a Backend uses to push bytes it reads off
// the wire into the owning Transport's auth/loader pipeline, and to report
// out-of-band credential and error events.
type Feeder interface {
	// FeedBytes routes data to the Auth session while unauthenticated, or
	// to the Message Loader once authenticated.
	FeedBytes(data []byte) error

	// SetPeerCredentials records credentials obtained out of band (e.g.
	// SCM_CREDENTIALS) before the Auth session's own line-based exchange
	// reaches them.
	SetPeerCredentials(c auth.Credentials)

	// CredentialsSent tells a client-side transport that the backend has
	// completed its out-of-band credential send (e.g. the SCM_CREDENTIALS
	// accompanying the leading zero byte), clearing the
	// send-credentials-pending half of the authentication gate.
	CredentialsSent()

	// ReportError disconnects the transport with err as the cause.
	ReportError(err error)
}

// Opener attempts to claim entry. OK implies transport is non-nil; the
// other three results never return a transport.
type Opener func(entry addr.Entry) (t *Transport, result OpenResult, err error)

// UnixUserFunc is the server-side predicate consulted once auth completes.
// It receives the connecting uid and an opaque user data pointer and
// reports whether the connection is permitted.
type UnixUserFunc func(uid uint64, data interface{}) bool
