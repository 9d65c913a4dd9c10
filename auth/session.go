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

package auth

import (
	libmem "github.com/nabbar/golib/memalloc"
)

// Mechanism names a SASL authentication mechanism offered or accepted by a
// Session. Only the plaintext mechanisms are implemented: EXTERNAL proves
// identity using the caller's already-exchanged credentials (typically
// obtained out-of-band via SCM_CREDENTIALS by the transport backend),
// ANONYMOUS accepts any caller without proof.
type Mechanism string

const (
	MechanismExternal  Mechanism = "EXTERNAL"
	MechanismAnonymous Mechanism = "ANONYMOUS"
)

// UnsetUid and UnsetPid are the sentinel values reported for a Credentials
// field that the transport backend never supplied.
const (
	UnsetUid = ^uint64(0)
	UnsetPid = uint32(0)
)

// Credentials describes the peer identity negotiated, or supplied out of
// band, during authentication.
type Credentials struct {
	Pid uint32
	Uid uint64
	Gid uint64
}

// State reports the progress of a Session's dialog.
type State uint8

const (
	// StateContinue means the dialog is not finished; feed it more bytes.
	StateContinue State = iota
	// StateAuthenticated means the peer identity is established and any
	// further bytes fed belong to the message stream.
	StateAuthenticated
	// StateRejected means the dialog failed and the connection must close.
	StateRejected
	// StateNeedMemory means a Step could not proceed because the backing
	// allocator reported out-of-memory; retry after resources free up.
	StateNeedMemory
)

// Session drives one SASL-style authentication dialog. A Session is not
// safe for concurrent use; the owning Transport serializes calls to it the
// same way it serializes everything else behind its single state-machine
// lock.
type Session interface {
	// SetMechanisms restricts the mechanisms this session will accept (for
	// a server). A client session validates the list but always offers
	// EXTERNAL. An empty list leaves the current set unchanged; a new
	// session allows both implemented mechanisms.
	SetMechanisms(list []Mechanism) error

	// SetLocalCredentials supplies the credentials a client session proves
	// with the EXTERNAL mechanism.
	SetLocalCredentials(c Credentials)

	// SetPeerCredentials records credentials a server obtained out of band
	// (e.g. SCM_CREDENTIALS) before the dialog reaches them.
	SetPeerCredentials(c Credentials)

	// SetGuid sets the guid a server advertises, or the guid a client
	// requires the server to present; a mismatch on the client side
	// rejects the dialog.
	SetGuid(guid string)

	// Guid returns the negotiated guid once known.
	Guid() string

	// Feed appends bytes read off the wire to the session's internal
	// buffer. Bytes beyond what the dialog consumes become trailing bytes
	// once Step reports StateAuthenticated.
	Feed(data []byte)

	// Step advances the dialog as far as currently buffered bytes allow,
	// returning bytes to write back (if any) and the resulting state.
	Step(alloc *libmem.Allocator) ([]byte, State, error)

	// IsAuthenticated reports whether Step has reached StateAuthenticated.
	IsAuthenticated() bool

	// Credentials returns the negotiated or out-of-band peer identity.
	Credentials() Credentials

	// TrailingBytes returns bytes fed past the end of the dialog line that
	// belong to the message stream, not the auth dialog.
	TrailingBytes() []byte

	// ClearTrailingBytes discards the trailing bytes once the transport has
	// transferred them into the message loader.
	ClearTrailingBytes()

	// NeedsDecoding reports whether TrailingBytes must be passed through
	// Decode before the loader can parse them. Always false for the
	// mechanisms this package implements, but kept distinct from a bare
	// TrailingBytes read so a future encoding mechanism can flip it.
	NeedsDecoding() bool

	// Decode copies raw trailing bytes through alloc, surfacing an OOM
	// error from the allocator the same way the loader would.
	Decode(alloc *libmem.Allocator, trailing []byte) ([]byte, error)
}

// NewClient returns a Session that performs the client side of the dialog,
// initiating with an AUTH line and expecting an OK reply followed by its
// own BEGIN. guid may be empty to accept any server guid.
func NewClient(guid string) Session {
	return &dlg{
		server:  false,
		guid:    guid,
		local:   Credentials{Pid: UnsetPid, Uid: UnsetUid, Gid: UnsetUid},
		peer:    Credentials{Pid: UnsetPid, Uid: UnsetUid, Gid: UnsetUid},
		allowed: map[Mechanism]bool{MechanismExternal: true, MechanismAnonymous: true},
	}
}

// NewServer returns a Session that performs the server side of the dialog,
// waiting for a client AUTH line, replying OK <guid>, and waiting for BEGIN.
func NewServer(guid string) Session {
	return &dlg{
		server:  true,
		guid:    guid,
		local:   Credentials{Pid: UnsetPid, Uid: UnsetUid, Gid: UnsetUid},
		peer:    Credentials{Pid: UnsetPid, Uid: UnsetUid, Gid: UnsetUid},
		allowed: map[Mechanism]bool{MechanismExternal: true, MechanismAnonymous: true},
	}
}
