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
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	liberr "github.com/nabbar/golib/errors"
	libmem "github.com/nabbar/golib/memalloc"
)

type phase uint8

const (
	phaseInit phase = iota
	phaseWaitingAuth
	phaseWaitingOK
	phaseWaitingBegin
	phaseDone
)

type dlg struct {
	server  bool
	allowed map[Mechanism]bool

	guid string

	local Credentials
	peer  Credentials

	buf           []byte
	seenFirstByte bool

	phase    phase
	rejected bool

	trailing []byte
}

func (d *dlg) SetMechanisms(list []Mechanism) error {
	if len(list) == 0 {
		return nil
	}

	m := make(map[Mechanism]bool, len(list))
	for _, it := range list {
		if it != MechanismExternal && it != MechanismAnonymous {
			return ErrorBadMechanism.Error(fmt.Errorf("%q", it))
		}
		m[it] = true
	}

	d.allowed = m
	return nil
}

func (d *dlg) SetLocalCredentials(c Credentials) { d.local = c }
func (d *dlg) SetPeerCredentials(c Credentials)  { d.peer = c }

func (d *dlg) SetGuid(guid string) { d.guid = guid }
func (d *dlg) Guid() string        { return d.guid }

func (d *dlg) Feed(data []byte) {
	if len(data) == 0 {
		return
	}

	if !d.seenFirstByte {
		d.seenFirstByte = true
		if d.server && data[0] == 0 {
			data = data[1:]
		}
	}

	d.buf = append(d.buf, data...)
}

func (d *dlg) IsAuthenticated() bool { return d.phase == phaseDone && !d.rejected }
func (d *dlg) Credentials() Credentials { return d.peer }

func (d *dlg) TrailingBytes() []byte  { return d.trailing }
func (d *dlg) ClearTrailingBytes()    { d.trailing = nil }
func (d *dlg) NeedsDecoding() bool    { return false }

func (d *dlg) Decode(alloc *libmem.Allocator, trailing []byte) ([]byte, error) {
	if len(trailing) == 0 {
		return nil, nil
	}

	b, err := alloc.Alloc(len(trailing), "auth.trailing")
	if err != nil {
		return nil, err
	}

	copy(b.Bytes(), trailing)
	return b.Bytes(), nil
}

// Step advances the dialog as far as buffered bytes allow. alloc is unused
// by the line-oriented half of the dialog (SASL lines are small and never
// subject to OOM injection); it exists so Step's signature matches Decode's
// and a future mechanism needing scratch space has somewhere to get it.
func (d *dlg) Step(alloc *libmem.Allocator) ([]byte, State, error) {
	if d.rejected {
		return nil, StateRejected, ErrorRejected.Error()
	}

	var out []byte

	for {
		switch d.phase {
		case phaseInit:
			if d.server {
				d.phase = phaseWaitingAuth
				continue
			}

			d.phase = phaseWaitingOK
			return append(out, d.buildAuthLine()...), StateContinue, nil

		case phaseWaitingAuth:
			line, ok := d.popLine()
			if !ok {
				return out, StateContinue, nil
			}

			if err := d.handleAuthLine(line); err != nil {
				d.rejected = true
				return out, StateRejected, err
			}

			out = append(out, d.buildOKLine()...)
			d.phase = phaseWaitingBegin

		case phaseWaitingOK:
			line, ok := d.popLine()
			if !ok {
				return out, StateContinue, nil
			}

			if err := d.handleOKLine(line); err != nil {
				d.rejected = true
				return out, StateRejected, err
			}

			out = append(out, []byte("BEGIN\r\n")...)
			d.phase = phaseDone
			d.recoverTrailing()
			return out, StateAuthenticated, nil

		case phaseWaitingBegin:
			line, ok := d.popLine()
			if !ok {
				return out, StateContinue, nil
			}

			if !bytes.Equal(line, []byte("BEGIN")) {
				d.rejected = true
				return out, StateRejected, ErrorMalformedLine.Error(fmt.Errorf("%q", line))
			}

			d.phase = phaseDone
			d.recoverTrailing()
			return out, StateAuthenticated, nil

		case phaseDone:
			return out, StateAuthenticated, nil
		}
	}
}

// popLine removes and returns the next CRLF-terminated line from the
// buffer, without the CRLF. It returns false if no full line is buffered
// yet.
func (d *dlg) popLine() ([]byte, bool) {
	idx := bytes.Index(d.buf, []byte("\r\n"))
	if idx < 0 {
		return nil, false
	}

	line := d.buf[:idx]
	d.buf = d.buf[idx+2:]
	return line, true
}

func (d *dlg) recoverTrailing() {
	if len(d.buf) > 0 {
		d.trailing = append(d.trailing, d.buf...)
	}
	d.buf = nil
}

func (d *dlg) buildAuthLine() []byte {
	uid := strconv.FormatUint(d.local.Uid, 10)
	return []byte("\x00AUTH EXTERNAL " + hex.EncodeToString([]byte(uid)) + "\r\n")
}

func (d *dlg) buildOKLine() []byte {
	return []byte("OK " + d.guid + "\r\n")
}

func (d *dlg) handleAuthLine(line []byte) liberr.Error {
	fields := strings.Fields(string(line))
	if len(fields) < 2 || fields[0] != "AUTH" {
		return ErrorMalformedLine.Error(fmt.Errorf("%q", line))
	}

	mech := Mechanism(fields[1])
	if !d.allowed[mech] {
		return ErrorBadMechanism.Error(fmt.Errorf("%q", mech))
	}

	if mech == MechanismExternal && len(fields) >= 3 {
		raw, err := hex.DecodeString(fields[2])
		if err != nil {
			return ErrorMalformedLine.Error(err)
		}

		if d.peer.Uid == UnsetUid {
			if uid, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
				d.peer.Uid = uid
			}
		}
	}

	return nil
}

func (d *dlg) handleOKLine(line []byte) liberr.Error {
	fields := strings.Fields(string(line))
	if len(fields) < 2 || fields[0] != "OK" {
		return ErrorMalformedLine.Error(fmt.Errorf("%q", line))
	}

	srvGuid := fields[1]

	if d.guid != "" && d.guid != srvGuid {
		return ErrorGuidMismatch.Error(fmt.Errorf("expected %q, got %q", d.guid, srvGuid))
	}

	d.guid = srvGuid
	return nil
}
