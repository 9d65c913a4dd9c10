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

package loader

import (
	"bytes"
	"encoding/binary"

	bufcls "github.com/nabbar/golib/ioutils/bufferReadCloser"

	"github.com/nabbar/golib/counter"
	libmem "github.com/nabbar/golib/memalloc"
)

const frameHeaderLen = 4

// DefaultMaxMessageSize bounds a single frame's payload when no explicit
// limit has been set, matching the transport's default max_message_size.
const DefaultMaxMessageSize = 128 * 1024 * 1024

// Message is one parsed frame: the raw payload bytes, with the length
// prefix already consumed and validated.
type Message struct {
	Payload []byte
}

// Loader incrementally frames messages out of a byte stream fed one read at
// a time. It is not safe for concurrent use; the owning Transport serializes
// access to it.
//
// Feed only buffers raw bytes. Parse moves every fully-buffered frame from
// the raw buffer into an internal ready queue, allocating each payload
// through a memalloc.Allocator; this is the step that can report
// out-of-memory, leaving any partially buffered frame untouched so a retry
// picks up where it left off. Next then drains the ready queue. Splitting
// "move bytes into frames" from "hand out a frame" lets a caller ask "is
// there at least one ready message" without losing already-parsed ones.
type Loader interface {
	// Feed appends bytes read off the wire to the pending buffer.
	Feed(data []byte) error

	// Parse moves every fully-buffered frame into the ready queue.
	Parse() error

	// Next pops the oldest ready message. ok is false if the queue is
	// empty.
	Next() (msg *Message, ok bool)

	// PendingMessages reports how many parsed messages are waiting in the
	// ready queue.
	PendingMessages() int

	// PendingBytes reports how many bytes are buffered but not yet framed.
	PendingBytes() int

	// SetMaxMessageSize caps the payload size a single frame may declare.
	SetMaxMessageSize(n uint32)

	// Reset discards all buffered bytes and queued messages.
	Reset()
}

type ldr struct {
	alloc *libmem.Allocator
	cnt   counter.Counter
	raw   *bytes.Buffer
	buf   bufcls.Buffer
	max   uint32
	queue []*Message
}

// New returns a Loader that allocates parsed payloads through alloc (or a
// plain allocator if nil) and, if cnt is non-nil, decrements it by the size
// of each frame moved out of the raw buffer during Parse (Feed increments it
// by the same amount as bytes arrive).
func New(alloc *libmem.Allocator, cnt counter.Counter) Loader {
	if alloc == nil {
		alloc = libmem.New(nil)
	}

	raw := bytes.NewBuffer(nil)

	return &ldr{
		alloc: alloc,
		cnt:   cnt,
		raw:   raw,
		buf:   bufcls.NewBuffer(raw, nil),
		max:   DefaultMaxMessageSize,
	}
}

func (l *ldr) SetMaxMessageSize(n uint32) {
	if n == 0 {
		n = DefaultMaxMessageSize
	}
	l.max = n
}

func (l *ldr) Feed(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	n, err := l.buf.Write(data)
	if err != nil {
		return err
	}

	if l.cnt != nil {
		l.cnt.Adjust(int64(n))
	}

	return nil
}

func (l *ldr) PendingBytes() int     { return l.raw.Len() }
func (l *ldr) PendingMessages() int  { return len(l.queue) }

func (l *ldr) Reset() {
	if l.cnt != nil && l.raw.Len() > 0 {
		l.cnt.Adjust(-int64(l.raw.Len()))
	}
	l.raw.Reset()
	l.queue = nil
}

func (l *ldr) Parse() error {
	for {
		avail := l.raw.Bytes()
		if len(avail) < frameHeaderLen {
			return nil
		}

		sz := binary.BigEndian.Uint32(avail[:frameHeaderLen])
		if sz > l.max {
			return errTooLarge(sz, l.max)
		}

		if len(avail) < frameHeaderLen+int(sz) {
			return nil
		}

		blk, err := l.alloc.Alloc(int(sz), "loader.message")
		if err != nil {
			return err
		}

		l.raw.Next(frameHeaderLen)
		payload := l.raw.Next(int(sz))

		var out []byte
		if blk != nil {
			copy(blk.Bytes(), payload)
			out = blk.Bytes()
		}

		if l.cnt != nil {
			l.cnt.Adjust(-int64(frameHeaderLen + int(sz)))
		}

		l.queue = append(l.queue, &Message{Payload: out})
	}
}

func (l *ldr) Next() (*Message, bool) {
	if len(l.queue) == 0 {
		return nil, false
	}

	m := l.queue[0]
	l.queue = l.queue[1:]
	return m, true
}
