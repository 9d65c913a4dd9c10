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

// Package loader implements the incremental message framer a Transport feeds
// raw bytes into as they arrive off the wire, one read at a time. Frames use
// a simple 4-byte big-endian length prefix followed by the payload; real
// message-body marshalling is out of scope, so a Message carries raw payload
// bytes rather than a decoded value.
//
// A Loader never blocks: Feed only buffers, Parse moves every complete frame
// into a ready queue (and returns nil when none is complete yet), and Next
// pops that queue, reporting ok=false when it is empty. Parse
// allocates each payload through a memalloc.Allocator, so an
// out-of-memory condition injected there surfaces to the caller without
// losing the buffered bytes - a retry after memory frees up can pick up
// where it left off. A counter.Counter, when supplied, is kept in step with
// the bytes currently buffered so a Transport can derive backpressure from
// it directly.
package loader
