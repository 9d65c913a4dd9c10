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

// Package auth implements the SASL-style authentication dialog a Transport
// drives before handing bytes to the message loader. A Session is fed raw
// bytes as they arrive off the wire and, one Step at a time, produces bytes
// to write back, until it reports Authenticated or Rejected. Any bytes that
// arrived past the BEGIN line in the same read are kept as trailing bytes
// for the transport's one-shot trailing-byte transfer into the loader.
//
// Only the EXTERNAL and ANONYMOUS mechanisms are implemented; both are
// plaintext, so NeedsDecoding always reports false, but Decode still routes
// the trailing-byte copy through a memalloc.Allocator so the OOM-during-
// transfer path has somewhere real to fail.
package auth
