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

package memalloc

import "encoding/binary"

// guardMagic fills the header and trailer band of a guarded allocation.
var guardMagic = [8]byte{0xDE, 0xAD, 0xC0, 0xDE, 0xFE, 0xED, 0xFA, 0xCE}

const (
	guardHeaderLen = len(guardMagic) + 8 // magic + recorded size (big-endian uint64)
	guardTrailLen  = len(guardMagic)
)

// Block is the handle returned by a successful allocation. A nil *Block is
// the "null handle" and every method is nil-safe, mirroring the portable
// n==0/failure contract described for the underlying allocator.
type Block struct {
	raw     []byte
	off     int
	size    int
	tag     string
	guarded bool
	freed   bool
}

// Bytes returns the allocation's user-visible byte slice. A nil receiver or
// a freed block returns nil.
func (b *Block) Bytes() []byte {
	if b == nil || b.freed {
		return nil
	}
	return b.raw[b.off : b.off+b.size]
}

// Len returns the allocation's requested size; zero for a nil or freed block.
func (b *Block) Len() int {
	if b == nil || b.freed {
		return 0
	}
	return b.size
}

// Tag returns the allocation-source tag recorded at Alloc time.
func (b *Block) Tag() string {
	if b == nil {
		return ""
	}
	return b.tag
}

func writeGuardHeader(raw []byte, size int) {
	copy(raw, guardMagic[:])
	binary.BigEndian.PutUint64(raw[len(guardMagic):guardHeaderLen], uint64(size))
}

func writeGuardTrailer(raw []byte) {
	copy(raw, guardMagic[:])
}

// verifyGuards checks both bands and the recorded size; it does not mutate
// the block.
func verifyGuards(b *Block) bool {
	if b == nil || !b.guarded || b.freed {
		return true
	}

	header := b.raw[:len(guardMagic)]
	recorded := binary.BigEndian.Uint64(b.raw[len(guardMagic):guardHeaderLen])
	trailer := b.raw[b.off+b.size : b.off+b.size+guardTrailLen]

	if recorded != uint64(b.size) {
		return false
	}

	for i := range guardMagic {
		if header[i] != guardMagic[i] || trailer[i] != guardMagic[i] {
			return false
		}
	}

	return true
}
