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

package memalloc_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/memalloc"
)

func TestMemAlloc(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "memalloc Suite")
}

var _ = Describe("Allocator", func() {
	Context("zero-size and plain allocation", func() {
		It("returns a null handle for n == 0", func() {
			a := memalloc.New(nil)
			b, err := a.Alloc(0, "test")
			Expect(err).ToNot(HaveOccurred())
			Expect(b).To(BeNil())
		})

		It("allocates a block of the requested size", func() {
			a := memalloc.New(nil)
			b, err := a.Alloc(32, "test")
			Expect(err).ToNot(HaveOccurred())
			Expect(b.Len()).To(Equal(32))
			Expect(b.Bytes()).To(HaveLen(32))
		})
	})

	Context("Nth-failure injection", func() {
		It("fails exactly the nth allocation and then resets", func() {
			dbg := memalloc.NewDebug()
			dbg.SetFailNth(3)
			a := memalloc.New(dbg)

			for i := 0; i < 2; i++ {
				_, err := a.Alloc(8, "loop")
				Expect(err).ToNot(HaveOccurred())
			}

			_, err := a.Alloc(8, "loop")
			Expect(err).To(HaveOccurred())
			Expect(memalloc.IsOOM(err)).To(BeTrue())

			_, err = a.Alloc(8, "loop")
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Context("size-cap injection", func() {
		It("fails allocations larger than the configured cap", func() {
			dbg := memalloc.NewDebug()
			dbg.SetFailGreaterThan(16)
			a := memalloc.New(dbg)

			_, err := a.Alloc(16, "ok")
			Expect(err).ToNot(HaveOccurred())

			_, err = a.Alloc(17, "too-big")
			Expect(err).To(HaveOccurred())
			Expect(memalloc.IsOOM(err)).To(BeTrue())
		})
	})

	Context("guard bands", func() {
		It("allocates and frees cleanly when untouched", func() {
			dbg := memalloc.NewDebug()
			dbg.SetGuards(true)
			a := memalloc.New(dbg)

			b, err := a.Alloc(10, "guarded")
			Expect(err).ToNot(HaveOccurred())
			Expect(b.Bytes()).To(HaveLen(10))
			Expect(a.Free(b)).To(Succeed())
		})

		It("panics on trailer corruption detected by Free", func() {
			dbg := memalloc.NewDebug()
			dbg.SetGuards(true)
			a := memalloc.New(dbg)

			b, err := a.Alloc(4, "guarded")
			Expect(err).ToNot(HaveOccurred())

			// The user-visible slice's capacity extends into the trailer
			// guard band; writing past len() corrupts it without reaching
			// into any unexported field.
			data := b.Bytes()
			full := data[:cap(data)]
			full[len(data)] ^= 0xFF

			Expect(func() { _ = a.Free(b) }).To(Panic())
		})
	})

	Context("Realloc", func() {
		It("frees and returns nil for n == 0", func() {
			a := memalloc.New(nil)
			b, _ := a.Alloc(8, "r")
			nb, err := a.Realloc(b, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(nb).To(BeNil())
		})

		It("preserves the overlapping prefix when growing", func() {
			a := memalloc.New(nil)
			b, _ := a.Alloc(4, "r")
			copy(b.Bytes(), []byte{1, 2, 3, 4})

			nb, err := a.Realloc(b, 8)
			Expect(err).ToNot(HaveOccurred())
			Expect(nb.Bytes()[:4]).To(Equal([]byte{1, 2, 3, 4}))
		})
	})

	Context("NewFromEnvironment", func() {
		It("leaves every feature disabled when no variables are set", func() {
			dbg := memalloc.NewFromEnvironment()
			Expect(dbg.GuardsEnabled()).To(BeFalse())
			Expect(dbg.PoolsDisabled()).To(BeFalse())
		})
	})
})
