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

package loader_test

import (
	"encoding/binary"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/counter"
	"github.com/nabbar/golib/loader"
	"github.com/nabbar/golib/memalloc"
)

func frame(payload string) []byte {
	b := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(b, uint32(len(payload)))
	copy(b[4:], payload)
	return b
}

// next parses whatever is buffered and pops the oldest ready message, or
// returns a nil message when no frame is complete yet.
func next(l loader.Loader) (*loader.Message, error) {
	if err := l.Parse(); err != nil {
		return nil, err
	}
	msg, _ := l.Next()
	return msg, nil
}

func TestLoader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "loader Suite")
}

var _ = Describe("Loader", func() {
	It("returns nil until a full frame is buffered", func() {
		l := loader.New(nil, nil)

		Expect(l.Feed([]byte{0, 0, 0})).ToNot(HaveOccurred())
		msg, err := next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(msg).To(BeNil())

		Expect(l.Feed([]byte{5, 'h', 'e', 'l'})).ToNot(HaveOccurred())
		msg, err = next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(msg).To(BeNil())

		Expect(l.Feed([]byte{'l', 'o'})).ToNot(HaveOccurred())
		msg, err = next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(msg).ToNot(BeNil())
		Expect(string(msg.Payload)).To(Equal("hello"))
	})

	It("frames back to back messages fed in one shot", func() {
		l := loader.New(nil, nil)
		Expect(l.Feed(append(frame("one"), frame("two")...))).ToNot(HaveOccurred())

		m1, err := next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(m1.Payload)).To(Equal("one"))

		m2, err := next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(m2.Payload)).To(Equal("two"))

		m3, err := next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(m3).To(BeNil())
	})

	It("keeps a supplied counter in step with buffered bytes", func() {
		c := counter.New()
		l := loader.New(nil, c)

		Expect(l.Feed(frame("abcd"))).ToNot(HaveOccurred())
		Expect(c.Value()).To(Equal(int64(8)))

		_, err := next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Value()).To(Equal(int64(0)))
	})

	It("rejects a declared size above the configured maximum", func() {
		l := loader.New(nil, nil)
		l.SetMaxMessageSize(4)

		Expect(l.Feed(frame("toolong"))).ToNot(HaveOccurred())
		_, err := next(l)
		Expect(err).To(HaveOccurred())
	})

	It("surfaces an allocator OOM without losing the buffered frame", func() {
		dbg := memalloc.NewDebug()
		dbg.SetFailNth(1)
		a := memalloc.New(dbg)

		l := loader.New(a, nil)
		Expect(l.Feed(frame("hello"))).ToNot(HaveOccurred())

		_, err := next(l)
		Expect(err).To(HaveOccurred())
		Expect(l.PendingBytes()).To(Equal(9))

		msg, err := next(l)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(msg.Payload)).To(Equal("hello"))
	})
})
