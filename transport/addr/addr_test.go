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

package addr_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/transport/addr"
)

func TestAddr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "addr Suite")
}

var _ = Describe("Parse", func() {
	It("parses a single entry with keys", func() {
		es, err := addr.Parse("unix:path=/tmp/test,guid=1234abcd")
		Expect(err).ToNot(HaveOccurred())
		Expect(es).To(HaveLen(1))
		Expect(es[0].Method).To(Equal("unix"))
		Expect(es[0].Guid()).To(Equal("1234abcd"))

		v, ok := es[0].Get("path")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("/tmp/test"))
	})

	It("parses a method with no keys", func() {
		es, err := addr.Parse("autolaunch:")
		Expect(err).ToNot(HaveOccurred())
		Expect(es).To(HaveLen(1))
		Expect(es[0].Method).To(Equal("autolaunch"))
		Expect(es[0].Keys).To(BeEmpty())
	})

	It("parses multiple semicolon-separated entries in order", func() {
		es, err := addr.Parse("unix:path=/a;tcp:host=localhost,port=1234")
		Expect(err).ToNot(HaveOccurred())
		Expect(es).To(HaveLen(2))
		Expect(es[0].Method).To(Equal("unix"))
		Expect(es[1].Method).To(Equal("tcp"))

		v, _ := es[1].Get("port")
		Expect(v).To(Equal("1234"))
	})

	It("rejects an entry with no method", func() {
		_, err := addr.Parse(":foo=bar")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a malformed key=value pair", func() {
		_, err := addr.Parse("unix:path")
		Expect(err).To(HaveOccurred())
	})

	It("returns an unknown method entry unchanged for the opener chain to reject", func() {
		es, err := addr.Parse("wibble:foo=bar")
		Expect(err).ToNot(HaveOccurred())
		Expect(es[0].Method).To(Equal("wibble"))
	})
})
