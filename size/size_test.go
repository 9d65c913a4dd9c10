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

package size_test

import (
	"encoding/json"
	"reflect"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/nabbar/golib/size"
)

func TestSize(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "size Suite")
}

var _ = Describe("Size", func() {
	Context("constants", func() {
		It("follows binary powers of 1024", func() {
			Expect(SizeUnit).To(Equal(Size(1)))
			Expect(SizeKilo).To(Equal(Size(1024)))
			Expect(SizeMega).To(Equal(1024 * SizeKilo))
			Expect(SizeGiga).To(Equal(1024 * SizeMega))
		})
	})

	Context("Parse", func() {
		It("parses plain bytes", func() {
			s, err := Parse("100")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(Size(100)))
		})

		It("parses unit suffixes", func() {
			s, err := Parse("5MB")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(5 * SizeMega))
		})

		It("parses fractional values", func() {
			s, err := Parse("1.5K")
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(BeNumerically("~", Size(1.5*float64(SizeKilo)), 1))
		})

		It("rejects an unknown unit", func() {
			_, err := Parse("5XB")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Unit / Code", func() {
		It("returns the natural unit suffix", func() {
			Expect((10 * SizeKilo).Unit(0)).To(Equal("KB"))
			Expect((10 * SizeMega).Unit(0)).To(Equal("MB"))
		})

		It("accepts a custom suffix rune", func() {
			Expect((10 * SizeKilo).Unit('i')).To(Equal("Ki"))
		})

		It("falls back to the configured default unit", func() {
			SetDefaultUnit('o')
			defer SetDefaultUnit('B')

			Expect(SizeKilo.Code(0)).To(Equal("Ko"))
			Expect(SizeKilo.Code('x')).To(Equal("Kx"))
		})
	})

	Context("String / Format", func() {
		It("renders a human string with unit suffix", func() {
			Expect((5 * SizeMega).String()).To(ContainSubstring("MB"))
		})

		It("formats with the requested precision", func() {
			s := Size(1536)
			Expect(s.Format(FormatRound0)).To(MatchRegexp(`^\d+$`))
			Expect(s.Format(FormatRound2)).To(MatchRegexp(`^\d+\.\d{2}$`))
		})
	})

	Context("conversions", func() {
		It("floors to whole units", func() {
			Expect((5 * SizeGiga).KiloBytes()).To(Equal(uint64(5 * 1024 * 1024)))
			Expect(Size(512).KiloBytes()).To(Equal(uint64(0)))
		})
	})

	Context("JSON", func() {
		It("round-trips through MarshalJSON/UnmarshalJSON", func() {
			type wrapper struct {
				Size Size `json:"size"`
			}

			w := wrapper{Size: 5 * SizeMega}
			b, err := json.Marshal(w)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(b)).To(ContainSubstring("MB"))

			var w2 wrapper
			Expect(json.Unmarshal(b, &w2)).To(Succeed())
			Expect(w2.Size).To(BeNumerically("~", w.Size, float64(w.Size)*0.01))
		})
	})

	Context("ViperDecoderHook", func() {
		It("decodes a size string", func() {
			hook := ViperDecoderHook()
			result, err := hook(reflect.TypeOf(""), reflect.TypeOf(Size(0)), "100MB")
			Expect(err).ToNot(HaveOccurred())

			s, ok := result.(Size)
			Expect(ok).To(BeTrue())
			Expect(s).To(Equal(100 * SizeMega))
		})

		It("passes through non-Size targets untouched", func() {
			hook := ViperDecoderHook()
			result, err := hook(reflect.TypeOf(""), reflect.TypeOf(0), "100MB")
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal("100MB"))
		})
	})
})
