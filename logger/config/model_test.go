/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package config_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/golib/logger/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "logger/config Suite")
}

var _ = Describe("Options", func() {
	Context("Clone", func() {
		It("deep copies Stdout", func() {
			o := config.Options{
				TraceFilter: "/app",
				Stdout:      &config.OptionsStd{EnableTrace: true},
			}

			c := o.Clone()
			c.Stdout.EnableTrace = false

			Expect(o.Stdout.EnableTrace).To(BeTrue())
			Expect(c.TraceFilter).To(Equal("/app"))
		})
	})

	Context("Merge", func() {
		It("overwrites TraceFilter and Stdout flags that are true on the source", func() {
			base := config.Options{
				TraceFilter: "/base",
				Stdout:      &config.OptionsStd{DisableColor: false},
			}

			base.Merge(&config.Options{
				TraceFilter: "/override",
				Stdout:      &config.OptionsStd{DisableColor: true},
			})

			Expect(base.TraceFilter).To(Equal("/override"))
			Expect(base.Stdout.DisableColor).To(BeTrue())
		})

		It("is a no-op when given nil", func() {
			base := config.Options{TraceFilter: "/base"}
			base.Merge(nil)
			Expect(base.TraceFilter).To(Equal("/base"))
		})
	})

	Context("Validate", func() {
		It("rejects a TraceFilter containing a NUL byte", func() {
			o := config.Options{TraceFilter: "bad\x00path"}
			Expect(o.Validate()).ToNot(BeNil())
		})

		It("accepts an empty or clean TraceFilter", func() {
			o := config.Options{TraceFilter: "/var/log/app"}
			Expect(o.Validate()).To(BeNil())
		})
	})

	Context("Options", func() {
		It("inherits from the registered default when InheritDefault is set", func() {
			o := config.Options{InheritDefault: true}
			o.RegisterDefaultFunc(func() *config.Options {
				return &config.Options{TraceFilter: "/default"}
			})

			Expect(o.Options().TraceFilter).To(Equal("/default"))
		})
	})
})
