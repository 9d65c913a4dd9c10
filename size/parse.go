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

package size

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reSize = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)\s*([a-zA-Z]*)\s*$`)

// Parse reads a human size string such as "5MB", "1.5G" or "100" (bytes) into
// a Size. Unit letters are case-insensitive and the trailing "B" is optional
// (e.g. "5M" and "5MB" are equivalent).
func Parse(s string) (Size, error) {
	m := reSize.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("size: invalid size %q", s)
	}

	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("size: invalid numeric value %q: %w", m[1], err)
	}

	unit := strings.ToUpper(strings.TrimSuffix(strings.ToUpper(m[2]), "B"))

	var mult Size
	switch unit {
	case "":
		mult = SizeUnit
	case "K":
		mult = SizeKilo
	case "M":
		mult = SizeMega
	case "G":
		mult = SizeGiga
	case "T":
		mult = SizeTera
	case "P":
		mult = SizePeta
	case "E":
		mult = SizeExa
	default:
		return 0, fmt.Errorf("size: unknown unit %q in %q", m[2], s)
	}

	return Size(val * float64(mult)), nil
}
