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

package addr

import (
	"sort"
	"strings"
)

// GuidKey is the common key recognized by every backend for pinning the
// expected server guid.
const GuidKey = "guid"

// Entry is one parsed `method:key=value,...` address segment.
type Entry struct {
	Method string
	Keys   map[string]string
}

// Get returns the value for key and whether it was present.
func (e Entry) Get(key string) (string, bool) {
	v, ok := e.Keys[key]
	return v, ok
}

// Guid is a convenience accessor for the common "guid" key.
func (e Entry) Guid() string {
	v, _ := e.Get(GuidKey)
	return v
}

// Parse splits address into its semicolon-separated entries and parses each
// one. An empty address parses to an empty, non-nil slice.
func Parse(address string) ([]Entry, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return []Entry{}, nil
	}

	parts := strings.Split(address, ";")
	out := make([]Entry, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		e, err := parseEntry(p)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, nil
}

func parseEntry(raw string) (Entry, error) {
	method, rest, found := strings.Cut(raw, ":")
	if !found || method == "" {
		return Entry{}, errBadEntry(raw)
	}

	e := Entry{Method: method, Keys: make(map[string]string)}
	if rest == "" {
		return e, nil
	}

	for _, pair := range strings.Split(rest, ",") {
		if pair == "" {
			continue
		}

		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return Entry{}, errBadEntry(raw)
		}

		e.Keys[k] = v
	}

	return e, nil
}

// String reconstructs a canonical address string from entries, with each
// entry's keys in sorted order, mainly for diagnostics and tests.
func String(entries []Entry) string {
	segs := make([]string, 0, len(entries))

	for _, e := range entries {
		var b strings.Builder
		b.WriteString(e.Method)
		b.WriteByte(':')

		keys := make([]string, 0, len(e.Keys))
		for k := range e.Keys {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(e.Keys[k])
		}

		segs = append(segs, b.String())
	}

	return strings.Join(segs, ";")
}
