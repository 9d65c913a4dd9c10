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

package registry

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nabbar/golib/transport"
	"github.com/nabbar/golib/transport/addr"
	"github.com/nabbar/golib/transport/config"
)

// Resolver resolves an "autolaunch:" address entry to the real address it
// stands for (e.g. by reading the autolaunch address file a running bus
// daemon publishes), returning that address in the same
// `method:key=value,...;...` grammar addr.Parse understands.
type Resolver func(entry addr.Entry) (resolved string, err error)

type namedOpener struct {
	method string
	open   transport.Opener
}

// Registry is the Open Registry: an ordered list of per-method openers,
// tried in registration order, plus an optional autolaunch Resolver whose
// concurrent calls for the same entry are collapsed with a singleflight
// group. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	openers []namedOpener
	resolve Resolver
	sf      singleflight.Group
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register adds an opener for method, tried in the order registered.
func (r *Registry) Register(method string, open transport.Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openers = append(r.openers, namedOpener{method: method, open: open})
}

// RegisterAutolaunch installs the resolver consulted for "autolaunch:"
// entries. Replacing it does not cancel a resolution already in flight:
// that call completes with the old resolver, and Open calls for the same
// entry that join it receive its result.
func (r *Registry) RegisterAutolaunch(resolve Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resolve = resolve
}

// Open parses address and scans it against every registered opener via
// transport.Open, first expanding any "autolaunch:" entry into the real
// address it resolves to.
func (r *Registry) Open(address string) (*transport.Transport, error) {
	entries, err := addr.Parse(address)
	if err != nil {
		return nil, errBadAddress(err)
	}

	return r.open(entries)
}

func (r *Registry) open(entries []addr.Entry) (*transport.Transport, error) {
	r.mu.Lock()
	openers := make([]transport.Opener, 0, len(r.openers))
	for _, no := range r.openers {
		openers = append(openers, no.open)
	}
	resolve := r.resolve
	r.mu.Unlock()

	resolved := make([]addr.Entry, 0, len(entries))

	for _, e := range entries {
		if e.Method != string(config.NetworkAutolaunch) || resolve == nil {
			resolved = append(resolved, e)
			continue
		}

		more, err := r.resolveOnce(resolve, e)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, more...)
	}

	return transport.Open(resolved, openers)
}

// resolveOnce collapses concurrent resolutions of the same entry into one
// call to resolve, so a stampede of simultaneous connection attempts reads
// the autolaunch address file once.
func (r *Registry) resolveOnce(resolve Resolver, e addr.Entry) ([]addr.Entry, error) {
	key := addr.String([]addr.Entry{e})

	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		return resolve(e)
	})
	if err != nil {
		return nil, errAutolaunchFailed(err)
	}

	entries, err := addr.Parse(v.(string))
	if err != nil {
		return nil, errBadAddress(err)
	}

	return entries, nil
}
