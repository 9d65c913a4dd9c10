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

package autolaunch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nabbar/golib/transport/addr"
)

// FileKey is the address-entry key naming the autolaunch address file to
// read. Absent, DefaultAddressFile is used instead.
const FileKey = "file"

// EnvAddressFile names the environment variable DefaultAddressFile
// consults before falling back to a fixed path under os.TempDir.
const EnvAddressFile = "BUS_AUTOLAUNCH_ADDRESS_FILE"

// DefaultAddressFile returns the autolaunch address file path used when an
// entry carries no explicit "file" key.
func DefaultAddressFile() string {
	if v := os.Getenv(EnvAddressFile); v != "" {
		return v
	}
	return filepath.Join(os.TempDir(), "bus-autolaunch-address")
}

// Resolver implements registry.Resolver for "autolaunch:" entries: it reads
// the address published in an address file on disk, caching the result
// keyed by file path until fsnotify reports a write, create, remove or
// rename of that path in its watched directory.
type Resolver struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]bool
	cache   map[string]string
}

// New starts a Resolver. Close releases the underlying fsnotify watcher.
func New() (*Resolver, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errWatcher(err)
	}

	r := &Resolver{
		watcher: w,
		watched: make(map[string]bool),
		cache:   make(map[string]string),
	}

	go r.run()

	return r, nil
}

func (r *Resolver) run() {
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				r.invalidate(ev.Name)
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (r *Resolver) invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, path)
}

// Resolve implements registry.Resolver: it returns the trimmed contents of
// the address file named by entry's "file" key, or DefaultAddressFile if
// absent, re-reading from disk only when no cached value survives a prior
// fsnotify invalidation.
func (r *Resolver) Resolve(e addr.Entry) (string, error) {
	path, ok := e.Get(FileKey)
	if !ok || path == "" {
		path = DefaultAddressFile()
	}

	r.mu.Lock()
	if cached, ok := r.cache[path]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errReadFile(path, err)
	}

	resolved := strings.TrimSpace(string(data))
	if resolved == "" {
		return "", errEmptyFile(path)
	}

	r.watchDir(filepath.Dir(path))

	r.mu.Lock()
	r.cache[path] = resolved
	r.mu.Unlock()

	return resolved, nil
}

func (r *Resolver) watchDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watched[dir] {
		return
	}

	if err := r.watcher.Add(dir); err == nil {
		r.watched[dir] = true
	}
}

// Close stops watching and releases the fsnotify watcher.
func (r *Resolver) Close() error {
	return r.watcher.Close()
}
