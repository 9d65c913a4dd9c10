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

package config

import (
	"crypto/tls"

	libsiz "github.com/nabbar/golib/size"
)

// DefaultMaxLiveMessagesSize is the transport-level default high-water
// mark for the live-byte counter: 63 MiB.
const DefaultMaxLiveMessagesSize = 63 * libsiz.SizeMega

// Network names the transport layer a backend dials or listens on.
type Network string

const (
	NetworkUnix       Network = "unix"
	NetworkTCP        Network = "tcp"
	NetworkAutolaunch Network = "autolaunch"
	NetworkDebugPipe  Network = "debug-pipe"
)

// Client configures the client side of a transport connection.
type Client struct {
	// Address is the full address string, e.g.
	// "unix:path=/run/bus,guid=1234abcd".
	Address string

	// MaxLiveMessagesSize caps the live-byte counter before backpressure
	// kicks in. Zero selects DefaultMaxLiveMessagesSize.
	MaxLiveMessagesSize libsiz.Size

	// MaxMessageSize caps a single incoming message's declared payload
	// size. Zero selects the loader's own default.
	MaxMessageSize uint32

	// TLS configures the backend's encrypted channel, if the selected
	// backend supports one (tcpsock takes it as the tlsConf parameter of
	// Dial and Open; address entries carry no tls key). Nil disables TLS.
	TLS *tls.Config
}

// Server configures the server (listening) side of a transport connection.
type Server struct {
	// Network is the transport layer to listen on.
	Network Network

	// Address is the network-specific listen address (e.g. a unix socket
	// path, or "host:port" for tcp).
	Address string

	// Guid is the server guid advertised during the SASL OK reply.
	Guid string

	// MaxLiveMessagesSize caps the live-byte counter before backpressure
	// kicks in. Zero selects DefaultMaxLiveMessagesSize.
	MaxLiveMessagesSize libsiz.Size

	// MaxMessageSize caps a single incoming message's declared payload
	// size. Zero selects the loader's own default.
	MaxMessageSize uint32

	// TLS configures the backend's encrypted channel, if the selected
	// backend supports one. Nil disables TLS.
	TLS *tls.Config
}

func (c Client) liveCap() libsiz.Size {
	if c.MaxLiveMessagesSize == 0 {
		return DefaultMaxLiveMessagesSize
	}
	return c.MaxLiveMessagesSize
}

func (s Server) liveCap() libsiz.Size {
	if s.MaxLiveMessagesSize == 0 {
		return DefaultMaxLiveMessagesSize
	}
	return s.MaxLiveMessagesSize
}

// LiveCap returns the effective live-byte high-water mark for c.
func (c Client) LiveCap() libsiz.Size { return c.liveCap() }

// LiveCap returns the effective live-byte high-water mark for s.
func (s Server) LiveCap() libsiz.Size { return s.liveCap() }
