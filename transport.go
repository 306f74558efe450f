// go-sl030
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-sl030.
//
// go-sl030 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-sl030 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-sl030; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package sl030

// Transport is the bus connection to the reader module. Implementations
// perform blocking transfers to a fixed device address; the I2C backend
// lives in transport/i2c.
type Transport interface {
	// Write sends a complete command frame
	Write(frame []byte) error

	// Read fills buf with a response of exactly len(buf) bytes
	Read(buf []byte) error

	// Close releases the bus
	Close() error

	// IsConnected returns true if the bus is open
	IsConnected() bool
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportTyper is implemented by transports that report their type
type TransportTyper interface {
	Type() TransportType
}

// transportName returns a short label for log and error messages
func transportName(t Transport) string {
	if s, ok := t.(interface{ String() string }); ok {
		return s.String()
	}
	if typer, ok := t.(TransportTyper); ok {
		return string(typer.Type())
	}
	return "bus"
}
