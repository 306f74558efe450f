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

// Package i2c provides the I2C transport for SL030 and SL018 modules
package i2c

import (
	"errors"
	"fmt"
	"sync"

	sl030 "github.com/ZaparooProject/go-sl030"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7 bit bus address of SL030 and SL018 modules
	DefaultAddress uint16 = 0x50

	// Max clock frequency (100 kHz). The modules do not support fast mode.
	maxClockFreq = 100 * physic.KiloHertz
)

// ErrClosed is returned by operations on a closed transport
var ErrClosed = errors.New("i2c transport closed")

// Option configures a Transport
type Option func(*Transport)

// WithAddress overrides the device address
func WithAddress(addr uint16) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithSpeed overrides the bus clock
func WithSpeed(f physic.Frequency) Option {
	return func(t *Transport) {
		t.speed = f
	}
}

// Transport implements the sl030.Transport interface for I2C communication
type Transport struct {
	bus     i2c.BusCloser
	dev     *i2c.Dev
	busName string
	speed   physic.Frequency
	mu      sync.Mutex
	addr    uint16
}

// New opens busName ("/dev/i2c-1", "1" or "" for the first bus) and
// returns a transport for the module on it
func New(busName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	return NewWithBus(bus, busName, opts...), nil
}

// NewWithBus wraps an already opened bus
func NewWithBus(bus i2c.BusCloser, busName string, opts ...Option) *Transport {
	t := &Transport{
		bus:     bus,
		busName: busName,
		addr:    DefaultAddress,
		speed:   maxClockFreq,
	}
	for _, opt := range opts {
		opt(t)
	}

	// Not every bus driver can change the clock; keep its default then
	_ = bus.SetSpeed(t.speed)

	t.dev = &i2c.Dev{Addr: t.addr, Bus: bus}
	return t
}

// Write sends a command frame to the module
func (t *Transport) Write(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return ErrClosed
	}
	if err := t.dev.Tx(frame, nil); err != nil {
		return fmt.Errorf("failed to send I2C frame: %w", err)
	}
	return nil
}

// Read reads len(buf) bytes from the module
func (t *Transport) Read(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return ErrClosed
	}
	if err := t.dev.Tx(nil, buf); err != nil {
		return fmt.Errorf("failed to read I2C response: %w", err)
	}
	return nil
}

// Close closes the bus. Further operations return ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil
	}
	t.dev = nil
	if err := t.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return nil
}

// IsConnected returns true if the bus is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() sl030.TransportType {
	return sl030.TransportI2C
}

// String returns the bus name and address
func (t *Transport) String() string {
	return fmt.Sprintf("%s@0x%02X", t.busName, t.addr)
}

var _ sl030.Transport = (*Transport)(nil)
