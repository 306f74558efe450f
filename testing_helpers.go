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

import (
	"errors"
	"sync"
	"time"
)

// errNoMockResponse is returned by MockTransport.Read when nothing is queued
var errNoMockResponse = errors.New("mock: no response queued")

// MockTransport is a scripted Transport. Responses are returned in the
// order they were queued; every written frame is recorded.
type MockTransport struct {
	responses [][]byte
	frames    [][]byte
	writeErrs []error
	readErrs  []error
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport creates a mock transport that answers with responses
func NewMockTransport(responses ...[]byte) *MockTransport {
	m := &MockTransport{}
	for _, r := range responses {
		m.QueueResponse(r)
	}
	return m
}

// QueueResponse appends a response to return from a later Read
func (m *MockTransport) QueueResponse(resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, append([]byte(nil), resp...))
}

// InjectWriteError makes the next Write fail with err
func (m *MockTransport) InjectWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs = append(m.writeErrs, err)
}

// InjectReadError makes the next Read fail with err
func (m *MockTransport) InjectReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs = append(m.readErrs, err)
}

// Write records frame
func (m *MockTransport) Write(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrTransportClosed
	}
	m.frames = append(m.frames, append([]byte(nil), frame...))
	if len(m.writeErrs) > 0 {
		err := m.writeErrs[0]
		m.writeErrs = m.writeErrs[1:]
		return err
	}
	return nil
}

// Read fills buf with the next queued response, zero padded
func (m *MockTransport) Read(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrTransportClosed
	}
	if len(m.readErrs) > 0 {
		err := m.readErrs[0]
		m.readErrs = m.readErrs[1:]
		return err
	}
	if len(m.responses) == 0 {
		return errNoMockResponse
	}

	n := copy(buf, m.responses[0])
	clear(buf[n:])
	m.responses = m.responses[1:]
	return nil
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected reports whether Close has not been called
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Frames returns every frame written so far
func (m *MockTransport) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// Pending returns the number of queued responses not yet read
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses)
}

// BlockingMockTransport blocks every Write until Unblock or Close is called.
// It is used to test callers that must wait for an exchange in progress.
type BlockingMockTransport struct {
	blockChan chan struct{}
	started   chan struct{}
	Response  []byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewBlockingMockTransport creates a blocking transport answering response
func NewBlockingMockTransport(response []byte) *BlockingMockTransport {
	return &BlockingMockTransport{
		blockChan: make(chan struct{}),
		started:   make(chan struct{}, 1),
		Response:  response,
		timeout:   5 * time.Second,
	}
}

// Started is signalled each time a Write begins to block
func (m *BlockingMockTransport) Started() <-chan struct{} {
	return m.started
}

// Write blocks until Unblock or Close, or the timeout expires
func (m *BlockingMockTransport) Write(_ []byte) error {
	m.mu.Lock()
	blockChan := m.blockChan
	closed := m.closed
	timeout := m.timeout
	m.mu.Unlock()

	if closed {
		return ErrTransportClosed
	}

	select {
	case m.started <- struct{}{}:
	default:
	}

	select {
	case <-blockChan:
	case <-time.After(timeout):
		return NewTransportError("write", "mock", errors.New("timeout"), ErrorTypeTransient)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	return nil
}

// Read returns the configured response
func (m *BlockingMockTransport) Read(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	n := copy(buf, m.Response)
	clear(buf[n:])
	return nil
}

// Unblock lets one blocked Write proceed
func (m *BlockingMockTransport) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// Close unblocks all operations and marks the transport closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.blockChan)
	}
	return nil
}

// IsConnected reports whether Close has not been called
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}
