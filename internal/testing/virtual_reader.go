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

package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

// Errors returned by the virtual bus
var (
	ErrBusClosed       = errors.New("virtual bus closed")
	ErrNoResponse      = errors.New("no response pending")
	ErrMalformedFrame  = errors.New("malformed command frame")
	ErrInjectedFailure = errors.New("injected bus failure")
)

const noSector = -1

// VirtualReader simulates an SL030 on the I2C bus. Write takes a command
// frame, Read returns the response to it. It holds at most one tag and
// tracks the sector logged in to like the real module.
type VirtualReader struct {
	tag        *VirtualTag
	pending    []byte
	frames     [][]byte
	writeErr   error
	readErr    error
	mutate     func(resp []byte) []byte
	mu         sync.Mutex
	authSector int
	closed     bool
}

// NewVirtualReader creates a reader with tag in its field. tag may be nil.
func NewVirtualReader(tag *VirtualTag) *VirtualReader {
	return &VirtualReader{tag: tag, authSector: noSector}
}

// Write accepts a command frame and prepares the response
func (v *VirtualReader) Write(frame []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrBusClosed
	}
	v.frames = append(v.frames, append([]byte(nil), frame...))

	if err := v.writeErr; err != nil {
		v.writeErr = nil
		return err
	}
	if len(frame) < 2 || int(frame[0]) != len(frame)-1 {
		return fmt.Errorf("%w: % X", ErrMalformedFrame, frame)
	}

	resp := v.handle(frame[1], frame[2:])
	if v.mutate != nil {
		resp = v.mutate(resp)
		v.mutate = nil
	}
	v.pending = resp
	return nil
}

// Read copies the pending response into buf, zero filling the rest
func (v *VirtualReader) Read(buf []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrBusClosed
	}
	if err := v.readErr; err != nil {
		v.readErr = nil
		return err
	}
	if v.pending == nil {
		return ErrNoResponse
	}

	n := copy(buf, v.pending)
	clear(buf[n:])
	v.pending = nil
	return nil
}

// Close closes the virtual bus
func (v *VirtualReader) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// IsConnected reports whether the bus is open
func (v *VirtualReader) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// String names the bus in errors
func (*VirtualReader) String() string {
	return "virtual"
}

// PlaceTag puts tag in the field, replacing any other
func (v *VirtualReader) PlaceTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = tag
	v.authSector = noSector
}

// RemoveTag empties the field
func (v *VirtualReader) RemoveTag() {
	v.PlaceTag(nil)
}

// Tag returns the tag in the field
func (v *VirtualReader) Tag() *VirtualTag {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tag
}

// Frames returns a copy of every command frame written so far
func (v *VirtualReader) Frames() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.frames))
	copy(out, v.frames)
	return out
}

// CountFrames returns how many frames carried cmd
func (v *VirtualReader) CountFrames(cmd byte) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, f := range v.frames {
		if len(f) > 1 && f[1] == cmd {
			n++
		}
	}
	return n
}

// FailNextWrite makes the next Write return err
func (v *VirtualReader) FailNextWrite(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.writeErr = err
}

// FailNextRead makes the next Read return err
func (v *VirtualReader) FailNextRead(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.readErr = err
}

// MutateNextResponse rewrites the next response before it is read
func (v *VirtualReader) MutateNextResponse(fn func(resp []byte) []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mutate = fn
}

func (v *VirtualReader) handle(cmd byte, payload []byte) []byte {
	switch cmd {
	case CmdSelect:
		return v.handleSelect()
	case CmdLogin:
		return v.handleLogin(payload)
	case CmdRead16:
		return v.handleRead16(payload)
	case CmdWrite16:
		return v.handleWrite16(payload)
	case CmdRead4:
		return v.handleRead4(payload)
	case CmdWrite4:
		return v.handleWrite4(payload)
	default:
		return BuildStatusResponse(cmd, StatusReadFailed)
	}
}

func (v *VirtualReader) handleSelect() []byte {
	if v.tag == nil {
		return BuildNoTagResponse()
	}
	v.authSector = noSector
	return BuildSelectResponse(v.tag.UID, v.tag.CardType)
}

func (v *VirtualReader) handleLogin(payload []byte) []byte {
	v.authSector = noSector
	if v.tag == nil {
		return BuildStatusResponse(CmdLogin, StatusNoTag)
	}
	if len(payload) != 8 || payload[1] != 0xAA {
		return BuildStatusResponse(CmdLogin, StatusLoginFailed)
	}

	sector := int(payload[0])
	key, err := v.tag.KeyA(sector)
	if err != nil {
		return BuildStatusResponse(CmdLogin, StatusAddressOver)
	}
	if !bytes.Equal(key, payload[2:]) {
		return BuildStatusResponse(CmdLogin, StatusLoginFailed)
	}

	v.authSector = sector
	return BuildStatusResponse(CmdLogin, StatusLoginOK)
}

func (v *VirtualReader) blockStatus(payload []byte, failed byte) (int, byte) {
	if v.tag == nil {
		return 0, StatusNoTag
	}
	if len(payload) < 1 || !v.tag.IsClassic() || int(payload[0]) >= len(v.tag.Blocks) {
		return 0, failed
	}
	block := int(payload[0])
	if block/BlocksPerSector != v.authSector {
		return 0, StatusNotAuthorized
	}
	return block, StatusOK
}

func (v *VirtualReader) handleRead16(payload []byte) []byte {
	block, status := v.blockStatus(payload, StatusReadFailed)
	if status != StatusOK {
		return BuildStatusResponse(CmdRead16, status)
	}
	return BuildDataResponse(CmdRead16, v.tag.Blocks[block])
}

func (v *VirtualReader) handleWrite16(payload []byte) []byte {
	block, status := v.blockStatus(payload, StatusWriteFailed)
	if status != StatusOK {
		return BuildStatusResponse(CmdWrite16, status)
	}
	if block == 0 || len(payload) != 1+BlockSize {
		return BuildStatusResponse(CmdWrite16, StatusWriteFailed)
	}

	data := make([]byte, BlockSize)
	copy(data, payload[1:])
	v.tag.Blocks[block] = data
	return BuildDataResponse(CmdWrite16, data)
}

func (v *VirtualReader) handleRead4(payload []byte) []byte {
	if v.tag == nil {
		return BuildStatusResponse(CmdRead4, StatusNoTag)
	}
	if len(payload) < 1 || int(payload[0]) >= len(v.tag.Pages) {
		// The module reports reads past the last page as no tag
		return BuildStatusResponse(CmdRead4, StatusNoTag)
	}
	return BuildDataResponse(CmdRead4, v.tag.Pages[payload[0]])
}

func (v *VirtualReader) handleWrite4(payload []byte) []byte {
	if v.tag == nil {
		return BuildStatusResponse(CmdWrite4, StatusNoTag)
	}
	if len(payload) != 1+PageSize {
		return BuildStatusResponse(CmdWrite4, StatusWriteFailed)
	}
	page := int(payload[0])
	if page < firstWritablePage || page >= len(v.tag.Pages) {
		return BuildStatusResponse(CmdWrite4, StatusWriteFailed)
	}

	data := make([]byte, PageSize)
	copy(data, payload[1:])
	v.tag.Pages[page] = data
	return BuildDataResponse(CmdWrite4, data)
}
