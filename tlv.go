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
	"encoding/binary"
	"errors"
	"fmt"
)

// TLV block types found in Type 2 tag memory
const (
	TLVTypeNull          byte = 0x00
	TLVTypeLockControl   byte = 0x01
	TLVTypeMemoryControl byte = 0x02
	TLVTypeNDEF          byte = 0x03
	TLVTypeProprietary   byte = 0xFD
	TLVTypeTerminator    byte = 0xFE
)

// tlvExtendedLength marks a three byte length field
const tlvExtendedLength = 0xFF

// ErrTLVTruncated is returned when a TLV runs past the end of the buffer
var ErrTLVTruncated = errors.New("TLV truncated")

// TLVScanner walks the TLV blocks of a memory dump and yields the value of
// every NDEF message TLV. It makes a single forward pass.
//
//	s := NewTLVScanner(mem)
//	for s.Scan() {
//		handle(s.Message())
//	}
//	if err := s.Err(); err != nil { ... }
type TLVScanner struct {
	err  error
	buf  []byte
	msg  []byte
	pos  int
	done bool
}

// NewTLVScanner returns a scanner over buf. buf is not copied; messages are
// subslices of it.
func NewTLVScanner(buf []byte) *TLVScanner {
	return &TLVScanner{buf: buf}
}

// Scan advances to the next NDEF message. It returns false at a terminator,
// at the end of the buffer, or on error.
func (s *TLVScanner) Scan() bool {
	s.msg = nil
	if s.done {
		return false
	}

	for s.pos < len(s.buf) {
		tag := s.buf[s.pos]
		switch tag {
		case TLVTypeNull:
			s.pos++
			continue
		case TLVTypeTerminator:
			s.done = true
			return false
		}

		length, start, err := parseTLVLength(s.buf, s.pos)
		if err != nil {
			s.fail(err)
			return false
		}
		end := start + length
		if end > len(s.buf) {
			s.fail(fmt.Errorf("%w: type 0x%02X at offset %d needs %d bytes, %d left",
				ErrTLVTruncated, tag, s.pos, length, len(s.buf)-start))
			return false
		}

		s.pos = end
		if tag == TLVTypeNDEF {
			s.msg = s.buf[start:end]
			return true
		}
	}

	s.done = true
	return false
}

func (s *TLVScanner) fail(err error) {
	s.err = err
	s.done = true
}

// Message returns the NDEF message found by the last call to Scan
func (s *TLVScanner) Message() []byte {
	return s.msg
}

// Err returns the first error encountered, or nil
func (s *TLVScanner) Err() error {
	return s.err
}

// Offset returns the scan position. After a terminator it is the
// terminator's offset.
func (s *TLVScanner) Offset() int {
	return s.pos
}

// parseTLVLength reads the length field of the TLV whose type byte is at
// buf[i]. It returns the value length and the offset of the value.
func parseTLVLength(buf []byte, i int) (length, start int, err error) {
	if i+1 >= len(buf) {
		return 0, 0, fmt.Errorf("%w: missing length at offset %d", ErrTLVTruncated, i+1)
	}
	if buf[i+1] != tlvExtendedLength {
		return int(buf[i+1]), i + 2, nil
	}
	if i+3 >= len(buf) {
		return 0, 0, fmt.Errorf("%w: short extended length at offset %d", ErrTLVTruncated, i+1)
	}
	return int(binary.BigEndian.Uint16(buf[i+2 : i+4])), i + 4, nil
}

// ParseNDEFMessages returns the value of every NDEF message TLV in buf.
// On error the messages found before it are returned with the error.
func ParseNDEFMessages(buf []byte) ([][]byte, error) {
	var msgs [][]byte
	s := NewTLVScanner(buf)
	for s.Scan() {
		msgs = append(msgs, s.Message())
	}
	return msgs, s.Err()
}

// EncodeNDEFTLV wraps msg in an NDEF message TLV followed by a terminator
func EncodeNDEFTLV(msg []byte) ([]byte, error) {
	if len(msg) > 0xFFFF {
		return nil, fmt.Errorf("%w: NDEF message too large: %d bytes", ErrInvalidParameter, len(msg))
	}

	out := make([]byte, 0, len(msg)+5)
	out = append(out, TLVTypeNDEF)
	if len(msg) < tlvExtendedLength {
		out = append(out, byte(len(msg)))
	} else {
		out = append(out, tlvExtendedLength)
		out = binary.BigEndian.AppendUint16(out, uint16(len(msg)))
	}
	out = append(out, msg...)
	return append(out, TLVTypeTerminator), nil
}
