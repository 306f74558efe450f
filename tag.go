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
	"encoding/hex"
	"fmt"
)

// UID lengths reported by Select
const (
	uidLenSingle = 4
	uidLenDouble = 7
)

// Declared Select lengths for each UID size: command, status, UID and the
// card type byte.
const (
	selectLenSingle = 7
	selectLenDouble = 10
)

// Tag is a card found by SelectTag
type Tag struct {
	UID []byte
	// Type is CardTypeUnknown when TypeByte is outside the known range
	Type     CardType
	TypeByte byte
}

// UIDString returns the UID as 0x-prefixed lowercase hex
func (t *Tag) UIDString() string {
	return "0x" + hex.EncodeToString(t.UID)
}

// String implements fmt.Stringer
func (t *Tag) String() string {
	if t.Type == CardTypeUnknown {
		return fmt.Sprintf("%s (unknown card type 0x%02X)", t.UIDString(), t.TypeByte)
	}
	return fmt.Sprintf("%s (%s)", t.UIDString(), t.Type)
}

// decodeSelect extracts the tag from a successful Select response
func decodeSelect(resp []byte) (*Tag, error) {
	var uidLen int
	switch resp[offsetLength] {
	case selectLenDouble:
		uidLen = uidLenDouble
	case selectLenSingle:
		uidLen = uidLenSingle
	default:
		return nil, &ProtocolError{
			Err:      ErrInvalidResponse,
			Command:  CmdSelect,
			Got:      resp[offsetCommand],
			Length:   resp[offsetLength],
			Expected: selectLenSingle,
		}
	}

	typeOffset := offsetData + uidLen
	if len(resp) <= typeOffset {
		return nil, fmt.Errorf("%w: select response too short: %d bytes", ErrInvalidResponse, len(resp))
	}

	uid := make([]byte, uidLen)
	copy(uid, resp[offsetData:typeOffset])

	return &Tag{
		UID:      uid,
		Type:     cardTypeFromWire(resp[typeOffset]),
		TypeByte: resp[typeOffset],
	}, nil
}
