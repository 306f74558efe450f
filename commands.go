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

import "fmt"

// Command is an SL0xx command code as sent on the wire.
type Command byte

// SL0xx command codes
const (
	CmdIdle       Command = 0x00
	CmdSelect     Command = 0x01
	CmdLogin      Command = 0x02
	CmdRead16     Command = 0x03
	CmdWrite16    Command = 0x04
	CmdReadValue  Command = 0x05
	CmdWriteValue Command = 0x06
	CmdWriteKey   Command = 0x07
	CmdIncValue   Command = 0x08
	CmdDecValue   Command = 0x09
	CmdCopyValue  Command = 0x0A
	CmdRead4      Command = 0x10
	CmdWrite4     Command = 0x11
	CmdSeek       Command = 0x20
	CmdSetLED     Command = 0x40
	CmdSleep      Command = 0x50
	CmdReset      Command = 0xFF
)

var commandNames = map[Command]string{
	CmdIdle:       "Idle",
	CmdSelect:     "Select",
	CmdLogin:      "Login",
	CmdRead16:     "Read16",
	CmdWrite16:    "Write16",
	CmdReadValue:  "ReadValue",
	CmdWriteValue: "WriteValue",
	CmdWriteKey:   "WriteKey",
	CmdIncValue:   "IncValue",
	CmdDecValue:   "DecValue",
	CmdCopyValue:  "CopyValue",
	CmdRead4:      "Read4",
	CmdWrite4:     "Write4",
	CmdSeek:       "Seek",
	CmdSetLED:     "SetLED",
	CmdSleep:      "Sleep",
	CmdReset:      "Reset",
}

// String returns the command name
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

// Response sizes in bytes, including the 3 byte header.
const (
	selectResponseLen  = 11
	loginResponseLen   = 3
	read16ResponseLen  = 19
	write16ResponseLen = 19
	read4ResponseLen   = 7
	write4ResponseLen  = 7
)

// Response frame offsets
const (
	offsetLength  = 0
	offsetCommand = 1
	offsetStatus  = 2
	offsetData    = 3
)

// minDeclaredLength is the smallest length byte that still covers the
// echoed command and the status byte.
const minDeclaredLength = 2

// Memory geometry
const (
	// BlockSize is the size of a classic (16 byte) block.
	BlockSize = 16
	// PageSize is the size of an Ultralight (4 byte) page.
	PageSize = 4
	// BlocksPerSector is the number of blocks sharing one key.
	BlocksPerSector = 4
)

// loginKeyTypeA selects key A in the Login payload.
const loginKeyTypeA = 0xAA

// defaultKey is the factory transport key. Custom keys are not supported.
var defaultKey = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// CardType identifies the family of a selected card.
type CardType byte

// Card types as reported by Select (1-based wire index).
const (
	CardTypeUnknown          CardType = 0x00
	CardTypeMifare1K         CardType = 0x01
	CardTypeMifarePro        CardType = 0x02
	CardTypeMifareUltralight CardType = 0x03
	CardTypeMifare4K         CardType = 0x04
	CardTypeMifareProX       CardType = 0x05
	CardTypeMifareDesFire    CardType = 0x06
)

var cardTypeNames = [...]string{
	CardTypeMifare1K:         "Mifare 1K",
	CardTypeMifarePro:        "Mifare Pro",
	CardTypeMifareUltralight: "Mifare Ultralight",
	CardTypeMifare4K:         "Mifare 4K",
	CardTypeMifareProX:       "Mifare ProX",
	CardTypeMifareDesFire:    "Mifare DesFire",
}

// cardTypeFromWire maps the card type byte of a Select response. Values
// outside the enumeration become CardTypeUnknown.
func cardTypeFromWire(b byte) CardType {
	ct := CardType(b)
	if ct.Valid() {
		return ct
	}
	return CardTypeUnknown
}

// Valid reports whether c is one of the defined card types.
func (c CardType) Valid() bool {
	return c >= CardTypeMifare1K && c <= CardTypeMifareDesFire
}

// String returns the human-readable card type name
func (c CardType) String() string {
	if c.Valid() {
		return cardTypeNames[c]
	}
	return "Unknown"
}

// IsClassic reports whether the card uses sector authenticated 16 byte blocks.
func (c CardType) IsClassic() bool {
	return c == CardTypeMifare1K || c == CardTypeMifare4K
}

// MarshalText implements encoding.TextMarshaler
func (c CardType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
