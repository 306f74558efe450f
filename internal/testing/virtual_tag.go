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
	"encoding/hex"
	"fmt"
)

// Card type bytes reported by Select
const (
	CardTypeMifare1K         byte = 0x01
	CardTypeMifareUltralight byte = 0x03
)

// Memory geometry
const (
	BlockSize         = 16
	PageSize          = 4
	BlocksPerSector   = 4
	mifare1KBlocks    = 64
	ultralightPages   = 16
	ntag213Pages      = 45
	firstUserPage     = 4
	capabilityPage    = 3
	firstWritablePage = 3
)

// DefaultKey is the transport key of a blank classic card
var DefaultKey = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// VirtualTag is a simulated card in the reader's field
type VirtualTag struct {
	UID      []byte
	Blocks   [][]byte // classic memory, nil for Ultralight
	Pages    [][]byte // Ultralight memory, nil for classic
	CardType byte
}

// NewVirtualMifare1K creates a blank Mifare Classic 1K card with default
// keys in every sector trailer.
func NewVirtualMifare1K(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestMifare1KUID
	}
	tag := &VirtualTag{
		CardType: CardTypeMifare1K,
		UID:      append([]byte(nil), uid...),
		Blocks:   make([][]byte, mifare1KBlocks),
	}

	for i := range tag.Blocks {
		tag.Blocks[i] = make([]byte, BlockSize)
	}
	copy(tag.Blocks[0], tag.UID)
	tag.Blocks[0][len(tag.UID)] = bcc(tag.UID)

	for sector := range mifare1KBlocks / BlocksPerSector {
		tag.Blocks[sector*BlocksPerSector+3] = []byte{
			0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // Key A
			0xFF, 0x07, 0x80, 0x69, // Access bits
			0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // Key B
		}
	}
	return tag
}

// NewVirtualUltralight creates a blank Mifare Ultralight card
func NewVirtualUltralight(uid []byte) *VirtualTag {
	return newVirtualPageTag(uid, ultralightPages, 0x06)
}

// NewVirtualNTAG213 creates a blank NTAG213, which the SL030 reports as an
// Ultralight
func NewVirtualNTAG213(uid []byte) *VirtualTag {
	return newVirtualPageTag(uid, ntag213Pages, 0x12)
}

func newVirtualPageTag(uid []byte, pages int, ccSize byte) *VirtualTag {
	if uid == nil {
		uid = TestUltralightUID
	}
	tag := &VirtualTag{
		CardType: CardTypeMifareUltralight,
		UID:      append([]byte(nil), uid...),
		Pages:    make([][]byte, pages),
	}
	for i := range tag.Pages {
		tag.Pages[i] = make([]byte, PageSize)
	}
	copy(tag.Pages[0], tag.UID[:3])
	copy(tag.Pages[1], tag.UID[3:])
	tag.Pages[capabilityPage] = []byte{0xE1, 0x10, ccSize, 0x00}
	// Empty NDEF TLV followed by a terminator
	copy(tag.Pages[firstUserPage], []byte{0x03, 0x00, 0xFE, 0x00})
	return tag
}

// UIDString returns the UID as hex
func (v *VirtualTag) UIDString() string {
	return hex.EncodeToString(v.UID)
}

// IsClassic reports whether the card has sector protected blocks
func (v *VirtualTag) IsClassic() bool {
	return v.Blocks != nil
}

// KeyA returns key A of sector
func (v *VirtualTag) KeyA(sector int) ([]byte, error) {
	trailer := sector*BlocksPerSector + 3
	if !v.IsClassic() || trailer >= len(v.Blocks) {
		return nil, fmt.Errorf("sector %d out of range", sector)
	}
	return v.Blocks[trailer][:6], nil
}

// SetKeyA replaces key A of sector
func (v *VirtualTag) SetKeyA(sector int, key []byte) error {
	current, err := v.KeyA(sector)
	if err != nil {
		return err
	}
	copy(current, key)
	return nil
}

// LoadPages copies data into consecutive pages from start, zero padding the
// last page
func (v *VirtualTag) LoadPages(start int, data []byte) error {
	for off := 0; off < len(data); off += PageSize {
		page := start + off/PageSize
		if page >= len(v.Pages) {
			return fmt.Errorf("page %d out of range", page)
		}
		v.Pages[page] = make([]byte, PageSize)
		copy(v.Pages[page], data[off:])
	}
	return nil
}

// Memory returns the concatenated user pages starting at page 4
func (v *VirtualTag) Memory() []byte {
	var mem []byte
	for _, p := range v.Pages[firstUserPage:] {
		mem = append(mem, p...)
	}
	return mem
}

func bcc(uid []byte) byte {
	var b byte
	for _, x := range uid {
		b ^= x
	}
	return b
}

// Common UIDs for testing
var (
	// TestMifare1KUID is a sample 4 byte classic UID
	TestMifare1KUID = []byte{0x12, 0x34, 0x56, 0x78}

	// TestUltralightUID is a sample 7 byte Ultralight UID
	TestUltralightUID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}
)
