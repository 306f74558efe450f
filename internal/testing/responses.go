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

// Command bytes understood by the virtual reader
const (
	CmdSelect  = 0x01
	CmdLogin   = 0x02
	CmdRead16  = 0x03
	CmdWrite16 = 0x04
	CmdRead4   = 0x10
	CmdWrite4  = 0x11
)

// Status bytes
const (
	StatusOK            = 0x00
	StatusNoTag         = 0x01
	StatusLoginOK       = 0x02
	StatusLoginFailed   = 0x03
	StatusReadFailed    = 0x04
	StatusWriteFailed   = 0x05
	StatusVerifyFailed  = 0x06
	StatusAddressOver   = 0x08
	StatusNotAuthorized = 0x0D
)

// Fixed response sizes read by the driver
const (
	SelectResponseLen  = 11
	LoginResponseLen   = 3
	Read16ResponseLen  = 19
	Write16ResponseLen = 19
	Read4ResponseLen   = 7
	Write4ResponseLen  = 7
)

// BuildSelectResponse creates a successful Select response for uid
func BuildSelectResponse(uid []byte, cardType byte) []byte {
	resp := []byte{byte(len(uid) + 3), CmdSelect, StatusOK}
	resp = append(resp, uid...)
	resp = append(resp, cardType)
	return pad(resp, SelectResponseLen)
}

// BuildNoTagResponse creates a Select response for an empty field
func BuildNoTagResponse() []byte {
	return BuildStatusResponse(CmdSelect, StatusNoTag)
}

// BuildStatusResponse creates a response carrying only a status byte,
// padded to the size the driver reads for cmd
func BuildStatusResponse(cmd, status byte) []byte {
	return pad([]byte{0x02, cmd, status}, ResponseLen(cmd))
}

// BuildDataResponse creates a successful response carrying data
func BuildDataResponse(cmd byte, data []byte) []byte {
	resp := []byte{byte(len(data) + 2), cmd, StatusOK}
	resp = append(resp, data...)
	return pad(resp, ResponseLen(cmd))
}

// ResponseLen returns the number of bytes the driver reads for cmd
func ResponseLen(cmd byte) int {
	switch cmd {
	case CmdSelect:
		return SelectResponseLen
	case CmdLogin:
		return LoginResponseLen
	case CmdRead16:
		return Read16ResponseLen
	case CmdWrite16:
		return Write16ResponseLen
	case CmdRead4:
		return Read4ResponseLen
	case CmdWrite4:
		return Write4ResponseLen
	default:
		return 3
	}
}

func pad(resp []byte, n int) []byte {
	if len(resp) >= n {
		return resp
	}
	out := make([]byte, n)
	copy(out, resp)
	return out
}
