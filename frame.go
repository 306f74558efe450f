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

// BuildCommandFrame returns [length][command][payload...] where length
// counts the command byte and the payload.
func BuildCommandFrame(cmd Command, payload []byte) []byte {
	frame := make([]byte, 2+len(payload))
	frame[0] = byte(1 + len(payload))
	frame[1] = byte(cmd)
	copy(frame[2:], payload)
	return frame
}

// validateResponse checks the declared length and the echoed command of a
// response header. It does not look at the status byte.
func validateResponse(cmd Command, resp []byte) error {
	if len(resp) < offsetData {
		return &ProtocolError{Err: ErrProtocolMismatch, Command: cmd, Expected: minDeclaredLength}
	}
	if resp[offsetLength] < minDeclaredLength || resp[offsetCommand] != byte(cmd) {
		return &ProtocolError{
			Err:      ErrProtocolMismatch,
			Command:  cmd,
			Got:      resp[offsetCommand],
			Length:   resp[offsetLength],
			Expected: minDeclaredLength,
		}
	}
	return nil
}

// checkStatus returns a StatusError unless the response carries want
func checkStatus(cmd Command, resp []byte, want byte) error {
	if resp[offsetStatus] != want {
		return &StatusError{Command: cmd, Status: resp[offsetStatus]}
	}
	return nil
}

// responseData returns a copy of n data bytes, rejecting responses whose
// declared length does not cover them.
func responseData(cmd Command, resp []byte, n int) ([]byte, error) {
	need := minDeclaredLength + n
	if int(resp[offsetLength]) < need || len(resp) < offsetData+n {
		return nil, &ProtocolError{
			Err:      ErrProtocolMismatch,
			Command:  cmd,
			Got:      resp[offsetCommand],
			Length:   resp[offsetLength],
			Expected: need,
		}
	}
	data := make([]byte, n)
	copy(data, resp[offsetData:offsetData+n])
	return data, nil
}
