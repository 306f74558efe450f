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

/*
Package sl030 provides a pure Go driver for the StrongLink SL030 and SL018
13.56 MHz RFID reader modules.

Both modules sit on an I2C bus at address 0x50 and speak a simple framed
protocol: the host writes [length][command][payload], waits for the module
to process the command, then reads [length][command][status][data]. This
package builds the frames, waits the settle delay, validates the response
header and maps each status byte to an error.

Features:
  - Tag selection for 4 and 7 byte UIDs with card type detection
  - Sector login with the default key and 16 byte block access (Mifare Classic)
  - 4 byte page access (Mifare Ultralight, NTAG)
  - TLV scanning of tag memory and NDEF decoding
  - Session tracking of the logged in sector

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-sl030"
	    "github.com/ZaparooProject/go-sl030/transport/i2c"
	)

	transport, err := i2c.New("/dev/i2c-1")
	if err != nil {
	    log.Fatal(err)
	}

	reader, err := sl030.NewSL030(transport)
	if err != nil {
	    log.Fatal(err)
	}
	defer reader.Close()

	tag, err := reader.SelectTag()
	if errors.Is(err, sl030.ErrNoTag) {
	    return
	}

	if err := reader.Authenticate(sl030.SectorForBlock(4)); err != nil {
	    log.Fatal(err)
	}
	block, err := reader.ReadBlock(4)

Models:

The SL018 only implements Select. New returns an RFIDReader for either
model; use AsClassic to reach login, block and page access on an SL030.

Error Handling:

Bus failures are *TransportError values wrapping ErrTransportWrite or
ErrTransportRead. A response that does not echo the command sent is a
*ProtocolError wrapping ErrProtocolMismatch. A well-formed response with a
failure status is a *StatusError that unwraps to a sentinel:

	if errors.Is(err, sl030.ErrNotAuthenticated) {
	    // log in to the block's sector first
	}

The driver never retries. IsRetryable tells callers which errors may go
away on a later attempt.

Thread Safety:

Readers are not thread-safe. The module handles one command at a time and
the login state is shared, so serialize access, for example through
polling.Monitor.Do.
*/
package sl030
