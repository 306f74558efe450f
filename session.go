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

// SectorForBlock returns the sector containing block
func SectorForBlock(block uint8) uint8 {
	return block >> 2
}

// Session is the login state of a reader. The zero value has no sector.
type Session struct {
	sector        uint8
	hasSector     bool
	authenticated bool
}

// CurrentSector returns the sector of the last login attempt
func (s Session) CurrentSector() (uint8, bool) {
	return s.sector, s.hasSector
}

// Authenticated reports whether a sector is logged in
func (s Session) Authenticated() bool {
	return s.hasSector && s.authenticated
}

// IsAuthenticatedFor reports whether block operations on sector are allowed
func (s Session) IsAuthenticatedFor(sector uint8) bool {
	return s.Authenticated() && s.sector == sector
}

// String implements fmt.Stringer
func (s Session) String() string {
	if !s.hasSector {
		return "no sector"
	}
	if !s.authenticated {
		return fmt.Sprintf("sector %d (unauthenticated)", s.sector)
	}
	return fmt.Sprintf("sector %d", s.sector)
}

func sectorSession(sector uint8, authenticated bool) Session {
	return Session{sector: sector, hasSector: true, authenticated: authenticated}
}
