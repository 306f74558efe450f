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

package polling

import "time"

// CardDetectionState represents the finite state machine for card detection
type CardDetectionState int

const (
	// StateIdle means no card is in the field
	StateIdle CardDetectionState = iota
	// StateTagDetected means a card answered the last poll
	StateTagDetected
	// StateMissing means a present card failed to answer at least one poll
	StateMissing
)

// String returns the state name
func (s CardDetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagDetected:
		return "detected"
	case StateMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// CardState tracks the card in the reader's field
type CardState struct {
	LastSeenTime   time.Time
	LastUID        string
	LastType       string
	DetectionState CardDetectionState
	Misses         int
	Present        bool
}

// TransitionToDetected records a card seen at now
func (cs *CardState) TransitionToDetected(uid, cardType string, now time.Time) {
	cs.DetectionState = StateTagDetected
	cs.Present = true
	cs.LastUID = uid
	cs.LastType = cardType
	cs.LastSeenTime = now
	cs.Misses = 0
}

// RecordMiss counts a poll without the card and reports whether the card
// is now considered removed
func (cs *CardState) RecordMiss(limit int) bool {
	if !cs.Present {
		return false
	}
	cs.Misses++
	cs.DetectionState = StateMissing
	return cs.Misses >= limit
}

// TransitionToIdle resets to idle state
func (cs *CardState) TransitionToIdle() {
	*cs = CardState{}
}
