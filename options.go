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
	"errors"
)

// Option is a functional option for configuring a reader
type Option func(*engine) error

// WithSleeper replaces the wait used for the post-command settle delay.
// The delay itself is fixed at SettleDelay.
func WithSleeper(sleeper Sleeper) Option {
	return func(e *engine) error {
		if sleeper == nil {
			return errors.New("sleeper cannot be nil")
		}
		e.sleeper = sleeper
		return nil
	}
}

// WithName sets the bus label used in errors and debug output
func WithName(name string) Option {
	return func(e *engine) error {
		e.name = name
		return nil
	}
}
