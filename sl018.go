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

import "context"

// SL018 drives a StrongLink SL018 module. It can only select tags; it has
// no login or memory access methods.
type SL018 struct {
	*engine
}

// NewSL018 creates an SL018 driver on top of transport
func NewSL018(transport Transport, opts ...Option) (*SL018, error) {
	e, err := newEngine(transport, opts)
	if err != nil {
		return nil, err
	}
	return &SL018{engine: e}, nil
}

// Model implements RFIDReader
func (*SL018) Model() Model {
	return ModelSL018
}

// SelectTag looks for a tag in the field
func (r *SL018) SelectTag() (*Tag, error) {
	return r.selectTag(context.Background())
}

// SelectTagContext looks for a tag in the field
func (r *SL018) SelectTagContext(ctx context.Context) (*Tag, error) {
	return r.selectTag(ctx)
}

// Close closes the transport
func (r *SL018) Close() error {
	return r.close()
}

var _ RFIDReader = (*SL018)(nil)
