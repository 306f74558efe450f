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
	"context"
	"fmt"
	"strings"
)

// Model identifies a StrongLink reader module
type Model string

const (
	// ModelSL030 is the full featured module with login, block and page access
	ModelSL030 Model = "sl030"
	// ModelSL018 only supports tag selection
	ModelSL018 Model = "sl018"
)

// ParseModel parses a model name such as "SL030"
func ParseModel(s string) (Model, error) {
	switch m := Model(strings.ToLower(strings.TrimSpace(s))); m {
	case ModelSL030, ModelSL018:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, s)
	}
}

// RFIDReader is the capability every module has: finding a tag
type RFIDReader interface {
	// SelectTag looks for a tag in the field. It returns ErrNoTag when the
	// field is empty.
	SelectTag() (*Tag, error)

	// SelectTagContext is SelectTag with a cancellation check before the
	// command is sent
	SelectTagContext(ctx context.Context) (*Tag, error)

	// Model returns the module model
	Model() Model

	// Close closes the transport
	Close() error
}

// Authenticator logs in to a sector with the default key
type Authenticator interface {
	Authenticate(sector uint8) error
	AuthenticateContext(ctx context.Context, sector uint8) error
	Session() Session
}

// BlockReadWriter accesses 16 byte blocks of classic cards
type BlockReadWriter interface {
	ReadBlock(block uint8) ([]byte, error)
	ReadBlockContext(ctx context.Context, block uint8) ([]byte, error)
	WriteBlock(block uint8, data []byte) error
	WriteBlockContext(ctx context.Context, block uint8, data []byte) error
}

// PageReadWriter accesses 4 byte pages of Ultralight cards
type PageReadWriter interface {
	ReadPage(page uint8) ([]byte, error)
	ReadPageContext(ctx context.Context, page uint8) ([]byte, error)
	WritePage(page uint8, data []byte) error
	WritePageContext(ctx context.Context, page uint8, data []byte) error
}

// ClassicReader is a reader with the full memory access command set
type ClassicReader interface {
	RFIDReader
	Authenticator
	BlockReadWriter
	PageReadWriter
}

// New creates the driver for model on top of transport
func New(model Model, transport Transport, opts ...Option) (RFIDReader, error) {
	switch model {
	case ModelSL030:
		return NewSL030(transport, opts...)
	case ModelSL018:
		return NewSL018(transport, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
	}
}

// AsClassic returns the reader's full command set if the model has one
func AsClassic(r RFIDReader) (ClassicReader, bool) {
	cr, ok := r.(ClassicReader)
	return cr, ok
}
