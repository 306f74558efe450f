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
)

// SL030 drives a StrongLink SL030 module: tag selection, sector login with
// the default key, 16 byte block access and 4 byte page access.
//
// Thread Safety: SL030 is NOT thread-safe. The module processes one command
// at a time and the login state is shared by every caller; serialize access
// through one goroutine (see polling.Monitor).
type SL030 struct {
	*engine
	session Session
}

// NewSL030 creates an SL030 driver on top of transport
func NewSL030(transport Transport, opts ...Option) (*SL030, error) {
	e, err := newEngine(transport, opts)
	if err != nil {
		return nil, err
	}
	return &SL030{engine: e}, nil
}

// Model implements RFIDReader
func (*SL030) Model() Model {
	return ModelSL030
}

// Transport returns the underlying transport
func (r *SL030) Transport() Transport {
	return r.transport
}

// Session returns the current login state
func (r *SL030) Session() Session {
	return r.session
}

// Close closes the transport
func (r *SL030) Close() error {
	return r.close()
}

// SelectTag looks for a tag in the field
func (r *SL030) SelectTag() (*Tag, error) {
	return r.SelectTagContext(context.Background())
}

// SelectTagContext looks for a tag in the field. A newly selected tag starts
// a new session with no sector logged in.
func (r *SL030) SelectTagContext(ctx context.Context) (*Tag, error) {
	tag, err := r.selectTag(ctx)
	if err != nil {
		return nil, err
	}
	r.session = Session{}
	return tag, nil
}

// Authenticate logs in to sector with key A set to the default key
func (r *SL030) Authenticate(sector uint8) error {
	return r.AuthenticateContext(context.Background(), sector)
}

// AuthenticateContext logs in to sector. Until it succeeds no sector is
// authenticated, including the one logged in before.
func (r *SL030) AuthenticateContext(ctx context.Context, sector uint8) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.session = sectorSession(sector, false)

	payload := make([]byte, 0, 2+len(defaultKey))
	payload = append(payload, sector, loginKeyTypeA)
	payload = append(payload, defaultKey[:]...)

	resp, err := r.exchange(ctx, CmdLogin, payload, loginResponseLen)
	if err != nil {
		return err
	}
	// Login reports success as 0x02
	if err := checkStatus(CmdLogin, resp, 0x02); err != nil {
		debugf("login to sector %d: %v", sector, err)
		return err
	}

	r.session = sectorSession(sector, true)
	return nil
}

// ReadBlock reads a 16 byte block. The block's sector must have been
// authenticated first; the module answers ErrNotAuthenticated otherwise.
func (r *SL030) ReadBlock(block uint8) ([]byte, error) {
	return r.ReadBlockContext(context.Background(), block)
}

// ReadBlockContext reads a 16 byte block
func (r *SL030) ReadBlockContext(ctx context.Context, block uint8) ([]byte, error) {
	resp, err := r.exchange(ctx, CmdRead16, []byte{block}, read16ResponseLen)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(CmdRead16, resp, 0x00); err != nil {
		debugf("read block %d: %v", block, err)
		return nil, err
	}
	return responseData(CmdRead16, resp, BlockSize)
}

// WriteBlock writes a 16 byte block. The module reads the block back and
// reports ErrVerifyFailed if that fails.
func (r *SL030) WriteBlock(block uint8, data []byte) error {
	return r.WriteBlockContext(context.Background(), block, data)
}

// WriteBlockContext writes a 16 byte block
func (r *SL030) WriteBlockContext(ctx context.Context, block uint8, data []byte) error {
	if len(data) != BlockSize {
		return fmt.Errorf("%w: block data must be %d bytes, got %d", ErrInvalidParameter, BlockSize, len(data))
	}

	payload := make([]byte, 0, 1+BlockSize)
	payload = append(payload, block)
	payload = append(payload, data...)

	resp, err := r.exchange(ctx, CmdWrite16, payload, write16ResponseLen)
	if err != nil {
		return err
	}
	if err := checkStatus(CmdWrite16, resp, 0x00); err != nil {
		debugf("write block %d: %v", block, err)
		return err
	}
	return nil
}

// ReadPage reads a 4 byte Ultralight page. Any non-zero status, including
// reading past the end of the card, matches ErrEndOfData.
func (r *SL030) ReadPage(page uint8) ([]byte, error) {
	return r.ReadPageContext(context.Background(), page)
}

// ReadPageContext reads a 4 byte Ultralight page
func (r *SL030) ReadPageContext(ctx context.Context, page uint8) ([]byte, error) {
	resp, err := r.exchange(ctx, CmdRead4, []byte{page}, read4ResponseLen)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(CmdRead4, resp, 0x00); err != nil {
		return nil, err
	}
	return responseData(CmdRead4, resp, PageSize)
}

// WritePage writes a 4 byte Ultralight page
func (r *SL030) WritePage(page uint8, data []byte) error {
	return r.WritePageContext(context.Background(), page, data)
}

// WritePageContext writes a 4 byte Ultralight page
func (r *SL030) WritePageContext(ctx context.Context, page uint8, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("%w: page data must be %d bytes, got %d", ErrInvalidParameter, PageSize, len(data))
	}

	payload := make([]byte, 0, 1+PageSize)
	payload = append(payload, page)
	payload = append(payload, data...)

	resp, err := r.exchange(ctx, CmdWrite4, payload, write4ResponseLen)
	if err != nil {
		return err
	}
	if err := checkStatus(CmdWrite4, resp, 0x00); err != nil {
		debugf("write page %d: %v", page, err)
		return err
	}
	return nil
}

var _ ClassicReader = (*SL030)(nil)
