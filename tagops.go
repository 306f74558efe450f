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
	"errors"
	"fmt"
)

const (
	// CapabilityContainerPage holds the NDEF magic, version and data area size
	CapabilityContainerPage uint8 = 3
	// NDEFStartPage is the first user data page of an Ultralight/NTAG tag
	NDEFStartPage uint8 = 4
)

const (
	maxPageAddress = 0xFF
	ndefMagic      = 0xE1
)

var (
	// ErrDataTooLarge is returned when data does not fit the tag
	ErrDataTooLarge = errors.New("data too large for tag")
	// ErrNotNDEFFormatted is returned when the capability container lacks the NDEF magic
	ErrNotNDEFFormatted = errors.New("tag is not NDEF formatted")
)

// SectorReader can log in to sectors and read blocks
type SectorReader interface {
	Authenticator
	ReadBlockContext(ctx context.Context, block uint8) ([]byte, error)
}

// PageReader reads Ultralight pages
type PageReader interface {
	ReadPageContext(ctx context.Context, page uint8) ([]byte, error)
}

// PageWriter writes Ultralight pages
type PageWriter interface {
	WritePageContext(ctx context.Context, page uint8, data []byte) error
}

// ReadBlockAuto reads block, logging in to its sector first unless the
// session is already authenticated for it.
func ReadBlockAuto(ctx context.Context, r SectorReader, block uint8) ([]byte, error) {
	sector := SectorForBlock(block)
	if !r.Session().IsAuthenticatedFor(sector) {
		if err := r.AuthenticateContext(ctx, sector); err != nil {
			return nil, fmt.Errorf("failed to authenticate sector %d: %w", sector, err)
		}
	}
	return r.ReadBlockContext(ctx, block)
}

// BlockResult is the outcome of reading one block in DumpBlocks
type BlockResult struct {
	Err   error
	Data  []byte
	Block uint8
}

// DumpBlocks reads count blocks starting at first. Per block failures are
// kept in the results; the dump stops early when the tag leaves the field
// or ctx is cancelled.
func DumpBlocks(ctx context.Context, r SectorReader, first uint8, count int) ([]BlockResult, error) {
	if count < 0 || int(first)+count > maxPageAddress+1 {
		return nil, fmt.Errorf("%w: blocks %d+%d out of range", ErrInvalidParameter, first, count)
	}

	results := make([]BlockResult, 0, count)
	for i := range count {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		block := first + uint8(i) //nolint:gosec // bounded by the range check above
		data, err := ReadBlockAuto(ctx, r, block)
		results = append(results, BlockResult{Block: block, Data: data, Err: err})
		if errors.Is(err, ErrNoTag) {
			return results, err
		}
		if err != nil {
			debugf("block %d: %v", block, err)
		}
	}
	return results, nil
}

// ReadMemory reads pages from startPage until the tag reports end of data
// or maxPages pages have been read. maxPages <= 0 reads to the end of the
// page address space. Any other error aborts the read.
func ReadMemory(ctx context.Context, r PageReader, startPage uint8, maxPages int) ([]byte, error) {
	limit := maxPageAddress - int(startPage) + 1
	if maxPages <= 0 || maxPages > limit {
		maxPages = limit
	}

	mem := make([]byte, 0, maxPages*PageSize)
	for i := range maxPages {
		page := startPage + uint8(i) //nolint:gosec // bounded by limit
		data, err := r.ReadPageContext(ctx, page)
		if errors.Is(err, ErrEndOfData) {
			debugf("end of data at page %d", page)
			break
		}
		if err != nil {
			return mem, fmt.Errorf("failed to read page %d: %w", page, err)
		}
		mem = append(mem, data...)
	}
	return mem, nil
}

// ReadNDEF reads tag memory from NDEFStartPage and decodes every NDEF
// message in it. The records of all messages are returned in tag order.
func ReadNDEF(ctx context.Context, r PageReader) (*NDEFMessage, error) {
	mem, err := ReadMemory(ctx, r, NDEFStartPage, 0)
	if err != nil {
		return nil, err
	}

	msgs, err := ParseNDEFMessages(mem)
	if len(msgs) == 0 {
		if err != nil {
			return nil, err
		}
		return nil, ErrNoNDEF
	}
	if err != nil {
		debugf("ignoring TLV error after %d messages: %v", len(msgs), err)
	}

	result := &NDEFMessage{}
	var decodeErr error
	for i, payload := range msgs {
		msg, msgErr := DecodeNDEF(payload)
		if msgErr != nil {
			debugf("skipping NDEF message %d: %v", i, msgErr)
			if decodeErr == nil {
				decodeErr = msgErr
			}
			continue
		}
		result.Records = append(result.Records, msg.Records...)
	}
	if len(result.Records) == 0 {
		if decodeErr != nil {
			return nil, decodeErr
		}
		return nil, ErrNoNDEF
	}
	return result, nil
}

// ReadNDEFCapacity reads the capability container and returns the size in
// bytes of the NDEF data area that starts at NDEFStartPage.
func ReadNDEFCapacity(ctx context.Context, r PageReader) (int, error) {
	cc, err := r.ReadPageContext(ctx, CapabilityContainerPage)
	if err != nil {
		return 0, fmt.Errorf("failed to read capability container: %w", err)
	}
	if len(cc) < PageSize || cc[0] != ndefMagic {
		return 0, fmt.Errorf("%w: capability container % X", ErrNotNDEFFormatted, cc)
	}
	return int(cc[2]) * 8, nil
}

// PageReadWriterContext reads and writes Ultralight pages
type PageReadWriterContext interface {
	PageReader
	PageWriter
}

// WriteNDEFText writes a single text record NDEF message, wrapped in a TLV
// and terminated, to the pages starting at NDEFStartPage. Nothing is written
// when the message does not fit the capacity in the capability container.
func WriteNDEFText(ctx context.Context, rw PageReadWriterContext, text string) error {
	msg, err := BuildTextMessage(text, "en")
	if err != nil {
		return err
	}
	data, err := EncodeNDEFTLV(msg)
	if err != nil {
		return err
	}

	capacity, err := ReadNDEFCapacity(ctx, rw)
	if err != nil {
		return err
	}
	if len(data) > capacity {
		return fmt.Errorf("%w: %d bytes, tag holds %d", ErrDataTooLarge, len(data), capacity)
	}
	return WritePages(ctx, rw, NDEFStartPage, data)
}

// WritePages writes data to consecutive pages from startPage, zero padding
// the last page.
func WritePages(ctx context.Context, w PageWriter, startPage uint8, data []byte) error {
	pages := (len(data) + PageSize - 1) / PageSize
	if int(startPage)+pages > maxPageAddress+1 {
		return fmt.Errorf("%w: %d bytes from page %d", ErrDataTooLarge, len(data), startPage)
	}

	padded := make([]byte, pages*PageSize)
	copy(padded, data)
	for i := range pages {
		page := startPage + uint8(i) //nolint:gosec // bounded by the check above
		chunk := padded[i*PageSize : (i+1)*PageSize]
		if err := w.WritePageContext(ctx, page, chunk); err != nil {
			return fmt.Errorf("failed to write page %d: %w", page, err)
		}
	}
	return nil
}
