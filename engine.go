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

// engine runs the command/response exchange shared by all SL0xx models
type engine struct {
	transport Transport
	sleeper   Sleeper
	name      string
}

func newEngine(transport Transport, opts []Option) (*engine, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	e := &engine{
		transport: transport,
		sleeper:   realSleeper{},
		name:      transportName(transport),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// exchange writes one command frame, waits SettleDelay and reads a
// respLen byte response whose header has been validated. The context is
// only checked before the frame is written: once a command is on the bus
// its response is always read.
func (e *engine) exchange(ctx context.Context, cmd Command, payload []byte, respLen int) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	frame := BuildCommandFrame(cmd, payload)
	debugf(">> %s % X", cmd, frame)

	if err := e.transport.Write(frame); err != nil {
		return nil, NewTransportError("write "+cmd.String(), e.name,
			fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypeTransient)
	}

	e.sleeper.Sleep(SettleDelay)

	resp := make([]byte, respLen)
	if err := e.transport.Read(resp); err != nil {
		return nil, NewTransportError("read "+cmd.String(), e.name,
			fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
	}
	debugf("<< %s % X", cmd, resp)

	if err := validateResponse(cmd, resp); err != nil {
		debugln("invalid response from reader:", err)
		return nil, err
	}
	return resp, nil
}

// selectTag runs Select and decodes the tag in the response
func (e *engine) selectTag(ctx context.Context) (*Tag, error) {
	resp, err := e.exchange(ctx, CmdSelect, nil, selectResponseLen)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(CmdSelect, resp, 0x00); err != nil {
		return nil, err
	}

	tag, err := decodeSelect(resp)
	if err != nil {
		return nil, err
	}
	debugf("selected %s", tag)
	return tag, nil
}

func (e *engine) close() error {
	if err := e.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
