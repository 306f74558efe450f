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

package i2c_test

import (
	"testing"

	sl030 "github.com/ZaparooProject/go-sl030"
	testutil "github.com/ZaparooProject/go-sl030/internal/testing"
	sli2c "github.com/ZaparooProject/go-sl030/transport/i2c"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestTransportSelectExchange(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{0x01, 0x01}},
			{Addr: 0x50, R: testutil.BuildSelectResponse(testutil.TestMifare1KUID, testutil.CardTypeMifare1K)},
		},
		DontPanic: true,
	}
	transport := sli2c.NewWithBus(bus, "/dev/i2c-1")

	reader, err := sl030.NewSL030(transport, sl030.WithSleeper(&sl030.RecordingSleeper{}))
	require.NoError(t, err)

	tag, err := reader.SelectTag()
	require.NoError(t, err)
	assert.Equal(t, "0x12345678", tag.UIDString())

	require.NoError(t, reader.Close())
	assert.False(t, transport.IsConnected())
}

func TestTransportAddressOption(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x51, W: []byte{0x02, 0x10, 0x04}}},
		DontPanic: true,
	}
	transport := sli2c.NewWithBus(bus, "1", sli2c.WithAddress(0x51))

	require.NoError(t, transport.Write([]byte{0x02, 0x10, 0x04}))
	assert.Equal(t, "1@0x51", transport.String())
	assert.Equal(t, sl030.TransportI2C, transport.Type())
	require.NoError(t, transport.Close())
}

func TestTransportBusErrors(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{DontPanic: true}
	transport := sli2c.NewWithBus(bus, "/dev/i2c-1")

	require.Error(t, transport.Write([]byte{0x01, 0x01}))
	require.Error(t, transport.Read(make([]byte, 11)))
}

func TestTransportClosed(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{DontPanic: true}
	transport := sli2c.NewWithBus(bus, "/dev/i2c-1")
	assert.True(t, transport.IsConnected())

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close(), "closing twice is harmless")

	require.ErrorIs(t, transport.Write([]byte{0x01, 0x01}), sli2c.ErrClosed)
	require.ErrorIs(t, transport.Read(make([]byte, 3)), sli2c.ErrClosed)
}

func TestTransportWrapsBusErrorsForDriver(t *testing.T) {
	t.Parallel()

	bus := &i2ctest.Playback{DontPanic: true}
	reader, err := sl030.NewSL030(sli2c.NewWithBus(bus, "/dev/i2c-7"),
		sl030.WithSleeper(&sl030.RecordingSleeper{}))
	require.NoError(t, err)

	_, err = reader.SelectTag()
	require.ErrorIs(t, err, sl030.ErrTransportWrite)
	assert.Contains(t, err.Error(), "/dev/i2c-7@0x50")
}
