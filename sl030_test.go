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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-sl030/internal/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSL030(t *testing.T, transport Transport) (*SL030, *RecordingSleeper) {
	t.Helper()
	sleeper := &RecordingSleeper{}
	reader, err := NewSL030(transport, WithSleeper(sleeper))
	require.NoError(t, err)
	return reader, sleeper
}

func loginOK() []byte {
	return testutil.BuildStatusResponse(testutil.CmdLogin, testutil.StatusLoginOK)
}

func TestSL030_SelectTag(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(testutil.BuildSelectResponse(testutil.TestMifare1KUID, testutil.CardTypeMifare1K))
	reader, sleeper := newTestSL030(t, mock)

	tag, err := reader.SelectTag()
	require.NoError(t, err)
	assert.Equal(t, testutil.TestMifare1KUID, tag.UID)
	assert.Equal(t, CardTypeMifare1K, tag.Type)

	if diff := cmp.Diff([][]byte{{0x01, 0x01}}, mock.Frames()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []time.Duration{SettleDelay}, sleeper.Calls())
}

func TestSL030_SelectTagErrors(t *testing.T) {
	t.Parallel()

	badLength := testutil.BuildSelectResponse(testutil.TestMifare1KUID, testutil.CardTypeMifare1K)
	badLength[0] = 0x08

	tests := []struct {
		wantErr error
		name    string
		resp    []byte
	}{
		{name: "no tag", resp: testutil.BuildNoTagResponse(), wantErr: ErrNoTag},
		{name: "wrong echo", resp: testutil.BuildStatusResponse(testutil.CmdLogin, 0x00), wantErr: ErrProtocolMismatch},
		{name: "empty response", resp: nil, wantErr: ErrProtocolMismatch},
		{name: "unexpected select length", resp: badLength, wantErr: ErrInvalidResponse},
		{name: "undocumented status", resp: testutil.BuildStatusResponse(testutil.CmdSelect, 0x09), wantErr: ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := NewMockTransport()
			mock.QueueResponse(tt.resp)
			reader, _ := newTestSL030(t, mock)

			tag, err := reader.SelectTag()
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, tag)
		})
	}
}

func TestSL030_AuthenticateFrame(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(loginOK())
	reader, _ := newTestSL030(t, mock)

	require.NoError(t, reader.Authenticate(3))

	want := [][]byte{{0x09, 0x02, 0x03, 0xAA, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}}
	if diff := cmp.Diff(want, mock.Frames()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, reader.Session().IsAuthenticatedFor(3))
	assert.False(t, reader.Session().IsAuthenticatedFor(2))
}

func TestSL030_AuthenticateStatusZeroIsFailure(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(testutil.BuildStatusResponse(testutil.CmdLogin, testutil.StatusOK))
	reader, _ := newTestSL030(t, mock)

	err := reader.Authenticate(1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, byte(0x00), se.Status)
	assert.False(t, reader.Session().Authenticated())
}

func TestSL030_FailedLoginDropsPreviousSector(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(
		loginOK(),
		testutil.BuildStatusResponse(testutil.CmdLogin, testutil.StatusLoginFailed),
	)
	reader, _ := newTestSL030(t, mock)

	require.NoError(t, reader.Authenticate(1))
	require.ErrorIs(t, reader.Authenticate(2), ErrLoginFailed)

	sector, ok := reader.Session().CurrentSector()
	assert.True(t, ok)
	assert.Equal(t, uint8(2), sector)
	assert.False(t, reader.Session().Authenticated())
	assert.False(t, reader.Session().IsAuthenticatedFor(1))
}

func TestSL030_FailedExchangeLeavesSectorUnauthenticated(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(loginOK())
	reader, _ := newTestSL030(t, mock)
	require.NoError(t, reader.Authenticate(1))

	mock.InjectReadError(errors.New("bus glitch"))
	err := reader.Authenticate(1)
	require.ErrorIs(t, err, ErrTransportRead)
	assert.Equal(t, "sector 1 (unauthenticated)", reader.Session().String())
}

func TestSL030_CancelledContextLeavesSessionAlone(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(loginOK())
	reader, sleeper := newTestSL030(t, mock)
	require.NoError(t, reader.Authenticate(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, reader.AuthenticateContext(ctx, 6), context.Canceled)
	_, err := reader.ReadBlockContext(ctx, 20)
	require.ErrorIs(t, err, context.Canceled)
	_, err = reader.SelectTagContext(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.True(t, reader.Session().IsAuthenticatedFor(5))
	assert.Len(t, mock.Frames(), 1, "nothing may be sent after cancellation")
	assert.Len(t, sleeper.Calls(), 1)
}

func TestSL030_SelectResetsSession(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(
		loginOK(),
		testutil.BuildNoTagResponse(),
		testutil.BuildSelectResponse(testutil.TestMifare1KUID, testutil.CardTypeMifare1K),
	)
	reader, _ := newTestSL030(t, mock)
	require.NoError(t, reader.Authenticate(2))

	_, err := reader.SelectTag()
	require.ErrorIs(t, err, ErrNoTag)
	assert.True(t, reader.Session().IsAuthenticatedFor(2), "a failed select keeps the session")

	_, err = reader.SelectTag()
	require.NoError(t, err)
	_, ok := reader.Session().CurrentSector()
	assert.False(t, ok)
	assert.Equal(t, "no sector", reader.Session().String())
}

func TestSL030_ReadBlock(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0x5A}, BlockSize)
	mock := NewMockTransport(testutil.BuildDataResponse(testutil.CmdRead16, data))
	reader, _ := newTestSL030(t, mock)

	got, err := reader.ReadBlock(9)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, [][]byte{{0x02, 0x03, 0x09}}, mock.Frames())
}

func TestSL030_WriteBlock(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0x11}, BlockSize)
	mock := NewMockTransport(testutil.BuildDataResponse(testutil.CmdWrite16, data))
	reader, _ := newTestSL030(t, mock)

	require.NoError(t, reader.WriteBlock(4, data))

	want := append([]byte{0x12, 0x04, 0x04}, data...)
	assert.Equal(t, [][]byte{want}, mock.Frames())
}

func TestSL030_InvalidDataLength(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	reader, _ := newTestSL030(t, mock)

	require.ErrorIs(t, reader.WriteBlock(4, make([]byte, 15)), ErrInvalidParameter)
	require.ErrorIs(t, reader.WriteBlock(4, make([]byte, 17)), ErrInvalidParameter)
	require.ErrorIs(t, reader.WritePage(4, make([]byte, 3)), ErrInvalidParameter)
	require.ErrorIs(t, reader.WritePage(4, nil), ErrInvalidParameter)
	assert.Empty(t, mock.Frames())
}

func TestSL030_PageAccess(t *testing.T) {
	t.Parallel()

	page := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	mock := NewMockTransport(
		testutil.BuildDataResponse(testutil.CmdRead4, page),
		testutil.BuildStatusResponse(testutil.CmdRead4, testutil.StatusNoTag),
		testutil.BuildDataResponse(testutil.CmdWrite4, page),
	)
	reader, _ := newTestSL030(t, mock)

	got, err := reader.ReadPage(4)
	require.NoError(t, err)
	assert.Equal(t, page, got)

	_, err = reader.ReadPage(200)
	require.ErrorIs(t, err, ErrEndOfData)

	require.NoError(t, reader.WritePage(5, page))

	want := [][]byte{
		{0x02, 0x10, 0x04},
		{0x02, 0x10, 0xC8},
		{0x06, 0x11, 0x05, 0xDE, 0xAD, 0xBE, 0xEF},
	}
	if diff := cmp.Diff(want, mock.Frames()); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestSL030_TransportErrors(t *testing.T) {
	t.Parallel()

	t.Run("write failure", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.InjectWriteError(errors.New("nack"))
		reader, sleeper := newTestSL030(t, mock)

		_, err := reader.SelectTag()
		require.ErrorIs(t, err, ErrTransportWrite)
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "mock", te.Port)
		assert.True(t, IsRetryable(err))
		assert.Empty(t, sleeper.Calls(), "no settle delay after a failed write")
	})

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.InjectReadError(errors.New("nack"))
		reader, _ := newTestSL030(t, mock)

		_, err := reader.ReadPage(4)
		require.ErrorIs(t, err, ErrTransportRead)
		assert.NotErrorIs(t, err, ErrEndOfData)
	})

	t.Run("closed transport", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		reader, _ := newTestSL030(t, mock)
		require.NoError(t, reader.Close())
		assert.False(t, mock.IsConnected())

		_, err := reader.SelectTag()
		require.ErrorIs(t, err, ErrTransportClosed)
	})
}

func TestSL030_NoRetry(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(testutil.BuildNoTagResponse(), testutil.BuildNoTagResponse())
	reader, _ := newTestSL030(t, mock)

	_, err := reader.SelectTag()
	require.ErrorIs(t, err, ErrNoTag)
	assert.Len(t, mock.Frames(), 1)
	assert.Equal(t, 1, mock.Pending())
}

func TestSL030_VirtualClassicCard(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMifare1K(nil)
	bus := testutil.NewVirtualReader(card)
	reader, sleeper := newTestSL030(t, bus)

	tag, err := reader.SelectTag()
	require.NoError(t, err)
	assert.Equal(t, "0x12345678", tag.UIDString())
	assert.Equal(t, CardTypeMifare1K, tag.Type)

	_, err = reader.ReadBlock(1)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, reader.Authenticate(0))
	block0, err := reader.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78, 0x08}, block0[:5])

	_, err = reader.ReadBlock(4)
	require.ErrorIs(t, err, ErrNotAuthenticated, "sector 1 is not logged in")

	require.ErrorIs(t, reader.WriteBlock(0, make([]byte, BlockSize)), ErrWriteFailed)

	require.NoError(t, reader.Authenticate(1))
	data := []byte("Hello world!\x00\x00\x00\x00")
	require.NoError(t, reader.WriteBlock(5, data))
	got, err := reader.ReadBlock(5)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, data, card.Blocks[5])

	for _, d := range sleeper.Calls() {
		assert.Equal(t, SettleDelay, d)
	}
	assert.Len(t, sleeper.Calls(), len(bus.Frames()))
}

func TestSL030_VirtualLoginFailures(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMifare1K(nil)
	require.NoError(t, card.SetKeyA(2, []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}))
	reader, _ := newTestSL030(t, testutil.NewVirtualReader(card))

	_, err := reader.SelectTag()
	require.NoError(t, err)

	require.ErrorIs(t, reader.Authenticate(2), ErrLoginFailed)
	require.ErrorIs(t, reader.Authenticate(16), ErrAddressOverflow)
	require.NoError(t, reader.Authenticate(3))
}

func TestSL030_VirtualUltralight(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualUltralight(nil)
	reader, _ := newTestSL030(t, testutil.NewVirtualReader(card))

	tag, err := reader.SelectTag()
	require.NoError(t, err)
	assert.Equal(t, testutil.TestUltralightUID, tag.UID)
	assert.Equal(t, CardTypeMifareUltralight, tag.Type)

	cc, err := reader.ReadPage(3)
	require.NoError(t, err)
	assert.Equal(t, byte(0xE1), cc[0])

	require.NoError(t, reader.WritePage(6, []byte{1, 2, 3, 4}))
	got, err := reader.ReadPage(6)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	require.ErrorIs(t, reader.WritePage(2, []byte{1, 2, 3, 4}), ErrWriteFailed)

	_, err = reader.ReadPage(16)
	require.ErrorIs(t, err, ErrEndOfData)
}

func TestSL030_VirtualEmptyField(t *testing.T) {
	t.Parallel()

	bus := testutil.NewVirtualReader(nil)
	reader, _ := newTestSL030(t, bus)

	_, err := reader.SelectTag()
	require.ErrorIs(t, err, ErrNoTag)

	bus.PlaceTag(testutil.NewVirtualNTAG213(nil))
	tag, err := reader.SelectTag()
	require.NoError(t, err)
	assert.Len(t, tag.UID, 7)

	bus.RemoveTag()
	_, err = reader.ReadPage(4)
	require.ErrorIs(t, err, ErrNoTag)
}

func TestSL030_VirtualBusLabelInErrors(t *testing.T) {
	t.Parallel()

	bus := testutil.NewVirtualReader(nil)
	bus.FailNextWrite(testutil.ErrInjectedFailure)
	reader, _ := newTestSL030(t, bus)

	_, err := reader.SelectTag()
	require.ErrorIs(t, err, testutil.ErrInjectedFailure)
	assert.Contains(t, err.Error(), "virtual")
}

func TestSL030_CancelAfterWriteStillReadsResponse(t *testing.T) {
	t.Parallel()

	bus := NewBlockingMockTransport(testutil.BuildNoTagResponse())
	reader, sleeper := newTestSL030(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := reader.SelectTagContext(ctx)
		done <- err
	}()

	select {
	case <-bus.Started():
	case <-time.After(time.Second):
		t.Fatal("select never reached the bus")
	}
	cancel()
	bus.Unblock()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrNoTag)
		assert.NotErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("select did not return")
	}
	assert.Equal(t, []time.Duration{SettleDelay}, sleeper.Calls())
}
