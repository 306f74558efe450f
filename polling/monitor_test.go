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

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	testutil "github.com/ZaparooProject/go-sl030/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newVirtualMonitor(t *testing.T, card *testutil.VirtualTag) (*Monitor, *testutil.VirtualReader) {
	t.Helper()
	bus := testutil.NewVirtualReader(card)
	reader, err := sl030.NewSL030(bus, sl030.WithSleeper(&sl030.RecordingSleeper{}))
	require.NoError(t, err)

	m, err := NewMonitor(reader, &Config{PollInterval: 5 * time.Millisecond, RemovalMisses: 3})
	require.NoError(t, err)
	m.now = func() time.Time { return testNow }
	return m, bus
}

type callbackCounts struct {
	detected atomic.Int32
	changed  atomic.Int32
	removed  atomic.Int32
	errors   atomic.Int32
}

func (c *callbackCounts) install(m *Monitor) {
	m.OnCardDetected = func(context.Context, *sl030.Tag) error {
		c.detected.Add(1)
		return nil
	}
	m.OnCardChanged = func(context.Context, *sl030.Tag) error {
		c.changed.Add(1)
		return nil
	}
	m.OnCardRemoved = func() {
		c.removed.Add(1)
	}
	m.OnError = func(error) {
		c.errors.Add(1)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, (&Config{PollInterval: 0, RemovalMisses: 3}).Validate())
	require.Error(t, (&Config{PollInterval: time.Second, RemovalMisses: 0}).Validate())

	_, err := NewMonitor(nil, &Config{})
	require.Error(t, err)

	m, err := NewMonitor(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), m.config)
}

func TestPollOnceDetectsCardOnce(t *testing.T) {
	t.Parallel()

	m, _ := newVirtualMonitor(t, testutil.NewVirtualMifare1K(nil))
	var counts callbackCounts
	counts.install(m)
	ctx := context.Background()

	m.pollOnce(ctx)
	m.pollOnce(ctx)

	assert.Equal(t, int32(1), counts.detected.Load())
	assert.Zero(t, counts.changed.Load())
	state := m.GetState()
	assert.True(t, state.Present)
	assert.Equal(t, "0x12345678", state.LastUID)
	assert.Equal(t, "Mifare 1K", state.LastType)
	assert.Equal(t, testNow, state.LastSeenTime)
	assert.Equal(t, StateTagDetected, state.DetectionState)
}

func TestPollOnceReportsCardChange(t *testing.T) {
	t.Parallel()

	m, bus := newVirtualMonitor(t, testutil.NewVirtualMifare1K(nil))
	var counts callbackCounts
	counts.install(m)
	ctx := context.Background()

	m.pollOnce(ctx)
	bus.PlaceTag(testutil.NewVirtualUltralight(nil))
	m.pollOnce(ctx)

	assert.Equal(t, int32(1), counts.detected.Load())
	assert.Equal(t, int32(1), counts.changed.Load())
	assert.Zero(t, counts.removed.Load())
	assert.Equal(t, "0x04abcdef123456", m.GetState().LastUID)
}

func TestPollOnceRemovalAfterMisses(t *testing.T) {
	t.Parallel()

	m, bus := newVirtualMonitor(t, testutil.NewVirtualMifare1K(nil))
	var counts callbackCounts
	counts.install(m)
	ctx := context.Background()

	m.pollOnce(ctx)
	bus.RemoveTag()

	m.pollOnce(ctx)
	m.pollOnce(ctx)
	assert.Zero(t, counts.removed.Load())
	assert.Equal(t, StateMissing, m.GetState().DetectionState)
	assert.Equal(t, 2, m.GetState().Misses)

	m.pollOnce(ctx)
	assert.Equal(t, int32(1), counts.removed.Load())
	assert.Equal(t, CardState{}, m.GetState())

	m.pollOnce(ctx)
	assert.Equal(t, int32(1), counts.removed.Load(), "an empty field is not removed twice")
}

func TestPollOnceCardReturnsBeforeRemoval(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualMifare1K(nil)
	m, bus := newVirtualMonitor(t, card)
	var counts callbackCounts
	counts.install(m)
	ctx := context.Background()

	m.pollOnce(ctx)
	bus.RemoveTag()
	m.pollOnce(ctx)
	m.pollOnce(ctx)
	bus.PlaceTag(card)
	m.pollOnce(ctx)

	assert.Equal(t, int32(1), counts.detected.Load())
	assert.Zero(t, counts.removed.Load())
	assert.Zero(t, m.GetState().Misses)
}

func TestPollOnceErrors(t *testing.T) {
	t.Parallel()

	t.Run("bus error counts as a miss", func(t *testing.T) {
		t.Parallel()
		m, bus := newVirtualMonitor(t, testutil.NewVirtualMifare1K(nil))
		var counts callbackCounts
		counts.install(m)
		ctx := context.Background()

		m.pollOnce(ctx)
		bus.FailNextRead(testutil.ErrInjectedFailure)
		m.pollOnce(ctx)

		assert.Equal(t, int32(1), counts.errors.Load())
		assert.Equal(t, 1, m.GetState().Misses)
	})

	t.Run("callback error is reported", func(t *testing.T) {
		t.Parallel()
		m, _ := newVirtualMonitor(t, testutil.NewVirtualMifare1K(nil))
		var got error
		m.OnCardDetected = func(context.Context, *sl030.Tag) error {
			return errors.New("handler failed")
		}
		m.OnError = func(err error) { got = err }

		m.pollOnce(context.Background())
		require.EqualError(t, got, "handler failed")
		assert.True(t, m.GetState().Present)
	})

	t.Run("cancelled context is ignored", func(t *testing.T) {
		t.Parallel()
		m, bus := newVirtualMonitor(t, testutil.NewVirtualMifare1K(nil))
		var counts callbackCounts
		counts.install(m)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m.pollOnce(ctx)

		assert.Zero(t, counts.errors.Load())
		assert.Zero(t, counts.detected.Load())
		assert.Empty(t, bus.Frames())
	})
}

func TestMonitorStartAndDo(t *testing.T) {
	t.Parallel()

	m, bus := newVirtualMonitor(t, nil)
	detected := make(chan *sl030.Tag, 1)
	m.OnCardDetected = func(_ context.Context, tag *sl030.Tag) error {
		detected <- tag
		return nil
	}

	require.ErrorIs(t, m.Do(context.Background(), func(sl030.RFIDReader) error { return nil }), ErrMonitorStopped)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(ctx) }()

	require.Eventually(t, func() bool {
		return m.Do(ctx, func(sl030.RFIDReader) error { return nil }) == nil
	}, time.Second, time.Millisecond)
	require.Error(t, m.Start(ctx), "a second Start must fail")

	var model sl030.Model
	require.NoError(t, m.Do(ctx, func(r sl030.RFIDReader) error {
		model = r.Model()
		return nil
	}))
	assert.Equal(t, sl030.ModelSL030, model)

	wantErr := errors.New("from Do")
	require.ErrorIs(t, m.Do(ctx, func(sl030.RFIDReader) error { return wantErr }), wantErr)

	bus.PlaceTag(testutil.NewVirtualMifare1K(nil))
	select {
	case tag := <-detected:
		assert.Equal(t, "0x12345678", tag.UIDString())
	case <-time.After(time.Second):
		t.Fatal("card was not detected")
	}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.ErrorIs(t, m.Do(context.Background(), func(sl030.RFIDReader) error { return nil }), ErrMonitorStopped)

	require.NoError(t, m.Close())
	assert.False(t, bus.IsConnected())
}
