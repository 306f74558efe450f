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
	"testing"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	testutil "github.com/ZaparooProject/go-sl030/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeText(text string) TagOperation {
	return func(ctx context.Context, reader sl030.RFIDReader, _ *sl030.Tag) error {
		classic, ok := sl030.AsClassic(reader)
		if !ok {
			return sl030.ErrUnsupportedModel
		}
		return sl030.WriteNDEFText(ctx, classic, text)
	}
}

func startScanner(t *testing.T, card *testutil.VirtualTag) (*Scanner, *testutil.VirtualReader) {
	t.Helper()
	m, bus := newVirtualMonitor(t, card)
	s, err := NewScanner(m)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s, bus
}

func TestNewScannerRequiresMonitor(t *testing.T) {
	t.Parallel()
	_, err := NewScanner(nil)
	require.Error(t, err)
}

func TestScannerNotRunning(t *testing.T) {
	t.Parallel()

	m, _ := newVirtualMonitor(t, nil)
	s, err := NewScanner(m)
	require.NoError(t, err)
	assert.Same(t, m, s.Monitor())

	err = s.WriteToNextTag(context.Background(), time.Second, writeText("x"))
	require.ErrorIs(t, err, ErrScannerNotRunning)
	s.Stop()
}

func TestScannerWriteToNextTag(t *testing.T) {
	t.Parallel()

	s, bus := startScanner(t, nil)
	detected := make(chan string, 1)
	s.OnTagDetected = func(_ context.Context, tag *sl030.Tag) error {
		detected <- tag.UIDString()
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.WriteToNextTag(context.Background(), 2*time.Second, writeText("queued"))
	}()
	require.Eventually(t, s.HasPendingWrite, time.Second, time.Millisecond)

	card := testutil.NewVirtualNTAG213(nil)
	bus.PlaceTag(card)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("write did not complete")
	}
	assert.False(t, s.HasPendingWrite())
	assert.Equal(t, "0x04abcdef123456", <-detected)

	msg, err := sl030.DecodeNDEF(card.Memory()[2 : 2+int(card.Memory()[1])])
	require.NoError(t, err)
	text, _ := msg.FirstText()
	assert.Equal(t, "queued", text)
}

func TestScannerSecondWriteRejected(t *testing.T) {
	t.Parallel()

	s, _ := startScanner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.WriteToNextTag(ctx, 5*time.Second, writeText("first"))
	}()
	require.Eventually(t, s.HasPendingWrite, time.Second, time.Millisecond)

	err := s.WriteToNextTag(context.Background(), time.Second, writeText("second"))
	require.ErrorIs(t, err, ErrWriteAlreadyPending)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.False(t, s.HasPendingWrite())
}

func TestScannerWriteTimeout(t *testing.T) {
	t.Parallel()

	s, _ := startScanner(t, nil)
	err := s.WriteToNextTag(context.Background(), 20*time.Millisecond, writeText("never"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.HasPendingWrite())
}

func TestScannerRemovedCallback(t *testing.T) {
	t.Parallel()

	s, bus := startScanner(t, testutil.NewVirtualMifare1K(nil))
	removed := make(chan struct{}, 1)
	s.OnTagRemoved = func() {
		removed <- struct{}{}
	}

	require.Eventually(t, func() bool {
		return s.Monitor().GetState().Present
	}, time.Second, time.Millisecond)
	bus.RemoveTag()

	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("removal was not reported")
	}
}

func TestScannerStop(t *testing.T) {
	t.Parallel()

	m, _ := newVirtualMonitor(t, nil)
	s, err := NewScanner(m)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.Error(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

//nolint:tparallel // subtests share one scanner
func TestProcessPendingWriteContext(t *testing.T) {
	t.Parallel()

	m, _ := newVirtualMonitor(t, nil)
	s, err := NewScanner(m)
	require.NoError(t, err)

	t.Run("caller deadline reaches the operation", func(t *testing.T) {
		reqCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		wantDeadline, _ := reqCtx.Deadline()

		var gotDeadline time.Time
		req := &WriteRequest{
			ctx:    reqCtx,
			result: make(chan error, 1),
			operation: func(ctx context.Context, _ sl030.RFIDReader, _ *sl030.Tag) error {
				gotDeadline, _ = ctx.Deadline()
				return nil
			},
		}
		s.pendingWrite.Store(req)
		s.processPendingWrite(context.Background(), &sl030.Tag{})

		require.NoError(t, <-req.result)
		assert.Equal(t, wantDeadline, gotDeadline)
	})

	t.Run("caller cancellation reaches the operation", func(t *testing.T) {
		reqCtx, cancel := context.WithCancel(context.Background())
		req := &WriteRequest{
			ctx:    reqCtx,
			result: make(chan error, 1),
			operation: func(ctx context.Context, _ sl030.RFIDReader, _ *sl030.Tag) error {
				cancel()
				<-ctx.Done()
				return ctx.Err()
			},
		}
		s.pendingWrite.Store(req)
		s.processPendingWrite(context.Background(), &sl030.Tag{})

		require.ErrorIs(t, <-req.result, context.Canceled)
	})

	t.Run("stopping the poll loop cancels the operation", func(t *testing.T) {
		pollCtx, stopPoll := context.WithCancel(context.Background())
		stopPoll()

		req := &WriteRequest{
			ctx:    context.Background(),
			result: make(chan error, 1),
			operation: func(ctx context.Context, _ sl030.RFIDReader, _ *sl030.Tag) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}
		s.pendingWrite.Store(req)
		s.processPendingWrite(pollCtx, &sl030.Tag{})

		require.ErrorIs(t, <-req.result, context.Canceled)
	})
}
