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
	"sync"
	"sync/atomic"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
)

// Scanner wraps a Monitor and lets callers queue an operation for the next
// card that enters the field, such as writing an NDEF message.
type Scanner struct {
	monitor       *Monitor
	pendingWrite  atomic.Pointer[WriteRequest]
	cancelFunc    context.CancelFunc
	done          chan struct{}
	OnTagDetected func(ctx context.Context, tag *sl030.Tag) error
	OnTagChanged  func(ctx context.Context, tag *sl030.Tag) error
	OnTagRemoved  func()
	stopMutex     sync.Mutex
	running       atomic.Bool
}

// TagOperation runs against a card just detected. It is called on the
// polling goroutine and may use the reader directly.
type TagOperation func(ctx context.Context, reader sl030.RFIDReader, tag *sl030.Tag) error

// WriteRequest represents a pending write operation
type WriteRequest struct {
	ctx       context.Context
	operation TagOperation
	result    chan error
}

// Scanner-specific errors
var (
	ErrWriteAlreadyPending = errors.New("write operation already pending")
	ErrScannerNotRunning   = errors.New("scanner is not running")
)

// NewScanner creates a scanner around monitor. The scanner installs its own
// monitor callbacks; set the scanner's On* fields instead.
func NewScanner(monitor *Monitor) (*Scanner, error) {
	if monitor == nil {
		return nil, errors.New("monitor cannot be nil")
	}
	s := &Scanner{monitor: monitor}
	monitor.OnCardDetected = func(ctx context.Context, tag *sl030.Tag) error {
		s.processPendingWrite(ctx, tag)
		if s.OnTagDetected != nil {
			return s.OnTagDetected(ctx, tag)
		}
		return nil
	}
	monitor.OnCardChanged = func(ctx context.Context, tag *sl030.Tag) error {
		s.processPendingWrite(ctx, tag)
		if s.OnTagChanged != nil {
			return s.OnTagChanged(ctx, tag)
		}
		return nil
	}
	monitor.OnCardRemoved = func() {
		if s.OnTagRemoved != nil {
			s.OnTagRemoved()
		}
	}
	return s, nil
}

// Monitor returns the wrapped monitor
func (s *Scanner) Monitor() *Monitor {
	return s.monitor
}

// Start runs the monitor in the background
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scanner is already running")
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.stopMutex.Unlock()

	go func() {
		defer close(done)
		defer s.running.Store(false)
		_ = s.monitor.Start(scanCtx)
	}()
	return nil
}

// Stop stops the monitor and waits for it to finish
func (s *Scanner) Stop() {
	s.stopMutex.Lock()
	cancel, done := s.cancelFunc, s.done
	s.cancelFunc, s.done = nil, nil
	s.stopMutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingWrite returns true if a write operation is waiting
func (s *Scanner) HasPendingWrite() bool {
	return s.pendingWrite.Load() != nil
}

// WriteToNextTag waits for the next card to be detected and runs operation
// on it. It blocks until the operation completes, the timeout expires or
// ctx is cancelled.
func (s *Scanner) WriteToNextTag(ctx context.Context, timeout time.Duration, operation TagOperation) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &WriteRequest{
		ctx:       writeCtx,
		operation: operation,
		result:    make(chan error, 1),
	}
	if !s.pendingWrite.CompareAndSwap(nil, req) {
		return ErrWriteAlreadyPending
	}
	defer s.pendingWrite.CompareAndSwap(req, nil)

	select {
	case err := <-req.result:
		return err
	case <-writeCtx.Done():
		return writeCtx.Err()
	}
}

// processPendingWrite runs the queued operation against tag
func (s *Scanner) processPendingWrite(ctx context.Context, tag *sl030.Tag) {
	req := s.pendingWrite.Swap(nil)
	if req == nil {
		return
	}
	if err := req.ctx.Err(); err != nil {
		req.result <- err
		return
	}

	// The operation is bounded by the caller's deadline and by the poll loop
	opCtx, cancel := context.WithCancel(req.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	req.result <- req.operation(opCtx, s.monitor.Reader(), tag)
}
