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
	"fmt"
	"sync"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
)

// ErrMonitorStopped is returned by Do when the monitor is not running
var ErrMonitorStopped = errors.New("monitor is not running")

// Config holds polling configuration
type Config struct {
	// PollInterval is the time between two Select commands
	PollInterval time.Duration
	// RemovalMisses is how many polls in a row must miss the card before
	// it is reported as removed
	RemovalMisses int
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  250 * time.Millisecond,
		RemovalMisses: 3,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.RemovalMisses < 1 {
		return fmt.Errorf("removal misses must be at least 1, got %d", c.RemovalMisses)
	}
	return nil
}

type request struct {
	fn   func(sl030.RFIDReader) error
	done chan error
}

// Monitor polls a reader for cards and owns all access to it. Callbacks run
// on the polling goroutine and may use the reader directly; other
// goroutines must go through Do.
type Monitor struct {
	reader         sl030.RFIDReader
	config         *Config
	OnCardDetected func(ctx context.Context, tag *sl030.Tag) error
	OnCardChanged  func(ctx context.Context, tag *sl030.Tag) error
	OnCardRemoved  func()
	OnError        func(err error)
	requests       chan request
	stopped        chan struct{}
	now            func() time.Time
	state          CardState
	mu             sync.RWMutex
	runMu          sync.Mutex
	running        bool
}

// NewMonitor creates a new card monitor
func NewMonitor(reader sl030.RFIDReader, config *Config) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{
		reader:   reader,
		config:   config,
		requests: make(chan request),
		now:      time.Now,
	}, nil
}

// Start polls until ctx is cancelled. It returns ctx.Err().
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	if m.running {
		m.runMu.Unlock()
		return errors.New("monitor already running")
	}
	m.running = true
	m.stopped = make(chan struct{})
	stopped := m.stopped
	m.runMu.Unlock()

	defer func() {
		m.runMu.Lock()
		m.running = false
		close(stopped)
		m.runMu.Unlock()
	}()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-m.requests:
			req.done <- req.fn(m.reader)
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// Do runs fn on the polling goroutine, between two polls, and returns its
// error
func (m *Monitor) Do(ctx context.Context, fn func(sl030.RFIDReader) error) error {
	m.runMu.Lock()
	running, stopped := m.running, m.stopped
	m.runMu.Unlock()
	if !running {
		return ErrMonitorStopped
	}

	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case m.requests <- req:
	case <-stopped:
		return ErrMonitorStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the request runs to completion
	return <-req.done
}

// GetState returns the current card state
func (m *Monitor) GetState() CardState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Reader returns the monitored reader. Use it only from callbacks or Do.
func (m *Monitor) Reader() sl030.RFIDReader {
	return m.reader
}

// Close closes the reader
func (m *Monitor) Close() error {
	if err := m.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}
	return nil
}

// pollOnce runs one Select and updates the card state
func (m *Monitor) pollOnce(ctx context.Context) {
	tag, err := m.reader.SelectTagContext(ctx)
	switch {
	case err == nil:
		m.handleTag(ctx, tag)
	case errors.Is(err, sl030.ErrNoTag):
		m.handleMiss()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		m.reportError(fmt.Errorf("tag detection failed: %w", err))
		m.handleMiss()
	}
}

func (m *Monitor) handleTag(ctx context.Context, tag *sl030.Tag) {
	uid := tag.UIDString()

	m.mu.Lock()
	wasPresent, lastUID := m.state.Present, m.state.LastUID
	m.state.TransitionToDetected(uid, tag.Type.String(), m.now())
	m.mu.Unlock()

	var err error
	switch {
	case !wasPresent:
		if m.OnCardDetected != nil {
			err = m.OnCardDetected(ctx, tag)
		}
	case lastUID != uid:
		if m.OnCardChanged != nil {
			err = m.OnCardChanged(ctx, tag)
		}
	}
	if err != nil {
		m.reportError(err)
	}
}

func (m *Monitor) handleMiss() {
	m.mu.Lock()
	removed := m.state.RecordMiss(m.config.RemovalMisses)
	if removed {
		m.state.TransitionToIdle()
	}
	m.mu.Unlock()

	if removed && m.OnCardRemoved != nil {
		m.OnCardRemoved()
	}
}

func (m *Monitor) reportError(err error) {
	if m.OnError != nil {
		m.OnError(err)
	}
}
