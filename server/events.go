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

package server

import (
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	"github.com/google/uuid"
)

// Event topics
const (
	TopicNDEF    = "pi/rfid-ndef"
	TopicRemoved = "pi/rfid-removed"
)

// Event is broadcast to websocket clients when the card in the field changes
type Event struct {
	ID        string             `json:"id"`
	Topic     string             `json:"topic"`
	UID       string             `json:"uid,omitempty"`
	CardType  string             `json:"cardType,omitempty"`
	Text      string             `json:"text,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp string             `json:"timestamp"`
	Records   []sl030.NDEFRecord `json:"records,omitempty"`
}

// NewTagEvent describes a card and what was read from it. msg and readErr
// may both be nil for cards without NDEF memory.
func NewTagEvent(tag *sl030.Tag, msg *sl030.NDEFMessage, readErr error) Event {
	ev := Event{
		ID:        uuid.New().String(),
		Topic:     TopicNDEF,
		UID:       tag.UIDString(),
		CardType:  tag.Type.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if msg != nil {
		ev.Records = msg.Records
		ev.Text, _ = msg.FirstText()
	}
	if readErr != nil {
		ev.Error = readErr.Error()
	}
	return ev
}

// NewRemovedEvent reports that the card left the field
func NewRemovedEvent() Event {
	return Event{
		ID:        uuid.New().String(),
		Topic:     TopicRemoved,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Request is a message from a websocket client
type Request struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Request types
const (
	RequestPing      = "ping"
	RequestWriteText = "writeText"
)

// Response answers a Request
type Response struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}
