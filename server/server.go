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

// Package server publishes card events to websocket clients and announces
// itself over mDNS
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

// mDNS registration
const (
	MDNSServiceType = "_sl030._tcp"
	MDNSDomain      = "local."

	shutdownTimeout = 5 * time.Second
)

// WriteTextFunc writes text to the next card presented
type WriteTextFunc func(ctx context.Context, text string) error

// Config holds server configuration
type Config struct {
	// WriteText handles writeText requests; nil rejects them
	WriteText WriteTextFunc
	Listen    string
	Instance  string
	MDNS      bool
}

// Server serves /ws and /api/v1/health
type Server struct {
	hub      *Hub
	config   Config
	upgrader websocket.Upgrader
}

// New creates a server publishing the events broadcast on hub
func New(config Config, hub *Hub) *Server {
	return &Server{
		config: config,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
}

// Hub returns the event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/v1/health", s.handleHealthCheck)
	mux.HandleFunc("/api/v1/last", s.handleLastEvent)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	if s.config.MDNS {
		port := ln.Addr().(*net.TCPAddr).Port
		mdns, err := s.startMDNS(port)
		if err != nil {
			log.Printf("[server] mDNS disabled: %v", err)
		} else {
			defer mdns.Shutdown()
		}
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", ln.Addr())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	s.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// startMDNS registers the service for discovery on the local network
func (s *Server) startMDNS(port int) (*zeroconf.Server, error) {
	txtRecords := []string{
		"version=1.0",
		"protocol=websocket",
		"path=/ws",
		"topic=" + TopicNDEF,
	}

	mdns, err := zeroconf.Register(s.config.Instance, MDNSServiceType, MDNSDomain, port, txtRecords, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	log.Printf("[server] mDNS service registered: %s on port %d", s.config.Instance, port)
	return mdns, nil
}

// handleWebSocket upgrades the connection and serves client requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade failed: %v", err)
		return
	}

	id := s.hub.Register(conn)
	defer s.hub.Unregister(conn)
	log.Printf("[server] client %s connected", id)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			log.Printf("[server] client %s disconnected: %v", id, err)
			return
		}

		resp := s.handleRequest(r.Context(), req)
		if err := s.hub.Send(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID, Type: req.Type}
	switch req.Type {
	case RequestPing:
		resp.Success = true
	case RequestWriteText:
		if s.config.WriteText == nil {
			resp.Error = "writing is not supported by this reader"
			return resp
		}
		if err := s.config.WriteText(ctx, req.Text); err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Success = true
	default:
		resp.Error = fmt.Sprintf("unknown request type %q", req.Type)
	}
	return resp
}

// handleHealthCheck provides a health check endpoint (GET /api/v1/health)
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"clients":   s.hub.ClientCount(),
	})
}

// handleLastEvent returns the last broadcast event (GET /api/v1/last)
func (s *Server) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	last := s.hub.Last()
	if last == nil {
		http.Error(w, "No event yet", http.StatusNotFound)
		return
	}
	writeJSON(w, last)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}
