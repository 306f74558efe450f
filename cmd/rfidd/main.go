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

// Command rfidd polls an SL030/SL018 reader and publishes card events to
// websocket clients
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	"github.com/ZaparooProject/go-sl030/detection"
	i2cdetect "github.com/ZaparooProject/go-sl030/detection/i2c"
	"github.com/ZaparooProject/go-sl030/internal/config"
	"github.com/ZaparooProject/go-sl030/polling"
	"github.com/ZaparooProject/go-sl030/server"
	"github.com/ZaparooProject/go-sl030/transport/i2c"
)

const writeTimeout = 30 * time.Second

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

type detectFunc func(ctx context.Context, opts *detection.Options) (detection.DeviceInfo, error)

// resolveDevice returns the configured bus and address, or those of the
// first detected reader when no bus is configured
func resolveDevice(ctx context.Context, cfg *config.Config, detect detectFunc) (string, uint16, error) {
	if cfg.Reader.Bus != "" {
		return cfg.Reader.Bus, cfg.Reader.Address, nil
	}

	device, err := detect(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("auto-detection failed: %w", err)
	}
	bus, addr, err := i2cdetect.ParseDevice(device)
	if err != nil {
		return "", 0, err
	}
	log.Printf("[rfidd] detected %s", device.Name)
	return bus, addr, nil
}

func openReader(ctx context.Context, cfg *config.Config) (sl030.RFIDReader, error) {
	bus, addr, err := resolveDevice(ctx, cfg, detection.DetectFirst)
	if err != nil {
		return nil, err
	}

	transport, err := i2c.New(bus, i2c.WithAddress(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to create I2C transport: %w", err)
	}
	reader, err := sl030.New(cfg.Model(), transport)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return reader, nil
}

// tagEvent reads what it can from a newly detected card
func tagEvent(ctx context.Context, reader sl030.RFIDReader, tag *sl030.Tag) server.Event {
	classic, ok := sl030.AsClassic(reader)
	if !ok || tag.Type != sl030.CardTypeMifareUltralight {
		return server.NewTagEvent(tag, nil, nil)
	}

	msg, err := sl030.ReadNDEF(ctx, classic)
	if errors.Is(err, sl030.ErrNoNDEF) {
		err = nil
	}
	return server.NewTagEvent(tag, msg, err)
}

func writeText(scanner *polling.Scanner) server.WriteTextFunc {
	return func(ctx context.Context, text string) error {
		return scanner.WriteToNextTag(ctx, writeTimeout,
			func(ctx context.Context, reader sl030.RFIDReader, tag *sl030.Tag) error {
				classic, ok := sl030.AsClassic(reader)
				if !ok {
					return fmt.Errorf("%s cannot write tags", reader.Model())
				}
				log.Printf("[rfidd] writing text to %s", tag.UIDString())
				return sl030.WriteNDEFText(ctx, classic, text)
			})
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	reader, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}

	monitor, err := polling.NewMonitor(reader, &polling.Config{
		PollInterval:  cfg.Poll.Interval,
		RemovalMisses: cfg.Poll.RemovalMisses,
	})
	if err != nil {
		_ = reader.Close()
		return err
	}
	defer func() { _ = monitor.Close() }()
	monitor.OnError = func(err error) {
		log.Printf("[monitor] %v", err)
	}

	scanner, err := polling.NewScanner(monitor)
	if err != nil {
		return err
	}

	hub := server.NewHub()
	scanner.OnTagDetected = func(ctx context.Context, tag *sl030.Tag) error {
		log.Printf("[monitor] tag detected: %s", tag)
		hub.Broadcast(tagEvent(ctx, monitor.Reader(), tag))
		return nil
	}
	scanner.OnTagChanged = scanner.OnTagDetected
	scanner.OnTagRemoved = func() {
		log.Printf("[monitor] tag removed")
		hub.Broadcast(server.NewRemovedEvent())
	}

	srvConfig := server.Config{
		Listen:   cfg.Server.Listen,
		Instance: cfg.Server.Instance,
		MDNS:     cfg.Server.MDNS,
	}
	if reader.Model() == sl030.ModelSL030 {
		srvConfig.WriteText = writeText(scanner)
	}
	srv := server.New(srvConfig, hub)

	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer scanner.Stop()

	log.Printf("[rfidd] %s reader ready", reader.Model())
	return srv.Start(ctx)
}

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	debug := flag.Bool("debug", false, "Enable protocol debug output")
	listen := flag.String("listen", "", "Override server.listen")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("[rfidd] %v", err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *debug || cfg.Debug {
		sl030.SetDebugEnabled(true)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Printf("[rfidd] %v", err)
		cancel()
		os.Exit(1)
	}
}
