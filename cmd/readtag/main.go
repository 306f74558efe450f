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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	"github.com/ZaparooProject/go-sl030/detection"
	i2cdetect "github.com/ZaparooProject/go-sl030/detection/i2c"
	"github.com/ZaparooProject/go-sl030/transport/i2c"
)

const classicBlocks = 64

type config struct {
	busPath    *string
	model      *string
	address    *uint
	timeout    *time.Duration
	writeData  *string
	writeText  *string
	writeBlock *int
	dump       *bool
	readNDEF   *bool
	debug      *bool
}

func parseFlags() *config {
	cfg := &config{
		busPath: flag.String("bus", "",
			"I2C bus (e.g., /dev/i2c-1). Leave empty for auto-detection."),
		model:      flag.String("model", "sl030", "Reader model: sl030 or sl018"),
		address:    flag.Uint("address", uint(i2c.DefaultAddress), "I2C device address"),
		timeout:    flag.Duration("timeout", 10*time.Second, "How long to wait for a tag"),
		dump:       flag.Bool("dump", false, "Dump all blocks of a Mifare Classic 1K tag"),
		readNDEF:   flag.Bool("ndef", false, "Read the NDEF message of an Ultralight/NTAG tag"),
		writeBlock: flag.Int("write-block", -1, "Block to write the -data text to"),
		writeData:  flag.String("data", "Hello world!", "Text written by -write-block, zero padded to 16 bytes"),
		writeText:  flag.String("write-text", "", "Write an NDEF text record to an Ultralight/NTAG tag"),
		debug:      flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		sl030.SetDebugEnabled(true)
	}
	return cfg
}

// findDevice returns the configured bus and address or those of the first
// detected reader
func findDevice(ctx context.Context, cfg *config) (string, uint16, error) {
	if *cfg.busPath != "" {
		return *cfg.busPath, uint16(*cfg.address), nil //nolint:gosec // checked in openReader
	}

	_, _ = fmt.Println("Auto-detecting SL030 devices...")
	device, err := detection.DetectFirst(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("auto-detection failed: %w", err)
	}
	bus, addr, err := i2cdetect.ParseDevice(device)
	if err != nil {
		return "", 0, err
	}
	_, _ = fmt.Printf("Found %s\n", device.Name)
	return bus, addr, nil
}

func openReader(ctx context.Context, cfg *config) (sl030.RFIDReader, error) {
	model, err := sl030.ParseModel(*cfg.model)
	if err != nil {
		return nil, err
	}
	if *cfg.address > 0x7F {
		return nil, fmt.Errorf("invalid I2C address 0x%X", *cfg.address)
	}

	bus, addr, err := findDevice(ctx, cfg)
	if err != nil {
		return nil, err
	}

	transport, err := i2c.New(bus, i2c.WithAddress(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to create I2C transport: %w", err)
	}

	reader, err := sl030.New(model, transport)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return reader, nil
}

// waitForTag polls until a tag answers or ctx expires
func waitForTag(ctx context.Context, reader sl030.RFIDReader) (*sl030.Tag, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		tag, err := reader.SelectTagContext(ctx)
		if err == nil {
			return tag, nil
		}
		if !errors.Is(err, sl030.ErrNoTag) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printTag(tag *sl030.Tag) {
	_, _ = fmt.Println("Got tag:")
	_, _ = fmt.Printf("- UID: % X\n", tag.UID)
	_, _ = fmt.Printf("- UID string: %s\n", tag.UIDString())
	_, _ = fmt.Printf("- Type: %s\n", tag.Type)
}

func dumpBlocks(ctx context.Context, reader sl030.ClassicReader) error {
	results, err := sl030.DumpBlocks(ctx, reader, 0, classicBlocks)
	for _, r := range results {
		sector := sl030.SectorForBlock(r.Block)
		if r.Err != nil {
			_, _ = fmt.Printf("Sector %d Block %d: %v\n", sector, r.Block, r.Err)
			continue
		}
		_, _ = fmt.Printf("Sector %d Block %d: % X\n", sector, r.Block, r.Data)
	}
	return err
}

func writeBlock(ctx context.Context, reader sl030.ClassicReader, block int, text string) error {
	if block < 0 || block >= classicBlocks {
		return fmt.Errorf("block %d out of range", block)
	}
	if len(text) > sl030.BlockSize {
		return fmt.Errorf("data longer than %d bytes", sl030.BlockSize)
	}
	b := uint8(block)

	if err := reader.AuthenticateContext(ctx, sl030.SectorForBlock(b)); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	before, err := reader.ReadBlockContext(ctx, b)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("Block contents beforehand: % X\n", before)

	data := make([]byte, sl030.BlockSize)
	copy(data, text)
	if err := reader.WriteBlockContext(ctx, b, data); err != nil {
		return err
	}

	after, err := reader.ReadBlockContext(ctx, b)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("Block contents afterwards: % X\n", after)
	return nil
}

func readNDEF(ctx context.Context, reader sl030.ClassicReader) error {
	msg, err := sl030.ReadNDEF(ctx, reader)
	if err != nil {
		return fmt.Errorf("failed to read NDEF: %w", err)
	}

	_, _ = fmt.Printf("Found %d record(s)\n", len(msg.Records))
	for i, rec := range msg.Records {
		switch rec.Type {
		case sl030.NDEFTypeText:
			_, _ = fmt.Printf("  [%d] text (%s): %s\n", i, rec.Lang, rec.Text)
		case sl030.NDEFTypeURI:
			_, _ = fmt.Printf("  [%d] uri: %s\n", i, rec.URI)
		default:
			_, _ = fmt.Printf("  [%d] %s %q: % X\n", i, rec.Type, rec.RawType, rec.Payload)
		}
	}
	return nil
}

func run(ctx context.Context, cfg *config) error {
	reader, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	_, _ = fmt.Printf("Waiting for tag (timeout: %s)...\n", *cfg.timeout)
	waitCtx, cancel := context.WithTimeout(ctx, *cfg.timeout)
	tag, err := waitForTag(waitCtx, reader)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("couldn't read tag")
		}
		return err
	}
	printTag(tag)

	wantsMemory := *cfg.dump || *cfg.readNDEF || *cfg.writeBlock >= 0 || *cfg.writeText != ""
	if !wantsMemory {
		return nil
	}
	classic, ok := sl030.AsClassic(reader)
	if !ok {
		return fmt.Errorf("%s cannot access tag memory", reader.Model())
	}

	if *cfg.writeBlock >= 0 {
		if err := writeBlock(ctx, classic, *cfg.writeBlock, *cfg.writeData); err != nil {
			return err
		}
	}
	if *cfg.writeText != "" {
		if err := sl030.WriteNDEFText(ctx, classic, *cfg.writeText); err != nil {
			return fmt.Errorf("failed to write text: %w", err)
		}
		_, _ = fmt.Println("Write successful!")
	}
	if *cfg.dump {
		if err := dumpBlocks(ctx, classic); err != nil {
			return err
		}
	}
	if *cfg.readNDEF {
		return readNDEF(ctx, classic)
	}
	return nil
}

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		cancel()
		os.Exit(1)
	}
}
