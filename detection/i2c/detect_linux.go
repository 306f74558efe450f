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

//go:build linux

package i2c

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	"github.com/ZaparooProject/go-sl030/detection"
	"golang.org/x/sys/unix"
)

const (
	// I2CSlave is the ioctl command to set slave address
	I2CSlave = 0x0703

	// I2CFuncs is the ioctl command to get adapter functionality
	I2CFuncs = 0x0705

	// I2CFuncI2C indicates plain I2C support
	I2CFuncI2C = 0x00000001

	firstScanAddress = 0x08
	lastScanAddress  = 0x77
)

// detectLinux searches for reader modules on all /dev/i2c-* buses
func detectLinux(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findI2CBuses(opts.Mode)
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		devices = append(devices, detectBusDevices(ctx, bus, opts)...)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// detectBusDevices probes the addresses of one bus allowed by the mode
func detectBusDevices(ctx context.Context, busPath string, opts *detection.Options) []detection.DeviceInfo {
	addresses := []uint16{DefaultAddress}
	if opts.Mode == detection.Full {
		addresses = scanI2CBus(busPath)
	}

	devices := make([]detection.DeviceInfo, 0, len(addresses))
	for _, addr := range addresses {
		if detection.IsPathIgnored(devicePath(busPath, addr), opts.IgnorePaths) {
			continue
		}

		if opts.Mode == detection.Passive {
			devices = append(devices, newDeviceInfo(busPath, addr, detection.Low))
			continue
		}

		if ctx.Err() != nil {
			break
		}
		if probeI2CDevice(busPath, addr) {
			devices = append(devices, newDeviceInfo(busPath, addr, detection.High))
		}
	}
	return devices
}

// probeI2CDevice sends a Select frame to addr and checks the answer
func probeI2CDevice(busPath string, addr uint16) bool {
	fd, err := unix.Open(busPath, unix.O_RDWR, 0)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.IoctlSetInt(fd, I2CSlave, int(addr)); err != nil {
		return false
	}

	frame := sl030.BuildCommandFrame(sl030.CmdSelect, nil)
	if n, err := unix.Write(fd, frame); err != nil || n != len(frame) {
		return false
	}

	time.Sleep(sl030.SettleDelay)

	resp := make([]byte, probeResponseLen)
	if n, err := unix.Read(fd, resp); err != nil || n != len(resp) {
		return false
	}
	return isSelectResponse(resp)
}

// findI2CBuses lists /dev/i2c-* adapters supporting plain I2C transfers.
// In passive mode the adapters are not opened.
func findI2CBuses(mode detection.Mode) ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}
	if mode == detection.Passive {
		return matches, nil
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		fd, err := unix.Open(path, unix.O_RDWR, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, I2CFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&I2CFuncI2C == 0 {
			continue
		}
		buses = append(buses, path)
	}
	return buses, nil
}

// scanI2CBus returns every address that acknowledges a one byte read
func scanI2CBus(busPath string) []uint16 {
	fd, err := unix.Open(busPath, unix.O_RDWR, 0)
	if err != nil {
		return nil
	}
	defer func() { _ = unix.Close(fd) }()

	var found []uint16
	buf := make([]byte, 1)
	for addr := uint16(firstScanAddress); addr <= lastScanAddress; addr++ {
		if err := unix.IoctlSetInt(fd, I2CSlave, int(addr)); err != nil {
			continue
		}
		if _, err := unix.Read(fd, buf); err == nil {
			found = append(found, addr)
		}
	}
	return found
}
