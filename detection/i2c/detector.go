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

// Package i2c detects SL030/SL018 modules on Linux I2C buses
package i2c

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	sl030 "github.com/ZaparooProject/go-sl030"
	"github.com/ZaparooProject/go-sl030/detection"
)

const (
	// DefaultAddress is the fixed I2C address of SL030 and SL018 modules
	DefaultAddress = 0x50

	probeResponseLen = 11
	transportName    = "i2c"
)

// detector implements the Detector interface for I2C devices
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return transportName
}

// Detect searches for reader modules on I2C buses
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	return detectLinux(ctx, opts)
}

// ParseDevice returns the bus and address of a device found by this
// detector.
func ParseDevice(d detection.DeviceInfo) (bus string, addr uint16, err error) {
	if d.Transport != transportName {
		return "", 0, fmt.Errorf("not an i2c device: %s", d)
	}

	bus = d.Metadata["bus"]
	addrText := d.Metadata["address"]
	if bus == "" || addrText == "" {
		var ok bool
		bus, addrText, ok = strings.Cut(d.Path, ":")
		if !ok {
			return "", 0, fmt.Errorf("invalid i2c device path %q", d.Path)
		}
	}

	n, err := strconv.ParseUint(addrText, 0, 7)
	if err != nil {
		return "", 0, fmt.Errorf("invalid i2c address %q: %w", addrText, err)
	}
	return bus, uint16(n), nil
}

// isSelectResponse reports whether resp looks like an answer to a Select
// frame: a sane declared length and the echoed command. Both "tag found"
// and "no tag" answers qualify.
func isSelectResponse(resp []byte) bool {
	if len(resp) < 3 {
		return false
	}
	return resp[0] >= 2 && int(resp[0]) < probeResponseLen && resp[1] == byte(sl030.CmdSelect)
}

func devicePath(busPath string, addr uint16) string {
	return fmt.Sprintf("%s:0x%02X", busPath, addr)
}

func newDeviceInfo(busPath string, addr uint16, confidence detection.Confidence) detection.DeviceInfo {
	return detection.DeviceInfo{
		Transport: transportName,
		Path:      devicePath(busPath, addr),
		Name:      fmt.Sprintf("I2C device at %s address 0x%02X", busPath, addr),
		Metadata: map[string]string{
			"bus":     busPath,
			"address": fmt.Sprintf("0x%02X", addr),
		},
		Confidence: confidence,
	}
}
