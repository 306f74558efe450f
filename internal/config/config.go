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

// Package config loads the rfidd daemon configuration
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sl030 "github.com/ZaparooProject/go-sl030"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration
type Config struct {
	Reader ReaderConfig `yaml:"reader"`
	Poll   PollConfig   `yaml:"poll"`
	Server ServerConfig `yaml:"server"`
	Debug  bool         `yaml:"debug"`
}

// ReaderConfig selects the module and its bus
type ReaderConfig struct {
	// Bus is the I2C bus, e.g. /dev/i2c-1. Empty means auto-detect.
	Bus     string `yaml:"bus"`
	Model   string `yaml:"model"`
	Address uint16 `yaml:"address"`
}

// PollConfig controls card polling
type PollConfig struct {
	Interval      time.Duration `yaml:"interval"`
	RemovalMisses int           `yaml:"removal_misses"`
}

// ServerConfig controls the websocket server
type ServerConfig struct {
	Listen   string `yaml:"listen"`
	Instance string `yaml:"instance"`
	MDNS     bool   `yaml:"mdns"`
}

// Default returns the configuration used for missing fields
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			Model:   string(sl030.ModelSL030),
			Address: 0x50,
		},
		Poll: PollConfig{
			Interval:      250 * time.Millisecond,
			RemovalMisses: 3,
		},
		Server: ServerConfig{
			Listen:   ":8080",
			Instance: "sl030",
			MDNS:     true,
		},
	}
}

// Load reads and validates the YAML file at path
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(content []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values
func (c *Config) Validate() error {
	if _, err := sl030.ParseModel(c.Reader.Model); err != nil {
		return fmt.Errorf("config.reader.model: %w", err)
	}
	if c.Reader.Address == 0 || c.Reader.Address > 0x7F {
		return fmt.Errorf("config.reader.address must be a 7 bit address, got 0x%X", c.Reader.Address)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config.poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.RemovalMisses < 1 {
		return fmt.Errorf("config.poll.removal_misses must be at least 1, got %d", c.Poll.RemovalMisses)
	}
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("config.server.listen is required")
	}
	if c.Server.MDNS && strings.TrimSpace(c.Server.Instance) == "" {
		return errors.New("config.server.instance is required when mdns is enabled")
	}
	return nil
}

// Model returns the parsed reader model
func (c *Config) Model() sl030.Model {
	m, _ := sl030.ParseModel(c.Reader.Model)
	return m
}
