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

package sl030

import (
	"errors"
	"fmt"
)

// Transport errors
var (
	ErrTransportWrite  = errors.New("transport write failed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportClosed = errors.New("transport closed")
)

// Protocol errors
var (
	ErrProtocolMismatch = errors.New("unexpected response from reader")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnsupportedModel = errors.New("unsupported reader model")
)

// Chip status errors. A StatusError unwraps to one of these.
var (
	ErrNoTag            = errors.New("no tag present")
	ErrLoginFailed      = errors.New("login failed")
	ErrAddressOverflow  = errors.New("address overflow")
	ErrReadFailed       = errors.New("read failed")
	ErrWriteFailed      = errors.New("write failed")
	ErrVerifyFailed     = errors.New("unable to read after write")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEndOfData        = errors.New("end of data")
	ErrUnknownStatus    = errors.New("unknown status")
)

// ErrorType classifies errors for callers that decide whether to retry
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by repeating the operation
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on a later attempt
	ErrorTypeTransient
)

// String returns the error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// TransportError reports a failure of the underlying bus
type TransportError struct {
	Err  error
	Op   string
	Port string
	Type ErrorType
}

// Error implements error
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:   op,
		Port: port,
		Err:  err,
		Type: errType,
	}
}

// ProtocolError reports a response that does not belong to the command sent
type ProtocolError struct {
	Err      error
	Command  Command
	Got      byte
	Length   byte
	Expected int
}

// Error implements error
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v (echoed command 0x%02X, declared length %d, expected at least %d)",
		e.Command, e.Err, e.Got, e.Length, e.Expected)
}

// Unwrap returns the wrapped error
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// StatusError is a well-formed response carrying a non-success status byte
type StatusError struct {
	Command Command
	Status  byte
}

// Error implements error
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v (status 0x%02X)", e.Command, e.Unwrap(), e.Status)
}

// Unwrap returns the sentinel error for the status code
func (e *StatusError) Unwrap() error {
	if err, ok := statusErrors[e.Command][e.Status]; ok {
		return err
	}
	if e.Command == CmdRead4 {
		return ErrEndOfData
	}
	return ErrUnknownStatus
}

// Is lets a non-zero Read4 status also match ErrEndOfData
func (e *StatusError) Is(target error) bool {
	return target == ErrEndOfData && e.Command == CmdRead4
}

// statusErrors maps the documented status codes of each command
var statusErrors = map[Command]map[byte]error{
	CmdSelect: {
		0x01: ErrNoTag,
	},
	CmdLogin: {
		0x01: ErrNoTag,
		0x03: ErrLoginFailed,
		0x08: ErrAddressOverflow,
	},
	CmdRead16: {
		0x01: ErrNoTag,
		0x04: ErrReadFailed,
		0x0D: ErrNotAuthenticated,
	},
	CmdWrite16: {
		0x01: ErrNoTag,
		0x05: ErrWriteFailed,
		0x06: ErrVerifyFailed,
		0x0D: ErrNotAuthenticated,
	},
	CmdRead4: {
		0x01: ErrNoTag,
	},
	CmdWrite4: {
		0x01: ErrNoTag,
		0x05: ErrWriteFailed,
		0x06: ErrVerifyFailed,
	},
}

// IsRetryable reports whether repeating the operation may succeed.
// The reader never retries on its own.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeTransient
	}
	return errors.Is(err, ErrNoTag)
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
