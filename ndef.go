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

	"github.com/hsanjuan/go-ndef"
)

// ErrNoNDEF is returned when tag memory holds no decodable NDEF message
var ErrNoNDEF = errors.New("no NDEF message found")

// NDEFRecordType classifies a decoded record
type NDEFRecordType string

// Record types
const (
	NDEFTypeText        NDEFRecordType = "text"
	NDEFTypeURI         NDEFRecordType = "uri"
	NDEFTypeSmartPoster NDEFRecordType = "smartposter"
	NDEFTypeOther       NDEFRecordType = "other"
)

// NDEFRecord is one decoded record
type NDEFRecord struct {
	Type    NDEFRecordType `json:"type"`
	RawType string         `json:"rawType,omitempty"`
	Text    string         `json:"text,omitempty"`
	Lang    string         `json:"lang,omitempty"`
	URI     string         `json:"uri,omitempty"`
	Payload []byte         `json:"payload,omitempty"`
	TNF     byte           `json:"tnf"`
}

// NDEFMessage is a decoded NDEF message
type NDEFMessage struct {
	Records []NDEFRecord `json:"records"`
}

// DecodeNDEF decodes the value of an NDEF message TLV
func DecodeNDEF(data []byte) (*NDEFMessage, error) {
	if len(data) == 0 {
		return nil, ErrNoNDEF
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to parse NDEF message: %w", err)
	}

	result := &NDEFMessage{Records: make([]NDEFRecord, 0, len(msg.Records))}
	for _, rec := range msg.Records {
		r, err := convertRecord(rec)
		if err != nil {
			debugf("skipping NDEF record: %v", err)
			continue
		}
		result.Records = append(result.Records, r)
	}
	if len(result.Records) == 0 {
		return nil, ErrNoNDEF
	}
	return result, nil
}

func convertRecord(rec *ndef.Record) (NDEFRecord, error) {
	payload, err := rec.Payload()
	if err != nil {
		return NDEFRecord{}, fmt.Errorf("failed to get NDEF record payload: %w", err)
	}
	raw := payload.Marshal()

	out := NDEFRecord{
		Type:    NDEFTypeOther,
		RawType: rec.Type(),
		TNF:     rec.TNF(),
		Payload: raw,
	}
	if rec.TNF() != ndef.NFCForumWellKnownType {
		return out, nil
	}

	switch rec.Type() {
	case "T":
		out.Type = NDEFTypeText
		out.Lang, out.Text, err = parseTextPayload(raw)
	case "U":
		out.Type = NDEFTypeURI
		out.URI, err = parseURIPayload(raw)
	case "Sp":
		out.Type = NDEFTypeSmartPoster
	}
	if err != nil {
		return NDEFRecord{}, err
	}
	return out, nil
}

// parseTextPayload splits a text record into language and UTF-8 text
func parseTextPayload(payload []byte) (lang, text string, err error) {
	if len(payload) < 1 {
		return "", "", errors.New("text payload too short")
	}
	langLen := int(payload[0] & 0x3F)
	if len(payload) < 1+langLen {
		return "", "", errors.New("invalid text payload length")
	}
	return string(payload[1 : 1+langLen]), string(payload[1+langLen:]), nil
}

var uriPrefixes = []string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
	"ftp://anonymous:anonymous@",
	"ftp://ftp.",
	"ftps://",
	"sftp://",
	"smb://",
	"nfs://",
	"ftp://",
	"dav://",
	"news:",
	"telnet://",
	"imap:",
	"rtsp://",
	"urn:",
	"pop:",
	"sip:",
	"sips:",
	"tftp:",
	"btspp://",
	"btl2cap://",
	"btgoep://",
	"tcpobex://",
	"irdaobex://",
	"file://",
	"urn:epc:id:",
	"urn:epc:tag:",
	"urn:epc:pat:",
	"urn:epc:raw:",
	"urn:epc:",
	"urn:nfc:",
}

func parseURIPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", errors.New("URI payload too short")
	}
	prefix := ""
	if int(payload[0]) < len(uriPrefixes) {
		prefix = uriPrefixes[payload[0]]
	}
	return prefix + string(payload[1:]), nil
}

// BuildTextMessage encodes text as a single record NDEF message
func BuildTextMessage(text, lang string) ([]byte, error) {
	if lang == "" {
		lang = "en"
	}
	data, err := ndef.NewTextMessage(text, lang).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode NDEF text message: %w", err)
	}
	return data, nil
}

// FirstText returns the first text record of the message
func (m *NDEFMessage) FirstText() (string, bool) {
	for _, r := range m.Records {
		if r.Type == NDEFTypeText {
			return r.Text, true
		}
	}
	return "", false
}
