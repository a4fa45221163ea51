// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2016-2017 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package ubootenv

import (
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := []*VarEntry{
		{Name: "bar", Value: "2"},
		{Name: "foo", Value: "1"},
	}

	buf, err := encodeBlock(entries, 64, nil)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}

	records, _, crcOK, err := decodeBlock(buf, false)
	if err != nil {
		t.Fatalf("decodeBlock: %v", err)
	}
	if !crcOK {
		t.Fatal("expected crcOK")
	}
	want := []string{"bar=2", "foo=1"}
	if len(records) != len(want) {
		t.Fatalf("records = %v, want %v", records, want)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("records[%d] = %q, want %q", i, records[i], want[i])
		}
	}
}

func TestEncodeBlockPadsWithFF(t *testing.T) {
	buf, err := encodeBlock(nil, 12, nil)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	// header(4) + eof(2) = 6 bytes consumed, 6 bytes of 0xff padding
	for i := 6; i < 12; i++ {
		if buf[i] != 0xff {
			t.Fatalf("buf[%d] = %#x, want 0xff", i, buf[i])
		}
	}
}

func TestDecodeBlockDetectsBadCRC(t *testing.T) {
	buf := make([]byte, 32)
	_, _, crcOK, err := decodeBlock(buf, false)
	if crcOK {
		t.Fatal("expected crcOK == false for all-zero buffer with zero CRC mismatch")
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestDecodeBlockRejectsUndersizedBuffer(t *testing.T) {
	_, _, _, err := decodeBlock(make([]byte, 2), false)
	if err == nil {
		t.Fatal("expected an error for a buffer smaller than the header")
	}
}

func TestEncodeBlockFlagByte(t *testing.T) {
	flag := byte(7)
	buf, err := encodeBlock(nil, 16, &flag)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	if buf[4] != 7 {
		t.Fatalf("buf[4] = %d, want 7", buf[4])
	}

	_, gotFlag, crcOK, err := decodeBlock(buf, true)
	if err != nil {
		t.Fatalf("decodeBlock: %v", err)
	}
	if !crcOK {
		t.Fatal("expected crcOK")
	}
	if gotFlag != 7 {
		t.Fatalf("gotFlag = %d, want 7", gotFlag)
	}
}

func TestSplitRecordsToleratesMissingTerminator(t *testing.T) {
	data := []byte("key1=value1\x00key2=value2\x00")
	records, err := splitRecords(data)
	if err != nil {
		t.Fatalf("splitRecords: %v", err)
	}
	if len(records) != 2 || records[0] != "key1=value1" || records[1] != "key2=value2" {
		t.Fatalf("records = %v", records)
	}
}
