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

import "testing"

func TestStoreSetKeepsLexicographicOrder(t *testing.T) {
	var s Store
	s.setRaw("foo", "1")
	s.setRaw("bar", "2")
	s.setRaw("baz", "3")

	entries := s.Iterate()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	want := []string{"bar", "baz", "foo"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestStoreSetEmptyValueRemoves(t *testing.T) {
	var s Store
	if err := s.Set("foo", "bar", nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("foo", "", nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Get("foo") != nil {
		t.Fatal("expected foo to be removed")
	}
}

func TestStoreSetRejectsReadOnly(t *testing.T) {
	var s Store
	validator := &VarEntry{Access: AccessReadOnly}
	if err := s.Set("foo", "bar", validator); err == nil {
		t.Fatal("expected an error writing a read-only variable")
	}
	if KindOf(s.Set("foo", "bar", validator)) != KindPermissionDenied {
		t.Fatal("expected KindPermissionDenied")
	}
}

func TestStoreSetRejectsWriteOnceLikeReadOnly(t *testing.T) {
	var s Store
	validator := &VarEntry{Access: AccessWriteOnce}
	if err := s.Set("foo", "bar", validator); err == nil {
		t.Fatal("expected write-once variables to reject every write, including the first")
	}
}

func TestStoreSetValidatesDecimalType(t *testing.T) {
	var s Store
	validator := &VarEntry{Type: TypeDecimal}
	if err := s.Set("foo", "abc", validator); err == nil {
		t.Fatal("expected an error for a non-decimal value")
	}
	if err := s.Set("foo", "123", validator); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestStoreSetValidatesHexRangeAsBitmask(t *testing.T) {
	// The hex-mask range means "at least one selected bit set", not a
	// subset check: 0x02 has bit 1 set, which overlaps mask 0x0F.
	var s Store
	validator := &VarEntry{Range: Range{Kind: RangeHexMask, Mask: 0x0F}}
	if err := s.Set("foo", "0x02", validator); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("foo", "0x10", validator); err == nil {
		t.Fatal("expected 0x10 to fail the 0x0F bitmask range (no overlapping bits)")
	}
}

func TestStoreSetValidatesIntegerRange(t *testing.T) {
	var s Store
	validator := &VarEntry{Range: Range{Kind: RangeInteger, Min: 1, Max: 10}}
	if err := s.Set("foo", "11", validator); err == nil {
		t.Fatal("expected 11 to be out of range")
	}
	if err := s.Set("foo", "5", validator); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestStoreSetRejectsNameWithEquals(t *testing.T) {
	var s Store
	if err := s.Set("a=b", "x", nil); err == nil {
		t.Fatal("expected an error for a name containing '='")
	}
}
