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
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// VarEntry is one variable in a Store: a name, a value, and the
// typed attributes used to validate future writes.
type VarEntry struct {
	Name   string
	Value  string
	Type   DataType
	Access AccessMode
	Range  Range
}

// Store is an in-memory, name-ordered collection of variables. The
// zero value is an empty, usable Store.
type Store struct {
	entries []*VarEntry
}

// find returns the index of name in s.entries, and whether it was
// found; if not found, the index is where it would be inserted to
// keep the slice sorted.
func (s *Store) find(name string) (int, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Name >= name
	})
	if i < len(s.entries) && s.entries[i].Name == name {
		return i, true
	}
	return i, false
}

// Get returns the current entry for name, or nil if absent.
func (s *Store) Get(name string) *VarEntry {
	if i, ok := s.find(name); ok {
		return s.entries[i]
	}
	return nil
}

// GetValue returns the value of name and whether it is present.
func (s *Store) GetValue(name string) (string, bool) {
	e := s.Get(name)
	if e == nil {
		return "", false
	}
	return e.Value, true
}

// Iterate returns all entries in store (lexicographic) order. The
// returned slice is a snapshot; mutating the store afterwards does
// not affect it, but mutating the *VarEntry values it points to does.
func (s *Store) Iterate() []*VarEntry {
	out := make([]*VarEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of variables currently in the store.
func (s *Store) Len() int { return len(s.entries) }

// setRaw inserts or updates name=value without any access/type/range
// validation. An empty value removes the variable. It is used for
// populating the store from a freshly decoded block, where validation
// does not apply.
func (s *Store) setRaw(name, value string) {
	if value == "" {
		s.removeRaw(name)
		return
	}
	if i, ok := s.find(name); ok {
		s.entries[i].Value = value
		return
	}
	i, _ := s.find(name)
	entry := &VarEntry{Name: name, Value: value}
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry
}

func (s *Store) removeRaw(name string) {
	if i, ok := s.find(name); ok {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
}

// Set applies the mutation policy of spec.md §4.3: name must be
// non-empty and must not contain '=', access mode must allow the
// write, and, if the entry (or validator) declares a type or range,
// the new value must satisfy it. An empty value removes the
// variable, subject to the same access check. If validator is
// non-nil, its Type/Access/Range are copied onto the entry before
// validation (used by the write-allowlist).
//
// On any validation failure the store is left unmodified and the
// returned error wraps ErrPermissionDenied or ErrInvalidArgument.
func (s *Store) Set(name, value string, validator *VarEntry) error {
	if name == "" || strings.Contains(name, "=") {
		return wrapErr(ErrInvalidArgument, "invalid variable name %q", name)
	}

	entry := s.Get(name)
	if entry == nil {
		if validator == nil && value == "" {
			return nil
		}
		entry = &VarEntry{Name: name}
		if validator != nil {
			entry.Type = validator.Type
			entry.Access = validator.Access
			entry.Range = validator.Range
		}
		if err := validateWrite(entry, value); err != nil {
			return err
		}
		if value == "" {
			return nil
		}
		entry.Value = value
		i, _ := s.find(name)
		s.entries = append(s.entries, nil)
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = entry
		return nil
	}

	candidate := *entry
	if validator != nil {
		candidate.Type = validator.Type
		candidate.Access = validator.Access
		candidate.Range = validator.Range
	}

	if err := validateWrite(&candidate, value); err != nil {
		return err
	}

	if value == "" {
		s.removeRaw(name)
		return nil
	}
	entry.Type = candidate.Type
	entry.Access = candidate.Access
	entry.Range = candidate.Range
	entry.Value = value
	return nil
}

// validateWrite checks access mode, data type, and range against a
// candidate value for entry. It does not mutate entry or the value.
func validateWrite(entry *VarEntry, value string) error {
	switch entry.Access {
	case AccessReadOnly, AccessWriteOnce:
		return wrapErr(ErrPermissionDenied, "variable %q is not writable", entry.Name)
	}

	if value == "" {
		return nil
	}

	if !validateType(entry.Type, value) {
		return wrapErr(ErrPermissionDenied, "value %q does not match type of %q", value, entry.Name)
	}

	if entry.Range.available() && !validateRange(entry.Range, value) {
		return wrapErr(ErrPermissionDenied, "value %q out of range for %q", value, entry.Name)
	}

	return nil
}

func validateType(t DataType, value string) bool {
	switch t {
	case TypeDecimal:
		if value == "" {
			return false
		}
		for i := 0; i < len(value); i++ {
			if value[i] < '0' || value[i] > '9' {
				return false
			}
		}
		return true
	case TypeHex:
		if len(value) <= 2 {
			return false
		}
		if value[0] != '0' || (value[1] != 'x' && value[1] != 'X') {
			return false
		}
		_, err := strconv.ParseUint(value[2:], 16, 64)
		return err == nil
	case TypeBool:
		if len(value) <= 1 {
			return false
		}
		switch value[0] {
		case '1', 'y', 't', 'Y', 'T', '0', 'n', 'f', 'N', 'F':
			return true
		default:
			return false
		}
	default:
		// string, ipv4, mac: content is not validated.
		return true
	}
}

// validateRange checks value against r. Per spec.md §9 Open
// Questions, the hex-mask range is "at least one selected bit set"
// (value & mask != 0), preserved from the original implementation
// even though it reads as a subset check at first glance.
func validateRange(r Range, value string) bool {
	switch r.Kind {
	case RangeRegex:
		re, err := regexp.CompilePOSIX(r.Regexp)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	case RangeHexMask:
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X"), 16, 64)
		if err != nil {
			return false
		}
		return v&r.Mask != 0
	case RangeInteger:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		return v >= r.Min && v <= r.Max
	default:
		return true
	}
}
