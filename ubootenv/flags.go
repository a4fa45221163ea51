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
	"strconv"
	"strings"
)

// DataType is the declared type of a variable's value, used to
// validate new values on Set.
type DataType int

const (
	TypeString DataType = iota
	TypeDecimal
	TypeHex
	TypeBool
	TypeIPv4
	TypeMAC
)

func (t DataType) rune() byte {
	switch t {
	case TypeDecimal:
		return 'd'
	case TypeHex:
		return 'x'
	case TypeBool:
		return 'b'
	case TypeIPv4:
		return 'i'
	case TypeMAC:
		return 'm'
	default:
		return 's'
	}
}

func dataTypeFromRune(r byte) (DataType, bool) {
	switch r {
	case 's':
		return TypeString, true
	case 'd':
		return TypeDecimal, true
	case 'x':
		return TypeHex, true
	case 'b':
		return TypeBool, true
	case 'i':
		return TypeIPv4, true
	case 'm':
		return TypeMAC, true
	default:
		return TypeString, false
	}
}

// AccessMode controls whether Set is allowed to change a variable.
type AccessMode int

const (
	AccessAny AccessMode = iota
	AccessReadOnly
	AccessWriteOnce
	AccessChangeDefault
)

func (a AccessMode) rune() byte {
	switch a {
	case AccessReadOnly:
		return 'r'
	case AccessWriteOnce:
		return 'o'
	case AccessChangeDefault:
		return 'c'
	default:
		return 'a'
	}
}

func accessModeFromRune(r byte) (AccessMode, bool) {
	switch r {
	case 'a':
		return AccessAny, true
	case 'r':
		return AccessReadOnly, true
	case 'o':
		return AccessWriteOnce, true
	case 'c':
		return AccessChangeDefault, true
	default:
		return AccessAny, false
	}
}

// RangeKind selects how Range constrains a value.
type RangeKind int

const (
	RangeNone RangeKind = iota
	RangeInteger
	RangeHexMask
	RangeRegex
)

// Range is an optional constraint narrowing the set of values a
// variable may take, beyond its DataType.
type Range struct {
	Kind   RangeKind
	Min    int64  // RangeInteger
	Max    int64  // RangeInteger
	Mask   uint64 // RangeHexMask
	Regexp string // RangeRegex, POSIX extended regular expression
}

func (r Range) available() bool { return r.Kind != RangeNone }

// String renders r as its range spec string, e.g. `0xff`, `0-100`,
// or `r"^[0-9.]+$"`.
func (r Range) String() string {
	switch r.Kind {
	case RangeHexMask:
		return "0x" + strconv.FormatUint(r.Mask, 16)
	case RangeInteger:
		return strconv.FormatInt(r.Min, 10) + "-" + strconv.FormatInt(r.Max, 10)
	case RangeRegex:
		return `r"` + r.Regexp + `"`
	default:
		return ""
	}
}

func parseRange(spec string) (Range, bool) {
	switch {
	case strings.HasPrefix(spec, `r"`) && strings.HasSuffix(spec, `"`) && len(spec) >= 3:
		return Range{Kind: RangeRegex, Regexp: spec[2 : len(spec)-1]}, true
	case strings.HasPrefix(spec, "0x") || strings.HasPrefix(spec, "0X"):
		mask, err := strconv.ParseUint(spec[2:], 16, 64)
		if err != nil {
			return Range{}, false
		}
		return Range{Kind: RangeHexMask, Mask: mask}, true
	default:
		dash := strings.IndexByte(spec, '-')
		if dash <= 0 {
			return Range{}, false
		}
		min, err1 := strconv.ParseInt(spec[:dash], 10, 64)
		max, err2 := strconv.ParseInt(spec[dash+1:], 10, 64)
		if err1 != nil || err2 != nil {
			return Range{}, false
		}
		return Range{Kind: RangeInteger, Min: min, Max: max}, true
	}
}

// encodeFlagsVar builds the value of the synthetic ".flags"
// pseudo-variable for every entry carrying a non-default type,
// access mode, or range. Returns "" if no entry needs it.
func encodeFlagsVar(entries []*VarEntry) string {
	var b strings.Builder
	first := true
	for _, e := range entries {
		if e.Type == TypeString && e.Access == AccessAny && !e.Range.available() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(e.Name)
		b.WriteByte(':')
		b.WriteByte(e.Type.rune())
		b.WriteByte(e.Access.rune())
		if e.Range.available() {
			b.WriteByte('@')
			b.WriteString(e.Range.String())
		}
	}
	return b.String()
}

// parseFlagsItem parses one "name:<flags>" scalar of the shape shared
// by the on-disk ".flags" pseudo-variable and the YAML writelist:
// name, a colon, one or more type/access code characters, and an
// optional "@range" suffix. It is the single parser for that wire
// format; both applyFlagsVar and the YAML config adapter call it
// rather than keeping a second, parallel vocabulary.
func parseFlagsItem(item string) (name string, t DataType, a AccessMode, r Range, ok bool) {
	colon := strings.IndexByte(item, ':')
	if colon < 0 {
		return "", 0, 0, Range{}, false
	}
	name = item[:colon]
	rest := item[colon+1:]

	codes := rest
	rangeSpec := ""
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		codes = rest[:at]
		rangeSpec = rest[at+1:]
	}

	t = TypeString
	a = AccessAny
	for i := 0; i < len(codes); i++ {
		if dt, ok := dataTypeFromRune(codes[i]); ok {
			t = dt
			continue
		}
		if am, ok := accessModeFromRune(codes[i]); ok {
			a = am
		}
	}

	if rangeSpec != "" {
		rr, ok := parseRange(rangeSpec)
		if !ok {
			return "", 0, 0, Range{}, false
		}
		r = rr
	}

	return name, t, a, r, true
}

// applyFlagsVar parses the ".flags" pseudo-variable value and
// updates the type/access/range attributes of the corresponding
// entries already present in entries. References to variables not
// present, or items that don't parse, are silently ignored, per
// spec.md §4.1.
func applyFlagsVar(entries []*VarEntry, value string) {
	byName := make(map[string]*VarEntry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	for _, item := range strings.Split(value, ",") {
		if item == "" {
			continue
		}
		name, t, a, r, ok := parseFlagsItem(item)
		if !ok {
			continue
		}
		entry, ok := byName[name]
		if !ok {
			continue
		}
		entry.Type = t
		entry.Access = a
		if r.available() {
			entry.Range = r
		}
	}
}
