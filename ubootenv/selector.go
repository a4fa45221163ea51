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

// FlagPolicy selects how the redundant generation marker byte is
// interpreted.
type FlagPolicy int

const (
	// FlagIncremental: the higher value wins, wrapping at the
	// 0xFF/0x00 boundary. Used by files, NAND, and UBI.
	FlagIncremental FlagPolicy = iota
	// FlagBoolean: 0xFF means obsolete, anything else means
	// active. Used by NOR, where 1-bit rewrites (1->0) do not
	// require an erase cycle.
	FlagBoolean
)

// selectCopy implements spec.md §4.4: given whether each copy's CRC
// checked out and (when both did) their generation flag bytes, it
// decides which copy is current. Non-redundant callers never reach
// this function; they trivially use copy 0.
func selectCopy(crcOK [2]bool, flags [2]byte, policy FlagPolicy) (valid bool, current int) {
	switch {
	case crcOK[0] && !crcOK[1]:
		return true, 0
	case !crcOK[0] && crcOK[1]:
		return true, 1
	case !crcOK[0] && !crcOK[1]:
		return false, 0
	}

	// both valid: tentative pick by higher flag value
	if flags[1] > flags[0] {
		current = 1
	} else {
		current = 0
	}

	switch policy {
	case FlagBoolean:
		if flags[0] == 0xFF {
			current = 1
		} else if flags[1] == 0xFF {
			current = 0
		}
	case FlagIncremental:
		if flags[0] == 0xFF && flags[1] == 0x00 {
			current = 1
		} else if flags[1] == 0xFF && flags[0] == 0x00 {
			current = 0
		}
	}

	return true, current
}

// nextFlag computes the generation marker to stamp on the copy being
// written next, given the currently active copy's flag byte.
func nextFlag(currentFlag byte, policy FlagPolicy) byte {
	switch policy {
	case FlagBoolean:
		return 1
	default:
		return currentFlag + 1
	}
}

// otherCopy returns the index of the copy that is not cur (0 or 1).
func otherCopy(cur int) int {
	if cur == 0 {
		return 1
	}
	return 0
}
