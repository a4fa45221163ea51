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

// MTD device type codes, matching <mtd/mtd-abi.h>'s mtd_info.type.
const (
	mtdTypeAbsent = 0
	mtdTypeNOR    = 3
	mtdTypeNAND   = 4
)

// flagOffset is the byte offset of the redundant generation marker
// within a block, after the 4-byte CRC.
const flagOffset = crcSize
