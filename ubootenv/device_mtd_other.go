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

//go:build !linux

package ubootenv

// Non-Linux platforms have no MTD character devices; the higher
// layers (codec, store, selector, config parsing) stay portable and
// unit-testable, but a real NOR/NAND Device.Check fails cleanly here
// rather than silently misbehaving.

func mtdGetInfo(path string) (mtdType int, eraseSize int, err error) {
	return 0, 0, wrapErr(ErrBadDevice, "MTD devices are not supported on this platform")
}

func blockDeviceSize(path string) (int64, error) {
	return 0, wrapErr(ErrBadDevice, "block device size queries are not supported on this platform")
}

func mtdReadNAND(d *Device, buf []byte) error {
	return wrapErr(ErrBadDevice, "MTD devices are not supported on this platform")
}

func mtdWrite(d *Device, buf []byte) error {
	return wrapErr(ErrBadDevice, "MTD devices are not supported on this platform")
}

func mtdWriteObsoleteFlag(d *Device) error {
	return wrapErr(ErrBadDevice, "MTD devices are not supported on this platform")
}
