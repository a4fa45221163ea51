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

func ubiResolveVolume(path string) (string, error) {
	return "", wrapErr(ErrBadDevice, "UBI volumes are not supported on this platform")
}

func ubiRead(d *Device, buf []byte) error {
	return wrapErr(ErrBadDevice, "UBI volumes are not supported on this platform")
}

func ubiWrite(d *Device, buf []byte) error {
	return wrapErr(ErrBadDevice, "UBI volumes are not supported on this platform")
}
