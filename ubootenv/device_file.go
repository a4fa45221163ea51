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
	"io"
	"os"
	"regexp"
	"strconv"
)

var mmcBootPartRe = regexp.MustCompile(`^/dev/(block/)?mmcblk(\d+)boot(\d+)$`)

// fileRead implements the plain-file backend's read side: open
// read-only, seek to offset, and read exactly len(buf) bytes.
func fileRead(d *Device, buf []byte) error {
	f, err := os.Open(d.Path)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", d.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(d.Offset, io.SeekStart); err != nil {
		return wrapErr(ErrIO, "cannot seek %q: %s", d.Path, err)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return wrapErr(ErrIO, "cannot read %q: %s", d.Path, err)
	}
	return nil
}

// fileWrite implements the plain-file backend's write side. For the
// mmcblkNbootM boot partitions, it toggles the sysfs force_ro
// attribute off before writing and back on afterwards, since those
// partitions are read-only by default.
func fileWrite(d *Device, buf []byte) error {
	forceRO := mmcForceROPath(d.Path)
	if forceRO != "" {
		if err := os.WriteFile(forceRO, []byte("0"), 0644); err != nil {
			return wrapErr(ErrIO, "cannot clear force_ro for %q: %s", d.Path, err)
		}
	}

	err := writeAt(d.Path, d.Offset, buf)

	if forceRO != "" {
		_ = os.WriteFile(forceRO, []byte("1"), 0644)
	}

	return err
}

func writeAt(path string, offset int64, buf []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return wrapErr(ErrIO, "cannot seek %q: %s", path, err)
	}
	if _, err := f.Write(buf); err != nil {
		return wrapErr(ErrIO, "cannot write %q: %s", path, err)
	}
	return f.Sync()
}

// fileWriteObsoleteFlag stamps a single obsolete-marker byte at the
// device's flag offset. Only meaningful for the boolean flag policy,
// but harmless to call on a plain file in incremental mode too.
func fileWriteObsoleteFlag(d *Device) error {
	return writeAt(d.Path, d.Offset+flagOffset, []byte{0})
}

// mmcForceROPath returns the sysfs force_ro attribute path for an
// mmcblkNbootM boot partition device, or "" if path does not match.
func mmcForceROPath(path string) string {
	m := mmcBootPartRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}
	part, err := strconv.Atoi(m[3])
	if err != nil {
		return ""
	}
	return "/sys/block/mmcblk" + strconv.Itoa(n) + "boot" + strconv.Itoa(part) + "/force_ro"
}
