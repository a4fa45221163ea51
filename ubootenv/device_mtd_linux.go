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

//go:build linux

package ubootenv

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux <mtd/mtd-abi.h> type codes and ioctl numbers. Not exposed by
// golang.org/x/sys/unix, so reproduced here the way other kernel-UAPI
// Go bindings in this codebase do (plain untyped constants, raw
// structs matching the kernel layout).
const (
	linuxMtdAbsent = 0
	linuxMtdNOR    = 3
	linuxMtdNAND   = 4

	memGetInfo     = 0x80204d01 // _IOR('M', 1, struct mtd_info_user)
	memErase       = 0x40084d02 // _IOW('M', 2, struct erase_info_user)
	memUnlock      = 0x40084d06 // _IOW('M', 6, struct erase_info_user)
	memLock        = 0x40084d05 // _IOW('M', 5, struct erase_info_user)
	memGetBadBlock = 0x40084d0b // _IOW('M', 11, __kernel_loff_t)

	blkGetSize64 = 0x80081272 // _IOR(0x12, 114, size_t)
)

type mtdInfoUser struct {
	Type      uint8
	Flags     uint32
	Size      uint32
	Erasesize uint32
	Writesize uint32
	Oobsize   uint32
	_         uint64 // padding/reserved in kernel struct
}

type eraseInfoUser struct {
	Start  uint32
	Length uint32
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// mtdGetInfo issues MEMGETINFO and maps the kernel's flash type code
// onto the small set this package distinguishes.
func mtdGetInfo(path string) (mtdType int, eraseSize int, err error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var info mtdInfoUser
	if err := ioctl(f.Fd(), memGetInfo, unsafe.Pointer(&info)); err != nil {
		return 0, 0, err
	}

	switch info.Type {
	case linuxMtdNAND:
		return mtdTypeNAND, int(info.Erasesize), nil
	case linuxMtdNOR:
		return mtdTypeNOR, int(info.Erasesize), nil
	default:
		return mtdTypeAbsent, int(info.Erasesize), nil
	}
}

func blockDeviceSize(path string) (int64, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var size uint64
	if err := ioctl(f.Fd(), blkGetSize64, unsafe.Pointer(&size)); err != nil {
		return 0, err
	}
	return int64(size), nil
}

func isNANDBadBlock(f *os.File, offset int64) (bool, error) {
	off := offset
	if err := ioctl(f.Fd(), memGetBadBlock, unsafe.Pointer(&off)); err != nil {
		return false, err
	}
	return off != 0, nil
}

// mtdForEachSector walks the erase blocks backing an environment
// copy, skipping NAND bad blocks, and calls fn with the file
// positioned (via lseek inside fn if needed) at each block's start
// offset and the slice of buf it is responsible for.
func mtdForEachSector(d *Device, f *os.File, buf []byte, fn func(start int64, chunk []byte) error) error {
	sectorSize := d.SectorSize
	if sectorSize == 0 {
		sectorSize = d.EnvSize
	}
	sectorsBudget := d.EnvSectors
	if sectorsBudget == 0 {
		sectorsBudget = 1
	}

	start := d.Offset
	remaining := buf

	for len(remaining) > 0 {
		if d.Backend == BackendMTDNand {
			bad, err := isNANDBadBlock(f, start)
			if err != nil {
				return wrapErr(ErrIO, "bad block check failed: %s", err)
			}
			if bad {
				start += int64(sectorSize)
				sectorsBudget--
				if sectorsBudget > 0 {
					continue
				}
				return wrapErr(ErrIO, "no more good blocks available for environment")
			}
		}

		chunkSize := sectorSize
		if chunkSize > len(remaining) {
			chunkSize = len(remaining)
		}

		if err := fn(start, remaining[:chunkSize]); err != nil {
			return err
		}

		start += int64(sectorSize)
		remaining = remaining[chunkSize:]
	}

	return nil
}

func mtdReadNAND(d *Device, buf []byte) error {
	f, err := os.OpenFile(d.Path, os.O_RDONLY, 0)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", d.Path, err)
	}
	defer f.Close()

	return mtdForEachSector(d, f, buf, func(start int64, chunk []byte) error {
		if _, err := f.Seek(start, 0); err != nil {
			return wrapErr(ErrIO, "cannot seek %q: %s", d.Path, err)
		}
		if _, err := f.Read(chunk); err != nil {
			return wrapErr(ErrIO, "cannot read %q: %s", d.Path, err)
		}
		return nil
	})
}

func mtdWrite(d *Device, buf []byte) error {
	f, err := os.OpenFile(d.Path, os.O_RDWR, 0)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", d.Path, err)
	}
	defer f.Close()

	sectorSize := d.SectorSize
	if sectorSize == 0 {
		sectorSize = d.EnvSize
	}

	return mtdForEachSector(d, f, buf, func(start int64, chunk []byte) error {
		erase := eraseInfoUser{Start: uint32(start), Length: uint32(sectorSize)}
		if !d.DisableMTDLock {
			_ = ioctl(f.Fd(), memUnlock, unsafe.Pointer(&erase))
		}
		if err := ioctl(f.Fd(), memErase, unsafe.Pointer(&erase)); err != nil {
			return wrapErr(ErrIO, "erase failed on %q: %s", d.Path, err)
		}
		if _, err := f.Seek(start, 0); err != nil {
			return wrapErr(ErrIO, "cannot seek %q: %s", d.Path, err)
		}
		if _, err := f.Write(chunk); err != nil {
			return wrapErr(ErrIO, "cannot write %q: %s", d.Path, err)
		}
		if !d.DisableMTDLock {
			_ = ioctl(f.Fd(), memLock, unsafe.Pointer(&erase))
		}
		return nil
	})
}

// mtdWriteObsoleteFlag implements spec.md §4.2's NOR-only
// obsolete-flag write: unlock, write a single 0x00 byte at the flag
// offset, re-lock. No erase: NOR allows 1->0 rewrites in place.
func mtdWriteObsoleteFlag(d *Device) error {
	f, err := os.OpenFile(d.Path, os.O_RDWR, 0)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", d.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(d.Offset+flagOffset, 0); err != nil {
		return wrapErr(ErrBadDevice, "cannot seek %q: %s", d.Path, err)
	}

	erase := eraseInfoUser{Start: uint32(d.Offset), Length: uint32(d.SectorSize)}
	if !d.DisableMTDLock {
		_ = ioctl(f.Fd(), memUnlock, unsafe.Pointer(&erase))
	}
	_, err = f.Write([]byte{0})
	if !d.DisableMTDLock {
		_ = ioctl(f.Fd(), memLock, unsafe.Pointer(&erase))
	}
	if err != nil {
		return wrapErr(ErrIO, "cannot write obsolete flag on %q: %s", d.Path, err)
	}
	return nil
}
