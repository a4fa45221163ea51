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
	"io"
	"os"
	"strconv"
	"strings"
	"unsafe"
)

// <mtd/ubi-user.h> constants not exposed by golang.org/x/sys/unix.
const (
	ubiDevNumAuto = -1
	ubiIOCAtt     = 0x40186f40 // _IOW(UBI_CTRL_IOC_MAGIC 'o', 64, struct ubi_attach_req)
	ubiIOCVolUp   = 0x40084f00 // _IOW(UBI_VOL_IOC_MAGIC 'O', 0, int64_t)

	ubiCtrlDevice  = "/dev/ubi_ctrl"
	sysClassUBI    = "/sys/class/ubi"
	ubiMaxVolumes  = 128
)

type ubiAttachReq struct {
	UBINum        int32
	MTDNum        int32
	VIDHdrOffset  int32
	MaxBeaconSize int32
	Padding       [12]byte
}

// ubiResolveVolume implements spec.md §4.2's UBI volume-name
// resolution: it turns a "/dev/mtdN:volname" or
// "/dev/ubiN:volname" path into the concrete "/dev/ubiD_V" device
// node, auto-attaching the MTD device to UBI if necessary.
func ubiResolveVolume(path string) (string, error) {
	devPart, volName, hasVolume := strings.Cut(path, string(devnameSeparator))
	if !hasVolume {
		// already in "/dev/ubiD_V" numeric form
		return path, nil
	}

	var ubiNum int
	if strings.HasPrefix(devPart, "/dev/mtd") {
		mtdNum, err := trailingInt(devPart)
		if err != nil {
			return "", wrapErr(ErrBadDevice, "cannot parse MTD index from %q", devPart)
		}

		if existing, ok := ubiDeviceForMTD(mtdNum); ok {
			ubiNum = existing
		} else {
			attached, err := ubiAttach(mtdNum)
			if err != nil {
				return "", err
			}
			ubiNum = attached
		}
	} else {
		n, err := trailingInt(devPart)
		if err != nil {
			return "", wrapErr(ErrBadDevice, "cannot parse UBI index from %q", devPart)
		}
		ubiNum = n
	}

	volID, err := ubiVolumeID(ubiNum, volName)
	if err != nil {
		return "", err
	}

	return "/dev/ubi" + strconv.Itoa(ubiNum) + "_" + strconv.Itoa(volID), nil
}

func trailingInt(s string) (int, error) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return strconv.Atoi(s[i:])
}

// ubiDeviceForMTD scans /sys/class/ubi/ubiN/mtd_num to find the UBI
// device number already bound to the given MTD index.
func ubiDeviceForMTD(mtdNum int) (int, bool) {
	entries, err := os.ReadDir(sysClassUBI)
	if err != nil {
		return 0, false
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "ubi") || strings.Contains(name, "_") {
			continue
		}
		ubiNum, err := strconv.Atoi(strings.TrimPrefix(name, "ubi"))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(sysClassUBI + "/" + name + "/mtd_num")
		if err != nil {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && n == mtdNum {
			return ubiNum, true
		}
	}
	return 0, false
}

// ubiAttach issues the auto-attach ioctl on /dev/ubi_ctrl, handling
// the race where a concurrent attach already bound the MTD device.
func ubiAttach(mtdNum int) (int, error) {
	f, err := os.OpenFile(ubiCtrlDevice, os.O_RDONLY, 0)
	if err != nil {
		return 0, wrapErr(ErrBadDevice, "cannot open %q: %s", ubiCtrlDevice, err)
	}
	defer f.Close()

	req := ubiAttachReq{UBINum: ubiDevNumAuto, MTDNum: int32(mtdNum)}
	err = ioctl(f.Fd(), ubiIOCAtt, unsafe.Pointer(&req))
	if err == nil {
		return int(req.UBINum), nil
	}

	if existing, ok := ubiDeviceForMTD(mtdNum); ok {
		return existing, nil
	}
	return 0, wrapErr(ErrBadDevice, "cannot attach MTD %d to UBI: %s", mtdNum, err)
}

// ubiVolumeID resolves volName to a numeric volume id by scanning
// /sys/class/ubi/ubiN/volumes_count and each volume's name file.
func ubiVolumeID(ubiNum int, volName string) (int, error) {
	base := sysClassUBI + "/ubi" + strconv.Itoa(ubiNum)

	countData, err := os.ReadFile(base + "/volumes_count")
	if err != nil {
		return 0, wrapErr(ErrBadDevice, "cannot read volumes_count for ubi%d: %s", ubiNum, err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(countData)))
	if err != nil {
		return 0, wrapErr(ErrBadDevice, "malformed volumes_count for ubi%d", ubiNum)
	}

	found := 0
	for i := 0; i < ubiMaxVolumes && found < count; i++ {
		nameData, err := os.ReadFile(base + "_" + strconv.Itoa(i) + "/name")
		if err != nil {
			continue
		}
		found++
		if strings.TrimSpace(string(nameData)) == volName {
			return i, nil
		}
	}

	return 0, wrapErr(ErrBadDevice, "volume %q not found on ubi%d", volName, ubiNum)
}

func ubiRead(d *Device, buf []byte) error {
	f, err := os.OpenFile(d.Path, os.O_RDONLY, 0)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", d.Path, err)
	}
	defer f.Close()

	if _, err := io.ReadFull(f, buf); err != nil {
		return wrapErr(ErrIO, "cannot read %q: %s", d.Path, err)
	}
	return nil
}

func ubiWrite(d *Device, buf []byte) error {
	f, err := os.OpenFile(d.Path, os.O_WRONLY, 0)
	if err != nil {
		return wrapErr(ErrBadDevice, "cannot open %q: %s", d.Path, err)
	}
	defer f.Close()

	size := int64(len(buf))
	if err := ioctl(f.Fd(), ubiIOCVolUp, unsafe.Pointer(&size)); err != nil {
		return wrapErr(ErrIO, "cannot prime UBI volume update on %q: %s", d.Path, err)
	}
	if _, err := f.Write(buf); err != nil {
		return wrapErr(ErrIO, "cannot write %q: %s", d.Path, err)
	}
	return nil
}
