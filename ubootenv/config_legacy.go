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
	"bufio"
	"os"
	"strconv"
	"strings"
)

// legacyDefaultNamespace is the name given to the single namespace
// produced from a legacy fw_env.config file, which has no concept of
// multiple namespaces.
const legacyDefaultNamespace = "default"

// LoadLegacyConfig reads the traditional fw_env.config line format:
//
//	<device path> <offset> <env size> [<sector size> <sectors> [disable_lock]]
//
// One line describes a single-copy environment; two lines describe a
// redundant pair sharing one namespace. offset accepts any base
// strconv.ParseInt(s, 0, 64) recognizes; env size, sector size, and
// sectors are always hex (an optional "0x"/"0X" prefix is tolerated
// but not required); disable_lock is decimal. This matches the
// original tool's sscanf("%ms %lli %lx %lx %lx", ...) fields.
func LoadLegacyConfig(path string) (*ContextList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}
	defer f.Close()

	var devices []*Device

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, wrapErr(ErrInvalidArgument, "malformed config line %q", line)
		}

		dev, err := parseLegacyDeviceLine(fields)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)

		if len(devices) > 2 {
			return nil, wrapErr(ErrInvalidArgument, "legacy config supports at most two device lines")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapErr(ErrIO, "cannot read %q: %s", path, err)
	}
	if len(devices) == 0 {
		return nil, wrapErr(ErrInvalidArgument, "config %q declares no devices", path)
	}

	ctx, err := NewContext(devices...)
	if err != nil {
		return nil, err
	}
	ctx.Name = legacyDefaultNamespace

	list := &ContextList{contexts: []*Context{ctx}}
	ctx.list = list
	return list, nil
}

// parseLegacyDeviceLine parses one whitespace-tokenized config line
// into a Device descriptor. fields[0] is the path; the remaining
// fields are offset, envsize, and the optional sectorsize/envsectors/
// disable_lock trailing group.
func parseLegacyDeviceLine(fields []string) (*Device, error) {
	path := fields[0]

	offset, err := parseOffset(fields[1])
	if err != nil {
		return nil, wrapErr(ErrInvalidArgument, "cannot parse offset %q: %s", fields[1], err)
	}

	envsize, err := parseHex64(fields[2])
	if err != nil {
		return nil, wrapErr(ErrInvalidArgument, "cannot parse envsize %q: %s", fields[2], err)
	}

	var sectorsize, envsectors int64 = 0, 1
	disableLock := false

	if len(fields) >= 4 {
		sectorsize, err = parseHex64(fields[3])
		if err != nil {
			return nil, wrapErr(ErrInvalidArgument, "cannot parse sectorsize %q: %s", fields[3], err)
		}
	}
	if len(fields) >= 5 {
		envsectors, err = parseHex64(fields[4])
		if err != nil {
			return nil, wrapErr(ErrInvalidArgument, "cannot parse envsectors %q: %s", fields[4], err)
		}
	}
	if len(fields) >= 6 {
		n, err := strconv.ParseInt(fields[5], 10, 64)
		if err != nil {
			return nil, wrapErr(ErrInvalidArgument, "cannot parse disable_lock flag %q: %s", fields[5], err)
		}
		disableLock = n != 0
	}

	return NewDevice(path, offset, int(envsize), int(sectorsize), int(envsectors), disableLock), nil
}

// parseHex64 parses a hex integer, tolerating (but not requiring) a
// leading "0x"/"0X" prefix, matching the original tool's "%lx" fields.
func parseHex64(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseInt(s, 16, 64)
}
