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
	"bytes"
	"os"
)

// deviceTreeEnvConfigPath is where the Linux kernel exposes the
// bootloader-supplied environment configuration string, when the
// platform's device tree carries one under /chosen.
const deviceTreeEnvConfigPath = "/proc/device-tree/chosen/u-boot,env-config"

// deviceTreeEnvConfigMaxLen bounds how much of the property this
// package will read; the property is just a namespace name, never
// anywhere near this size in practice.
const deviceTreeEnvConfigMaxLen = 63

// NamespaceFromDeviceTree reads the "u-boot,env-config" property U-Boot
// itself writes into /chosen and returns its contents, NUL-trimmed and
// capped at 63 bytes, as the name of the namespace the caller should
// look up in an already-populated ContextList (e.g. via
// ContextList.GetNamespace). It does not itself build or parse a
// Context: the property carries a bare name, not device geometry. ok
// is false if the property is absent.
func NamespaceFromDeviceTree() (name string, ok bool, err error) {
	return namespaceFromDeviceTreeFile(deviceTreeEnvConfigPath)
}

func namespaceFromDeviceTreeFile(path string) (name string, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, wrapErr(ErrIO, "cannot read %q: %s", path, err)
	}

	if len(raw) > deviceTreeEnvConfigMaxLen {
		raw = raw[:deviceTreeEnvConfigMaxLen]
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	return string(raw), true, nil
}
