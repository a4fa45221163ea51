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
	"os"

	"gopkg.in/yaml.v3"
)

// yamlConfig is the root of the structured configuration document:
// one or more independently lockable namespaces, each with its own
// device geometry and, optionally, a write-allowlist.
type yamlConfig struct {
	DefaultLockfile string                   `yaml:"default-lockfile"`
	Namespaces      map[string]yamlNamespace `yaml:"namespaces"`
}

type yamlNamespace struct {
	Size      int          `yaml:"size"`
	Lockfile  string       `yaml:"lockfile"`
	Devices   []yamlDevice `yaml:"devices"`
	WriteList []string     `yaml:"writelist"`
}

type yamlDevice struct {
	Path        string `yaml:"path"`
	Offset      int64  `yaml:"offset"`
	EnvSize     int    `yaml:"envsize"`
	SectorSize  int    `yaml:"sectorsize"`
	EnvSectors  int    `yaml:"envsectors"`
	DisableLock bool   `yaml:"disablelock"`
}

// LoadYAMLConfig reads the structured namespace/device/write-allowlist
// configuration format and returns one Context per namespace.
func LoadYAMLConfig(path string) (*ContextList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}

	var doc yamlConfig
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, wrapErr(ErrInvalidArgument, "cannot parse %q: %s", path, err)
	}

	list := &ContextList{}
	for name, ns := range doc.Namespaces {
		ctx, err := buildNamespaceContext(name, ns, doc.DefaultLockfile)
		if err != nil {
			return nil, err
		}
		ctx.list = list
		list.contexts = append(list.contexts, ctx)
	}
	return list, nil
}

func buildNamespaceContext(name string, ns yamlNamespace, defaultLockfile string) (*Context, error) {
	if len(ns.Devices) == 0 {
		return nil, wrapErr(ErrInvalidArgument, "namespace %q declares no devices", name)
	}
	if len(ns.Devices) > 2 {
		return nil, wrapErr(ErrInvalidArgument, "namespace %q declares more than two devices", name)
	}

	devices := make([]*Device, len(ns.Devices))
	for i, d := range ns.Devices {
		envsize := d.EnvSize
		if envsize == 0 {
			envsize = ns.Size
		}
		devices[i] = NewDevice(d.Path, d.Offset, envsize, d.SectorSize, d.EnvSectors, d.DisableLock)
	}

	ctx, err := NewContext(devices...)
	if err != nil {
		return nil, wrapErr(ErrInvalidArgument, "namespace %q: %s", name, err)
	}
	ctx.Name = name

	if ns.Lockfile != "" {
		ctx.LockPath = ns.Lockfile
	} else if defaultLockfile != "" {
		ctx.LockPath = defaultLockfile
	}

	if len(ns.WriteList) > 0 {
		allowlist := make(map[string]*VarEntry, len(ns.WriteList))
		for _, item := range ns.WriteList {
			varName, t, a, r, ok := parseFlagsItem(item)
			if !ok {
				return nil, wrapErr(ErrInvalidArgument, "namespace %q: unparseable writelist entry %q", name, item)
			}
			if _, dup := allowlist[varName]; dup {
				return nil, wrapErr(ErrInvalidArgument, "namespace %q: writelist declares %q more than once", name, varName)
			}
			allowlist[varName] = &VarEntry{Name: varName, Type: t, Access: a, Range: r}
		}
		ctx.Allowlist = allowlist
	}

	return ctx, nil
}
