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
	"strings"
)

// LoadFile seeds ctx from a legacy "name=value" defaults file, one
// variable per line. Unlike Env.Import, it is tolerant rather than
// strict: blank lines, '#' comments, and lines that don't parse as
// name=value are silently skipped rather than failing the whole load,
// since this is meant for baking default environments into a build
// where a stray line should not block every other variable.
func (ctx *Context) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		name := strings.TrimSpace(line[:idx])
		value := line[idx+1:]
		if name == "" {
			continue
		}

		// An empty value removes the variable rather than being a
		// validation error; defaults files commonly blank out a
		// variable by declaring it with nothing after '='.
		_ = ctx.Set(name, value)
	}

	if err := scanner.Err(); err != nil {
		return wrapErr(ErrIO, "cannot read %q: %s", path, err)
	}
	return nil
}
