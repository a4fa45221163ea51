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

// Non-Linux platforms have no portable advisory whole-file flock in
// the standard library; this best-effort stub never blocks a second
// locker, documented as a platform limitation rather than silently
// pretending to provide mutual exclusion.
func flockExclusive(fd uintptr) error { return nil }
func flockUnlock(fd uintptr) error    { return nil }
