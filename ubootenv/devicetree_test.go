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
	"path/filepath"
	"strings"
	"testing"
)

func TestNamespaceFromDeviceTreeFileTrimsNUL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "u-boot,env-config")

	content := "spi-nor0\x00\x00\x00"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	name, ok, err := namespaceFromDeviceTreeFile(path)
	if err != nil {
		t.Fatalf("namespaceFromDeviceTreeFile: %v", err)
	}
	if !ok {
		t.Fatal("expected ok == true")
	}
	if name != "spi-nor0" {
		t.Fatalf("name = %q, want %q", name, "spi-nor0")
	}
}

func TestNamespaceFromDeviceTreeFileCapsLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "u-boot,env-config")

	long := strings.Repeat("x", 200)
	if err := os.WriteFile(path, []byte(long), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	name, ok, err := namespaceFromDeviceTreeFile(path)
	if err != nil {
		t.Fatalf("namespaceFromDeviceTreeFile: %v", err)
	}
	if !ok {
		t.Fatal("expected ok == true")
	}
	if len(name) != deviceTreeEnvConfigMaxLen {
		t.Fatalf("len(name) = %d, want %d", len(name), deviceTreeEnvConfigMaxLen)
	}
}

func TestNamespaceFromDeviceTreeFileMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist")

	name, ok, err := namespaceFromDeviceTreeFile(path)
	if err != nil {
		t.Fatalf("namespaceFromDeviceTreeFile: %v", err)
	}
	if ok {
		t.Fatal("expected ok == false for a missing property")
	}
	if name != "" {
		t.Fatalf("name = %q, want empty", name)
	}
}
