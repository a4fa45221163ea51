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

package ubootenv_test

import (
	"os"
	"path/filepath"

	. "gopkg.in/check.v1"

	"github.com/sbabic/libubootenv/ubootenv"
)

// Test is registered once, in env_test.go; gocheck's TestingT runs
// every Suite registered across the package from that single entry
// point.

type contextSuite struct {
	dir string
}

var _ = Suite(&contextSuite{})

func (s *contextSuite) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *contextSuite) TestConfigureRejectsTooManyDevices(c *C) {
	ctx, err := ubootenv.NewContext()
	c.Assert(err, IsNil)

	path := filepath.Join(s.dir, "env")
	d1 := ubootenv.NewDevice(path, 0, 4096, 0, 1, false)
	d2 := ubootenv.NewDevice(path, 4096, 4096, 0, 1, false)
	d3 := ubootenv.NewDevice(path, 8192, 4096, 0, 1, false)

	err = ctx.Configure([]*ubootenv.Device{d1, d2, d3})
	c.Assert(err, ErrorMatches, ".*1 or 2 devices.*")
}

func (s *contextSuite) TestLoadFileSkipsMalformedLines(c *C) {
	path := filepath.Join(s.dir, "env")
	dev := ubootenv.NewDevice(path, 0, 4096, 0, 1, false)
	ctx, err := ubootenv.NewContext(dev)
	c.Assert(err, IsNil)

	defaults := filepath.Join(s.dir, "defaults.txt")
	content := "# a comment\n\nfoo=bar\nthis-has-no-equals\nbaz=qux\n"
	c.Assert(os.WriteFile(defaults, []byte(content), 0644), IsNil)

	c.Assert(ctx.LoadFile(defaults), IsNil)

	v, ok := ctx.Get("foo")
	c.Assert(ok, Equals, true)
	c.Assert(v, Equals, "bar")

	v, ok = ctx.Get("baz")
	c.Assert(ok, Equals, true)
	c.Assert(v, Equals, "qux")
}

func (s *contextSuite) TestSetDeniedOutsideWriteAllowlist(c *C) {
	path := filepath.Join(s.dir, "env")
	dev := ubootenv.NewDevice(path, 0, 4096, 0, 1, false)
	ctx, err := ubootenv.NewContext(dev)
	c.Assert(err, IsNil)

	ctx.Allowlist = map[string]*ubootenv.VarEntry{
		"allowed": {Name: "allowed"},
	}

	err = ctx.Set("not-allowed", "value")
	c.Assert(err, NotNil)
	c.Assert(ubootenv.KindOf(err), Equals, ubootenv.KindPermissionDenied)

	c.Assert(ctx.Set("allowed", "value"), IsNil)
}

func (s *contextSuite) TestLoadLegacyConfigSingleDevice(c *C) {
	envPath := filepath.Join(s.dir, "env")
	configPath := filepath.Join(s.dir, "fw_env.config")
	content := envPath + " 0x0 0x4000 0x4000 1\n"
	c.Assert(os.WriteFile(configPath, []byte(content), 0644), IsNil)

	list, err := ubootenv.LoadLegacyConfig(configPath)
	c.Assert(err, IsNil)

	ctx := list.GetNamespace("default")
	c.Assert(ctx, NotNil)
}

func (s *contextSuite) TestLoadLegacyConfigRejectsTooManyLines(c *C) {
	envPath := filepath.Join(s.dir, "env")
	configPath := filepath.Join(s.dir, "fw_env.config")
	line := envPath + " 0x0 0x4000\n"
	c.Assert(os.WriteFile(configPath, []byte(line+line+line), 0644), IsNil)

	_, err := ubootenv.LoadLegacyConfig(configPath)
	c.Assert(err, ErrorMatches, ".*at most two device lines.*")
}

func (s *contextSuite) TestLoadYAMLConfigBuildsNamespaces(c *C) {
	envPath := filepath.Join(s.dir, "env")
	configPath := filepath.Join(s.dir, "config.yaml")
	content := "" +
		"namespaces:\n" +
		"  default:\n" +
		"    size: 4096\n" +
		"    devices:\n" +
		"      - path: " + envPath + "\n" +
		"        offset: 0\n" +
		"    writelist:\n" +
		"      - \"foo:da\"\n"
	c.Assert(os.WriteFile(configPath, []byte(content), 0644), IsNil)

	list, err := ubootenv.LoadYAMLConfig(configPath)
	c.Assert(err, IsNil)

	ctx := list.GetNamespace("default")
	c.Assert(ctx, NotNil)

	err = ctx.Set("foo", "not-a-number")
	c.Assert(err, NotNil)
	c.Assert(ctx.Set("foo", "123"), IsNil)
}

func (s *contextSuite) TestLoadYAMLConfigRejectsDuplicateWritelistName(c *C) {
	envPath := filepath.Join(s.dir, "env")
	configPath := filepath.Join(s.dir, "config.yaml")
	content := "" +
		"namespaces:\n" +
		"  default:\n" +
		"    size: 4096\n" +
		"    devices:\n" +
		"      - path: " + envPath + "\n" +
		"        offset: 0\n" +
		"    writelist:\n" +
		"      - \"foo:da\"\n" +
		"      - \"foo:sr\"\n"
	c.Assert(os.WriteFile(configPath, []byte(content), 0644), IsNil)

	_, err := ubootenv.LoadYAMLConfig(configPath)
	c.Assert(err, ErrorMatches, ".*more than once.*")
}
