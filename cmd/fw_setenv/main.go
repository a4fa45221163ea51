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

// Command fw_setenv writes U-Boot bootloader environment variables
// into a configured namespace, mirroring the classic fw_setenv CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/sbabic/libubootenv/ubootenv"
)

type options struct {
	Config    string `short:"c" long:"config" description:"path to fw_env.config or a YAML namespace config" default:"/etc/fw_env.config"`
	Namespace string `short:"n" long:"namespace" description:"namespace to write to (default: the device tree hint, or \"default\")"`
	Script    string `short:"s" long:"script" description:"read name=value assignments from a file instead of the command line"`
	Version   bool   `short:"v" long:"version" description:"print the version and exit"`

	Args struct {
		Pairs []string `positional-arg-name:"name value"`
	} `positional-args:"yes"`
}

func loadConfig(path string) (*ubootenv.ContextList, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return ubootenv.LoadYAMLConfig(path)
	}
	return ubootenv.LoadLegacyConfig(path)
}

// resolveNamespace honors an explicit -n flag first, then the device
// tree "u-boot,env-config" hint, then falls back to "default".
func resolveNamespace(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if name, ok, _ := ubootenv.NamespaceFromDeviceTree(); ok && name != "" {
		return name
	}
	return "default"
}

func applyPairs(ctx *ubootenv.Context, pairs []string) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("name/value arguments must come in pairs")
	}
	for i := 0; i < len(pairs); i += 2 {
		if err := ctx.Set(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func run() int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}

	if opts.Version {
		fmt.Println(ubootenv.VersionString("fw_setenv"))
		return 0
	}

	list, err := loadConfig(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fw_setenv:", err)
		return 1
	}

	namespace := resolveNamespace(opts.Namespace)
	ctx := list.GetNamespace(namespace)
	if ctx == nil {
		fmt.Fprintf(os.Stderr, "fw_setenv: no such namespace %q\n", namespace)
		return 1
	}

	if err := ctx.Open(); err != nil && ubootenv.KindOf(err) != ubootenv.KindNoData {
		fmt.Fprintln(os.Stderr, "fw_setenv:", err)
		return 1
	}
	defer ctx.Close()

	if opts.Script != "" {
		if err := ctx.LoadFile(opts.Script); err != nil {
			fmt.Fprintln(os.Stderr, "fw_setenv:", err)
			return 1
		}
	} else {
		if err := applyPairs(ctx, opts.Args.Pairs); err != nil {
			fmt.Fprintln(os.Stderr, "fw_setenv:", err)
			return 1
		}
	}

	if err := ctx.Store(); err != nil {
		fmt.Fprintln(os.Stderr, "fw_setenv:", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
