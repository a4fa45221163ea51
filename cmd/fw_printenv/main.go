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

// Command fw_printenv prints U-Boot bootloader environment variables
// from a configured namespace, mirroring the classic fw_printenv CLI.
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
	Namespace string `short:"n" long:"namespace" description:"namespace to query (default: the device tree hint, or \"default\")"`
	Version   bool   `short:"v" long:"version" description:"print the version and exit"`

	Args struct {
		Names []string `positional-arg-name:"name"`
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
		fmt.Println(ubootenv.VersionString("fw_printenv"))
		return 0
	}

	list, err := loadConfig(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fw_printenv:", err)
		return 1
	}

	namespace := resolveNamespace(opts.Namespace)
	ctx := list.GetNamespace(namespace)
	if ctx == nil {
		fmt.Fprintf(os.Stderr, "fw_printenv: no such namespace %q\n", namespace)
		return 1
	}

	if err := ctx.Open(); err != nil && ubootenv.KindOf(err) != ubootenv.KindNoData {
		fmt.Fprintln(os.Stderr, "fw_printenv:", err)
		return 1
	}
	defer ctx.Close()

	if len(opts.Args.Names) == 0 {
		for _, e := range ctx.Iterate() {
			fmt.Printf("%s=%s\n", e.Name, e.Value)
		}
		return 0
	}

	status := 0
	for _, name := range opts.Args.Names {
		v, ok := ctx.Get(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "## Error: %q not defined\n", name)
			status = 1
			continue
		}
		fmt.Printf("%s=%s\n", name, v)
	}
	return status
}

func main() {
	os.Exit(run())
}
