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
)

// DefaultLockPath is the lock file fw_printenv/fw_setenv have
// historically used, shared across all namespaces unless overridden.
const DefaultLockPath = "/var/lock/fw_printenv.lock"

// Context owns one namespace's devices, configuration, and variable
// store. Its zero value is not usable; build one with NewContext or
// a configuration intake adapter.
type Context struct {
	Name       string
	Devices    []*Device // length 1 (plain) or 2 (redundant)
	Size       int
	LockPath   string
	Allowlist  map[string]*VarEntry // nil: unrestricted
	BestEffort bool                 // tolerate malformed records instead of failing Open

	// HeaderFlagByte controls whether the on-media layout carries the
	// optional 1-byte generation marker after the CRC. A redundant
	// (2-device) context always carries it, since copy selection
	// depends on it; a single-device context may carry it purely for
	// on-disk format compatibility, in which case it is always 0.
	HeaderFlagByte bool

	valid   bool
	current int
	store   Store

	lockFile *os.File
	list     *ContextList
}

// ContextList is a named collection of Contexts populated together
// by a single configuration load, so that GetNamespace can look one
// up by name and Dispose can release them as a group.
type ContextList struct {
	contexts []*Context
}

// GetNamespace returns the Context named name, or nil.
func (l *ContextList) GetNamespace(name string) *Context {
	for _, c := range l.contexts {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Contexts returns all contexts in the collection, in load order.
func (l *ContextList) Contexts() []*Context { return l.contexts }

// Dispose releases every context in the collection. Safe to call
// more than once.
func (l *ContextList) Dispose() {
	for _, c := range l.contexts {
		c.Close()
		c.list = nil
	}
	l.contexts = nil
}

// NewContext creates an unconfigured context and, if devices is
// non-empty, configures it immediately (spec.md §6 "initialize").
func NewContext(devices ...*Device) (*Context, error) {
	ctx := &Context{LockPath: DefaultLockPath}
	if len(devices) > 0 {
		if err := ctx.Configure(devices); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// Configure validates and installs 1 or 2 device descriptors,
// checking each one and, for a pair, the redundancy compatibility
// invariant of spec.md §3.
func (ctx *Context) Configure(devices []*Device) error {
	if len(devices) == 0 || len(devices) > 2 {
		return wrapErr(ErrInvalidArgument, "a context takes 1 or 2 devices, got %d", len(devices))
	}

	for _, d := range devices {
		if err := d.Check(); err != nil {
			return err
		}
	}
	if ctx.Size == 0 {
		ctx.Size = devices[0].EnvSize
	}
	for _, d := range devices {
		if d.EnvSize != ctx.Size {
			return wrapErr(ErrInvalidArgument, "device %q envsize %d does not match context size %d", d.Path, d.EnvSize, ctx.Size)
		}
	}

	if len(devices) == 2 && !compatible(devices[0], devices[1]) {
		return wrapErr(ErrInvalidArgument, "redundant devices are not compatible")
	}

	ctx.Devices = devices
	if len(devices) == 2 {
		ctx.HeaderFlagByte = true
	}
	return nil
}

func (ctx *Context) redundant() bool { return len(ctx.Devices) == 2 }

func (ctx *Context) lockPath() string {
	if ctx.LockPath != "" {
		return ctx.LockPath
	}
	return DefaultLockPath
}

// Open acquires the namespace's advisory lock and loads the current
// environment. If both copies fail their CRC check, Open still
// succeeds (the lock is held and the context is usable for seeding
// defaults via LoadFile + Store) but returns ErrNoData and Valid()
// reports false.
func (ctx *Context) Open() error {
	if len(ctx.Devices) == 0 {
		return wrapErr(ErrInvalidArgument, "context has no devices configured")
	}

	f, err := os.OpenFile(ctx.lockPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return wrapErr(ErrBusy, "cannot create lock file %q: %s", ctx.lockPath(), err)
	}
	if err := flockExclusive(f.Fd()); err != nil {
		f.Close()
		return wrapErr(ErrIO, "cannot lock %q: %s", ctx.lockPath(), err)
	}
	ctx.lockFile = f

	return ctx.load()
}

// Close releases the lock and frees the in-memory store, preserving
// the device/size/allowlist configuration so Open can be called
// again.
func (ctx *Context) Close() {
	ctx.valid = false
	if ctx.lockFile != nil {
		flockUnlock(ctx.lockFile.Fd())
		ctx.lockFile.Close()
		ctx.lockFile = nil
	}
	ctx.store = Store{}
}

// Dispose releases ctx and removes it from its owning collection, if
// any.
func (ctx *Context) Dispose() {
	ctx.Close()
	if ctx.list != nil {
		for i, c := range ctx.list.contexts {
			if c == ctx {
				ctx.list.contexts = append(ctx.list.contexts[:i], ctx.list.contexts[i+1:]...)
				break
			}
		}
		ctx.list = nil
	}
}

// Valid reports whether the environment loaded by the last Open call
// passed its CRC check.
func (ctx *Context) Valid() bool { return ctx.valid }

// Get returns a copy of the value of name, or ("", false) if absent.
func (ctx *Context) Get(name string) (string, bool) {
	return ctx.store.GetValue(name)
}

// Set mutates name in the in-memory store (spec.md §6's "set"), with
// the write-allowlist applied if configured.
func (ctx *Context) Set(name, value string) error {
	var validator *VarEntry
	if ctx.Allowlist != nil {
		v, ok := ctx.Allowlist[name]
		if !ok {
			return wrapErr(ErrPermissionDenied, "variable %q is not in the write-allowlist", name)
		}
		validator = v
	}
	return ctx.store.Set(name, value, validator)
}

// Iterate returns every variable in the store, in name order.
func (ctx *Context) Iterate() []*VarEntry { return ctx.store.Iterate() }

// load reads every configured device, verifies CRC, selects the
// current copy per spec.md §4.4, and populates the store from it.
func (ctx *Context) load() error {
	ctx.valid = false
	ctx.store = Store{}

	n := len(ctx.Devices)
	var crcOK [2]bool
	var flags [2]byte
	var records [2][]string

	for i := 0; i < n; i++ {
		raw := make([]byte, ctx.Size)
		if err := ctx.Devices[i].ReadBlock(raw); err != nil {
			return err
		}
		recs, flag, ok, _ := decodeBlock(raw, ctx.HeaderFlagByte)
		crcOK[i] = ok
		flags[i] = flag
		records[i] = recs
	}

	if !ctx.redundant() {
		ctx.valid = crcOK[0]
		ctx.current = 0
	} else {
		ctx.valid, ctx.current = selectCopy(crcOK, flags, ctx.Devices[0].FlagPolicy)
	}

	if !ctx.valid {
		return ErrNoData
	}

	return populateStore(&ctx.store, records[ctx.current], ctx.BestEffort)
}

// populateStore feeds decoded "name=value" records into store,
// applying the synthetic ".flags" record last as spec.md §4.1
// requires. A record with no '=' or an empty key is rejected rather
// than silently dropped, since at this point the CRC already
// guarantees the data is intact and such a record indicates a
// genuinely corrupt environment — unless bestEffort is set, in which
// case it is skipped so that scavenged flash with trailing junk still
// yields whatever variables could be recovered.
func populateStore(store *Store, records []string, bestEffort bool) error {
	var flagsValue string
	haveFlags := false

	for _, rec := range records {
		name, value, ok := splitNameValue(rec)
		if !ok {
			if bestEffort {
				continue
			}
			return wrapErr(ErrNoData, "cannot parse line %q as key=value pair", rec)
		}
		if name == ".flags" {
			flagsValue = value
			haveFlags = true
			continue
		}
		store.setRaw(name, value)
	}

	if haveFlags {
		applyFlagsVar(store.entries, flagsValue)
	}
	return nil
}

func splitNameValue(rec string) (name, value string, ok bool) {
	for i := 0; i < len(rec); i++ {
		if rec[i] == '=' {
			if i == 0 {
				return "", "", false
			}
			return rec[:i], rec[i+1:], true
		}
	}
	return "", "", false
}

// Store serializes the in-memory variable database and writes it to
// the inactive copy, flipping the active marker on success — spec.md
// §4.5's "store" operation.
func (ctx *Context) Store() error {
	var flagByte *byte
	if ctx.HeaderFlagByte {
		var fb byte
		if ctx.redundant() {
			fb = nextFlag(ctx.currentFlag(), ctx.Devices[ctx.current].FlagPolicy)
		}
		flagByte = &fb
	}

	buf, err := encodeBlock(ctx.store.Iterate(), ctx.Size, flagByte)
	if err != nil {
		return err
	}

	target := 0
	if ctx.redundant() {
		target = otherCopy(ctx.current)
	}

	if err := ctx.Devices[target].WriteBlock(buf); err != nil {
		return err
	}

	if ctx.redundant() && ctx.Devices[ctx.current].FlagPolicy == FlagBoolean {
		if err := ctx.Devices[ctx.current].WriteObsoleteFlag(); err != nil {
			return err
		}
	}

	if ctx.redundant() {
		ctx.current = target
	}
	return nil
}

// currentFlag re-derives the active copy's current flag byte by
// re-reading its header; kept simple rather than cached across Set
// calls, since Store is not expected to run in a hot loop.
func (ctx *Context) currentFlag() byte {
	if !ctx.redundant() {
		return 0
	}
	raw := make([]byte, headerLen(ctx.HeaderFlagByte))
	if err := ctx.Devices[ctx.current].ReadBlock(raw); err != nil {
		return 0
	}
	return raw[flagOffset]
}
