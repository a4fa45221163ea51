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
	"io"
	"os"
	"strings"
)

// DefaultRedundantEnvSize is the per-copy size used by CreateRedundant
// and OpenRedundant callers that don't have a more specific geometry
// to report.
const DefaultRedundantEnvSize = 8192

// CreateOptions controls the on-media layout of a freshly created,
// non-redundant environment.
type CreateOptions struct {
	// HeaderFlagByte includes the optional redundancy generation
	// marker byte in the layout even though there is only one copy,
	// for compatibility with tools that always expect it. The byte
	// is always written as 0.
	HeaderFlagByte bool
}

// OpenFlag tunes how Open tolerates a damaged environment.
type OpenFlag int

const (
	// OpenStrict is the default: any malformed record is an error.
	OpenStrict OpenFlag = iota
	// OpenBestEffort recovers whatever well-formed records it can
	// from an environment containing stray or truncated records,
	// rather than failing outright.
	OpenBestEffort
)

// Env is a single- or dual-copy environment backed by one plain file,
// the convenience API mirroring the original C library's libuboot_*
// calls for the common case of a single configured device.
type Env struct {
	ctx *Context
}

func newFileDevice(path string, offset int64, size int) *Device {
	return &Device{
		Path:       path,
		Offset:     offset,
		EnvSize:    size,
		EnvSectors: 1,
		Backend:    BackendFile,
		FlagPolicy: FlagIncremental,
		checked:    true,
	}
}

// Create builds a new, empty, in-memory environment of size bytes
// rooted at path. Nothing touches disk until Save is called.
func Create(path string, size int, opts CreateOptions) (*Env, error) {
	if size < headerLen(opts.HeaderFlagByte)+2 {
		return nil, wrapErr(ErrInvalidArgument, "environment size %d is too small", size)
	}

	ctx := &Context{
		Devices:        []*Device{newFileDevice(path, 0, size)},
		Size:           size,
		HeaderFlagByte: opts.HeaderFlagByte,
	}
	ctx.valid = true
	ctx.current = 0

	return &Env{ctx: ctx}, nil
}

// Open reads an existing non-redundant environment from path. Its
// size and whether it carries the optional flag byte are both
// recovered from the file itself.
func Open(path string) (*Env, error) {
	return OpenWithFlags(path, OpenStrict)
}

// OpenWithFlags is Open with explicit control over malformed-record
// tolerance; see OpenFlag.
func OpenWithFlags(path string, flags OpenFlag) (*Env, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}

	records, headerFlagByte, err := decodeAutoDetect(raw)
	if err != nil {
		return nil, wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}

	ctx := &Context{
		Devices:        []*Device{newFileDevice(path, 0, len(raw))},
		Size:           len(raw),
		HeaderFlagByte: headerFlagByte,
		BestEffort:     flags == OpenBestEffort,
	}
	ctx.valid = true
	ctx.current = 0

	if err := populateStore(&ctx.store, records, ctx.BestEffort); err != nil {
		return nil, wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}

	return &Env{ctx: ctx}, nil
}

// decodeAutoDetect tries the redundant (flag-byte-present) header
// layout first and falls back to the plain layout, since a bare file
// with no accompanying configuration carries no explicit record of
// which one was used to write it.
func decodeAutoDetect(raw []byte) (records []string, headerFlagByte bool, err error) {
	recs, _, ok, decErr := decodeBlock(raw, true)
	if ok {
		return recs, true, nil
	}
	firstErr := decErr

	recs, _, ok, decErr = decodeBlock(raw, false)
	if ok {
		return recs, false, nil
	}
	if firstErr != nil {
		return nil, false, firstErr
	}
	return nil, false, decErr
}

// RedundantOffsets returns the byte offsets of the two copies that
// make up a redundant environment of the given per-copy size.
func RedundantOffsets(size int) (int64, int64) {
	return 0, int64(size)
}

// CreateRedundant builds a new, two-copy environment in a single
// file, writing both copies immediately so that the pair is valid
// and selectable from the moment it is created.
func CreateRedundant(path string, size int) (*Env, error) {
	if size < headerLen(true)+2 {
		return nil, wrapErr(ErrInvalidArgument, "environment size %d is too small", size)
	}

	dev0 := newFileDevice(path, 0, size)
	dev1 := newFileDevice(path, int64(size), size)

	zero := byte(0)
	buf0, err := encodeBlock(nil, size, &zero)
	if err != nil {
		return nil, err
	}
	if err := dev0.WriteBlock(buf0); err != nil {
		return nil, err
	}

	one := byte(1)
	buf1, err := encodeBlock(nil, size, &one)
	if err != nil {
		return nil, err
	}
	if err := dev1.WriteBlock(buf1); err != nil {
		return nil, err
	}

	ctx := &Context{
		Devices:        []*Device{dev0, dev1},
		Size:           size,
		HeaderFlagByte: true,
	}
	ctx.valid = true
	ctx.current = 1

	return &Env{ctx: ctx}, nil
}

// OpenRedundant reads an existing two-copy environment of the given
// per-copy size, selecting whichever copy is current per spec.md
// §4.4.
func OpenRedundant(path string, size int) (*Env, error) {
	ctx := &Context{
		Devices:        []*Device{newFileDevice(path, 0, size), newFileDevice(path, int64(size), size)},
		Size:           size,
		HeaderFlagByte: true,
	}
	if err := ctx.load(); err != nil {
		return nil, wrapErr(ErrIO, "cannot open %q: %s", path, err)
	}
	return &Env{ctx: ctx}, nil
}

// Set changes name to value in the in-memory environment; an empty
// value removes the variable. It does not touch disk until Save.
func (e *Env) Set(name, value string) error {
	return e.ctx.Set(name, value)
}

// Get returns the value of name, or "" if it is not present.
func (e *Env) Get(name string) string {
	v, _ := e.ctx.Get(name)
	return v
}

// String renders every variable as "name=value\n" in name order.
func (e *Env) String() string {
	var b strings.Builder
	for _, entry := range e.ctx.Iterate() {
		b.WriteString(entry.Name)
		b.WriteByte('=')
		b.WriteString(entry.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// Size returns the per-copy size in bytes.
func (e *Env) Size() int { return e.ctx.Size }

// HeaderFlagByte reports whether the on-media layout carries the
// optional redundancy generation marker byte.
func (e *Env) HeaderFlagByte() bool { return e.ctx.HeaderFlagByte }

// Save serializes the current variables and writes them to disk,
// flipping the active copy marker for a redundant environment.
func (e *Env) Save() error {
	return e.ctx.Store()
}

// Import sets variables from a legacy "name=value" text stream:
// blank lines and lines starting with '#' are skipped, everything
// else must contain '=' with a non-empty key. Variables not named in
// the stream keep their current values; lines applied before a bad
// line stay applied.
func (e *Env) Import(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			return wrapErr(ErrInvalidArgument, "Invalid line: %q", line)
		}
		if err := e.ctx.Set(line[:idx], line[idx+1:]); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return wrapErr(ErrIO, "cannot read import data: %s", err)
	}
	return nil
}
