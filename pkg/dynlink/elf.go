// Package dynlink reproduces the GNU ld.so dynamic-linker library
// resolution walk over an ELF executable or shared library, without
// loading or executing anything, and reduces the resulting dynamic
// symbol tables to the relations a linker-compatibility checker needs.
package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"bytes"
	"debug/elf"
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
)

// Library is an opened ELF file: the absolute path it was resolved to and
// the raw bytes read from disk. Invariant: Bytes parses as ELF. The
// record owns Bytes for the life of an analysis run; ELF() re-derives a
// parsed view on demand rather than caching it, so the view's lifetime
// never outlives a single call.
type Library struct {
	path  string
	bytes []byte
}

// OpenLibrary reads path wholly into memory and validates that it parses
// as ELF. I/O and parse failures are fatal to the run and are wrapped
// with the path for context.
func OpenLibrary(path string) (*Library, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dynlink: not readable: %s", path)
	}

	if _, err := elf.NewFile(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrapf(err, "dynlink: not an ELF file: %s", path)
	}

	return &Library{path: path, bytes: raw}, nil
}

// Path returns the absolute path the library was resolved to.
func (l *Library) Path() string {
	return l.path
}

// Name returns the final path component of the stored path. The stored
// path always has a final component because OpenLibrary is only ever
// called with paths produced by the resolver or supplied as the entry
// file, neither of which produce an empty path.
func (l *Library) Name() string {
	return filepath.Base(l.path)
}

// ELF re-parses the stored bytes and returns a view over them. The
// returned *elf.File borrows from l.bytes and must not be used after l is
// discarded. Re-parsing on every call avoids having to invalidate a
// cached view when nothing else mutates the Library.
func (l *Library) ELF() (*elf.File, error) {
	f, err := elf.NewFile(bytes.NewReader(l.bytes))
	if err != nil {
		return nil, errors.Wrapf(err, "dynlink: re-parse failed: %s", l.path)
	}
	return f, nil
}
