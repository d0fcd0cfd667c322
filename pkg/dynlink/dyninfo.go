package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"debug/elf"
	"strings"

	"github.com/pkg/errors"
)

// DynInfo holds the three ordered lists extracted from a library's
// dynamic section: RPATH directory segments, RUNPATH directory segments,
// and NEEDED library names.
type DynInfo struct {
	RPath   []string
	RunPath []string
	Libs    []string
}

// ExtractDynInfo scans f's dynamic section for NEEDED/RPATH/RUNPATH
// entries. RPATH and RUNPATH string-table entries are split on ":" and
// appended to their respective lists in order; NEEDED names are appended
// as-is, empty names are discarded. A library with no dynamic section
// yields an empty DynInfo and a nil error -- it is not treated as having
// failed to parse.
func ExtractDynInfo(f *elf.File) (DynInfo, error) {
	var info DynInfo

	if f.SectionByType(elf.SHT_DYNAMIC) == nil {
		return info, nil
	}

	needed, err := f.ImportedLibraries()
	if err != nil {
		return DynInfo{}, errors.Wrap(err, "dynlink: reading NEEDED entries")
	}
	for _, n := range needed {
		if n == "" {
			continue
		}
		info.Libs = append(info.Libs, n)
	}

	rpaths, err := f.DynString(elf.DT_RPATH)
	if err != nil {
		return DynInfo{}, errors.Wrap(err, "dynlink: reading RPATH")
	}
	for _, r := range rpaths {
		info.RPath = append(info.RPath, strings.Split(r, ":")...)
	}

	runpaths, err := f.DynString(elf.DT_RUNPATH)
	if err != nil {
		return DynInfo{}, errors.Wrap(err, "dynlink: reading RUNPATH")
	}
	for _, r := range runpaths {
		info.RunPath = append(info.RunPath, strings.Split(r, ":")...)
	}

	return info, nil
}
