package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import "debug/elf"

// SymbolSummary holds the three name-to-library-set relations produced by
// a single pass over every resolved library's dynamic symbols.
type SymbolSummary struct {
	Exported   map[string]map[string]struct{}
	Unresolved map[string]map[string]struct{}
	Defined    map[string]map[string]struct{}
}

func newSymbolSummary() *SymbolSummary {
	return &SymbolSummary{
		Exported:   make(map[string]map[string]struct{}),
		Unresolved: make(map[string]map[string]struct{}),
		Defined:    make(map[string]map[string]struct{}),
	}
}

func (s *SymbolSummary) insert(set map[string]map[string]struct{}, symbol, libName string) {
	libs, ok := set[symbol]
	if !ok {
		libs = make(map[string]struct{})
		set[symbol] = libs
	}
	libs[libName] = struct{}{}
}

// Summarize takes a populated LibraryDependencies and produces its
// SymbolSummary: for every (base-name, path) in Resolved, it fetches the
// Library and classifies each of its dynamic symbols into exported,
// unresolved, and/or defined (the three classifications are independent
// and non-exclusive).
func Summarize(ld *LibraryDependencies) (*SymbolSummary, error) {
	summary := newSymbolSummary()

	for libName, path := range ld.Resolved {
		lib := ld.Opened[path]
		f, err := lib.ELF()
		if err != nil {
			return nil, err
		}

		syms, err := f.DynamicSymbols()
		if err != nil {
			// No dynamic symbol table is not an error for this library;
			// it simply contributes nothing to the summary.
			continue
		}

		for _, sym := range syms {
			if sym.Name == "" {
				continue
			}

			bind := elf.ST_BIND(sym.Info)
			vis := elf.ST_VISIBILITY(sym.Other)
			undefined := sym.Section == elf.SHN_UNDEF

			if bind == elf.STB_GLOBAL && vis != elf.STV_HIDDEN && !undefined {
				summary.insert(summary.Exported, sym.Name, libName)
			}
			if undefined {
				summary.insert(summary.Unresolved, sym.Name, libName)
			}
			if !undefined {
				summary.insert(summary.Defined, sym.Name, libName)
			}
		}
	}

	return summary, nil
}
