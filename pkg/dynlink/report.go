package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"sort"
	"strings"
)

// Group is one row of a grouped report: the sorted set of library
// base-names responsible, and the sorted symbol names attributed to them.
type Group struct {
	Libs    []string
	Symbols []string
}

// groupByLibs folds a symbol-to-libset map into one Group per distinct
// library set, keyed by the sorted, comma-joined library names responsible
// -- this is what lets symbols attributable to the same set of libraries
// collapse into a single report row instead of one row per symbol.
func groupByLibs(m map[string]map[string]struct{}, include func(symbol string) bool) []Group {
	bySet := make(map[string][]string)
	setLibs := make(map[string][]string)

	for symbol, libs := range m {
		if include != nil && !include(symbol) {
			continue
		}
		names := make([]string, 0, len(libs))
		for lib := range libs {
			names = append(names, lib)
		}
		sort.Strings(names)
		key := strings.Join(names, ", ")

		bySet[key] = append(bySet[key], symbol)
		setLibs[key] = names
	}

	groups := make([]Group, 0, len(bySet))
	for key, symbols := range bySet {
		sort.Strings(symbols)
		groups = append(groups, Group{Libs: setLibs[key], Symbols: symbols})
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.Join(groups[i].Libs, ", ") < strings.Join(groups[j].Libs, ", ")
	})
	return groups
}

// UnresolvedGroups groups symbols that are unresolved somewhere in the
// closure and that no loaded library defines -- the set a real loader
// would fail on at relocation time.
func (s *SymbolSummary) UnresolvedGroups() []Group {
	return groupByLibs(s.Unresolved, func(symbol string) bool {
		_, defined := s.Defined[symbol]
		return !defined
	})
}

// DuplicateExportGroups groups symbols exported by two or more libraries
// where at least one library in the closure also imports that symbol --
// the interposition hazard this relation is meant to surface: the loader
// picks one definition, silently shadowing the others.
func (s *SymbolSummary) DuplicateExportGroups() []Group {
	return groupByLibs(s.Exported, func(symbol string) bool {
		if len(s.Exported[symbol]) < 2 {
			return false
		}
		_, imported := s.Unresolved[symbol]
		return imported
	})
}
