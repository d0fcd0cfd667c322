package main

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vorteil/linkcheck/pkg/dynlink"
)

// defaultSearchMethods is the search-strategy list used when the caller
// supplies none on the command line: RPATH and RUNPATH of the dependent
// itself, then LD_LIBRARY_PATH, then /etc/ld.so.conf, then the two
// conventional fixed library directories. Both RPATH and RUNPATH are
// always consulted, in that order and ahead of LD_LIBRARY_PATH; this is
// not glibc's ld.so order, which ignores RPATH when RUNPATH is present and
// consults RUNPATH only after LD_LIBRARY_PATH.
func defaultSearchMethods() []dynlink.SearchMethod {
	return []dynlink.SearchMethod{
		dynlink.RPath(),
		dynlink.RunPath(),
		dynlink.LDLibraryPath(),
		dynlink.LDConfig("/etc/ld.so.conf"),
		dynlink.Fixed("/usr/lib"),
		dynlink.Fixed("/lib"),
	}
}

func runLinkcheck(cmd *cobra.Command, args []string) error {
	runID := uuid.New().String()
	log.Debugf("linkcheck run %s starting", runID)

	target, err := filepath.Abs(args[0])
	if err != nil {
		return errors.Wrapf(err, "resolving path %s", args[0])
	}

	var methods []dynlink.SearchMethod
	if len(flagSearch) == 0 {
		methods = defaultSearchMethods()
		log.Infof("run %s: no search methods supplied, using defaults", runID)
	} else {
		for _, token := range flagSearch {
			methods = append(methods, dynlink.ParseSearchMethod(token))
		}
	}

	ld, err := dynlink.TryFindForELF(target, methods, log)
	if err != nil {
		return errors.Wrapf(err, "run %s", runID)
	}
	log.Debugf("run %s: opened %d libraries, %d resolution problems", runID, len(ld.Opened), len(ld.Problems))

	summary, err := dynlink.Summarize(ld)
	if err != nil {
		return errors.Wrapf(err, "run %s: summarizing symbols", runID)
	}

	report := buildReport(target, ld, summary)
	return renderReport(cmd, report)
}

// reportSelection resolves which of the three report sections the caller
// asked for: --full turns on all three, any individual flag turns on
// just that section, and supplying none defaults to all three (matching
// the "print everything we found" behaviour of the original command).
func reportSelection() (resolution, unresolved, duplicates bool) {
	if flagFull {
		return true, true, true
	}
	if !flagResolution && !flagUnresolved && !flagDuplicates {
		return true, true, true
	}
	return flagResolution, flagUnresolved, flagDuplicates
}

// report is the serializable shape of a run's findings, gathering
// exactly the relations described in the overview: missing dependencies,
// unresolved symbols, and duplicate-export hazards.
type report struct {
	Target            string          `json:"target" yaml:"target"`
	LibraryProblems   []string        `json:"libraryProblems,omitempty" yaml:"libraryProblems,omitempty"`
	UnresolvedSymbols []dynlink.Group `json:"unresolvedSymbols,omitempty" yaml:"unresolvedSymbols,omitempty"`
	DuplicateExports  []dynlink.Group `json:"duplicateExports,omitempty" yaml:"duplicateExports,omitempty"`
}

func buildReport(target string, ld *dynlink.LibraryDependencies, summary *dynlink.SymbolSummary) report {
	resolution, unresolved, duplicates := reportSelection()

	r := report{Target: target}
	if resolution {
		for _, p := range ld.Problems {
			r.LibraryProblems = append(r.LibraryProblems, p.String())
		}
	}
	if unresolved {
		r.UnresolvedSymbols = summary.UnresolvedGroups()
	}
	if duplicates {
		r.DuplicateExports = summary.DuplicateExportGroups()
	}
	return r
}
