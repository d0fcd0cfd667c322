package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"fmt"
	"os"

	"github.com/vorteil/linkcheck/pkg/elog"
)

// ProblemKind tags the three shapes a ResolveProblem can take.
type ProblemKind int

const (
	// Unresolved: a NEEDED name whose first encounter found no file on disk.
	Unresolved ProblemKind = iota
	// UnresolvedButPreviouslyResolved: this dependent cannot find the name
	// under its own search paths, but a previously-processed dependent
	// already resolved it to some path.
	UnresolvedButPreviouslyResolved
	// ResolveConflict: this dependent's search paths resolve the name to a
	// path different from the one that already won first-wins.
	ResolveConflict
)

// ResolveProblem records a single failed or conflicting NEEDED edge.
// Every field is a literal path or string, never a reference into the
// accumulator, so a problem remains valid after the walk that produced it
// is discarded.
type ResolveProblem struct {
	Kind      ProblemKind
	Dependent string
	Name      string
	Locations Locations

	// Set for UnresolvedButPreviouslyResolved and ResolveConflict.
	PrevResolvedPath string
	FirstResolver    string

	// Set only for ResolveConflict: the path this dependent's own search
	// paths would have resolved Name to.
	ResolvePath string
}

// String renders a problem as a single human-readable diagnostic line.
func (p ResolveProblem) String() string {
	switch p.Kind {
	case Unresolved:
		return fmt.Sprintf("%s: could not resolve dependency to library %q. Search locations are: %s",
			p.Dependent, p.Name, p.Locations)
	case UnresolvedButPreviouslyResolved:
		return fmt.Sprintf("%s: could not resolve dependency %q, but it is already resolved to %s by %s. Search locations are: %s",
			p.Dependent, p.Name, p.PrevResolvedPath, p.FirstResolver, p.Locations)
	case ResolveConflict:
		return fmt.Sprintf("%s: would resolve dependency %q to %s, but it is already resolved to %s by %s. Search locations are: %s",
			p.Dependent, p.Name, p.ResolvePath, p.PrevResolvedPath, p.FirstResolver, p.Locations)
	default:
		return fmt.Sprintf("%s: unknown problem with dependency %q", p.Dependent, p.Name)
	}
}

// String renders a Locations slice for inclusion in a ResolveProblem line.
func (locs Locations) String() string {
	s := "[\n"
	for _, loc := range locs {
		s += fmt.Sprintf("\t%s (%s)\n", loc.Dir, loc.Origin)
	}
	return s + "]"
}

// LibraryDependencies is the accumulator built by a single walk. Once
// created it is owned by that walk; Summarize only reads it afterwards.
type LibraryDependencies struct {
	// Opened maps absolute path to the Library opened there. Entries are
	// never mutated or removed once inserted.
	Opened map[string]*Library

	// Resolved maps a bare library base-name to the absolute path that
	// first resolved it. First-write-wins.
	Resolved map[string]string

	// ReverseDependencies maps an absolute path to the ordered paths of
	// the libraries that pulled it in; element 0 is the first resolver.
	ReverseDependencies map[string][]string

	// Problems is the ordered list of resolution problems, in detection order.
	Problems []ResolveProblem

	methods []SearchMethod
	logger  elog.View
}

// TryFindForELF walks the NEEDED graph rooted at elfPath using methods,
// and returns the populated accumulator. I/O and ELF-parse failures
// encountered while opening a reached library propagate to the caller;
// per-edge resolution problems never do -- they are appended to Problems
// and the walk continues.
func TryFindForELF(elfPath string, methods []SearchMethod, logger elog.View) (*LibraryDependencies, error) {
	if logger == nil {
		logger = &elog.CLI{}
	}

	ld := &LibraryDependencies{
		Opened:              make(map[string]*Library),
		Resolved:            make(map[string]string),
		ReverseDependencies: make(map[string][]string),
		methods:             methods,
		logger:              logger,
	}

	if err := ld.visit(elfPath, "", false); err != nil {
		return nil, err
	}
	return ld, nil
}

func (ld *LibraryDependencies) visit(path string, caller string, hasCaller bool) error {
	if _, ok := ld.Opened[path]; ok {
		// Already opened: either a cycle or a shared subtree already cut.
		return nil
	}

	lib, err := OpenLibrary(path)
	if err != nil {
		return err
	}
	ld.Opened[path] = lib
	ld.logger.Debugf("dynlink: opened %s", path)

	name := lib.Name()
	if _, ok := ld.Resolved[name]; !ok {
		ld.Resolved[name] = path
	}

	if hasCaller {
		ld.ReverseDependencies[path] = []string{caller}
	}

	f, err := lib.ELF()
	if err != nil {
		return err
	}
	info, err := ExtractDynInfo(f)
	if err != nil {
		return err
	}

	locs, err := BuildLocations(path, info, ld.methods, os.LookupEnv)
	if err != nil {
		return err
	}

	var toVisit []string
	for _, depName := range info.Libs {
		depPath, found := locs.TryFind(depName)

		if prevPath, wasResolved := ld.Resolved[depName]; wasResolved {
			// The entry file has no reverse dependencies, so an edge back to
			// it carries an empty FirstResolver.
			var firstResolver string
			if rdeps := ld.ReverseDependencies[prevPath]; len(rdeps) > 0 {
				firstResolver = rdeps[0]
			}
			switch {
			case found && depPath == prevPath:
				ld.ReverseDependencies[prevPath] = append(ld.ReverseDependencies[prevPath], path)
			case found:
				ld.Problems = append(ld.Problems, ResolveProblem{
					Kind:             ResolveConflict,
					Dependent:        path,
					Name:             depName,
					Locations:        locs,
					ResolvePath:      depPath,
					PrevResolvedPath: prevPath,
					FirstResolver:    firstResolver,
				})
			default:
				ld.Problems = append(ld.Problems, ResolveProblem{
					Kind:             UnresolvedButPreviouslyResolved,
					Dependent:        path,
					Name:             depName,
					Locations:        locs,
					PrevResolvedPath: prevPath,
					FirstResolver:    firstResolver,
				})
			}
			continue
		}

		if !found {
			ld.Problems = append(ld.Problems, ResolveProblem{
				Kind:      Unresolved,
				Dependent: path,
				Name:      depName,
				Locations: locs,
			})
			continue
		}

		toVisit = append(toVisit, depPath)
	}

	// Recurse depth-first, in the order NEEDED entries were produced.
	for _, depPath := range toVisit {
		if err := ld.visit(depPath, path, true); err != nil {
			return err
		}
	}

	return nil
}
