package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"os"
	"path/filepath"
	"strings"
)

// MethodKind enumerates the five shapes a SearchMethod can take. Go has
// no sum type, so this is a kind tag plus the one field a given kind
// actually uses.
type MethodKind int

const (
	// RPathMethod consults the dependent's RPATH.
	RPathMethod MethodKind = iota
	// RunPathMethod consults the dependent's RUNPATH.
	RunPathMethod
	// LDLibraryPathMethod consults the LD_LIBRARY_PATH environment variable.
	LDLibraryPathMethod
	// LDConfigMethod consults a ld.so.conf-style file at Path.
	LDConfigMethod
	// FixedMethod contributes Path verbatim.
	FixedMethod
)

// SearchMethod is one step of the ordered search-strategy list a caller
// supplies to the walker. RPath/RunPath/LDLibraryPath are context
// sensitive (depend on the dependent ELF being resolved); LDConfig and
// Fixed are static and carry a Path.
type SearchMethod struct {
	Kind MethodKind
	Path string
}

// RPath returns the RPath search method.
func RPath() SearchMethod { return SearchMethod{Kind: RPathMethod} }

// RunPath returns the RunPath search method.
func RunPath() SearchMethod { return SearchMethod{Kind: RunPathMethod} }

// LDLibraryPath returns the LD_LIBRARY_PATH search method.
func LDLibraryPath() SearchMethod { return SearchMethod{Kind: LDLibraryPathMethod} }

// LDConfig returns a search method that consults the ld.so.conf-style file at path.
func LDConfig(path string) SearchMethod { return SearchMethod{Kind: LDConfigMethod, Path: path} }

// Fixed returns a search method that contributes path verbatim.
func Fixed(path string) SearchMethod { return SearchMethod{Kind: FixedMethod, Path: path} }

const ldConfigTokenPrefix = "ldconfig:"

// ParseSearchMethod round-trips the token table used by the CLI
// front-end: "rpath", "runpath", "ld_library_path", "ldconfig:<path>", or
// any other string taken as a Fixed(path).
func ParseSearchMethod(token string) SearchMethod {
	switch token {
	case "rpath":
		return RPath()
	case "runpath":
		return RunPath()
	case "ld_library_path":
		return LDLibraryPath()
	}
	if strings.HasPrefix(token, ldConfigTokenPrefix) {
		return LDConfig(token[len(ldConfigTokenPrefix):])
	}
	return Fixed(token)
}

// Location is one (directory, origin-tag) pair in a LibraryLocations
// sequence. Origin is one of "rpath", "runpath", "LD_LIBRARY_PATH",
// "ldconfig", "fixed", kept verbatim for diagnostics.
type Location struct {
	Dir    string
	Origin string
}

// Locations is an ordered, first-hit sequence of search directories.
type Locations []Location

// TryFind probes each directory in order and returns the first dir/name
// that names an existing filesystem entry. Existence is checked here, not
// at list-build time, since the list is built once per dependent but may
// be probed against several NEEDED names.
func (locs Locations) TryFind(name string) (string, bool) {
	for _, loc := range locs {
		candidate := filepath.Join(loc.Dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// BuildLocations walks methods in order, producing the LibraryLocations
// for a dependent resolved at depPath with dynamic info info. $ORIGIN in
// RPATH/RUNPATH segments is replaced with depPath's parent directory (or
// "/" if that directory is the root or depPath has no parent at all).
// LD_LIBRARY_PATH is read from the environment via lookupEnv, split on raw
// bytes -- a Go string already carries arbitrary bytes, so splitting it
// with strings.Split needs no separate byte-slice path.
func BuildLocations(depPath string, info DynInfo, methods []SearchMethod, lookupEnv func(string) (string, bool)) (Locations, error) {
	origin := filepath.Dir(depPath)
	if origin == "." {
		origin = "/"
	}

	var locs Locations
	for _, m := range methods {
		switch m.Kind {
		case RPathMethod:
			for _, p := range info.RPath {
				locs = append(locs, Location{Dir: strings.ReplaceAll(p, "$ORIGIN", origin), Origin: "rpath"})
			}
		case RunPathMethod:
			for _, p := range info.RunPath {
				locs = append(locs, Location{Dir: strings.ReplaceAll(p, "$ORIGIN", origin), Origin: "runpath"})
			}
		case LDLibraryPathMethod:
			if v, ok := lookupEnv("LD_LIBRARY_PATH"); ok {
				for _, p := range strings.Split(v, ":") {
					locs = append(locs, Location{Dir: p, Origin: "LD_LIBRARY_PATH"})
				}
			}
		case LDConfigMethod:
			confLocs, err := ReadLoaderConfig(m.Path)
			if err != nil {
				return nil, err
			}
			locs = append(locs, confLocs...)
		case FixedMethod:
			locs = append(locs, Location{Dir: m.Path, Origin: "fixed"})
		}
	}
	return locs, nil
}
