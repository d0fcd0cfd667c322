package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const includeDirectivePrefix = "include "

// ReadLoaderConfig parses a ld.so.conf-style file: one directive per
// line, blank lines and lines starting with "#" ignored, "include <glob>"
// recursively expanded and parsed, everything else treated as a bare
// directory path tagged "ldconfig". Failing to open an included file or
// to expand its glob is fatal to the analysis. Expansion uses stdlib
// filepath.Glob rather than a third-party pattern-matching library since
// the glob here is always a plain filesystem path pattern, exactly what
// filepath.Glob already handles.
func ReadLoaderConfig(path string) (Locations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dynlink: reading loader config %s", path)
	}
	defer f.Close()

	var locs Locations
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, includeDirectivePrefix) {
			pattern := strings.TrimSpace(line[len(includeDirectivePrefix):])
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(filepath.Dir(path), pattern)
			}
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, errors.Wrapf(err, "dynlink: expanding include %q in %s", pattern, path)
			}
			for _, match := range matches {
				included, err := ReadLoaderConfig(match)
				if err != nil {
					return nil, err
				}
				locs = append(locs, included...)
			}
			continue
		}

		locs = append(locs, Location{Dir: line, Origin: "ldconfig"})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "dynlink: reading loader config %s", path)
	}

	return locs, nil
}
