package main

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/vorteil/linkcheck/pkg/dynlink"
)

// demangle pretty-prints a linker symbol name before it's shown in a text
// report. It defaults to the identity function: no C++/Rust demangler is
// wired in, since none is available among this repo's dependencies: a
// caller embedding this package can replace it with one.
var demangle = func(name string) string { return name }

func renderReport(cmd *cobra.Command, r report) error {
	switch flagFormat {
	case "", "text":
		renderText(cmd, r)
		return nil
	case "json":
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshaling report as json")
		}
		cmd.Println(string(out))
		return nil
	case "yaml":
		out, err := yaml.Marshal(r)
		if err != nil {
			return errors.Wrap(err, "marshaling report as yaml")
		}
		cmd.Print(string(out))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (try one of: text, json, yaml)", flagFormat)
	}
}

func renderText(cmd *cobra.Command, r report) {
	cmd.Printf("linkcheck report for %s\n", r.Target)

	if len(r.LibraryProblems) > 0 {
		cmd.Println("\nlibrary resolution problems:")
		for _, p := range r.LibraryProblems {
			cmd.Printf("  %s\n", p)
		}
	}

	printGroups(cmd, "unresolved symbols", r.UnresolvedSymbols)
	printGroups(cmd, "duplicate exports", r.DuplicateExports)
}

func printGroups(cmd *cobra.Command, title string, groups []dynlink.Group) {
	if len(groups) == 0 {
		return
	}
	cmd.Printf("\n%s:\n", title)
	for _, g := range groups {
		cmd.Printf("  [%s]\n", joinLibs(g))
		for _, sym := range g.Symbols {
			cmd.Printf("    %s\n", demangle(sym))
		}
	}
}

func joinLibs(g dynlink.Group) string {
	out := ""
	for i, lib := range g.Libs {
		if i > 0 {
			out += ", "
		}
		out += lib
	}
	return out
}
