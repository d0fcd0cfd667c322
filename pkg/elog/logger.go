package elog

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is an interface that has the ability to hide debug/info output
// behind verbosity flags, used by the core walker and the CLI driver so
// that the core walker does not depend on logrus directly.
type Logger interface {
	Debugf(format string, x ...interface{})
	Errorf(format string, x ...interface{})
	Infof(format string, x ...interface{})
	Printf(format string, x ...interface{})
	Warnf(format string, x ...interface{})
	IsInfoEnabled() bool
	IsDebugEnabled() bool
}

// View is the logging surface passed around the repo. It is just Logger
// today; kept as its own name so call sites don't need to change if a
// reporting facility (e.g. progress bars) is reintroduced later.
type View interface {
	Logger
}

// CLI is a Logger implementation that writes colorized, level-gated
// output to the terminal via logrus.
type CLI struct {
	DisableColors bool
	IsDebug       bool
	IsVerbose     bool
}

// Debugf executes logrus.Tracef if debug is enabled.
func (log *CLI) Debugf(format string, x ...interface{}) {
	if log.IsDebug {
		logrus.Tracef(format, x...)
	}
}

// Errorf executes logrus.Errorf.
func (log *CLI) Errorf(format string, x ...interface{}) {
	logrus.Errorf(format, x...)
}

// Infof executes logrus.Debugf only if verbose is enabled.
func (log *CLI) Infof(format string, x ...interface{}) {
	if log.IsVerbose {
		logrus.Debugf(format, x...)
	}
}

// Printf executes logrus.Printf.
func (log *CLI) Printf(format string, x ...interface{}) {
	logrus.Printf(format, x...)
}

// Warnf executes logrus.Warnf.
func (log *CLI) Warnf(format string, x ...interface{}) {
	logrus.Warnf(format, x...)
}

// IsInfoEnabled returns whether InfoLevel logging is enabled.
func (log *CLI) IsInfoEnabled() bool {
	return logrus.IsLevelEnabled(logrus.InfoLevel)
}

// IsDebugEnabled returns whether DebugLevel logging is enabled.
func (log *CLI) IsDebugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}

// Format formats a logrus entry for terminal use.
func (log *CLI) Format(entry *logrus.Entry) ([]byte, error) {
	faint := color.New(color.Faint).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	x := entry.Message
	if !log.DisableColors {
		switch entry.Level {
		case logrus.TraceLevel:
			x = fmt.Sprintf("%s\n", faint(x))
		case logrus.DebugLevel:
			x = fmt.Sprintf("%s\n", blue(x))
		case logrus.InfoLevel:
			x = fmt.Sprintf("%s\n", x)
		case logrus.WarnLevel:
			x = fmt.Sprintf("%s\n", yellow(x))
		case logrus.ErrorLevel:
			x = fmt.Sprintf("%s\n", red(x))
		default:
		}
	} else {
		x = fmt.Sprintf("%s\n", x)
	}

	return []byte(x), nil
}
