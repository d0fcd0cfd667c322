package main

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vorteil/linkcheck/pkg/elog"
)

var log elog.View

var (
	flagVerbose    bool
	flagDebug      bool
	flagJSON       bool
	flagFormat     string
	flagSearch     []string
	flagUnresolved bool
	flagDuplicates bool
	flagResolution bool
	flagFull       bool
	flagConfig     string
)

const configFileName = "linkcheck.yaml"

func initConfig() {
	if flagConfig != "" {
		viper.SetConfigFile(flagConfig)
	} else if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(configFileName)
	}
	viper.SetEnvPrefix("linkcheck")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	}

	if viper.IsSet("search") && len(flagSearch) == 0 {
		flagSearch = viper.GetStringSlice("search")
	}
}

var rootCmd = &cobra.Command{
	Use:   "linkcheck [FILE]",
	Short: "Simulate the GNU ld.so library resolution walk over an ELF file",
	Long: `linkcheck reproduces the dynamic linker's library search and dependency
walk for a given ELF executable or shared object, without loading or
executing it, and reports libraries the loader would fail to find,
symbols referenced but never defined anywhere in the closure, and
symbols exported by more than one resolved library that some library in
the closure also imports.`,
	Args: cobra.ExactArgs(1),
	RunE: runLinkcheck,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "enable json logging output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a linkcheck config file")

	f := rootCmd.Flags()
	f.StringArrayVarP(&flagSearch, "lib", "l", nil,
		`library search method, repeatable and tried in order; one of "rpath",
"runpath", "ld_library_path", "ldconfig:<path>", or a fixed directory`)
	f.BoolVarP(&flagUnresolved, "unresolved-symbols", "u", false, "report symbols referenced but never defined")
	f.BoolVarP(&flagDuplicates, "duplicate-symbols", "d", false, "report imported symbols exported by more than one library")
	f.BoolVarP(&flagResolution, "lib-resolution", "r", false, "report libraries the loader would fail to locate")
	f.BoolVarP(&flagFull, "full", "f", false, "report everything (default if none of -u, -d, -r are given)")
	f.StringVar(&flagFormat, "format", "text", "output format: text, json, or yaml")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{}
		if flagJSON {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logrus.SetFormatter(logger)
		}
		logrus.SetLevel(logrus.TraceLevel)
		if flagDebug {
			logger.IsDebug = true
			logger.IsVerbose = true
		} else if flagVerbose {
			logger.IsVerbose = true
		}
		log = logger
		initConfig()
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
