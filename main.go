// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Command whey builds Python distribution artifacts (sdists and wheels) from
// a pyproject.toml-only project tree.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wheylab/whey/pkg/cliutil"
)

var argparser = &cobra.Command{
	Use:   "whey [flags] [PROJECT]",
	Short: "A simple Python wheel builder",
	Long: "Build Python distribution artifacts for the project in PROJECT " +
		"(default: the current directory), reading all metadata from its " +
		"pyproject.toml.  With no artifact flags, both an sdist and a wheel " +
		"are built.",

	Args: cliutil.WrapPositionalArgs(cobra.MaximumNArgs(1)),
	RunE: runBuild,

	SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
	SilenceUsage:  true, // our FlagErrorFunc will handle it
}

var logger = logrus.New()

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	// Accept the underscore spellings (--out_dir) that Python-side callers
	// tend to produce.
	argparser.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	argparser.PersistentFlags().BoolP("verbose", "v", false,
		"Report each file as it is added to an archive")
	argparser.PersistentFlags().BoolP("traceback", "T", false,
		"Emit full error context on failures")
	argparser.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger.SetLevel(logrus.InfoLevel)
		}
	}
}

func tracebackEnabled() bool {
	if traceback, err := argparser.PersistentFlags().GetBool("traceback"); err == nil && traceback {
		return true
	}
	return os.Getenv("WHEY_TRACEBACK") != ""
}

func main() {
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	logger.SetLevel(logrus.WarnLevel)
	ctx := dlog.WithLogger(context.Background(), dlog.WrapLogrus(logger))

	if err := argparser.ExecuteContext(ctx); err != nil {
		if tracebackEnabled() {
			fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %+v\n", argparser.CommandPath(), err)
		} else {
			fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		}
		os.Exit(1)
	}
}
