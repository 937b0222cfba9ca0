// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wheylab/whey/pkg/foreman"
)

func init() {
	argparser.Flags().BoolP("sdist", "s", false, "Build a source distribution")
	argparser.Flags().BoolP("wheel", "w", false, "Build a wheel")
	argparser.Flags().BoolP("binary", "b", false,
		"Build a binary artifact with the configured binary builder")
	argparser.Flags().StringP("out-dir", "o", "",
		"Output `DIR`ectory (default: PROJECT/dist)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}

	f, err := foreman.New(ctx, projectDir)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = filepath.Join(f.Config.ProjectDir, "dist")
	}

	sdist, _ := cmd.Flags().GetBool("sdist")
	wheel, _ := cmd.Flags().GetBool("wheel")
	binary, _ := cmd.Flags().GetBool("binary")
	if !sdist && !wheel && !binary {
		sdist, wheel = true, true
	}

	if sdist {
		filename, err := f.BuildSdist(ctx, outDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outDir, filename))
	}
	if wheel {
		filename, err := f.BuildWheel(ctx, outDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outDir, filename))
	}
	if binary {
		filename, err := f.BuildBinary(ctx, outDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outDir, filename))
	}

	return nil
}
