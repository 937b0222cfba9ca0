// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/wheylab/whey/pkg/cliutil"
	"github.com/wheylab/whey/pkg/foreman"
)

func init() {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [flags] [PROJECT]",
		Short: "Show the resolved project configuration",
		Long: "Load the project's pyproject.toml, apply defaults, and synthesize the " +
			"dynamic fields, then print the result.  Useful for checking what a " +
			"build would see without building anything.",
		Args: cliutil.WrapPositionalArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			projectDir := "."
			if len(args) == 1 {
				projectDir = args[0]
			}
			f, err := foreman.New(ctx, projectDir)
			if err != nil {
				return err
			}

			var out []byte
			if asJSON {
				out, err = json.MarshalIndent(f.Config, "", "  ")
				out = append(out, '\n')
			} else {
				out, err = yaml.Marshal(f.Config)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of YAML")
	argparser.AddCommand(cmd)
}
