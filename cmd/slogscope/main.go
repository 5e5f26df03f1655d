// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command slogscope merges, validates, and exercises slogscope logging
// configurations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pjscruggs/slogscope"
	"github.com/pjscruggs/slogscope/tree"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	env bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "slogscope",
		Short: "Merge, validate, and try slogscope logging configurations",
		Long: `slogscope works with the YAML logging configurations read by the
slogscope library. Sources are merged left to right: later files override
scalar settings of earlier ones and nested sections merge key by key.`,
		Version:       slogscope.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&flags.env, "env", false, "also read SLOGSCOPE_* environment variables")

	root.AddCommand(newMergeCmd(flags), newCheckCmd(flags), newEmitCmd(flags), newVersionCmd())
	return root
}

func newMergeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source>...",
		Short: "Print the merged configuration document",
		Long: `Merge the given configuration files and print the resulting document
as YAML. Handlers are compiled but no log file is opened.

Examples:
  slogscope merge base.yml production.yml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd, flags, true, args)
			if err != nil {
				return err
			}
			defer m.Close()

			out, err := tree.Marshal(m.Current())
			if err != nil {
				return fmt.Errorf("render document: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <source>...",
		Short: "Validate configuration files",
		Long: `Merge the given configuration files and report whether the result is
accepted by the logging runtime. The exit status is non-zero on failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd, flags, true, args)
			if err != nil {
				return err
			}
			defer m.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d source(s)\n", len(args))
			return nil
		},
	}
}

func newEmitCmd(flags *rootFlags) *cobra.Command {
	var (
		configs []string
		scope   string
		level   string
	)
	cmd := &cobra.Command{
		Use:   "emit <message> [key=value]...",
		Short: "Emit one record through a configuration",
		Long: `Emit a single record through the loggers and handlers of the given
configuration, to see where and how it is written.

Examples:
  slogscope emit -c logging.yml -s app.db -l DEBUG "connected" host=db1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := slogscope.ParseLevel(level)
			if err != nil {
				return err
			}
			attrs, err := parseFields(args[1:])
			if err != nil {
				return err
			}

			m, err := newManager(cmd, flags, false, configs)
			if err != nil {
				return err
			}
			defer m.Close()

			m.Logger(scope).Log(context.Background(), lvl.Level(), args[0], attrs...)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&configs, "config", "c", nil, "configuration source, repeatable")
	cmd.Flags().StringVarP(&scope, "scope", "s", "root", "logger scope")
	cmd.Flags().StringVarP(&level, "level", "l", "INFO", "record level")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), slogscope.GetVersion())
		},
	}
}

// newManager builds a Manager writing to the command's streams with the
// given sources merged.
func newManager(cmd *cobra.Command, flags *rootFlags, dryRun bool, sources []string) (*slogscope.Manager, error) {
	opts := []slogscope.Option{
		slogscope.WithStdout(cmd.OutOrStdout()),
		slogscope.WithStderr(cmd.ErrOrStderr()),
		slogscope.WithDryRun(dryRun),
	}
	if flags.env {
		opts = append(opts, slogscope.WithEnv())
	}
	srcs := make([]slogscope.Source, 0, len(sources))
	for _, s := range sources {
		if s == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			srcs = append(srcs, slogscope.YAML{Name: "stdin", Data: data})
			continue
		}
		srcs = append(srcs, slogscope.Path(s))
	}
	opts = append(opts, slogscope.WithSources(srcs...))
	return slogscope.NewManager(opts...)
}

// parseFields turns key=value arguments into record attributes.
func parseFields(args []string) ([]any, error) {
	attrs := make([]any, 0, 2*len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("field %q: want key=value", arg)
		}
		attrs = append(attrs, key, value)
	}
	return attrs, nil
}
