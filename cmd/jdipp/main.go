// Command jdipp drives the JustDefineIt lexer core from the command
// line: preprocess a C++ translation unit and either emit its token
// stream as text (-E) or list the macros left defined at end of file
// (--dump-macros).
//
// Grounded on cmd/ralph-cc/main.go's cobra root-command construction and
// flag set (-I/--include, --isystem, -D/--define, -U/--undefine,
// -E/--preprocess carried over directly; --dump-macros and --config
// added per spec §4.G).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fundies/JustDefineIt/pkg/preprocess"
)

var (
	includeDirs []string
	systemDirs  []string
	defines     []string
	undefines   []string
	preprocessOnly bool
	dumpMacros     bool
	configPath     string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jdipp [file]",
		Short: "Preprocess a C++ translation unit",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreprocess,
	}

	cmd.Flags().StringArrayVarP(&includeDirs, "include", "I", nil, "add a quoted-include search directory")
	cmd.Flags().StringArrayVar(&systemDirs, "isystem", nil, "add a system (angled-include) search directory")
	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "define NAME or NAME=VALUE before preprocessing")
	cmd.Flags().StringArrayVarP(&undefines, "undefine", "U", nil, "undefine NAME before preprocessing")
	cmd.Flags().BoolVarP(&preprocessOnly, "preprocess", "E", false, "emit the preprocessed token stream as text")
	cmd.Flags().BoolVar(&dumpMacros, "dump-macros", false, "list every macro defined at end of file")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a Built-in Context YAML config file")

	return cmd
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	opts := preprocess.Options{
		IncludePaths: includeDirs,
		SystemPaths:  systemDirs,
		Defines:      defines,
		Undefines:    undefines,
		ConfigPath:   configPath,
	}

	result, err := preprocess.Run(args[0], opts, os.Stderr)
	if err != nil {
		return err
	}

	if dumpMacros {
		for _, name := range result.Macros.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	}
	if preprocessOnly || !dumpMacros {
		fmt.Fprint(cmd.OutOrStdout(), preprocess.Render(result.Tokens))
	}

	if n := result.Diagnostics.ErrorCount(); n > 0 {
		return fmt.Errorf("%d error(s)", n)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
