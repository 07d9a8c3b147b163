// Command compile is the CLI front-end over the bot compiler library: it
// loads a DSL, a manifest directory, and a policy pack from disk, invokes
// compiler.Compile, and renders the resulting plan or diagnostics
// (spec.md §6, "ADDED — CLI surface").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "compile",
		Short: "Compile a declarative bot definition into a runnable execution plan",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a compiler.toml config file")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newWatchCmd(&configPath))
	root.AddCommand(newPackCmd())
	return root
}
