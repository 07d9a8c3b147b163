package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/relaybot/compiler/internal/application/policypacks"
)

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Inspect builtin policy packs",
	}
	cmd.AddCommand(newPackShowCmd())
	cmd.AddCommand(newPackListCmd())
	return cmd
}

func newPackShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a builtin policy pack as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := policypacks.NewRegistry(0).Resolve(args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(pack, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newPackListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List builtin policy pack ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := policypacks.NewRegistry(0).Names()
			sort.Strings(names)
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}
