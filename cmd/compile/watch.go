package main

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd(configPath *string) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run compile on every change to the bot definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchAndCompile(*configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dslPath, "dsl", "", "path to the bot definition document (required)")
	cmd.Flags().StringVar(&opts.manifestsDir, "manifests", "", "directory of node manifest documents")
	cmd.Flags().StringVar(&opts.policyRef, "policy", "", "path to a policy pack document, or a builtin pack name")
	cmd.MarkFlagRequired("dsl") //nolint:errcheck

	return cmd
}

// watchAndCompile runs an initial compile, then re-runs on every fsnotify
// write event for opts.dslPath until the process is interrupted (spec.md
// §6 — dev tooling only; it does not change compiler semantics).
func watchAndCompile(configPath string, opts runOptions) error {
	if err := runCompile(configPath, opts); err != nil {
		fmt.Fprintln(os.Stderr, "compile:", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(opts.dslPath); err != nil {
		return fmt.Errorf("watching %s: %w", opts.dslPath, err)
	}

	fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", opts.dslPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Fprintln(os.Stderr, "---")
			if err := runCompile(configPath, opts); err != nil {
				fmt.Fprintln(os.Stderr, "compile:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}
