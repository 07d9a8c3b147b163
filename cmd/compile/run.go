package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	rootcompiler "github.com/relaybot/compiler/internal/application/compiler"
	"github.com/relaybot/compiler/internal/application/policypacks"
	"github.com/relaybot/compiler/internal/domain"
	"github.com/relaybot/compiler/internal/infrastructure/config"
	"github.com/relaybot/compiler/internal/infrastructure/docs"
	"github.com/relaybot/compiler/internal/infrastructure/logger"
)

type runOptions struct {
	dslPath        string
	manifestsDir   string
	policyRef      string
	failOnWarnings bool
	outPath        string
}

func newRunCmd(configPath *string) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile a bot definition and print its execution plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(*configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dslPath, "dsl", "", "path to the bot definition document (required)")
	cmd.Flags().StringVar(&opts.manifestsDir, "manifests", "", "directory of node manifest documents")
	cmd.Flags().StringVar(&opts.policyRef, "policy", "", "path to a policy pack document, or a builtin pack name")
	cmd.Flags().BoolVar(&opts.failOnWarnings, "fail-on-warnings", false, "exit non-zero if any warning was collected")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "write the plan JSON here instead of stdout")
	cmd.MarkFlagRequired("dsl") //nolint:errcheck

	return cmd
}

func runCompile(configPath string, opts runOptions) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level)

	dsl, err := docs.LoadDSL(opts.dslPath)
	if err != nil {
		return fmt.Errorf("loading dsl: %w", err)
	}

	registry := domain.NewManifestRegistry(nil)
	if opts.manifestsDir != "" {
		registry, err = docs.LoadManifests(opts.manifestsDir)
		if err != nil {
			return fmt.Errorf("loading manifests: %w", err)
		}
	}

	pack, err := resolvePolicyPack(opts.policyRef)
	if err != nil {
		return fmt.Errorf("loading policy pack: %w", err)
	}

	failOnWarnings := opts.failOnWarnings || cfg.Compile.FailOnWarnings
	result, err := rootcompiler.Compile(dsl, rootcompiler.CompileOptions{
		Run: domain.RunMeta{
			RunID:      uuid.NewString(),
			TenantID:   pack.TenantID,
			BotID:      dsl.Bot.ID,
			BotVersion: dsl.Version,
			StartedAt:  time.Now(),
		},
		Registry:       registry,
		Policy:         pack,
		Logger:         log,
		FailOnWarnings: failOnWarnings,
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if result.Blocked {
		return fmt.Errorf("compilation blocked")
	}
	if result.FailedOnWarnings {
		return fmt.Errorf("compilation produced %d warning(s) and --fail-on-warnings is set", len(result.Warnings))
	}

	out, err := rootcompiler.SerializeExecutionPlan(*result.Plan)
	if err != nil {
		return err
	}

	if opts.outPath == "" {
		fmt.Println(string(out))
		return nil
	}
	return os.WriteFile(opts.outPath, out, 0o644)
}

// packRegistry is shared by every compile in this process, so `watch`
// re-runs reuse the cached builtin packs.
var packRegistry = policypacks.NewRegistry(0)

func resolvePolicyPack(ref string) (domain.PolicyPack, error) {
	if ref == "" {
		return packRegistry.Resolve("hipaa")
	}
	if _, err := os.Stat(ref); err == nil {
		return docs.LoadPolicyPack(ref)
	}
	return packRegistry.Resolve(ref)
}
