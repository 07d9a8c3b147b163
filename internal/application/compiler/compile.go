package compiler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/relaybot/compiler/internal/domain"
)

// CompileOptions carries everything Compile needs beyond the bot's own DSL
// (spec.md §4.7).
type CompileOptions struct {
	Run            domain.RunMeta
	Registry       *domain.ManifestRegistry
	Policy         domain.PolicyPack
	Logger         zerolog.Logger
	FailOnWarnings bool
}

// CompileResult is the full output of a compile: the plan (nil if
// compilation failed structurally, was blocked, or was failed on warnings),
// its deterministic hash, and every warning collected across the pipeline
// (spec.md §4.7, §6).
type CompileResult struct {
	Plan             *domain.ExecutionPlan
	PlanHash         string
	Warnings         []string
	Blocked          bool
	FailedOnWarnings bool
}

// Success reports false when a policy block fired or when compilation
// stopped with an error before producing a plan (for example an AI-config
// error). A result that failed only because of failOnWarnings still
// reports true (testable property 8, spec.md §8: blocks decide success,
// independent of any caller-side failOnWarnings policy).
func (r CompileResult) Success() bool {
	return !r.Blocked && (r.Plan != nil || r.FailedOnWarnings)
}

// Compile runs the full eight-step pipeline (spec.md §4.7):
//  1. AI-config validation (errors abort immediately)
//  2. CFG construction
//  3. First classification propagation pass
//  4. Policy evaluation
//  5. If any block fired, abort with no plan
//  6. Second classification propagation pass, now aware of injected TRANSFORM controls
//  7. Plan compilation
//  8. Plan hashing
//
// A panic surfacing from any stage (a programming defect rather than a
// structural or policy finding) is recovered here and reported as a
// StructuralError, so a caller only ever has to handle one error type.
func Compile(dsl domain.DSLRoot, opts CompileOptions) (result CompileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewStructuralError(fmt.Sprintf("Compilation failed: %v", r), nil)
		}
	}()

	log := opts.Logger

	aiIssues := ValidateAIConfig(dsl)
	result.Warnings = append(result.Warnings, aiIssues.Warnings...)
	if aiIssues.HasErrors() {
		log.Error().Strs("errors", aiIssues.Errors).Msg("ai-config validation failed")
		return result, domain.NewStructuralError(fmt.Sprintf("ai-config validation failed: %v", aiIssues.Errors), nil)
	}

	cfg, err := BuildCFG(dsl)
	if err != nil {
		return result, domain.NewStructuralError("cfg construction failed", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = domain.NewManifestRegistry(nil)
	}

	firstPass := PropagateClassification(cfg, registry, nil)
	result.Warnings = append(result.Warnings, firstPass.Warnings...)

	policyResult := EvaluatePolicies(cfg, registry, firstPass.ByNode, opts.Policy)
	blockedByPolicy := policyResult.ShouldBlockCompilation()
	warningsSoFar := len(result.Warnings) + len(policyResult.Warnings)
	failedOnWarnings := opts.FailOnWarnings && warningsSoFar > 0 && !blockedByPolicy
	if blockedByPolicy || failedOnWarnings {
		log.Warn().Int("blocks", len(policyResult.Blocks)).Bool("failedOnWarnings", failedOnWarnings).Msg("compilation blocked")
		result.Blocked = blockedByPolicy
		result.FailedOnWarnings = failedOnWarnings
		for _, b := range policyResult.Blocks {
			result.Warnings = append(result.Warnings, b.String())
		}
		for _, w := range policyResult.Warnings {
			result.Warnings = append(result.Warnings, w.String())
		}
		return result, nil
	}

	secondPass := PropagateClassification(cfg, registry, policyResult.RequiresControls)
	result.Warnings = append(result.Warnings, secondPass.Warnings...)
	for _, w := range policyResult.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	plan, err := CompileExecutionPlan(dsl, cfg, registry, secondPass, policyResult, opts.Run)
	if err != nil {
		return result, err
	}

	hash, err := HashExecutionPlan(plan)
	if err != nil {
		return result, domain.NewStructuralError("plan hashing failed", err)
	}

	result.Plan = &plan
	result.PlanHash = hash
	log.Info().Str("planHash", hash).Int("steps", len(plan.Steps)).Msg("compile succeeded")
	return result, nil
}
