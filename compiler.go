// Package compiler is the public facade over the bot compiler pipeline: a
// pure function from a declarative bot definition plus tenant policy to a
// flat, runnable ExecutionPlan (spec.md §1-§2). Runtime execution of the
// resulting plan, config-expression resolution, and plan persistence are
// out of scope — see DESIGN.md.
package compiler

import (
	internalcompiler "github.com/relaybot/compiler/internal/application/compiler"
	"github.com/relaybot/compiler/internal/domain"
)

// Re-exported domain types a caller needs to build inputs for Compile or
// interpret its outputs, without reaching into internal/domain directly.
type (
	DSLRoot          = domain.DSLRoot
	DSLNode          = domain.DSLNode
	BotMeta          = domain.BotMeta
	NodeManifest     = domain.NodeManifest
	ManifestRegistry = domain.ManifestRegistry
	PolicyPack       = domain.PolicyPack
	ExecutionPlan    = domain.ExecutionPlan
	RunMeta          = domain.RunMeta
)

// CompileOptions and CompileResult are re-exported unchanged from the
// internal compiler package; see its doc comments for field semantics.
type (
	CompileOptions = internalcompiler.CompileOptions
	CompileResult  = internalcompiler.CompileResult
)

// Compile runs the full eight-step compile pipeline (spec.md §4.7) over
// dsl, returning the compiled plan, its deterministic hash, and every
// warning collected along the way.
func Compile(dsl DSLRoot, opts CompileOptions) (CompileResult, error) {
	return internalcompiler.Compile(dsl, opts)
}

// BuildCFG, PropagateClassification, EvaluatePolicies, CompileExecutionPlan,
// ValidateExecutionPlan, HashExecutionPlan, SerializeExecutionPlan, and
// DeserializeExecutionPlan are re-exported individually so a caller (or a
// test) can exercise a single pipeline stage without running the whole
// compile (spec.md §6).
var (
	BuildCFG                 = internalcompiler.BuildCFG
	PropagateClassification  = internalcompiler.PropagateClassification
	EvaluatePolicies         = internalcompiler.EvaluatePolicies
	CompileExecutionPlan     = internalcompiler.CompileExecutionPlan
	ValidateExecutionPlan    = internalcompiler.ValidateExecutionPlan
	HashExecutionPlan        = internalcompiler.HashExecutionPlan
	SerializeExecutionPlan   = internalcompiler.SerializeExecutionPlan
	DeserializeExecutionPlan = internalcompiler.DeserializeExecutionPlan
)
