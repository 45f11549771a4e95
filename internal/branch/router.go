// Package branch resolves fork branch routing and computes coalesce merge
// schemas. A fork duplicates a row across named branches; each branch
// either feeds its coalesce directly (identity binding) or first flows
// through a chain of ordinary transforms ending at the connection the
// coalesce consumes. All resolution happens at build time, on the
// definition model, before any node exists.
package branch

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/node"
)

// Chain is one resolved branch: the stages between the fork and the
// coalesce, in flow order. Empty for identity branches.
type Chain struct {
	Branch string
	// Connection is the stage whose output the coalesce consumes; empty
	// for identity branches.
	Connection string
	// Stages is the per-branch transform chain, first node first.
	Stages []*config.Stage
}

// First returns the stage name a forked row routes into: the first chain
// stage, or the coalesce itself for identity branches.
func (c *Chain) First(coalesceName string) string {
	if len(c.Stages) == 0 {
		return coalesceName
	}
	return c.Stages[0].Name
}

// ResolveChains resolves every branch of a fork gate against the pipeline
// definition. Chains must consist of ordinary transforms: an aggregation
// breaks the one-row-per-branch identity and a nested fork is unscoped,
// so both are rejected.
func ResolveChains(p *config.Pipeline, fork *config.Stage, coalesce *config.Stage) ([]*Chain, error) {
	if fork.Branches == nil {
		return nil, fmt.Errorf("fork gate %q declares no branches", fork.Name)
	}
	if err := fork.Branches.Validate(); err != nil {
		return nil, fmt.Errorf("fork gate %q: %w", fork.Name, err)
	}

	chains := make([]*Chain, 0, len(fork.Branches.Order))
	for _, branchName := range fork.Branches.Order {
		binding := fork.Branches.Bindings[branchName]
		if binding == branchName {
			if _, shadowed := p.Stage(branchName); !shadowed {
				// Identity binding: the branch feeds the coalesce directly.
				chains = append(chains, &Chain{Branch: branchName})
				continue
			}
		}
		chain, err := walkChain(p, fork, branchName, binding)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}
	return chains, nil
}

// walkChain follows Input references backward from the connection stage
// until it reaches the fork, then reverses into flow order.
func walkChain(p *config.Pipeline, fork *config.Stage, branchName, connection string) (*Chain, error) {
	var reversed []*config.Stage
	current := connection
	for {
		stage, ok := p.Stage(current)
		if !ok {
			return nil, fmt.Errorf("branch %q of fork %q: connection %q does not resolve to a declared stage", branchName, fork.Name, current)
		}
		if stage.Kind == "aggregation" {
			return nil, fmt.Errorf("branch %q of fork %q: chain contains aggregation %q, which breaks one-row-per-branch identity", branchName, fork.Name, stage.Name)
		}
		if stage.Kind == "gate" && stage.Branches != nil {
			return nil, fmt.Errorf("branch %q of fork %q: chain contains nested fork %q", branchName, fork.Name, stage.Name)
		}
		if stage.Kind != "transform" {
			return nil, fmt.Errorf("branch %q of fork %q: chain stage %q is a %s, expected transform", branchName, fork.Name, stage.Name, stage.Kind)
		}
		reversed = append(reversed, stage)
		if stage.Input == fork.Name {
			break
		}
		if stage.Input == "" {
			return nil, fmt.Errorf("branch %q of fork %q: chain stage %q has no input and never reaches the fork", branchName, fork.Name, stage.Name)
		}
		if len(reversed) > len(p.Stages) {
			return nil, fmt.Errorf("branch %q of fork %q: chain does not terminate", branchName, fork.Name)
		}
		current = stage.Input
	}

	stages := make([]*config.Stage, len(reversed))
	for i, s := range reversed {
		stages[len(reversed)-1-i] = s
	}
	return &Chain{Branch: branchName, Connection: connection, Stages: stages}, nil
}

// MergeSchema computes the coalesce output contract from the branches'
// effective schemas, once, at build time. Union folds the branch schemas
// through the contract merge algebra in branch-declaration order; nested
// produces one branch-named field per branch with no cross-branch type
// constraint; select adopts the designated branch's schema unchanged.
func MergeSchema(cfg *node.CoalesceConfig, schemas map[string]*contract.Contract) (*contract.Contract, error) {
	switch cfg.Strategy {
	case node.StrategyUnion:
		var merged *contract.Contract
		for _, branchName := range cfg.Branches {
			schema := schemas[branchName]
			if schema == nil {
				// A dynamic branch contributes nothing the union can
				// declare; the result stays dynamic.
				return nil, nil
			}
			if merged == nil {
				merged = schema
				continue
			}
			next, err := merged.Merge(schema)
			if err != nil {
				return nil, fmt.Errorf("coalesce %q: %w", cfg.Name, err)
			}
			merged = next
		}
		return merged, nil

	case node.StrategyNested:
		fields := make([]contract.Field, 0, len(cfg.Branches))
		for _, branchName := range cfg.Branches {
			fields = append(fields, contract.Field{
				NormalizedName: branchName,
				OriginalName:   branchName,
				Type:           contract.TypeUnknown,
				Required:       cfg.Policy == node.PolicyRequireAll,
				Source:         contract.SourceDeclared,
			})
		}
		return contract.New(contract.ModeFixed, fields...)

	case node.StrategySelect:
		if !contains(cfg.Branches, cfg.Select) {
			return nil, fmt.Errorf("coalesce %q: select strategy names unknown branch %q", cfg.Name, cfg.Select)
		}
		return schemas[cfg.Select], nil

	default:
		return nil, fmt.Errorf("coalesce %q: unhandled merge strategy %s", cfg.Name, cfg.Strategy)
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
