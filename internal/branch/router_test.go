package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/contract"
	"github.com/vk/flowgridgo/internal/node"
)

func forkPipeline(extra ...*config.Stage) (*config.Pipeline, *config.Stage, *config.Stage) {
	fork := &config.Stage{
		Kind:  "gate",
		Name:  "split",
		Input: "seed",
		Branches: &config.Branches{
			Order:    []string{"raw", "enriched"},
			Bindings: map[string]string{"raw": "raw", "enriched": "enrich_last"},
		},
	}
	coalesce := &config.Stage{Kind: "coalesce", Name: "join", Fork: "split"}
	p := &config.Pipeline{Name: "test", Stages: append([]*config.Stage{
		{Kind: "source", Type: "static", Name: "seed"},
		fork,
		{Kind: "transform", Type: "passthrough", Name: "enrich_first", Input: "split"},
		{Kind: "transform", Type: "passthrough", Name: "enrich_last", Input: "enrich_first"},
		coalesce,
	}, extra...)}
	return p, fork, coalesce
}

func TestResolveChains_IdentityAndChain(t *testing.T) {
	t.Parallel()

	p, fork, coalesce := forkPipeline()
	chains, err := ResolveChains(p, fork, coalesce)
	require.NoError(t, err)
	require.Len(t, chains, 2)

	raw := chains[0]
	assert.Equal(t, "raw", raw.Branch)
	assert.Empty(t, raw.Connection)
	assert.Empty(t, raw.Stages)
	assert.Equal(t, "join", raw.First("join"))

	enriched := chains[1]
	assert.Equal(t, "enriched", enriched.Branch)
	assert.Equal(t, "enrich_last", enriched.Connection)
	require.Len(t, enriched.Stages, 2)
	// Flow order: the stage reading the fork comes first.
	assert.Equal(t, "enrich_first", enriched.Stages[0].Name)
	assert.Equal(t, "enrich_last", enriched.Stages[1].Name)
	assert.Equal(t, "enrich_first", enriched.First("join"))
}

func TestResolveChains_Rejections(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(p *config.Pipeline)
		wantErr string
	}{
		{
			name: "aggregation in chain",
			mutate: func(p *config.Pipeline) {
				stage, _ := p.Stage("enrich_first")
				stage.Kind = "aggregation"
				stage.Type = ""
			},
			wantErr: "one-row-per-branch",
		},
		{
			name: "nested fork in chain",
			mutate: func(p *config.Pipeline) {
				stage, _ := p.Stage("enrich_first")
				stage.Kind = "gate"
				stage.Type = ""
				stage.Branches = config.NewIdentityBranches([]string{"x"})
			},
			wantErr: "nested fork",
		},
		{
			name: "sink in chain",
			mutate: func(p *config.Pipeline) {
				stage, _ := p.Stage("enrich_first")
				stage.Kind = "sink"
			},
			wantErr: "expected transform",
		},
		{
			name: "dangling connection",
			mutate: func(p *config.Pipeline) {
				fork, _ := p.Stage("split")
				fork.Branches.Bindings["enriched"] = "no_such_stage"
			},
			wantErr: "does not resolve to a declared stage",
		},
		{
			name: "chain never reaches the fork",
			mutate: func(p *config.Pipeline) {
				stage, _ := p.Stage("enrich_first")
				stage.Input = ""
			},
			wantErr: "never reaches the fork",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, fork, coalesce := forkPipeline()
			tc.mutate(p)

			_, err := ResolveChains(p, fork, coalesce)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// A branch bound to its own name still resolves as a chain when a stage
// of that name exists; the identity shortcut applies only when nothing
// shadows the branch name.
func TestResolveChains_ShadowedIdentityBinding(t *testing.T) {
	t.Parallel()

	p, fork, coalesce := forkPipeline(&config.Stage{
		Kind: "transform", Type: "passthrough", Name: "raw", Input: "split",
	})
	chains, err := ResolveChains(p, fork, coalesce)
	require.NoError(t, err)

	raw := chains[0]
	assert.Equal(t, "raw", raw.Connection)
	require.Len(t, raw.Stages, 1)
	assert.Equal(t, "raw", raw.Stages[0].Name)
}

func declared(name string, vt contract.ValueType, required bool) contract.Field {
	return contract.Field{NormalizedName: name, OriginalName: name, Type: vt, Required: required, Source: contract.SourceDeclared}
}

func TestMergeSchema_Union(t *testing.T) {
	t.Parallel()

	cfg := &node.CoalesceConfig{
		Name:     "join",
		Branches: []string{"a", "b"},
		Strategy: node.StrategyUnion,
	}
	schemas := map[string]*contract.Contract{
		"a": contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true)),
		"b": contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true), declared("score", contract.TypeFloat, true)),
	}

	merged, err := MergeSchema(cfg, schemas)
	require.NoError(t, err)
	require.NotNil(t, merged)

	id, ok := merged.FieldByName("id")
	require.True(t, ok)
	assert.True(t, id.Required, "field required on both branches stays required")

	score, ok := merged.FieldByName("score")
	require.True(t, ok)
	assert.False(t, score.Required, "single-branch field becomes optional")
}

func TestMergeSchema_UnionDynamicBranch(t *testing.T) {
	t.Parallel()

	cfg := &node.CoalesceConfig{Name: "join", Branches: []string{"a", "b"}, Strategy: node.StrategyUnion}
	schemas := map[string]*contract.Contract{
		"a": contract.MustNew(contract.ModeFlexible, declared("id", contract.TypeInteger, true)),
		"b": nil,
	}

	merged, err := MergeSchema(cfg, schemas)
	require.NoError(t, err)
	assert.Nil(t, merged, "any dynamic branch makes the union dynamic")
}

func TestMergeSchema_UnionConflict(t *testing.T) {
	t.Parallel()

	cfg := &node.CoalesceConfig{Name: "join", Branches: []string{"a", "b"}, Strategy: node.StrategyUnion}
	schemas := map[string]*contract.Contract{
		"a": contract.MustNew(contract.ModeFlexible, declared("x", contract.TypeInteger, true)),
		"b": contract.MustNew(contract.ModeFlexible, declared("x", contract.TypeString, true)),
	}

	_, err := MergeSchema(cfg, schemas)
	require.Error(t, err)

	var mergeErr *contract.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "x", mergeErr.Field)
}

func TestMergeSchema_Nested(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		policy       node.MergePolicy
		wantRequired bool
	}{
		{"require_all makes branch fields required", node.PolicyRequireAll, true},
		{"best_effort leaves branch fields optional", node.PolicyBestEffort, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := &node.CoalesceConfig{
				Name:     "join",
				Branches: []string{"a", "b"},
				Strategy: node.StrategyNested,
				Policy:   tc.policy,
			}

			merged, err := MergeSchema(cfg, nil)
			require.NoError(t, err)
			require.Equal(t, 2, merged.Len())
			assert.Equal(t, contract.ModeFixed, merged.Mode())

			for _, branchName := range []string{"a", "b"} {
				f, ok := merged.FieldByName(branchName)
				require.True(t, ok)
				assert.Equal(t, contract.TypeUnknown, f.Type)
				assert.Equal(t, tc.wantRequired, f.Required)
			}
		})
	}
}

func TestMergeSchema_Select(t *testing.T) {
	t.Parallel()

	a := contract.MustNew(contract.ModeFixed, declared("id", contract.TypeInteger, true))
	cfg := &node.CoalesceConfig{
		Name:     "join",
		Branches: []string{"a", "b"},
		Strategy: node.StrategySelect,
		Select:   "a",
	}

	merged, err := MergeSchema(cfg, map[string]*contract.Contract{"a": a})
	require.NoError(t, err)
	assert.True(t, a.Equal(merged))

	cfg.Select = "c"
	_, err = MergeSchema(cfg, map[string]*contract.Contract{"a": a})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown branch "c"`)
}
