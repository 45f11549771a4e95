package hcl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadModel(t *testing.T, paths ...string) (*config.Model, error) {
	t.Helper()
	ctx := ctxlog.WithLogger(context.Background(), discardLogger())
	return NewLoader().Load(ctx, paths...)
}

func TestLoad_FullPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "pipeline.hcl", `
pipeline "orders" {
  source "static" "seed" {
    options {
      fields = [{ name = "id", type = "integer", required = true }]
      rows   = [{ id = 1 }, { id = 2 }]
    }
  }

  gate "split" {
    input    = "seed"
    branches = {
      raw      = "raw"
      enriched = "enrich"
    }
  }

  transform "passthrough" "enrich" {
    input = "split"
  }

  coalesce "join" {
    fork     = "split"
    policy   = "quorum"
    quorum   = 1
    strategy = "union"
    timeout  = "2s"
  }

  sink "discard" "drop" {
    input = "join"
    contract {
      mode = "flexible"
      field "id" {
        type          = "integer"
        original_name = "Order ID"
        required      = true
      }
    }
  }
}
`)

	model, err := loadModel(t, dir)
	require.NoError(t, err)
	require.NotNil(t, model.Pipeline)
	assert.Equal(t, "orders", model.Pipeline.Name)
	require.Len(t, model.Pipeline.Stages, 5)

	seed, ok := model.Pipeline.Stage("seed")
	require.True(t, ok)
	assert.Equal(t, "source", seed.Kind)
	assert.Equal(t, "static", seed.Type)
	rows, ok := seed.Options["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"id": int64(1)}, rows[0])

	split, ok := model.Pipeline.Stage("split")
	require.True(t, ok)
	require.NotNil(t, split.Branches)
	assert.Equal(t, []string{"raw", "enriched"}, split.Branches.Order, "map form preserves source order")
	assert.Equal(t, "enrich", split.Branches.Bindings["enriched"])

	join, ok := model.Pipeline.Stage("join")
	require.True(t, ok)
	assert.Equal(t, "coalesce", join.Kind)
	assert.Equal(t, "split", join.Fork)
	assert.Equal(t, "quorum", join.Policy)
	assert.Equal(t, 1, join.Quorum)
	assert.Equal(t, "2s", join.Timeout)

	drop, ok := model.Pipeline.Stage("drop")
	require.True(t, ok)
	assert.Equal(t, "flexible", drop.Mode)
	require.Len(t, drop.Fields, 1)
	assert.Equal(t, "Order ID", drop.Fields[0].OriginalName)
	assert.True(t, drop.Fields[0].Required)
}

func TestLoad_ListBranchesAreIdentityBindings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "fork.hcl", `
pipeline "p" {
  source "static" "seed" {}
  gate "split" {
    input    = "seed"
    branches = ["left", "right"]
  }
  coalesce "join" { fork = "split" }
}
`)

	model, err := loadModel(t, dir)
	require.NoError(t, err)

	split, ok := model.Pipeline.Stage("split")
	require.True(t, ok)
	require.NotNil(t, split.Branches)
	assert.Equal(t, []string{"left", "right"}, split.Branches.Order)
	assert.Equal(t, map[string]string{"left": "left", "right": "right"}, split.Branches.Bindings)
}

func TestLoad_Routes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "routes.hcl", `
pipeline "p" {
  source "static" "seed" {}
  gate "router" {
    input = "seed"
    route "keep"   { to = "drop" }
    route "divert" { to = "archive" }
  }
  sink "discard" "drop" { input = "router" }
  sink "discard" "archive" {}
}
`)

	model, err := loadModel(t, dir)
	require.NoError(t, err)

	router, ok := model.Pipeline.Stage("router")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"keep": "drop", "divert": "archive"}, router.Routes)
}

func TestLoad_DuplicateRoute(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "dup.hcl", `
pipeline "p" {
  gate "router" {
    route "keep" { to = "a" }
    route "keep" { to = "b" }
  }
}
`)

	_, err := loadModel(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate route "keep"`)
}

func TestLoad_MergesFilesOfOnePipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "a_sources.hcl", `
pipeline "p" {
  source "static" "seed" {}
}
`)
	writeDefinition(t, dir, "b_sinks.hcl", `
pipeline "p" {
  sink "discard" "drop" { input = "seed" }
}
`)

	model, err := loadModel(t, dir)
	require.NoError(t, err)
	assert.Len(t, model.Pipeline.Stages, 2)
}

func TestLoad_MultiplePipelinesRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "two.hcl", `
pipeline "alpha" {}
pipeline "beta" {}
`)

	_, err := loadModel(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple pipelines defined in one load: alpha, beta")
}

func TestLoad_NoPipelines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "empty.hcl", `# nothing here`)

	_, err := loadModel(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pipeline blocks found")
}

func TestLoad_ParseFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "broken.hcl", `pipeline "p" {`)

	_, err := loadModel(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_BadBranchesExpression(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDefinition(t, dir, "bad.hcl", `
pipeline "p" {
  gate "split" {
    branches = "not-a-collection"
  }
}
`)

	_, err := loadModel(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `gate "split"`)
}
