package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/canonical"
)

func TestDeterministic_StableAcrossCalls(t *testing.T) {
	t.Parallel()

	config := map[string]any{"name": "seed", "options": map[string]any{"rows": 3}}

	a, err := Deterministic("source", "static", config)
	require.NoError(t, err)
	b, err := Deterministic("source", "static", config)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	require.Len(t, a.Path, 3)
	assert.Len(t, a.Path[2], canonical.DigestLen)
}

func TestDeterministic_KeyOrderIrrelevant(t *testing.T) {
	t.Parallel()

	a, err := Deterministic("transform", "fieldmap", map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := Deterministic("transform", "fieldmap", map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)

	assert.Equal(t, a.String(), b.String())
}

func TestDeterministic_SingleFieldChangesIdentity(t *testing.T) {
	t.Parallel()

	base, err := Deterministic("sink", "discard", map[string]any{"name": "drop", "limit": 10})
	require.NoError(t, err)
	changed, err := Deterministic("sink", "discard", map[string]any{"name": "drop", "limit": 11})
	require.NoError(t, err)

	assert.NotEqual(t, base.String(), changed.String())
	// Kind and name segments are unchanged; only the digest moves.
	assert.Equal(t, base.Path[:2], changed.Path[:2])
}

func TestDeterministic_RejectsBadSegments(t *testing.T) {
	t.Parallel()

	_, err := Deterministic("source stage", "static", nil)
	require.Error(t, err)
	_, err = Deterministic("source", "sta.tic", nil)
	require.Error(t, err)
}
