package passthrough

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/contract"
)

func newTransform(t *testing.T, options map[string]any) *Transform {
	t.Helper()
	p, err := New(options)
	require.NoError(t, err)
	return p.(*Transform)
}

func TestSelfValidate_DynamicWithoutFields(t *testing.T) {
	t.Parallel()

	tr := newTransform(t, nil)
	require.NoError(t, tr.SelfValidate())
	assert.Nil(t, tr.InputContract())
	assert.Nil(t, tr.OutputContract())
}

func TestSelfValidate_SharedContract(t *testing.T) {
	t.Parallel()

	tr := newTransform(t, map[string]any{
		"fields": []map[string]any{
			{"name": "id", "type": "integer", "required": true},
			{"name": "score", "type": "float"},
		},
	})
	require.NoError(t, tr.SelfValidate())

	in, out := tr.InputContract(), tr.OutputContract()
	require.NotNil(t, in)
	assert.Same(t, in, out, "input and output are one contract, so no transformation is possible")
	assert.Equal(t, contract.ModeFlexible, in.Mode(), "flexible is the default mode")
}

func TestSelfValidate_BadField(t *testing.T) {
	t.Parallel()

	tr := newTransform(t, map[string]any{
		"fields": []map[string]any{{"name": "id", "type": "decimal"}},
	})
	require.Error(t, tr.SelfValidate())
}

func TestApply_ForwardsRowUnchanged(t *testing.T) {
	t.Parallel()

	tr := newTransform(t, nil)
	row := map[string]any{"id": 1}
	assert.Equal(t, row, tr.Apply(row))
}
