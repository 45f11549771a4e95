package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/contract"
)

func newSource(t *testing.T, options map[string]any) *Source {
	t.Helper()
	p, err := New(options)
	require.NoError(t, err)
	return p.(*Source)
}

func TestSelfValidate_BuildsContract(t *testing.T) {
	t.Parallel()

	src := newSource(t, map[string]any{
		"fields": []map[string]any{
			{"name": "id", "type": "integer", "required": true},
			{"name": "full_name", "type": "string", "original_name": "Full Name"},
		},
		"rows": []map[string]any{
			{"id": 1, "full_name": "Ada"},
			{"id": 2},
		},
	})
	require.NoError(t, src.SelfValidate())

	schema := src.OutputContract()
	require.NotNil(t, schema)
	assert.Equal(t, contract.ModeFixed, schema.Mode(), "fixed is the default mode")

	f, ok := schema.FieldByName("full_name")
	require.True(t, ok)
	assert.Equal(t, "Full Name", f.OriginalName)
	assert.False(t, f.Required)

	assert.Len(t, src.Rows(), 2)
}

func TestSelfValidate_ExplicitMode(t *testing.T) {
	t.Parallel()

	src := newSource(t, map[string]any{
		"mode":   "flexible",
		"fields": []map[string]any{{"name": "id", "type": "integer"}},
	})
	require.NoError(t, src.SelfValidate())
	assert.Equal(t, contract.ModeFlexible, src.OutputContract().Mode())
}

func TestSelfValidate_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		options map[string]any
		wantErr string
	}{
		{
			name:    "no fields",
			options: map[string]any{"rows": []map[string]any{{"id": 1}}},
			wantErr: "at least one field",
		},
		{
			name: "bad value type",
			options: map[string]any{
				"fields": []map[string]any{{"name": "id", "type": "decimal"}},
			},
			wantErr: `field "id"`,
		},
		{
			name: "bad mode",
			options: map[string]any{
				"mode":   "strict",
				"fields": []map[string]any{{"name": "id", "type": "integer"}},
			},
			wantErr: "strict",
		},
		{
			name: "row missing required field",
			options: map[string]any{
				"fields": []map[string]any{{"name": "id", "type": "integer", "required": true}},
				"rows":   []map[string]any{{"id": 1}, {}},
			},
			wantErr: "row 1 violates declared schema",
		},
		{
			name: "row with wrong type",
			options: map[string]any{
				"fields": []map[string]any{{"name": "id", "type": "integer", "required": true}},
				"rows":   []map[string]any{{"id": "one"}},
			},
			wantErr: "row 0 violates declared schema",
		},
		{
			name: "extra field under fixed mode",
			options: map[string]any{
				"fields": []map[string]any{{"name": "id", "type": "integer", "required": true}},
				"rows":   []map[string]any{{"id": 1, "stray": true}},
			},
			wantErr: "row 0 violates declared schema",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			src := newSource(t, tc.options)
			err := src.SelfValidate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNew_RejectsUnknownOptions(t *testing.T) {
	t.Parallel()

	_, err := New(map[string]any{"feilds": []map[string]any{}})
	require.Error(t, err)
}
