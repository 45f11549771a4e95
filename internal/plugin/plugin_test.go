package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgridgo/internal/contract"
)

type fakePlugin struct {
	name    string
	selfErr error
	output  *contract.Contract
}

func (f *fakePlugin) Name() string                      { return f.name }
func (f *fakePlugin) SelfValidate() error               { return f.selfErr }
func (f *fakePlugin) OutputContract() *contract.Contract { return f.output }

func fakeFactory(p *fakePlugin) Factory {
	return func(options map[string]any) (Plugin, error) {
		return p, nil
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("alpha", fakeFactory(&fakePlugin{name: "alpha"}))
	r.Register("beta", fakeFactory(&fakePlugin{name: "beta"}))

	_, ok := r.Lookup("alpha")
	assert.True(t, ok)
	_, ok = r.Lookup("gamma")
	assert.False(t, ok)

	assert.Equal(t, []string{"alpha", "beta"}, r.Types())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("alpha", fakeFactory(&fakePlugin{name: "alpha"}))
	assert.Panics(t, func() {
		r.Register("alpha", fakeFactory(&fakePlugin{name: "alpha"}))
	})
}

func TestNewInstance(t *testing.T) {
	t.Parallel()

	schema := contract.MustNew(contract.ModeFixed, contract.Field{
		NormalizedName: "id", OriginalName: "id", Type: contract.TypeInteger, Required: true, Source: contract.SourceDeclared,
	})

	r := NewRegistry()
	r.Register("good", fakeFactory(&fakePlugin{name: "good", output: schema}))
	r.Register("broken", fakeFactory(&fakePlugin{name: "broken", selfErr: errors.New("schema declares x twice")}))

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()
		_, err := NewInstance(r, "nope", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown plugin type "nope"`)
	})

	t.Run("self-validation runs at construction", func(t *testing.T) {
		t.Parallel()
		_, err := NewInstance(r, "broken", nil)
		require.Error(t, err)

		var selfErr *SelfValidationError
		require.ErrorAs(t, err, &selfErr)
		assert.Equal(t, "broken", selfErr.Plugin)
		assert.Contains(t, err.Error(), "schema declares x twice")
	})

	t.Run("capability interfaces", func(t *testing.T) {
		t.Parallel()
		instance, err := NewInstance(r, "good", nil)
		require.NoError(t, err)
		assert.Equal(t, "good", instance.Type())
		assert.True(t, schema.Equal(instance.OutputContract()))
		// fakePlugin does not implement SchemaConsumer.
		assert.Nil(t, instance.InputContract())
	})
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	type opts struct {
		Path  string `mapstructure:"path"`
		Limit int    `mapstructure:"limit"`
	}

	var decoded opts
	err := DecodeOptions(map[string]any{"path": "/tmp/x", "limit": 3}, &decoded)
	require.NoError(t, err)
	assert.Equal(t, opts{Path: "/tmp/x", Limit: 3}, decoded)

	// Unknown keys fail so typos surface at construction.
	err = DecodeOptions(map[string]any{"path": "/tmp/x", "limt": 3}, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid keys")
}
