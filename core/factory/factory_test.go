package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type penalty struct{ Rate float64 }

type penaltyConf struct {
	Rate      float64 `json:"rate"`
	Threshold float64 `json:"threshold"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*penalty]()
	require.NoError(t, reg.Register("flat", func(conf map[string]any) (*penalty, error) {
		var c penaltyConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &penalty{Rate: c.Rate}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "flat", Conf: map[string]any{"rate": 2.5}})
	require.NoError(t, err)
	assert.Equal(t, 2.5, inst.Rate)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("y", nil))
	_, err := reg.Create(ModuleConfig{Type: "y"})
	assert.ErrorContains(t, err, `unknown module type "y"`)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"sqlite", "jsonl", "none"} {
		require.NoError(t, reg.Register(n, func(map[string]any) (int, error) { return 0, nil }))
	}
	assert.Equal(t, []string{"jsonl", "none", "sqlite"}, reg.Names())
}

func TestDecodeRejectsWrongType(t *testing.T) {
	var c penaltyConf
	assert.Error(t, Decode(map[string]any{"rate": "high"}, &c))
}
