package plugins

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/config"
	"github.com/kilianp07/gridmarket/core/dispatch"
	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
	"github.com/kilianp07/gridmarket/core/factory"
)

func TestNewClearer(t *testing.T) {
	c, err := NewClearer(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.IsType(t, dispatch.MeritOrder{}, c)

	_, err = NewClearer(factory.ModuleConfig{Type: "pay_as_bid"})
	assert.Error(t, err)
}

func TestNewLogStore(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"jsonl", "rotating", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.RoundLogConfig{Backend: backend, Path: filepath.Join(dir, backend+".log")}
			cfg.SetDefaults()
			s, err := NewLogStore(cfg)
			require.NoError(t, err)
			require.NoError(t, s.Append(context.Background(), dispatchlog.LogRecord{GameID: "g1", Round: 0}))
			recs, err := s.Query(context.Background(), dispatchlog.LogQuery{GameID: "g1"})
			require.NoError(t, err)
			assert.Len(t, recs, 1)
			require.NoError(t, s.Close())
		})
	}

	s, err := NewLogStore(config.RoundLogConfig{Backend: "nop"})
	require.NoError(t, err)
	assert.IsType(t, dispatchlog.NopStore{}, s)

	_, err = NewLogStore(config.RoundLogConfig{Backend: "postgres"})
	assert.Error(t, err)
}
