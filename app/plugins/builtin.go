package plugins

import (
	"github.com/kilianp07/gridmarket/config"
	"github.com/kilianp07/gridmarket/core/dispatch"
	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
)

func init() {
	RegisterClearer("merit_order", func(map[string]any) (dispatch.Clearer, error) {
		return dispatch.NewMeritOrder(), nil
	})

	RegisterLogStore("jsonl", func(c config.RoundLogConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewJSONLStore(c.Path)
	})
	RegisterLogStore("rotating", func(c config.RoundLogConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	RegisterLogStore("sqlite", func(c config.RoundLogConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewSQLiteStore(c.Path)
	})
	RegisterLogStore("nop", func(config.RoundLogConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NopStore{}, nil
	})
}
