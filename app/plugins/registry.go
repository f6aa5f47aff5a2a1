package plugins

import (
	"fmt"

	"github.com/kilianp07/gridmarket/config"
	"github.com/kilianp07/gridmarket/core/dispatch"
	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
	"github.com/kilianp07/gridmarket/core/factory"
)

// ClearerFactory builds a market clearer from a raw configuration map.
type ClearerFactory func(conf map[string]any) (dispatch.Clearer, error)

// LogStoreFactory builds a round log store from its config section.
type LogStoreFactory func(cfg config.RoundLogConfig) (dispatchlog.LogStore, error)

var (
	Clearers  = map[string]ClearerFactory{}
	LogStores = map[string]LogStoreFactory{}
)

func RegisterClearer(name string, f ClearerFactory)   { Clearers[name] = f }
func RegisterLogStore(name string, f LogStoreFactory) { LogStores[name] = f }

// NewClearer builds the clearer described by cfg; an empty type selects the
// merit order.
func NewClearer(cfg factory.ModuleConfig) (dispatch.Clearer, error) {
	name := cfg.Type
	if name == "" {
		name = "merit_order"
	}
	f, ok := Clearers[name]
	if !ok {
		return nil, fmt.Errorf("unknown clearer %q", name)
	}
	return f(cfg.Conf)
}

// NewLogStore builds the store selected by cfg.Backend.
func NewLogStore(cfg config.RoundLogConfig) (dispatchlog.LogStore, error) {
	f, ok := LogStores[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown round log backend %q", cfg.Backend)
	}
	return f(cfg)
}
