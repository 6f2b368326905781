// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// Package config holds the flag/TOML-bound configuration shared by the CLI
// and the SyncWorker.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// BackendType selects the storage backend the outer node would use. Only
// Sql drives internal/syncer; KeyValue is recognized for CLI compatibility
// but otherwise out of this repository's scope.
type BackendType string

const (
	BackendKeyValue BackendType = "keyvalue"
	BackendSql      BackendType = "sql"
)

// Config is the full recognized option set. FeeHistoryLimit, MaxPastLogs,
// and TargetGasPrice are carried here as the single source of truth for
// the binary's flags, but nothing past flag and file binding reads them:
// neither internal/syncer.Worker nor internal/filterapi uses them.
type Config struct {
	DSN string `toml:"dsn"`

	BatchSize        int           `toml:"batch_size"`
	Interval         time.Duration `toml:"interval"`
	BackendType      BackendType   `toml:"backend_type"`
	SQLNumOpsTimeout int           `toml:"sql_num_ops_timeout"`
	SQLThreadCount   int           `toml:"sql_thread_count"`
	SQLCacheSize     int64         `toml:"sql_cache_size"`

	FeeHistoryLimit uint64 `toml:"fee_history_limit"`
	MaxPastLogs     uint32 `toml:"max_past_logs"`
	TargetGasPrice  uint64 `toml:"target_gas_price"`

	FilterAPIAddr string `toml:"filter_api_addr"`
}

// Default returns the indexer's documented option defaults.
func Default() Config {
	return Config{
		DSN:              "sqlindexer.db",
		BatchSize:        100,
		Interval:         6 * time.Second,
		BackendType:      BackendKeyValue,
		SQLNumOpsTimeout: 10000000,
		SQLThreadCount:   4,
		SQLCacheSize:     209715200,
		FeeHistoryLimit:  2048,
		MaxPastLogs:      10000,
		TargetGasPrice:   1,
		FilterAPIAddr:    "127.0.0.1:8545",
	}
}

// LoadFile merges a TOML file on top of Default, returning the merged
// result. A missing file is not an error — operators may run entirely off
// CLI flags.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	return cfg, nil
}
