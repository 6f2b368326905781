// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/substrate-evm/sqlindexer/internal/chain"
	"github.com/substrate-evm/sqlindexer/internal/config"
	"github.com/substrate-evm/sqlindexer/internal/filterapi"
	"github.com/substrate-evm/sqlindexer/internal/indexdb"
	"github.com/substrate-evm/sqlindexer/internal/logging"
	"github.com/substrate-evm/sqlindexer/internal/syncer"
)

func main() {
	app := &cli.App{
		Name:  "sqlindexer",
		Usage: "EVM-over-substrate SQL log indexer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", Value: config.Default().DSN, Usage: "sqlite DSN for the SQL backend"},
			&cli.StringFlag{Name: "config", Usage: "path to an optional TOML config file"},
			&cli.IntFlag{Name: "frontier-sql-backend-batch-size", Value: config.Default().BatchSize},
			&cli.DurationFlag{Name: "frontier-sql-backend-interval", Value: config.Default().Interval},
			&cli.StringFlag{Name: "frontier-backend-type", Value: string(config.Default().BackendType)},
			&cli.IntFlag{Name: "frontier-sql-backend-num-ops-timeout", Value: config.Default().SQLNumOpsTimeout},
			&cli.IntFlag{Name: "frontier-sql-backend-thread-count", Value: config.Default().SQLThreadCount},
			&cli.Int64Flag{Name: "frontier-sql-backend-cache-size", Value: config.Default().SQLCacheSize},
			&cli.Uint64Flag{Name: "fee-history-limit", Value: config.Default().FeeHistoryLimit},
			&cli.UintFlag{Name: "max-past-logs", Value: uint(config.Default().MaxPastLogs)},
			&cli.Uint64Flag{Name: "target-gas-price", Value: config.Default().TargetGasPrice},
			&cli.StringFlag{Name: "filter-api-addr", Value: config.Default().FilterAPIAddr},
			&cli.StringFlag{Name: "log-file", Usage: "optional rotating log file path"},
			&cli.IntFlag{Name: "verbosity", Value: 3, Usage: "log verbosity 0-5"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logging.Setup(logging.Options{
		Verbosity: gethlog.Lvl(c.Int("verbosity")),
		FilePath:  c.String("log-file"),
	})
	log := gethlog.New("component", "main")

	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(c, &cfg)

	if cfg.BackendType != config.BackendSql {
		log.Warn("frontier-backend-type is not sql, indexer has nothing to do", "type", cfg.BackendType)
		<-c.Context.Done()
		return nil
	}

	backendCfg := indexdb.Config{
		DSN:              cfg.DSN,
		SQLThreadCount:   cfg.SQLThreadCount,
		SQLCacheSize:     cfg.SQLCacheSize,
		SQLNumOpsTimeout: cfg.SQLNumOpsTimeout,
	}

	receipts := indexdb.NewStaticReceiptsAPI()
	backend, err := indexdb.New(backendCfg, receipts)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer backend.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ca := chain.NewMemory()
	ca.ImportGenesis()

	worker := syncer.New(syncer.Config{
		BatchSize: cfg.BatchSize,
		Interval:  cfg.Interval,
	}, ca, backend)

	server := filterapi.New(backend.Pool())
	httpServer := &http.Server{Addr: cfg.FilterAPIAddr, Handler: server.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("filter api server stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("sqlindexer starting", "dsn", cfg.DSN, "batch_size", cfg.BatchSize, "interval", cfg.Interval)
	return worker.Run(ctx)
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("dsn") {
		cfg.DSN = c.String("dsn")
	}
	if c.IsSet("frontier-sql-backend-batch-size") {
		cfg.BatchSize = c.Int("frontier-sql-backend-batch-size")
	}
	if c.IsSet("frontier-sql-backend-interval") {
		cfg.Interval = c.Duration("frontier-sql-backend-interval")
	}
	if c.IsSet("frontier-backend-type") {
		cfg.BackendType = config.BackendType(c.String("frontier-backend-type"))
	}
	if c.IsSet("frontier-sql-backend-num-ops-timeout") {
		cfg.SQLNumOpsTimeout = c.Int("frontier-sql-backend-num-ops-timeout")
	}
	if c.IsSet("frontier-sql-backend-thread-count") {
		cfg.SQLThreadCount = c.Int("frontier-sql-backend-thread-count")
	}
	if c.IsSet("frontier-sql-backend-cache-size") {
		cfg.SQLCacheSize = c.Int64("frontier-sql-backend-cache-size")
	}
	if c.IsSet("fee-history-limit") {
		cfg.FeeHistoryLimit = c.Uint64("fee-history-limit")
	}
	if c.IsSet("max-past-logs") {
		cfg.MaxPastLogs = uint32(c.Uint("max-past-logs"))
	}
	if c.IsSet("target-gas-price") {
		cfg.TargetGasPrice = c.Uint64("target-gas-price")
	}
	if c.IsSet("filter-api-addr") {
		cfg.FilterAPIAddr = c.String("filter-api-addr")
	}
}
