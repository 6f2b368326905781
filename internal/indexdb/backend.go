// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package indexdb

import (
	"context"
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ethereum/go-ethereum/log"

	"github.com/substrate-evm/sqlindexer/internal/chain"
)

// Config configures the SQL backend. Field names track the CLI/TOML
// option names (SQLNumOpsTimeout, SQLThreadCount, SQLCacheSize), even
// though not every field is exercised by every driver — SQLite has no
// VM-op budget to enforce, for instance, but a Postgres-flavored driver
// swapped in later would.
type Config struct {
	DSN              string
	SQLThreadCount   int
	SQLCacheSize     int64
	SQLNumOpsTimeout int
}

// DefaultConfig returns the documented option defaults.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:              dsn,
		SQLThreadCount:   4,
		SQLCacheSize:     209715200,
		SQLNumOpsTimeout: 10000000,
	}
}

// Backend is the Backend Adapter: connection-pooled SQL access plus the
// operations the SyncWorker needs. It owns no SyncWorker state — the
// traversal, the Indexed-Hash Cache, and the Batcher all live in
// internal/syncer and reach the database only through this type.
type Backend struct {
	db       *sqlx.DB
	cfg      Config
	receipts RuntimeReceiptsAPI
	decoded  *lru.Cache // chain.Hash -> []*gethtypes.ReceiptForStorage, decode memoization
	log      log.Logger
}

// New opens the connection pool and wires receipts as the runtime-API
// capability used to decode block receipts. It does not create any
// tables — see schemaDDL's doc comment.
func New(cfg Config, receipts RuntimeReceiptsAPI) (*Backend, error) {
	db, err := sqlx.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("indexdb: open %q: %w", cfg.DSN, err)
	}

	decoded, err := lru.New(1024)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("indexdb: allocate decode cache: %w", err)
	}

	return &Backend{
		db:       db,
		cfg:      cfg,
		receipts: receipts,
		decoded:  decoded,
		log:      log.New("component", "indexdb"),
	}, nil
}

// Pool returns the underlying connection pool, for components (such as
// internal/filterapi) that read the schema this backend writes.
func (b *Backend) Pool() *sqlx.DB {
	return b.db
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}

// InsertGenesisBlockMetadata idempotently records the genesis block. It
// is a collaborator stub in the sense that "genesis" here means whatever
// hash the Chain Adapter reports for block zero; obtaining that hash is
// the caller's job (internal/syncer.Worker), passed in explicitly rather
// than rediscovered by the backend, which has no Chain Adapter reference
// of its own.
func (b *Backend) InsertGenesisBlockMetadata(ctx context.Context, hash chain.Hash) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexdb: begin genesis tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+tableBlocks+` (substrate_block_hash, block_number, is_canon)
		 VALUES (?, 0, 1)
		 ON CONFLICT(substrate_block_hash) DO NOTHING`,
		hash[:],
	); err != nil {
		return fmt.Errorf("indexdb: insert genesis block: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+tableSyncStatus+` (substrate_block_hash)
		 VALUES (?)
		 ON CONFLICT(substrate_block_hash) DO NOTHING`,
		hash[:],
	); err != nil {
		return fmt.Errorf("indexdb: insert genesis sync_status: %w", err)
	}

	return tx.Commit()
}

// InsertBlockMetadata inserts one blocks row and one sync_status row per
// ref, all in a single transaction, idempotent on conflict. The block
// number travels with each hash because the backend has no Chain Adapter
// reference of its own — the worker already resolved it while walking
// ancestors and threads it through here.
func (b *Backend) InsertBlockMetadata(ctx context.Context, refs []BlockRef) error {
	if len(refs) == 0 {
		return nil
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexdb: begin batch tx: %w", err)
	}
	defer tx.Rollback()

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+tableBlocks+` (substrate_block_hash, block_number, is_canon)
			 VALUES (?, ?, 1)
			 ON CONFLICT(substrate_block_hash) DO UPDATE SET is_canon = 1`,
			ref.Hash[:], ref.Number,
		); err != nil {
			return fmt.Errorf("indexdb: insert block metadata for %s: %w", ref.Hash, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+tableSyncStatus+` (substrate_block_hash)
			 VALUES (?)
			 ON CONFLICT(substrate_block_hash) DO NOTHING`,
			ref.Hash[:],
		); err != nil {
			return fmt.Errorf("indexdb: insert sync_status for %s: %w", ref.Hash, err)
		}
	}

	return tx.Commit()
}

// Canonicalize flips is_canon to 0 for retracted and 1 for enacted, in a
// single transaction.
func (b *Backend) Canonicalize(ctx context.Context, retracted, enacted []chain.Hash) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexdb: begin canonicalize tx: %w", err)
	}
	defer tx.Rollback()

	for _, h := range retracted {
		if _, err := tx.ExecContext(ctx, `UPDATE `+tableBlocks+` SET is_canon = 0 WHERE substrate_block_hash = ?`, h[:]); err != nil {
			return fmt.Errorf("indexdb: retract %s: %w", h, err)
		}
	}
	for _, h := range enacted {
		if _, err := tx.ExecContext(ctx, `UPDATE `+tableBlocks+` SET is_canon = 1 WHERE substrate_block_hash = ?`, h[:]); err != nil {
			return fmt.Errorf("indexdb: enact %s: %w", h, err)
		}
	}

	return tx.Commit()
}

// CreateIndexes creates the secondary indexes on logs/blocks. Safe to call
// more than once, though the worker only ever calls it once.
func (b *Backend) CreateIndexes(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, secondaryIndexDDL)
	return err
}

// ContainsHash implements Reader.
func (b *Backend) ContainsHash(ctx context.Context, hash chain.Hash) (bool, error) {
	var exists int
	err := b.db.GetContext(ctx, &exists,
		`SELECT 1 FROM `+tableSyncStatus+` WHERE substrate_block_hash = ? LIMIT 1`, hash[:])
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// RecentHashes implements Reader, returning the most recently indexed
// hashes first.
func (b *Backend) RecentHashes(ctx context.Context, limit int) ([]chain.Hash, error) {
	var rows [][]byte
	err := b.db.SelectContext(ctx, &rows,
		`SELECT substrate_block_hash FROM `+tableSyncStatus+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("indexdb: recent hashes: %w", err)
	}

	out := make([]chain.Hash, 0, len(rows))
	for _, r := range rows {
		out = append(out, chain.BytesToHash(r))
	}
	return out, nil
}
