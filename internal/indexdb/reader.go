// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// Package indexdb is the Backend Adapter: the SQL-backed collaborator the
// SyncWorker talks to for everything persistent. Its internals (query
// shape, index choice, receipt flattening) are a real, working
// implementation, not a stub behind the Reader/Writer contract.
package indexdb

import (
	"context"

	"github.com/substrate-evm/sqlindexer/internal/chain"
)

// Reader is the narrow slice of the Backend Adapter the Indexed-Hash Cache
// depends on. Keeping it separate from Writer lets internal/syncer avoid
// importing sqlx or any SQL-specific type.
type Reader interface {
	// ContainsHash reports whether hash has a sync_status row. Callers
	// treat a query error as "not indexed" rather than propagating it,
	// so a transient database hiccup costs a redundant re-index instead
	// of wedging the traversal.
	ContainsHash(ctx context.Context, hash chain.Hash) (bool, error)

	// RecentHashes returns up to limit hashes from sync_status ordered by
	// descending id (most recently indexed first).
	RecentHashes(ctx context.Context, limit int) ([]chain.Hash, error)
}

// BlockRef pairs a hash with the block number the worker already resolved
// for it while walking ancestors, so the backend never needs to look a
// number up again before it can write a blocks row.
type BlockRef struct {
	Hash   chain.Hash
	Number uint64
}

// Writer is the slice of the Backend Adapter the Batcher depends on.
type Writer interface {
	InsertBlockMetadata(ctx context.Context, refs []BlockRef) error
	SpawnLogsTask(ctx context.Context, refs []BlockRef, batchSize int)
}
