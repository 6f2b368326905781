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

	"golang.org/x/sync/errgroup"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/substrate-evm/sqlindexer/internal/chain"
)

// Log is a single flattened EVM log row, one per (block, transaction,
// log index) triple. Any of Topic1..Topic4 beyond the topics the
// underlying log carries is left as the zero hash, matching the
// fixed-width schema declared in schema.go.
type Log struct {
	SubstrateBlockHash chain.Hash
	Address            [20]byte
	Topic1             [32]byte
	Topic2             [32]byte
	Topic3             [32]byte
	Topic4             [32]byte
	LogIndex           int
	TransactionIndex   int
}

// SpawnLogsTask implements Writer: it returns immediately and drains refs
// on an auxiliary errgroup-bounded worker pool, sized by
// Config.SQLThreadCount. batchSize matches the size the caller's metadata
// batch was flushed at, but the worker pool limit uses the configured
// thread count, not batchSize — the two numbers serve different purposes
// (backlog shape vs. parallelism).
func (b *Backend) SpawnLogsTask(ctx context.Context, refs []BlockRef, batchSize int) {
	go func() {
		g, gctx := errgroup.WithContext(context.Background())
		g.SetLimit(b.cfg.SQLThreadCount)

		for _, ref := range refs {
			ref := ref
			g.Go(func() error {
				return b.extractLogs(gctx, ref.Hash)
			})
		}

		if err := g.Wait(); err != nil {
			b.log.Error("log extraction failed", "err", err)
		}
	}()
}

// extractLogs decodes one block's receipts and inserts its flattened
// logs. Errors are logged by the caller, not retried here — a block that
// fails log extraction keeps its blocks/sync_status rows and simply has
// no logs rows until the operator investigates. Log extraction is
// deliberately off the critical indexing path: metadata for a block is
// visible before its logs are.
func (b *Backend) extractLogs(ctx context.Context, hash chain.Hash) error {
	receipts, err := b.receiptsFor(ctx, hash)
	if err != nil {
		return err
	}

	var rows []Log
	for txIndex, receipt := range receipts {
		for logIndex, l := range receipt.Logs {
			rows = append(rows, flattenLog(hash, txIndex, logIndex, l))
		}
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+tableLogs+`
				(substrate_block_hash, address, topic_1, topic_2, topic_3, topic_4, log_index, transaction_index)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.SubstrateBlockHash[:], row.Address[:], row.Topic1[:], row.Topic2[:], row.Topic3[:], row.Topic4[:],
			row.LogIndex, row.TransactionIndex,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// receiptsFor consults the decode-memoization cache before calling the
// runtime API, since the same hash can be re-requested by both a
// force-synced notification and a later interval catch-up pass over the
// same already-queued range.
func (b *Backend) receiptsFor(ctx context.Context, hash chain.Hash) ([]*gethtypes.ReceiptForStorage, error) {
	if cached, ok := b.decoded.Get(hash); ok {
		return cached.([]*gethtypes.ReceiptForStorage), nil
	}

	receipts, err := b.receipts.EthereumReceipts(ctx, hash)
	if err != nil {
		return nil, err
	}
	b.decoded.Add(hash, receipts)
	return receipts, nil
}

func flattenLog(hash chain.Hash, txIndex, logIndex int, l *gethtypes.Log) Log {
	row := Log{
		SubstrateBlockHash: hash,
		Address:            l.Address,
		LogIndex:           logIndex,
		TransactionIndex:   txIndex,
	}
	for i, topic := range l.Topics {
		if i >= 4 {
			break
		}
		var t [32]byte
		copy(t[:], topic[:])
		switch i {
		case 0:
			row.Topic1 = t
		case 1:
			row.Topic2 = t
		case 2:
			row.Topic3 = t
		case 3:
			row.Topic4 = t
		}
	}
	return row
}
