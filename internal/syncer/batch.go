// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package syncer

import (
	"context"

	"github.com/substrate-evm/sqlindexer/internal/indexdb"
)

// Batcher accumulates BlockRefs discovered during ancestor traversal and
// flushes them together, so a non-forced catch-up pass over many blocks
// produces one metadata transaction and one logs-task spawn per full batch
// instead of one of each per block. A forced (notification) traversal
// flushes after every enqueue. Like Cache, it is single-writer and unlocked.
type Batcher struct {
	size    int
	pending []indexdb.BlockRef
	seen    map[[32]byte]struct{} // within-batch dedupe, keyed by hash bytes
}

// NewBatcher returns an empty Batcher that flushes every size refs.
func NewBatcher(size int) *Batcher {
	return &Batcher{
		size: size,
		seen: make(map[[32]byte]struct{}),
	}
}

// Enqueue adds ref to the pending batch. If ref was already enqueued in
// this batch, it is not added again; Enqueue then reports false unless
// force is set, in which case it reports true anyway so a force-synced
// traversal (a notification's head) keeps walking into territory another
// leaf's pass has already queued this round, rather than stopping short.
// A non-force caller treats false as the signal to stop walking a branch
// that has merged back into already-queued history.
func (b *Batcher) Enqueue(ref indexdb.BlockRef, force bool) bool {
	if _, dup := b.seen[ref.Hash]; dup {
		return force
	}
	b.seen[ref.Hash] = struct{}{}
	b.pending = append(b.pending, ref)
	return true
}

// Len reports how many refs are currently pending.
func (b *Batcher) Len() int {
	return len(b.pending)
}

// Full reports whether the batch has reached its configured size.
func (b *Batcher) Full() bool {
	return len(b.pending) >= b.size
}

// Flush writes the pending batch's metadata, spawns its logs task, and
// clears pending state. It does not touch the Indexed-Hash Cache — the
// caller (Worker) is responsible for appending the flushed hashes once
// Flush returns without error, since only the caller knows whether the
// write actually landed.
func (b *Batcher) Flush(ctx context.Context, writer indexdb.Writer) error {
	if len(b.pending) == 0 {
		return nil
	}

	refs := b.pending
	if err := writer.InsertBlockMetadata(ctx, refs); err != nil {
		return err
	}
	writer.SpawnLogsTask(ctx, refs, b.size)

	b.pending = nil
	b.seen = make(map[[32]byte]struct{})
	return nil
}

// Drain returns the refs currently pending, for callers (such as Cache
// population after a successful Flush) that need the batch's contents
// without triggering a write.
func (b *Batcher) Drain() []indexdb.BlockRef {
	return b.pending
}
