// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package syncer

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/substrate-evm/sqlindexer/internal/chain"
	"github.com/substrate-evm/sqlindexer/internal/indexdb"
)

func indexRef(n byte) indexdb.BlockRef {
	return indexdb.BlockRef{Hash: hashN(n), Number: uint64(n)}
}

// TestCacheNeverReportsUnindexedAsIndexed checks that ContainsCached is a
// safe-to-call membership test: for any sequence of inserts, a hash
// never inserted is never reported as cached.
func TestCacheNeverReportsUnindexedAsIndexed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		backend := newTestBackend(t)
		c := NewCache(rapid.IntRange(1, 16).Draw(rt, "capacity"), backend)

		inserted := make(map[chain.Hash]bool)
		n := rapid.IntRange(0, 64).Draw(rt, "numInserts")
		for i := 0; i < n; i++ {
			h := hashN(byte(rapid.IntRange(0, 255).Draw(rt, "hash")))
			c.Insert(h)
			inserted[h] = true
		}

		probe := hashN(byte(rapid.IntRange(0, 255).Draw(rt, "probe")))
		if !inserted[probe] && c.ContainsCached(probe) {
			rt.Fatalf("cache reported unindexed hash %s as cached", probe)
		}
	})
}

// TestCacheCapacityNeverExceeded asserts the bounded-FIFO invariant: the
// cache never holds more entries than its configured capacity, regardless
// of insertion sequence.
func TestCacheCapacityNeverExceeded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		backend := newTestBackend(t)
		capacity := rapid.IntRange(1, 8).Draw(rt, "capacity")
		c := NewCache(capacity, backend)

		n := rapid.IntRange(0, 64).Draw(rt, "numInserts")
		for i := 0; i < n; i++ {
			c.Insert(hashN(byte(i)))
		}

		if len(c.entries) > capacity {
			rt.Fatalf("cache holds %d entries, exceeding capacity %d", len(c.entries), capacity)
		}
	})
}

// TestBatcherEnqueueIsIdempotentWithinABatch checks that no matter how many
// times a hash is offered to the same batch, Enqueue only accepts it once
// and Len only grows by the number of distinct hashes offered.
func TestBatcherEnqueueIsIdempotentWithinABatch(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := NewBatcher(rapid.IntRange(1, 32).Draw(rt, "size"))

		distinct := make(map[byte]struct{})
		n := rapid.IntRange(0, 64).Draw(rt, "numOffers")
		for i := 0; i < n; i++ {
			v := byte(rapid.IntRange(0, 15).Draw(rt, "value"))
			distinct[v] = struct{}{}
			b.Enqueue(indexRef(v), false)
		}

		if b.Len() != len(distinct) {
			rt.Fatalf("expected %d distinct pending refs, got %d", len(distinct), b.Len())
		}
	})
}
