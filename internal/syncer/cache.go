// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// Package syncer implements the SyncWorker: the Indexed-Hash Cache, the
// Batcher, and the ancestor-traversal loop that ties them together. This
// is the system's core — everything else in the repository exists to be
// a collaborator to this package.
package syncer

import (
	"context"

	"github.com/substrate-evm/sqlindexer/internal/chain"
	"github.com/substrate-evm/sqlindexer/internal/indexdb"
)

// Cache is the Indexed-Hash Cache: a bounded, insertion-ordered FIFO of
// hashes known to already be indexed, with a database fallback for
// misses. It is owned exclusively by the SyncWorker goroutine, which is
// the only writer, so none of its methods take a lock.
//
// A slice used as a ring buffer is enough here: membership is only ever
// checked against a cache bounded to a few hundred entries by default, so
// there is no need to reach for a dedicated deque package (see DESIGN.md).
type Cache struct {
	entries  []chain.Hash // entries[0] is the most recently inserted hash
	capacity int
	reader   indexdb.Reader
}

// NewCache returns an empty cache. capacity must be positive.
func NewCache(capacity int, reader indexdb.Reader) *Cache {
	return &Cache{
		capacity: capacity,
		reader:   reader,
	}
}

// Hydrate loads up to capacity most-recently-indexed hashes from the
// database, most-recent first.
func (c *Cache) Hydrate(ctx context.Context) error {
	hashes, err := c.reader.RecentHashes(ctx, c.capacity)
	if err != nil {
		return err
	}
	c.entries = hashes
	return nil
}

// Insert prepends hash to the cache. If the cache was already at
// capacity, the oldest entry is evicted and returned; otherwise ok is
// false. Insert does not deduplicate: callers are expected not to
// reinsert known entries.
func (c *Cache) Insert(hash chain.Hash) (evicted chain.Hash, ok bool) {
	if len(c.entries) == c.capacity {
		evicted, ok = c.entries[len(c.entries)-1], true
		c.entries = c.entries[:len(c.entries)-1]
	}
	c.entries = append([]chain.Hash{hash}, c.entries...)
	return evicted, ok
}

// Append inserts each hash in iteration order, most recent last.
func (c *Cache) Append(hashes []chain.Hash) {
	for _, h := range hashes {
		c.Insert(h)
	}
}

// ContainsCached does an O(n) scan of the in-memory FIFO only — no
// database round trip. Acceptable because the cache is small by default
// and this is called at most once per traversal step.
func (c *Cache) ContainsCached(hash chain.Hash) bool {
	for _, h := range c.entries {
		if h == hash {
			return true
		}
	}
	return false
}

// Contains checks the in-memory cache first, falling back to the
// database on a miss. A database error is treated as "not indexed" —
// biasing towards re-indexing is always safe because Backend Adapter
// inserts are idempotent.
func (c *Cache) Contains(ctx context.Context, hash chain.Hash) bool {
	if c.ContainsCached(hash) {
		return true
	}
	found, err := c.reader.ContainsHash(ctx, hash)
	if err != nil {
		return false
	}
	return found
}

// Latest returns the most recently inserted hash, if any.
func (c *Cache) Latest() (chain.Hash, bool) {
	if len(c.entries) == 0 {
		return chain.Hash{}, false
	}
	return c.entries[0], true
}
