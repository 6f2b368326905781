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

	"github.com/substrate-evm/sqlindexer/internal/chain"
	"github.com/substrate-evm/sqlindexer/internal/indexdb"
)

func hashN(n byte) chain.Hash {
	var h chain.Hash
	h[31] = n
	return h
}

func TestCacheInsertEvictsOldestWhenFull(t *testing.T) {
	backend := newTestBackend(t)
	c := NewCache(2, backend)

	if _, ok := c.Insert(hashN(1)); ok {
		t.Fatalf("unexpected eviction on first insert")
	}
	if _, ok := c.Insert(hashN(2)); ok {
		t.Fatalf("unexpected eviction on second insert")
	}
	evicted, ok := c.Insert(hashN(3))
	if !ok || evicted != hashN(1) {
		t.Fatalf("expected eviction of hash 1, got %v ok=%v", evicted, ok)
	}

	if !c.ContainsCached(hashN(2)) || !c.ContainsCached(hashN(3)) {
		t.Fatalf("cache should still contain 2 and 3")
	}
	if c.ContainsCached(hashN(1)) {
		t.Fatalf("evicted hash should no longer be cached")
	}
}

func TestCacheLatestIsMostRecentInsert(t *testing.T) {
	backend := newTestBackend(t)
	c := NewCache(5, backend)

	c.Insert(hashN(1))
	c.Insert(hashN(2))

	latest, ok := c.Latest()
	if !ok || latest != hashN(2) {
		t.Fatalf("expected latest to be hash 2, got %v", latest)
	}
}

func TestCacheContainsFallsBackToDatabase(t *testing.T) {
	backend := newTestBackend(t)
	c := NewCache(2, backend)

	h := hashN(7)
	if c.Contains(ctx, h) {
		t.Fatalf("hash should not be found before indexing")
	}

	if err := backend.InsertBlockMetadata(ctx, []indexdb.BlockRef{{Hash: h, Number: 1}}); err != nil {
		t.Fatalf("insert block metadata: %v", err)
	}

	if !c.Contains(ctx, h) {
		t.Fatalf("hash should be found via database fallback")
	}
	if c.ContainsCached(h) {
		t.Fatalf("Contains should not have mutated the in-memory cache")
	}
}

func TestCacheHydrateLoadsMostRecentFirst(t *testing.T) {
	backend := newTestBackend(t)

	refs := []indexdb.BlockRef{{Hash: hashN(1), Number: 1}, {Hash: hashN(2), Number: 2}, {Hash: hashN(3), Number: 3}}
	if err := backend.InsertBlockMetadata(ctx, refs); err != nil {
		t.Fatalf("insert block metadata: %v", err)
	}

	c := NewCache(2, backend)
	if err := c.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	latest, ok := c.Latest()
	if !ok || latest != hashN(3) {
		t.Fatalf("expected hydrate to load hash 3 as latest, got %v", latest)
	}
	if c.ContainsCached(hashN(1)) {
		t.Fatalf("hydrate should respect capacity and drop the oldest entry")
	}
}
