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
	"time"

	"github.com/substrate-evm/sqlindexer/internal/indexdb"
)

func TestBatcherEnqueueDedupesWithinBatch(t *testing.T) {
	b := NewBatcher(10)

	if !b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, false) {
		t.Fatalf("first enqueue of a hash should succeed")
	}
	if b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, false) {
		t.Fatalf("re-enqueueing the same hash within a non-force batch should report false")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 pending ref, got %d", b.Len())
	}
}

func TestBatcherEnqueueForceReturnsTrueOnDuplicate(t *testing.T) {
	b := NewBatcher(10)

	b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, false)
	if !b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, true) {
		t.Fatalf("a forced re-enqueue of an already-pending hash should still report true")
	}
	if b.Len() != 1 {
		t.Fatalf("a forced duplicate should not add a second pending ref, got %d", b.Len())
	}
}

func TestBatcherFullAtConfiguredSize(t *testing.T) {
	b := NewBatcher(2)

	b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, false)
	if b.Full() {
		t.Fatalf("batch should not be full yet")
	}
	b.Enqueue(indexdb.BlockRef{Hash: hashN(2), Number: 2}, false)
	if !b.Full() {
		t.Fatalf("batch should be full at configured size")
	}
}

func TestBatcherFlushInsertsAndClears(t *testing.T) {
	backend := newTestBackend(t)
	b := NewBatcher(10)

	b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, false)
	b.Enqueue(indexdb.BlockRef{Hash: hashN(2), Number: 2}, false)

	if err := b.Flush(ctx, backend); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("flush should clear pending refs")
	}

	found, err := backend.ContainsHash(ctx, hashN(1))
	if err != nil || !found {
		t.Fatalf("expected hash 1 to be indexed after flush: found=%v err=%v", found, err)
	}

	// Logs extraction runs on an auxiliary pool; give it a moment before
	// asserting nothing broke, without depending on its completion.
	time.Sleep(10 * time.Millisecond)

	if !b.Enqueue(indexdb.BlockRef{Hash: hashN(1), Number: 1}, false) {
		t.Fatalf("a fresh batch after flush should accept a previously-flushed hash again")
	}
}
