// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The sqlindexer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.

// Package chain defines the Chain Adapter contract: read access to the
// host node's block tree, independent of any particular substrate client.
package chain

import (
	"encoding/hex"
	"fmt"
)

// Hash identifies a substrate block. It is opaque to the indexer beyond
// its use as a lookup key and a traversal stop sentinel.
type Hash [32]byte

// ZeroHash denotes "below genesis" — the sentinel ancestor traversal stops
// at. It must never be inserted into the cache, the batcher, or the
// database.
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// BytesToHash keeps the last 32 bytes of a longer b (cropping from the
// left) and left-pads a shorter b with zeros, matching the
// convention used throughout the Ethereum tooling this repo borrows types
// from.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return h
}

// Header is the minimal substrate block header the worker needs: its
// parent and its number. is_new_best lives on the Notification, not here,
// because it is a property of an import event, not of the header itself.
type Header struct {
	ParentHash Hash
	Number     uint64
}

func (h Header) String() string {
	return fmt.Sprintf("#%d (parent %s)", h.Number, h.ParentHash)
}

// TreeRoute describes a fork-choice transition: the blocks retracted from
// the canonical chain and the blocks enacted onto it, sharing CommonBlock
// as their most recent common ancestor.
type TreeRoute struct {
	Retracted   []Hash
	Enacted     []Hash
	CommonBlock Hash
}

// Notification is a single import event as delivered by the node.
// TreeRoute is non-nil only when the import changed the canonical chain
// via a reorg rather than a simple extension.
type Notification struct {
	Hash      Hash
	Header    Header
	IsNewBest bool
	TreeRoute *TreeRoute
}
