// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package chain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
)

// Memory is a deterministic, in-process Backend used by the syncer test
// suite and by local experimentation: a real (if minimal) block tree
// with explicit control over import order and reorg construction, so
// tests can drive interval indexing, notification indexing, and
// canonicalization scenarios without a live node.
//
// Production deployments do not use Memory: the real Chain Adapter is
// implemented by the host node and is out of this repository's scope.
type Memory struct {
	Notifier

	mu         sync.Mutex
	headers    map[Hash]Header
	leaves     map[Hash]struct{}
	canonical  map[uint64]Hash
	bestHash   Hash
	bestNumber uint64
	nonce      uint64
}

// NewMemory returns an empty chain with no genesis block imported yet.
func NewMemory() *Memory {
	return &Memory{
		headers:   make(map[Hash]Header),
		leaves:    make(map[Hash]struct{}),
		canonical: make(map[uint64]Hash),
	}
}

func (m *Memory) newHash(parent Hash, number uint64) Hash {
	m.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], m.nonce)
	sum := sha256.Sum256(append(append(parent[:], buf[:]...), byte(number)))
	return Hash(sum)
}

// ImportGenesis creates the chain's genesis block (parent = ZeroHash) and
// makes it the best block. It does not emit a notification — genesis
// predates any subscriber.
func (m *Memory) ImportGenesis() Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := m.newHash(ZeroHash, 0)
	header := Header{ParentHash: ZeroHash, Number: 0}
	m.headers[hash] = header
	m.leaves[hash] = struct{}{}
	m.canonical[0] = hash
	m.bestHash = hash
	m.bestNumber = 0
	return hash
}

// Import builds and imports a new block on top of parent. If notify is
// true, an import notification is emitted (IsNewBest set according to the
// longest-chain rule, with a TreeRoute attached when the import reorgs the
// canonical chain).
func (m *Memory) Import(parent Hash, notify bool) (Hash, error) {
	m.mu.Lock()

	parentHeader, ok := m.headers[parent]
	if !ok {
		m.mu.Unlock()
		return Hash{}, fmt.Errorf("chain: unknown parent %s", parent)
	}

	number := parentHeader.Number + 1
	hash := m.newHash(parent, number)
	header := Header{ParentHash: parent, Number: number}
	m.headers[hash] = header
	delete(m.leaves, parent)
	m.leaves[hash] = struct{}{}

	var notification Notification
	isNewBest := number > m.bestNumber
	if isNewBest {
		var route *TreeRoute
		if header.ParentHash != m.bestHash {
			route = m.computeRouteLocked(hash, m.bestHash)
		}
		m.applyCanonicalLocked(hash, number)
		m.bestHash = hash
		m.bestNumber = number
		notification = Notification{Hash: hash, Header: header, IsNewBest: true, TreeRoute: route}
	} else {
		notification = Notification{Hash: hash, Header: header, IsNewBest: false}
	}
	m.mu.Unlock()

	if notify {
		m.Emit(notification)
	}
	return hash, nil
}

// computeRouteLocked walks both chains back to their common ancestor.
// Callers must hold m.mu.
func (m *Memory) computeRouteLocked(newHead, oldHead Hash) *TreeRoute {
	newAncestors := map[Hash]uint64{}
	cur := newHead
	for {
		h := m.headers[cur]
		newAncestors[cur] = h.Number
		if cur == ZeroHash || h.ParentHash == ZeroHash {
			newAncestors[h.ParentHash] = 0
			break
		}
		cur = h.ParentHash
	}

	var common Hash
	var retracted []Hash
	cur = oldHead
	for {
		if _, ok := newAncestors[cur]; ok {
			common = cur
			break
		}
		retracted = append([]Hash{cur}, retracted...)
		h := m.headers[cur]
		cur = h.ParentHash
	}

	var enacted []Hash
	cur = newHead
	for cur != common {
		enacted = append([]Hash{cur}, enacted...)
		h := m.headers[cur]
		cur = h.ParentHash
	}

	return &TreeRoute{Retracted: retracted, Enacted: enacted, CommonBlock: common}
}

// applyCanonicalLocked rewrites the canonical number->hash index for the
// new best chain, from hash back to the point where it already agrees
// with the existing index. Callers must hold m.mu.
func (m *Memory) applyCanonicalLocked(hash Hash, number uint64) {
	cur, num := hash, number
	for {
		if existing, ok := m.canonical[num]; ok && existing == cur {
			return
		}
		m.canonical[num] = cur
		if num == 0 {
			return
		}
		cur = m.headers[cur].ParentHash
		num--
	}
}

// Leaves implements Backend.
func (m *Memory) Leaves(ctx context.Context) ([]Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Hash, 0, len(m.leaves))
	for h := range m.leaves {
		out = append(out, h)
	}
	return out, nil
}

// Header implements Backend.
func (m *Memory) Header(ctx context.Context, hash Hash) (Header, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.headers[hash]
	return h, ok, nil
}

// Best returns the current canonical tip, useful for test assertions.
func (m *Memory) Best() Hash {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bestHash
}
