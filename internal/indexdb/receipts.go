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

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/substrate-evm/sqlindexer/internal/chain"
)

// RuntimeReceiptsAPI decodes the EVM receipts a block carries. The
// substrate-side SCALE decoding of the receipts storage blob happens
// behind this boundary, on the host node, not in this repository; this
// interface is the entire contract owned here.
type RuntimeReceiptsAPI interface {
	EthereumReceipts(ctx context.Context, hash chain.Hash) ([]*gethtypes.ReceiptForStorage, error)
}

// StaticReceiptsAPI is a RuntimeReceiptsAPI backed by an in-memory map,
// used by tests to hand the backend a fixed, known set of receipts per
// block hash without standing up a runtime API call path.
type StaticReceiptsAPI struct {
	byHash map[chain.Hash][]*gethtypes.ReceiptForStorage
}

// NewStaticReceiptsAPI returns an empty StaticReceiptsAPI.
func NewStaticReceiptsAPI() *StaticReceiptsAPI {
	return &StaticReceiptsAPI{byHash: make(map[chain.Hash][]*gethtypes.ReceiptForStorage)}
}

// Set registers the receipts a block should yield.
func (s *StaticReceiptsAPI) Set(hash chain.Hash, receipts []*gethtypes.ReceiptForStorage) {
	s.byHash[hash] = receipts
}

// EthereumReceipts implements RuntimeReceiptsAPI.
func (s *StaticReceiptsAPI) EthereumReceipts(ctx context.Context, hash chain.Hash) ([]*gethtypes.ReceiptForStorage, error) {
	return s.byHash[hash], nil
}
