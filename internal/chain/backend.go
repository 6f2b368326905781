// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package chain

import "context"

// Backend is the Chain Adapter contract consumed by the SyncWorker. A real
// deployment implements it against the host substrate node; this repo
// ships only Memory, an in-memory reference implementation used by tests
// and local experimentation (see fake.go).
type Backend interface {
	// Leaves returns the current tip hashes of every branch the node
	// knows about.
	Leaves(ctx context.Context) ([]Hash, error)

	// Header looks up a block's header. The second return value is false
	// when the node has no record of hash.
	Header(ctx context.Context, hash Hash) (Header, bool, error)

	// Subscribe returns a channel of import notifications and an unsubscribe
	// function. Calling unsubscribe (or cancelling ctx) stops delivery; the
	// Notifier-based implementation never closes the channel.
	Subscribe(ctx context.Context) (<-chan Notification, func())
}
