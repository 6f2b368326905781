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

	"github.com/ethereum/go-ethereum/event"
)

// Notifier multiplexes import notifications to any number of subscribers
// using go-ethereum's event.Feed, the same primitive the upstream client
// uses to fan out ChainHeadEvent. Backend implementations embed it rather
// than rolling their own broadcast channel management.
type Notifier struct {
	feed event.Feed
}

// Emit broadcasts notification to every current subscriber and returns the
// number of subscribers it was delivered to. Safe for concurrent use.
func (n *Notifier) Emit(notification Notification) int {
	return n.feed.Send(notification)
}

// Subscribe implements the relevant half of Backend. The returned channel
// is buffered so a slow SyncWorker dilates its own poll rate rather than
// blocking the node's import path — that backpressure is the node side's
// responsibility, not the worker's.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Notification, func()) {
	ch := make(chan Notification, 64)
	sub := n.feed.Subscribe(ch)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		sub.Unsubscribe()
	}()

	return ch, func() { close(done) }
}
