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
	"testing"
)

func TestMemoryImportExtendsBestChain(t *testing.T) {
	m := NewMemory()
	genesis := m.ImportGenesis()

	h1, err := m.Import(genesis, false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if m.Best() != h1 {
		t.Fatalf("expected best to be h1, got %s", m.Best())
	}

	hdr, found, err := m.Header(context.Background(), h1)
	if err != nil || !found {
		t.Fatalf("header lookup failed: found=%v err=%v", found, err)
	}
	if hdr.ParentHash != genesis || hdr.Number != 1 {
		t.Fatalf("unexpected header %+v", hdr)
	}
}

func TestMemoryImportDetectsReorg(t *testing.T) {
	m := NewMemory()
	genesis := m.ImportGenesis()

	a1, _ := m.Import(genesis, false)
	b1, _ := m.Import(genesis, false)
	b2, err := m.Import(b1, false)
	if err != nil {
		t.Fatalf("import b2: %v", err)
	}

	if m.Best() != b2 {
		t.Fatalf("expected best to be b2, got %s", m.Best())
	}

	route := m.computeRouteLocked(b2, a1)
	if route.CommonBlock != genesis {
		t.Fatalf("expected common ancestor to be genesis, got %s", route.CommonBlock)
	}
	if len(route.Retracted) != 1 || route.Retracted[0] != a1 {
		t.Fatalf("unexpected retracted set: %v", route.Retracted)
	}
	if len(route.Enacted) != 2 || route.Enacted[0] != b1 || route.Enacted[1] != b2 {
		t.Fatalf("unexpected enacted set: %v", route.Enacted)
	}
}

func TestMemoryLeavesTracksTips(t *testing.T) {
	m := NewMemory()
	genesis := m.ImportGenesis()
	a1, _ := m.Import(genesis, false)
	b1, _ := m.Import(genesis, false)

	leaves, err := m.Leaves(context.Background())
	if err != nil {
		t.Fatalf("leaves: %v", err)
	}

	set := map[Hash]bool{}
	for _, h := range leaves {
		set[h] = true
	}
	if !set[a1] || !set[b1] || len(set) != 2 {
		t.Fatalf("expected leaves {a1, b1}, got %v", leaves)
	}
}

func TestMemorySubscribeReceivesNotification(t *testing.T) {
	m := NewMemory()
	genesis := m.ImportGenesis()

	ch, unsubscribe := m.Subscribe(context.Background())
	defer unsubscribe()

	h1, err := m.Import(genesis, true)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	select {
	case n := <-ch:
		if n.Hash != h1 || !n.IsNewBest {
			t.Fatalf("unexpected notification %+v", n)
		}
	default:
		t.Fatalf("expected a notification to be immediately available")
	}
}
