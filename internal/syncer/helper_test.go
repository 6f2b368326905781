// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/substrate-evm/sqlindexer/internal/indexdb"
)

// newTestBackend stands up a throwaway SQLite-backed indexdb.Backend in t's
// temp dir.
func newTestBackend(t *testing.T) *indexdb.Backend {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("sqlindexer-%s.db", t.Name()))
	backend, err := indexdb.New(indexdb.DefaultConfig(dsn), indexdb.NewStaticReceiptsAPI())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	if err := indexdb.CreateSchemaForTests(backend.Pool()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return backend
}

var ctx = context.Background()
