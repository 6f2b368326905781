// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package indexdb

import "github.com/jmoiron/sqlx"

// CreateSchemaForTests provisions the sync_status/blocks/logs tables
// against db. It is exported so internal/syncer's integration tests can
// stand up a throwaway database, and exists only for that purpose —
// production deployments provision schema out of band.
func CreateSchemaForTests(db *sqlx.DB) error {
	_, err := db.Exec(schemaDDL)
	return err
}
