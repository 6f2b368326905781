// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

package indexdb

// Table names, centralized so the query builders in backend.go and logs.go
// never hand-repeat a table name that schema.go doesn't also know about.
// Column names are written out in each query.
const (
	tableSyncStatus = "sync_status"
	tableBlocks     = "blocks"
	tableLogs       = "logs"
)

// schemaDDL creates the three tables this package reads and writes. The
// indexer itself never runs this in production — schema provisioning and
// migration are the deploying operator's job. It exists here only so
// integration tests can stand up a throwaway SQLite database without a
// separate migration tool.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS sync_status (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	substrate_block_hash BLOB NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS blocks (
	substrate_block_hash BLOB NOT NULL PRIMARY KEY,
	block_number INTEGER NOT NULL,
	is_canon INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS logs (
	substrate_block_hash BLOB NOT NULL,
	address BLOB NOT NULL,
	topic_1 BLOB NOT NULL,
	topic_2 BLOB NOT NULL,
	topic_3 BLOB NOT NULL,
	topic_4 BLOB NOT NULL,
	log_index INTEGER NOT NULL,
	transaction_index INTEGER NOT NULL
);
`

// secondaryIndexDDL backs CreateIndexes. Deferred to after some data
// exists, since building these against an empty table costs nothing and
// against a large bulk-imported one costs a lot.
const secondaryIndexDDL = `
CREATE INDEX IF NOT EXISTS logs_block_hash_idx ON logs (substrate_block_hash);
CREATE INDEX IF NOT EXISTS logs_address_idx ON logs (address);
CREATE INDEX IF NOT EXISTS logs_topic_1_idx ON logs (topic_1);
CREATE INDEX IF NOT EXISTS logs_topic_2_idx ON logs (topic_2);
CREATE INDEX IF NOT EXISTS logs_topic_3_idx ON logs (topic_3);
CREATE INDEX IF NOT EXISTS logs_topic_4_idx ON logs (topic_4);
CREATE INDEX IF NOT EXISTS blocks_number_idx ON blocks (block_number);
`
