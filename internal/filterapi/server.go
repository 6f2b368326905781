// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// Package filterapi is a thin, real HTTP surface over the blocks/logs
// tables the indexer writes. It exists to prove the schema is queryable,
// not to approximate JSON-RPC log filtering: no method dispatch, batching,
// or subscriptions.
package filterapi

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/julienschmidt/httprouter"

	"github.com/ethereum/go-ethereum/log"
)

// Server serves GET /logs over a read-only view of the SQL backend's pool.
type Server struct {
	db  *sqlx.DB
	log log.Logger
}

// New returns a Server reading from db.
func New(db *sqlx.DB) *Server {
	return &Server{db: db, log: log.New("component", "filterapi")}
}

// Handler returns the http.Handler to mount.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/logs", s.handleLogs)
	return router
}

// logRow is the JSON shape returned per matching log.
type logRow struct {
	SubstrateBlockHash string `json:"substrateBlockHash" db:"substrate_block_hash"`
	Address            string `json:"address" db:"address"`
	Topic1             string `json:"topic1" db:"topic_1"`
	Topic2             string `json:"topic2" db:"topic_2"`
	Topic3             string `json:"topic3" db:"topic_3"`
	Topic4             string `json:"topic4" db:"topic_4"`
	LogIndex           int    `json:"logIndex" db:"log_index"`
	TransactionIndex   int    `json:"transactionIndex" db:"transaction_index"`
}

type rawLogRow struct {
	SubstrateBlockHash []byte `db:"substrate_block_hash"`
	Address            []byte `db:"address"`
	Topic1             []byte `db:"topic_1"`
	Topic2             []byte `db:"topic_2"`
	Topic3             []byte `db:"topic_3"`
	Topic4             []byte `db:"topic_4"`
	LogIndex           int    `db:"log_index"`
	TransactionIndex   int    `db:"transaction_index"`
}

// handleLogs answers GET /logs?fromBlock=&toBlock=&address=&topic0..3=,
// joining logs to blocks by substrate_block_hash rather than assuming any
// row-count correspondence between the two tables at a given instant — log
// rows may lag their parent block row since log extraction runs on an
// auxiliary worker pool off the indexer's critical path.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()

	fromBlock, err := parseUintOrDefault(q.Get("fromBlock"), 0)
	if err != nil {
		http.Error(w, "invalid fromBlock", http.StatusBadRequest)
		return
	}
	toBlock, err := parseUintOrDefault(q.Get("toBlock"), ^uint64(0))
	if err != nil {
		http.Error(w, "invalid toBlock", http.StatusBadRequest)
		return
	}

	query := `SELECT l.substrate_block_hash, l.address, l.topic_1, l.topic_2, l.topic_3, l.topic_4,
	                 l.log_index, l.transaction_index
	          FROM logs l
	          JOIN blocks b ON b.substrate_block_hash = l.substrate_block_hash
	          WHERE b.is_canon = 1 AND b.block_number BETWEEN ? AND ?`
	args := []interface{}{fromBlock, toBlock}

	if addr := q.Get("address"); addr != "" {
		raw, err := hex.DecodeString(trimHexPrefix(addr))
		if err != nil {
			http.Error(w, "invalid address", http.StatusBadRequest)
			return
		}
		query += " AND l.address = ?"
		args = append(args, raw)
	}

	for i, col := range []string{"topic_1", "topic_2", "topic_3", "topic_4"} {
		key := "topic" + strconv.Itoa(i)
		if t := q.Get(key); t != "" {
			raw, err := hex.DecodeString(trimHexPrefix(t))
			if err != nil {
				http.Error(w, "invalid "+key, http.StatusBadRequest)
				return
			}
			query += " AND l." + col + " = ?"
			args = append(args, raw)
		}
	}

	query += " ORDER BY b.block_number ASC, l.transaction_index ASC, l.log_index ASC"

	var raw []rawLogRow
	if err := s.db.Select(&raw, s.db.Rebind(query), args...); err != nil {
		s.log.Error("logs query failed", "err", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	rows := make([]logRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, logRow{
			SubstrateBlockHash: "0x" + hex.EncodeToString(r.SubstrateBlockHash),
			Address:            "0x" + hex.EncodeToString(r.Address),
			Topic1:             "0x" + hex.EncodeToString(r.Topic1),
			Topic2:             "0x" + hex.EncodeToString(r.Topic2),
			Topic3:             "0x" + hex.EncodeToString(r.Topic3),
			Topic4:             "0x" + hex.EncodeToString(r.Topic4),
			LogIndex:           r.LogIndex,
			TransactionIndex:   r.TransactionIndex,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

func parseUintOrDefault(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
