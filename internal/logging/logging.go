// Copyright 2024 The sqlindexer Authors
// This file is part of the sqlindexer library.
//
// The sqlindexer library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// Package logging wires up github.com/ethereum/go-ethereum/log, the
// structured logger used throughout this repository, the way go-ethereum's
// own cmd/geth does: a terminal-aware color handler on stderr when attached
// to a tty, falling back to a plain handler, plus an optional rotating
// file sink for long-running deployments.
package logging

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	Verbosity log.Lvl

	// FilePath, if non-empty, also writes logs to a size-rotated file
	// using lumberjack's defaults scaled for a long-running indexer.
	FilePath string
}

// Setup installs the root logger used by every package in this repository.
// Call it once, early in main.
func Setup(opts Options) {
	var stderr io.Writer = os.Stderr
	useColor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	if useColor {
		stderr = colorable.NewColorableStderr()
	}

	handler := log.StreamHandler(stderr, log.TerminalFormat(useColor))

	if opts.FilePath != "" {
		fileHandler := log.StreamHandler(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}, log.JSONFormat())
		handler = log.MultiHandler(handler, fileHandler)
	}

	log.Root().SetHandler(log.LvlFilterHandler(opts.Verbosity, handler))
}
