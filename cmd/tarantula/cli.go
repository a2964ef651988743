package main

import (
	"context"
	"io"
	"log/slog"

	"tarantula"
	"tarantula/crawl"
	"tarantula/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	DB          *sqlite.DB
	Runner      tarantula.Runner
	Runs        tarantula.RunStore
	Coordinator *crawl.Coordinator
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Serve ServeCmd `cmd:"" help:"Run the crawl API server"`
	Crawl CrawlCmd `cmd:"" help:"Crawl a site once and print results as JSON lines"`
}
