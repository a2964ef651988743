package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"tarantula/crawl"
	"tarantula/goquery"
	tarhttp "tarantula/http"
	"tarantula/robotstxt"
	tarslog "tarantula/slog"
	"tarantula/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used to archive runs and page results.
	DB *sqlite.DB

	// Coordinator for end-to-end testing.
	Coordinator *crawl.Coordinator
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Coordinator != nil {
		if err := m.Coordinator.Close(); err != nil {
			return err
		}
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("tarantula"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'tarantula --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	fetcher := tarslog.NewFetcher(tarhttp.NewFetcher(), logger)
	extractor := goquery.NewExtractor()
	robots := robotstxt.NewResolver()
	limiter := crawl.NewHostLimiter(crawl.DefaultHostConcurrency)

	opts := []crawl.CoordinatorOption{crawl.WithLogger(logger)}

	switch cmd {
	case "serve":
		m.DB = sqlite.NewDB(m.DBPath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set TARANTULA_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
		}
		deps.DB = m.DB
		deps.Runs = sqlite.NewRunStore(m.DB)
		opts = append(opts, crawl.WithRunStore(deps.Runs))

		sink := tarslog.NewSink(tarhttp.NewCallbackSink(), logger)
		m.Coordinator = crawl.NewCoordinator(fetcher, extractor, robots, limiter, sink, opts...)

	case "crawl":
		// Results go to stdout, so no callback delivery and no database.
		sink := newWriterSink(stdout)
		m.Coordinator = crawl.NewCoordinator(fetcher, extractor, robots, limiter, sink, opts...)
	}
	defer m.Close()

	deps.Runner = m.Coordinator
	deps.Coordinator = m.Coordinator

	return kongCtx.Run(deps)
}

func defaultDBPath() string {
	if path := os.Getenv("TARANTULA_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "tarantula.db"
	}
	dir := filepath.Join(home, ".tarantula")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "tarantula.db")
}
