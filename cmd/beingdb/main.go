// Command beingdb provides the compile and serve CLI surface, built on
// spf13/cobra the way cmd/magicschema wires its root command, and carrying
// over cmd/server/main.go's signal-driven graceful shutdown sequence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jptmoore/beingdb/internal/compiler"
	"github.com/jptmoore/beingdb/internal/config"
	"github.com/jptmoore/beingdb/internal/engine"
	"github.com/jptmoore/beingdb/internal/httpapi"
	"github.com/jptmoore/beingdb/internal/logging"
	"github.com/jptmoore/beingdb/internal/pack"
)

const (
	serverName    = "beingdb"
	serverVersion = "0.1.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serverName,
		Short:         "BeingDB: a content-addressed fact store and conjunctive query engine",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newCompileCommand())
	root.AddCommand(newServeCommand())
	return root
}

func newCompileCommand() *cobra.Command {
	var sourceDir, packDir, logLevel string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile predicate source files into a fresh pack snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), sourceDir, packDir, logLevel)
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "facts", "directory of predicate source files")
	cmd.Flags().StringVar(&packDir, "pack", "pack", "pack directory to (re)create")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func runCompile(ctx context.Context, sourceDir, packDir, logLevel string) error {
	logger, err := logging.New(logLevel)
	if err != nil {
		return fmt.Errorf("beingdb: %w", err)
	}
	defer logger.Sync()

	summary, err := compiler.Compile(ctx, sourceDir, packDir, logger)
	if err != nil {
		return fmt.Errorf("beingdb: compile failed: %w", err)
	}

	logger.Info("compile finished",
		zap.Int("predicates", len(summary.Predicates)),
		zap.Int("facts_written", summary.TotalFactsWritten),
		zap.Strings("failed_predicates", summary.FailedPredicates))

	if len(summary.FailedPredicates) > 0 {
		return fmt.Errorf("beingdb: %d predicate(s) had an arity violation and were dropped: %v",
			len(summary.FailedPredicates), summary.FailedPredicates)
	}
	return nil
}

func newServeCommand() *cobra.Command {
	var (
		packDir       string
		port          int
		maxResults    int
		maxConcurrent int
		maxIntermed   int
		queryTimeout  string
		logLevel      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries against a compiled pack over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), serveOptions{
				packDir:       packDir,
				port:          port,
				maxResults:    maxResults,
				maxConcurrent: maxConcurrent,
				maxIntermed:   maxIntermed,
				queryTimeout:  queryTimeout,
				logLevel:      logLevel,
			})
		},
	}

	cmd.Flags().StringVar(&packDir, "pack", "pack", "pack directory to serve")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port to listen on")
	cmd.Flags().IntVar(&maxResults, "max-results", 1000, "server-wide result ceiling")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 20, "max concurrent query handlers")
	cmd.Flags().IntVar(&maxIntermed, "max-intermediate-results", 10_000, "join frontier cap")
	cmd.Flags().StringVar(&queryTimeout, "query-timeout", "5s", "per-query deadline")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

type serveOptions struct {
	packDir       string
	port          int
	maxResults    int
	maxConcurrent int
	maxIntermed   int
	queryTimeout  string
	logLevel      string
}

func runServe(ctx context.Context, opts serveOptions) error {
	logger, err := logging.New(opts.logLevel)
	if err != nil {
		return fmt.Errorf("beingdb: %w", err)
	}
	defer logger.Sync()

	cfg := config.DefaultConfig()
	cfg.Server.Port = opts.port
	cfg.Server.PackDir = opts.packDir
	cfg.Server.MaxConcurrent = opts.maxConcurrent
	cfg.Query.MaxResults = opts.maxResults
	cfg.Query.MaxIntermediateResults = opts.maxIntermed
	cfg.Query.QueryTimeout = opts.queryTimeout
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("beingdb: %w", err)
	}

	store, err := pack.Open(cfg.Server.PackDir)
	if err != nil {
		return fmt.Errorf("beingdb: open pack %s: %w", cfg.Server.PackDir, err)
	}
	defer store.Close()

	timeout, err := cfg.Query.Timeout()
	if err != nil {
		return fmt.Errorf("beingdb: %w", err)
	}

	eng := engine.New(store, engine.Safety{
		QueryTimeout:           timeout,
		MaxIntermediateResults: cfg.Query.MaxIntermediateResults,
	})

	srv := httpapi.New(eng, httpapi.Info{Name: serverName, Version: serverVersion},
		cfg.Query.MaxResults, cfg.Server.MaxConcurrent, logger)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("beingdb serving",
		zap.String("addr", addr),
		zap.String("pack", cfg.Server.PackDir),
		zap.String("generation", store.Generation()))

	return srv.ListenAndServe(signalCtx, addr)
}
