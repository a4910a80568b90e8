package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"bondswap/config"
	"bondswap/core"
	"bondswap/core/genesis"
	"bondswap/native/common"
	"bondswap/observability/logging"
	telemetry "bondswap/observability/otel"
	"bondswap/storage"
	"bondswap/storage/audit"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a JSON or YAML genesis spec (overrides config GenesisFile)")
	replayFlag := flag.String("replay", "", "JSONL request stream to apply after startup (\"-\" reads stdin)")
	serveFlag := flag.Bool("serve", true, "Serve the HTTP query surface after replay")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.SetupWriter(os.Stdout, cfg.Service, cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg, logger, *genesisFlag, *replayFlag, *serveFlag); err != nil {
		logger.Error("bondswapd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, genesisPath, replayPath string, serve bool) error {
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: cfg.Service,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err.Error())
		}
	}()

	db, err := openDatabase(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, logger)
	if err != nil {
		return err
	}
	node.Host().SetMaxDepth(cfg.MaxCallDepth)
	pauses := common.Pauses{}
	for _, name := range cfg.Paused {
		pauses[strings.ToLower(strings.TrimSpace(name))] = true
	}
	node.Host().SetPauses(pauses)
	hub := newEventHub()
	node.Host().SetEmitter(hub)

	var journal *audit.Journal
	if strings.TrimSpace(cfg.Audit.Path) != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}
		dsn, err := audit.FileDSN(cfg.Audit.Path)
		if err != nil {
			return err
		}
		journal, err = audit.Open(dsn)
		if err != nil {
			return fmt.Errorf("open audit journal: %w", err)
		}
		defer journal.Close()
		node.Host().SetJournal(journal)
	}

	if err := ensureGenesis(context.Background(), node, logger, genesisPath, cfg.GenesisFile); err != nil {
		return err
	}

	if replayPath != "" {
		in := os.Stdin
		if replayPath != "-" {
			f, err := os.Open(replayPath)
			if err != nil {
				return fmt.Errorf("open replay stream: %w", err)
			}
			defer f.Close()
			in = f
		}
		stats, err := replay(context.Background(), node, in, logger)
		if err != nil {
			return err
		}
		logger.Info("replay finished", "applied", stats.Applied, "rejected", stats.Rejected)
	}

	if !serve {
		return nil
	}
	limit, err := newRateLimiter(cfg.API.RequestsPerMinute, cfg.API.Burst, cfg.API.TrustedProxies)
	if err != nil {
		return fmt.Errorf("api rate limiter: %w", err)
	}
	opts := serverOptions{
		Auth:       newAuthenticator(cfg.API.AuthSecret(), cfg.API.Issuer, logger),
		Limit:      limit,
		Events:     hub,
		AllowAdmin: cfg.API.AllowAdminRequests,
	}
	if opts.AllowAdmin {
		logger.Warn("fund and advance requests are accepted over HTTP")
	}
	if opts.Auth.enabled() {
		logger.Info("request endpoint requires bearer tokens",
			logging.MaskField("secret", cfg.API.AuthSecret()),
			"issuer", cfg.API.Issuer)
	} else {
		logger.Warn("request endpoint is unauthenticated", "secret_env", cfg.API.AuthSecretEnv)
	}
	return listen(cfg.ListenAddress, newServer(node, journal, opts, logger), logger)
}

func ensureGenesis(ctx context.Context, node *core.Node, logger *slog.Logger, flagPath, cfgPath string) error {
	if _, err := node.Deployment(); err == nil {
		logger.Info("using stored genesis deployment")
		return nil
	} else if !errors.Is(err, core.ErrNotBootstrapped) {
		return err
	}
	path := strings.TrimSpace(flagPath)
	if path == "" {
		path = strings.TrimSpace(cfgPath)
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return err
	}
	_, err = node.Bootstrap(ctx, spec)
	return err
}

func openDatabase(cfg config.StorageConfig) (storage.Database, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendLevelDB:
		db, err := storage.NewLevelDB(cfg.Path, cfg.Sync)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
		db, err := storage.NewBoltDB(cfg.Path, &bolt.Options{NoSync: !cfg.Sync})
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func listen(addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
