package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stepline-labs/stepline-go/internal/api"
	"github.com/stepline-labs/stepline-go/internal/assembly"
	"github.com/stepline-labs/stepline-go/internal/platform/auth"
	"github.com/stepline-labs/stepline-go/internal/platform/env"
	"github.com/stepline-labs/stepline-go/internal/platform/httpserver"
	"github.com/stepline-labs/stepline-go/internal/platform/objectstore"
	platformpg "github.com/stepline-labs/stepline-go/internal/platform/postgres"
	"github.com/stepline-labs/stepline-go/internal/registry"
	"github.com/stepline-labs/stepline-go/internal/repo"
	"github.com/stepline-labs/stepline-go/internal/repo/memory"
	objectrepo "github.com/stepline-labs/stepline-go/internal/repo/objectstore"
	pgrepo "github.com/stepline-labs/stepline-go/internal/repo/postgres"
	"github.com/stepline-labs/stepline-go/internal/steps/docproc"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("STEPLINE_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("STEPLINE_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	backend := env.String("STEPLINE_STATE_BACKEND", "memory")
	store, db, cleanup, err := openStateStore(ctx, logger, backend)
	if err != nil {
		logger.Error("state backend unavailable", "backend", backend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	builder := assembly.NewBuilder()
	if err := docproc.RegisterFactories(builder); err != nil {
		logger.Error("register step factories", "error", err)
		os.Exit(2)
	}

	var verifier *auth.Verifier
	authCfg := auth.ConfigFromEnv()
	if authCfg.Enabled() {
		verifier, err = auth.NewVerifier(ctx, authCfg)
		if err != nil {
			logger.Error("oidc verifier init failed", "error", err)
			os.Exit(2)
		}
		logger.Info("bearer token verification enabled", "issuer", authCfg.IssuerURL)
	}

	pipelines := registry.New()
	service := api.New(logger, builder, pipelines, store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz("steplined"))
	mux.HandleFunc("GET /readyz", httpserver.Readyz("steplined", readinessChecks(db)...))

	apiMux := http.NewServeMux()
	service.Register(apiMux)
	mux.Handle("/v1/", auth.Middleware(logger, verifier, apiMux))

	handler := httpserver.Wrap(logger, "steplined", mux)
	if err := httpserver.Run(ctx, logger, httpserver.Config{
		Service:         "steplined",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}, handler); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

// openStateStore selects the repository backend: memory (default), postgres,
// or minio.
func openStateStore(ctx context.Context, logger *slog.Logger, backend string) (repo.StateRepository, *sql.DB, func(), error) {
	switch backend {
	case "memory":
		return memory.New(), nil, func() {}, nil
	case "postgres":
		cfg, err := platformpg.ConfigFromEnv()
		if err != nil {
			return nil, nil, nil, err
		}
		db, err := platformpg.Open(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return pgrepo.NewPipelineStateStore(db), db, func() { _ = db.Close() }, nil
	case "minio":
		cfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			return nil, nil, nil, err
		}
		client, err := objectstore.NewMinIOClient(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := objectstore.EnsureBucket(startupCtx, client, cfg); err != nil {
			return nil, nil, nil, err
		}
		store, err := objectrepo.New(client, cfg.BucketStates, cfg.KeyPrefix)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("object store state backend ready", "bucket", cfg.BucketStates)
		return store, nil, func() {}, nil
	default:
		return nil, nil, nil, &unknownBackendError{backend: backend}
	}
}

func readinessChecks(db *sql.DB) []httpserver.ReadinessCheck {
	if db == nil {
		return nil
	}
	return []httpserver.ReadinessCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
	}}
}

type unknownBackendError struct {
	backend string
}

func (e *unknownBackendError) Error() string {
	return "unknown state backend: " + e.backend
}
