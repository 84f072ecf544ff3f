package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"keyrelay/internal/a2a"
	"keyrelay/internal/acp"
	"keyrelay/internal/audit"
	"keyrelay/internal/credential"
	"keyrelay/internal/mcp"
	"keyrelay/internal/ops"
	"keyrelay/internal/platform/config"
	"keyrelay/internal/platform/httpserver"
	"keyrelay/internal/platform/logger"
	"keyrelay/internal/platform/metrics"
	"keyrelay/internal/platform/middleware"
	"keyrelay/internal/session"
	"keyrelay/internal/token"
	"keyrelay/internal/vault"
)

// main wires high-level dependencies and runs the four listeners. Business
// logic lives in the internal packages; everything here is construction and
// lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing credential broker",
		"mcp_addr", cfg.MCPAddr,
		"a2a_addr", cfg.A2AAddr,
		"acp_addr", cfg.ACPAddr,
		"ops_addr", cfg.OpsAddr,
		"demo_vault", cfg.DemoVault,
	)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET_KEY is required")
		os.Exit(1)
	}

	m := metrics.New()

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.DefaultTTLMinutes, log)
	if err != nil {
		log.Error("failed to build token codec", "error", err)
		os.Exit(1)
	}

	gateway, err := buildGateway(cfg, log)
	if err != nil {
		log.Error("failed to build vault gateway", "error", err)
		os.Exit(1)
	}

	sink, err := buildSink(cfg, m, log)
	if err != nil {
		log.Error("failed to build audit sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	sessions, closeSessions, err := buildSessions(cfg, log)
	if err != nil {
		log.Error("failed to build session store", "error", err)
		os.Exit(1)
	}
	defer closeSessions()

	service := credential.NewService(gateway, codec, sink, log,
		credential.WithMetrics(m),
		credential.WithVaultTimeout(cfg.VaultTimeout),
	)

	mcpRouter := newRouter(log)
	mcp.New(service, log).Register(mcpRouter)

	a2aRouter := newRouter(log)
	a2a.New(service, sink, cfg.A2ABearerToken, log).Register(a2aRouter)

	acpRouter := newRouter(log)
	acp.New(service, sessions, log).Register(acpRouter)

	opsRouter := chi.NewRouter()
	opsRouter.Use(middleware.Recovery(log))
	ops.New(service, sink, log).Register(opsRouter)

	servers := map[string]*http.Server{
		cfg.MCPAddr: httpserver.New(cfg.MCPAddr, mcpRouter),
		cfg.A2AAddr: httpserver.New(cfg.A2AAddr, a2aRouter),
		cfg.ACPAddr: httpserver.New(cfg.ACPAddr, acpRouter),
		cfg.OpsAddr: httpserver.New(cfg.OpsAddr, opsRouter),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for addr, srv := range servers {
		addr, srv := addr, srv
		g.Go(func() error {
			log.Info("listener starting", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("graceful shutdown failed", "addr", srv.Addr, "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("broker stopped")
}

// newRouter builds a chi router with the middleware chain shared by every
// protocol front-end.
func newRouter(log *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.ContentTypeJSON)
	return r
}

func buildGateway(cfg config.Config, log *slog.Logger) (credential.VaultGateway, error) {
	if cfg.DemoVault {
		log.Warn("demo vault enabled, serving seeded in-memory credentials")
		return vault.NewDemoFake(), nil
	}
	return vault.NewClient(cfg.VaultHost, cfg.VaultToken, cfg.VaultID, cfg.VaultTimeout, log)
}

func buildSink(cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*audit.Sink, error) {
	floor, err := audit.NewFileFloor(cfg.AuditLogFile)
	if err != nil {
		return nil, err
	}

	opts := []audit.SinkOption{audit.WithMetrics(m)}
	if cfg.KafkaBrokers != "" {
		publisher, err := audit.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		opts = append(opts, audit.WithKafka(publisher))
	}
	return audit.NewSink(cfg.CollectorURL, cfg.CollectorToken, floor, log, opts...), nil
}

func buildSessions(cfg config.Config, log *slog.Logger) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(), func() {}, nil
	}

	store, err := session.NewRedisStore(cfg.RedisAddr, cfg.SessionMaxAge)
	if err != nil {
		return nil, nil, err
	}
	log.Info("session store backed by redis", "addr", cfg.RedisAddr)
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close redis session store", "error", err)
		}
	}, nil
}
