package main

import (
	"os"

	"github.com/nimasrn/finance-ledger/internal/bootstrap"
	"github.com/nimasrn/finance-ledger/internal/config"
	"github.com/nimasrn/finance-ledger/internal/handlers"
	"github.com/nimasrn/finance-ledger/internal/idempotency"
	xhttp "github.com/nimasrn/finance-ledger/pkg/http"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/prom"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(config.EnvPathFromArgs(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if cfg.LogLevel != "" || cfg.LogEnv != "" {
		if _, err = logger.Init(cfg.LogEnv, cfg.LogLevel); err != nil {
			logger.Warn("invalid log settings, keeping defaults", "error", err)
		}
	}
	logger.Info("starting ledger api", "version", version, "commit", commit, "date", date)

	db, err := bootstrap.OpenDB(cfg)
	if err != nil {
		logger.Error("failed opening database", "error", err)
		return
	}
	adapter, err := bootstrap.Redis(cfg)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}
	svc := bootstrap.NewServices(db, bootstrap.Locker(cfg, adapter))

	if cfg.AppDebugMetricsAddr != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create prometheus metrics", "error", err)
			return
		}
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption())
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.RequestTimeout()))
	if adapter != nil {
		s.Use(idempotency.Middleware(idempotency.NewStore(adapter, idempotency.DefaultConfig())))
	}

	g := s.Router.Group("/api/v1")
	handlers.RegisterLedgerRoutes(g, handlers.NewLedgerHandler(svc.Ledger))
	handlers.RegisterCatalogRoutes(g, handlers.NewCatalogHandler(svc.Catalog))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(db))

	s.CloseOnSignal()
	if err = s.ListenAndServe(cfg.HttpListenAddr); err != nil {
		logger.Error("error in running http-server", "error", err)
	}
}
