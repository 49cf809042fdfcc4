package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/datastore"
	"github.com/glimpsehq/glimpse-engine/pkg/handlers"
	"github.com/glimpsehq/glimpse-engine/pkg/logging"
	"github.com/glimpsehq/glimpse-engine/pkg/mcp"
	"github.com/glimpsehq/glimpse-engine/pkg/mcp/tools"
	"github.com/glimpsehq/glimpse-engine/pkg/orchestrator"
	"github.com/glimpsehq/glimpse-engine/pkg/resources"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
	"github.com/glimpsehq/glimpse-engine/pkg/validation"
)

// Version is set at build time via ldflags
var Version = "dev"

const serviceName = "glimpse-engine"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("llm_provider", cfg.LLM.Provider))

	ctx := context.Background()

	// Migrations run over database/sql; the serving path uses pgxpool.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := datastore.RunMigrations(migrationDB, "migrations", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := datastore.NewConnection(ctx, &datastore.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(jwksClient, logger)

	registry := resources.NewRegistry()
	pipeline := validation.NewWithOptions(registry, validation.Options{
		AbortEarly:       cfg.Engine.AbortEarly,
		InjectionAsError: cfg.Engine.InjectionAsError,
	}, logger)

	queryService := services.NewQueryService(db, registry, cfg.Engine, logger)
	chartService := services.NewChartService(logger)
	summaryService := services.NewSummaryService(cfg.Alerts.DeadbandPercent, cfg.Alerts.ZScoreThreshold, logger)
	usageGate := services.NewUsageGate(db, cfg.Engine.DailyToolQuota, logger)

	alertConfig, err := services.LoadAlertConfig(cfg.Alerts.ThresholdsFile)
	if err != nil {
		logger.Fatal("Failed to load alert thresholds", zap.Error(err))
	}
	alertService := services.NewAlertService(alertConfig, logger)

	mcpServer := mcp.NewServer(serviceName, cfg.Version, logger)
	deps := &tools.Deps{
		Pipeline: pipeline,
		Query:    queryService,
		Chart:    chartService,
		Summary:  summaryService,
		Gate:     usageGate,
		Logger:   logger,
	}
	tools.RegisterEngineTools(mcpServer.MCP(), deps)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	mcpHandler := handlers.NewMCPHandler(mcpServer, logger)
	mcpHandler.RegisterRoutes(mux, authMiddleware)

	alertsHandler := handlers.NewAlertsHandler(alertService, logger)
	alertsHandler.RegisterRoutes(mux, authMiddleware)

	// The ask endpoint needs a provider API key; without one the engine
	// still serves MCP and alert evaluation.
	dispatcher := orchestrator.NewEngineDispatcher(pipeline, queryService, chartService, summaryService, usageGate, logger)
	orch, err := orchestrator.New(cfg.LLM, dispatcher, logger)
	if err != nil {
		logger.Info("Ask endpoint disabled", zap.Error(err))
	} else {
		askHandler := handlers.NewAskHandler(orch, logger)
		askHandler.RegisterRoutes(mux, authMiddleware)
	}

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting glimpse-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
