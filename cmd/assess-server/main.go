package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinassess/clinassess/internal/config"
	"github.com/clinassess/clinassess/internal/domain/assessment"
	"github.com/clinassess/clinassess/internal/domain/history"
	"github.com/clinassess/clinassess/internal/platform/db"
	"github.com/clinassess/clinassess/internal/platform/llm"
	"github.com/clinassess/clinassess/internal/platform/middleware"
	"github.com/clinassess/clinassess/internal/platform/predict"
	"github.com/clinassess/clinassess/internal/registry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "assess-server",
		Short: "Clinical assessment orchestration server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the assessment API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered risk models",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Default()
			if err != nil {
				return err
			}
			for _, m := range reg.All() {
				fmt.Printf("%s\n  %s\n", m.ID, m.Description)
				if required := m.RequiredParams(); len(required) > 0 {
					fmt.Printf("  required: %s\n", strings.Join(required, ", "))
				} else {
					fmt.Println("  required: (none)")
				}
			}
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Model registry
	reg, err := registry.Default()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid model registry")
	}

	// Database is optional: without it the server runs, but assessment
	// history is disabled.
	ctx := context.Background()
	var pool *pgxpool.Pool
	var recorder assessment.Recorder
	var historyHandler *history.Handler
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		histSvc := history.NewService(history.NewRepoPG(pool), logger)
		recorder = histSvc
		historyHandler = history.NewHandler(histSvc)
	} else {
		logger.Warn().Msg("DATABASE_URL not set; assessment history is disabled")
		historyHandler = history.NewHandler(nil)
	}

	// Completion backend is optional too: without it /models and the
	// keyword-mode health surface still work, and /api/v1/assessments
	// answers 503.
	var llmClient llm.Client
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.BackendTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create completion client")
		}
		llmClient = client
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set; assessment endpoint will answer 503")
	}

	caller := predict.NewClient(cfg.PredictTimeout)
	invoker := assessment.NewInvoker(caller, cfg.ModelEndpoints, logger)

	var orch *assessment.Orchestrator
	if llmClient != nil {
		var judge assessment.RelevanceJudge
		if cfg.RouterMode == "keyword" {
			judge = assessment.KeywordJudge{}
			logger.Info().Msg("routing with the deterministic keyword judge")
		} else {
			judge = assessment.NewLLMJudge(llmClient)
		}

		orch = assessment.NewOrchestrator(
			reg,
			assessment.NewLLMExtractor(llmClient, reg, logger),
			assessment.NewRouter(judge),
			invoker,
			assessment.NewLLMSynthesizer(llmClient),
			cfg.RequestBudget,
			logger,
		)
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestBudget + 10*time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", "X-API-Key"},
	}))
	e.Use(middleware.APIKeyAuth(cfg.APIKeys))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Handlers
	assessHandler := assessment.NewHandler(orch, reg, llmClient, caller, invoker, recorder, logger)
	assessHandler.RegisterRoutes(e, apiV1)
	historyHandler.RegisterRoutes(apiV1)
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("router_mode", cfg.RouterMode).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
