package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/liora/internal/agent"
	"github.com/Kerhoff/liora/internal/api"
	"github.com/Kerhoff/liora/internal/config"
	"github.com/Kerhoff/liora/internal/handlers"
	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/onboarding"
	"github.com/Kerhoff/liora/internal/profile"
	"github.com/Kerhoff/liora/internal/repository/postgres"
	"github.com/Kerhoff/liora/internal/service"
	"github.com/Kerhoff/liora/internal/telegram"
	"github.com/Kerhoff/liora/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting Liora...")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	profileRepo := postgres.NewProfileRepository(db.DB)
	familyRepo := postgres.NewFamilyRepository(db.DB)
	scheduleRepo := postgres.NewScheduleRepository(db.DB)
	vitalRepo := postgres.NewVitalRepository(db.DB)
	inventoryRepo := postgres.NewInventoryRepository(db.DB)

	m := metrics.New()

	// Completion provider
	completer, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		l.Fatalf("Failed to create completion provider: %v", err)
	}
	completer = llm.Instrument(completer, cfg.LLM.Provider, m)

	personas, err := agent.LoadPersonaInstructions(cfg.PersonasFile)
	if err != nil {
		l.Fatalf("Failed to load persona instructions: %v", err)
	}

	// Agents
	codes := onboarding.NewInviteCodes(cfg.InviteCodePrefix)
	reconciler := onboarding.NewReconciler(familyRepo, codes, l, m)
	orchestrator := agent.NewOrchestrator(
		agent.NewOnboarding(completer, reconciler, l, m),
		agent.NewStrategist(completer, scheduleRepo, profileRepo, l, m),
		agent.NewSimulation(completer, vitalRepo, l, m),
		agent.NewPersonaChat(completer, personas, l),
		l, m,
	)

	// Service layer
	applier := profile.NewApplier(profileRepo, familyRepo, codes, profile.NewLocker(), l, m)
	svc := service.New(l, m, profileRepo, familyRepo, scheduleRepo, vitalRepo, inventoryRepo, orchestrator, applier)

	g, ctx := errgroup.WithContext(ctx)

	apiServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewServer(svc, m.Handler(), l).Handler(),
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: m.Handler(),
	}
	serve(ctx, g, l, "HTTP", apiServer)
	serve(ctx, g, l, "Metrics", metricsServer)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(svc, l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("family", handlers.NewFamilyHandler(svc, l))
		bot.RegisterCommand("schedule", handlers.NewScheduleHandler(svc, l))
		bot.SetTextHandler(handlers.NewChatHandler(svc, l))

		g.Go(func() error {
			svc.StartScheduleReminders(ctx, bot.SendMessage)
			return nil
		})
		g.Go(func() error {
			return bot.Start(ctx)
		})
	} else {
		l.Warn("TELEGRAM_TOKEN not set, Telegram bot disabled")
	}

	l.Info("Liora started successfully")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Errorf("Liora stopped with error: %v", err)
		return
	}
	l.Info("Liora stopped")
}

// serve runs srv inside g and shuts it down once ctx is done.
func serve(ctx context.Context, g *errgroup.Group, l *logrus.Logger, name string, srv *http.Server) {
	g.Go(func() error {
		l.Infof("%s server listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		l.Infof("Shutting down %s server...", name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
