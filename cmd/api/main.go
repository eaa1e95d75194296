package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skydesk/internal/config"
	"skydesk/internal/continuity"
	"skydesk/internal/effort"
	"skydesk/internal/escalation"
	"skydesk/internal/handler"
	"skydesk/internal/ledger"
	"skydesk/internal/monitor"
	"skydesk/internal/orchestrator"
	"skydesk/internal/reference"
	aiservice "skydesk/internal/service/ai"
	"skydesk/internal/session"
	"skydesk/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	store := session.NewStore(cfg.Core.TurnWindow, cfg.Core.SentimentWindow)
	promiseLedger := ledger.New()
	references := reference.NewStore()
	toolset := tools.MockToolset()

	// The classifier falls back to the keyword extractor when the chat model
	// is not configured.
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn("chat model unavailable, classification runs on heuristics", zap.Error(err))
			chatModel = nil
		} else {
			logger.Info("chat model classifier initialized")
		}
	} else {
		logger.Info("chat model credentials not configured, classification runs on heuristics")
	}

	classifier, err := aiservice.NewService(ctx, chatModel, aiservice.Config{Enabled: chatModel != nil}, logger)
	if err != nil {
		log.Fatalf("failed to initialize classifier: %v", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:      store,
		Classifier: classifier,
		Scorer: effort.NewScorer(effort.Thresholds{
			HighTurns:   cfg.Core.EffortHighTurns,
			MediumTurns: cfg.Core.EffortMediumTurns,
			RepeatLimit: cfg.Core.EffortRepeatLimit,
			SlopeCutoff: cfg.Core.EffortSlopeCutoff,
		}),
		Policy: escalation.NewPolicy(escalation.Thresholds{
			Urgency:        cfg.Core.UrgencyEscalation,
			NegativeStreak: cfg.Core.NegativeStreak,
			StrongNegative: cfg.Core.StrongNegative,
			VoiceRetries:   cfg.Core.VoiceRetryThreshold,
			RepeatLimit:    cfg.Core.EffortRepeatLimit + 1,
		}),
		Ledger:     promiseLedger,
		References: references,
		Continuity: continuity.NewManager(toolset.SMS, toolset.CRM, references, cfg.Tenant, logger),
		Tools:      toolset,
		Core:       cfg.Core,
		Tenant:     cfg.Tenant,
		Logger:     logger,
	})

	watcher := monitor.New(store, toolset.Flights, cfg.Core.MonitorInterval, logger)

	router := handler.NewRouter(orch, watcher, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("skydesk backend listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
