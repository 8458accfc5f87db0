package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/api"
	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/pdftext"
	"github.com/dgallion1/pdfqa/internal/pipeline"
	"github.com/dgallion1/pdfqa/internal/questions"
	"github.com/dgallion1/pdfqa/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := config.LoadDotenv(); err != nil {
		log.Warn("ignoring env file", "error", err)
	}
	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	bank, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		log.Error("load questions", "error", err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.CacheDBPath)
	if err != nil {
		log.Error("open answer cache", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	client, err := llm.New(cfg.LLMProvider, cfg.LLMOptions(), cfg.Credentials())
	if err != nil {
		log.Error("llm client", "error", err)
		os.Exit(1)
	}
	stats := llm.NewStats(5 * time.Minute)
	extractor := pdftext.NewExtractor(cfg.ExtractorOptions(), log)

	// Initialize pipeline.
	engine := answer.NewEngine(client, cfg.AnswerConfig(), stats, log)
	runner := pipeline.NewRunner(engine, bank, st, cfg.PipelineConfig(), log)
	orch := pipeline.NewOrchestrator(
		cfg.OrchestratorConfig(),
		pipeline.NewWorker(extractor, runner, log),
		pipeline.NewRunStore(cfg.RunCacheSize, cfg.RunTTL),
		log,
	)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, extractor, st, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if c, ok := client.(interface{ Close() }); ok {
			c.Close()
		}
		st.Close()
	}()

	log.Info("starting pdfqa",
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"questions", bank.Len(),
		"pdf_methods", extractor.Methods(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
