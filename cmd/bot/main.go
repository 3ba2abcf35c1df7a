package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IlyaPronin461/mushroom-classification/configs"
	"github.com/IlyaPronin461/mushroom-classification/configs/loader/dotEnvLoader"
	"github.com/IlyaPronin461/mushroom-classification/internal/delivery/telegram"
	"github.com/IlyaPronin461/mushroom-classification/internal/repository/catalog"
	"github.com/IlyaPronin461/mushroom-classification/internal/repository/postgres"
	"github.com/IlyaPronin461/mushroom-classification/internal/repository/queue"
	"github.com/IlyaPronin461/mushroom-classification/internal/repository/sessionStates"
	"github.com/IlyaPronin461/mushroom-classification/internal/usecase"
	"github.com/IlyaPronin461/mushroom-classification/pkg/logger"
	"github.com/IlyaPronin461/mushroom-classification/pkg/prometheus"
)

func main() {

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	loader := dotEnvLoader.DotEnvLoader{}
	cfg := configs.MustLoad(loader)
	log := logger.NewLogger(cfg)

	prometheus.Init()
	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(":8080", nil)
	log.Info("Starting prometheus at port 8080")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	species, err := catalog.Load()
	if err != nil {
		log.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	log.Info("catalog loaded", "species", species.Len())

	jobQueue := queue.New(cfg, log)
	defer jobQueue.Close()

	shaper := usecase.NewShaper(species, cfg.CL.TopK)
	classifier := usecase.NewClassifier(jobQueue, shaper, log,
		cfg.CL.MaxAttempts, cfg.CL.AwaitTimeout, cfg.CL.BackoffBase)
	suggester := usecase.NewSuggester(species)
	states := sessionStates.NewSessionStates()

	bot, err := telegram.NewBot(cfg, states, species, suggester, classifier, store, log)
	if err != nil {
		log.Error("failed to create bot:", "error", err)
		os.Exit(1)
	}
	log.Info("Starting bot")
	go bot.Run(ctx)
	<-done
	log.Info("Shutting down bot")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	bot.Stop(shutdownCtx)
	log.Info("Service stopped")
}
