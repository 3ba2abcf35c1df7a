package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IlyaPronin461/mushroom-classification/configs"
	"github.com/IlyaPronin461/mushroom-classification/configs/loader/dotEnvLoader"
	"github.com/IlyaPronin461/mushroom-classification/internal/repository/classifier"
	"github.com/IlyaPronin461/mushroom-classification/internal/repository/queue"
	"github.com/IlyaPronin461/mushroom-classification/internal/worker"
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
	go http.ListenAndServe(":8081", nil)
	log.Info("Starting prometheus at port 8081")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobQueue := queue.New(cfg, log)
	defer jobQueue.Close()

	predictor := classifier.NewRepo(cfg)
	pool := worker.NewPool(jobQueue, predictor, log, cfg.CL.ModelRef, cfg.CL.Workers)

	log.Info("Starting workers", "count", cfg.CL.Workers)
	go func() {
		<-done
		log.Info("Shutting down workers")
		cancel()
	}()

	pool.Run(ctx)
	log.Info("Workers stopped")
}
