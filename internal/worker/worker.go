package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
	"github.com/IlyaPronin461/mushroom-classification/pkg/prometheus"
)

type Consumer interface {
	Dequeue(ctx context.Context) (domain.ClassificationJob, error)
	PublishResult(ctx context.Context, result domain.JobResult) error
	ResolveModelRef(ctx context.Context, fallback string) (string, error)
}

type Predictor interface {
	Predict(ctx context.Context, imagePath string, modelRef string) ([]domain.Prediction, error)
}

// Pool — группа воркеров, разбирающих задачи классификации с общего
// брокера. Брокер дает at-least-once доставку, поэтому обработка одной
// и той же задачи повторно безопасна: классификация идемпотентна.
type Pool struct {
	queue    Consumer
	predict  Predictor
	log      *slog.Logger
	modelRef string
	workers  int
}

func NewPool(queue Consumer, predict Predictor, log *slog.Logger, modelRef string, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:    queue,
		predict:  predict,
		log:      log,
		modelRef: modelRef,
		workers:  workers,
	}
}

// Run запускает воркеров и блокируется до отмены контекста.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.work(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) work(ctx context.Context, workerID int) {
	log := p.log.With("worker_id", workerID)
	log.Info("воркер запущен")

	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("воркер остановлен")
				return
			}
			if !errors.Is(err, domain.ErrNoResult) {
				log.Error("ошибка чтения очереди", "error", err)
			}
			continue
		}
		p.Handle(ctx, job)
	}
}

// Handle обрабатывает одну задачу и публикует терминальный результат.
// Ошибка предсказания не роняет воркера — она уходит отправителю,
// который решает про повтор.
func (p *Pool) Handle(ctx context.Context, job domain.ClassificationJob) {
	log := p.log.With("job_id", job.ID, "attempt", job.Attempt)
	log.Info("обработка задачи классификации", "payload_bytes", len(job.Payload))

	predictions, err := p.classify(ctx, job)
	result := domain.JobResult{JobID: job.ID}
	if err != nil {
		log.Error("классификация не удалась", "error", err)
		result.Status = domain.JobStatusFailed
		result.Error = err.Error()
	} else {
		result.Status = domain.JobStatusCompleted
		result.Predictions = predictions
	}

	if err = p.queue.PublishResult(ctx, result); err != nil {
		log.Error("ошибка публикации результата", "error", err)
	}
}

func (p *Pool) classify(ctx context.Context, job domain.ClassificationJob) ([]domain.Prediction, error) {
	const op = "worker.classify"

	if len(job.Payload) == 0 {
		return nil, fmt.Errorf("%s: job %s has empty payload", op, job.ID)
	}

	imagePath, cleanup, err := writeTempImage(job.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cleanup()

	modelRef, err := p.queue.ResolveModelRef(ctx, p.modelRef)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve model ref: %w", op, err)
	}

	predictions, err := p.predict.Predict(ctx, imagePath, modelRef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("%s: empty prediction for job %s", op, job.ID)
	}
	if len(predictions) > 5 {
		predictions = predictions[:5]
	}

	prometheus.ClassificationJobs.WithLabelValues("predicted").Inc()
	return predictions, nil
}

func writeTempImage(payload []byte) (string, func(), error) {
	file, err := os.CreateTemp("", "mushroom-*.jpg")
	if err != nil {
		return "", nil, err
	}
	path := file.Name()
	cleanup := func() { os.Remove(path) }

	if _, err = file.Write(payload); err != nil {
		file.Close()
		cleanup()
		return "", nil, err
	}
	if err = file.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
