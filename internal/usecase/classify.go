package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
	"github.com/IlyaPronin461/mushroom-classification/pkg/prometheus"
)

// Classifier ставит задачи классификации на общий брокер и ждет результат.
// Ошибка воркера приводит к повторной постановке той же задачи с
// экспоненциальной задержкой; после maxAttempts попыток возвращается
// domain.ErrClassificationUnavailable.
type Classifier struct {
	queue        JobQueue
	shaper       *Shaper
	log          *slog.Logger
	maxAttempts  int
	awaitTimeout time.Duration
	backoffBase  time.Duration
}

func NewClassifier(queue JobQueue, shaper *Shaper, log *slog.Logger,
	maxAttempts int, awaitTimeout, backoffBase time.Duration) *Classifier {
	return &Classifier{
		queue:        queue,
		shaper:       shaper,
		log:          log,
		maxAttempts:  maxAttempts,
		awaitTimeout: awaitTimeout,
		backoffBase:  backoffBase,
	}
}

func (c *Classifier) Classify(ctx context.Context, image []byte) ([]domain.ShapedPrediction, error) {
	const op = "useCase.Classify"

	startTime := time.Now()
	defer func() {
		prometheus.ClassificationDuration.Observe(time.Since(startTime).Seconds())
	}()

	job := domain.ClassificationJob{
		ID:          uuid.New().String(),
		Payload:     image,
		SubmittedAt: time.Now(),
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		job.Attempt = attempt

		if err := c.queue.Enqueue(ctx, job); err != nil {
			prometheus.ClassificationJobs.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		result, err := c.queue.AwaitResult(ctx, job.ID, c.awaitTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			c.log.Warn("результат задачи не получен",
				"job_id", job.ID, "attempt", attempt, "error", err)
		} else if result.Status == domain.JobStatusCompleted {
			prometheus.ClassificationJobs.WithLabelValues("completed").Inc()
			return c.shaper.Shape(result.Predictions), nil
		} else {
			c.log.Warn("воркер сообщил об ошибке классификации",
				"job_id", job.ID, "attempt", attempt, "error", result.Error)
		}

		if attempt == c.maxAttempts {
			break
		}
		prometheus.ClassificationRetries.Inc()
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	prometheus.ClassificationJobs.WithLabelValues("unavailable").Inc()
	c.log.Error("классификация не удалась после всех попыток",
		"job_id", job.ID, "attempts", c.maxAttempts)
	return nil, fmt.Errorf("%s: job %s: %w", op, job.ID, domain.ErrClassificationUnavailable)
}

func (c *Classifier) backoff(attempt int) time.Duration {
	return c.backoffBase << (attempt - 1)
}

func (c *Classifier) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
