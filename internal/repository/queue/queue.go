package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IlyaPronin461/mushroom-classification/configs"
	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
	"github.com/IlyaPronin461/mushroom-classification/pkg/prometheus"
)

const (
	jobsKey        = "classification:jobs"
	resultKeyBase  = "classification:result:"
	modelRefKey    = "classifier:model:ref"
	resultTTL      = time.Hour
	dequeueTimeout = 5 * time.Second
)

// Queue — клиент общего брокера задач на Redis. Задачи кладутся в список
// jobsKey, результат каждой задачи воркер публикует в отдельный список по
// ID задачи, который отправитель читает блокирующим BRPOP. Результаты
// живут не дольше resultTTL.
type Queue struct {
	client *redis.Client
	log    *slog.Logger
}

func New(cfg *configs.Config, log *slog.Logger) *Queue {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RD.Host,
		DB:           cfg.RD.DB,
		Username:     cfg.RD.User,
		Password:     cfg.RD.Password,
		MaxRetries:   cfg.RD.MaxRetries,
		DialTimeout:  cfg.RD.DialTimeout,
		ReadTimeout:  cfg.RD.ReadTimeout,
		WriteTimeout: cfg.RD.WriteTimeout,
	})
	return &Queue{client: client, log: log}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func resultKey(jobID string) string {
	return resultKeyBase + jobID
}

func (q *Queue) Enqueue(ctx context.Context, job domain.ClassificationJob) error {
	const op = "queue.Enqueue"

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%s: marshal job %s: %w", op, job.ID, err)
	}
	if err = q.client.LPush(ctx, jobsKey, payload).Err(); err != nil {
		prometheus.QueueOperations.WithLabelValues("enqueue", "error").Inc()
		return fmt.Errorf("%s: push job %s: %w", op, job.ID, err)
	}
	prometheus.QueueOperations.WithLabelValues("enqueue", "ok").Inc()
	return nil
}

// AwaitResult блокирующе ждет результат задачи не дольше timeout.
// Отсутствие результата — domain.ErrNoResult.
func (q *Queue) AwaitResult(ctx context.Context, jobID string, timeout time.Duration) (domain.JobResult, error) {
	const op = "queue.AwaitResult"

	values, err := q.client.BRPop(ctx, timeout, resultKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		prometheus.QueueOperations.WithLabelValues("await", "timeout").Inc()
		return domain.JobResult{}, fmt.Errorf("%s: job %s: %w", op, jobID, domain.ErrNoResult)
	}
	if err != nil {
		prometheus.QueueOperations.WithLabelValues("await", "error").Inc()
		return domain.JobResult{}, fmt.Errorf("%s: job %s: %w", op, jobID, err)
	}

	var result domain.JobResult
	if err = json.Unmarshal([]byte(values[1]), &result); err != nil {
		return domain.JobResult{}, fmt.Errorf("%s: unmarshal result for job %s: %w", op, jobID, err)
	}
	prometheus.QueueOperations.WithLabelValues("await", "ok").Inc()
	return result, nil
}

// Dequeue забирает следующую задачу. Если задач нет, возвращает
// domain.ErrNoResult после короткого ожидания, чтобы воркер мог
// проверить отмену контекста.
func (q *Queue) Dequeue(ctx context.Context) (domain.ClassificationJob, error) {
	const op = "queue.Dequeue"

	values, err := q.client.BRPop(ctx, dequeueTimeout, jobsKey).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ClassificationJob{}, fmt.Errorf("%s: %w", op, domain.ErrNoResult)
	}
	if err != nil {
		prometheus.QueueOperations.WithLabelValues("dequeue", "error").Inc()
		return domain.ClassificationJob{}, fmt.Errorf("%s: %w", op, err)
	}

	var job domain.ClassificationJob
	if err = json.Unmarshal([]byte(values[1]), &job); err != nil {
		return domain.ClassificationJob{}, fmt.Errorf("%s: unmarshal job: %w", op, err)
	}
	prometheus.QueueOperations.WithLabelValues("dequeue", "ok").Inc()
	return job, nil
}

func (q *Queue) PublishResult(ctx context.Context, result domain.JobResult) error {
	const op = "queue.PublishResult"

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%s: marshal result for job %s: %w", op, result.JobID, err)
	}

	key := resultKey(result.JobID)
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.Expire(ctx, key, resultTTL)
	if _, err = pipe.Exec(ctx); err != nil {
		prometheus.QueueOperations.WithLabelValues("publish", "error").Inc()
		return fmt.Errorf("%s: publish result for job %s: %w", op, result.JobID, err)
	}
	prometheus.QueueOperations.WithLabelValues("publish", "ok").Inc()
	return nil
}

// ResolveModelRef возвращает ссылку на веса модели из общего кеша,
// при промахе записывает fallback. Кешируется только ссылка, сам объект
// модели никогда не сериализуется.
func (q *Queue) ResolveModelRef(ctx context.Context, fallback string) (string, error) {
	const op = "queue.ResolveModelRef"

	ref, err := q.client.Get(ctx, modelRefKey).Result()
	if err == nil && ref != "" {
		return ref, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err = q.client.SetNX(ctx, modelRefKey, fallback, 0).Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	// Повторное чтение: другой воркер мог успеть записать свою ссылку.
	ref, err = q.client.Get(ctx, modelRefKey).Result()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return ref, nil
}
