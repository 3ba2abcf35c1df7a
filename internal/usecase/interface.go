package usecase

import (
	"context"
	"time"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

type CatalogProvider interface {
	GetByID(id string) (domain.CatalogEntry, error)
	IDs() []string
}

type JobQueue interface {
	Enqueue(ctx context.Context, job domain.ClassificationJob) error
	AwaitResult(ctx context.Context, jobID string, timeout time.Duration) (domain.JobResult, error)
}
