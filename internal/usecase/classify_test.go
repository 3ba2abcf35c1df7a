package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

type fakeQueue struct {
	enqueued []domain.ClassificationJob
	results  []domain.JobResult
	awaitErr []error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job domain.ClassificationJob) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeQueue) AwaitResult(ctx context.Context, jobID string, timeout time.Duration) (domain.JobResult, error) {
	i := len(f.enqueued) - 1
	if i < len(f.awaitErr) && f.awaitErr[i] != nil {
		return domain.JobResult{}, f.awaitErr[i]
	}
	result := f.results[i]
	result.JobID = jobID
	return result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClassifier(queue JobQueue, maxAttempts int) *Classifier {
	sh := NewShaper(shaperCatalog(), 5)
	return NewClassifier(queue, sh, discardLogger(), maxAttempts, time.Second, time.Millisecond)
}

func TestClassifySuccess(t *testing.T) {
	queue := &fakeQueue{
		results: []domain.JobResult{{
			Status: domain.JobStatusCompleted,
			Predictions: []domain.Prediction{
				{ClassName: "amanita_muscaria", Confidence: 91.2},
			},
		}},
	}
	c := newTestClassifier(queue, 3)

	shaped, err := c.Classify(context.Background(), []byte("image"))
	require.NoError(t, err)
	require.Len(t, shaped, 1)
	assert.Equal(t, "🔴 Ядовитый", shaped[0].Description)
	assert.Equal(t, 91.2, shaped[0].Confidence)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, 1, queue.enqueued[0].Attempt)
	assert.NotEmpty(t, queue.enqueued[0].ID)
}

func TestClassifyRetriesOnWorkerFailure(t *testing.T) {
	queue := &fakeQueue{
		results: []domain.JobResult{
			{Status: domain.JobStatusFailed, Error: "model exploded"},
			{Status: domain.JobStatusCompleted, Predictions: []domain.Prediction{
				{ClassName: "boletus_edulis", Confidence: 88.0},
			}},
		},
	}
	c := newTestClassifier(queue, 3)

	shaped, err := c.Classify(context.Background(), []byte("image"))
	require.NoError(t, err)
	require.Len(t, shaped, 1)

	// Та же задача переотправлена со счетчиком попыток.
	require.Len(t, queue.enqueued, 2)
	assert.Equal(t, queue.enqueued[0].ID, queue.enqueued[1].ID)
	assert.Equal(t, 1, queue.enqueued[0].Attempt)
	assert.Equal(t, 2, queue.enqueued[1].Attempt)
}

func TestClassifyExhaustedAttempts(t *testing.T) {
	queue := &fakeQueue{
		results: []domain.JobResult{
			{Status: domain.JobStatusFailed, Error: "boom"},
			{Status: domain.JobStatusFailed, Error: "boom"},
			{Status: domain.JobStatusFailed, Error: "boom"},
		},
	}
	c := newTestClassifier(queue, 3)

	_, err := c.Classify(context.Background(), []byte("image"))
	assert.ErrorIs(t, err, domain.ErrClassificationUnavailable)
	assert.Len(t, queue.enqueued, 3)
}

func TestClassifyRetriesOnAwaitTimeout(t *testing.T) {
	queue := &fakeQueue{
		awaitErr: []error{fmt.Errorf("await: %w", domain.ErrNoResult), nil},
		results: []domain.JobResult{
			{},
			{Status: domain.JobStatusCompleted, Predictions: []domain.Prediction{
				{ClassName: "boletus_edulis", Confidence: 70.0},
			}},
		},
	}
	c := newTestClassifier(queue, 2)

	shaped, err := c.Classify(context.Background(), []byte("image"))
	require.NoError(t, err)
	assert.Len(t, shaped, 1)
	assert.Len(t, queue.enqueued, 2)
}

func TestClassifyStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queue := &fakeQueue{
		awaitErr: []error{ctx.Err()},
		results:  []domain.JobResult{{}},
	}
	c := newTestClassifier(queue, 5)

	_, err := c.Classify(ctx, []byte("image"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, queue.enqueued, 1)
}

func TestClassifyBackoffGrows(t *testing.T) {
	c := newTestClassifier(&fakeQueue{}, 4)
	assert.Equal(t, time.Millisecond, c.backoff(1))
	assert.Equal(t, 2*time.Millisecond, c.backoff(2))
	assert.Equal(t, 4*time.Millisecond, c.backoff(3))
}
