package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

type fakeConsumer struct {
	published []domain.JobResult
	modelRef  string
}

func (f *fakeConsumer) Dequeue(ctx context.Context) (domain.ClassificationJob, error) {
	return domain.ClassificationJob{}, domain.ErrNoResult
}

func (f *fakeConsumer) PublishResult(ctx context.Context, result domain.JobResult) error {
	f.published = append(f.published, result)
	return nil
}

func (f *fakeConsumer) ResolveModelRef(ctx context.Context, fallback string) (string, error) {
	if f.modelRef != "" {
		return f.modelRef, nil
	}
	return fallback, nil
}

type fakePredictor struct {
	predictions []domain.Prediction
	err         error
	gotModelRef string
	calls       int
}

func (f *fakePredictor) Predict(ctx context.Context, imagePath string, modelRef string) ([]domain.Prediction, error) {
	f.calls++
	f.gotModelRef = modelRef
	if f.err != nil {
		return nil, f.err
	}
	return f.predictions, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleSuccess(t *testing.T) {
	consumer := &fakeConsumer{}
	predictor := &fakePredictor{
		predictions: []domain.Prediction{
			{ClassName: "boletus_edulis", Confidence: 90.5},
			{ClassName: "suillus_luteus", Confidence: 4.2},
		},
	}
	pool := NewPool(consumer, predictor, testLogger(), "vit-mushrooms-v1", 2)

	job := domain.ClassificationJob{ID: "job-1", Payload: []byte("jpeg"), Attempt: 1}
	pool.Handle(context.Background(), job)

	require.Len(t, consumer.published, 1)
	result := consumer.published[0]
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, domain.JobStatusCompleted, result.Status)
	assert.Equal(t, predictor.predictions, result.Predictions)
	assert.Equal(t, "vit-mushrooms-v1", predictor.gotModelRef)
}

func TestHandlePredictorFailure(t *testing.T) {
	consumer := &fakeConsumer{}
	predictor := &fakePredictor{err: errors.New("model exploded")}
	pool := NewPool(consumer, predictor, testLogger(), "vit-mushrooms-v1", 1)

	pool.Handle(context.Background(), domain.ClassificationJob{ID: "job-2", Payload: []byte("jpeg")})

	require.Len(t, consumer.published, 1)
	result := consumer.published[0]
	assert.Equal(t, domain.JobStatusFailed, result.Status)
	assert.Contains(t, result.Error, "model exploded")
	assert.Empty(t, result.Predictions)
}

func TestHandleEmptyPayload(t *testing.T) {
	consumer := &fakeConsumer{}
	predictor := &fakePredictor{}
	pool := NewPool(consumer, predictor, testLogger(), "ref", 1)

	pool.Handle(context.Background(), domain.ClassificationJob{ID: "job-3"})

	require.Len(t, consumer.published, 1)
	assert.Equal(t, domain.JobStatusFailed, consumer.published[0].Status)
	assert.Zero(t, predictor.calls)
}

func TestHandleTruncatesToFive(t *testing.T) {
	consumer := &fakeConsumer{}
	predictor := &fakePredictor{
		predictions: []domain.Prediction{
			{ClassName: "a", Confidence: 50}, {ClassName: "b", Confidence: 20},
			{ClassName: "c", Confidence: 15}, {ClassName: "d", Confidence: 10},
			{ClassName: "e", Confidence: 4}, {ClassName: "f", Confidence: 1},
		},
	}
	pool := NewPool(consumer, predictor, testLogger(), "ref", 1)

	pool.Handle(context.Background(), domain.ClassificationJob{ID: "job-4", Payload: []byte("jpeg")})

	require.Len(t, consumer.published, 1)
	assert.Len(t, consumer.published[0].Predictions, 5)
}

// Повторная доставка той же задачи (at-least-once) дает тот же результат.
func TestHandleIdempotent(t *testing.T) {
	consumer := &fakeConsumer{}
	predictor := &fakePredictor{
		predictions: []domain.Prediction{{ClassName: "boletus_edulis", Confidence: 80}},
	}
	pool := NewPool(consumer, predictor, testLogger(), "ref", 1)

	job := domain.ClassificationJob{ID: "job-5", Payload: []byte("jpeg"), Attempt: 1}
	pool.Handle(context.Background(), job)
	pool.Handle(context.Background(), job)

	require.Len(t, consumer.published, 2)
	assert.Equal(t, consumer.published[0], consumer.published[1])
}
