package domain

import "time"

// CatalogEntry описывает один вид гриба из статического каталога.
// Каталог загружается один раз при старте и не изменяется.
type CatalogEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type Prediction struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// ShapedPrediction — предсказание с прикрепленным описанием из каталога,
// готовое к показу пользователю.
type ShapedPrediction struct {
	ClassName   string  `json:"class_name"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ClassificationJob — одна асинхронная задача классификации изображения.
// Payload сериализуется в base64 внутри JSON-документа задачи.
type ClassificationJob struct {
	ID          string    `json:"id"`
	Payload     []byte    `json:"payload"`
	Attempt     int       `json:"attempt"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type JobResult struct {
	JobID       string       `json:"job_id"`
	Status      JobStatus    `json:"status"`
	Predictions []Prediction `json:"predictions,omitempty"`
	Error       string       `json:"error,omitempty"`
}
