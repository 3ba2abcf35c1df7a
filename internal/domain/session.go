package domain

const (
	StepIdle          = "idle"
	StepAwaitingPhoto = "awaiting_photo"
	StepAwaitingQuery = "awaiting_query"
)

// SessionState — состояние диалога одного пользователя.
// Изменяется только под блокировкой своего чата (см. sessionStates).
type SessionState struct {
	CorrelationID string
	Step          string
	// PendingJobID непустой, пока фото пользователя обрабатывается воркерами.
	PendingJobID string
	// SuggestionMessageID — последнее отправленное сообщение со списком
	// подсказок, редактируется на месте при уточнении запроса.
	SuggestionMessageID int
}
