package sessionStates

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

type entry struct {
	mu    sync.Mutex
	state domain.SessionState
}

// SessionStates хранит состояние диалога по chatID. Каждая сессия защищена
// собственным мьютексом: события одного пользователя обрабатываются строго
// по одному, события разных пользователей — параллельно.
type SessionStates struct {
	mu       sync.RWMutex
	sessions map[int64]*entry
}

func NewSessionStates() *SessionStates {
	return &SessionStates{
		sessions: make(map[int64]*entry),
	}
}

func (s *SessionStates) entryFor(chatID int64) *entry {
	s.mu.RLock()
	e, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[chatID]; ok {
		return e
	}
	e = &entry{
		state: domain.SessionState{
			CorrelationID: uuid.New().String(),
			Step:          domain.StepIdle,
		},
	}
	s.sessions[chatID] = e
	return e
}

// WithSession выполняет fn под блокировкой сессии chatID. Сессия создается
// лениво при первом событии пользователя.
func (s *SessionStates) WithSession(ctx context.Context, chatID int64, fn func(state *domain.SessionState)) {
	e := s.entryFor(chatID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

func (s *SessionStates) Reset(ctx context.Context, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

func (s *SessionStates) GetCorrelationID(ctx context.Context, chatID int64) string {
	var id string
	s.WithSession(ctx, chatID, func(state *domain.SessionState) {
		id = state.CorrelationID
	})
	return id
}

func (s *SessionStates) ActiveChatIDs(ctx context.Context) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
