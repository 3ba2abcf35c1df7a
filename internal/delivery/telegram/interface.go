package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

type StateProvider interface {
	WithSession(ctx context.Context, chatID int64, fn func(state *domain.SessionState))
	GetCorrelationID(ctx context.Context, chatID int64) string
	ActiveChatIDs(ctx context.Context) []int64
}

type CatalogProvider interface {
	GetByID(id string) (domain.CatalogEntry, error)
}

type SuggestProvider interface {
	Search(query string, limit int) []string
}

type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) ([]domain.ShapedPrediction, error)
}

type InteractionStore interface {
	CreateUser(ctx context.Context, username string, telegramUserID int64) (int64, error)
	SaveInteraction(ctx context.Context, userID int64, queryType string, image []byte, text string) (int64, error)
}

// TelegramAPI — срез методов *tgbotapi.BotAPI, используемых ботом.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}
