package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/IlyaPronin461/mushroom-classification/configs"
	"github.com/IlyaPronin461/mushroom-classification/pkg/prometheus"
)

type Bot struct {
	api        TelegramAPI
	states     StateProvider
	catalog    CatalogProvider
	suggester  SuggestProvider
	classifier ImageClassifier
	store      InteractionStore
	fileClient *http.Client
	log        *slog.Logger

	lanes map[int64]chan tgbotapi.Update
	wg    sync.WaitGroup
	jobs  sync.WaitGroup
}

func NewBot(config *configs.Config, states StateProvider, catalog CatalogProvider,
	suggester SuggestProvider, classifier ImageClassifier, store InteractionStore,
	log *slog.Logger) (*Bot, error) {

	api, err := tgbotapi.NewBotAPI(config.TG.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram.NewBot: %w", err)
	}
	api.Client = &http.Client{
		Timeout: config.TG.ConnectionTimeout,
	}

	return &Bot{
		api:        api,
		states:     states,
		catalog:    catalog,
		suggester:  suggester,
		classifier: classifier,
		store:      store,
		fileClient: &http.Client{Timeout: config.TG.ConnectionTimeout},
		log:        log,
		lanes:      make(map[int64]chan tgbotapi.Update),
	}, nil
}

// Run читает обновления и раскладывает их по персональным очередям чатов:
// один горутина-обработчик на чат сохраняет порядок событий пользователя,
// чаты между собой не блокируются.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.closeLanes()
			return
		case update, ok := <-updates:
			if !ok {
				b.closeLanes()
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		return
	}

	lane, ok := b.lanes[chatID]
	if !ok {
		lane = make(chan tgbotapi.Update, 16)
		b.lanes[chatID] = lane
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for upd := range lane {
				b.handleUpdate(ctx, upd)
			}
		}()
	}
	lane <- update
}

func (b *Bot) closeLanes() {
	for _, lane := range b.lanes {
		close(lane)
	}
	b.wg.Wait()
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message != nil {
			return update.CallbackQuery.Message.Chat.ID
		}
		return update.CallbackQuery.From.ID
	case update.InlineQuery != nil:
		return update.InlineQuery.From.ID
	case update.ChosenInlineResult != nil:
		return update.ChosenInlineResult.From.ID
	}
	return 0
}

// Stop останавливает прием обновлений и дожидается завершения уже
// начатых обработчиков и фоновых классификаций.
func (b *Bot) Stop(ctx context.Context) {
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.log.Warn("остановка по таймауту, есть незавершенные классификации")
	}

	active := b.states.ActiveChatIDs(ctx)
	if len(active) > 0 {
		b.log.Info("активные сессии на момент остановки", "count", len(active))
	}
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) {
	if len(text) > 4000 {
		text = text[:4000] + "..."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	b.send(ctx, msg, "text")
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable, kind string) (tgbotapi.Message, error) {
	sent, err := b.api.Send(c)
	if err != nil {
		prometheus.APIFailures.WithLabelValues("send").Inc()
		b.log.Error("ошибка отправки сообщения",
			errorKey, err,
			correlationIDKey, ctx.Value(correlationIDKey))
		return tgbotapi.Message{}, err
	}
	prometheus.MessagesSent.WithLabelValues(kind).Inc()
	return sent, nil
}

func (b *Bot) AnswerCallbackQuery(callbackID string, text string) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	_, err := b.api.Request(cfg)
	return err
}

func (b *Bot) downloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	const op = "Bot.downloadPhoto"

	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve file url: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := b.fileClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch file: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: bad status %d", op, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
