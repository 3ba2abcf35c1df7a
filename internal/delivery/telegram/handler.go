package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
	"github.com/IlyaPronin461/mushroom-classification/pkg/prometheus"
)

const (
	correlationIDKey = "correlation_id"
	chatIDKey        = "chat_id"
	commandKey       = "command"
	errorKey         = "error"
	successKey       = "success"
	queryKey         = "query"

	suggestionLimit = 10

	msgWelcome = "Привет! Отправь мне фото гриба, и я попробую определить его вид.\n" +
		"Или найди описание гриба по названию."
	msgHelp = "Бот определяет вид гриба по фотографии и ищет описание по названию.\n" +
		"Для начала работы нажмите /start"
	msgUnknownCommand  = "Неизвестная команда.\nВведите /start для начала работы"
	msgAskPhoto        = "Отправьте фото гриба 📷"
	msgAskQuery        = "Введите название гриба"
	msgProcessing      = "Обрабатываю изображение..."
	msgAlreadyPending  = "Предыдущее фото ещё обрабатывается, дождитесь результата"
	msgPhotoNotAwaited = "Сначала выберите «Определить гриб по фото» — /start"
	msgNotFound        = "По запросу ничего не найдено. Попробуйте другое название"
	msgStaleEntry      = "Этот вид не найден в каталоге"
	msgUnavailable     = "Классификация временно недоступна, попробуйте позже"
	msgGenericError    = "Произошла ошибка. Попробуйте еще раз"
	msgFooter          = "P.S. Бот может ошибаться!!! Просьба думать своей головой."
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)

	case update.InlineQuery != nil:
		b.handleInlineQuery(ctx, update.InlineQuery)

	case update.ChosenInlineResult != nil:
		b.handleChosenInlineResult(ctx, update.ChosenInlineResult)

	case update.Message == nil:
		return

	case update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)

	case len(update.Message.Photo) > 0:
		b.handlePhoto(ctx, update.Message)

	default:
		b.handleText(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	command := message.Command()

	startTime := time.Now()
	defer func() {
		prometheus.CommandDuration.WithLabelValues(command).Observe(time.Since(startTime).Seconds())
	}()

	status := successKey
	defer func() {
		prometheus.CommandCounter.WithLabelValues(command, status).Inc()
	}()

	ctx = context.WithValue(ctx, correlationIDKey, b.states.GetCorrelationID(ctx, chatID))

	b.log.Info(
		"Команда получена", chatIDKey, chatID, commandKey, command,
		correlationIDKey, ctx.Value(correlationIDKey))

	switch command {
	case "start":
		b.handleStart(ctx, chatID, userNameOf(message.From))
	case "help":
		b.SendMessage(ctx, chatID, msgHelp)
	default:
		status = errorKey
		b.SendMessage(ctx, chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, username string) {
	b.registerUser(ctx, chatID, username)

	b.states.WithSession(ctx, chatID, func(state *domain.SessionState) {
		state.Step = domain.StepIdle
		state.SuggestionMessageID = 0
	})
	prometheus.ActiveUsers.Set(float64(len(b.states.ActiveChatIDs(ctx))))

	b.sendMainMenu(ctx, chatID, msgWelcome)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.From.ID
	if callback.Message != nil {
		chatID = callback.Message.Chat.ID
	}
	ctx = context.WithValue(ctx, correlationIDKey, b.states.GetCorrelationID(ctx, chatID))

	if err := b.AnswerCallbackQuery(callback.ID, ""); err != nil {
		b.log.Debug("ошибка подтверждения callback",
			chatIDKey, chatID, errorKey, err, correlationIDKey, ctx.Value(correlationIDKey))
	}

	action, err := domain.DecodeToken(callback.Data)
	if err != nil {
		// Неопознанный токен (например, от устаревшей клавиатуры)
		// игнорируется, а не роняет обработчик.
		b.log.Warn("неизвестный callback-токен",
			chatIDKey, chatID, "token", callback.Data,
			correlationIDKey, ctx.Value(correlationIDKey))
		return
	}

	b.log.Info("Выбрано действие",
		chatIDKey, chatID, "action", string(action.Kind),
		correlationIDKey, ctx.Value(correlationIDKey))

	b.states.WithSession(ctx, chatID, func(state *domain.SessionState) {
		switch action.Kind {
		case domain.ActionIdentify:
			state.Step = domain.StepAwaitingPhoto
			state.SuggestionMessageID = 0
			b.SendMessage(ctx, chatID, msgAskPhoto)

		case domain.ActionSearch:
			state.Step = domain.StepAwaitingQuery
			state.SuggestionMessageID = 0
			b.SendMessage(ctx, chatID, msgAskQuery)

		case domain.ActionSelect:
			state.Step = domain.StepIdle
			state.SuggestionMessageID = 0
			b.showDetails(ctx, chatID, action.CatalogID)

		case domain.ActionBack:
			state.Step = domain.StepIdle
			state.SuggestionMessageID = 0
			b.sendMainMenu(ctx, chatID, "Что дальше?")
		}
	})
}

func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	ctx = context.WithValue(ctx, correlationIDKey, b.states.GetCorrelationID(ctx, chatID))

	startTime := time.Now()
	status := successKey
	defer func() {
		prometheus.CommandDuration.WithLabelValues("photo").Observe(time.Since(startTime).Seconds())
		prometheus.CommandCounter.WithLabelValues("photo", status).Inc()
	}()

	var reject string
	b.states.WithSession(ctx, chatID, func(state *domain.SessionState) {
		switch {
		case state.PendingJobID != "":
			reject = msgAlreadyPending
		case state.Step != domain.StepAwaitingPhoto:
			reject = msgPhotoNotAwaited
		default:
			state.PendingJobID = uuid.New().String()
		}
	})
	if reject != "" {
		status = errorKey
		b.SendMessage(ctx, chatID, reject)
		return
	}

	b.SendMessage(ctx, chatID, msgProcessing)

	fileID := message.Photo[len(message.Photo)-1].FileID
	username := userNameOf(message.From)
	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		b.runClassification(ctx, chatID, username, fileID)
	}()
}

// runClassification выполняется вне блокировки сессии: пользователь может
// продолжать искать по названию, пока фото в обработке.
func (b *Bot) runClassification(ctx context.Context, chatID int64, username, fileID string) {
	finish := func() {
		b.states.WithSession(ctx, chatID, func(state *domain.SessionState) {
			state.PendingJobID = ""
			state.Step = domain.StepIdle
		})
	}

	image, err := b.downloadPhoto(ctx, fileID)
	if err != nil {
		b.log.Error("Ошибка загрузки фото",
			chatIDKey, chatID, errorKey, err, correlationIDKey, ctx.Value(correlationIDKey))
		b.SendMessage(ctx, chatID, msgGenericError)
		finish()
		return
	}

	b.saveInteraction(ctx, chatID, username, "photo", image, "")

	shaped, err := b.classifier.Classify(ctx, image)
	finish()
	if err != nil {
		b.log.Error("Ошибка классификации",
			chatIDKey, chatID, errorKey, err, correlationIDKey, ctx.Value(correlationIDKey))
		if errors.Is(err, domain.ErrClassificationUnavailable) {
			b.SendMessage(ctx, chatID, msgUnavailable)
		} else {
			b.SendMessage(ctx, chatID, msgGenericError)
		}
		return
	}

	b.sendPredictions(ctx, chatID, shaped)
}

func (b *Bot) sendPredictions(ctx context.Context, chatID int64, shaped []domain.ShapedPrediction) {
	var sb strings.Builder
	sb.WriteString("Результаты распознавания:\n")
	for i, p := range shaped {
		fmt.Fprintf(&sb, "%d. %s — %.2f%%\n", i+1, p.Description, p.Confidence)
	}
	sb.WriteString("\n" + msgFooter)

	msg := tgbotapi.NewMessage(chatID, sb.String())
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)
	if len(shaped) > 0 {
		if entry, err := b.catalog.GetByID(shaped[0].ClassName); err == nil {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					"Показать фото: "+entry.DisplayName,
					domain.EncodeSelectToken(entry.ID)),
			))
		}
	}
	rows = append(rows, backRow())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(ctx, msg, "text")
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	query := strings.TrimSpace(message.Text)
	ctx = context.WithValue(ctx, correlationIDKey, b.states.GetCorrelationID(ctx, chatID))

	startTime := time.Now()
	status := successKey
	defer func() {
		prometheus.CommandDuration.WithLabelValues("search").Observe(time.Since(startTime).Seconds())
		prometheus.CommandCounter.WithLabelValues("search", status).Inc()
	}()

	b.saveInteraction(ctx, chatID, userNameOf(message.From), "text", nil, query)

	b.states.WithSession(ctx, chatID, func(state *domain.SessionState) {
		if state.Step == domain.StepAwaitingQuery {
			if !b.handleQuery(ctx, chatID, query, state) {
				status = errorKey
			}
			return
		}
		// Свободный текст вне поиска — одноразовый поиск без смены состояния.
		if !b.handleOneShotSearch(ctx, chatID, query) {
			status = errorKey
		}
	})
}

// handleQuery обрабатывает текст в состоянии ожидания запроса. Возвращает
// false, если поиск не дал результата.
func (b *Bot) handleQuery(ctx context.Context, chatID int64, query string, state *domain.SessionState) bool {
	if query == "" {
		b.SendMessage(ctx, chatID, msgAskQuery)
		return false
	}

	matches := b.suggester.Search(query, suggestionLimit)
	b.log.Info("Поиск по названию",
		chatIDKey, chatID, queryKey, query, "matches", len(matches),
		correlationIDKey, ctx.Value(correlationIDKey))

	switch len(matches) {
	case 0:
		b.SendMessage(ctx, chatID, msgNotFound)
		return false
	case 1:
		state.Step = domain.StepIdle
		state.SuggestionMessageID = 0
		b.showDetails(ctx, chatID, matches[0])
		return true
	default:
		b.updateSuggestionList(ctx, chatID, state, matches)
		return true
	}
}

func (b *Bot) handleOneShotSearch(ctx context.Context, chatID int64, query string) bool {
	if query == "" {
		b.SendMessage(ctx, chatID, msgAskQuery)
		return false
	}

	matches := b.suggester.Search(query, suggestionLimit)
	switch len(matches) {
	case 0:
		b.SendMessage(ctx, chatID, msgNotFound)
		return false
	case 1:
		b.showDetails(ctx, chatID, matches[0])
		return true
	default:
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Найдено видов: %d. Выберите:", len(matches)))
		msg.ReplyMarkup = b.suggestionsKeyboard(matches)
		b.send(ctx, msg, "text")
		return true
	}
}

// updateSuggestionList редактирует прошлый список подсказок на месте,
// чтобы не засорять чат; если сообщение устарело — отправляет новое.
func (b *Bot) updateSuggestionList(ctx context.Context, chatID int64, state *domain.SessionState, matches []string) {
	text := fmt.Sprintf("Найдено видов: %d. Выберите или уточните запрос:", len(matches))
	keyboard := b.suggestionsKeyboard(matches)

	if state.SuggestionMessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, state.SuggestionMessageID, text, keyboard)
		if _, err := b.api.Request(edit); err == nil {
			prometheus.MessagesSent.WithLabelValues("edit").Inc()
			return
		}
		b.log.Debug("не удалось отредактировать список подсказок",
			chatIDKey, chatID, correlationIDKey, ctx.Value(correlationIDKey))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	sent, err := b.send(ctx, msg, "text")
	if err == nil {
		state.SuggestionMessageID = sent.MessageID
	}
}

func (b *Bot) showDetails(ctx context.Context, chatID int64, catalogID string) {
	entry, err := b.catalog.GetByID(catalogID)
	if err != nil {
		b.log.Warn("запрошен неизвестный вид",
			chatIDKey, chatID, "catalog_id", catalogID,
			correlationIDKey, ctx.Value(correlationIDKey))
		b.SendMessage(ctx, chatID, msgStaleEntry)
		return
	}

	caption := fmt.Sprintf("%s (%s)\n\n%s", entry.DisplayName, entry.ID, entry.Description)
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(entry.ImageURL))
	photo.Caption = caption
	photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(backRow())
	if _, err = b.send(ctx, photo, "image"); err != nil {
		// Фоллбэк текстом, если референсное фото недоступно.
		b.SendMessage(ctx, chatID, caption)
	}
}

func (b *Bot) handleInlineQuery(ctx context.Context, inline *tgbotapi.InlineQuery) {
	query := strings.TrimSpace(inline.Query)

	var results []interface{}
	if query != "" {
		for _, id := range b.suggester.Search(query, suggestionLimit) {
			entry, err := b.catalog.GetByID(id)
			if err != nil {
				continue
			}
			article := tgbotapi.NewInlineQueryResultArticle(
				entry.ID, entry.DisplayName,
				fmt.Sprintf("%s\n%s", entry.DisplayName, entry.Description))
			article.Description = entry.Description
			results = append(results, article)
		}
	}

	if _, err := b.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: inline.ID,
		IsPersonal:    true,
		CacheTime:     60,
		Results:       results,
	}); err != nil {
		prometheus.APIFailures.WithLabelValues("inline").Inc()
		b.log.Error("ошибка ответа на inline-запрос",
			queryKey, query, errorKey, err)
	}
}

func (b *Bot) handleChosenInlineResult(ctx context.Context, chosen *tgbotapi.ChosenInlineResult) {
	b.log.Info("выбран inline-результат",
		"result_id", chosen.ResultID, "from", chosen.From.ID)
	b.saveInteraction(ctx, chosen.From.ID, userNameOf(chosen.From), "inline", nil, chosen.ResultID)
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Определить гриб по фото 📷", string(domain.ActionIdentify)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Найти гриб по названию 🔍", string(domain.ActionSearch)),
		),
	)
	b.send(ctx, msg, "text")
}

func (b *Bot) suggestionsKeyboard(ids []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ids)+1)
	for _, id := range ids {
		title := id
		if entry, err := b.catalog.GetByID(id); err == nil {
			title = entry.DisplayName
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, domain.EncodeSelectToken(id)),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", string(domain.ActionBack)),
	)
}

func (b *Bot) registerUser(ctx context.Context, chatID int64, username string) {
	if b.store == nil {
		return
	}
	if _, err := b.store.CreateUser(ctx, username, chatID); err != nil {
		b.log.Error("Ошибка регистрации пользователя",
			chatIDKey, chatID, errorKey, err, correlationIDKey, ctx.Value(correlationIDKey))
	}
}

// saveInteraction сохраняет запрос пользователя. Ошибки персистентности
// не прерывают ответ пользователю.
func (b *Bot) saveInteraction(ctx context.Context, chatID int64, username, kind string, image []byte, text string) {
	if b.store == nil {
		return
	}
	userID, err := b.store.CreateUser(ctx, username, chatID)
	if err != nil {
		b.log.Error("Ошибка регистрации пользователя",
			chatIDKey, chatID, errorKey, err, correlationIDKey, ctx.Value(correlationIDKey))
		return
	}
	if _, err = b.store.SaveInteraction(ctx, userID, kind, image, text); err != nil {
		b.log.Error("Ошибка сохранения запроса",
			chatIDKey, chatID, "kind", kind, errorKey, err,
			correlationIDKey, ctx.Value(correlationIDKey))
	}
}

func userNameOf(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}
