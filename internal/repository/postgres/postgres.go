package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IlyaPronin461/mushroom-classification/configs"
	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

// Store сохраняет пользователей и их запросы. Подключение устанавливается
// с ограниченным числом повторов с фиксированной задержкой.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func New(ctx context.Context, cfg *configs.Config, log *slog.Logger) (*Store, error) {
	const op = "postgres.New"

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?connect_timeout=%d",
		cfg.PG.User, cfg.PG.Password, cfg.PG.Host, cfg.PG.Port, cfg.PG.Database,
		int(cfg.PG.ConnectTimeout.Seconds()))

	var lastErr error
	for attempt := 1; attempt <= cfg.PG.MaxRetries; attempt++ {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info("подключение к БД установлено",
					"host", cfg.PG.Host, "database", cfg.PG.Database)
				return &Store{pool: pool, log: log}, nil
			}
			pool.Close()
		}
		lastErr = err
		log.Warn("ошибка подключения к БД",
			"attempt", attempt,
			"max_retries", cfg.PG.MaxRetries,
			"host", cfg.PG.Host,
			"error", err)
		if attempt == cfg.PG.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(cfg.PG.RetryDelay):
		}
	}

	return nil, fmt.Errorf("%s: connect failed after %d attempts: %w", op, cfg.PG.MaxRetries, lastErr)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramUserID int64) (int64, error) {
	const op = "postgres.GetUserByTelegramID"

	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT telegram_user_id FROM users WHERE telegram_user_id = $1`,
		telegramUserID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, domain.ErrRecordNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CreateUser регистрирует пользователя, если его еще нет. Повторный вызов
// для существующего пользователя возвращает его же идентификатор.
func (s *Store) CreateUser(ctx context.Context, username string, telegramUserID int64) (int64, error) {
	const op = "postgres.CreateUser"

	if id, err := s.GetUserByTelegramID(ctx, telegramUserID); err == nil {
		return id, nil
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (telegram_user_id, username)
		 VALUES ($1, $2)
		 ON CONFLICT (telegram_user_id) DO UPDATE SET username = EXCLUDED.username
		 RETURNING telegram_user_id`,
		telegramUserID, username,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("новый пользователь зарегистрирован",
		"telegram_user_id", id, "username", username)
	return id, nil
}

func (s *Store) SaveInteraction(ctx context.Context, userID int64, queryType string, image []byte, text string) (int64, error) {
	const op = "postgres.SaveInteraction"

	var queryText any
	if text != "" {
		queryText = text
	}
	var imageBytes any
	if len(image) > 0 {
		imageBytes = image
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO interactions (user_id, query_type, query_text, mushroom_image)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, queryType, queryText, imageBytes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}
