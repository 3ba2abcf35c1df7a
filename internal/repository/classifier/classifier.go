package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/IlyaPronin461/mushroom-classification/configs"
	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

const maxPredictions = 5

// Repo — HTTP-клиент сервиса предсказаний. Используется только воркерами.
type Repo struct {
	Path   string
	Client *http.Client
}

func NewRepo(config *configs.Config) *Repo {
	return &Repo{
		Path: config.CL.Path,
		Client: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// Predict отправляет изображение на классификацию и возвращает до пяти
// предсказаний, упорядоченных сервисом по убыванию уверенности (проценты
// в [0,100]). Порядок не пересортировывается.
func (repo *Repo) Predict(ctx context.Context, imagePath string, modelRef string) ([]domain.Prediction, error) {
	const op = "classifier.Predict"

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: read image %s: %w", op, imagePath, err)
	}

	body, err := json.Marshal(struct {
		Image    []byte `json:"image"`
		ModelRef string `json:"model_ref"`
	}{
		Image:    image,
		ModelRef: modelRef,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	resp, err := repo.doRequest(ctx, "predict", body)
	if err != nil {
		return nil, err
	}

	var prediction struct {
		Predictions []struct {
			ClassName  string  `json:"class_name"`
			Confidence float64 `json:"confidence"`
		} `json:"predictions"`
	}
	if err = json.Unmarshal(resp, &prediction); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	result := make([]domain.Prediction, 0, maxPredictions)
	for _, p := range prediction.Predictions {
		if len(result) == maxPredictions {
			break
		}
		result = append(result, domain.Prediction{
			ClassName:  p.ClassName,
			Confidence: p.Confidence,
		})
	}
	return result, nil
}

func (repo *Repo) doRequest(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	const op = "Repo.doRequest"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, repo.Path+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request:%w", op, err)
	}
	req.Header.Add("accept", "application/json")
	req.Header.Add("Content-Type", "application/json")

	resp, err := repo.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s: bad status %d, response: %s", op, resp.StatusCode, respBody)
	}

	return io.ReadAll(resp.Body)
}
