package usecase

import (
	"fmt"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

const (
	// ConfidenceThreshold — порог уверенности: ниже него весь результат
	// заменяется единственной записью-заглушкой.
	ConfidenceThreshold = 50.0

	LowConfidenceLabel       = "низкая уверенность"
	LowConfidenceDescription = "Изображение нечеткое, определить вид не удалось. Пожалуйста, переснимите фото при хорошем освещении"
	NoEdibilityInfo          = "Информация о съедобности отсутствует"
)

// Shaper превращает сырые предсказания в готовый к показу результат:
// применяет порог уверенности, обрезает до topK и прикрепляет описания
// из каталога. Детерминированная функция без ввода-вывода.
type Shaper struct {
	catalog CatalogProvider
	topK    int
}

func NewShaper(catalog CatalogProvider, topK int) *Shaper {
	return &Shaper{catalog: catalog, topK: topK}
}

func (sh *Shaper) Shape(predictions []domain.Prediction) []domain.ShapedPrediction {
	if len(predictions) == 0 {
		return nil
	}

	if top := predictions[0].Confidence; top < ConfidenceThreshold {
		return []domain.ShapedPrediction{{
			ClassName:   LowConfidenceLabel,
			Confidence:  top,
			Description: LowConfidenceDescription,
		}}
	}

	limit := sh.topK
	if limit > len(predictions) {
		limit = len(predictions)
	}

	shaped := make([]domain.ShapedPrediction, 0, limit)
	for _, p := range predictions[:limit] {
		shaped = append(shaped, domain.ShapedPrediction{
			ClassName:   p.ClassName,
			Confidence:  p.Confidence,
			Description: sh.describe(p.ClassName),
		})
	}
	return shaped
}

func (sh *Shaper) describe(className string) string {
	entry, err := sh.catalog.GetByID(className)
	if err != nil {
		return fmt.Sprintf("%s. %s", className, NoEdibilityInfo)
	}
	return entry.Description
}
