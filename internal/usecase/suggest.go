package usecase

import (
	"sort"
	"strings"
)

// Suggester подбирает виды каталога по подстроке запроса. Чистая функция
// от каталога и запроса, безопасна для конкурентного вызова.
type Suggester struct {
	catalog CatalogProvider
}

func NewSuggester(catalog CatalogProvider) *Suggester {
	return &Suggester{catalog: catalog}
}

// Search возвращает идентификаторы, содержащие нормализованный запрос как
// подстроку. Совпадения собираются в порядке каталога до limit штук, затем
// сортируются лексикографически. Пустой запрос не дает совпадений.
func (s *Suggester) Search(query string, limit int) []string {
	normalized := normalizeQuery(query)
	if normalized == "" || limit <= 0 {
		return nil
	}

	matches := make([]string, 0, limit)
	for _, id := range s.catalog.IDs() {
		if len(matches) == limit {
			break
		}
		if strings.Contains(strings.ToLower(id), normalized) {
			matches = append(matches, id)
		}
	}

	sort.Strings(matches)
	return matches
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
