package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

//go:embed catalog.json
var catalogData []byte

// Catalog — неизменяемый справочник видов. Загружается один раз при старте,
// порядок записей фиксирован порядком в источнике данных.
type Catalog struct {
	entries []domain.CatalogEntry
	byID    map[string]domain.CatalogEntry
	ids     []string
}

func Load() (*Catalog, error) {
	const op = "catalog.Load"

	var entries []domain.CatalogEntry
	if err := json.Unmarshal(catalogData, &entries); err != nil {
		return nil, fmt.Errorf("%s: failed to parse catalog data: %w", op, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: catalog is empty", op)
	}

	byID := make(map[string]domain.CatalogEntry, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			return nil, fmt.Errorf("%s: entry with empty id", op)
		}
		if _, ok := byID[entry.ID]; ok {
			return nil, fmt.Errorf("%s: duplicate id %q", op, entry.ID)
		}
		byID[entry.ID] = entry
		ids = append(ids, entry.ID)
	}

	return &Catalog{entries: entries, byID: byID, ids: ids}, nil
}

func (c *Catalog) GetByID(id string) (domain.CatalogEntry, error) {
	entry, ok := c.byID[id]
	if !ok {
		return domain.CatalogEntry{}, fmt.Errorf("catalog.GetByID: %q: %w", id, domain.ErrRecordNotFound)
	}
	return entry, nil
}

// IDs возвращает идентификаторы в порядке загрузки каталога.
func (c *Catalog) IDs() []string {
	return c.ids
}

func (c *Catalog) Len() int {
	return len(c.entries)
}
