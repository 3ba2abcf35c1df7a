package usecase

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

type fakeCatalog struct {
	ids          []string
	descriptions map[string]string
}

func (f *fakeCatalog) IDs() []string { return f.ids }

func (f *fakeCatalog) GetByID(id string) (domain.CatalogEntry, error) {
	description, ok := f.descriptions[id]
	if !ok {
		return domain.CatalogEntry{}, fmt.Errorf("fakeCatalog: %w", domain.ErrRecordNotFound)
	}
	return domain.CatalogEntry{ID: id, DisplayName: id, Description: description}, nil
}

func newFakeCatalog(ids ...string) *fakeCatalog {
	return &fakeCatalog{ids: ids, descriptions: map[string]string{}}
}

func TestSearchSubstring(t *testing.T) {
	catalog := newFakeCatalog(
		"boletus_edulis",
		"suillus_luteus",
		"amanita_muscaria",
		"amanita_phalloides",
	)
	s := NewSuggester(catalog)

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"single match", "edulis", 10, []string{"boletus_edulis"}},
		{"multiple matches sorted", "amanita", 10, []string{"amanita_muscaria", "amanita_phalloides"}},
		{"case and whitespace normalized", "  AMANITA  ", 10, []string{"amanita_muscaria", "amanita_phalloides"}},
		{"no match", "russula", 10, nil},
		{"limit applied before sorting", "u", 2, []string{"boletus_edulis", "suillus_luteus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Search(tt.query, tt.limit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := NewSuggester(newFakeCatalog("boletus_edulis"))
	assert.Empty(t, s.Search("", 10))
	assert.Empty(t, s.Search("   ", 10))
}

func TestSearchCyrillicIDs(t *testing.T) {
	s := NewSuggester(newFakeCatalog("лисичка_обыкновенная", "boletus_edulis"))

	got := s.Search("лисичка", 10)
	assert.Equal(t, []string{"лисичка_обыкновенная"}, got)

	assert.Empty(t, s.Search("grozdovik", 10))
}

func TestSearchProperties(t *testing.T) {
	ids := []string{
		"boletus_edulis", "cantharellus_cibarius", "leccinum_scabrum",
		"suillus_luteus", "lactarius_deliciosus", "amanita_muscaria",
	}
	s := NewSuggester(newFakeCatalog(ids...))

	for _, query := range []string{"us", "a", "l", "scabrum", "ius", "zzz"} {
		for _, limit := range []int{1, 3, 10} {
			result := s.Search(query, limit)
			require.LessOrEqual(t, len(result), limit)
			assert.True(t, sort.StringsAreSorted(result), "query %q limit %d", query, limit)
			for _, id := range result {
				assert.Contains(t, strings.ToLower(id), query)
			}
		}
	}
}
