package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaPronin461/mushroom-classification/internal/domain"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 0)
	assert.Len(t, c.IDs(), c.Len())
}

func TestGetByID(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	entry, err := c.GetByID("boletus_edulis")
	require.NoError(t, err)
	assert.Equal(t, "Белый гриб", entry.DisplayName)
	assert.NotEmpty(t, entry.Description)
	assert.NotEmpty(t, entry.ImageURL)

	_, err = c.GetByID("unknown_species")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestIDsOrderIsStable(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, c.IDs(), c.IDs())
	assert.Equal(t, "boletus_edulis", c.IDs()[0])
}
