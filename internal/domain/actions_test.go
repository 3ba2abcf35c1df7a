package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Action
	}{
		{"identify", "identify", Action{Kind: ActionIdentify}},
		{"search", "search", Action{Kind: ActionSearch}},
		{"back", "back", Action{Kind: ActionBack}},
		{"select", "select:boletus_edulis", Action{Kind: ActionSelect, CatalogID: "boletus_edulis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeToken(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTokenUnknown(t *testing.T) {
	for _, token := range []string{"", "delete_all", "select:", "select_boletus", "identify "} {
		_, err := DecodeToken(token)
		assert.ErrorIs(t, err, ErrUnknownAction, "token %q", token)
	}
}

func TestSelectTokenRoundTrip(t *testing.T) {
	token := EncodeSelectToken("amanita_muscaria")
	action, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, ActionSelect, action.Kind)
	assert.Equal(t, "amanita_muscaria", action.CatalogID)
}
