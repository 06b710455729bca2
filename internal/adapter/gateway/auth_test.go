package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain"
	"toolgate/internal/infra/config"
)

func TestStaticTokenAuth_ValidToken(t *testing.T) {
	auth := NewStaticTokenAuth([]config.GatewayTokenEntry{
		{Token: "tok-a", Name: "agent-a", CallerID: 5, Roles: []string{"editor"}},
		{Token: "tok-b", Name: "agent-b", CallerID: 9},
	})

	info, err := auth.Authenticate("tok-a")
	require.NoError(t, err)
	assert.Equal(t, "agent-a", info.Name)
	assert.Equal(t, int64(5), info.CallerID)
	assert.Equal(t, []string{"editor"}, info.Roles)

	info, err = auth.Authenticate("tok-b")
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.CallerID)
}

func TestStaticTokenAuth_InvalidToken(t *testing.T) {
	auth := NewStaticTokenAuth([]config.GatewayTokenEntry{
		{Token: "tok-a", Name: "agent-a"},
	})

	for _, token := range []string{"", "tok", "tok-a2", "TOK-A"} {
		_, err := auth.Authenticate(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, errors.Is(err, domain.ErrAuthInvalid))
	}
}

func TestStaticTokenAuth_EmptyEntries(t *testing.T) {
	auth := NewStaticTokenAuth(nil)
	_, err := auth.Authenticate("anything")
	assert.Error(t, err)
}
