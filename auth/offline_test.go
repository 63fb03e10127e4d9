package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modpack-launcher/model"
)

func TestAuthenticateConfiguredName(t *testing.T) {
	a := NewOffline("  Steve ")
	a.now = func() time.Time { return time.Unix(0, 42) }

	creds, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Steve", creds.Username)
	assert.Equal(t, "offline_42", creds.AccessToken)
	assert.Equal(t, OfflineAccountID("Steve").String(), creds.AccountID)

	again, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, creds.AccountID, again.AccountID, "account id is stable per name")
	assert.NotEqual(t, OfflineAccountID("Alex"), OfflineAccountID("Steve"))
}

func TestAuthenticateRandomName(t *testing.T) {
	creds, err := NewOffline("").Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(creds.Username, "Player_"), creds.Username)
	assert.Len(t, creds.Username, len("Player_000"))
	assert.Equal(t, 3, int(OfflineAccountID(creds.Username).Version()))
}

func TestAuthenticateRejectsBadName(t *testing.T) {
	_, err := NewOffline("this name is far too long").Authenticate(context.Background())
	assert.True(t, model.Is(err, model.InvalidInput))
}
