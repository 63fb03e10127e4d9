// Package auth produces the credentials handed to the game process. Only an
// offline account is supported; no identity provider is contacted.
package auth

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"modpack-launcher/model"
)

const maxUsernameLen = 16

// Offline issues offline-mode credentials.
type Offline struct {
	Username string
	now      func() time.Time
}

func NewOffline(username string) *Offline {
	return &Offline{Username: strings.TrimSpace(username), now: time.Now}
}

// Authenticate returns credentials for the configured user name, or for a
// random Player_NNN when none is set. The account id is stable per name.
func (o *Offline) Authenticate(ctx context.Context) (model.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return model.Credentials{}, err
	}
	name := o.Username
	if name == "" {
		name = fmt.Sprintf("Player_%03d", rand.Intn(1000))
	}
	if len(name) > maxUsernameLen || strings.ContainsAny(name, " \t") {
		return model.Credentials{}, model.NewInvalidInputError(
			fmt.Sprintf("offline user name %q must be at most %d characters without spaces", name, maxUsernameLen), nil)
	}
	now := time.Now
	if o.now != nil {
		now = o.now
	}
	return model.Credentials{
		Username:    name,
		AccountID:   OfflineAccountID(name).String(),
		AccessToken: fmt.Sprintf("offline_%d", now().UnixNano()),
	}, nil
}

// OfflineAccountID derives the account id the game itself uses for offline players.
func OfflineAccountID(name string) uuid.UUID {
	return uuid.NewMD5(uuid.Nil, []byte("OfflinePlayer:"+name))
}
