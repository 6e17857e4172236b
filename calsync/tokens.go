package calsync

import (
	"backend/database"
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// ErrReauthRequired means the credential cannot be refreshed. The user is
// skipped until they reconnect their calendar through the external auth flow.
var ErrReauthRequired = errors.New("calendar credential requires re-authorization")

// TokenManager keeps calendar access tokens fresh. Any outbound calendar call
// must go through EnsureFreshToken first.
type TokenManager struct {
	DB     *gorm.DB
	Config *oauth2.Config
	Clock  Clock
}

func NewTokenManager(DB *gorm.DB, config *oauth2.Config) *TokenManager {
	return &TokenManager{DB: DB, Config: config, Clock: realClock{}}
}

// EnsureFreshToken returns an access token valid for at least tokenRefreshMargin.
// The common path is a plain read; a refresh only happens near expiry. On an
// irrecoverable refresh failure the credential is disconnected and
// ErrReauthRequired is returned.
func (m *TokenManager) EnsureFreshToken(ctx context.Context, cred *database.CalendarCredential) (string, error) {
	now := m.Clock.Now()
	if cred.TokenExpiry.After(now.Add(tokenRefreshMargin)) {
		return cred.AccessToken, nil
	}

	log.Printf("Token for user %d expires soon, refreshing", cred.UserId)

	if cred.RefreshToken == "" {
		if err := database.DisconnectCalendar(m.DB, cred.UserId); err != nil {
			return "", fmt.Errorf("failed to disconnect credential: %w", err)
		}
		return "", ErrReauthRequired
	}

	ts := m.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := ts.Token()
	if err != nil || token.AccessToken == "" {
		log.Printf("Token refresh failed for user %d: %v", cred.UserId, err)
		if derr := database.DisconnectCalendar(m.DB, cred.UserId); derr != nil {
			return "", fmt.Errorf("failed to disconnect credential: %w", derr)
		}
		return "", ErrReauthRequired
	}

	rotated := ""
	if token.RefreshToken != cred.RefreshToken {
		rotated = token.RefreshToken
	}
	if err := database.StoreRefreshedToken(m.DB, cred.UserId, token.AccessToken, rotated, token.Expiry); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}

	cred.AccessToken = token.AccessToken
	cred.TokenExpiry = token.Expiry

	return token.AccessToken, nil
}
