package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionLifetime is absolute; rotation never extends it.
const SessionLifetime = 7 * 24 * time.Hour

// Session binds a user to one refresh token. Only TokenHash is persisted, so a
// session loaded by user id carries an empty RefreshToken.
type Session struct {
	BaseSimple
	UserID         uuid.UUID    `db:"user_id"`
	RefreshToken   RefreshToken `db:"-"`
	TokenHash      []byte       `db:"refresh_token_hash"`
	ExpiresAt      time.Time    `db:"expires_at"`
	LastActivityAt time.Time    `db:"last_activity_at"`
	Version        int64        `db:"version"`
}

func NewSession(userID uuid.UUID, token RefreshToken, now time.Time) *Session {
	return &Session{
		BaseSimple: BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:         userID,
		RefreshToken:   token,
		TokenHash:      token.Digest(),
		ExpiresAt:      now.Add(SessionLifetime),
		LastActivityAt: now,
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RotateRefreshToken swaps the current token. Lookups by the previous token stop matching.
func (s *Session) RotateRefreshToken(token RefreshToken) {
	s.RefreshToken = token
	s.TokenHash = token.Digest()
}

func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

func (s *Session) Clone() *Session {
	c := *s
	c.TokenHash = append([]byte(nil), s.TokenHash...)
	return &c
}
