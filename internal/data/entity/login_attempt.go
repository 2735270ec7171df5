package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxFailedAttempts = 5
	LockoutWindow     = 30 * time.Minute
)

// LoginAttempt is the pending OTP challenge for one email.
//
// Version is zero for an attempt that was never stored. Repositories bump it
// on every write and reject writes made against an older version.
type LoginAttempt struct {
	BaseSimple
	Email          Email      `db:"email"`
	OTP            OTPCode    `db:"-"`
	FailedAttempts int        `db:"failed_attempts"`
	LastFailedAt   *time.Time `db:"last_failed_at"`
	Version        int64      `db:"version"`
}

func NewLoginAttempt(email Email, otp OTPCode) *LoginAttempt {
	return &LoginAttempt{
		BaseSimple: BaseSimple{
			ID:        uuid.New(),
			CreatedAt: otp.CreatedAt(),
		},
		Email: email,
		OTP:   otp,
	}
}

func (a *LoginAttempt) VerifyCode(code OTPCode, now time.Time) bool {
	return a.OTP.Equals(code) && !a.OTP.IsExpired(now)
}

// RegisterFailedAttempt counts a failure. A lockout window that already
// elapsed is cleared first, so the counter restarts at 1.
func (a *LoginAttempt) RegisterFailedAttempt(now time.Time) {
	if a.HasBlockExpired(now) {
		a.FailedAttempts = 0
	}
	a.FailedAttempts++
	a.LastFailedAt = &now
}

func (a *LoginAttempt) IsBlocked(now time.Time) bool {
	return a.FailedAttempts >= MaxFailedAttempts && !a.HasBlockExpired(now)
}

func (a *LoginAttempt) HasBlockExpired(now time.Time) bool {
	if a.LastFailedAt == nil {
		return false
	}
	return now.Sub(*a.LastFailedAt) >= LockoutWindow
}

// Clone returns a copy that can be mutated without touching the original.
func (a *LoginAttempt) Clone() *LoginAttempt {
	c := *a
	if a.LastFailedAt != nil {
		t := *a.LastFailedAt
		c.LastFailedAt = &t
	}
	return &c
}
