package entity

import (
	"time"

	"github.com/google/uuid"
)

type Health struct {
	BaseSimple
	LastCheckedAt time.Time `db:"last_checked_at"`
}

func NewHealth(now time.Time) *Health {
	return &Health{
		BaseSimple: BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		LastCheckedAt: now,
	}
}

func (h *Health) Check(now time.Time) {
	h.LastCheckedAt = now
}

func (h *Health) Uptime(now time.Time) time.Duration {
	return now.Sub(h.CreatedAt)
}
