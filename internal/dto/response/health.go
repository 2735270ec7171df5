package response

import "time"

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

type HealthResponse struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Database      string    `json:"database"`
	StartedAt     time.Time `json:"started_at"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}
