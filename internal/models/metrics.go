package models

import "time"

// ServerStats is a point-in-time summary served by the admin API.
type ServerStats struct {
	RequestsTotal            uint64         `json:"requests_total"`
	RequestsFailed           uint64         `json:"requests_failed"`
	AverageRequestDurationMs float64        `json:"average_request_duration_ms"`
	ActiveConnections        int64          `json:"active_connections"`
	Slots                    map[string]int `json:"slots"`
	Goroutines               int            `json:"goroutines"`
	GeneratedAt              time.Time      `json:"generated_at"`
}
