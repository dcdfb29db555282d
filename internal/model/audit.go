package model

import (
	"time"
)

// AuditLog is one audited write request.
type AuditLog struct {
	ID        string `json:"id"` // request id
	PlayerID  string `json:"player_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody  string `json:"request_body"`
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// shop/auction/lot ids, bundles, amounts
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
