package domain

import "time"

// QueuedSale is a finalize mutation waiting for a healthy backend.
// At most one entry exists per sale id; re-queuing replaces the prior entry.
type QueuedSale struct {
	EntityID    string    `json:"entityId"`
	ResourceRef string    `json:"resourceRef"`
	CreatedAt   time.Time `json:"createdAt"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"lastError"`
}

// SaleResult is the refreshed sale state returned by the finalize procedure.
type SaleResult struct {
	SaleID      string    `json:"sale_id"`
	Status      string    `json:"status"`
	FinalizedAt time.Time `json:"finalized_at"`
}
