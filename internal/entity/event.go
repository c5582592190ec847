package entity

import "time"

const (
	EventProductCreated = "created"
	EventProductUpdated = "updated"
	EventProductDeleted = "deleted"
)

// ProductEvent is published on every product write.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"productId"`
	UserID     string    `json:"userId"`
	BackendID  string    `json:"backendId"`
	OccurredAt time.Time `json:"occurredAt"`
}
