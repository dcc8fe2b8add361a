package models

// Order lifecycle statuses published to the remote store, in pipeline order.
const (
	StatusPreparing = "preparing"
	StatusBrewing   = "brewing"
	StatusReady     = "ready"
	StatusError     = "error"

	// StatusCompleted is written by the independent pickup-number flow,
	// not by the brew pipeline.
	StatusCompleted = "completed"
)

// OrderItem is a single drink descriptor within an order.
type OrderItem struct {
	Name string `json:"name"`
}

// Order represents one placed order, normalized from an incoming
// notification payload.
type Order struct {
	UserID     string      `json:"user_id"`
	OrderID    string      `json:"order_id"`
	Items      []OrderItem `json:"items"`
	ItemCount  int         `json:"item_count"`
	TotalValue float64     `json:"total_value"`
}

// StatusEvent is the record written to the remote store at
// order_status/{userId}/{orderId}. Writes overwrite; only the latest status
// per order is visible downstream.
type StatusEvent struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}
