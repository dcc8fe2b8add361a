package intake

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/Cicerokx7/bean-order-server/internal/models"
)

// ErrMissingBody is returned when the request carries no JSON object at all.
// It is the only way intake rejects a request.
var ErrMissingBody = errors.New("no JSON data provided")

// DefaultItemName stands in for a drink whose descriptor has no usable name.
const DefaultItemName = "Unknown drink"

// Parse normalizes a raw notification payload into an Order. The upstream
// caller is a semi-trusted cloud function, so the contract favors
// availability over strict validation: every field is optional and malformed
// sub-fields degrade to defaults rather than rejecting the whole order. Only
// a missing or non-object body fails.
func Parse(body []byte) (models.Order, error) {
	if len(body) == 0 {
		return models.Order{}, ErrMissingBody
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return models.Order{}, ErrMissingBody
	}

	order := models.Order{
		UserID:     stringField(payload, "userId", "unknown"),
		OrderID:    stringField(payload, "orderId", ""),
		Items:      itemsField(payload, "orders"),
		ItemCount:  intField(payload, "orderCount"),
		TotalValue: floatField(payload, "totalValue"),
	}

	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}

	return order, nil
}

func stringField(payload map[string]interface{}, key, fallback string) string {
	if s, ok := payload[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intField(payload map[string]interface{}, key string) int {
	if f, ok := payload[key].(float64); ok {
		return int(f)
	}
	return 0
}

func floatField(payload map[string]interface{}, key string) float64 {
	if f, ok := payload[key].(float64); ok {
		return f
	}
	return 0
}

// itemsField extracts the drink descriptors. Elements that are not objects,
// or objects without a name, still yield an item with the placeholder name;
// an item never fails the request.
func itemsField(payload map[string]interface{}, key string) []models.OrderItem {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil
	}

	items := make([]models.OrderItem, 0, len(raw))
	for _, entry := range raw {
		name := DefaultItemName
		if obj, ok := entry.(map[string]interface{}); ok {
			if s, ok := obj["name"].(string); ok && s != "" {
				name = s
			}
		}
		items = append(items, models.OrderItem{Name: name})
	}
	return items
}
