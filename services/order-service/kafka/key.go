package kafka

import "encoding/json"

func orderKey(message []byte) []byte {
	var envelope struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil || envelope.OrderID == "" {
		return nil
	}
	return []byte(envelope.OrderID)
}
