package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TaskData names the exchange, queue, and routing key a leased item is
// dispatched to. Immutable once attached to an item.
type TaskData struct {
	Exchange   string `json:"exchange"`
	Queue      string `json:"queue"`
	RoutingKey string `json:"routing_key"`
}

// Scan implements sql.Scanner, decoding the JSONB column.
func (t *TaskData) Scan(value any) error {
	if value == nil {
		*t = TaskData{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("task data: unsupported scan type %T", value)
	}
	if len(data) == 0 {
		*t = TaskData{}
		return nil
	}
	return json.Unmarshal(data, t)
}

// Value implements driver.Valuer, encoding to JSONB.
func (t TaskData) Value() (driver.Value, error) {
	return json.Marshal(t)
}
