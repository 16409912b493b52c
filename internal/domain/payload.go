package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Payload is the opaque structured data attached to a notification. It is
// stored as JSON text so the same column works on PostgreSQL and SQLite.
type Payload map[string]any

func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Payload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Payload{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("payload: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*p = Payload{}
		return nil
	}
	out := Payload{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	*p = out
	return nil
}
