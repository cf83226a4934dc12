package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
)

// CartEntry is one course selected for purchase. Slug is the dedup key;
// Payload carries every other field of the catalog record untouched.
type CartEntry struct {
	Slug  string
	Title string
	Price decimal.Decimal

	Payload map[string]json.RawMessage
}

func (e CartEntry) Validate() error {
	if e.Slug == "" {
		return fmt.Errorf("slug is empty")
	}
	if e.Price.IsNegative() {
		return fmt.Errorf("price[%s] is negative", e.Price)
	}

	return nil
}

func (e CartEntry) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		fields[k] = v
	}

	fields["slug"] = e.Slug
	fields["title"] = e.Title
	fields["price"] = json.Number(e.Price.String())

	return json.Marshal(fields)
}

func (e *CartEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("cart entry is null")
	}

	var entry CartEntry

	if err := json.Unmarshal(fields["slug"], &entry.Slug); err != nil {
		return fmt.Errorf("slug is not a string: %w", err)
	}

	if raw, ok := fields["title"]; ok {
		if err := json.Unmarshal(raw, &entry.Title); err != nil {
			return fmt.Errorf("title is not a string: %w", err)
		}
	}

	raw, ok := fields["price"]
	if !ok {
		return fmt.Errorf("price is missing")
	}
	// decimal treats null as a no-op and would leave a zero price
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("price is null")
	}
	if err := entry.Price.UnmarshalJSON(raw); err != nil {
		return fmt.Errorf("price[%s] is not valid: %w", raw, err)
	}

	delete(fields, "slug")
	delete(fields, "title")
	delete(fields, "price")
	if len(fields) > 0 {
		entry.Payload = fields
	}

	*e = entry

	return nil
}

func (e CartEntry) Clone() CartEntry {
	e.Payload = maps.Clone(e.Payload)
	return e
}
