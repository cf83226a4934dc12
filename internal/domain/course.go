package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type Tutor struct {
	ID     string `json:"id"`
	Avatar string `json:"avatar"`
	Name   string `json:"name"`
}

// Course is a catalog record as served by the course dump.
type Course struct {
	Slug          string          `json:"slug"`
	Title         string          `json:"title"`
	Type          string          `json:"type"`
	CoverImageURL string          `json:"cover_image_url"`
	Price         decimal.Decimal `json:"price"`
	Rating        float64         `json:"rating"`
	Tutor         Tutor           `json:"tutor"`
	DurationType  string          `json:"duration_type"`
	Duration      int             `json:"duration"`
}

// CartEntry converts the course into a cart entry, keeping the descriptive
// fields as opaque payload.
func (c Course) CartEntry() (CartEntry, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return CartEntry{}, fmt.Errorf("json.Marshal: %w", err)
	}

	var entry CartEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CartEntry{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return entry, nil
}
