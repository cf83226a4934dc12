package port

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cart state not found")

// CartStorage keeps the serialized cart under a single durable key.
// Save overwrites the previous state wholesale.
type CartStorage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}
