package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nikolayk812/coursecart/internal/port"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
	Logger      *zap.Logger
}

type breakerStorage struct {
	inner   port.CartStorage
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerStorage guards inner with a circuit breaker. After MaxFailures
// consecutive failures calls fail fast with gobreaker.ErrOpenState until
// OpenTimeout has passed. A missing state is not a failure.
func NewBreakerStorage(inner port.CartStorage, settings BreakerSettings) port.CartStorage {
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    settings.Name,
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, port.ErrNotFound)
		},
	})

	return &breakerStorage{
		inner:   inner,
		breaker: cb,
	}
}

func (s *breakerStorage) Load(ctx context.Context) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		return s.inner.Load(ctx)
	})
}

func (s *breakerStorage) Save(ctx context.Context, data []byte) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.inner.Save(ctx, data)
	})

	return err
}
