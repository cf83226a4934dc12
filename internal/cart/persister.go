package cart

import (
	"context"
	"sync"
	"time"

	"github.com/nikolayk812/coursecart/internal/port"
	"go.uber.org/zap"
)

// persister writes cart snapshots to storage on a single goroutine.
// Only the latest pending snapshot is kept: every save overwrites the whole
// state, so intermediate snapshots never need to reach storage.
type persister struct {
	storage port.CartStorage
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	pending  []byte
	queued   uint64
	written  uint64
	progress chan struct{}

	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newPersister(storage port.CartStorage, logger *zap.Logger, timeout time.Duration) *persister {
	p := &persister{
		storage:  storage,
		logger:   logger,
		timeout:  timeout,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go p.run()

	return p
}

func (p *persister) enqueue(data []byte) {
	p.mu.Lock()
	p.pending = data
	p.queued++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.stopped)

	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.quit:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if p.written == p.queued {
			p.mu.Unlock()
			return
		}
		data, seq := p.pending, p.queued
		p.pending = nil
		p.mu.Unlock()

		p.write(data)

		p.mu.Lock()
		p.written = seq
		close(p.progress)
		p.progress = make(chan struct{})
		p.mu.Unlock()
	}
}

func (p *persister) write(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.storage.Save(ctx, data); err != nil {
		p.logger.Warn("cart persistence failed", zap.Error(err), zap.Int("bytes", len(data)))
	}
}

// flush blocks until every snapshot enqueued before the call has been attempted.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.queued
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.written >= target {
			p.mu.Unlock()
			return nil
		}
		progress := p.progress
		p.mu.Unlock()

		select {
		case <-progress:
		case <-p.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *persister) close(ctx context.Context) error {
	p.once.Do(func() { close(p.quit) })

	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
