package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one tick of a periodic job.
type Task func(ctx context.Context) error

// Periodic runs a Task on a fixed interval until stopped. Ticks never overlap.
type Periodic struct {
	name     string
	interval time.Duration
	task     Task
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPeriodic(name string, interval time.Duration, task Task, logger *slog.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With("worker", name),
	}
}

func (p *Periodic) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
	p.logger.Info("worker started", "interval", p.interval.String())
}

// Stop cancels the loop and waits for the running tick or ctx, whichever ends first.
func (p *Periodic) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		p.logger.Info("worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single tick synchronously.
func (p *Periodic) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker tick panicked", "panic", r)
		}
	}()

	if err := p.task(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("worker tick failed", "error", err.Error())
	}
}
