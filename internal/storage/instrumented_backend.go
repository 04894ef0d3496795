package storage

import (
	"context"
	"time"

	"fuelcoach-go/internal/monitoring"
)

// InstrumentedBackend records latency and outcome of every operation.
type InstrumentedBackend struct {
	inner Backend
}

func NewInstrumentedBackend(inner Backend) *InstrumentedBackend {
	return &InstrumentedBackend{inner: inner}
}

// Unwrap returns the wrapped backend.
func (b *InstrumentedBackend) Unwrap() Backend { return b.inner }

func (b *InstrumentedBackend) Name() string { return b.inner.Name() }

func (b *InstrumentedBackend) observe(op string, start time.Time, err error) {
	if IsNotFound(err) {
		err = nil
	}
	monitoring.RecordStorageOp(b.inner.Name(), op, time.Since(start), err)
}

func (b *InstrumentedBackend) Initialize(ctx context.Context) error {
	start := time.Now()
	err := b.inner.Initialize(ctx)
	b.observe("initialize", start, err)
	return err
}

func (b *InstrumentedBackend) Close() error { return b.inner.Close() }

func (b *InstrumentedBackend) Health(ctx context.Context) error {
	start := time.Now()
	err := b.inner.Health(ctx)
	b.observe("health", start, err)
	return err
}

func (b *InstrumentedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := b.inner.Get(ctx, key)
	b.observe("get", start, err)
	return v, err
}

func (b *InstrumentedBackend) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := b.inner.Set(ctx, key, value)
	b.observe("set", start, err)
	return err
}

func (b *InstrumentedBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := b.inner.Delete(ctx, key)
	b.observe("delete", start, err)
	return err
}

func (b *InstrumentedBackend) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := b.inner.Keys(ctx)
	b.observe("keys", start, err)
	return keys, err
}
