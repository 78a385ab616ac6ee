package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"incapacity-claims/internal/domain"
)

// DefaultProbeTimeout bounds one availability probe.
const DefaultProbeTimeout = 10 * time.Second

// Precondition verifies the blob store accepts and serves objects before a
// claim is created.
type Precondition struct {
	store   BlobStore
	timeout time.Duration
	logger  *zap.Logger
}

func NewPrecondition(store BlobStore, timeout time.Duration, logger *zap.Logger) *Precondition {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Precondition{store: store, timeout: timeout, logger: logger}
}

// Probe uploads a small text object and reads it back. It never returns an
// error; every failure is logged and reported as false.
func (p *Precondition) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	name := fmt.Sprintf("probe_%s.txt", uuid.NewString()[:8])
	payload := []byte("probe " + time.Now().UTC().Format(time.RFC3339Nano))

	locator, err := p.store.Upload(ctx, payload, "text/plain", name)
	if err != nil {
		p.logger.Warn("storage probe upload failed", zap.String("name", name), zap.Error(err))
		return false
	}
	if locator == "" {
		p.logger.Warn("storage probe returned empty locator", zap.String("name", name))
		return false
	}

	got, err := p.store.Fetch(ctx, locator)
	if err != nil {
		p.logger.Warn("storage probe fetch failed", zap.String("locator", locator), zap.Error(err))
		return false
	}
	if !bytes.Equal(got, payload) {
		p.logger.Warn("storage probe content mismatch", zap.String("locator", locator))
		return false
	}
	return true
}

// Check is Probe as an error.
func (p *Precondition) Check(ctx context.Context) error {
	if !p.Probe(ctx) {
		return fmt.Errorf("%w: document storage unavailable", domain.ErrPreconditionFailed)
	}
	return nil
}
