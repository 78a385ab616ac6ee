package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DispatcherConfig tunes delivery.
type DispatcherConfig struct {
	// Retries is the number of extra attempts after a failed send.
	Retries    int
	RatePerSec float64
	Burst      int
	// SendTimeout bounds one attempt.
	SendTimeout time.Duration
	RetryWait   time.Duration
}

// Dispatcher fans a notification out to its recipients, one goroutine each.
// Failures are logged per recipient and never reported to the caller.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	cfg      DispatcherConfig
	logger   *zap.Logger

	wg sync.WaitGroup
}

func NewDispatcher(notifier Notifier, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		cfg:      cfg,
		logger:   logger,
	}
}

// Notify renders the message for kind and starts delivery to every non-empty
// address. It returns false when nothing was dispatched.
func (d *Dispatcher) Notify(ctx context.Context, kind Kind, recipients []string, p Payload) bool {
	subject, body, ok := Render(kind, p)
	if !ok {
		d.logger.Warn("unknown notification kind", zap.String("kind", string(kind)))
		return false
	}

	// delivery outlives the request that triggered it
	base := context.WithoutCancel(ctx)
	dispatched := false
	seen := map[string]struct{}{}
	for _, addr := range recipients {
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		dispatched = true

		d.wg.Add(1)
		go func(addr string) {
			defer d.wg.Done()
			d.deliver(base, kind, addr, subject, body, p.ClaimID)
		}(addr)
	}
	if !dispatched {
		d.logger.Debug("notification has no recipients",
			zap.String("kind", string(kind)),
			zap.Int64("claim_id", p.ClaimID),
		)
	}
	return dispatched
}

func (d *Dispatcher) deliver(ctx context.Context, kind Kind, addr, subject, body string, claimID int64) {
	attempts := 1 + d.cfg.Retries
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(d.cfg.RetryWait)
		}
		if werr := d.limiter.Wait(ctx); werr != nil {
			err = werr
			break
		}
		err = d.sendOnce(ctx, addr, subject, body)
		if err == nil {
			return
		}
		d.logger.Warn("notification attempt failed",
			zap.String("kind", string(kind)),
			zap.String("to", addr),
			zap.Int64("claim_id", claimID),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
	}
	d.logger.Error("notification not delivered",
		zap.String("kind", string(kind)),
		zap.String("to", addr),
		zap.Int64("claim_id", claimID),
		zap.Error(err),
	)
}

func (d *Dispatcher) sendOnce(ctx context.Context, addr, subject, body string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("notifier panicked")
		}
	}()
	return d.notifier.Send(ctx, addr, subject, body)
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
