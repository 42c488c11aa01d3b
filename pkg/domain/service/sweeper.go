package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

const (
	DefaultSweepDelay    = 35 * time.Second
	DefaultSweepStaleAge = 30 * time.Second
)

// Sweeper is the delayed fallback finalizer for payments whose webhook and
// in-tab callback both went missing. The 30 second age gate is a coarse
// heuristic: by then a genuinely abandoned attempt is distinguishable enough
// from a slow-but-successful one.
type Sweeper interface {
	// Schedule arms a one-shot sweep for the buyer after the configured delay.
	// At most one timer is armed per buyer at a time.
	Schedule(buyerID string)
	RunOnce(ctx context.Context, buyerID string) (int, error)
}

func NewSweeper(pending model.PendingOrderRepository, finalizer FinalizeService, delay, staleAge time.Duration) Sweeper {
	if delay <= 0 {
		delay = DefaultSweepDelay
	}
	if staleAge <= 0 {
		staleAge = DefaultSweepStaleAge
	}
	return &sweeper{
		pending:   pending,
		finalizer: finalizer,
		delay:     delay,
		staleAge:  staleAge,
		armed:     make(map[string]struct{}),
	}
}

type sweeper struct {
	pending   model.PendingOrderRepository
	finalizer FinalizeService
	delay     time.Duration
	staleAge  time.Duration

	mu    sync.Mutex
	armed map[string]struct{}
}

func (s *sweeper) Schedule(buyerID string) {
	if buyerID == "" {
		return
	}

	s.mu.Lock()
	if _, ok := s.armed[buyerID]; ok {
		s.mu.Unlock()
		return
	}
	s.armed[buyerID] = struct{}{}
	s.mu.Unlock()

	time.AfterFunc(s.delay, func() {
		defer func() {
			s.mu.Lock()
			delete(s.armed, buyerID)
			s.mu.Unlock()
		}()

		claimed, err := s.RunOnce(context.Background(), buyerID)
		if err != nil {
			log.WithField("buyerID", buyerID).WithError(err).Error("pending order sweep failed")
			return
		}
		if claimed > 0 {
			log.WithFields(log.Fields{"buyerID": buyerID, "claimed": claimed}).Info("sweep finalized stale pending orders")
		}
	})
}

func (s *sweeper) RunOnce(ctx context.Context, buyerID string) (int, error) {
	cutoff := time.Now().UTC().Add(-s.staleAge)
	stale, err := s.pending.FindStaleByBuyer(ctx, buyerID, cutoff)
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, p := range stale {
		order, err := s.finalizer.FinalizeInvoice(ctx, p.InvoiceID)
		if err != nil {
			log.WithField("invoiceID", p.InvoiceID).WithError(err).Error("sweep finalization failed")
			continue
		}
		// A nil order means another path claimed the invoice first.
		if order != nil {
			claimed++
		}
	}
	return claimed, nil
}
