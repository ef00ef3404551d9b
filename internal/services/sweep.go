package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-grantgate/grantgate/internal/config"
	"github.com/go-grantgate/grantgate/internal/metrics"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/store"
)

// Sweeper removes expired state on a timer: tokens past their expiry, grants
// left with zero tokens, and lapsed permission tickets. Consumed tickets are
// never swept; they leave with their RPT grant. At most one pass runs at a
// time, guarded by an atomic flag rather than a mutex so an overdue pass is
// skipped instead of queued.
type Sweeper struct {
	cfg     *config.Config
	store   *store.Store
	metrics metrics.Recorder
	audit   *AuditService

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(
	cfg *config.Config,
	s *store.Store,
	m metrics.Recorder,
	audit *AuditService,
) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		store:   s,
		metrics: m,
		audit:   audit,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the sweep loop. Returns immediately.
func (sw *Sweeper) Start() {
	go sw.loop()
	log.Printf("[Sweep] Started with interval %s, batch size %d",
		sw.cfg.SweepInterval, sw.cfg.SweepBatchSize)
}

// Stop shuts the loop down and waits for an in-flight pass to finish.
func (sw *Sweeper) Stop() {
	close(sw.stopCh)
	<-sw.doneCh
	log.Println("[Sweep] Stopped")
}

func (sw *Sweeper) loop() {
	defer close(sw.doneCh)

	ticker := time.NewTicker(sw.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.RunOnce(context.Background())
		case <-sw.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep pass. Safe to call concurrently; extra
// callers return immediately.
func (sw *Sweeper) RunOnce(ctx context.Context) {
	if !sw.running.CompareAndSwap(false, true) {
		return
	}
	defer sw.running.Store(false)

	start := time.Now()
	batch := sw.cfg.SweepBatchSize

	var tokensDeleted, ticketsExpired, grantsDeleted int64

	// Tokens first so the orphan-grant query sees the holes they leave
	for {
		n, err := sw.store.DeleteExpiredTokensBatch(ctx, batch)
		if err != nil {
			log.Printf("[Sweep] Failed to delete expired tokens: %v", err)
			break
		}
		tokensDeleted += n
		if n < int64(batch) {
			break
		}
	}

	for {
		n, err := sw.store.DeleteOrphanGrantsBatch(ctx, batch)
		if err != nil {
			log.Printf("[Sweep] Failed to delete orphaned grants: %v", err)
			break
		}
		grantsDeleted += n
		if n < int64(batch) {
			break
		}
	}

	// Tickets expire in two phases: mark, then delete the marked on the
	// next passes. Keeps each write small and makes expiry observable.
	for {
		n, err := sw.store.MarkExpiredTicketsBatch(ctx, batch)
		if err != nil {
			log.Printf("[Sweep] Failed to expire tickets: %v", err)
			break
		}
		ticketsExpired += n
		if n < int64(batch) {
			break
		}
	}

	if _, err := sw.store.DeleteExpiredTicketsBatch(ctx, batch); err != nil {
		log.Printf("[Sweep] Failed to delete expired tickets: %v", err)
	}

	elapsed := time.Since(start)
	sw.metrics.RecordSweep(tokensDeleted, ticketsExpired, grantsDeleted, elapsed)

	if tokensDeleted > 0 || ticketsExpired > 0 || grantsDeleted > 0 {
		log.Printf("[Sweep] Removed %d tokens, %d grants, expired %d tickets in %s",
			tokensDeleted, grantsDeleted, ticketsExpired, elapsed)
		sw.audit.Log(AuditLogEntry{
			EventType:    models.EventExpirySweep,
			ResourceType: models.ResourceToken,
			Action:       "expiry_sweep",
			Details: models.AuditDetails{
				"tokens_deleted":  tokensDeleted,
				"grants_deleted":  grantsDeleted,
				"tickets_expired": ticketsExpired,
			},
			Success: true,
		})
	}
}
