/*
scheduler.go - Automated counter-audit scheduler

PURPOSE:
  Periodically recomputes recent budget counters from their surviving
  events and repairs any drift via corrective deltas.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks budget records from the last LookbackDays
  - Transactional event writes should make every run a no-op; the audit
    exists so an interrupted process cannot leave a counter silently
    wrong forever
  - Logs every repaired record

CONFIGURATION:
  - CheckInterval: How often to audit (default: 1 hour)
  - LookbackDays:  How far back to walk (default: 7 days)
  - Enabled:       Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewAuditScheduler(eng)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerAudit endpoint (manual audit)
  - engine/engine.go: AuditBudgets
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/swasthyam/oil-engine/engine"
)

// AuditScheduler periodically verifies and repairs budget counters.
type AuditScheduler struct {
	Engine        *engine.Engine
	CheckInterval time.Duration
	LookbackDays  int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a new scheduler with default settings.
func NewAuditScheduler(eng *engine.Engine) *AuditScheduler {
	return &AuditScheduler{
		Engine:        eng,
		CheckInterval: 1 * time.Hour,
		LookbackDays:  7,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Audit] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Audit] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Audit] Stopped")
	}
}

func (as *AuditScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.audit()

	for {
		select {
		case <-as.ticker.C:
			as.audit()
		case <-as.stop:
			return
		}
	}
}

func (as *AuditScheduler) audit() {
	ctx := context.Background()
	since := engine.Today().AddDays(-as.LookbackDays)

	results, err := as.Engine.AuditBudgets(ctx, since)
	if err != nil {
		log.Printf("[Audit] Failed: %v", err)
		return
	}

	if len(results) == 0 {
		log.Printf("[Audit] Clean since %s", since)
		return
	}
	for _, res := range results {
		log.Printf("[Audit] Repaired user=%s day=%s kcal %s -> %s events %d -> %d",
			res.UserID, res.Day, res.StoredKcal, res.ActualKcal,
			res.StoredEvents, res.ActualEvents)
	}
}
