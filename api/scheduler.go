/*
scheduler.go - Periodic stock and cash-flow monitor

PURPOSE:
  Periodically recomputes what the dashboard warns about and publishes it:
  raw materials at or below their threshold, obligations falling due inside
  the upcoming window and pending checks. Each check logs a warning per
  finding and refreshes the Prometheus gauges.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reads through the services only; it never writes
  - A failed check is logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (monitor.interval, default 15m)
  - Enabled: Whether the monitor is active (monitor.enabled)

USAGE:
  monitor := NewMonitor(inv, led, metrics, log)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - metrics.go: gauges written here
  - ledger/aggregate.go: Report
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dogaatademir/Opsiron-sub001/config"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// Monitor handles the periodic stock and due-date checks.
type Monitor struct {
	Inventory     *inventory.Service
	Ledger        *ledger.Service
	Metrics       *Metrics
	Log           logrus.FieldLogger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// MonitorReport is the outcome of one check.
type MonitorReport struct {
	CriticalItems   []inventory.StockItem
	Upcoming        ledger.UpcomingDue
	UnsettledChecks int
}

// NewMonitor creates a new monitor. metrics may be nil.
func NewMonitor(inv *inventory.Service, led *ledger.Service, metrics *Metrics, log logrus.FieldLogger) *Monitor {
	return &Monitor{
		Inventory:     inv,
		Ledger:        led,
		Metrics:       metrics,
		Log:           log.WithField("module", "monitor"),
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
	}
}

// Start begins the monitor.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled || m.CheckInterval <= 0 {
		m.Log.Info("monitor disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)

	go m.run()

	m.Log.WithField("interval", m.CheckInterval.String()).Info("monitor started")
}

// Stop stops the monitor and waits for a running check to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stop)
		m.wg.Wait()
		m.ticker = nil
		m.Log.Info("monitor stopped")
	}
}

func (m *Monitor) run() {
	defer m.wg.Done()

	// Run immediately on start
	m.checkAndPublish()

	for {
		select {
		case <-m.ticker.C:
			m.checkAndPublish()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) checkAndPublish() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := m.RunNow(ctx); err != nil {
		config.LogError(m.Log, "monitor", "RunNow", err)
	}
}

// RunNow performs one check immediately.
func (m *Monitor) RunNow(ctx context.Context) (MonitorReport, error) {
	critical, err := m.Inventory.CriticalItems(ctx)
	if err != nil {
		return MonitorReport{}, err
	}
	report, err := m.Ledger.Report(ctx, 0)
	if err != nil {
		return MonitorReport{}, err
	}

	for _, it := range critical {
		m.Log.WithFields(logrus.Fields{
			"item_id":   it.ID,
			"on_hand":   it.OnHand.String(),
			"threshold": it.MinimumThreshold.String(),
		}).Warn("stock at or below minimum")
	}
	for _, tx := range report.Upcoming.PayableLike {
		m.Log.WithFields(logrus.Fields{
			"transaction_id":  tx.ID,
			"kind":            tx.Kind,
			"counterparty_id": tx.CounterpartyID,
			"due":             tx.Date.String(),
			"amount":          tx.Amount.String(),
		}).Warn("payment falling due")
	}

	m.Metrics.publish(len(critical), report)

	return MonitorReport{
		CriticalItems:   critical,
		Upcoming:        report.Upcoming,
		UnsettledChecks: len(report.UnsettledChecks),
	}, nil
}
