// Package worker provides async twin-event processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/risk"
	"github.com/opensource-finance/shrike/internal/scanner"
	"github.com/opensource-finance/shrike/internal/twin"
)

// alertDedupWindow suppresses repeat alerts for the same merchant.
const alertDedupWindow = 15 * time.Minute

// Worker applies twin events from the EventBus and rescans the merchant.
type Worker struct {
	bus     domain.EventBus
	repo    domain.Repository
	cache   domain.Cache
	scanner *scanner.Scanner

	reportTTL time.Duration

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// ReportCacheTTL is how long rescanned reports stay cached.
	ReportCacheTTL time.Duration
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, sc *scanner.Scanner) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		repo:      repo,
		cache:     cache,
		scanner:   sc,
		reportTTL: 5 * time.Minute,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing events for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if cfg.ReportCacheTTL > 0 {
		w.reportTTL = cfg.ReportCacheTTL
	}

	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicEventApplied, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicEventApplied, func(ctx context.Context, msg *domain.Message) error {
		return w.processEvent(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicEventApplied,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processEvent(ctx, msg.TenantID, msg)
}

// EventMessage is the message payload for twin event processing.
type EventMessage struct {
	MerchantID string  `json:"merchantId"`
	TenantID   string  `json:"tenantId"`
	TraceID    string  `json:"traceId"`
	Type       string  `json:"type"`
	Days       int     `json:"days,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
}

// AlertMessage is published to the alert topic when a rescan turns up
// critical failures.
type AlertMessage struct {
	MerchantID  string          `json:"merchantId"`
	Tier        domain.RiskTier `json:"tier"`
	Failing     int             `json:"failing"`
	CallsAtRisk int             `json:"callsAtRisk"`
	TopCode     string          `json:"topCode,omitempty"`
}

// processEvent applies one twin event and rescans the merchant.
func (w *Worker) processEvent(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	// Parse message
	var evMsg EventMessage
	if err := json.Unmarshal(msg.Payload, &evMsg); err != nil {
		slog.Error("failed to parse event message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if evMsg.TenantID != "" {
		tenantID = evMsg.TenantID
	}

	traceID := evMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing twin event",
		"merchant_id", evMsg.MerchantID,
		"tenant_id", tenantID,
		"event_type", evMsg.Type,
		"trace_id", traceID,
	)

	// 1. Load the current twin snapshot
	m, err := w.repo.GetMerchant(ctx, tenantID, evMsg.MerchantID)
	if err != nil {
		slog.Error("failed to load merchant",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
		return err
	}

	// 2. Apply the transition
	ev := &domain.TwinEvent{
		TenantID:   tenantID,
		MerchantID: evMsg.MerchantID,
		Type:       domain.EventType(evMsg.Type),
		Days:       evMsg.Days,
		Amount:     evMsg.Amount,
		AppliedAt:  start,
	}

	updated, err := twin.Apply(m, ev)
	if err != nil {
		slog.Error("transition rejected",
			"merchant_id", evMsg.MerchantID,
			"event_type", evMsg.Type,
			"error", err,
		)
		return err
	}

	// 3. Persist the new snapshot and the audit record
	if err := w.repo.SaveMerchant(ctx, tenantID, updated); err != nil {
		slog.Error("failed to save merchant",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
		return err
	}
	if err := w.repo.SaveEvent(ctx, tenantID, ev); err != nil {
		slog.Error("failed to save event",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
	}

	updatedPayload, _ := json.Marshal(updated)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicMerchantUpdated, updatedPayload); err != nil {
		slog.Error("failed to publish merchant update",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
	}

	// 4. Rescan against the full catalog
	report, err := w.scanner.Report(updated)
	if err != nil {
		slog.Error("scan failed",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
		return err
	}

	if err := w.repo.SaveReport(ctx, tenantID, report); err != nil {
		slog.Error("failed to save report",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
	}
	if w.cache != nil {
		_ = w.cache.SetReport(ctx, tenantID, updated.SensorFingerprint(), report, w.reportTTL)
	}

	reportPayload, _ := json.Marshal(report)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicScanCompleted, reportPayload); err != nil {
		slog.Error("failed to publish scan result",
			"merchant_id", evMsg.MerchantID,
			"error", err,
		)
	}

	// 5. Alert on critical failures, deduplicated per merchant
	tier := risk.RiskTier(updated)
	if report.HasCritical() || tier == domain.TierCritical {
		w.publishAlert(ctx, tenantID, updated, report, tier)
	}

	slog.Info("twin event processed",
		"merchant_id", evMsg.MerchantID,
		"tenant_id", tenantID,
		"event_type", evMsg.Type,
		"failing", report.Summary.Failing,
		"tier", tier,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// publishAlert emits an alert unless one already fired for this merchant
// within the dedup window.
func (w *Worker) publishAlert(ctx context.Context, tenantID string, m *domain.Merchant, report *domain.MerchantReport, tier domain.RiskTier) {
	if w.cache != nil {
		count, err := w.cache.IncrementCounter(ctx, tenantID, "alert:"+m.ID, alertDedupWindow)
		if err == nil && count > 1 {
			slog.Debug("alert suppressed",
				"merchant_id", m.ID,
				"count", count,
			)
			return
		}
	}

	alert := AlertMessage{
		MerchantID:  m.ID,
		Tier:        tier,
		Failing:     report.Summary.Failing,
		CallsAtRisk: report.Summary.CallsAtRisk,
	}
	if len(report.Failures) > 0 {
		alert.TopCode = report.Failures[0].Code
	}

	payload, _ := json.Marshal(alert)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
		slog.Error("failed to publish alert",
			"merchant_id", m.ID,
			"error", err,
		)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
