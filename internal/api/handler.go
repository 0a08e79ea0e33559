package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/shrike/internal/activity"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/generate"
	"github.com/opensource-finance/shrike/internal/risk"
	"github.com/opensource-finance/shrike/internal/rules"
	"github.com/opensource-finance/shrike/internal/scanner"
	"github.com/opensource-finance/shrike/internal/twin"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	scanner  *scanner.Scanner
	activity *activity.Service
	scanCfg  domain.ScannerConfig
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, sc *scanner.Scanner, act *activity.Service, scanCfg domain.ScannerConfig, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		scanner:  sc,
		activity: act,
		scanCfg:  scanCfg,
		version:  version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// CreateMerchant handles POST /merchants.
func (h *Handler) CreateMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var m domain.Merchant
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.TenantID = tenantID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	if err := m.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.SaveMerchant(ctx, tenantID, &m); err != nil {
		slog.Error("failed to save merchant", "merchant_id", m.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save merchant",
		})
		return
	}

	slog.Info("merchant created", "merchant_id", m.ID, "tenant_id", tenantID)
	writeJSON(w, http.StatusCreated, &m)
}

// GenerateRequest is the request body for POST /merchants/generate.
type GenerateRequest struct {
	Count    int   `json:"count"`
	Seed     int64 `json:"seed"`
	Fixtures bool  `json:"fixtures"`
}

// GenerateMerchants handles POST /merchants/generate. With fixtures=true it
// loads the curated fixture set; otherwise it generates Count seeded random
// merchants.
func (h *Handler) GenerateMerchants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	var merchants []*domain.Merchant
	if req.Fixtures {
		merchants = generate.Fixtures(tenantID)
	} else {
		if req.Count <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "count must be positive",
			})
			return
		}
		merchants = generate.New(tenantID, req.Seed).GenerateBatch(req.Count)
	}

	for _, m := range merchants {
		if err := h.repo.SaveMerchant(ctx, tenantID, m); err != nil {
			slog.Error("failed to save generated merchant", "merchant_id", m.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save generated merchants",
			})
			return
		}
	}

	slog.Info("merchants generated",
		"tenant_id", tenantID,
		"count", len(merchants),
		"fixtures", req.Fixtures,
	)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"merchants": merchants,
		"count":     len(merchants),
	})
}

// ListMerchants handles GET /merchants.
func (h *Handler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	merchants, err := h.repo.ListMerchants(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list merchants", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list merchants",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"merchants": merchants,
		"count":     len(merchants),
	})
}

// GetMerchant handles GET /merchants/{id}.
func (h *Handler) GetMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	merchantID := chi.URLParam(r, "id")

	m, err := h.repo.GetMerchant(ctx, tenantID, merchantID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "merchant not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// EventRequest is the request body for POST /merchants/{id}/events.
type EventRequest struct {
	Type   string  `json:"type"`
	Days   int     `json:"days,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

// ApplyEvent handles POST /merchants/{id}/events: applies one twin event
// synchronously and returns the updated snapshot.
func (h *Handler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	merchantID := chi.URLParam(r, "id")

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type is required",
		})
		return
	}

	m, err := h.repo.GetMerchant(ctx, tenantID, merchantID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "merchant not found",
		})
		return
	}

	ev := &domain.TwinEvent{
		TenantID:   tenantID,
		MerchantID: merchantID,
		Type:       domain.EventType(req.Type),
		Days:       req.Days,
		Amount:     req.Amount,
		AppliedAt:  time.Now().UTC(),
	}

	updated, err := twin.Apply(m, ev)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.SaveMerchant(ctx, tenantID, updated); err != nil {
		slog.Error("failed to save merchant", "merchant_id", merchantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save merchant",
		})
		return
	}
	if err := h.repo.SaveEvent(ctx, tenantID, ev); err != nil {
		slog.Error("failed to save event", "merchant_id", merchantID, "error", err)
	}

	if h.bus != nil {
		payload, _ := json.Marshal(updated)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicMerchantUpdated, payload); err != nil {
			slog.Error("failed to publish merchant update", "merchant_id", merchantID, "error", err)
		}
	}

	slog.Info("twin event applied",
		"merchant_id", merchantID,
		"tenant_id", tenantID,
		"event_type", req.Type,
	)
	writeJSON(w, http.StatusOK, updated)
}

// ScanMerchant handles GET /merchants/{id}/scan. Reports are cached by
// sensor fingerprint, so repeated scans of an unchanged twin are served
// from cache.
func (h *Handler) ScanMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	merchantID := chi.URLParam(r, "id")

	m, err := h.repo.GetMerchant(ctx, tenantID, merchantID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "merchant not found",
		})
		return
	}

	fingerprint := m.SensorFingerprint()
	if h.cache != nil {
		if cached, err := h.cache.GetReport(ctx, tenantID, fingerprint); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	report, err := h.scanner.Report(m)
	if err != nil {
		var stateErr *domain.InvalidMerchantStateError
		if errors.As(err, &stateErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("scan failed", "merchant_id", merchantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scan failed",
		})
		return
	}

	if err := h.repo.SaveReport(ctx, tenantID, report); err != nil {
		slog.Error("failed to save report", "merchant_id", merchantID, "error", err)
	}
	if h.cache != nil {
		ttl := time.Duration(h.scanCfg.ReportCacheTTL) * time.Second
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		_ = h.cache.SetReport(ctx, tenantID, fingerprint, report, ttl)
	}

	writeJSON(w, http.StatusOK, report)
}

// HealthResponse is the response for GET /merchants/{id}/health.
type HealthResponse struct {
	MerchantID  string               `json:"merchantId"`
	Tier        domain.RiskTier      `json:"tier"`
	Sensors     *domain.SensorHealth `json:"sensors"`
	EventsToday int64                `json:"eventsToday"`
}

// MerchantHealth handles GET /merchants/{id}/health: sensor buckets, risk
// tier, and recent twin-event activity.
func (h *Handler) MerchantHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	merchantID := chi.URLParam(r, "id")

	m, err := h.repo.GetMerchant(ctx, tenantID, merchantID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "merchant not found",
		})
		return
	}

	resp := HealthResponse{
		MerchantID: merchantID,
		Tier:       risk.RiskTier(m),
		Sensors:    risk.SensorHealth(m),
	}

	if h.activity != nil {
		count, err := h.activity.GetEventCount(ctx, tenantID, merchantID, 86400)
		if err != nil {
			slog.Error("failed to count events", "merchant_id", merchantID, "error", err)
		} else {
			resp.EventsToday = count
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ScanFleet handles POST /fleet/scan: scans every merchant of the tenant
// and returns the aggregated result.
func (h *Handler) ScanFleet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	merchants, err := h.repo.ListMerchants(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list merchants", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list merchants",
		})
		return
	}

	result, err := h.scanner.ScanBatch(ctx, merchants, scanner.BatchOptions{
		MaxWorkers: h.scanCfg.MaxWorkers,
		TopCodes:   h.scanCfg.TopCodes,
	})
	if err != nil {
		slog.Error("fleet scan failed", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "fleet scan failed",
		})
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(result)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicScanCompleted, payload); err != nil {
			slog.Error("failed to publish fleet scan result", "tenant_id", tenantID, "error", err)
		}
	}

	slog.Info("fleet scan completed",
		"tenant_id", tenantID,
		"merchants", result.TotalMerchants,
		"with_failures", result.WithFailures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, result)
}

// ListRules returns the full action catalog in demand-rank order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	defs := h.engine.Definitions()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": defs,
		"count": len(defs),
	})
}

// GetRule retrieves one catalog entry by action key.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	def, err := h.engine.Definition(key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, def)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
