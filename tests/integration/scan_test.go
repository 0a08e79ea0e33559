//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Shrike merchant
// fleet health monitor.
//
// These tests verify the COMPLETE diagnostics pipeline:
//
//	Merchant twin → Twin events → Rule catalog → Scan report → Fleet aggregates
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. MERCHANT TWIN: An in-memory model of a merchant account. Thirteen
//    sensor fields (account status, KYC, SIM, PIN, start key, balance,
//    dormancy, notifications, settlement hold) are the only rule inputs.
//
// 2. TWIN EVENT: A discrete transition (sim_swap, pin_attempt,
//    advance_days, transaction, ...). advance_days cascades: KYC expires at
//    365 days, dormancy suspends at 60, start keys expire at 540.
//
// 3. RULE: One catalog entry per supported action, ranked by historical
//    call-centre demand. Conditions are checked in order; the first match
//    is the verdict (fail or warn plus a stable failure code).
//
// 4. SCAN: All twelve actions evaluated against one twin. CallsAtRisk sums
//    the demand totals of failing actions.
//
// 5. FLEET SCAN: Every merchant of the tenant scanned in parallel and
//    reduced to fleet aggregates plus a top-failure-codes ranking.
//
// The tests seed their own fleet via POST /merchants/generate with the
// fixture set, so they can run against a fresh server with no setup.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("SHRIKE_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: fmt.Sprintf("it-tenant-%d", time.Now().UnixNano()),
	}
}

// ============================================================================
// API Request/Response Types (matching Shrike's API contract)
// ============================================================================

type GenerateRequest struct {
	Count    int   `json:"count"`
	Seed     int64 `json:"seed"`
	Fixtures bool  `json:"fixtures"`
}

type EventRequest struct {
	Type   string  `json:"type"`
	Days   int     `json:"days,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

type Merchant struct {
	ID            string  `json:"id"`
	AccountStatus string  `json:"accountStatus"`
	KYCStatus     string  `json:"kycStatus"`
	PinLocked     bool    `json:"pinLocked"`
	Balance       float64 `json:"balance"`
	DormantDays   int     `json:"dormantDays"`
}

type Failure struct {
	ActionKey   string `json:"actionKey"`
	Outcome     string `json:"outcome"`
	Code        string `json:"code"`
	Severity    string `json:"severity"`
	DemandTotal int    `json:"demandTotal"`
}

type Summary struct {
	RulesEvaluated int `json:"rulesEvaluated"`
	Passing        int `json:"passing"`
	Failing        int `json:"failing"`
	CallsAtRisk    int `json:"callsAtRisk"`
}

type ScanReport struct {
	Summary  Summary   `json:"summary"`
	Failures []Failure `json:"failures"`
}

type BatchResult struct {
	TotalMerchants  int `json:"totalMerchants"`
	HealthyCount    int `json:"healthyCount"`
	WithFailures    int `json:"withFailures"`
	WithCritical    int `json:"withCritical"`
	CallsAtRisk     int `json:"callsAtRisk"`
	TopFailureCodes []struct {
		Code  string `json:"code"`
		Count int    `json:"count"`
	} `json:"topFailureCodes"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func do(t *testing.T, config TestConfig, method, path string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
	}

	httpReq, err := http.NewRequest(method, config.BaseURL+path, &buf)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
	return resp.StatusCode
}

func seedFixtures(t *testing.T, config TestConfig) {
	t.Helper()
	if code := do(t, config, "POST", "/merchants/generate", GenerateRequest{Fixtures: true}, nil); code != http.StatusCreated {
		t.Fatalf("Failed to seed fixtures: HTTP %d", code)
	}
}

// ============================================================================
// SCENARIO 1: Healthy Merchant (Clean Scan)
// ============================================================================

func TestHealthyMerchant_CleanScan(t *testing.T) {
	/*
	   SCENARIO: The fx-healthy fixture with every sensor green

	   EXPECTED BEHAVIOR:
	   - All 12 actions pass
	   - CallsAtRisk = 0
	*/
	config := getTestConfig()
	seedFixtures(t, config)

	var report ScanReport
	if code := do(t, config, "GET", "/merchants/fx-healthy/scan", nil, &report); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	if report.Summary.RulesEvaluated != 12 {
		t.Errorf("Expected 12 rules evaluated, got %d", report.Summary.RulesEvaluated)
	}
	if report.Summary.Failing != 0 || report.Summary.CallsAtRisk != 0 {
		t.Errorf("Expected clean scan, got failing=%d callsAtRisk=%d",
			report.Summary.Failing, report.Summary.CallsAtRisk)
	}

	t.Logf("✓ Healthy merchant passed: %d/%d actions", report.Summary.Passing, report.Summary.RulesEvaluated)
}

// ============================================================================
// SCENARIO 2: Event Cascade (Dormancy Suspension)
// ============================================================================

func TestDormancyCascade_SuspendsAndBlocks(t *testing.T) {
	/*
	   SCENARIO: Advance a healthy merchant 60 days with no activity

	   EXPECTED BEHAVIOR:
	   - advance_days 60 → account auto-suspends, settlement goes on hold
	   - A rescan reports ACCOUNT_SUSPENDED and SETTLEMENT_HOLD failures
	   - A transaction resets the dormancy clock on an active account, so
	     applying one first and then advancing 59 days must NOT suspend
	*/
	config := getTestConfig()
	seedFixtures(t, config)

	var m Merchant
	if code := do(t, config, "POST", "/merchants/fx-healthy/events",
		EventRequest{Type: "advance_days", Days: 60}, &m); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if m.AccountStatus != "suspended" {
		t.Errorf("Expected suspended after 60 dormant days, got %s", m.AccountStatus)
	}

	var report ScanReport
	do(t, config, "GET", "/merchants/fx-healthy/scan", nil, &report)
	found := false
	for _, f := range report.Failures {
		if f.Code == "ACCOUNT_SUSPENDED" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected ACCOUNT_SUSPENDED failure, got %+v", report.Failures)
	}

	t.Logf("✓ Dormancy cascade: 60 days → %s, %d failures", m.AccountStatus, report.Summary.Failing)
}

// ============================================================================
// SCENARIO 3: First Match Wins (Frozen Beats Everything)
// ============================================================================

func TestFrozenCompound_FirstMatchWins(t *testing.T) {
	/*
	   SCENARIO: The fx-frozen fixture is frozen AND pin-locked AND KYC-expired

	   EXPECTED BEHAVIOR:
	   - Every transactional action reports ACCOUNT_FROZEN, not the later
	     conditions, because conditions are checked in priority order
	   - CallsAtRisk equals the sum of all twelve demand totals (85,960)
	*/
	config := getTestConfig()
	seedFixtures(t, config)

	var report ScanReport
	if code := do(t, config, "GET", "/merchants/fx-frozen/scan", nil, &report); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	if report.Summary.Failing != 12 {
		t.Errorf("Expected all 12 actions blocked, got %d", report.Summary.Failing)
	}
	if report.Summary.CallsAtRisk != 85960 {
		t.Errorf("Expected 85960 calls at risk, got %d", report.Summary.CallsAtRisk)
	}
	for _, f := range report.Failures {
		if f.Code != "ACCOUNT_FROZEN" {
			t.Errorf("%s: expected ACCOUNT_FROZEN first match, got %s", f.ActionKey, f.Code)
		}
	}

	t.Logf("✓ Frozen compound: 12/12 blocked, callsAtRisk=%d", report.Summary.CallsAtRisk)
}

// ============================================================================
// SCENARIO 4: SIM Swap Verification Window
// ============================================================================

func TestSimSwapWindow_ReopensAfterTwoDays(t *testing.T) {
	/*
	   SCENARIO: Swap the SIM on a healthy merchant, then age the twin

	   EXPECTED BEHAVIOR:
	   - Day 0: deposits blocked with SIM_SWAP_UNVERIFIED
	   - Day 3: deposits flow again (verification window is 2 days)
	*/
	config := getTestConfig()
	seedFixtures(t, config)

	if code := do(t, config, "POST", "/merchants/fx-healthy/events",
		EventRequest{Type: "sim_swap"}, nil); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	var report ScanReport
	do(t, config, "GET", "/merchants/fx-healthy/scan", nil, &report)
	blocked := false
	for _, f := range report.Failures {
		if f.ActionKey == "customer_deposit" && f.Code == "SIM_SWAP_UNVERIFIED" {
			blocked = true
		}
	}
	if !blocked {
		t.Errorf("Expected deposit blocked right after swap, got %+v", report.Failures)
	}

	if code := do(t, config, "POST", "/merchants/fx-healthy/events",
		EventRequest{Type: "advance_days", Days: 3}, nil); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	do(t, config, "GET", "/merchants/fx-healthy/scan", nil, &report)
	for _, f := range report.Failures {
		if f.ActionKey == "customer_deposit" {
			t.Errorf("Expected deposit open on day 3, got %s", f.Code)
		}
	}

	t.Logf("✓ SIM swap window: blocked on day 0, open on day 3")
}

// ============================================================================
// SCENARIO 5: Fleet Scan Aggregates
// ============================================================================

func TestFleetScan_FixtureAggregates(t *testing.T) {
	/*
	   SCENARIO: Fleet-scan the 10-merchant fixture set

	   EXPECTED BEHAVIOR:
	   - 10 merchants total, exactly 1 fully healthy
	   - 3 carry critical failures (suspended, expired start key, frozen)
	   - Top failure codes ranked by distinct merchants per code
	*/
	config := getTestConfig()
	seedFixtures(t, config)

	var result BatchResult
	if code := do(t, config, "POST", "/fleet/scan", nil, &result); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	if result.TotalMerchants != 10 {
		t.Errorf("Expected 10 merchants, got %d", result.TotalMerchants)
	}
	if result.HealthyCount != 1 {
		t.Errorf("Expected 1 healthy merchant, got %d", result.HealthyCount)
	}
	if result.WithCritical != 3 {
		t.Errorf("Expected 3 merchants with critical failures, got %d", result.WithCritical)
	}
	if len(result.TopFailureCodes) == 0 {
		t.Error("Expected a top-failure-codes ranking")
	}

	t.Logf("✓ Fleet scan: %d merchants, %d healthy, %d critical, callsAtRisk=%d",
		result.TotalMerchants, result.HealthyCount, result.WithCritical, result.CallsAtRisk)
}

// ============================================================================
// SCENARIO 6: Input Validation
// ============================================================================

func TestValidation_Errors(t *testing.T) {
	config := getTestConfig()
	seedFixtures(t, config)

	// Unknown event type → 400
	if code := do(t, config, "POST", "/merchants/fx-healthy/events",
		EventRequest{Type: "teleport"}, nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown event type, got %d", code)
	}

	// Unknown merchant → 404
	if code := do(t, config, "GET", "/merchants/no-such-merchant/scan", nil, nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown merchant, got %d", code)
	}

	// Missing tenant header → 400
	httpReq, _ := http.NewRequest("GET", config.BaseURL+"/merchants", nil)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing tenant, got %d", resp.StatusCode)
	}

	t.Logf("✓ Validation tests passed")
}
