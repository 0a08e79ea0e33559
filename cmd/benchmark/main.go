// Benchmark tool for load-testing Shrike scans against a generated fleet.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -fleet 1000
//
// This tool:
//   1. Seeds a fleet of random merchant twins via POST /merchants/generate
//   2. Scans every merchant concurrently via GET /merchants/{id}/scan
//   3. Runs one POST /fleet/scan and cross-checks the aggregates
//   4. Reports latency, throughput, and the failure-code mix
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// GenerateRequest is the Shrike API request format for fleet seeding.
type GenerateRequest struct {
	Count    int   `json:"count"`
	Seed     int64 `json:"seed"`
	Fixtures bool  `json:"fixtures"`
}

// GenerateResponse is the seeding response.
type GenerateResponse struct {
	Merchants []Merchant `json:"merchants"`
	Count     int        `json:"count"`
}

// Merchant is the subset of the twin the benchmark needs.
type Merchant struct {
	ID string `json:"id"`
}

// ScanResponse is the per-merchant scan response format.
type ScanResponse struct {
	Summary struct {
		Passing     int `json:"passing"`
		Failing     int `json:"failing"`
		CallsAtRisk int `json:"callsAtRisk"`
	} `json:"summary"`
	Failures []struct {
		Code     string `json:"code"`
		Severity string `json:"severity"`
	} `json:"failures"`
}

// FleetScanResponse is the fleet scan response format.
type FleetScanResponse struct {
	TotalMerchants  int `json:"totalMerchants"`
	HealthyCount    int `json:"healthyCount"`
	WithFailures    int `json:"withFailures"`
	WithCritical    int `json:"withCritical"`
	CallsAtRisk     int `json:"callsAtRisk"`
	TopFailureCodes []struct {
		Code       string  `json:"code"`
		Count      int     `json:"count"`
		PctOfFleet float64 `json:"pctOfFleet"`
	} `json:"topFailureCodes"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalScanned int64
	TotalErrors  int64
	HealthyCount int64
	WithFailures int64
	CallsAtRisk  int64

	ProcessingTimeMs int64

	mu        sync.Mutex
	codeCount map[string]int64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Shrike base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	fleetSize := flag.Int("fleet", 1000, "Number of merchants to generate")
	seed := flag.Int64("seed", 42, "Generator seed (same seed = same fleet)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each merchant result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║           SHRIKE BENCHMARK - Fleet Scan Throughput            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nShrike URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Fleet Size:  %d\n", *fleetSize)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Println()

	// Check Shrike is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Shrike not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Shrike is running:")
		fmt.Println("  cd shrike && go run cmd/shrike/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Shrike is healthy")

	// Seed the fleet
	fmt.Printf("\nSeeding %d merchants...\n", *fleetSize)
	merchants, err := seedFleet(*baseURL, *tenantID, *fleetSize, *seed)
	if err != nil {
		fmt.Printf("ERROR: Failed to seed fleet: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Seeded %d merchants\n", len(merchants))

	// Run per-merchant scan benchmark
	fmt.Printf("\nScanning with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(merchants, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Run one fleet scan and cross-check
	fmt.Println("\nRunning fleet scan...")
	fleetStart := time.Now()
	fleet, err := fleetScan(*baseURL, *tenantID)
	fleetDuration := time.Since(fleetStart)
	if err != nil {
		fmt.Printf("ERROR: Fleet scan failed: %v\n", err)
		os.Exit(1)
	}

	printResults(metrics, fleet, duration, fleetDuration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func seedFleet(baseURL, tenantID string, count int, seed int64) ([]Merchant, error) {
	body, err := json.Marshal(GenerateRequest{Count: count, Seed: seed})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/merchants/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Merchants, nil
}

func runBenchmark(merchants []Merchant, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{codeCount: make(map[string]int64)}

	work := make(chan Merchant, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for m := range work {
				start := time.Now()
				result, err := scanMerchant(client, baseURL, tenantID, m.ID)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalScanned, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", m.ID, err)
					}
					continue
				}

				if result.Summary.Failing == 0 {
					atomic.AddInt64(&metrics.HealthyCount, 1)
				} else {
					atomic.AddInt64(&metrics.WithFailures, 1)
					atomic.AddInt64(&metrics.CallsAtRisk, int64(result.Summary.CallsAtRisk))
				}

				metrics.mu.Lock()
				seen := make(map[string]bool)
				for _, f := range result.Failures {
					if !seen[f.Code] {
						metrics.codeCount[f.Code]++
						seen[f.Code] = true
					}
				}
				metrics.mu.Unlock()

				if verbose {
					status := "✓"
					if result.Summary.Failing > 0 {
						status = "✗"
					}
					fmt.Printf("%s %-36s | Passing: %2d | Failing: %2d | CallsAtRisk: %6d | %v ms\n",
						status,
						m.ID,
						result.Summary.Passing,
						result.Summary.Failing,
						result.Summary.CallsAtRisk,
						elapsed,
					)
				}
			}
		}()
	}

	for _, m := range merchants {
		work <- m
	}
	close(work)

	wg.Wait()

	return metrics
}

func scanMerchant(client *http.Client, baseURL, tenantID, merchantID string) (*ScanResponse, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/merchants/"+merchantID+"/scan", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func fleetScan(baseURL, tenantID string) (*FleetScanResponse, error) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/fleet/scan", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result FleetScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printResults(m *Metrics, fleet *FleetScanResponse, duration, fleetDuration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 PER-MERCHANT SCANS\n")
	fmt.Printf("   Total Scanned:    %d\n", m.TotalScanned)
	fmt.Printf("   Healthy:          %d\n", m.HealthyCount)
	fmt.Printf("   With Failures:    %d\n", m.WithFailures)
	fmt.Printf("   Calls At Risk:    %d\n", m.CallsAtRisk)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n🔍 FAILURE CODE MIX (merchants per code)\n")
	type codeEntry struct {
		code  string
		count int64
	}
	entries := make([]codeEntry, 0, len(m.codeCount))
	for code, count := range m.codeCount {
		entries = append(entries, codeEntry{code, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].code < entries[j].code
	})
	for _, e := range entries {
		pct := float64(0)
		if m.TotalScanned > 0 {
			pct = 100 * float64(e.count) / float64(m.TotalScanned)
		}
		fmt.Printf("   %-22s %6d (%.2f%%)\n", e.code, e.count, pct)
	}

	fmt.Printf("\n🗂  FLEET SCAN CROSS-CHECK\n")
	fmt.Printf("   Total Merchants:  %d\n", fleet.TotalMerchants)
	fmt.Printf("   Healthy:          %d\n", fleet.HealthyCount)
	fmt.Printf("   With Failures:    %d\n", fleet.WithFailures)
	fmt.Printf("   With Critical:    %d\n", fleet.WithCritical)
	fmt.Printf("   Calls At Risk:    %d\n", fleet.CallsAtRisk)
	for _, tc := range fleet.TopFailureCodes {
		fmt.Printf("   top: %-22s %6d (%.2f%%)\n", tc.Code, tc.Count, tc.PctOfFleet)
	}

	if int64(fleet.HealthyCount) == m.HealthyCount && int64(fleet.WithFailures) == m.WithFailures {
		fmt.Println("   ✅ Fleet aggregates match per-merchant scans")
	} else {
		fmt.Println("   ⚠️  Fleet aggregates differ from per-merchant scans")
	}

	fmt.Printf("\n⏱  PERFORMANCE\n")
	fmt.Printf("   Scan Duration:    %v\n", duration.Round(time.Millisecond))
	fmt.Printf("   Fleet Scan:       %v\n", fleetDuration.Round(time.Millisecond))
	if m.TotalScanned > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalScanned)
		sps := float64(m.TotalScanned) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f scans/sec\n", sps)
	}

	fmt.Println()
}
