package scanner

import (
	"context"
	"sort"
	"sync"

	"github.com/opensource-finance/shrike/internal/domain"
)

// DefaultTopCodes is the length of the fleet top-failure-codes ranking.
const DefaultTopCodes = 5

// BatchOptions tunes a fleet scan.
type BatchOptions struct {
	// MaxWorkers bounds per-merchant parallelism. <= 0 means 16.
	MaxWorkers int
	// TopCodes is the ranking length. <= 0 means DefaultTopCodes.
	TopCodes int
}

// ScanBatch scans every merchant and reduces the results into fleet
// aggregates. Merchants are independent, so the map phase runs on a bounded
// worker pool; input order never affects the aggregates, and per-merchant
// reports come back sorted by merchant ID. An empty fleet yields zeroed
// aggregates.
func (s *Scanner) ScanBatch(ctx context.Context, merchants []*domain.Merchant, opts BatchOptions) (*domain.BatchResult, error) {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 16
	}
	topCodes := opts.TopCodes
	if topCodes <= 0 {
		topCodes = DefaultTopCodes
	}

	result := &domain.BatchResult{
		Reports:         make([]domain.MerchantReport, 0, len(merchants)),
		TotalMerchants:  len(merchants),
		TopFailureCodes: []domain.CodeCount{},
	}
	if len(merchants) == 0 {
		return result, nil
	}

	reports := make([]*domain.MerchantReport, len(merchants))
	errs := make([]error, len(merchants))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for i, m := range merchants {
		wg.Add(1)
		go func(idx int, merchant *domain.Merchant) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return
			}
			reports[idx], errs[idx] = s.Report(merchant)
		}(i, m)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Reduce phase.
	codeMerchants := make(map[string]int)
	for _, report := range reports {
		result.CallsAtRisk += report.Summary.CallsAtRisk
		if len(report.Failures) == 0 {
			result.HealthyCount++
		} else {
			result.WithFailures++
		}
		if report.HasCritical() {
			result.WithCritical++
		}

		// A merchant counts once per distinct code.
		seen := make(map[string]bool)
		for _, f := range report.Failures {
			if !seen[f.Code] {
				seen[f.Code] = true
				codeMerchants[f.Code]++
			}
		}

		result.Reports = append(result.Reports, *report)
	}

	sort.Slice(result.Reports, func(i, j int) bool {
		return result.Reports[i].Merchant.ID < result.Reports[j].Merchant.ID
	})

	result.TopFailureCodes = topFailureCodes(codeMerchants, result.TotalMerchants, topCodes)

	return result, nil
}

func topFailureCodes(codeMerchants map[string]int, fleetSize, limit int) []domain.CodeCount {
	counts := make([]domain.CodeCount, 0, len(codeMerchants))
	for code, n := range codeMerchants {
		pct := 0.0
		if fleetSize > 0 {
			pct = float64(n) / float64(fleetSize) * 100
		}
		counts = append(counts, domain.CodeCount{Code: code, Count: n, PctOfFleet: pct})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Code < counts[j].Code
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
