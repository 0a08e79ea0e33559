// Package scanner runs the full rule catalog against merchant snapshots and
// aggregates the verdicts, per merchant and across a fleet.
package scanner

import (
	"sort"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/rules"
)

// Scanner evaluates every catalog action for a merchant.
type Scanner struct {
	engine *rules.Engine
}

// New creates a scanner over the given engine.
func New(engine *rules.Engine) *Scanner {
	return &Scanner{engine: engine}
}

// ScanAll evaluates all catalog actions and returns the non-passing results,
// annotated with demand metadata and sorted by the composite risk key:
// severity rank descending, then demand total descending, then demand rank
// ascending.
func (s *Scanner) ScanAll(m *domain.Merchant) ([]domain.Failure, error) {
	report, err := s.Report(m)
	if err != nil {
		return nil, err
	}
	return report.Failures, nil
}

// Summarize derives the scan summary for one merchant.
func (s *Scanner) Summarize(m *domain.Merchant) (*domain.Summary, error) {
	report, err := s.Report(m)
	if err != nil {
		return nil, err
	}
	return &report.Summary, nil
}

// Report runs one full scan and returns failures and summary together.
func (s *Scanner) Report(m *domain.Merchant) (*domain.MerchantReport, error) {
	keys := s.engine.ActionKeys()

	report := &domain.MerchantReport{
		Merchant:  m,
		ScannedAt: time.Now().UTC(),
		Summary: domain.Summary{
			MerchantID:     m.ID,
			RulesEvaluated: len(keys),
			BySeverity:     make(map[domain.Severity]int),
		},
	}

	for _, key := range keys {
		result, err := s.engine.Evaluate(m, key)
		if err != nil {
			return nil, err
		}
		if result.Passed() {
			report.Summary.Passing++
			continue
		}

		def, err := s.engine.Definition(key)
		if err != nil {
			return nil, err
		}

		report.Failures = append(report.Failures, domain.Failure{
			EvaluationResult: *result,
			Label:            def.Label,
			DemandRank:       def.DemandRank,
			DemandTotal:      def.DemandTotal,
		})
		report.Summary.Failing++
		report.Summary.BySeverity[result.Severity]++
		report.Summary.CallsAtRisk += def.DemandTotal
	}

	sortFailures(report.Failures)

	return report, nil
}

// sortFailures orders by severity (worst first), then historical demand
// (largest call volume first), ties broken by demand rank (lower = earlier).
func sortFailures(failures []domain.Failure) {
	sort.SliceStable(failures, func(i, j int) bool {
		si, sj := domain.SeverityRank(failures[i].Severity), domain.SeverityRank(failures[j].Severity)
		if si != sj {
			return si > sj
		}
		if failures[i].DemandTotal != failures[j].DemandTotal {
			return failures[i].DemandTotal > failures[j].DemandTotal
		}
		return failures[i].DemandRank < failures[j].DemandRank
	})
}
