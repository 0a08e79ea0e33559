package domain

// Outcome is the verdict of evaluating one rule against one merchant.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeWarn Outcome = "warn"
	OutcomeFail Outcome = "fail"
)

// Severity is the intrinsic operational impact of a failing condition.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank orders severities for sorting: higher means worse.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// CodeOK is the sentinel code on a passing evaluation.
const CodeOK = "OK"

// RuleDefinition is the static metadata for one customer-facing action and
// its priority-ordered blocking conditions. The catalog is closed: exactly
// twelve definitions exist, ranked by historical call-center demand.
type RuleDefinition struct {
	ActionKey   string `json:"actionKey"`
	Label       string `json:"label"`
	DemandRank  int    `json:"demandRank"`  // 1 = highest historical call volume
	DemandTotal int    `json:"demandTotal"` // historical call volume for this action
	Description string `json:"description"`

	// UI navigation paths, display only.
	AppNavPath  string `json:"appNavPath"`
	USSDNavPath string `json:"ussdNavPath"`

	// Conditions are checked in order; the first match is the verdict.
	Conditions []Condition `json:"conditions"`
}

// Condition is a single blocking predicate within a rule. Expression is a
// CEL expression over the merchant sensor variables and must yield a bool.
type Condition struct {
	Code       string   `json:"code"`
	Expression string   `json:"expression"`
	Outcome    Outcome  `json:"outcome"` // fail or warn
	Severity   Severity `json:"severity"`
	Inline     string   `json:"inline"`
	Reason     string   `json:"reason"`
	Fix        string   `json:"fix"`
	Escalation string   `json:"escalation"`
}

// EvaluationResult is the output of evaluating one action against one
// merchant snapshot. On a pass, Code is CodeOK and the diagnostic fields
// are empty.
type EvaluationResult struct {
	ActionKey  string   `json:"actionKey"`
	Outcome    Outcome  `json:"outcome"`
	Code       string   `json:"code"`
	Severity   Severity `json:"severity,omitempty"`
	Inline     string   `json:"inline,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Fix        string   `json:"fix,omitempty"`
	Escalation string   `json:"escalation,omitempty"`
}

// Passed reports whether the evaluation found no blocking condition.
func (r *EvaluationResult) Passed() bool {
	return r.Outcome == OutcomePass
}

// Failure is a non-passing evaluation annotated with the rule's demand
// metadata for ranking and display.
type Failure struct {
	EvaluationResult
	Label       string `json:"label"`
	DemandRank  int    `json:"demandRank"`
	DemandTotal int    `json:"demandTotal"`
}
