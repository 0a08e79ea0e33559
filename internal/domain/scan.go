package domain

import "time"

// Summary condenses a full scan of one merchant.
type Summary struct {
	MerchantID     string           `json:"merchantId"`
	RulesEvaluated int              `json:"rulesEvaluated"`
	Passing        int              `json:"passing"`
	Failing        int              `json:"failing"` // fail + warn
	BySeverity     map[Severity]int `json:"bySeverity"`
	CallsAtRisk    int              `json:"callsAtRisk"`
}

// MerchantReport pairs one merchant with its scan output.
type MerchantReport struct {
	Merchant  *Merchant `json:"merchant"`
	Summary   Summary   `json:"summary"`
	Failures  []Failure `json:"failures"`
	ScannedAt time.Time `json:"scannedAt"`
}

// HasCritical reports whether any failure in the report is critical.
func (r *MerchantReport) HasCritical() bool {
	for _, f := range r.Failures {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CodeCount is one entry in the fleet top-failure-codes ranking.
type CodeCount struct {
	Code       string  `json:"code"`
	Count      int     `json:"count"`      // merchants exhibiting the code
	PctOfFleet float64 `json:"pctOfFleet"` // Count / TotalMerchants * 100
}

// BatchResult is the fleet-wide output of scanning every merchant.
type BatchResult struct {
	Reports []MerchantReport `json:"reports"` // stable order by merchant ID

	TotalMerchants  int         `json:"totalMerchants"`
	HealthyCount    int         `json:"healthyCount"`
	WithFailures    int         `json:"withFailures"`
	WithCritical    int         `json:"withCritical"`
	CallsAtRisk     int         `json:"callsAtRisk"`
	TopFailureCodes []CodeCount `json:"topFailureCodes"`
}

// RiskTier is a coarse fleet-comparable classification of merchant health.
type RiskTier string

const (
	TierCritical RiskTier = "CRITICAL"
	TierHigh     RiskTier = "HIGH"
	TierMedium   RiskTier = "MEDIUM"
	TierHealthy  RiskTier = "HEALTHY"
)

// SensorBucket is the traffic-light category for a single sensor.
type SensorBucket string

const (
	BucketGreen SensorBucket = "green"
	BucketAmber SensorBucket = "amber"
	BucketRed   SensorBucket = "red"
)

// SensorHealth buckets every sensor independently of the action catalog.
type SensorHealth struct {
	Green []string `json:"green"`
	Amber []string `json:"amber"`
	Red   []string `json:"red"`
	// Score is green-count / total sensor count, in [0,1].
	Score float64 `json:"score"`
}
