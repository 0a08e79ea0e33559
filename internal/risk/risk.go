// Package risk classifies merchant health independently of the action
// catalog: per-sensor traffic-light buckets and a coarse fleet tier.
package risk

import (
	"github.com/opensource-finance/shrike/internal/domain"
)

// Fixed per-sensor thresholds.
const (
	DormantAmberDays         = 30
	DormantRedDays           = 60
	OperatorDormantAmberDays = 60
	OperatorDormantRedDays   = 90
	KYCNearExpiryDays        = 330
	LowBalanceAmber          = 5000
	LowBalanceRed            = 500
	PinAttemptsAmber         = 2
)

// sensorCheck buckets one sensor. The table below is the classification as
// data; adding a sensor is a table edit.
type sensorCheck struct {
	name   string
	bucket func(m *domain.Merchant) domain.SensorBucket
}

var sensorChecks = []sensorCheck{
	{"account_status", func(m *domain.Merchant) domain.SensorBucket {
		if m.AccountStatus != domain.AccountActive {
			return domain.BucketRed
		}
		return domain.BucketGreen
	}},
	{"kyc_status", func(m *domain.Merchant) domain.SensorBucket {
		switch m.KYCStatus {
		case domain.KYCExpired:
			return domain.BucketRed
		case domain.KYCPending:
			return domain.BucketAmber
		}
		if m.KYCAgeDays >= KYCNearExpiryDays {
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"sim_status", func(m *domain.Merchant) domain.SensorBucket {
		switch m.SIMStatus {
		case domain.SIMUnregistered:
			return domain.BucketRed
		case domain.SIMSwapped:
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"pin", func(m *domain.Merchant) domain.SensorBucket {
		if m.PinLocked {
			return domain.BucketRed
		}
		if m.PinAttempts >= PinAttemptsAmber {
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"start_key", func(m *domain.Merchant) domain.SensorBucket {
		switch m.StartKeyStatus {
		case domain.StartKeyExpired:
			return domain.BucketRed
		case domain.StartKeyInvalid:
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"balance", func(m *domain.Merchant) domain.SensorBucket {
		if m.Balance < LowBalanceRed {
			return domain.BucketRed
		}
		if m.Balance < LowBalanceAmber {
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"dormant_days", func(m *domain.Merchant) domain.SensorBucket {
		if m.DormantDays >= DormantRedDays {
			return domain.BucketRed
		}
		if m.DormantDays >= DormantAmberDays {
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"operator_dormant_days", func(m *domain.Merchant) domain.SensorBucket {
		if m.OperatorDormantDays >= OperatorDormantRedDays {
			return domain.BucketRed
		}
		if m.OperatorDormantDays >= OperatorDormantAmberDays {
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"notifications", func(m *domain.Merchant) domain.SensorBucket {
		if !m.NotificationsEnabled {
			return domain.BucketAmber
		}
		return domain.BucketGreen
	}},
	{"settlement", func(m *domain.Merchant) domain.SensorBucket {
		if m.SettlementOnHold {
			return domain.BucketRed
		}
		return domain.BucketGreen
	}},
}

// SensorCount is the number of monitored sensors.
var SensorCount = len(sensorChecks)

// SensorHealth buckets each sensor into green/amber/red and scores the
// snapshot as green-count / sensor-count.
func SensorHealth(m *domain.Merchant) *domain.SensorHealth {
	health := &domain.SensorHealth{
		Green: []string{},
		Amber: []string{},
		Red:   []string{},
	}

	for _, check := range sensorChecks {
		switch check.bucket(m) {
		case domain.BucketRed:
			health.Red = append(health.Red, check.name)
		case domain.BucketAmber:
			health.Amber = append(health.Amber, check.name)
		default:
			health.Green = append(health.Green, check.name)
		}
	}

	health.Score = float64(len(health.Green)) / float64(len(sensorChecks))
	return health
}

// RiskTier derives the coarse tier from the sensor buckets:
// CRITICAL at >=3 red sensors or a frozen account; HIGH at >=1 red or
// >=3 amber; MEDIUM at >=1 amber; else HEALTHY.
func RiskTier(m *domain.Merchant) domain.RiskTier {
	health := SensorHealth(m)

	switch {
	case len(health.Red) >= 3 || m.AccountStatus == domain.AccountFrozen:
		return domain.TierCritical
	case len(health.Red) >= 1 || len(health.Amber) >= 3:
		return domain.TierHigh
	case len(health.Amber) >= 1:
		return domain.TierMedium
	default:
		return domain.TierHealthy
	}
}
