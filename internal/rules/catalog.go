package rules

import "github.com/opensource-finance/shrike/internal/domain"

// Stable failure codes shared across the catalog.
const (
	CodeAccountFrozen     = "ACCOUNT_FROZEN"
	CodeAccountSuspended  = "ACCOUNT_SUSPENDED"
	CodePinLocked         = "PIN_LOCKED"
	CodeSimSwapUnverified = "SIM_SWAP_UNVERIFIED"
	CodeSimUnregistered   = "SIM_UNREGISTERED"
	CodeStartKeyInvalid   = "START_KEY_INVALID"
	CodeStartKeyExpired   = "START_KEY_EXPIRED"
	CodeKycExpired        = "KYC_EXPIRED"
	CodeKycPending        = "KYC_PENDING"
	CodeLowFloat          = "LOW_FLOAT"
	CodeNoBalance         = "NO_BALANCE"
	CodeSettlementHold    = "SETTLEMENT_HOLD"
	CodeNotificationsOff  = "NOTIFICATIONS_OFF"
	CodeDormant           = "DORMANT"
	CodeOperatorDormant   = "OPERATOR_DORMANT"
)

// Threshold constants referenced by catalog expressions. SIM swaps are
// treated as unverified for the first two days; float below 5,000 cannot
// cover a typical withdrawal.
const (
	SimSwapVerifyDays   = 2
	SimSwapUnlockGuard  = 7
	LowFloatThreshold   = 5000
	DormantWarnDays     = 30
	OperatorDormantWarn = 90
)

// Shared conditions. Each rule lists these in its own priority order; the
// evaluator reports only the first match.
var (
	condFrozen = domain.Condition{
		Code:       CodeAccountFrozen,
		Expression: `account_status == "frozen"`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityCritical,
		Inline:     "Account is frozen",
		Reason:     "The merchant account has been frozen by risk and compliance.",
		Fix:        "Only the compliance desk can lift a freeze after case review.",
		Escalation: "Escalate to the compliance desk with the merchant ID and freeze reference.",
	}
	condSuspended = domain.Condition{
		Code:       CodeAccountSuspended,
		Expression: `account_status == "suspended"`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityCritical,
		Inline:     "Account is suspended",
		Reason:     "The account is suspended, typically after 60 days without a transaction.",
		Fix:        "Reactivate the account from the back office, then ask the merchant to transact.",
		Escalation: "Back-office reactivation queue; same-day SLA.",
	}
	condPinLocked = domain.Condition{
		Code:       CodePinLocked,
		Expression: `pin_locked`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityHigh,
		Inline:     "PIN is locked after 3 failed attempts",
		Reason:     "Three consecutive wrong PIN entries locked the till PIN.",
		Fix:        "Reset the PIN via the agent admin channel after verifying the operator.",
		Escalation: "Agent support line can reset after ID verification.",
	}
	condSimSwapUnverified = domain.Condition{
		Code:       CodeSimSwapUnverified,
		Expression: `sim_status == "swapped" && sim_swap_days_ago <= 2`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityHigh,
		Inline:     "SIM was swapped in the last 2 days",
		Reason:     "A recent SIM swap has not yet been re-verified; transactions are blocked as a fraud guard.",
		Fix:        "The merchant must complete SIM re-verification at an agent outlet.",
		Escalation: "Fraud desk if the merchant denies requesting the swap.",
	}
	condSimUnregistered = domain.Condition{
		Code:       CodeSimUnregistered,
		Expression: `sim_status == "unregistered"`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityHigh,
		Inline:     "SIM is not registered",
		Reason:     "The SIM serving the till is not registered to the merchant.",
		Fix:        "Re-register the SIM with the mobile operator, then re-link the till.",
		Escalation: "SIM registration desk; requires the merchant's ID document.",
	}
	condStartKeyInvalid = domain.Condition{
		Code:       CodeStartKeyInvalid,
		Expression: `start_key_status == "invalid"`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityHigh,
		Inline:     "Till start key is invalid",
		Reason:     "The start key on the device no longer matches the till.",
		Fix:        "Issue a start key reset from the agent admin portal.",
		Escalation: "Device support can push a new key remotely.",
	}
	condStartKeyExpired = domain.Condition{
		Code:       CodeStartKeyExpired,
		Expression: `start_key_status == "expired"`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityHigh,
		Inline:     "Till start key has expired",
		Reason:     "The start key expired after long inactivity (540+ dormant days).",
		Fix:        "Issue a start key reset and confirm the till comes back online.",
		Escalation: "Device support; pair with a dormancy review.",
	}
	condKycExpired = domain.Condition{
		Code:       CodeKycExpired,
		Expression: `kyc_status == "expired"`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityMedium,
		Inline:     "KYC record has expired",
		Reason:     "The KYC record is older than 365 days and must be renewed.",
		Fix:        "Start a KYC renewal; the merchant uploads fresh documents.",
		Escalation: "KYC operations queue; 48h SLA.",
	}
	condKycPending = domain.Condition{
		Code:       CodeKycPending,
		Expression: `kyc_status == "pending"`,
		Outcome:    domain.OutcomeWarn,
		Severity:   domain.SeverityMedium,
		Inline:     "KYC renewal is pending review",
		Reason:     "A submitted KYC renewal has not been approved yet.",
		Fix:        "No merchant action needed; chase the KYC review queue.",
		Escalation: "KYC operations queue if pending more than 48h.",
	}
	condLowFloat = domain.Condition{
		Code:       CodeLowFloat,
		Expression: `balance < 5000.0`,
		Outcome:    domain.OutcomeWarn,
		Severity:   domain.SeverityMedium,
		Inline:     "Float below 5,000",
		Reason:     "The till float cannot cover a typical customer withdrawal.",
		Fix:        "Advise the merchant to top up float at a super-agent.",
		Escalation: "None; SMS nudge is sufficient.",
	}
	condNoBalance = domain.Condition{
		Code:       CodeNoBalance,
		Expression: `balance <= 0.0`,
		Outcome:    domain.OutcomeWarn,
		Severity:   domain.SeverityMedium,
		Inline:     "Nothing to settle",
		Reason:     "The till balance is zero; a settlement would transfer nothing.",
		Fix:        "No action; settle after the next trading day.",
		Escalation: "None.",
	}
	condSettlementHold = domain.Condition{
		Code:       CodeSettlementHold,
		Expression: `settlement_on_hold`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityCritical,
		Inline:     "Settlement to bank is on hold",
		Reason:     "Settlements are held, usually alongside a dormancy suspension.",
		Fix:        "Clear the hold after the account review completes.",
		Escalation: "Settlement operations; include the hold reference.",
	}
	condNotificationsOff = domain.Condition{
		Code:       CodeNotificationsOff,
		Expression: `!notifications_enabled`,
		Outcome:    domain.OutcomeWarn,
		Severity:   domain.SeverityLow,
		Inline:     "SMS notifications are off",
		Reason:     "The merchant will not receive transaction confirmations.",
		Fix:        "Re-enable notifications from the till menu.",
		Escalation: "None.",
	}
	condDormantWarn = domain.Condition{
		Code:       CodeDormant,
		Expression: `dormant_days >= 30`,
		Outcome:    domain.OutcomeWarn,
		Severity:   domain.SeverityMedium,
		Inline:     "No transactions for 30+ days",
		Reason:     "The till is drifting toward the 60-day auto-suspension.",
		Fix:        "Proactive call or SMS before the account suspends.",
		Escalation: "Retention outreach list.",
	}
	condOperatorDormantWarn = domain.Condition{
		Code:       CodeOperatorDormant,
		Expression: `operator_dormant_days >= 90`,
		Outcome:    domain.OutcomeWarn,
		Severity:   domain.SeverityMedium,
		Inline:     "Operator inactive on admin channel for 90+ days",
		Reason:     "Nobody has used the administrative channel; credentials may be lost.",
		Fix:        "Walk the operator through an admin-channel login.",
		Escalation: "Field team visit if unreachable.",
	}
	condPinUnlockSwapGuard = domain.Condition{
		Code:       CodeSimSwapUnverified,
		Expression: `sim_status == "swapped" && sim_swap_days_ago <= 7`,
		Outcome:    domain.OutcomeFail,
		Severity:   domain.SeverityHigh,
		Inline:     "PIN unlock blocked within 7 days of a SIM swap",
		Reason:     "Unlocking a PIN right after a SIM swap is the classic takeover pattern.",
		Fix:        "Wait out the guard window or verify the operator in person.",
		Escalation: "Fraud desk for in-person verification.",
	}
)

// Catalog returns the fixed, demand-ranked set of twelve action rules.
// The set is closed; policy changes are edits to this table, not engine
// changes.
func Catalog() []*domain.RuleDefinition {
	return []*domain.RuleDefinition{
		{
			ActionKey:   "customer_deposit",
			Label:       "Customer Deposit",
			DemandRank:  1,
			DemandTotal: 18540,
			Description: "Customer pays cash in at the till.",
			AppNavPath:  "Home > Transact > Deposit",
			USSDNavPath: "*234# > 1 > 1",
			Conditions: []domain.Condition{
				condFrozen, condSuspended, condPinLocked,
				condSimSwapUnverified, condSimUnregistered,
				condStartKeyInvalid, condStartKeyExpired,
				condKycExpired,
			},
		},
		{
			ActionKey:   "customer_withdrawal",
			Label:       "Customer Withdrawal",
			DemandRank:  2,
			DemandTotal: 16220,
			Description: "Customer cashes out at the till.",
			AppNavPath:  "Home > Transact > Withdraw",
			USSDNavPath: "*234# > 1 > 2",
			Conditions: []domain.Condition{
				condFrozen, condSuspended, condPinLocked,
				condSimSwapUnverified, condSimUnregistered,
				condStartKeyInvalid, condStartKeyExpired,
				condKycExpired, condLowFloat,
			},
		},
		{
			ActionKey:   "balance_inquiry",
			Label:       "Balance Inquiry",
			DemandRank:  3,
			DemandTotal: 9875,
			Description: "Merchant checks the till balance.",
			AppNavPath:  "Home > Till > Balance",
			USSDNavPath: "*234# > 2 > 1",
			Conditions: []domain.Condition{
				condFrozen, condPinLocked, condSimUnregistered,
				condStartKeyExpired,
			},
		},
		{
			ActionKey:   "float_topup",
			Label:       "Float Top-Up",
			DemandRank:  4,
			DemandTotal: 8410,
			Description: "Merchant buys float from a super-agent.",
			AppNavPath:  "Home > Till > Buy Float",
			USSDNavPath: "*234# > 2 > 3",
			Conditions: []domain.Condition{
				condFrozen, condSuspended, condPinLocked,
				condSimSwapUnverified, condKycExpired,
			},
		},
		{
			ActionKey:   "bank_settlement",
			Label:       "Bank Settlement",
			DemandRank:  5,
			DemandTotal: 7305,
			Description: "Sweep the till balance to the linked bank account.",
			AppNavPath:  "Home > Till > Settle to Bank",
			USSDNavPath: "*234# > 2 > 4",
			Conditions: []domain.Condition{
				condFrozen, condSettlementHold, condSuspended,
				condKycExpired, condNoBalance,
			},
		},
		{
			ActionKey:   "pin_change",
			Label:       "PIN Change",
			DemandRank:  6,
			DemandTotal: 6120,
			Description: "Operator changes the till PIN.",
			AppNavPath:  "Home > Settings > Security > Change PIN",
			USSDNavPath: "*234# > 3 > 1",
			Conditions: []domain.Condition{
				condFrozen, condSuspended, condPinLocked,
				condSimSwapUnverified,
			},
		},
		{
			ActionKey:   "pin_unlock",
			Label:       "PIN Unlock Request",
			DemandRank:  7,
			DemandTotal: 5480,
			Description: "Operator requests an unlock of a locked PIN. Passes while the PIN is locked; the rule guards the unlock channel.",
			AppNavPath:  "Home > Settings > Security > Unlock PIN",
			USSDNavPath: "*234# > 3 > 2",
			Conditions: []domain.Condition{
				condFrozen, condPinUnlockSwapGuard, condKycExpired,
			},
		},
		{
			ActionKey:   "sim_replacement",
			Label:       "SIM Replacement",
			DemandRank:  8,
			DemandTotal: 4230,
			Description: "Merchant replaces the SIM serving the till.",
			AppNavPath:  "Home > Settings > Device > Replace SIM",
			USSDNavPath: "*234# > 3 > 3",
			Conditions: []domain.Condition{
				condFrozen,
				{
					Code:       CodeKycExpired,
					Expression: `kyc_status == "expired"`,
					Outcome:    domain.OutcomeFail,
					Severity:   domain.SeverityHigh,
					Inline:     "SIM replacement needs a current KYC record",
					Reason:     "Identity checks for SIM replacement require unexpired KYC.",
					Fix:        "Renew KYC first, then request the replacement.",
					Escalation: "KYC operations queue; flag as blocking a SIM replacement.",
				},
				condKycPending,
			},
		},
		{
			ActionKey:   "mini_statement",
			Label:       "Mini Statement",
			DemandRank:  9,
			DemandTotal: 3615,
			Description: "Merchant pulls the recent transaction list.",
			AppNavPath:  "Home > Till > Statement",
			USSDNavPath: "*234# > 2 > 2",
			Conditions: []domain.Condition{
				condFrozen, condPinLocked, condSimUnregistered,
				condDormantWarn, condNotificationsOff,
			},
		},
		{
			ActionKey:   "kyc_update",
			Label:       "KYC Update",
			DemandRank:  10,
			DemandTotal: 2980,
			Description: "Merchant submits renewed KYC documents.",
			AppNavPath:  "Home > Profile > KYC",
			USSDNavPath: "*234# > 4 > 1",
			Conditions: []domain.Condition{
				condFrozen, condSimUnregistered, condOperatorDormantWarn,
			},
		},
		{
			ActionKey:   "commission_withdrawal",
			Label:       "Commission Withdrawal",
			DemandRank:  11,
			DemandTotal: 2145,
			Description: "Merchant withdraws earned commissions.",
			AppNavPath:  "Home > Earnings > Withdraw",
			USSDNavPath: "*234# > 5 > 1",
			Conditions: []domain.Condition{
				condFrozen, condSuspended,
				{
					Code:       CodeSettlementHold,
					Expression: `settlement_on_hold`,
					Outcome:    domain.OutcomeFail,
					Severity:   domain.SeverityHigh,
					Inline:     "Commission payout blocked by settlement hold",
					Reason:     "Commission payouts share the settlement rail, which is on hold.",
					Fix:        "Clear the settlement hold first.",
					Escalation: "Settlement operations.",
				},
				condPinLocked, condKycExpired,
			},
		},
		{
			ActionKey:   "alerts_optin",
			Label:       "SMS Alerts Opt-In",
			DemandRank:  12,
			DemandTotal: 1040,
			Description: "Merchant subscribes to transaction SMS alerts.",
			AppNavPath:  "Home > Settings > Notifications",
			USSDNavPath: "*234# > 4 > 2",
			Conditions: []domain.Condition{
				condSimUnregistered, condSimSwapUnverified,
				{
					Code:       CodeAccountFrozen,
					Expression: `account_status == "frozen"`,
					Outcome:    domain.OutcomeFail,
					Severity:   domain.SeverityMedium,
					Inline:     "Profile changes disabled while frozen",
					Reason:     "Frozen accounts cannot change notification settings.",
					Fix:        "Resolve the freeze first.",
					Escalation: "Compliance desk.",
				},
			},
		},
	}
}

// CatalogSize is the number of actions in the closed catalog.
const CatalogSize = 12
