// Package rules provides the CEL-Go based diagnostic rule engine.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Engine evaluates the action catalog against merchant snapshots.
// Evaluation is a pure function of the snapshot: no I/O, no randomness,
// identical inputs always yield identical results.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*CompiledRule
	ordered  []string // action keys sorted by demand rank
}

// CompiledRule pairs a rule definition with its pre-compiled condition
// programs, index-aligned with Definition.Conditions.
type CompiledRule struct {
	Definition *domain.RuleDefinition
	Programs   []cel.Program
}

// NewEngine creates an engine loaded with the builtin catalog.
func NewEngine() (*Engine, error) {
	return NewEngineWithCatalog(Catalog())
}

// NewEngineWithCatalog creates an engine from an explicit rule set, so tests
// can substitute fixtures for the builtin catalog.
func NewEngineWithCatalog(defs []*domain.RuleDefinition) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("account_status", cel.StringType),
		cel.Variable("kyc_status", cel.StringType),
		cel.Variable("kyc_age_days", cel.IntType),
		cel.Variable("sim_status", cel.StringType),
		// -1 when the SIM has never been swapped
		cel.Variable("sim_swap_days_ago", cel.IntType),
		cel.Variable("pin_attempts", cel.IntType),
		cel.Variable("pin_locked", cel.BoolType),
		cel.Variable("start_key_status", cel.StringType),
		cel.Variable("balance", cel.DoubleType),
		cel.Variable("dormant_days", cel.IntType),
		cel.Variable("operator_dormant_days", cel.IntType),
		cel.Variable("notifications_enabled", cel.BoolType),
		cel.Variable("settlement_on_hold", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{
		env:      env,
		compiled: make(map[string]*CompiledRule, len(defs)),
	}

	for _, def := range defs {
		compiled, err := e.compileRule(def)
		if err != nil {
			return nil, err
		}
		e.compiled[def.ActionKey] = compiled
		e.ordered = append(e.ordered, def.ActionKey)
	}

	sort.Slice(e.ordered, func(i, j int) bool {
		return e.compiled[e.ordered[i]].Definition.DemandRank < e.compiled[e.ordered[j]].Definition.DemandRank
	})

	return e, nil
}

func (e *Engine) compileRule(def *domain.RuleDefinition) (*CompiledRule, error) {
	programs := make([]cel.Program, 0, len(def.Conditions))
	for _, cond := range def.Conditions {
		ast, issues := e.env.Compile(cond.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile condition %s/%s: %w", def.ActionKey, cond.Code, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("condition %s/%s: expression must return bool, got %s", def.ActionKey, cond.Code, ast.OutputType())
		}
		program, err := e.env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for condition %s/%s: %w", def.ActionKey, cond.Code, err)
		}
		programs = append(programs, program)
	}
	return &CompiledRule{Definition: def, Programs: programs}, nil
}

// activation maps merchant sensors to CEL variables.
func activation(m *domain.Merchant) map[string]any {
	simSwapDays := -1
	if m.SIMSwapDaysAgo != nil {
		simSwapDays = *m.SIMSwapDaysAgo
	}
	return map[string]any{
		"account_status":        string(m.AccountStatus),
		"kyc_status":            string(m.KYCStatus),
		"kyc_age_days":          m.KYCAgeDays,
		"sim_status":            string(m.SIMStatus),
		"sim_swap_days_ago":     simSwapDays,
		"pin_attempts":          m.PinAttempts,
		"pin_locked":            m.PinLocked,
		"start_key_status":      string(m.StartKeyStatus),
		"balance":               m.Balance,
		"dormant_days":          m.DormantDays,
		"operator_dormant_days": m.OperatorDormantDays,
		"notifications_enabled": m.NotificationsEnabled,
		"settlement_on_hold":    m.SettlementOnHold,
	}
}

// Evaluate runs one action's conditions against one merchant snapshot and
// returns the first matching verdict, or a pass when nothing matches.
// Unknown action keys return *domain.UnknownActionError; invalid snapshots
// return *domain.InvalidMerchantStateError.
func (e *Engine) Evaluate(m *domain.Merchant, actionKey string) (*domain.EvaluationResult, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	rule, ok := e.compiled[actionKey]
	e.mu.RUnlock()
	if !ok {
		return nil, &domain.UnknownActionError{ActionKey: actionKey}
	}

	vars := activation(m)

	for i, program := range rule.Programs {
		out, _, err := program.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("condition %s/%s: %w", actionKey, rule.Definition.Conditions[i].Code, err)
		}
		matched, ok := out.(types.Bool)
		if !ok {
			return nil, fmt.Errorf("condition %s/%s: non-bool result", actionKey, rule.Definition.Conditions[i].Code)
		}
		if bool(matched) {
			cond := rule.Definition.Conditions[i]
			return &domain.EvaluationResult{
				ActionKey:  actionKey,
				Outcome:    cond.Outcome,
				Code:       cond.Code,
				Severity:   cond.Severity,
				Inline:     cond.Inline,
				Reason:     cond.Reason,
				Fix:        cond.Fix,
				Escalation: cond.Escalation,
			}, nil
		}
	}

	return &domain.EvaluationResult{
		ActionKey: actionKey,
		Outcome:   domain.OutcomePass,
		Code:      domain.CodeOK,
	}, nil
}

// Definition returns the catalog entry for one action key.
func (e *Engine) Definition(actionKey string) (*domain.RuleDefinition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rule, ok := e.compiled[actionKey]
	if !ok {
		return nil, &domain.UnknownActionError{ActionKey: actionKey}
	}
	return rule.Definition, nil
}

// Definitions returns the catalog sorted by demand rank.
func (e *Engine) Definitions() []*domain.RuleDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	defs := make([]*domain.RuleDefinition, 0, len(e.ordered))
	for _, key := range e.ordered {
		defs = append(defs, e.compiled[key].Definition)
	}
	return defs
}

// ActionKeys returns the catalog's action keys sorted by demand rank.
func (e *Engine) ActionKeys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, len(e.ordered))
	copy(keys, e.ordered)
	return keys
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*CompiledRule)
	e.ordered = nil
	return nil
}
