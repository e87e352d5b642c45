package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/models"
)

// RuleStore provides active rules and the atomic execution-metadata update
type RuleStore interface {
	GetActiveRules(ctx context.Context) ([]models.AutomationRule, error)
	MarkRuleExecuted(ctx context.Context, ruleID string, executedAt time.Time) error
}

// ActionRunner executes a fired rule's actions. Returns whether every
// action executed without error.
type ActionRunner interface {
	ExecuteAll(ctx context.Context, rule models.AutomationRule, actions []models.Action) bool
}

// Broadcaster publishes evaluation outcomes to subscribers
type Broadcaster interface {
	PublishToAll(event string, payload any)
}

// Evaluator matches incoming telemetry against active rules and fires
// their actions. Best-effort by contract: nothing here propagates back to
// ingestion.
type Evaluator struct {
	store  RuleStore
	runner ActionRunner
	fanout Broadcaster
	now    func() time.Time
}

func NewEvaluator(store RuleStore, runner ActionRunner, fan Broadcaster) *Evaluator {
	return &Evaluator{store: store, runner: runner, fanout: fan, now: time.Now}
}

// Evaluate runs every active rule against the event. Rules are read fresh
// per event so a deactivated rule can never fire on stale data. Each rule
// is evaluated independently; one rule's failure never stops the others.
func (e *Evaluator) Evaluate(ctx context.Context, ev models.TelemetryEvent) {
	active, err := e.store.GetActiveRules(ctx)
	if err != nil {
		slog.Error("rule fetch failed, skipping evaluation", "event_id", ev.ID, "error", err)
		return
	}

	for _, rule := range active {
		e.evaluateRule(ctx, rule, ev)
	}
}

func (e *Evaluator) evaluateRule(ctx context.Context, rule models.AutomationRule, ev models.TelemetryEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("rule evaluation panicked", "rule_id", rule.ID, "event_id", ev.ID, "panic", r)
		}
	}()

	for _, trigger := range rule.Triggers {
		if !Matches(trigger, ev) {
			continue
		}

		// First matching trigger fires the whole action list; a rule
		// fires at most once per event.
		success := e.runner.ExecuteAll(ctx, rule, rule.Actions)

		if err := e.store.MarkRuleExecuted(ctx, rule.ID, e.now().UTC()); err != nil {
			slog.Error("rule execution bookkeeping failed", "rule_id", rule.ID, "error", err)
			success = false
		}

		slog.Info("automation rule fired",
			"rule_id", rule.ID, "rule_name", rule.Name,
			"device_id", ev.DeviceID, "message_type", ev.MessageType, "success", success)

		e.fanout.PublishToAll(fanout.EventAutomationRuleExecuted, fanout.RuleExecuted{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Success:  success,
		})
		return
	}
}
