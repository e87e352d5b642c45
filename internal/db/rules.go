package db

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/models"
)

const ruleColumns = "id, owner_id, name, description, active, triggers, actions, schedule, last_executed, execution_count"

func scanRule(row interface{ Scan(...any) error }) (*models.AutomationRule, error) {
	var r models.AutomationRule
	var triggersRaw, actionsRaw []byte
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Description, &r.Active,
		&triggersRaw, &actionsRaw, &r.Schedule, &r.LastExecuted, &r.ExecutionCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(triggersRaw, &r.Triggers); err != nil {
		slog.Warn("rule has malformed triggers", "rule_id", r.ID, "error", err)
	}
	if err := json.Unmarshal(actionsRaw, &r.Actions); err != nil {
		slog.Warn("rule has malformed actions", "rule_id", r.ID, "error", err)
	}
	return &r, nil
}

// GetActiveRules fetches all rules with active = true. The evaluator calls
// this fresh per event, so a deactivated rule is never evaluated as active.
func (d *DB) GetActiveRules(ctx context.Context) ([]models.AutomationRule, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+ruleColumns+" FROM automation_rules WHERE active = true ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// GetRulesByOwner fetches all rules belonging to a user
func (d *DB) GetRulesByOwner(ctx context.Context, ownerID string) ([]models.AutomationRule, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+ruleColumns+" FROM automation_rules WHERE owner_id = $1 ORDER BY name", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// MarkRuleExecuted bumps execution_count and advances last_executed in one
// atomic statement. The in-database increment is what makes concurrent
// matches against the same rule lose no updates, and GREATEST keeps
// last_executed at the maximum processing time.
func (d *DB) MarkRuleExecuted(ctx context.Context, ruleID string, executedAt time.Time) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE automation_rules
		 SET execution_count = execution_count + 1,
		     last_executed = GREATEST(COALESCE(last_executed, $2), $2)
		 WHERE id = $1`,
		ruleID, executedAt)
	return err
}
