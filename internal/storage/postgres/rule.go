package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

const (
	listScheduledRulesSQL = `SELECT id, status, days_after, order_priority, is_active, immediate
		FROM order_status_rules
		WHERE is_active AND NOT immediate
		ORDER BY days_after DESC, order_priority, id`

	listImmediateRulesSQL = `SELECT id, status, days_after, order_priority, is_active, immediate
		FROM order_status_rules
		WHERE is_active AND immediate
		ORDER BY order_priority, id`

	upsertRuleSQL = `INSERT INTO order_status_rules (status, days_after, order_priority, is_active, immediate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (status, days_after, immediate) DO UPDATE SET
			order_priority = EXCLUDED.order_priority,
			is_active = EXCLUDED.is_active
		RETURNING id`
)

var _ order.RuleRepository = (*RuleRepository)(nil)

// RuleRepository implements order.RuleRepository backed by PostgreSQL.
type RuleRepository struct {
	db DB
}

// NewRuleRepository returns a RuleRepository that uses the given connection.
func NewRuleRepository(db DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListActive returns active rules of one pool in evaluation order.
func (r *RuleRepository) ListActive(ctx context.Context, immediate bool) ([]order.Rule, error) {
	query := listScheduledRulesSQL
	if immediate {
		query = listImmediateRulesSQL
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list status rules")
	}
	out, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, errors.Wrap(err, "scan status rules")
	}
	return out, nil
}

// Upsert creates or updates a rule keyed by status, threshold and mode.
func (r *RuleRepository) Upsert(ctx context.Context, rule *order.Rule) error {
	err := r.db.QueryRow(ctx, upsertRuleSQL,
		string(rule.Status), rule.DaysAfter, rule.OrderPriority, rule.IsActive, rule.Immediate,
	).Scan(&rule.ID)
	if err != nil {
		return errors.Wrapf(err, "upsert rule %s after %d days", rule.Status, rule.DaysAfter)
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (order.Rule, error) {
	var (
		rule                order.Rule
		status              string
		daysAfter, priority int32
	)
	err := row.Scan(&rule.ID, &status, &daysAfter, &priority, &rule.IsActive, &rule.Immediate)
	rule.Status = order.Status(status)
	rule.DaysAfter = int(daysAfter)
	rule.OrderPriority = int(priority)
	return rule, err
}
