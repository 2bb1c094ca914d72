package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Locker serializes sweeps across processes. TryLock returns ok=false
// without error when another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// Result summarizes one sweep.
type Result struct {
	Scanned      int
	Transitioned int
	Unchanged    int
	Failed       int
	// Skipped counts terminal orders returned by the repository.
	Skipped int
}

// AdvancerOptions configures an Advancer. Zero values select defaults.
type AdvancerOptions struct {
	// Locker is optional. Without it sweeps are not serialized.
	Locker         Locker
	Logger         *zap.Logger
	Location       *time.Location
	Now            func() time.Time
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

func (o *AdvancerOptions) setDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
}

// Advancer runs the scheduled status sweep.
type Advancer struct {
	orders Repository
	rules  RuleRepository
	lock   Locker
	lg     *zap.Logger
	loc    *time.Location
	now    func() time.Time

	tracer      trace.Tracer
	transitions metric.Int64Counter
	failures    metric.Int64Counter
}

// NewAdvancer creates an Advancer.
func NewAdvancer(orders Repository, rules RuleRepository, opts AdvancerOptions) (*Advancer, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("github.com/bahodirov07uz/shop/internal/domain/order")
	transitions, err := meter.Int64Counter("order.status.transitions",
		metric.WithDescription("Order status transitions applied by the sweep"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "transitions counter")
	}
	failures, err := meter.Int64Counter("order.status.failures",
		metric.WithDescription("Orders the sweep failed to update"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}

	return &Advancer{
		orders:      orders,
		rules:       rules,
		lock:        opts.Locker,
		lg:          opts.Logger,
		loc:         opts.Location,
		now:         opts.Now,
		tracer:      opts.TracerProvider.Tracer("github.com/bahodirov07uz/shop/internal/domain/order"),
		transitions: transitions,
		failures:    failures,
	}, nil
}

// Run advances every eligible order once. It is idempotent for a fixed now:
// a second run finds every order already at its target status.
//
// Per-order save failures are logged and counted, never returned. Errors
// listing rules or orders abort the sweep.
func (a *Advancer) Run(ctx context.Context) (res Result, rerr error) {
	ctx, span := a.tracer.Start(ctx, "order.Advance")
	defer func() {
		span.SetAttributes(
			attribute.Int("order.scanned", res.Scanned),
			attribute.Int("order.transitioned", res.Transitioned),
			attribute.Int("order.failed", res.Failed),
		)
		if rerr != nil {
			span.RecordError(rerr)
		}
		span.End()
	}()

	if a.lock != nil {
		release, ok, err := a.lock.TryLock(ctx)
		if err != nil {
			return res, errors.Wrap(err, "acquire sweep lock")
		}
		if !ok {
			return res, ErrSweepInProgress
		}
		defer func() {
			// The sweep context may already be cancelled; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := release(releaseCtx); err != nil {
				a.lg.Warn("Release sweep lock", zap.Error(err))
			}
		}()
	}

	now := a.now()

	rules, err := a.rules.ListActive(ctx, false)
	if err != nil {
		return res, errors.Wrap(err, "list rules")
	}
	SortScheduled(rules)
	a.lg.Info("Loaded status rules", zap.Int("count", len(rules)))
	for _, r := range rules {
		a.lg.Debug("Rule", zap.Int("days_after", r.DaysAfter), zap.String("status", string(r.Status)))
	}

	orders, err := a.orders.ListActive(ctx)
	if err != nil {
		return res, errors.Wrap(err, "list orders")
	}
	a.lg.Info("Processing orders", zap.Int("count", len(orders)))

	for i := range orders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		o := &orders[i]
		res.Scanned++

		if o.Status.Terminal() {
			res.Skipped++
			continue
		}

		days := DaysPassed(o.CreatedAt, now, a.loc)
		target, ok := TargetStatus(rules, days)
		if !ok || target == o.Status {
			res.Unchanged++
			a.lg.Debug("Order unchanged",
				zap.String("order", o.Number),
				zap.String("status", string(o.Status)),
				zap.Int("days", days),
			)
			continue
		}

		old := o.Status
		o.SetStatus(target, now, fmt.Sprintf("%d days since creation", days))
		if err := a.orders.Save(ctx, o, FieldStatus, FieldLastStatusUpdate); err != nil {
			res.Failed++
			a.failures.Add(ctx, 1)
			a.lg.Error("Update order status",
				zap.String("order", o.Number),
				zap.String("old_status", string(old)),
				zap.String("new_status", string(target)),
				zap.Int("days", days),
				zap.Error(err),
			)
			continue
		}

		res.Transitioned++
		a.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(target))))
		a.lg.Info("Order status updated",
			zap.String("order", o.Number),
			zap.String("old_status", string(old)),
			zap.String("new_status", string(target)),
			zap.Int("days", days),
		)
	}

	a.lg.Info("Sweep finished",
		zap.Int("updated", res.Transitioned),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
