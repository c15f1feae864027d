/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package recon

import (
	"context"
	"time"

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/config"
	"github.com/blnkfinance/recon/datasource"
	"github.com/blnkfinance/recon/internal/notification"
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recon loads ledgers through a datasource and reconciles them.
type Recon struct {
	datasource datasource.IDataSource
	config     *config.Configuration
	tracer     trace.Tracer
}

// NewRecon creates a Recon reading from ds with the current configuration.
//
// Parameters:
// - ds datasource.IDataSource: The source of every domain's tables.
//
// Returns:
// - *Recon: The reconciler.
// - error: If the configuration has not been loaded.
func NewRecon(ds datasource.IDataSource) (*Recon, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &Recon{datasource: ds, config: cnf, tracer: otel.Tracer("recon.orchestrator")}, nil
}

// Options builds the reconciliation options from configuration with now as
// the reference date.
func (r *Recon) Options(now time.Time) (Options, error) {
	opts := DefaultOptions(now)
	opts.Keys = r.config.Keys.WithDefaults()
	if t := r.config.ToleranceDecimal(); t.IsPositive() {
		opts.Tolerance = t
	}
	if r.config.Period.IsSet() {
		start, end, err := r.config.Period.Bounds()
		if err != nil {
			return opts, errors.Wrap(err, "parsing reconciliation period")
		}
		opts.PeriodStart, opts.PeriodEnd = start, end
	}
	cutoff, err := r.config.Cutoff()
	if err != nil {
		return opts, errors.Wrap(err, "parsing inventory cutoff")
	}
	opts.Cutoff = cutoff

	a := r.config.Anomaly
	switch a.Method {
	case config.MethodDensity:
		c := a.Contamination
		if c == 0 {
			c = anomaly.DefaultContamination
		}
		opts.Outliers = anomaly.DensityDetector(c)
	default:
		th := a.ZScoreThreshold
		if th == 0 {
			th = anomaly.DefaultZScoreThreshold
		}
		opts.Outliers = anomaly.ZScoreDetector(th)
	}
	return opts, nil
}

// step is one domain of a full run.
type step struct {
	name string
	run  func(ctx context.Context, report *model.Report, opts Options) error
}

func (r *Recon) steps() []step {
	return []step{
		{"bank", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.Bank, err = r.reconcileBank(ctx, opts)
			return err
		}},
		{"cash_equivalents", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.CashEquivalents, err = r.reconcileCashEquivalents(ctx, opts)
			return err
		}},
		{"inventory", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.Inventory, err = r.reconcileInventory(ctx, opts)
			return err
		}},
		{"ar", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.AR, err = r.reconcileAR(ctx, opts)
			return err
		}},
		{"ap", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.AP, err = r.reconcileAP(ctx, opts)
			return err
		}},
		{"fixed_assets", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.FixedAssets, err = r.reconcileFixedAssets(ctx, opts)
			return err
		}},
		{"prepaid", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.Prepaid, err = r.reconcilePrepaid(ctx, opts)
			return err
		}},
		{"accrued", func(ctx context.Context, rep *model.Report, opts Options) (err error) {
			rep.Accrued, err = r.reconcileAccrued(ctx, opts)
			return err
		}},
	}
}

// RunAll reconciles every domain in turn and stops at the first failure.
// The report is returned in both cases; its status records the outcome.
//
// Parameters:
// - ctx context.Context: Context for cancellation and tracing.
// - now time.Time: Reference date for aging and maturity.
//
// Returns:
// - *model.Report: The results gathered so far, with status and timing.
// - error: The first domain failure.
func (r *Recon) RunAll(ctx context.Context, now time.Time) (*model.Report, error) {
	ctx, span := r.tracer.Start(ctx, "RunAll")
	defer span.End()

	report := &model.Report{
		RunID:     model.GenerateUUIDWithSuffix("recon"),
		Status:    model.StatusStarted,
		AsOf:      now,
		StartedAt: time.Now(),
	}
	span.SetAttributes(attribute.String("recon.run_id", report.RunID))
	log := logrus.WithFields(logrus.Fields{"run_id": report.RunID, "as_of": now.Format(time.DateOnly)})
	log.Info("reconciliation run started")

	fail := func(err error) (*model.Report, error) {
		report.Status = model.StatusFailed
		report.Error = err.Error()
		report.CompletedAt = ptr.Time(time.Now())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("reconciliation run failed")
		notification.NotifyError(ctx, err)
		return report, err
	}

	opts, err := r.Options(now)
	if err != nil {
		return fail(err)
	}
	for _, s := range r.steps() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := s.run(ctx, report, opts); err != nil {
			return fail(errors.Wrapf(err, "%s reconciliation", s.name))
		}
	}

	report.Status = model.StatusCompleted
	report.CompletedAt = ptr.Time(time.Now())
	log.Info("reconciliation run completed")
	return report, nil
}

// traced runs fn inside a span named after the domain and logs its outcome.
func traced[T any](ctx context.Context, r *Recon, domain string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := r.tracer.Start(ctx, "Reconcile", trace.WithAttributes(attribute.String("recon.domain", domain)))
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	log := logrus.WithFields(logrus.Fields{"domain": domain, "duration": time.Since(start).String()})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("reconciliation failed")
		return result, err
	}
	log.Info("reconciliation finished")
	return result, nil
}

// ReconcileBank loads the configured bank account and reconciles it.
func (r *Recon) ReconcileBank(ctx context.Context, now time.Time) (*model.BankResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileBank(ctx, opts)
}

func (r *Recon) reconcileBank(ctx context.Context, opts Options) (*model.BankResult, error) {
	return traced(ctx, r, "bank", func(ctx context.Context) (*model.BankResult, error) {
		data, err := r.datasource.LoadBank(ctx, model.BankQuery{
			AccountID:   r.config.Bank.AccountID,
			ClientID:    r.config.Bank.ClientID,
			PeriodStart: opts.PeriodStart,
			PeriodEnd:   opts.PeriodEnd,
		})
		if err != nil {
			return nil, err
		}
		return ReconcileBank(data.Transactions, data.Statements, opts)
	})
}

// ReconcileAR loads and reconciles accounts receivable.
func (r *Recon) ReconcileAR(ctx context.Context, now time.Time) (*model.ARResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileAR(ctx, opts)
}

func (r *Recon) reconcileAR(ctx context.Context, opts Options) (*model.ARResult, error) {
	return traced(ctx, r, "ar", func(ctx context.Context) (*model.ARResult, error) {
		data, err := r.datasource.LoadAR(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileAR(data.Subledger, data.GL, data.Allowance, opts)
	})
}

// ReconcileAP loads and reconciles accounts payable.
func (r *Recon) ReconcileAP(ctx context.Context, now time.Time) (*model.APResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileAP(ctx, opts)
}

func (r *Recon) reconcileAP(ctx context.Context, opts Options) (*model.APResult, error) {
	return traced(ctx, r, "ap", func(ctx context.Context) (*model.APResult, error) {
		data, err := r.datasource.LoadAP(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileAP(data.Subledger, data.GL, data.CreditCard, data.BatchPayments, opts)
	})
}

// ReconcileFixedAssets loads and reconciles the fixed asset register.
func (r *Recon) ReconcileFixedAssets(ctx context.Context, now time.Time) (*model.FixedAssetsResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileFixedAssets(ctx, opts)
}

func (r *Recon) reconcileFixedAssets(ctx context.Context, opts Options) (*model.FixedAssetsResult, error) {
	return traced(ctx, r, "fixed_assets", func(ctx context.Context) (*model.FixedAssetsResult, error) {
		data, err := r.datasource.LoadFixedAssets(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileFixedAssets(data.Register, data.GL, data.Depreciation, opts)
	})
}

// ReconcileInventory loads and reconciles inventory.
func (r *Recon) ReconcileInventory(ctx context.Context, now time.Time) (*model.InventoryResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileInventory(ctx, opts)
}

func (r *Recon) reconcileInventory(ctx context.Context, opts Options) (*model.InventoryResult, error) {
	return traced(ctx, r, "inventory", func(ctx context.Context) (*model.InventoryResult, error) {
		data, err := r.datasource.LoadInventory(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileInventory(data.GL, data.Counts, data.MarketValues, data.APTransactions, opts)
	})
}

// ReconcilePrepaid loads and reconciles the prepaid expense schedule.
func (r *Recon) ReconcilePrepaid(ctx context.Context, now time.Time) (*model.ScheduleResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcilePrepaid(ctx, opts)
}

func (r *Recon) reconcilePrepaid(ctx context.Context, opts Options) (*model.ScheduleResult, error) {
	return traced(ctx, r, "prepaid", func(ctx context.Context) (*model.ScheduleResult, error) {
		data, err := r.datasource.LoadPrepaid(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcilePrepaid(data.Schedule, data.GL, opts)
	})
}

// ReconcileAccrued loads and reconciles the accrued expense schedule.
func (r *Recon) ReconcileAccrued(ctx context.Context, now time.Time) (*model.ScheduleResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileAccrued(ctx, opts)
}

func (r *Recon) reconcileAccrued(ctx context.Context, opts Options) (*model.ScheduleResult, error) {
	return traced(ctx, r, "accrued", func(ctx context.Context) (*model.ScheduleResult, error) {
		data, err := r.datasource.LoadAccrued(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileAccrued(data.Schedule, data.GL, opts)
	})
}

// ReconcileCashEquivalents loads and reconciles cash equivalents.
func (r *Recon) ReconcileCashEquivalents(ctx context.Context, now time.Time) (*model.CashEquivalentsResult, error) {
	opts, err := r.Options(now)
	if err != nil {
		return nil, err
	}
	return r.reconcileCashEquivalents(ctx, opts)
}

func (r *Recon) reconcileCashEquivalents(ctx context.Context, opts Options) (*model.CashEquivalentsResult, error) {
	return traced(ctx, r, "cash_equivalents", func(ctx context.Context) (*model.CashEquivalentsResult, error) {
		data, err := r.datasource.LoadCashEquivalents(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileCashEquivalents(data.GL, data.Broker, data.Investments, opts)
	})
}
