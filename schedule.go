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
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
)

const (
	SchedulePrepaid = "prepaid"
	ScheduleAccrued = "accrued"
)

// ReconcilePrepaid reconciles the prepaid expense schedule against the GL
// prepaid account.
func ReconcilePrepaid(schedule, gl *model.Table, opts Options) (*model.ScheduleResult, error) {
	opts = opts.withDefaults()
	return reconcileSchedule(SchedulePrepaid, "Prepaid schedule", model.PrepaidSchema, schedule, gl, opts.Keys.Prepaid, opts)
}

// ReconcileAccrued reconciles the accrued expense schedule against the GL
// accrued liabilities account.
func ReconcileAccrued(schedule, gl *model.Table, opts Options) (*model.ScheduleResult, error) {
	opts = opts.withDefaults()
	return reconcileSchedule(ScheduleAccrued, "Accrued schedule", model.AccruedSchema, schedule, gl, opts.Keys.Accrued, opts)
}

func reconcileSchedule(name, label string, schema model.Schema, schedule, gl *model.Table, keys model.KeySpec, opts Options) (*model.ScheduleResult, error) {
	if schedule == nil || gl == nil {
		return nil, errors.Errorf("%s reconciliation needs the schedule and GL entries", name)
	}
	if err := schedule.RequireColumns(schema.Required()...); err != nil {
		return nil, errors.Wrapf(err, "%s schedule", name)
	}
	if err := gl.RequireColumns(schema.Required()...); err != nil {
		return nil, errors.Wrapf(err, "GL %s", name)
	}

	cmp, err := compareLedgers(schedule, gl, keys, colAmount, opts)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return &model.ScheduleResult{
		Name:             name,
		LedgerComparison: cmp,
		Message:          ledgerMessage(label, "GL "+name, cmp),
	}, nil
}
