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


package main

import (
	"context"
	"time"

	"github.com/blnkfinance/recon"
	"github.com/blnkfinance/recon/internal/output"
	"github.com/spf13/cobra"
)

// runCommand reconciles every domain and prints the combined report. The
// report is printed even when a domain fails so earlier results are kept.
func runCommand(app *reconInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Reconcile every configured domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.reconciler()
			if err != nil {
				return err
			}
			report, runErr := r.RunAll(cmd.Context(), app.asOf)
			if report != nil {
				if err := output.Render(cmd.OutOrStdout(), app.format, report); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

// domainCommand builds a command that runs one domain reconciliation.
func domainCommand[T any](app *reconInstance, use, short string, reconcile func(*recon.Recon, context.Context, time.Time) (T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.reconciler()
			if err != nil {
				return err
			}
			result, err := reconcile(r, cmd.Context(), app.asOf)
			if err != nil {
				return err
			}
			return output.Render(cmd.OutOrStdout(), app.format, result)
		},
	}
}

func domainCommands(app *reconInstance) []*cobra.Command {
	return []*cobra.Command{
		domainCommand(app, "bank", "Reconcile the bank statement against GL cash", (*recon.Recon).ReconcileBank),
		domainCommand(app, "ar", "Reconcile accounts receivable", (*recon.Recon).ReconcileAR),
		domainCommand(app, "ap", "Reconcile accounts payable", (*recon.Recon).ReconcileAP),
		domainCommand(app, "fixed-assets", "Reconcile the fixed asset register", (*recon.Recon).ReconcileFixedAssets),
		domainCommand(app, "inventory", "Reconcile inventory counts and valuation", (*recon.Recon).ReconcileInventory),
		domainCommand(app, "prepaid", "Reconcile the prepaid expense schedule", (*recon.Recon).ReconcilePrepaid),
		domainCommand(app, "accrued", "Reconcile the accrued expense schedule", (*recon.Recon).ReconcileAccrued),
		domainCommand(app, "cash-equivalents", "Reconcile cash equivalents", (*recon.Recon).ReconcileCashEquivalents),
	}
}
