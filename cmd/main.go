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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blnkfinance/recon"
	"github.com/blnkfinance/recon/config"
	"github.com/blnkfinance/recon/datasource"
	"github.com/blnkfinance/recon/internal/output"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Recon represents the CLI application, encapsulating the root Cobra command.
type Recon struct {
	cmd *cobra.Command
}

// reconInstance holds what every command needs once configuration is loaded.
type reconInstance struct {
	configFile string
	asOfFlag   string
	formatFlag string

	cnf    *config.Configuration
	asOf   time.Time
	format output.Format
	recon  *recon.Recon
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and resolves the reference date and output
// format shared by every command.
func preRun(app *reconInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(app.configFile); err != nil {
			return reconerr.InvalidArgument("config", "loading %s: %v", app.configFile, err)
		}
		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		if app.asOfFlag != "" {
			app.asOf, err = time.Parse(time.DateOnly, app.asOfFlag)
			if err != nil {
				return reconerr.InvalidArgument("as-of", "expected YYYY-MM-DD, got %q", app.asOfFlag)
			}
		} else {
			app.asOf, err = cnf.ReferenceDate(time.Now().UTC().Truncate(24 * time.Hour))
			if err != nil {
				return reconerr.InvalidArgument("as_of", "%v", err)
			}
		}

		app.format, err = output.ParseFormat(app.formatFlag)
		if err != nil {
			return reconerr.InvalidArgument("format", "%v", err)
		}
		return nil
	}
}

// reconciler opens the configured data directory on first use. Commands that
// never touch the ledgers do not need it to exist.
func (app *reconInstance) reconciler() (*recon.Recon, error) {
	if app.recon != nil {
		return app.recon, nil
	}
	ds, err := datasource.NewDataSource(app.cnf)
	if err != nil {
		return nil, err
	}
	r, err := recon.NewRecon(ds)
	if err != nil {
		return nil, fmt.Errorf("error creating reconciler: %v", err)
	}
	app.recon = r
	return r, nil
}

// NewCLI creates the command-line interface with the reconciliation, anomaly
// and config commands.
func NewCLI() *Recon {
	app := &reconInstance{}

	rootCmd := &cobra.Command{
		Use:           "recon",
		Short:         "Subledger reconciliation and anomaly detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", config.DEFAULT_CONFIG_FILE, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&app.asOfFlag, "as-of", "", "Reference date (YYYY-MM-DD) for aging, maturity and staleness")
	rootCmd.PersistentFlags().StringVar(&app.formatFlag, "format", string(output.FormatText), "Output format: text or json")

	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(runCommand(app))
	for _, c := range domainCommands(app) {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(unmatchedCommand(app))
	rootCmd.AddCommand(duplicatesCommand(app))
	rootCmd.AddCommand(outliersCommand(app))
	rootCmd.AddCommand(configCommands(app))

	return &Recon{cmd: rootCmd}
}

// executeCLI runs the root command. Errors go to stderr and the exit status
// follows the error code.
func (r Recon) executeCLI() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(reconerr.ExitCode(err))
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
