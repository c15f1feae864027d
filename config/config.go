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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blnkfinance/recon/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_CONFIG_FILE   = "recon.json"
	DEFAULT_DATA_DIR      = "data"
	DEFAULT_TOLERANCE     = 1e-6
	DEFAULT_Z_THRESHOLD   = 3.0
	DEFAULT_CONTAMINATION = 0.1

	MethodZScore  = "zscore"
	MethodDensity = "density"
)

var ConfigStore atomic.Value

type PeriodConfig struct {
	Start string `json:"start" envconfig:"RECON_PERIOD_START"`
	End   string `json:"end" envconfig:"RECON_PERIOD_END"`
}

type BankConfig struct {
	AccountID int64 `json:"account_id" envconfig:"RECON_BANK_ACCOUNT_ID"`
	ClientID  int64 `json:"client_id" envconfig:"RECON_BANK_CLIENT_ID"`
}

type AnomalyConfig struct {
	Method          string  `json:"method" envconfig:"RECON_ANOMALY_METHOD"`
	ZScoreThreshold float64 `json:"zscore_threshold" envconfig:"RECON_ANOMALY_ZSCORE_THRESHOLD"`
	Contamination   float64 `json:"contamination" envconfig:"RECON_ANOMALY_CONTAMINATION"`
}

type LogConfig struct {
	Level  string `json:"level" envconfig:"RECON_LOG_LEVEL"`
	Format string `json:"format" envconfig:"RECON_LOG_FORMAT"`
}

// FilesConfig names the input file of every source, relative to DataDir.
// Empty optional files are skipped.
type FilesConfig struct {
	BankTransactions  string `json:"bank_transactions"`
	BankStatements    string `json:"bank_statements"`
	BankAccounts      string `json:"bank_accounts"`
	AR                string `json:"ar"`
	GLAR              string `json:"gl_ar"`
	Allowance         string `json:"allowance"`
	AP                string `json:"ap"`
	GLAP              string `json:"gl_ap"`
	CreditCard        string `json:"credit_card"`
	BatchPayments     string `json:"batch_payments"`
	FixedAssets       string `json:"fixed_assets"`
	GLFixedAssets     string `json:"gl_fixed_assets"`
	Depreciation      string `json:"depreciation"`
	GLInventory       string `json:"gl_inventory"`
	PhysicalCounts    string `json:"physical_counts"`
	MarketValues      string `json:"market_values"`
	APTransactions    string `json:"ap_transactions"`
	Prepaid           string `json:"prepaid"`
	GLPrepaid         string `json:"gl_prepaid"`
	Accrued           string `json:"accrued"`
	GLAccrued         string `json:"gl_accrued"`
	GLCashEquivalents string `json:"gl_cash_equivalents"`
	BrokerStatements  string `json:"broker_statements"`
	Investments       string `json:"investments"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"RECON_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string          `json:"project_name" envconfig:"RECON_PROJECT_NAME"`
	DataDir         string          `json:"data_dir" envconfig:"RECON_DATA_DIR"`
	AsOf            string          `json:"as_of" envconfig:"RECON_AS_OF"`
	InventoryCutoff string          `json:"inventory_cutoff" envconfig:"RECON_INVENTORY_CUTOFF"`
	Tolerance       float64         `json:"tolerance" envconfig:"RECON_TOLERANCE"`
	Period          PeriodConfig    `json:"period"`
	Bank            BankConfig      `json:"bank"`
	Anomaly         AnomalyConfig   `json:"anomaly"`
	Files           FilesConfig     `json:"files"`
	Keys            model.MatchKeys `json:"keys"`
	Log             LogConfig       `json:"log"`
	Notification    Notification    `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("recon", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	configureLogging(cnf.Log)
	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	if configFile == "" {
		configFile = DEFAULT_CONFIG_FILE
	}
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called recon.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Recon"
	}
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataDir = strings.TrimSpace(cnf.DataDir)
	if cnf.DataDir == "" {
		cnf.DataDir = DEFAULT_DATA_DIR
	}

	if cnf.Tolerance == 0 {
		cnf.Tolerance = DEFAULT_TOLERANCE
	}
	cnf.Anomaly.Method = strings.ToLower(strings.TrimSpace(cnf.Anomaly.Method))
	if cnf.Anomaly.Method == "" {
		cnf.Anomaly.Method = MethodZScore
	}
	if cnf.Anomaly.ZScoreThreshold == 0 {
		cnf.Anomaly.ZScoreThreshold = DEFAULT_Z_THRESHOLD
	}
	if cnf.Anomaly.Contamination == 0 {
		cnf.Anomaly.Contamination = DEFAULT_CONTAMINATION
	}
	if cnf.Log.Level == "" {
		cnf.Log.Level = "info"
	}
	if cnf.Log.Format == "" {
		cnf.Log.Format = "text"
	}

	cnf.Files.addDefaults()
	cnf.Keys = cnf.Keys.WithDefaults()

	err := validation.ValidateStruct(cnf,
		validation.Field(&cnf.Tolerance, validation.Min(0.0)),
		validation.Field(&cnf.AsOf, validation.Date(time.DateOnly)),
		validation.Field(&cnf.InventoryCutoff, validation.Date(time.DateOnly)),
		validation.Field(&cnf.Period),
		validation.Field(&cnf.Anomaly),
		validation.Field(&cnf.Log),
	)
	if err != nil {
		log.Printf("Error: invalid configuration: %v", err)
		return err
	}
	return nil
}

// IsSet reports whether a reconciliation period is configured.
func (p PeriodConfig) IsSet() bool {
	return p.Start != "" || p.End != ""
}

func (p PeriodConfig) Validate() error {
	if !p.IsSet() {
		return nil
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Start, validation.Required, validation.Date(time.DateOnly)),
		validation.Field(&p.End, validation.Required, validation.Date(time.DateOnly)),
	)
	if err != nil {
		return err
	}
	start, end, _ := p.Bounds()
	if end.Before(start) {
		return errors.New("period end is before period start")
	}
	return nil
}

// Bounds parses the period dates.
func (p PeriodConfig) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, p.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.DateOnly, p.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (a AnomalyConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Method, validation.In(MethodZScore, MethodDensity)),
		validation.Field(&a.Contamination, validation.Min(0.0).Exclusive(), validation.Max(0.5)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "warning", "error", "fatal", "panic")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func (f *FilesConfig) addDefaults() {
	defaults := []struct {
		field *string
		name  string
	}{
		{&f.BankTransactions, "bank_transactions.csv"},
		{&f.BankStatements, "bank_statements.csv"},
		{&f.BankAccounts, "bank_accounts.csv"},
		{&f.AR, "ar_subledger.csv"},
		{&f.GLAR, "gl_ar.csv"},
		{&f.AP, "ap_subledger.csv"},
		{&f.GLAP, "gl_ap.csv"},
		{&f.FixedAssets, "fixed_asset_register.csv"},
		{&f.GLFixedAssets, "gl_fixed_assets.csv"},
		{&f.Depreciation, "depreciation_schedule.csv"},
		{&f.GLInventory, "gl_inventory.csv"},
		{&f.PhysicalCounts, "physical_counts.csv"},
		{&f.MarketValues, "market_values.csv"},
		{&f.APTransactions, "ap_transactions.csv"},
		{&f.Prepaid, "prepaid_schedule.csv"},
		{&f.GLPrepaid, "gl_prepaid.csv"},
		{&f.Accrued, "accrued_schedule.csv"},
		{&f.GLAccrued, "gl_accrued.csv"},
		{&f.GLCashEquivalents, "gl_cash_equivalents.csv"},
		{&f.BrokerStatements, "broker_statements.csv"},
		{&f.Investments, "investment_details.csv"},
	}
	for _, d := range defaults {
		*d.field = strings.TrimSpace(*d.field)
		if *d.field == "" {
			*d.field = d.name
		}
	}
}

// ToleranceDecimal returns the balance tolerance as a decimal.
func (cnf *Configuration) ToleranceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(cnf.Tolerance)
}

// ReferenceDate returns the configured as-of date, or fallback when none is set.
func (cnf *Configuration) ReferenceDate(fallback time.Time) (time.Time, error) {
	if cnf.AsOf == "" {
		return fallback, nil
	}
	return time.Parse(time.DateOnly, cnf.AsOf)
}

// Cutoff returns the inventory cut-off date, nil when none is set.
func (cnf *Configuration) Cutoff() (*time.Time, error) {
	if cnf.InventoryCutoff == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, cnf.InventoryCutoff)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

func configureLogging(cfg LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
