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


// Package output renders reconciliation results for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blnkfinance/recon/model"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts s to a Format. An empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", errors.Errorf("invalid format %q: must be one of: text, json", s)
	}
}

// NamedTable is an exception table shown under a heading.
type NamedTable struct {
	Name string
	Rows *model.Table
}

// Section is one titled block of text output.
type Section struct {
	Title   string
	Message string
	Tables  []NamedTable
}

// Render writes v to w in the given format. Text output understands reports,
// domain results and bare tables; anything else is written as JSON.
func Render(w io.Writer, format Format, v any) error {
	if format == FormatJSON {
		return WriteJSON(w, v)
	}
	if t, ok := v.(*model.Table); ok {
		return WriteTable(w, t)
	}
	sections := Sections(v)
	if sections == nil {
		return WriteJSON(w, v)
	}
	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := WriteSection(w, s); err != nil {
			return err
		}
	}
	return nil
}

func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteSection writes the section title, its message and every non-empty
// table.
func WriteSection(w io.Writer, s Section) error {
	if s.Title != "" {
		if _, err := fmt.Fprintf(w, "# %s\n", s.Title); err != nil {
			return err
		}
	}
	if s.Message != "" {
		if _, err := fmt.Fprintln(w, s.Message); err != nil {
			return err
		}
	}
	for _, nt := range s.Tables {
		if nt.Rows == nil || nt.Rows.Len() == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s (%d)\n", nt.Name, nt.Rows.Len()); err != nil {
			return err
		}
		if err := WriteTable(w, nt.Rows); err != nil {
			return errors.Wrap(err, nt.Name)
		}
	}
	return nil
}

// WriteTable renders t with one column per table column. Number columns are
// right aligned.
func WriteTable(w io.Writer, t *model.Table) error {
	if t == nil {
		return nil
	}
	columns := t.Columns()
	align := make([]tw.Align, len(columns))
	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c.Name
		align[i] = tw.AlignLeft
		if c.Type == model.NumberColumn {
			align[i] = tw.AlignRight
		}
	}

	config := tablewriter.Config{}
	config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	table.Header(headers...)
	for i := 0; i < t.Len(); i++ {
		values := t.Row(i)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v.String()
		}
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}

// Sections splits a report or a single domain result into text sections.
// It returns nil for values it does not know.
func Sections(v any) []Section {
	switch r := v.(type) {
	case *model.Report:
		return reportSections(r)
	case *model.BankResult:
		return []Section{bankSection(r)}
	case *model.ARResult:
		return []Section{arSection(r)}
	case *model.APResult:
		return []Section{apSection(r)}
	case *model.FixedAssetsResult:
		return []Section{fixedAssetsSection(r)}
	case *model.InventoryResult:
		return []Section{inventorySection(r)}
	case *model.ScheduleResult:
		return []Section{scheduleSection(r)}
	case *model.CashEquivalentsResult:
		return []Section{cashEquivalentsSection(r)}
	}
	return nil
}

func reportSections(r *model.Report) []Section {
	summary := fmt.Sprintf("Run %s: %s (as of %s)", r.RunID, r.Status, r.AsOf.Format("2006-01-02"))
	if r.Error != "" {
		summary += "\nError: " + r.Error
	}
	sections := []Section{{Title: "Reconciliation", Message: summary}}
	if r.Bank != nil {
		sections = append(sections, bankSection(r.Bank))
	}
	if r.CashEquivalents != nil {
		sections = append(sections, cashEquivalentsSection(r.CashEquivalents))
	}
	if r.Inventory != nil {
		sections = append(sections, inventorySection(r.Inventory))
	}
	if r.AR != nil {
		sections = append(sections, arSection(r.AR))
	}
	if r.AP != nil {
		sections = append(sections, apSection(r.AP))
	}
	if r.FixedAssets != nil {
		sections = append(sections, fixedAssetsSection(r.FixedAssets))
	}
	if r.Prepaid != nil {
		sections = append(sections, scheduleSection(r.Prepaid))
	}
	if r.Accrued != nil {
		sections = append(sections, scheduleSection(r.Accrued))
	}
	return sections
}

func ledgerTables(c model.LedgerComparison) []NamedTable {
	return []NamedTable{
		{"Only in subledger", c.OnlyInSubledger},
		{"Only in GL", c.OnlyInGL},
		{"Subledger duplicates", c.SubledgerDuplicates},
		{"GL duplicates", c.GLDuplicates},
		{"Subledger outliers", c.SubledgerOutliers},
		{"GL outliers", c.GLOutliers},
	}
}

func bankSection(r *model.BankResult) Section {
	return Section{Title: "Bank", Message: r.Message, Tables: []NamedTable{
		{"In GL, not on statement", r.GLNotInBank},
		{"On statement, not in GL", r.BankNotInGL},
		{"Outstanding checks", r.Balances.Outstanding.Checks},
		{"ACH in transit", r.Balances.Outstanding.ACHInTransit},
		{"Deposits in transit", r.Balances.Outstanding.DepositsInTransit},
		{"Unrecorded service fees", r.Balances.Outstanding.ServiceFees},
		{"GL duplicates", r.GLDuplicates},
		{"Statement duplicates", r.BankDuplicates},
		{"GL outliers", r.GLOutliers},
		{"Statement outliers", r.BankOutliers},
		{"Stale GL transactions", r.Dates.OldTransactions},
	}}
}

func arSection(r *model.ARResult) Section {
	tables := ledgerTables(r.LedgerComparison)
	tables = append(tables,
		NamedTable{"Unrecorded write-offs", r.WriteOffs.UnrecordedWriteOffs},
		NamedTable{"Accrued entries missing from GL", r.Accrued.UnmatchedSubledger},
	)
	return Section{Title: "Accounts receivable", Message: r.Message, Tables: tables}
}

func apSection(r *model.APResult) Section {
	tables := ledgerTables(r.LedgerComparison)
	tables = append(tables,
		NamedTable{"Unmatched card charges", r.CreditCard.UnmatchedCharges},
		NamedTable{"Card payments missing from statement", r.CreditCard.UnmatchedAPEntries},
		NamedTable{"Unprocessed batch payments", r.Batches.Unprocessed},
		NamedTable{"Failed batch payments", r.Batches.Failed},
	)
	return Section{Title: "Accounts payable", Message: r.Message, Tables: tables}
}

func fixedAssetsSection(r *model.FixedAssetsResult) Section {
	return Section{Title: "Fixed assets", Message: r.Message, Tables: ledgerTables(r.LedgerComparison)}
}

func inventorySection(r *model.InventoryResult) Section {
	tables := []NamedTable{
		{"Count adjustments", r.Counts.Adjustments},
		{"Duplicate counts", r.Counts.DuplicateCounts},
		{"Slow moving items", r.Obsolescence.SlowMovingItems},
		{"Items below cost", r.LCM.ItemsBelowCost},
	}
	if r.Cutoff != nil {
		tables = append(tables, NamedTable{"In transit at cutoff", r.Cutoff.InTransitItems})
	}
	return Section{Title: "Inventory", Message: r.Message, Tables: tables}
}

func scheduleSection(r *model.ScheduleResult) Section {
	title := r.Name + " expenses"
	if r.Name != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return Section{Title: title, Message: r.Message, Tables: ledgerTables(r.LedgerComparison)}
}

func cashEquivalentsSection(r *model.CashEquivalentsResult) Section {
	return Section{Title: "Cash equivalents", Message: r.Message, Tables: []NamedTable{
		{"Maturing after 90 days", r.Maturity.NonCompliant},
		{"GL holdings without broker value", r.MarketValues.UnmatchedGL},
		{"Broker values without GL holding", r.MarketValues.UnmatchedBroker},
		{"Duplicate investments", r.DuplicateInvestments},
	}}
}
