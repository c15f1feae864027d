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
	"strings"

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/config"
	"github.com/blnkfinance/recon/internal/files"
	"github.com/blnkfinance/recon/internal/output"
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// loadInferred reads a CSV or JSON file with column types inferred from its
// contents.
func loadInferred(ctx context.Context, path string) (*model.Table, error) {
	schema, err := files.InferSchema(ctx, path)
	if err != nil {
		return nil, err
	}
	return files.ReadTable(ctx, path, schema, nil)
}

func render(cmd *cobra.Command, app *reconInstance, summary string, tables map[string]*model.Table, order ...string) error {
	w := cmd.OutOrStdout()
	if app.format == output.FormatJSON {
		return output.WriteJSON(w, tables)
	}
	section := output.Section{Message: summary}
	for _, name := range order {
		section.Tables = append(section.Tables, output.NamedTable{Name: name, Rows: tables[name]})
	}
	return output.WriteSection(w, section)
}

func unmatchedCommand(app *reconInstance) *cobra.Command {
	var left, right string
	var keys []string

	cmd := &cobra.Command{
		Use:   "unmatched",
		Short: "Find rows of two files whose key tuples have no counterpart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadInferred(cmd.Context(), left)
			if err != nil {
				return err
			}
			b, err := loadInferred(cmd.Context(), right)
			if err != nil {
				return err
			}
			onlyLeft, onlyRight, err := anomaly.FindUnmatched(a, b, keys)
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("Keys: %s\nOnly in %s: %d\nOnly in %s: %d",
				strings.Join(keys, ", "), left, onlyLeft.Len(), right, onlyRight.Len())
			return render(cmd, app, summary, map[string]*model.Table{
				"only_in_left":  onlyLeft,
				"only_in_right": onlyRight,
			}, "only_in_left", "only_in_right")
		},
	}
	cmd.Flags().StringVar(&left, "left", "", "First file (CSV or JSON)")
	cmd.Flags().StringVar(&right, "right", "", "Second file (CSV or JSON)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "Comma separated key columns")
	_ = cmd.MarkFlagRequired("left")
	_ = cmd.MarkFlagRequired("right")
	_ = cmd.MarkFlagRequired("keys")
	return cmd
}

func duplicatesCommand(app *reconInstance) *cobra.Command {
	var file string
	var keys []string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find rows sharing a key tuple with another row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadInferred(cmd.Context(), file)
			if err != nil {
				return err
			}
			dupes, err := anomaly.FindDuplicates(t, keys)
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("Keys: %s\nDuplicate rows: %d of %d", strings.Join(keys, ", "), dupes.Len(), t.Len())
			return render(cmd, app, summary, map[string]*model.Table{"duplicates": dupes}, "duplicates")
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "File to check (CSV or JSON)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "Comma separated key columns")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("keys")
	return cmd
}

func outliersCommand(app *reconInstance) *cobra.Command {
	var file, column, method string
	var threshold, contamination float64

	cmd := &cobra.Command{
		Use:   "outliers",
		Short: "Find rows with anomalous values in a numeric column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			detector, desc, err := outlierDetector(app.cnf.Anomaly, method, threshold, contamination)
			if err != nil {
				return err
			}
			t, err := loadInferred(cmd.Context(), file)
			if err != nil {
				return err
			}
			outliers, err := detector(t, column)
			if err != nil {
				return errors.Wrap(err, file)
			}
			summary := fmt.Sprintf("Column: %s (%s)\nOutliers: %d of %d", column, desc, outliers.Len(), t.Len())
			return render(cmd, app, summary, map[string]*model.Table{"outliers": outliers}, "outliers")
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "File to check (CSV or JSON)")
	cmd.Flags().StringVar(&column, "column", "", "Numeric column to score")
	cmd.Flags().StringVar(&method, "method", "", "zscore or density (defaults to the configured method)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Z-score threshold")
	cmd.Flags().Float64Var(&contamination, "contamination", 0, "Expected outlier share for the density method, in (0, 0.5]")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// outlierDetector picks the detector from flags, falling back to the
// configured anomaly settings for anything left unset.
func outlierDetector(cnf config.AnomalyConfig, method string, threshold, contamination float64) (anomaly.OutlierDetector, string, error) {
	if method == "" {
		method = cnf.Method
	}
	switch strings.ToLower(method) {
	case "", config.MethodZScore:
		if threshold == 0 {
			threshold = cnf.ZScoreThreshold
		}
		if threshold == 0 {
			threshold = anomaly.DefaultZScoreThreshold
		}
		return anomaly.ZScoreDetector(threshold), fmt.Sprintf("z-score > %g", threshold), nil
	case config.MethodDensity:
		if contamination == 0 {
			contamination = cnf.Contamination
		}
		if contamination == 0 {
			contamination = anomaly.DefaultContamination
		}
		return anomaly.DensityDetector(contamination), fmt.Sprintf("density, contamination %g", contamination), nil
	default:
		return nil, "", reconerr.InvalidArgument("method", "unknown outlier method %q", method)
	}
}
