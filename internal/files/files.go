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

package files

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	mimeCSV  = "text/csv"
	mimeJSON = "application/json"
	mimeText = "text/plain"

	sniffSize = 512
)

// DateLayouts are tried in order when a time column is parsed. Values without
// a zone are read as UTC.
var DateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.DateTime,
	"01/02/2006",
	"2006-01-02T15:04:05",
}

// nullTokens are cell contents read as a missing value.
var nullTokens = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"NaT":  {},
	"NULL": {},
	"null": {},
	"None": {},
}

// Record is one parsed row handed to a RowFilter.
type Record struct {
	index  map[string]int
	values []model.Value
}

// Get returns the value of the named column, or null if there is no such column.
func (r Record) Get(name string) model.Value {
	i, ok := r.index[name]
	if !ok {
		return model.Null()
	}
	return r.values[i]
}

// RowFilter reports whether a parsed record is kept. A nil filter keeps every row.
type RowFilter func(Record) bool

// ReadTable loads the CSV or JSON file at path into a table typed by schema.
// Columns found in the file but absent from the schema are kept as strings.
// Optional schema columns missing from the file are added and filled with nulls.
func ReadTable(ctx context.Context, path string, schema model.Schema, filter RowFilter) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, reconerr.NotFound(path, "file does not exist")
		}
		return nil, errors.Wrapf(reconerr.LoadFailed(path, "%v", err), "loading %s", path)
	}
	defer f.Close()

	tbl, err := Read(ctx, f, path, schema, filter)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"file": path, "rows": tbl.Len()}).Debug("loaded table")
	return tbl, nil
}

// Read is ReadTable over an already open reader. name is used for type
// detection and in error messages.
func Read(ctx context.Context, r io.Reader, name string, schema model.Schema, filter RowFilter) (*model.Table, error) {
	src, err := openSource(r, name)
	if err != nil {
		return nil, err
	}

	columns, positions, err := resolveColumns(name, schema, src.Header())
	if err != nil {
		return nil, err
	}
	tbl, err := model.NewTable(columns...)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Name] = i
	}

	count := 0
	for {
		raw, row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(reconerr.LoadFailed(name, "row %d: %v", row, err), "loading %s", name)
		}

		values := make([]model.Value, len(columns))
		for i, c := range columns {
			pos := positions[i]
			if pos < 0 || pos >= len(raw) {
				values[i] = model.Null()
				continue
			}
			v, err := ParseCell(raw[pos], c.Type)
			if err != nil {
				return nil, errors.Wrapf(reconerr.LoadFailed(name, "row %d column %q: %v", row, c.Name, err), "loading %s", name)
			}
			values[i] = v
		}

		if filter == nil || filter(Record{index: index, values: values}) {
			if err := tbl.AddRow(values...); err != nil {
				return nil, errors.Wrapf(err, "loading %s row %d", name, row)
			}
		}

		count++
		if count%1000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
	}
	return tbl, nil
}

// resolveColumns lays out the table columns (schema order, then extra file
// columns) and the position of each in the file header, -1 when absent.
func resolveColumns(name string, schema model.Schema, header []string) ([]model.Column, []int, error) {
	headerPos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := headerPos[h]; dup {
			return nil, nil, reconerr.InvalidColumn(h, "column appears more than once in the header").WithSource(name)
		}
		headerPos[h] = i
	}

	var columns []model.Column
	var positions []int
	for _, f := range schema {
		pos, ok := headerPos[f.Name]
		if !ok {
			if f.Required {
				return nil, nil, reconerr.InvalidColumn(f.Name, "required column is missing").WithSource(name)
			}
			pos = -1
		}
		columns = append(columns, model.Column{Name: f.Name, Type: f.Type})
		positions = append(positions, pos)
	}
	for i, h := range header {
		if _, known := schema.Lookup(h); known {
			continue
		}
		columns = append(columns, model.Column{Name: h, Type: model.StringColumn})
		positions = append(positions, i)
	}
	return columns, positions, nil
}

// ParseCell converts a trimmed cell into a value of the given column type.
func ParseCell(raw string, typ model.ColumnType) (model.Value, error) {
	raw = strings.TrimSpace(raw)
	if _, null := nullTokens[raw]; null {
		return model.Null(), nil
	}
	switch typ {
	case model.NumberColumn:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Value{}, errors.Errorf("%q is not a number", raw)
		}
		return model.Num(f), nil
	case model.TimeColumn:
		t, ok := ParseTime(raw)
		if !ok {
			return model.Value{}, errors.Errorf("%q is not a date", raw)
		}
		return model.Date(t), nil
	default:
		return model.Str(raw), nil
	}
}

// ParseTime parses s with the first matching layout in DateLayouts.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InferSchema reads the file at path and types every column: number when every
// non-empty cell parses as a number, else time when every one parses as a
// date, else string. No column is required.
func InferSchema(ctx context.Context, path string) (model.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, reconerr.NotFound(path, "file does not exist")
		}
		return nil, errors.Wrapf(reconerr.LoadFailed(path, "%v", err), "loading %s", path)
	}
	defer f.Close()

	src, err := openSource(f, path)
	if err != nil {
		return nil, err
	}
	header := src.Header()
	numeric := make([]bool, len(header))
	temporal := make([]bool, len(header))
	for i := range header {
		numeric[i], temporal[i] = true, true
	}

	count := 0
	for {
		raw, row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(reconerr.LoadFailed(path, "row %d: %v", row, err), "loading %s", path)
		}
		for i := range header {
			if i >= len(raw) {
				continue
			}
			cell := strings.TrimSpace(raw[i])
			if _, null := nullTokens[cell]; null {
				continue
			}
			if numeric[i] {
				if _, err := strconv.ParseFloat(cell, 64); err != nil {
					numeric[i] = false
				}
			}
			if temporal[i] {
				if _, ok := ParseTime(cell); !ok {
					temporal[i] = false
				}
			}
		}
		count++
		if count%1000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	schema := make(model.Schema, len(header))
	for i, h := range header {
		typ := model.StringColumn
		switch {
		case numeric[i]:
			typ = model.NumberColumn
		case temporal[i]:
			typ = model.TimeColumn
		}
		schema[i] = model.Field{Name: h, Type: typ}
	}
	return schema, nil
}

// source yields the header and raw string cells of a CSV or JSON file.
type source interface {
	Header() []string
	// Next returns the cells of the next row and its row number. It returns
	// io.EOF after the last row.
	Next() ([]string, int, error)
}

func openSource(r io.Reader, name string) (source, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Wrapf(reconerr.LoadFailed(name, "%v", err), "loading %s", name)
	}

	fileType, err := DetectFileType(head, name)
	if err != nil {
		return nil, errors.Wrapf(reconerr.LoadFailed(name, "%v", err), "loading %s", name)
	}

	switch fileType {
	case mimeCSV:
		return newCSVSource(br, name)
	case mimeJSON:
		return newJSONSource(br, name)
	default:
		return nil, reconerr.LoadFailed(name, "unsupported file type: %s", fileType)
	}
}

type csvSource struct {
	reader *csv.Reader
	header []string
}

func newCSVSource(r io.Reader, name string) (*csvSource, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, reconerr.LoadFailed(name, "file is empty")
	}
	if err != nil {
		return nil, errors.Wrapf(reconerr.LoadFailed(name, "reading header: %v", err), "loading %s", name)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}
	return &csvSource{reader: reader, header: header}, nil
}

func (s *csvSource) Header() []string { return s.header }

func (s *csvSource) Next() ([]string, int, error) {
	record, err := s.reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr.StartLine, err
		}
		return nil, 0, err
	}
	line, _ := s.reader.FieldPos(0)
	return record, line, nil
}

type jsonSource struct {
	header []string
	rows   [][]string
	next   int
}

// newJSONSource decodes an array of flat objects. The header is the sorted
// union of object keys.
func newJSONSource(r io.Reader, name string) (*jsonSource, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]interface{}
	if err := dec.Decode(&objects); err != nil {
		return nil, errors.Wrapf(reconerr.LoadFailed(name, "decoding JSON: %v", err), "loading %s", name)
	}

	seen := map[string]struct{}{}
	var header []string
	for _, obj := range objects {
		for k := range obj {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		row := make([]string, len(header))
		for j, k := range header {
			cell, err := jsonCell(obj[k])
			if err != nil {
				return nil, errors.Wrapf(reconerr.LoadFailed(name, "row %d column %q: %v", i+1, k, err), "loading %s", name)
			}
			row[j] = cell
		}
		rows[i] = row
	}
	return &jsonSource{header: header, rows: rows}, nil
}

func jsonCell(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		b, err := json.Marshal(x)
		return string(b), err
	}
}

func (s *jsonSource) Header() []string { return s.header }

func (s *jsonSource) Next() ([]string, int, error) {
	if s.next >= len(s.rows) {
		return nil, s.next, io.EOF
	}
	s.next++
	return s.rows[s.next-1], s.next, nil
}

// DetectFileType attempts to detect the file type based on its extension or content.
// If the file extension can identify the type, it returns that, otherwise, it inspects the content of the file.
func DetectFileType(data []byte, filename string) (string, error) {
	if mimeType := DetectByExtension(filename); mimeType != "" {
		return mimeType, nil
	}
	return DetectByContent(data)
}

// DetectByExtension detects the MIME type by the file extension.
func DetectByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return mimeCSV
	case ".json":
		return mimeJSON
	case "":
		return ""
	}
	return mediaType(mime.TypeByExtension(ext))
}

// DetectByContent detects the MIME type based on the content of the file.
func DetectByContent(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", errors.New("no content to detect a file type from")
	}
	mimeType := mediaType(http.DetectContentType(data))

	switch mimeType {
	case "application/octet-stream", mimeText:
		return AnalyzeTextContent(data)
	default:
		return mimeType, nil
	}
}

// AnalyzeTextContent further inspects text-based content to differentiate between CSV, JSON, or plain text.
func AnalyzeTextContent(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return mimeJSON, nil
	}
	if LooksLikeCSV(data) {
		return mimeCSV, nil
	}
	return mimeText, nil
}

// LooksLikeCSV checks whether the provided data looks like a CSV file. A
// final line without a newline is ignored when data is a truncated sample.
func LooksLikeCSV(data []byte) bool {
	lines := bytes.Split(data, []byte("\n"))
	if len(data) >= sniffSize && len(lines) > 2 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 2 {
		return false
	}

	fields := bytes.Count(lines[0], []byte(",")) + 1
	for _, line := range lines[1:] {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.Count(line, []byte(","))+1 != fields {
			return false
		}
	}

	return fields > 1
}

func mediaType(full string) string {
	if full == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(full)
	if err != nil {
		return full
	}
	return mt
}
