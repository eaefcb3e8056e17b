package output

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// document is the shared shape of the json and yaml formats.
type document struct {
	Path      string        `json:"path" yaml:"path"`
	Filter    string        `json:"filter,omitempty" yaml:"filter,omitempty"`
	Databases []documentRow `json:"databases" yaml:"databases"`
	Archives  int           `json:"archives" yaml:"archives"`
	TotalSize int64         `json:"total_size" yaml:"total_size"`
}

type documentRow struct {
	Database  string  `json:"database" yaml:"database"`
	Date      string  `json:"date" yaml:"date"`
	File      string  `json:"file" yaml:"file"`
	Size      int64   `json:"size" yaml:"size"`
	SizeHuman string  `json:"size_human" yaml:"size_human"`
	SizeValue float64 `json:"size_value" yaml:"size_value"`
	SizeUnit  string  `json:"size_unit" yaml:"size_unit"`
}

func newDocumentRow(row Row) documentRow {
	return documentRow{
		Database:  row.Database,
		Date:      row.Date,
		File:      row.File,
		Size:      row.SizeBytes,
		SizeHuman: row.SizeHuman,
		SizeValue: row.SizeValue,
		SizeUnit:  row.SizeUnit,
	}
}

func newDocument(r *Result) document {
	rows := make([]documentRow, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = newDocumentRow(row)
	}
	return document{
		Path:      r.Dir,
		Filter:    r.Filter,
		Databases: rows,
		Archives:  r.FilesSeen,
		TotalSize: r.TotalSize(),
	}
}

// JSONFormatter writes a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newDocument(r))
}

// JSONLFormatter writes one compact JSON object per database, for jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	for _, row := range r.Rows {
		if err := encoder.Encode(newDocumentRow(row)); err != nil {
			return err
		}
	}
	return nil
}

// YAMLFormatter writes the JSON document structure as YAML.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(newDocument(r)); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("jsonl", func() Formatter { return &JSONLFormatter{} })
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*JSONLFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
)
