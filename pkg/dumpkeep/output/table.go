package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var tableHeader = []string{"DATABASE", "DATE", "SIZE_BYTES", "FILE"}

func tableRecord(row Row) []string {
	return []string{row.Database, row.Date, strconv.FormatInt(row.SizeBytes, 10), row.File}
}

// TSVFormatter writes tab-separated values with a header row.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(tableHeader, "\t") + "\n")
	for _, row := range r.Rows {
		w.WriteString(strings.Join(tableRecord(row), "\t") + "\n")
	}
	return nil
}

// CSVFormatter writes RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := writer.Write(tableRecord(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// MarkdownFormatter writes a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| DATABASE | DATE | SIZE | FILE |\n")
	w.WriteString("|----------|------|------|------|\n")
	for _, row := range r.Rows {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			escapeMarkdownPipe(row.Database),
			escapeMarkdownPipe(row.Date),
			row.SizeHuman,
			escapeMarkdownPipe(row.File))
	}
	return nil
}

func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("tsv", func() Formatter { return &TSVFormatter{} })
	Register("csv", func() Formatter { return &CSVFormatter{} })
	Register("markdown", func() Formatter { return &MarkdownFormatter{} })
}

var (
	_ Formatter = (*TSVFormatter)(nil)
	_ Formatter = (*CSVFormatter)(nil)
	_ Formatter = (*MarkdownFormatter)(nil)
)
