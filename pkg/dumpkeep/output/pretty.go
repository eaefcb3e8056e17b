package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders boxed, colored output for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.header(r))
	w.WriteString("\n")
	w.WriteString(f.table(r))
	w.WriteString(f.footer(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) header(r *Result) string {
	lines := []string{
		LabelStyle.Render("Path to files:") + " " + ValueStyle.Render(r.Dir),
		LabelStyle.Render("Databases:") + " " + ValueStyle.Render(fmt.Sprintf("%d", len(r.Rows))),
	}
	if r.Filter != "" && r.Filter != "all" {
		lines = append(lines, LabelStyle.Render("Filter:")+" "+ValueStyle.Render(r.Filter))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) table(r *Result) string {
	if len(r.Rows) == 0 {
		return MutedStyle.Render("  No backup files") + "\n"
	}

	nameWidth, sizeWidth := len("DATABASE"), len("SIZE")
	for _, row := range r.Rows {
		nameWidth = max(nameWidth, len(row.Database))
		sizeWidth = max(sizeWidth, len(row.SizeHuman))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("DATABASE", nameWidth)),
		TableHeaderStyle.Render(padRight("DATE", 10)),
		TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)),
		TableHeaderStyle.Render("FILE"))

	for _, row := range r.Rows {
		fmt.Fprintf(&sb, "  %s  %s  %s  %s\n",
			DBStyle.Render(padRight(row.Database, nameWidth)),
			ValueStyle.Render(padRight(row.Date, 10)),
			SizeStyle.Render(padLeft(row.SizeHuman, sizeWidth)),
			MutedStyle.Render(row.File))
	}
	return sb.String()
}

func (f *PrettyFormatter) footer(r *Result) string {
	parts := []string{
		LabelStyle.Render("Archives:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.FilesSeen)),
		LabelStyle.Render("Latest total:") + " " + SizeStyle.Render(humanize.IBytes(uint64(max(r.TotalSize(), 0)))),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
