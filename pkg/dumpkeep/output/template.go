package output

import (
	"bytes"
	"sync"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
)

// TemplateFormatter renders the listing through a Go text/template.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

type templateData struct {
	*Result
	TotalSize int64
}

// NewTemplateFormatter creates a formatter for templateStr. The template is
// parsed on first use.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{templateStr: templateStr}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// {{bytes .SizeBytes}}
		"bytes": func(size int64) string {
			if size < 0 {
				size = 0
			}
			return humanize.IBytes(uint64(size))
		},

		// {{ago .Date}} turns an archive date into "3 days ago". Dates that
		// do not parse are returned unchanged.
		"ago": func(date string) string {
			t, err := naming.ParseDate(date)
			if err != nil {
				return date
			}
			return humanize.Time(t)
		},
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, templateData{Result: r, TotalSize: r.TotalSize()})
}

const defaultTemplate = `{{range .Rows}}{{.Database}}	{{.Date}}	{{.SizeHuman}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
