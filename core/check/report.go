package check

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/revconfig"
)

// Report is the data a report template renders.
type Report struct {
	Module     breaks.GroupAndName
	Old        APIArchives
	New        APIArchives
	Unaccepted []Finding
	Accepted   []Finding
}

const resultsTemplate = `API compatibility of {{ .Module }}: {{ .Old.Version }} -> {{ or .New.Version "working tree" }}
{{ if .Unaccepted }}
{{ len .Unaccepted }} unaccepted break(s):
{{- range .Unaccepted }}
  {{ .Break.Code }}
    old: {{ or .Break.OldElement "-" }}
    new: {{ or .Break.NewElement "-" }}
{{- end }}

Accept them with:
  breakcheck accept-all --justification "<why these breaks are fine>"
{{ else }}
No unaccepted breaks.
{{ end }}
{{- if .Accepted }}
{{ len .Accepted }} accepted break(s):
{{- range .Accepted }}
  {{ .Break.Code }} {{ .Break.OldElement }}
    justification: {{ .Justification }}
{{- end }}
{{ end -}}
`

var builtinTemplates = map[string]string{
	revconfig.DefaultTemplate: resultsTemplate,
}

// loadTemplate returns the built-in template called name, or parses the
// template file at path name.
func loadTemplate(name string) (*template.Template, error) {
	if name == "" {
		name = revconfig.DefaultTemplate
	}
	if text, ok := builtinTemplates[name]; ok {
		return template.New(name).Parse(text)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("loading report template %q: %w", name, err)
	}
	return template.New(filepath.Base(name)).Parse(string(data))
}

// RenderReport renders r with the template called name.
func RenderReport(name string, r Report) (string, error) {
	tmpl, err := loadTemplate(name)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("rendering report template %q: %w", name, err)
	}
	return sb.String(), nil
}

// WriteReport writes text to path, creating parent directories.
func WriteReport(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
