// Package prompt assembles the per-request system instruction from a static
// template and the few-shot examples chosen for the query.
package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/kailas-cloud/ingres/internal/domain/example"
	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
)

//go:embed templates
var templateFS embed.FS

// Kind selects the instruction template.
type Kind string

// Pipelines with their own instructions.
const (
	Intent   Kind = "intent"
	Response Kind = "response"
)

// DefaultSchema returns the built-in groundwater schema and keyword mapping.
func DefaultSchema() string {
	data, err := templateFS.ReadFile("templates/schema.txt")
	if err != nil {
		panic(fmt.Sprintf("embedded schema missing: %v", err))
	}
	return strings.TrimSpace(string(data))
}

// LoadSchema reads a schema override; an empty path yields DefaultSchema.
func LoadSchema(path string) (string, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read schema file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

type templateData struct {
	Schema     string
	Intents    []intent.Intent
	ChartTypes string
}

// renderStatic executes the template for kind once; the result never changes.
func renderStatic(kind Kind, schema string) (string, error) {
	var name string
	switch kind {
	case Intent:
		name = "intent.tmpl"
	case Response:
		name = "response.tmpl"
	default:
		return "", fmt.Errorf("unknown prompt kind %q", kind)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	charts := make([]string, 0, 4)
	for _, c := range response.ChartTypes() {
		charts = append(charts, string(c))
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, templateData{
		Schema:     schema,
		Intents:    intent.Known(),
		ChartTypes: strings.Join(charts, " | "),
	})
	if err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// FormatExamples renders records as an indented JSON array, keeping each
// record's original key order. No examples renders as "[]".
func FormatExamples(records []example.Record) (string, error) {
	if len(records) == 0 {
		return "[]", nil
	}

	raws := make([]json.RawMessage, len(records))
	for i, r := range records {
		raws[i] = r.Raw()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raws); err != nil {
		return "", fmt.Errorf("encode examples: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
