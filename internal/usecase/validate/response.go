package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/ingres/internal/domain/response"
)

// Response validates generator output. On error the caller uses
// response.ParseFailure.
func (v *Validator) Response(text string) (response.Result, Report, error) {
	obj, rep, err := v.Object(text)
	if err != nil {
		return response.ParseFailure(), rep, err
	}

	nl := response.DefaultNLResponse
	switch s := obj["nl_response"].(type) {
	case string:
		nl = s
	case nil:
	default:
		nl = fmt.Sprint(s)
		rep.Warnings = append(rep.Warnings, "nl_response is not a string")
	}

	var viz response.Visualization
	if raw, ok := obj["visualization_data"]; ok && raw != nil {
		var warn string
		viz, warn = v.chart.visualization(raw)
		if warn != "" {
			rep.Warnings = append(rep.Warnings, warn)
		}
	}

	rep.Stage = StageValidated
	return response.NewResult(nl, viz), rep, nil
}

type chartSchema struct {
	schema *gojsonschema.Schema
}

func newChartSchema() (*chartSchema, error) {
	types := make([]any, 0, 4)
	for _, c := range response.ChartTypes() {
		types = append(types, string(c))
	}

	schemaMap := map[string]any{
		"type":     "object",
		"required": []any{"type", "labels", "data"},
		"properties": map[string]any{
			"type":   map[string]any{"enum": types},
			"labels": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"data":   map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
			"x_axis": map[string]any{"type": "string"},
			"y_axis": map[string]any{"type": "string"},
		},
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("compile chart schema: %w", err)
	}
	return &chartSchema{schema: schema}, nil
}

// visualization converts visualization_data into a chart. An empty object is
// no chart; anything failing the schema becomes no chart plus a warning.
func (s *chartSchema) visualization(raw any) (response.Visualization, string) {
	m, ok := raw.(map[string]any)
	if !ok {
		return response.Visualization{}, "visualization_data is not an object"
	}
	if len(m) == 0 {
		return response.Visualization{}, ""
	}

	doc := normalizeChart(m)
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return response.Visualization{}, "chart validation error: " + err.Error()
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return response.Visualization{}, "invalid chart dropped: " + strings.Join(errs, "; ")
	}

	labels := make([]string, 0)
	for _, l := range doc["labels"].([]any) {
		labels = append(labels, l.(string))
	}
	data := make([]float64, 0)
	for _, d := range doc["data"].([]any) {
		data = append(data, d.(float64))
	}
	xAxis, _ := doc["x_axis"].(string)
	yAxis, _ := doc["y_axis"].(string)

	return response.NewVisualization(response.ChartType(doc["type"].(string)), labels, data, xAxis, yAxis), ""
}

// normalizeChart lowercases the chart type, stringifies numeric labels and
// parses numeric strings in data. Other shapes are left for the schema to reject.
func normalizeChart(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	if t, ok := out["type"].(string); ok {
		out["type"] = strings.ToLower(strings.TrimSpace(t))
	}

	if labels, ok := out["labels"].([]any); ok {
		norm := make([]any, len(labels))
		for i, l := range labels {
			if f, ok := l.(float64); ok {
				norm[i] = strconv.FormatFloat(f, 'f', -1, 64)
				continue
			}
			norm[i] = l
		}
		out["labels"] = norm
	}

	if data, ok := out["data"].([]any); ok {
		norm := make([]any, len(data))
		for i, d := range data {
			if s, ok := d.(string); ok {
				if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					norm[i] = f
					continue
				}
			}
			norm[i] = d
		}
		out["data"] = norm
	}
	return out
}
