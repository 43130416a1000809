// Package validate turns raw model text into schema-conforming pipeline results.
//
// Text moves through RAW_TEXT, STRIPPED, PARSED and VALIDATED; any stage may
// exit to FALLBACK, reported as an error wrapping domain.ErrMalformedOutput.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/kailas-cloud/ingres/internal/domain"
)

// Stage is the last state the output reached.
type Stage string

// Output states.
const (
	StageRaw       Stage = "raw_text"
	StageStripped  Stage = "stripped"
	StageParsed    Stage = "parsed"
	StageValidated Stage = "validated"
	StageFallback  Stage = "fallback"
)

// Fence markers are matched only at the very start and end of the text so
// fences inside string values survive.
var (
	openFence  = regexp.MustCompile("\\A\\s*```[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n?")
	closeFence = regexp.MustCompile("\\r?\\n?```\\s*\\z")
)

// Strip removes a leading fence marker with an optional language tag and a
// trailing fence marker, then trims surrounding whitespace.
func Strip(text string) string {
	text = openFence.ReplaceAllString(text, "")
	text = closeFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Options configures a Validator.
type Options struct {
	// RepairJSON allows one json-repair attempt before a parse fallback.
	RepairJSON bool
}

// Validator is safe for concurrent use.
type Validator struct {
	repair bool
	chart  *chartSchema
}

// New compiles the chart schema.
func New(opts Options) (*Validator, error) {
	chart, err := newChartSchema()
	if err != nil {
		return nil, err
	}
	return &Validator{repair: opts.RepairJSON, chart: chart}, nil
}

// Report describes how one output moved through the state machine.
type Report struct {
	Stage    Stage
	Repaired bool
	Warnings []string
}

// Object strips text and decodes it as a JSON object.
func (v *Validator) Object(text string) (map[string]any, Report, error) {
	rep := Report{Stage: StageRaw}

	stripped := Strip(text)
	rep.Stage = StageStripped

	obj, err := decodeObject(stripped)
	if err != nil && v.repair && stripped != "" {
		repaired, rerr := jsonrepair.RepairJSON(stripped)
		if rerr == nil {
			if obj, err = decodeObject(repaired); err == nil {
				rep.Repaired = true
			}
		}
	}
	if err != nil {
		rep.Stage = StageFallback
		return nil, rep, err
	}

	rep.Stage = StageParsed
	return obj, rep, nil
}

func decodeObject(text string) (map[string]any, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty output", domain.ErrMalformedOutput)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not a JSON object", domain.ErrMalformedOutput)
	}
	return obj, nil
}
