package validate

import (
	"strconv"

	"github.com/kailas-cloud/ingres/internal/domain/intent"
)

// Intent validates classifier output. On error the caller uses
// intent.UnknownResult.
func (v *Validator) Intent(text string) (intent.Result, Report, error) {
	obj, rep, err := v.Object(text)
	if err != nil {
		return intent.UnknownResult(), rep, err
	}

	name, _ := obj["intent"].(string)
	i := intent.Parse(name)
	if i == intent.Unknown && name != "" && name != string(intent.Unknown) {
		rep.Warnings = append(rep.Warnings, "unrecognized intent "+strconv.Quote(name))
	}

	entities, ok := obj["entities"].(map[string]any)
	if !ok && obj["entities"] != nil {
		rep.Warnings = append(rep.Warnings, "entities is not an object")
	}

	rep.Stage = StageValidated
	return intent.NewResult(i, entities, confidence(obj["confidence"])), rep, nil
}

// confidence accepts numbers and numeric strings; anything else is 0.
func confidence(v any) float64 {
	switch c := v.(type) {
	case float64:
		return c
	case string:
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
