package intent

import "math"

// Result is the classifier output for one query.
type Result struct {
	intent     Intent
	entities   map[string]any
	confidence float64
}

// NewResult builds a Result that satisfies the output invariants: the intent is
// valid, entities is never nil and holds no null values, confidence is in [0,1].
func NewResult(i Intent, entities map[string]any, confidence float64) Result {
	if !i.IsValid() {
		i = Unknown
	}

	clean := make(map[string]any, len(entities))
	for k, v := range entities {
		if v == nil {
			continue
		}
		clean[k] = v
	}

	return Result{intent: i, entities: clean, confidence: clampConfidence(confidence)}
}

// UnknownResult is the fallback for unparseable model output.
func UnknownResult() Result {
	return Result{intent: Unknown, entities: map[string]any{}}
}

// ErrorResult is the fallback for failures before model output was available.
func ErrorResult() Result {
	return Result{intent: Error, entities: map[string]any{}}
}

// Intent returns the classified intent.
func (r Result) Intent() Intent { return r.intent }

// Entities returns the extracted entities keyed by field name.
func (r Result) Entities() map[string]any { return r.entities }

// Confidence returns the model-reported confidence in [0,1].
func (r Result) Confidence() float64 { return r.confidence }

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
