package analysis

import (
	"encoding/json"
	"fmt"
)

// Result is the validated payload of one analysis response. Values are
// copied from the model output verbatim; nothing is defaulted, trimmed,
// or repaired.
type Result struct {
	Summary             string   `json:"summary"`
	EntryPoint          string   `json:"entryPoint"`
	Dependencies        []string `json:"dependencies"`
	ExecutionSimulation string   `json:"executionSimulation"`
	Suggestions         []string `json:"suggestions"`
}

// Report pairs a Result with the selection it was produced from.
type Report struct {
	Result   Result   `json:"result"`
	Files    []string `json:"files"`
	Dropped  int      `json:"dropped"`
	Provider string   `json:"provider"`
}

// parseResult validates the raw model output against the response
// contract. A JSON null counts as a missing field; an empty array is
// valid. A rejected response yields no Result at all.
func parseResult(raw json.RawMessage) (*Result, error) {
	var body struct {
		Summary             *string   `json:"summary"`
		EntryPoint          *string   `json:"entryPoint"`
		Dependencies        *[]string `json:"dependencies"`
		ExecutionSimulation *string   `json:"executionSimulation"`
		Suggestions         *[]string `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrContractViolation, err)
	}

	checks := []struct {
		name string
		ok   bool
	}{
		{"summary", body.Summary != nil},
		{"entryPoint", body.EntryPoint != nil},
		{"dependencies", body.Dependencies != nil},
		{"executionSimulation", body.ExecutionSimulation != nil},
		{"suggestions", body.Suggestions != nil},
	}
	for _, c := range checks {
		if !c.ok {
			return nil, fmt.Errorf("%w: missing required field %q", ErrContractViolation, c.name)
		}
	}

	return &Result{
		Summary:             *body.Summary,
		EntryPoint:          *body.EntryPoint,
		Dependencies:        *body.Dependencies,
		ExecutionSimulation: *body.ExecutionSimulation,
		Suggestions:         *body.Suggestions,
	}, nil
}
