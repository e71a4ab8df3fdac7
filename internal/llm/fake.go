package llm

import (
	"context"
	"encoding/json"
	"time"
)

// FakeClient returns deterministic, schema-shaped payloads for offline
// use and tests.
type FakeClient struct {
	// Respond overrides the default payload when set.
	Respond func(prompt string, schema Schema) (json.RawMessage, error)
	// Err, when set, fails every call.
	Err error
	// Delay is waited out before answering, honoring cancellation.
	Delay time.Duration
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, schema Schema) (json.RawMessage, error) {
	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Respond != nil {
		return f.Respond(prompt, schema)
	}
	obj := make(map[string]any, len(schema.Fields))
	for _, fld := range schema.Fields {
		switch fld.Type {
		case TypeStringArray:
			obj[fld.Name] = []string{"fake " + fld.Name}
		default:
			obj[fld.Name] = "fake " + fld.Name
		}
	}
	b, _ := json.Marshal(obj)
	return json.RawMessage(b), nil
}
