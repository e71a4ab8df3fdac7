package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipsight/internal/archive"
	"zipsight/internal/llm"
	"zipsight/internal/selector"
)

type countingClient struct {
	llm.Client
	calls int
}

func (c *countingClient) GenerateJSON(ctx context.Context, prompt string, schema llm.Schema) (json.RawMessage, error) {
	c.calls++
	return c.Client.GenerateJSON(ctx, prompt, schema)
}

func fileEntry(p, content string) archive.Entry {
	return archive.Entry{Name: path.Base(p), Path: p, Content: content}
}

func respondWith(body string) *llm.FakeClient {
	return &llm.FakeClient{Respond: func(string, llm.Schema) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}}
}

const validBody = `{
	"summary": "a demo web app",
	"entryPoint": "src/main.ts",
	"dependencies": ["react", "vite"],
	"executionSimulation": "1. boot\n2. render\n3. wait for input",
	"suggestions": ["add tests", "pin versions"]
}`

func TestAnalyzeCopiesFieldsVerbatim(t *testing.T) {
	cli := &countingClient{Client: respondWith(validBody)}
	a := New(cli, selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("src/main.ts", "boot()")})
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.Equal(t, "a demo web app", rep.Result.Summary)
	assert.Equal(t, "src/main.ts", rep.Result.EntryPoint)
	assert.Equal(t, []string{"react", "vite"}, rep.Result.Dependencies)
	assert.Equal(t, "1. boot\n2. render\n3. wait for input", rep.Result.ExecutionSimulation)
	assert.Equal(t, []string{"add tests", "pin versions"}, rep.Result.Suggestions)

	assert.Equal(t, 1, cli.calls, "exactly one upstream request")
	assert.Equal(t, []string{"src/main.ts"}, rep.Files)
	assert.Zero(t, rep.Dropped)
	assert.Equal(t, "FakeLLM", rep.Provider)
}

func TestAnalyzeMissingFieldFails(t *testing.T) {
	body := `{
		"summary": "s",
		"entryPoint": "e",
		"executionSimulation": "x",
		"suggestions": []
	}`
	cli := &countingClient{Client: respondWith(body)}
	a := New(cli, selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Contains(t, err.Error(), "dependencies")
	assert.Nil(t, rep)
	assert.Equal(t, 1, cli.calls, "no retry after a rejected response")
}

func TestAnalyzeNullFieldCountsAsMissing(t *testing.T) {
	body := `{
		"summary": "s",
		"entryPoint": "e",
		"dependencies": [],
		"executionSimulation": "x",
		"suggestions": null
	}`
	a := New(respondWith(body), selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Contains(t, err.Error(), "suggestions")
	assert.Nil(t, rep)
}

func TestAnalyzeWrongFieldTypeFails(t *testing.T) {
	body := `{
		"summary": "s",
		"entryPoint": "e",
		"dependencies": "react, vite",
		"executionSimulation": "x",
		"suggestions": []
	}`
	a := New(respondWith(body), selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Nil(t, rep)
}

func TestAnalyzeUnparsableBodyFails(t *testing.T) {
	a := New(respondWith("here is your analysis: the app is great"), selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Nil(t, rep)
}

func TestAnalyzeEmptyArraysAreValid(t *testing.T) {
	body := `{
		"summary": "s",
		"entryPoint": "e",
		"dependencies": [],
		"executionSimulation": "x",
		"suggestions": []
	}`
	a := New(respondWith(body), selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	require.NoError(t, err)
	assert.Empty(t, rep.Result.Dependencies)
	assert.Empty(t, rep.Result.Suggestions)
}

func TestAnalyzeTimeoutMapsToServiceUnavailable(t *testing.T) {
	cli := &countingClient{Client: &llm.FakeClient{Delay: time.Second}}
	a := New(cli, selector.Limits{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rep, err := a.Analyze(ctx, []archive.Entry{fileEntry("a.go", "x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.NotErrorIs(t, err, ErrContractViolation)
	assert.Contains(t, err.Error(), "deadline")
	assert.Nil(t, rep)
	assert.Equal(t, 1, cli.calls)
}

func TestAnalyzeTransportErrorPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:443: connection refused")
	cli := &countingClient{Client: &llm.FakeClient{Err: cause}}
	a := New(cli, selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, rep)
	assert.Equal(t, 1, cli.calls, "no retry after a failed request")
}

func TestAnalyzeEmptyModelResponseIsContractViolation(t *testing.T) {
	a := New(&llm.FakeClient{Err: llm.ErrEmptyResponse}, selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), []archive.Entry{fileEntry("a.go", "x")})
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Nil(t, rep)
}

func TestAnalyzeRejectsEmptyInput(t *testing.T) {
	cli := &countingClient{Client: llm.NewFakeClient()}
	a := New(cli, selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoEntries)
	assert.Nil(t, rep)
	assert.Zero(t, cli.calls)
}

func TestAnalyzePromptAndSchema(t *testing.T) {
	var gotPrompt string
	var gotSchema llm.Schema
	cli := &llm.FakeClient{Respond: func(prompt string, schema llm.Schema) (json.RawMessage, error) {
		gotPrompt = prompt
		gotSchema = schema
		return json.RawMessage(validBody), nil
	}}
	a := New(cli, selector.Limits{}, nil)

	_, err := a.Analyze(context.Background(), []archive.Entry{
		fileEntry("src/main.ts", "boot()"),
		fileEntry("README.md", "# demo"),
	})
	require.NoError(t, err)

	assert.Contains(t, gotPrompt, "[TASK]")
	assert.Contains(t, gotPrompt, "[RESPONSE RULES]")
	assert.Contains(t, gotPrompt, "[PROJECT FILES]")
	assert.Contains(t, gotPrompt, "FILE: README.md\nCONTENT:\n# demo")
	assert.Contains(t, gotPrompt, "FILE: src/main.ts\nCONTENT:\nboot()")

	assert.Equal(t, []string{"summary", "entryPoint", "dependencies", "executionSimulation", "suggestions"}, gotSchema.Required())
}

func TestAnalyzeAppliesSelectionLimits(t *testing.T) {
	entries := make([]archive.Entry, 0, 40)
	for i := 1; i <= 40; i++ {
		entries = append(entries, fileEntry(fmt.Sprintf("f%02d.ts", i), "x"))
	}

	var gotPrompt string
	cli := &llm.FakeClient{Respond: func(prompt string, _ llm.Schema) (json.RawMessage, error) {
		gotPrompt = prompt
		return json.RawMessage(validBody), nil
	}}
	a := New(cli, selector.Limits{}, nil)

	rep, err := a.Analyze(context.Background(), entries)
	require.NoError(t, err)
	assert.Len(t, rep.Files, 30)
	assert.Equal(t, 10, rep.Dropped)
	assert.Contains(t, gotPrompt, "FILE: f30.ts")
	assert.NotContains(t, gotPrompt, "FILE: f31.ts")
}
