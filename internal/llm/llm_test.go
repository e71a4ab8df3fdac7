package llm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func sampleSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "summary", Type: TypeString, Required: true, Description: "short summary"},
		{Name: "tags", Type: TypeStringArray, Required: true},
		{Name: "note", Type: TypeString},
	}}
}

func TestSchemaRequired(t *testing.T) {
	assert.Equal(t, []string{"summary", "tags"}, sampleSchema().Required())
	assert.Empty(t, Schema{}.Required())
}

func TestFakeClientMatchesSchema(t *testing.T) {
	raw, err := NewFakeClient().GenerateJSON(context.Background(), "p", sampleSchema())
	require.NoError(t, err)

	var got struct {
		Summary *string   `json:"summary"`
		Tags    *[]string `json:"tags"`
		Note    *string   `json:"note"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.NotNil(t, got.Summary)
	require.NotNil(t, got.Tags)
	require.NotNil(t, got.Note)
	assert.Equal(t, "fake summary", *got.Summary)
	assert.Equal(t, []string{"fake tags"}, *got.Tags)
}

func TestFakeClientDelayHonorsContext(t *testing.T) {
	cli := &FakeClient{Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := cli.GenerateJSON(ctx, "p", Schema{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWrapAppliesLeftToRight(t *testing.T) {
	name := func(suffix string) Middleware {
		return func(next Client) Client {
			return &renamed{next: next, suffix: suffix}
		}
	}
	cli := Wrap(NewFakeClient(), name("-a"), name("-b"))
	// Wrap(inner, A, B) => A(B(inner))
	assert.Equal(t, "FakeLLM-b-a", cli.Name())
}

type renamed struct {
	next   Client
	suffix string
}

func (r *renamed) Name() string { return r.next.Name() + r.suffix }
func (r *renamed) Close() error { return r.next.Close() }
func (r *renamed) GenerateJSON(ctx context.Context, prompt string, schema Schema) (json.RawMessage, error) {
	return r.next.GenerateJSON(ctx, prompt, schema)
}

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(sampleSchema())
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"summary", "tags"}, s.Required)

	require.Contains(t, s.Properties, "summary")
	assert.Equal(t, genai.TypeString, s.Properties["summary"].Type)
	assert.Equal(t, "short summary", s.Properties["summary"].Description)

	require.Contains(t, s.Properties, "tags")
	assert.Equal(t, genai.TypeArray, s.Properties["tags"].Type)
	require.NotNil(t, s.Properties["tags"].Items)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)
}

func TestNewFactory(t *testing.T) {
	cli, err := New(context.Background(), Options{Provider: "fake"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	raw, err := cli.GenerateJSON(context.Background(), "p", sampleSchema())
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))

	_, err = New(context.Background(), Options{Provider: "watson"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}
