// Package llm is the provider boundary for generative models: a small
// Client interface, a provider-neutral response schema, and middleware
// for composing logging and rate limiting around a provider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyResponse is returned when the provider answered the request
// but carried no usable content.
var ErrEmptyResponse = errors.New("empty response from model")

// Client is implemented by every model backend. GenerateJSON sends a
// single request and returns the raw JSON body; it never retries.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, schema Schema) (json.RawMessage, error)
	Close() error
}
