package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options selects and configures a provider-backed client.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	RPS      float64
	Burst    int
	Logger   *logrus.Entry
}

// New builds the configured provider client wrapped with logging and,
// when RPS is set, rate limiting. There is deliberately no retry layer:
// callers get at most one upstream request per GenerateJSON call.
func New(ctx context.Context, opts Options) (Client, error) {
	var inner Client
	switch strings.ToLower(opts.Provider) {
	case "", "fake":
		inner = NewFakeClient()
	case "gemini":
		c, err := NewGeminiClient(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		inner = c
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}

	mws := []Middleware{WithLogging(opts.Logger)}
	if opts.RPS > 0 {
		mws = append(mws, RateLimit(opts.RPS, opts.Burst))
	}
	return Wrap(inner, mws...), nil
}
