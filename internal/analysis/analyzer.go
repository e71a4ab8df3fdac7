// Package analysis performs the one-shot model exchange over a
// workspace: select context, send a single structured request, validate
// the response against the declared schema.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"zipsight/internal/archive"
	"zipsight/internal/llm"
	"zipsight/internal/selector"
)

var (
	// ErrNoEntries rejects analysis requests for empty workspaces.
	ErrNoEntries = errors.New("no entries to analyze")
	// ErrContractViolation marks a response that does not satisfy the
	// declared schema. The partial payload is never used.
	ErrContractViolation = errors.New("analysis response violates contract")
	// ErrServiceUnavailable marks transport and service-side failures:
	// network errors, timeouts, rate limits, rejected credentials.
	ErrServiceUnavailable = errors.New("analysis service unavailable")
)

// Analyzer turns a workspace's entries into exactly one model request
// and a validated Report. Each call is independent; no state is kept
// between invocations.
type Analyzer struct {
	client llm.Client
	limits selector.Limits
	log    *logrus.Entry
}

func New(client llm.Client, limits selector.Limits, log *logrus.Entry) *Analyzer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Analyzer{client: client, limits: limits, log: log}
}

// Analyze builds the bounded context, issues one request, and validates
// the response. It never retries; retry policy, if any, belongs to the
// caller.
func (a *Analyzer) Analyze(ctx context.Context, entries []archive.Entry) (*Report, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("analyzer is not configured")
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	sctx := selector.Build(entries, a.limits)
	a.log.WithFields(logrus.Fields{
		"files":   len(sctx.Files),
		"dropped": sctx.Dropped,
	}).Info("running analysis")

	raw, err := a.client.GenerateJSON(ctx, buildPrompt(sctx), ResultSchema())
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
		}
		a.log.WithError(err).Error("analysis request failed")
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	res, err := parseResult(raw)
	if err != nil {
		a.log.WithError(err).Warn("analysis response rejected")
		return nil, err
	}

	return &Report{
		Result:   *res,
		Files:    sctx.Files,
		Dropped:  sctx.Dropped,
		Provider: a.client.Name(),
	}, nil
}
