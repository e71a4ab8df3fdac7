package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs request and response sizes plus errors. Pass nil to
// use the standard logger.
func WithLogging(log *logrus.Entry) Middleware {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return func(next Client) Client {
		return &logging{next: next, log: log}
	}
}

type logging struct {
	next Client
	log  *logrus.Entry
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, schema Schema) (json.RawMessage, error) {
	l.log.WithFields(logrus.Fields{
		"client":       l.next.Name(),
		"prompt_bytes": len(prompt),
		"fields":       len(schema.Fields),
	}).Debug("llm request")

	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, prompt, schema)
	if err != nil {
		l.log.WithError(err).WithField("duration", time.Since(start)).Warn("llm request failed")
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"duration":       time.Since(start),
		"response_bytes": len(raw),
	}).Debug("llm response")
	return raw, nil
}
