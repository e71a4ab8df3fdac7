package analyze

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	EventAnalysisStarted   = "analysis.started"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

// Event announces analysis progress for one workspace.
type Event struct {
	Type        string    `json:"type"`
	WorkspaceID string    `json:"workspaceId"`
	At          time.Time `json:"at"`
	Error       string    `json:"error,omitempty"`
}

// Subscribe emits analysis events for a workspace until ctx is
// canceled. The channel is closed on unsubscribe.
func (s *Service) Subscribe(ctx context.Context, workspaceID string) (<-chan Event, error) {
	if s == nil {
		return nil, fmt.Errorf("analyze service is not available")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if _, err := s.ws.Get(workspaceID); err != nil {
		return nil, err
	}

	ch := make(chan Event, 8)
	s.mu.Lock()
	s.subs[workspaceID] = append(s.subs[workspaceID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.unsubscribe(workspaceID, ch)
	}()
	return ch, nil
}

func (s *Service) unsubscribe(workspaceID string, ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[workspaceID]
	for i, c := range subs {
		if c == ch {
			s.subs[workspaceID] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(s.subs[workspaceID]) == 0 {
		delete(s.subs, workspaceID)
	}
}

// publish delivers without blocking: a slow subscriber misses events
// rather than stalling the run. Sends happen under the mutex so a
// concurrent unsubscribe cannot close a channel mid-send.
func (s *Service) publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[evt.WorkspaceID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
