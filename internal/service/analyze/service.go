// Package analyze orchestrates analysis runs over workspaces: one run
// per workspace at a time, last-report retention, progress events.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"zipsight/internal/analysis"
	"zipsight/internal/archive"
	"zipsight/internal/repository/blob"
	"zipsight/internal/service/workspace"
)

var (
	// ErrAnalysisRunning rejects a run while another one for the same
	// workspace is still in flight.
	ErrAnalysisRunning = errors.New("analysis already running")
	// ErrNoReport means no analysis has completed for the workspace.
	ErrNoReport = errors.New("no analysis report")
)

const defaultTimeout = 2 * time.Minute

// Provider produces a report from a set of entries.
type Provider interface {
	Analyze(ctx context.Context, entries []archive.Entry) (*analysis.Report, error)
}

// Record is one finished analysis run.
type Record struct {
	WorkspaceID string           `json:"workspaceId"`
	StartedAt   time.Time        `json:"startedAt"`
	FinishedAt  time.Time        `json:"finishedAt"`
	Report      *analysis.Report `json:"report"`
}

type Service struct {
	mu      sync.Mutex
	running map[string]bool
	last    map[string]*Record
	subs    map[string][]chan Event

	ws       *workspace.Service
	provider Provider
	blobs    blob.Store
	timeout  time.Duration
	log      *logrus.Entry
}

func New(ws *workspace.Service, provider Provider, blobs blob.Store, timeout time.Duration, log *logrus.Entry) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		running:  make(map[string]bool),
		last:     make(map[string]*Record),
		subs:     make(map[string][]chan Event),
		ws:       ws,
		provider: provider,
		blobs:    blobs,
		timeout:  timeout,
		log:      log,
	}
}

// Run performs one analysis for the workspace and blocks until it
// finishes. A second run for the same workspace while one is in flight
// is rejected with ErrAnalysisRunning.
func (s *Service) Run(ctx context.Context, workspaceID string) (*Record, error) {
	if s == nil || s.provider == nil {
		return nil, fmt.Errorf("analyze service is not available")
	}
	workspaceID = strings.TrimSpace(workspaceID)

	entries, err := s.ws.Entries(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.running[workspaceID] {
		s.mu.Unlock()
		return nil, ErrAnalysisRunning
	}
	s.running[workspaceID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, workspaceID)
		s.mu.Unlock()
	}()

	started := time.Now()
	s.publish(Event{Type: EventAnalysisStarted, WorkspaceID: workspaceID, At: started})

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.provider.Analyze(runCtx, entries)
	if err != nil {
		s.publish(Event{Type: EventAnalysisFailed, WorkspaceID: workspaceID, Error: err.Error()})
		return nil, err
	}

	rec := &Record{
		WorkspaceID: workspaceID,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Report:      report,
	}
	s.mu.Lock()
	s.last[workspaceID] = rec
	s.mu.Unlock()

	// Persisting the report is best-effort; the run already succeeded.
	if raw, err := json.Marshal(rec); err == nil {
		if err := s.blobs.Put(ctx, workspaceID, blob.ObjectReport, raw); err != nil {
			s.log.WithError(err).WithField("workspace", workspaceID).Warn("persist report")
		}
	}

	s.publish(Event{Type: EventAnalysisCompleted, WorkspaceID: workspaceID})
	s.log.WithFields(logrus.Fields{
		"workspace": workspaceID,
		"duration":  rec.FinishedAt.Sub(rec.StartedAt),
	}).Info("analysis finished")

	out := *rec
	return &out, nil
}

// Last returns the most recent completed run, falling back to the
// persisted report when memory was lost (e.g. after a restart).
func (s *Service) Last(ctx context.Context, workspaceID string) (*Record, error) {
	if s == nil {
		return nil, fmt.Errorf("analyze service is not available")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if _, err := s.ws.Get(workspaceID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rec, ok := s.last[workspaceID]
	s.mu.Unlock()
	if ok {
		out := *rec
		return &out, nil
	}

	raw, err := s.blobs.Get(ctx, workspaceID, blob.ObjectReport)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrNoReport
		}
		return nil, err
	}
	var stored Record
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode stored report: %w", err)
	}

	s.mu.Lock()
	s.last[workspaceID] = &stored
	s.mu.Unlock()
	out := stored
	return &out, nil
}

// Forget drops the in-memory record for a workspace. The stored report
// object is removed by whoever owns the workspace's blobs.
func (s *Service) Forget(workspaceID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, strings.TrimSpace(workspaceID))
	s.mu.Unlock()
}
