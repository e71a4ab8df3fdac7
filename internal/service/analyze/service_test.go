package analyze

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipsight/internal/analysis"
	"zipsight/internal/archive"
	"zipsight/internal/repository/blob"
	"zipsight/internal/service/workspace"
)

type stubProvider struct {
	mu     sync.Mutex
	report *analysis.Report
	err    error
	delay  time.Duration
	calls  int
}

func (p *stubProvider) Analyze(ctx context.Context, entries []archive.Entry) (*analysis.Report, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	rep := *p.report
	return &rep, nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func sampleReport() *analysis.Report {
	return &analysis.Report{
		Result: analysis.Result{
			Summary:             "demo project",
			EntryPoint:          "a.go",
			Dependencies:        []string{"none"},
			ExecutionSimulation: "starts and waits",
			Suggestions:         []string{"more tests"},
		},
		Files:    []string{"a.go"},
		Provider: "FakeLLM",
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestEnv(t *testing.T, p Provider) (*Service, *workspace.Service, blob.Store, string) {
	t.Helper()
	store := blob.NewMemoryStore()
	ws, err := workspace.New(store, archive.DecodeLimits{}, nil)
	require.NoError(t, err)
	an := New(ws, p, store, time.Minute, nil)

	meta, err := ws.Create(context.Background(), "demo", buildZip(t, map[string]string{"a.go": "package a"}))
	require.NoError(t, err)
	return an, ws, store, meta.ID
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed early")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestRunStoresReportAndPublishesEvents(t *testing.T) {
	provider := &stubProvider{report: sampleReport()}
	an, _, store, id := newTestEnv(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := an.Subscribe(ctx, id)
	require.NoError(t, err)

	rec, err := an.Run(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec.Report)
	assert.Equal(t, "demo project", rec.Report.Result.Summary)
	assert.Equal(t, id, rec.WorkspaceID)
	assert.False(t, rec.FinishedAt.Before(rec.StartedAt))
	assert.Equal(t, 1, provider.callCount())

	started := waitEvent(t, events)
	assert.Equal(t, EventAnalysisStarted, started.Type)
	assert.Equal(t, id, started.WorkspaceID)
	completed := waitEvent(t, events)
	assert.Equal(t, EventAnalysisCompleted, completed.Type)

	raw, err := store.Get(context.Background(), id, blob.ObjectReport)
	require.NoError(t, err)
	var stored Record
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, id, stored.WorkspaceID)
	assert.Equal(t, "demo project", stored.Report.Result.Summary)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	provider := &stubProvider{report: sampleReport(), delay: 300 * time.Millisecond}
	an, _, _, id := newTestEnv(t, provider)

	done := make(chan error, 1)
	go func() {
		_, err := an.Run(context.Background(), id)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	_, err := an.Run(context.Background(), id)
	assert.ErrorIs(t, err, ErrAnalysisRunning)

	require.NoError(t, <-done)

	// The guard clears once the run finishes.
	_, err = an.Run(context.Background(), id)
	require.NoError(t, err)
}

func TestRunFailurePublishesFailedEvent(t *testing.T) {
	cause := errors.New("model exploded")
	provider := &stubProvider{err: cause}
	an, _, _, id := newTestEnv(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := an.Subscribe(ctx, id)
	require.NoError(t, err)

	_, err = an.Run(context.Background(), id)
	require.ErrorIs(t, err, cause)

	started := waitEvent(t, events)
	assert.Equal(t, EventAnalysisStarted, started.Type)
	failed := waitEvent(t, events)
	assert.Equal(t, EventAnalysisFailed, failed.Type)
	assert.Contains(t, failed.Error, "model exploded")

	_, err = an.Last(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestRunUnknownWorkspace(t *testing.T) {
	provider := &stubProvider{report: sampleReport()}
	an, _, _, _ := newTestEnv(t, provider)

	_, err := an.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, workspace.ErrNotFound)
	assert.Zero(t, provider.callCount())
}

func TestLastRecoversFromStoredReport(t *testing.T) {
	provider := &stubProvider{report: sampleReport()}
	an, ws, store, id := newTestEnv(t, provider)

	_, err := an.Run(context.Background(), id)
	require.NoError(t, err)

	// A fresh service sharing the same stores simulates a restart.
	fresh := New(ws, provider, store, time.Minute, nil)
	rec, err := fresh.Last(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.WorkspaceID)
	assert.Equal(t, "demo project", rec.Report.Result.Summary)
}

func TestForgetDropsMemoryRecord(t *testing.T) {
	provider := &stubProvider{report: sampleReport()}
	an, _, store, id := newTestEnv(t, provider)

	_, err := an.Run(context.Background(), id)
	require.NoError(t, err)

	// Remove the persisted copy; memory still answers.
	require.NoError(t, store.Delete(context.Background(), id, blob.ObjectReport))
	_, err = an.Last(context.Background(), id)
	require.NoError(t, err)

	an.Forget(id)
	_, err = an.Last(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestSubscribeUnknownWorkspace(t *testing.T) {
	an, _, _, _ := newTestEnv(t, &stubProvider{report: sampleReport()})

	_, err := an.Subscribe(context.Background(), "nope")
	assert.ErrorIs(t, err, workspace.ErrNotFound)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	an, _, _, id := newTestEnv(t, &stubProvider{report: sampleReport()})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := an.Subscribe(ctx, id)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
