// Package app wires configuration, stores, services, and the HTTP
// server into one runnable unit.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"zipsight/internal/analysis"
	"zipsight/internal/archive"
	"zipsight/internal/config"
	"zipsight/internal/handler"
	"zipsight/internal/llm"
	"zipsight/internal/logging"
	"zipsight/internal/selector"
	"zipsight/internal/server"
	"zipsight/internal/service/analyze"
	"zipsight/internal/service/workspace"
)

type App struct {
	server *server.Server
	llm    llm.Client
	log    *logrus.Entry
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.Setup(cfg.Logging)

	blobStore, err := initBlobStore(cfg, log.WithField("component", "store"))
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		RPS:      cfg.LLM.RPS,
		Burst:    cfg.LLM.Burst,
		Logger:   log.WithField("component", "llm"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	wsSvc, err := workspace.New(blobStore, archive.DecodeLimits{
		MaxEntries:    cfg.Upload.MaxEntries,
		MaxEntryBytes: cfg.Upload.MaxEntryBytes,
		MaxTotalBytes: cfg.Upload.MaxTotalBytes,
	}, log.WithField("component", "workspace"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workspace service: %w", err)
	}

	analyzer := analysis.New(llmClient, selector.Limits{
		MaxFiles:        cfg.Selection.MaxFiles,
		MaxCharsPerFile: cfg.Selection.MaxCharsPerFile,
	}, log.WithField("component", "analysis"))
	analyzeSvc := analyze.New(wsSvc, analyzer, blobStore, cfg.LLM.Timeout, log.WithField("component", "analyze"))

	h := handler.New(wsSvc, analyzeSvc, cfg.Upload.MaxBytes, log.WithField("component", "http"))
	mux := server.NewMux(h)
	srv := server.New(cfg.Port, mux, log.WithField("component", "server"))

	return &App{
		server: srv,
		llm:    llmClient,
		log:    log,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the listener and then releases the llm client, which
// also stops its rate limiter.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.llm.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
