package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rpe-analytics/quarterlies-cli/internal/extractor"
	"github.com/rpe-analytics/quarterlies-cli/internal/fetcher"
	"github.com/rpe-analytics/quarterlies-cli/internal/pipeline"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
	"github.com/rpe-analytics/quarterlies-cli/pkg/anthropic"
	"github.com/rpe-analytics/quarterlies-cli/pkg/gemini"
)

// initCollaborator constructs the configured extraction provider. The
// returned closer releases provider resources.
func initCollaborator(ctx context.Context) (extractor.Collaborator, func() error, error) {
	switch cfg.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, cfg.Gemini.Key, cfg.Gemini.Model)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "anthropic":
		c, err := anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.Model)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, eris.Errorf("unknown extraction provider %q", cfg.Provider)
	}
}

func newDownloader() *fetcher.Downloader {
	return fetcher.NewDownloader(fetcher.Options{
		UserAgent:   cfg.Download.UserAgent,
		Timeout:     time.Duration(cfg.Download.TimeoutSecs) * time.Second,
		MaxAttempts: cfg.Download.MaxAttempts,
		Concurrency: cfg.Download.Concurrency,
	})
}

// initPipeline wires a full pipeline from config. The closer releases the
// collaborator.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, func() error, error) {
	collab, closer, err := initCollaborator(ctx)
	if err != nil {
		return nil, nil, err
	}

	return &pipeline.Pipeline{
		Downloader: newDownloader(),
		Extractor:  extractor.New(collab, cfg.Extract.Concurrency),
		WorkDir:    ".",
		OutputRoot: cfg.Extract.OutputDir,
		XLSX:       cfg.Merge.XLSX,
	}, closer, nil
}

func initJobStore(ctx context.Context) (*store.SQLiteJobStore, error) {
	js, err := store.NewSQLiteJobStore(cfg.Jobs.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := js.Migrate(ctx); err != nil {
		js.Close() //nolint:errcheck
		return nil, err
	}
	return js, nil
}

// printJSON renders a command result to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Println(string(out))
	return nil
}
