// Package pipeline chains the download, extraction, and merge stages into a
// single run for one company.
package pipeline

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rpe-analytics/quarterlies-cli/internal/extractor"
	"github.com/rpe-analytics/quarterlies-cli/internal/fetcher"
	"github.com/rpe-analytics/quarterlies-cli/internal/manifest"
	"github.com/rpe-analytics/quarterlies-cli/internal/merger"
	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

// Pipeline holds the injected stage dependencies. Construct one per batch
// invocation; the downloader's HTTP client and the collaborator handle are
// shared across the batch but owned here, so tests can substitute doubles.
type Pipeline struct {
	Downloader *fetcher.Downloader
	Extractor  *extractor.Extractor

	// WorkDir is where per-company PDF directories are created.
	WorkDir string
	// OutputRoot is where per-company record directories are created.
	OutputRoot string
	// XLSX additionally saves the merged table as a spreadsheet.
	XLSX bool
}

// Run executes the full pipeline for one company: manifest → PDFs → records
// → merged table. Boundary problems (missing manifest, bad directories)
// fail the run; per-item problems are absorbed into the stage summaries.
func (p *Pipeline) Run(ctx context.Context, company string) (*model.RunResult, error) {
	result := &model.RunResult{Company: company}
	log := zap.L().With(zap.String("company", company))

	m, err := manifest.Load(filepath.Join(p.WorkDir, manifest.PathFor(company)))
	if err != nil {
		return nil, err
	}
	log.Info("manifest loaded", zap.Int("reports", len(m.Results)))

	pdfDir := filepath.Join(p.WorkDir, company)
	download, err := p.Downloader.DownloadBatch(ctx, m.Results, pdfDir)
	if err != nil {
		return nil, err
	}
	result.Download = download

	rs, err := store.NewDirStore(p.OutputRoot, company)
	if err != nil {
		return nil, err
	}

	extract, err := p.Extractor.Run(ctx, pdfDir, rs)
	if err != nil {
		return nil, err
	}
	result.Extract = extract

	merge, err := merger.MergeAndSave(ctx, rs, p.XLSX)
	if err != nil {
		return nil, err
	}
	result.Merge = merge

	log.Info("pipeline run finished",
		zap.Int("downloaded", download.Written),
		zap.Int("extracted", extract.Succeeded),
		zap.Int("rows", merge.Rows),
	)

	return result, nil
}
