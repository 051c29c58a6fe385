package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
)

// DownloadBatch downloads every manifest item into outDir concurrently,
// bounded by Options.Concurrency. Item failures never abort the batch: each
// item settles to exactly one outcome (written, skipped, or failed), stored
// in its input-index slot. Only setup problems return an error.
func (d *Downloader) DownloadBatch(ctx context.Context, items []model.ReportItem, outDir string) (*model.DownloadSummary, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "fetcher: create output dir %s", outDir)
	}

	zap.L().Info("starting batch download",
		zap.Int("items", len(items)),
		zap.Int("concurrency", d.opts.Concurrency),
		zap.String("output_dir", outDir),
	)

	outcomes := make([]model.FetchOutcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = d.downloadOne(gctx, item, outDir)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	summary := &model.DownloadSummary{Total: len(items), Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case model.FetchWritten:
			summary.Written++
		case model.FetchSkipped:
			summary.Skipped++
		case model.FetchFailed:
			summary.Failed++
		}
	}

	zap.L().Info("batch download finished",
		zap.Int("written", summary.Written),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

func (d *Downloader) downloadOne(ctx context.Context, item model.ReportItem, outDir string) model.FetchOutcome {
	path := filepath.Join(outDir, PDFName(item.Details))
	log := zap.L().With(zap.String("details", item.Details), zap.String("url", item.DownloadURL))
	log.Info("downloading report")

	err := d.download(ctx, item.DownloadURL, path)
	if err == nil {
		log.Info("report saved", zap.String("path", path))
		return model.FetchOutcome{Item: item, Status: model.FetchWritten, Path: path}
	}

	var cte *ContentTypeError
	if errors.As(err, &cte) {
		log.Warn("skipping non-PDF response", zap.String("content_type", cte.ContentType))
		return model.FetchOutcome{Item: item, Status: model.FetchSkipped, Reason: cte.Error()}
	}

	log.Error("download failed", zap.Error(err))
	return model.FetchOutcome{Item: item, Status: model.FetchFailed, Error: err.Error()}
}
