// Package extractor drives bounded-concurrency structured extraction over a
// directory of report PDFs.
package extractor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/sanitize"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

// Collaborator is the opaque structured-extraction service. It takes a
// document path and returns the model's raw JSON text.
type Collaborator interface {
	ExtractFinancials(ctx context.Context, pdfPath string) (string, error)
}

// DefaultConcurrency bounds simultaneous in-flight collaborator calls.
const DefaultConcurrency = 8

const noDataDetail = "no data from model"

// Extractor processes every PDF in a directory through the collaborator,
// persisting one record or one error artifact per document.
type Extractor struct {
	collab      Collaborator
	concurrency int
}

// New creates an Extractor. A non-positive concurrency falls back to the
// default of 8.
func New(collab Collaborator, concurrency int) *Extractor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Extractor{collab: collab, concurrency: concurrency}
}

// Run extracts financial data from every PDF in dir, writing outputs through
// rs. Every document is always attempted: a single document's failure never
// aborts its siblings. Only setup problems (bad directory) return an error.
func (e *Extractor) Run(ctx context.Context, dir string, rs store.RecordStore) (*model.ExtractionSummary, error) {
	pdfs, err := listPDFs(dir)
	if err != nil {
		return nil, err
	}

	zap.L().Info("starting extraction batch",
		zap.Int("files", len(pdfs)),
		zap.Int("concurrency", e.concurrency),
		zap.String("output_dir", rs.Dir()),
	)

	outcomes := make([]model.ExtractionOutcome, len(pdfs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, pdf := range pdfs {
		g.Go(func() error {
			outcomes[i] = e.processOne(gctx, pdf, rs)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	summary := &model.ExtractionSummary{TotalFiles: len(pdfs), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Status == model.ExtractionSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	zap.L().Info("extraction batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

func listPDFs(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: stat %s", dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("extractor: %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: read dir %s", dir)
	}

	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		pdfs = append(pdfs, filepath.Join(dir, entry.Name()))
	}
	return pdfs, nil
}

// processOne settles exactly one outcome for a document. All writes happen
// before the outcome is reported.
func (e *Extractor) processOne(ctx context.Context, pdfPath string, rs store.RecordStore) model.ExtractionOutcome {
	log := zap.L().With(zap.String("file", pdfPath))
	log.Info("processing report")

	raw, err := e.collab.ExtractFinancials(ctx, pdfPath)
	if err != nil {
		log.Error("collaborator call failed", zap.Error(err))
		return e.quarantine(ctx, rs, pdfPath, "", "unexpected error: "+err.Error(), err.Error())
	}

	if strings.TrimSpace(raw) == "" {
		log.Error("collaborator returned no data")
		return model.ExtractionOutcome{File: pdfPath, Status: model.ExtractionError, Detail: noDataDetail}
	}

	record, perr := parseRecord(raw)
	if perr != nil {
		log.Error("malformed model output", zap.Error(perr))
		return e.quarantine(ctx, rs, pdfPath, "", "malformed model output: "+perr.Error(), raw)
	}

	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		log.Error("marshal record failed", zap.Error(err))
		return e.quarantine(ctx, rs, pdfPath, "", "marshal record: "+err.Error(), err.Error())
	}

	periodEnd := ""
	if record.PeriodEndDate != nil {
		periodEnd = *record.PeriodEndDate
	}
	jsonName, _ := sanitize.OutputNames(periodEnd, filepath.Base(pdfPath))

	outPath, err := rs.Write(ctx, jsonName, data)
	if err != nil {
		log.Error("write record failed", zap.Error(err))
		return e.quarantine(ctx, rs, pdfPath, periodEnd, "write record: "+err.Error(), err.Error())
	}

	log.Info("record saved", zap.String("path", outPath))
	return model.ExtractionOutcome{
		File:       pdfPath,
		Status:     model.ExtractionSuccess,
		OutputPath: outPath,
		Record:     record,
	}
}

// quarantine writes a best-effort error artifact and reports the document as
// errored. Artifact write failures are logged, never propagated.
func (e *Extractor) quarantine(ctx context.Context, rs store.RecordStore, pdfPath, periodEnd, detail, text string) model.ExtractionOutcome {
	_, errName := sanitize.OutputNames(periodEnd, filepath.Base(pdfPath))

	outcome := model.ExtractionOutcome{File: pdfPath, Status: model.ExtractionError, Detail: detail}
	path, err := rs.WriteError(ctx, errName, text)
	if err != nil {
		zap.L().Error("failed to write error artifact",
			zap.String("file", pdfPath),
			zap.Error(err),
		)
		return outcome
	}
	outcome.ErrorFile = path
	return outcome
}

// parseRecord decodes the collaborator's response into a FinancialRecord.
// Anything that is not a JSON object matching the schema is malformed.
func parseRecord(raw string) (*model.FinancialRecord, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	var record model.FinancialRecord
	if err := dec.Decode(&record); err != nil {
		return nil, eris.Wrap(err, "decode record")
	}
	return &record, nil
}
