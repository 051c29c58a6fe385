package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
)

const pdfBody = "%PDF-1.4 fake report body"

func testOptions() Options {
	return Options{
		MaxAttempts:    3,
		Concurrency:    4,
		RateLimit:      1000,
		InitialBackoff: time.Millisecond,
	}
}

func pdfHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write([]byte(pdfBody))
}

func TestDownloadWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(pdfHandler))
	defer srv.Close()

	d := NewDownloader(testOptions())
	path := filepath.Join(t.TempDir(), "report.pdf")

	require.NoError(t, d.download(context.Background(), srv.URL, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(data))
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDownloader(testOptions())
	path := filepath.Join(t.TempDir(), "report.pdf")

	err := d.download(context.Background(), srv.URL, path)
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "a persistent 500 should use the full attempt budget")
	assert.NoFileExists(t, path)
}

func TestDownloadRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		pdfHandler(w, r)
	}))
	defer srv.Close()

	d := NewDownloader(testOptions())
	path := filepath.Join(t.TempDir(), "report.pdf")

	require.NoError(t, d.download(context.Background(), srv.URL, path))
	assert.EqualValues(t, 2, calls.Load())
	assert.FileExists(t, path)
}

func TestDownloadContentTypeMismatchNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>not a report</html>"))
	}))
	defer srv.Close()

	d := NewDownloader(testOptions())
	path := filepath.Join(t.TempDir(), "report.pdf")

	err := d.download(context.Background(), srv.URL, path)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "a wrong content type is not a retryable condition")
	assert.ErrorContains(t, err, "text/html")
	assert.NoFileExists(t, path)
}

func TestDownloadBatchSettlesEveryItem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/good.pdf", pdfHandler)
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	items := []model.ReportItem{
		{Details: "Interim Report Q1 2024", DownloadURL: srv.URL + "/good.pdf"},
		{Details: "Landing Page", DownloadURL: srv.URL + "/page"},
		{Details: "Dead Link", DownloadURL: srv.URL + "/broken"},
	}

	d := NewDownloader(testOptions())
	outDir := t.TempDir()

	summary, err := d.DownloadBatch(context.Background(), items, outDir)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)

	// Outcomes land in input order regardless of completion order.
	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, model.FetchWritten, summary.Outcomes[0].Status)
	assert.Equal(t, model.FetchSkipped, summary.Outcomes[1].Status)
	assert.Equal(t, model.FetchFailed, summary.Outcomes[2].Status)

	assert.FileExists(t, filepath.Join(outDir, "interim_report_q1_2024.pdf"))
	assert.NoFileExists(t, filepath.Join(outDir, "landing_page.pdf"))
}

func TestDownloadBatchCreatesOutputDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(pdfHandler))
	defer srv.Close()

	outDir := filepath.Join(t.TempDir(), "nested", "acme")
	items := []model.ReportItem{{Details: "Annual Report", DownloadURL: srv.URL}}

	d := NewDownloader(testOptions())
	summary, err := d.DownloadBatch(context.Background(), items, outDir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	assert.DirExists(t, outDir)
}

func TestPDFName(t *testing.T) {
	assert.Equal(t, "interim_report_q1_2024.pdf", PDFName("Interim Report Q1 2024"))
	assert.Equal(t, "unknown_report.pdf", PDFName("   "))
}
