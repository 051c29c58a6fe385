package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpe-analytics/quarterlies-cli/internal/jobs"
	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the job API server",
	Long:  "Exposes pipeline runs as observable jobs: submit a run, poll its status, retrieve the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, closeCollab, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer closeCollab() //nolint:errcheck

		js, err := initJobStore(ctx)
		if err != nil {
			return err
		}
		defer js.Close() //nolint:errcheck

		mgr := jobs.NewManager(js)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedOrigins: []string{"*"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/jobs/run/{company}", func(w http.ResponseWriter, req *http.Request) {
			company := chi.URLParam(req, "company")
			if company == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "company is required"})
				return
			}

			// The job outlives the request; it is bound to the server's
			// lifecycle, not the request's.
			job, err := mgr.Submit(ctx, "run", company, func(jctx context.Context) (*model.RunResult, error) {
				return p.Run(jctx, company)
			})
			if err != nil {
				zap.L().Error("job submission failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}

			writeJSON(w, http.StatusAccepted, job)
		})

		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			job, err := mgr.Get(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, job)
		})

		r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
			filter := store.JobFilter{
				Status:  model.JobStatus(req.URL.Query().Get("status")),
				Company: req.URL.Query().Get("company"),
				Limit:   100,
			}
			list, err := mgr.List(req.Context(), filter)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"jobs": list})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("job API listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve")
		}

		mgr.Wait()
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
