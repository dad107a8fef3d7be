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
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/directory"
	"github.com/sells-group/campaign-engine/internal/engine"
	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/schedule"
	"github.com/sells-group/campaign-engine/internal/store"
)

// apiServer exposes the engine over HTTP.
type apiServer struct {
	eng *engine.Engine
	dir *directory.Static
}

func newRouter(s *apiServer) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/campaigns", s.handleCreate)
	r.Get("/campaigns/{id}", s.handleStatus)
	r.Post("/campaigns/{id}/responses", s.handleResponse)

	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	for _, t := range req.Tiers {
		s.dir.Ensure(t.ID, t.Available)
	}

	c, err := s.eng.CreateCampaign(r.Context(), req)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRequest) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		zap.L().Error("campaign create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "campaign creation failed")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.eng.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		zap.L().Error("campaign status failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleResponse(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.eng.RecordResponse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		zap.L().Error("record response failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "response recording failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the campaign API server and checkpoint monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		dir := directory.NewStatic(nil)
		eng := engine.New(st, dir, newDispatcher(), engineConfig())

		checker := schedule.NewChecker(eng, time.Duration(cfg.Engine.CheckIntervalSecs)*time.Second)
		go checker.Run(ctx)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(&apiServer{eng: eng, dir: dir}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("server listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
