package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tank-risk/internal/assess"
	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/layers"
	"github.com/sells-group/tank-risk/internal/resilience"
	"github.com/sells-group/tank-risk/internal/sink"
)

var servePort int

// assessmentRequest is the body of POST /assessments. Empty fields fall back
// to config.
type assessmentRequest struct {
	Assets  string   `json:"assets"`
	Layers  []string `json:"layers"`
	Workers *int     `json:"workers"`
	// Write sends the result table to the configured outputs in addition to
	// returning it.
	Write bool `json:"write"`
}

type runFunc func(ctx context.Context, req assessmentRequest) (*assess.Report, error)

type server struct {
	catalog  *factor.Catalog
	registry *prometheus.Registry
	breaker  *resilience.CircuitBreaker
	run      runFunc
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the assessment HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initAssess(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		s := &server{
			catalog:  env.Catalog,
			registry: env.Registry,
			breaker:  env.Service.Breaker(),
			run: func(ctx context.Context, req assessmentRequest) (*assess.Report, error) {
				c := *cfg
				if req.Assets != "" {
					c.Assets.Layer = req.Assets
				}
				if req.Workers != nil {
					c.Workers = *req.Workers
				}
				e := *env
				if len(req.Layers) > 0 {
					e.Provider = layers.Static(req.Layers)
				}
				var out sink.Sink
				if req.Write {
					multi, err := buildSinks(&c, env.Pool, time.Now())
					if err != nil {
						return nil, err
					}
					out = multi
				}
				return runAssessment(ctx, &c, &e, out)
			},
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           s.routes(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func (s *server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/factors", s.handleFactors)
	r.Post("/assessments", s.handleAssess)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.breaker != nil {
		state := s.breaker.State()
		body["proximity"] = state.String()
		if state == resilience.CircuitOpen {
			body["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, body)
}

type factorView struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	ValueField    string   `json:"value_field"`
	SeverityField string   `json:"severity_field"`
	Required      []string `json:"required,omitempty"`
	Shared        bool     `json:"shared"`
}

func (s *server) handleFactors(w http.ResponseWriter, _ *http.Request) {
	defs := s.catalog.Definitions()
	out := make([]factorView, 0, len(defs))
	for _, d := range defs {
		out = append(out, factorView{
			Name:          d.Name,
			Kind:          d.Kind.String(),
			ValueField:    d.ValueField,
			SeverityField: d.SeverityField,
			Required:      d.Required,
			Shared:        d.Shared,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rep, err := s.run(r.Context(), req)
	if rep == nil {
		msg := "assessment failed"
		if err != nil {
			msg = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if err != nil {
		zap.L().Warn("assessment failed", zap.String("run_id", rep.RunID.String()), zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
