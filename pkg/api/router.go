package api

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report json names so messages match the request body
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// NewRouter wires the portal endpoints onto a chi router
func NewRouter(store db.Database, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(logger), middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Post("/context", handleContext(store, cfg, logger))
	r.Post("/submit", handleSubmit(store, cfg, logger))
	r.Post("/job-votes", handleJobVotes(store, cfg, logger))
	r.Get("/job-weather", handleJobWeather(store, logger))
	r.Post("/resolve", handleResolve(store, cfg, logger))

	r.Route("/assignments", func(r chi.Router) {
		r.Get("/", handleListAssignments(store, logger))
		r.Post("/submit", handleSubmitAssignment(store, logger))
		r.Post("/complete", handleCompleteAssignments(store, logger))
	})

	return r
}

// accessLog logs one line per request with zap
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
