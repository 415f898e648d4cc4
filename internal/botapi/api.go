// Package botapi exposes the pipeline invocation boundary over HTTP.
package botapi

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/alertbot/internal/pipeline"
)

// errorBody is the fixed failure response. The boundary has exactly two
// outcomes: 200 "OK" when the cycle ran, 500 with this body when it
// could not complete.
const errorBody = "An error occurred while processing your request."

// PipelineService defines the business operation botapi needs.
type PipelineService interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    PipelineService
}

// New creates a new API handler.
func New(logger log.Logger, svc PipelineService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("pipeline service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/run", a.handleRun)
	})
}

// handleRun executes one pipeline cycle on demand. A cycle that ran but
// published nothing (or recovered a feed failure internally) is still a
// 200; only a cycle that could not complete maps to 500.
func (a *API) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Run(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "pipeline cycle failed")
		http.Error(w, errorBody, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("alertbot.run.id", res.ID),
		attribute.Int("alertbot.run.posted", res.Posted),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}
