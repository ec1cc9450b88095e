// Package api exposes the engine's public operations over HTTP. It is a
// thin caller: all execution semantics live in the engine, and this layer
// only decodes requests, serializes state, and serializes concurrent runs
// per pipeline instance.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stepline-labs/stepline-go/internal/assembly"
	"github.com/stepline-labs/stepline-go/internal/engine"
	"github.com/stepline-labs/stepline-go/internal/platform/httpserver"
	"github.com/stepline-labs/stepline-go/internal/registry"
	"github.com/stepline-labs/stepline-go/internal/repo"
)

type API struct {
	logger    *slog.Logger
	builder   *assembly.Builder
	pipelines *registry.Registry
	store     repo.StateRepository

	mu   sync.Mutex
	defs map[string]assembly.Definition
	runs map[string]*sync.Mutex
}

func New(logger *slog.Logger, builder *assembly.Builder, pipelines *registry.Registry, store repo.StateRepository) *API {
	return &API{
		logger:    logger,
		builder:   builder,
		pipelines: pipelines,
		store:     store,
		defs:      map[string]assembly.Definition{},
		runs:      map[string]*sync.Mutex{},
	}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/pipelines", a.handleCreatePipeline)
	mux.HandleFunc("GET /v1/pipelines", a.handleListPipelines)
	mux.HandleFunc("GET /v1/pipelines/{pipeline_id}", a.handleGetPipeline)
	mux.HandleFunc("POST /v1/pipelines/{pipeline_id}/run", a.handleRunPipeline)
	mux.HandleFunc("POST /v1/pipelines/{pipeline_id}/steps/{step_name}/retry", a.handleRetryStep)
}

type createPipelineRequest struct {
	Definition string `json:"definition"`
}

type createPipelineResponse struct {
	PipelineID string   `json:"pipeline_id"`
	Name       string   `json:"name"`
	Steps      []string `json:"steps"`
}

func (a *API) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req createPipelineRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	def, err := assembly.Parse([]byte(req.Definition))
	if err != nil {
		a.logger.Warn("invalid pipeline definition", "error", err)
		a.writeError(w, r, http.StatusUnprocessableEntity, "invalid_definition")
		return
	}
	pipeline, err := a.builder.Pipeline(def, engine.WithRepository(a.store), engine.WithLogger(a.logger))
	if err != nil {
		a.logger.Warn("pipeline assembly failed", "pipeline", def.Name, "error", err)
		a.writeError(w, r, http.StatusUnprocessableEntity, "assembly_failed")
		return
	}
	a.pipelines.Put(pipeline)
	a.mu.Lock()
	a.defs[pipeline.ID()] = def
	a.runs[pipeline.ID()] = &sync.Mutex{}
	a.mu.Unlock()

	stepNames := make([]string, 0, len(def.Steps))
	for _, s := range def.Steps {
		stepNames = append(stepNames, s.Name)
	}
	a.logger.Info("pipeline created", "pipeline_id", pipeline.ID(), "name", def.Name)
	httpserver.WriteJSON(w, http.StatusCreated, createPipelineResponse{
		PipelineID: pipeline.ID(),
		Name:       def.Name,
		Steps:      stepNames,
	})
}

func (a *API) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{
		"pipelines": a.pipelines.IDs(),
	})
}

func (a *API) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if pipeline, ok := a.pipelines.Get(id); ok {
		httpserver.WriteJSON(w, http.StatusOK, pipeline.Inspector().Dump())
		return
	}
	// Fall back to persisted state for pipelines from earlier processes.
	if a.store != nil {
		state, err := a.store.Load(r.Context(), id)
		if err == nil {
			httpserver.WriteJSON(w, http.StatusOK, engine.NewInspector(state).Dump())
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			a.logger.Error("load pipeline state", "pipeline_id", id, "error", err)
			a.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
	}
	a.writeError(w, r, http.StatusNotFound, "pipeline_not_found")
}

type runPipelineRequest struct {
	Initial map[string]any `json:"initial,omitempty"`
}

func (a *API) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	pipeline, ok := a.pipelines.Get(id)
	if !ok {
		a.writeError(w, r, http.StatusNotFound, "pipeline_not_found")
		return
	}
	var req runPipelineRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}

	a.mu.Lock()
	def := a.defs[id]
	lock := a.runs[id]
	a.mu.Unlock()
	if err := def.ValidateInitial(req.Initial); err != nil {
		a.logger.Warn("initial context rejected", "pipeline_id", id, "error", err)
		a.writeError(w, r, http.StatusUnprocessableEntity, "invalid_initial_context")
		return
	}

	// The engine requires single-owner access per run.
	lock.Lock()
	inspector, err := pipeline.Run(r.Context(), req.Initial)
	lock.Unlock()
	if err != nil {
		var execErr *engine.ExecutionError
		if errors.As(err, &execErr) {
			httpserver.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": "pipeline_failed",
				"state": pipeline.Inspector().Dump(),
			})
			return
		}
		a.logger.Error("pipeline run failed", "pipeline_id", id, "error", err)
		a.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, inspector.Dump())
}

type retryStepRequest struct {
	MaxAttempts int     `json:"max_attempts,omitempty"`
	Delay       string  `json:"delay,omitempty"`
	Multiplier  float64 `json:"multiplier,omitempty"`
}

func (a *API) handleRetryStep(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	stepName := strings.TrimSpace(r.PathValue("step_name"))
	pipeline, ok := a.pipelines.Get(id)
	if !ok {
		a.writeError(w, r, http.StatusNotFound, "pipeline_not_found")
		return
	}
	var req retryStepRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	policy, err := a.retryPolicy(id, req)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid_retry_policy")
		return
	}

	a.mu.Lock()
	lock := a.runs[id]
	a.mu.Unlock()

	lock.Lock()
	retryErr := pipeline.RetryStep(r.Context(), stepName, policy)
	lock.Unlock()
	if retryErr != nil {
		var notFound *engine.StepNotFoundError
		if errors.As(retryErr, &notFound) {
			a.writeError(w, r, http.StatusNotFound, "step_not_found")
			return
		}
		var stepErr *engine.StepError
		if errors.As(retryErr, &stepErr) {
			httpserver.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": "step_failed",
				"state": pipeline.Inspector().Dump(),
			})
			return
		}
		a.logger.Error("step retry failed", "pipeline_id", id, "step", stepName, "error", retryErr)
		a.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, pipeline.Inspector().Dump())
}

// retryPolicy merges the request override with the pipeline definition's
// retry section; a fully empty request falls through to the definition (or
// the engine default when the definition has none).
func (a *API) retryPolicy(pipelineID string, req retryStepRequest) (*engine.Policy, error) {
	a.mu.Lock()
	def := a.defs[pipelineID]
	a.mu.Unlock()

	policy := def.Retry.Policy()
	if req.MaxAttempts > 0 {
		policy.MaxAttempts = req.MaxAttempts
	}
	if req.Delay != "" {
		delay, err := time.ParseDuration(req.Delay)
		if err != nil || delay < 0 {
			return nil, errors.New("invalid delay")
		}
		policy.Delay = delay
	}
	if req.Multiplier > 0 {
		policy.Multiplier = req.Multiplier
	}
	return &policy, nil
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	httpserver.WriteJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func decodeJSON(body io.Reader, out any) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
