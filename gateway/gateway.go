package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/grafast-dev/grafast/bucket"
	"github.com/grafast-dev/grafast/gql"
	"github.com/grafast-dev/grafast/plan"
	"github.com/grafast-dev/grafast/telemetry"
)

// Gateway is the HTTP entry point serving one Engine over POST /graphql.
// Grounded on the teacher's gateway struct and ServeHTTP (gateway/gateway.go):
// the request/response envelope and method/decode checks are unchanged, but
// where the teacher then validated a federation SuperGraph's accessibility
// rules and handed the document to a PlannerV2/ExecutorV2 pair, this
// handler hands the raw query straight to an Engine, which owns parsing
// (accessibility included, see gql.InaccessibleFieldError), planning,
// optimizing, executing, and rendering.
type Gateway struct {
	engine         *Engine
	tracingEnabled bool
}

var _ http.Handler = (*Gateway)(nil)

// NewGateway builds a Gateway serving engine, tracing each request's
// pipeline when cfg enables it.
func NewGateway(engine *Engine, cfg Config) *Gateway {
	return &Gateway{engine: engine, tracingEnabled: cfg.Opentelemetry.Tracing.Enable}
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type graphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []graphQLError `json:"errors,omitempty"`
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx := r.Context()
	if g.tracingEnabled {
		var span trace.Span
		ctx, span = telemetry.StartStage(ctx, requestID, "request")
		defer span.End()
	}

	reqCx := &plan.RequestContext{Values: map[string]any{"requestID": requestID}}

	result, err := g.engine.Execute(ctx, Request{
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		Context:       reqCx,
	})

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		// Every error case renders as a normal GraphQL response (HTTP 200
		// with a populated "errors" array), per the GraphQL-over-HTTP spec:
		// only malformed requests (method, JSON body) are a transport error.
		json.NewEncoder(w).Encode(graphQLResponse{Errors: []graphQLError{errorPayload(err)}}) //nolint:errcheck
		return
	}

	resp := graphQLResponse{Data: result.Data}
	for _, fe := range result.Errors {
		resp.Errors = append(resp.Errors, graphQLError{
			Message:    fe.Message,
			Extensions: map[string]any{"path": fe.Path},
		})
	}
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// Start serves Gateway on port, blocking until ListenAndServe returns.
func (g *Gateway) Start(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), g)
}

func errorPayload(err error) graphQLError {
	var inaccessible *gql.InaccessibleFieldError
	if errors.As(err, &inaccessible) {
		return graphQLError{Message: err.Error(), Extensions: map[string]any{"code": "INACCESSIBLE_FIELD"}}
	}

	var validation *gql.ValidationError
	if errors.As(err, &validation) {
		return graphQLError{Message: err.Error(), Extensions: map[string]any{"code": "GRAPHQL_VALIDATION_FAILED"}}
	}

	var plannerErr *plan.PlannerError
	if errors.As(err, &plannerErr) {
		return graphQLError{Message: err.Error(), Extensions: map[string]any{"code": "PLANNING_FAILED", "path": plannerErr.Path}}
	}

	var execErr *bucket.ExecutionError
	if errors.As(err, &execErr) && bucket.IsSafe(execErr.Cause) {
		return graphQLError{Message: execErr.Cause.Error(), Extensions: map[string]any{"code": "EXECUTION_FAILED"}}
	}

	return graphQLError{Message: "internal error", Extensions: map[string]any{"code": "INTERNAL_ERROR"}}
}
