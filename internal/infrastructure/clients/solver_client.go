// Package clients holds the HTTP clients for the engine's upstreams:
// the VRP solver and the road routing services.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
	"github.com/roouty-platform/dynamic-engine/pkg/metrics"
	"github.com/roouty-platform/dynamic-engine/pkg/resilience"
)

const solverTarget = "vroouty"

// SolverClient talks to the VROOUTY optimization service
type SolverClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	log        *logging.Logger
	metrics    *metrics.Metrics
}

// SolverClientConfig configures the solver client
type SolverClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewSolverClient(config SolverClientConfig, log *logging.Logger, m *metrics.Metrics) *SolverClient {
	timeout := config.Timeout
	if timeout == 0 {
		// a single optimization round trip can take minutes on large days
		timeout = 5 * time.Minute
	}

	return &SolverClient{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(solverTarget), log.Logger),
		log:        log.WithComponent("solver_client"),
		metrics:    m,
	}
}

// Solve posts one optimization request and decodes the assignment
func (c *SolverClient) Solve(ctx context.Context, req *vrp.Request) (*vrp.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.ErrInternal("encoding solver request").Wrap(err)
	}

	start := time.Now()

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, apperrors.ErrInternal("building solver request").Wrap(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, apperrors.ErrUpstream(solverTarget, 0, "").Wrap(err)
		}
		defer httpResp.Body.Close()

		payload, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, apperrors.ErrUpstream(solverTarget, httpResp.StatusCode, "").Wrap(err)
		}

		c.observe(ctx, httpResp.StatusCode, start)

		if httpResp.StatusCode != http.StatusOK {
			return nil, apperrors.ErrUpstream(solverTarget, httpResp.StatusCode, string(payload))
		}

		var out vrp.Response
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, apperrors.ErrUpstream(solverTarget, httpResp.StatusCode, "undecodable response").Wrap(err)
		}

		return &out, nil
	})
	if err != nil {
		c.log.WithError(err).Error("solver call failed",
			"jobs", len(req.Jobs), "shipments", len(req.Shipments), "vehicles", len(req.Vehicles))
		return nil, err
	}

	resp := result.(*vrp.Response)
	c.log.Debug("solver call complete",
		"routes", len(resp.Routes), "unassigned", len(resp.Unassigned),
		"duration_ms", time.Since(start).Milliseconds())

	return resp, nil
}

func (c *SolverClient) observe(ctx context.Context, status int, start time.Time) {
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordUpstreamCall(solverTarget, status, duration)
	}
	c.log.UpstreamCall(ctx, solverTarget, status, duration, status == http.StatusOK)
}

// State exposes the breaker state for readiness reporting
func (c *SolverClient) State() string {
	return fmt.Sprintf("%v", c.breaker.State())
}
