package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/planner"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
	"github.com/roouty-platform/dynamic-engine/pkg/metrics"
)

const routingTarget = "routing"

// the OSRM-compatible services all serve the car path regardless of
// the actual profile; the profile picks the backend instead
const routingPath = "route/v1/car"

const routingParams = "geometries=polyline&overview=false&generate_hints=false&continue_straight=false"

// RoutingClient resolves road travel legs through OSRM-compatible
// services, one backend per routing profile.
type RoutingClient struct {
	urls       map[domain.Profile]string
	httpClient *http.Client
	log        *logging.Logger
	metrics    *metrics.Metrics
}

// RoutingClientConfig configures the routing client
type RoutingClientConfig struct {
	// URLs maps each routing profile to its backend base URL
	URLs    map[domain.Profile]string
	Timeout time.Duration
}

func NewRoutingClient(config RoutingClientConfig, log *logging.Logger, m *metrics.Metrics) *RoutingClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &RoutingClient{
		urls:       config.URLs,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.WithComponent("routing_client"),
		metrics:    m,
	}
}

type osrmResponse struct {
	Routes []struct {
		Legs []struct {
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// Legs fetches the travel legs visiting the locations in order
func (c *RoutingClient) Legs(ctx context.Context, profile domain.Profile, locations []domain.Coordinate) ([]planner.RouteLeg, error) {
	baseURL, ok := c.urls[profile]
	if !ok {
		return nil, apperrors.ErrInternal("no routing backend for profile " + string(profile))
	}

	coords := make([]string, len(locations))
	for i, loc := range locations {
		coords[i] = strconv.FormatFloat(loc.Lng(), 'f', -1, 64) + "," + strconv.FormatFloat(loc.Lat(), 'f', -1, 64)
	}

	url := fmt.Sprintf("%s/%s/%s?%s", baseURL, routingPath, strings.Join(coords, ";"), routingParams)

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.ErrInternal("building routing request").Wrap(err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.ErrUpstream(routingTarget, 0, "").Wrap(err)
	}
	defer httpResp.Body.Close()

	c.observe(ctx, httpResp.StatusCode, start)

	if httpResp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrUpstream(routingTarget, httpResp.StatusCode, "")
	}

	var out osrmResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, apperrors.ErrUpstream(routingTarget, httpResp.StatusCode, "undecodable response").Wrap(err)
	}

	if len(out.Routes) == 0 {
		return nil, apperrors.ErrUpstream(routingTarget, httpResp.StatusCode, "no route found")
	}

	legs := make([]planner.RouteLeg, 0, len(out.Routes[0].Legs))
	for _, leg := range out.Routes[0].Legs {
		legs = append(legs, planner.RouteLeg{Duration: leg.Duration, Distance: leg.Distance})
	}

	return legs, nil
}

func (c *RoutingClient) observe(ctx context.Context, status int, start time.Time) {
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordUpstreamCall(routingTarget, status, duration)
	}
	c.log.UpstreamCall(ctx, routingTarget, status, duration, status == http.StatusOK)
}
