// Package directory resolves the workspace agent directory into route
// targets for the voice session engine. The directory is a plain HTTP
// service that lists the specialist agents registered for a workspace.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	voicesession "github.com/adastralabs/vox-core/core"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const defaultTimeout = 10 * time.Second

// AgentCard is one directory entry. Name and Description feed the
// routing tool, Metadata is passed through for display purposes.
type AgentCard struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Client queries an agent directory service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
					return operation + " " + r.URL.Path
				})),
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// AgentCards lists every agent registered in the directory.
func (c *Client) AgentCards(ctx context.Context) ([]AgentCard, error) {
	ctx, span := tracer.Start(ctx, "list agent cards")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/agents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent directory returned status %d", resp.StatusCode)
	}

	var cards []AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("failed to decode agent directory response: %w", err)
	}

	span.SetAttributes(attribute.Int("directory.agent_count", len(cards)))
	return cards, nil
}

// RouteTargets lists the agents the routing tool can hand a
// conversation to. Cards without a name or description cannot be
// offered to the model and are skipped.
func (c *Client) RouteTargets(ctx context.Context) ([]voicesession.RouteTarget, error) {
	cards, err := c.AgentCards(ctx)
	if err != nil {
		return nil, err
	}

	routable := make([]AgentCard, 0, len(cards))
	for _, card := range cards {
		if card.Name == "" || card.Description == "" {
			logger.Debug("Skipping agent without a routable card", "name", card.Name)
			continue
		}
		routable = append(routable, card)
	}

	var targets []voicesession.RouteTarget
	if len(routable) > 0 {
		copier.Copy(&targets, routable)
	}
	return targets, nil
}
