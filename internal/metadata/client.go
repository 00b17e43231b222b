package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// DefaultPath is the metadata document served by deployed applications
const DefaultPath = "applicationmetadata.json"

// Config holds metadata client settings
type Config struct {
	Path    string
	Timeout time.Duration
}

// Client reads the deployed version from a target's metadata endpoint
type Client struct {
	config     Config
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

type applicationMetadata struct {
	PackageID       string `json:"packageId"`
	SemanticVersion string `json:"semanticVersion"`
}

// NewClient creates a new metadata client
func NewClient(config Config, metrics *observability.Metrics, logger zerolog.Logger) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}

	httpClient := &http.Client{}
	if config.Timeout > 0 {
		httpClient.Timeout = config.Timeout
	}

	return &Client{
		config:     config,
		httpClient: observability.TraceHTTPClient(httpClient, nil),
		metrics:    metrics,
		logger:     logger.With().Str("component", "metadata").Logger(),
	}
}

// GetDeployedVersion fetches what the target reports it is running. Missing or
// unparsable fields produce a DeployedVersion that is not Known rather than an error.
func (c *Client) GetDeployedVersion(ctx context.Context, target models.DeploymentTarget) (*models.DeployedVersion, error) {
	if !target.HasURL() {
		return nil, fmt.Errorf("target %s has no url", target.ID)
	}

	url := strings.TrimRight(strings.TrimSpace(target.URL), "/") + "/" + strings.TrimLeft(c.config.Path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordLookup("error")
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", target.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordLookup("error")
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("metadata endpoint for %s returned status %d", target.ID, resp.StatusCode)
	}

	var doc applicationMetadata
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		c.recordLookup("error")
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", target.ID, err)
	}
	c.recordLookup("ok")

	deployed := &models.DeployedVersion{
		TargetID:  target.ID,
		PackageID: strings.TrimSpace(doc.PackageID),
	}

	if doc.SemanticVersion != "" {
		v, err := models.ParseVersion(doc.SemanticVersion)
		if err != nil {
			c.logger.Warn().
				Str("target_id", target.ID).
				Str("version", doc.SemanticVersion).
				Msg("Target reported an unparsable version")
		} else {
			deployed.Version = &v
		}
	}

	return deployed, nil
}

func (c *Client) recordLookup(status string) {
	if c.metrics != nil {
		c.metrics.RecordLookup("metadata", status)
	}
}
