package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// DefaultTimeout bounds a single feed request when the caller sets no deadline
const DefaultTimeout = 30 * time.Second

// Config holds package feed settings
type Config struct {
	// BaseURL is the NuGet v3 flat container root, e.g. https://api.nuget.org/v3-flatcontainer
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
}

// Client lists package versions from a NuGet v3 flat container
type Client struct {
	config     Config
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     zerolog.Logger

	// Concurrent lookups of one package share a single feed request.
	inflight singleflight.Group
}

type versionIndex struct {
	Versions []string `json:"versions"`
}

// NewClient creates a new feed client
func NewClient(config Config, metrics *observability.Metrics, logger zerolog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: observability.TraceHTTPClient(&http.Client{Timeout: config.Timeout}, nil),
		metrics:    metrics,
		logger:     logger.With().Str("component", "feed").Logger(),
	}
}

// ListAvailableVersions returns every published version of a package. A package
// unknown to the feed yields an empty list. Versions that do not parse are skipped.
func (c *Client) ListAvailableVersions(ctx context.Context, packageID string) ([]models.PackageVersion, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, fmt.Errorf("package id is required")
	}

	// The shared fetch is detached from any single caller so one caller's
	// deadline does not fail the others; each caller still waits on its own ctx.
	ch := c.inflight.DoChan(strings.ToLower(packageID), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
		defer cancel()
		return c.fetchVersions(fetchCtx, packageID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	versions := res.Val.([]models.PackageVersion)
	out := make([]models.PackageVersion, len(versions))
	copy(out, versions)
	return out, nil
}

func (c *Client) fetchVersions(ctx context.Context, packageID string) ([]models.PackageVersion, error) {
	url := fmt.Sprintf("%s/%s/index.json", c.config.BaseURL, strings.ToLower(packageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordLookup("error")
		return nil, fmt.Errorf("failed to query feed for %s: %w", packageID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.recordLookup("not_found")
		return []models.PackageVersion{}, nil
	case resp.StatusCode != http.StatusOK:
		c.recordLookup("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed returned status %d for %s: %s", resp.StatusCode, packageID, strings.TrimSpace(string(body)))
	}

	var index versionIndex
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		c.recordLookup("error")
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}
	c.recordLookup("ok")

	versions := make([]models.PackageVersion, 0, len(index.Versions))
	for _, raw := range index.Versions {
		pv, err := models.NewPackageVersion(packageID, raw)
		if err != nil {
			c.logger.Debug().
				Str("package", packageID).
				Str("version", raw).
				Msg("Skipping unparsable package version")
			continue
		}
		versions = append(versions, pv)
	}

	return versions, nil
}

func (c *Client) recordLookup(status string) {
	if c.metrics != nil {
		c.metrics.RecordLookup("feed", status)
	}
}
