package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookwise/bookwise/internal/domain"
	"github.com/bookwise/bookwise/internal/errors"
	"github.com/bookwise/bookwise/internal/ratelimit"
)

// Default lookup throttle: 1 request per second per source, burst of 3.
const (
	defaultRPS   = 1.0
	defaultBurst = 3
)

// Fetcher retrieves raw volume records by id.
type Fetcher interface {
	Volume(ctx context.Context, volumeID string) (*Volume, error)
}

// Client adapts a Fetcher into normalized book input. It satisfies the
// library service's catalog collaborator contract.
type Client struct {
	fetcher Fetcher
	source  string
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit overrides the lookup throttle.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = ratelimit.New(rps, burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the named source.
func New(source string, fetcher Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher: fetcher,
		source:  source,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDetails looks up a volume and converts it to book input.
func (c *Client) GetDetails(ctx context.Context, volumeID string) (domain.BookInput, error) {
	volumeID = strings.TrimSpace(volumeID)
	if volumeID == "" {
		return domain.BookInput{}, errors.Validation("volume id is required")
	}

	if !c.limiter.Allow(c.source) {
		c.logger.Debug("catalog lookup throttled", "source", c.source, "volume_id", volumeID)
		if err := c.limiter.Wait(ctx, c.source); err != nil {
			return domain.BookInput{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	c.logger.Debug("catalog lookup", "source", c.source, "volume_id", volumeID)

	volume, err := c.fetcher.Volume(ctx, volumeID)
	if err != nil {
		return domain.BookInput{}, fmt.Errorf("%s volume %s: %w", c.source, volumeID, err)
	}
	if volume.ID == "" {
		volume.ID = volumeID
	}
	return ToBookInput(volume), nil
}

// DirFetcher reads volumes from <dir>/<volumeID>.json files, the layout of a
// saved catalog export.
type DirFetcher struct {
	Dir string
}

// Volume implements Fetcher.
func (f DirFetcher) Volume(ctx context.Context, volumeID string) (*Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(volumeID, `/\`) || volumeID == ".." {
		return nil, errors.Validationf("invalid volume id %q", volumeID)
	}
	return ReadVolumeFile(filepath.Join(f.Dir, volumeID+".json"))
}

// ReadVolumeFile decodes a single volume record from disk.
func ReadVolumeFile(path string) (*Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("volume file %s", path)
		}
		return nil, errors.Storage(err, "read volume file")
	}

	var v Volume
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Corrupt(err, "decode volume file")
	}
	return &v, nil
}
