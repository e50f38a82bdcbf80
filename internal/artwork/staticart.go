package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/artfetch/internal/errors"
)

const (
	staticArtUserAgent = "artfetch/1.0"

	// staticArtMaxResponseBytes bounds dataset responses; item records are
	// tiny and anything larger indicates a misbehaving endpoint.
	staticArtMaxResponseBytes = 1 << 20
)

// staticArtItem is the dataset record served per item.
type staticArtItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// StaticArtProvider fetches artwork URLs from a pre-built static JSON
// dataset served over HTTP. Each item is a single small JSON document at a
// predictable path, so lookups are one GET with no search step.
type StaticArtProvider struct {
	endpoint string
	client   *http.Client
	debug    bool
}

// NewStaticArtProvider creates a provider backed by the dataset at endpoint.
func NewStaticArtProvider(endpoint string, debug bool) *StaticArtProvider {
	return &StaticArtProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		debug: debug,
	}
}

// Fetch retrieves the artwork record for itemID. A 404 from the dataset is a
// definitive "no artwork" answer, not a provider failure.
func (s *StaticArtProvider) Fetch(ctx context.Context, itemID, itemName string) (Artwork, error) {
	reqID := uuid.New().String()
	reqURL := fmt.Sprintf("%s/items/%s.json", s.endpoint, url.PathEscape(itemID))

	if s.debug {
		getLogger(true).Debug("Fetching artwork from static dataset",
			"request_id", reqID,
			"url", reqURL,
			"item_id", itemID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return Artwork{}, errors.New(err).
			Component("artwork").
			Category(errors.CategoryArtworkProvider).
			Context("provider", "staticart").
			Context("request_id", reqID).
			Build()
	}
	req.Header.Set("User-Agent", staticArtUserAgent)
	req.Header.Set("X-Request-Id", reqID)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Artwork{}, ErrFetchTimeout
		}
		return Artwork{}, errors.New(err).
			Component("artwork").
			Category(errors.CategoryNetwork).
			Context("provider", "staticart").
			Context("request_id", reqID).
			NetworkContext(reqURL, 0).
			Build()
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Artwork{}, ErrArtworkNotFound
	case resp.StatusCode != http.StatusOK:
		return Artwork{}, errors.Newf("static dataset returned status %d", resp.StatusCode).
			Component("artwork").
			Category(errors.CategoryNetwork).
			Context("provider", "staticart").
			Context("request_id", reqID).
			Context("status_code", resp.StatusCode).
			NetworkContext(reqURL, 0).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, staticArtMaxResponseBytes))
	if err != nil {
		return Artwork{}, errors.New(err).
			Component("artwork").
			Category(errors.CategoryNetwork).
			Context("provider", "staticart").
			Context("request_id", reqID).
			Build()
	}

	var item staticArtItem
	if err := json.Unmarshal(body, &item); err != nil {
		return Artwork{}, errors.New(err).
			Component("artwork").
			Category(errors.CategoryArtworkProvider).
			Context("provider", "staticart").
			Context("request_id", reqID).
			Context("operation", "decode_item").
			Build()
	}

	if item.ImageURL == "" {
		return Artwork{}, ErrArtworkNotFound
	}

	return Artwork{
		URL:      item.ImageURL,
		ItemID:   itemID,
		ItemName: itemName,
		Source:   "staticart",
	}, nil
}

// HealthCheck verifies the dataset endpoint is reachable.
func (s *StaticArtProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.endpoint+"/health", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", staticArtUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.New(err).
			Component("artwork").
			Category(errors.CategoryNetwork).
			Context("provider", "staticart").
			Context("operation", "health_check").
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Newf("static dataset health endpoint returned status %d", resp.StatusCode).
			Component("artwork").
			Category(errors.CategoryNetwork).
			Context("provider", "staticart").
			Context("operation", "health_check").
			Build()
	}
	return nil
}
