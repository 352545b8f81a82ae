package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/reports"
	"github.com/MarcoPoloResearchLab/relief/internal/social"
	"go.uber.org/zap"
)

// Generic failure signals surfaced by mutating calls. Each wraps the underlying cause.
var (
	ErrCreateDisaster  = errors.New("apiclient: failed to create disaster")
	ErrUpdateDisaster  = errors.New("apiclient: failed to update disaster")
	ErrDeleteDisaster  = errors.New("apiclient: failed to delete disaster")
	ErrExtractLocation = errors.New("apiclient: failed to extract location")
	ErrVerifyImage     = errors.New("apiclient: failed to verify image")
	ErrCreateReport    = errors.New("apiclient: failed to create report")
)

const maxErrorBody = 512

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger used for fallback and failure reporting.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp fallback data.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// Client talks to the disaster-response backend. Each call is a single exchange with no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	clock      func() time.Time
}

// New creates a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type disasterListPayload struct {
	Disasters []json.RawMessage `json:"disasters"`
}

// ListDisasters fetches every disaster. On any failure it returns the fallback dataset instead.
// Individual records that cannot be decoded are skipped.
func (c *Client) ListDisasters(ctx context.Context) []disasters.Disaster {
	var payload disasterListPayload
	if err := c.doJSON(ctx, http.MethodGet, "/disasters", nil, &payload); err != nil {
		c.logger.Warn("disaster list unavailable, using fallback dataset", zap.Error(err))
		return disasters.Fallback(c.clock())
	}
	records := make([]disasters.Disaster, 0, len(payload.Disasters))
	for index, raw := range payload.Disasters {
		var record disasters.Disaster
		if err := json.Unmarshal(raw, &record); err != nil {
			c.logger.Warn("skipping undecodable disaster record", zap.Int("index", index), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records
}

// CreateDisaster posts a new record and returns the created copy.
func (c *Client) CreateDisaster(ctx context.Context, input disasters.Input) (disasters.Disaster, error) {
	var created disasters.Disaster
	if err := c.doJSON(ctx, http.MethodPost, "/disasters", input, &created); err != nil {
		return disasters.Disaster{}, c.fail(ErrCreateDisaster, err)
	}
	return created, nil
}

// UpdateDisaster replaces the editable fields of the record with the given id.
func (c *Client) UpdateDisaster(ctx context.Context, id string, input disasters.Input) (disasters.Disaster, error) {
	var updated disasters.Disaster
	if err := c.doJSON(ctx, http.MethodPut, "/disasters/"+url.PathEscape(id), input, &updated); err != nil {
		return disasters.Disaster{}, c.fail(ErrUpdateDisaster, err, zap.String("disaster_id", id))
	}
	return updated, nil
}

// DeleteDisaster removes the record with the given id.
func (c *Client) DeleteDisaster(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/disasters/"+url.PathEscape(id), nil, nil); err != nil {
		return c.fail(ErrDeleteDisaster, err, zap.String("disaster_id", id))
	}
	return nil
}

type extractLocationRequest struct {
	Description string `json:"description"`
}

type extractLocationResponse struct {
	LocationName string `json:"location_name"`
}

// ExtractLocation asks the backend to pull a location name out of free text.
func (c *Client) ExtractLocation(ctx context.Context, description string) (string, error) {
	var response extractLocationResponse
	if err := c.doJSON(ctx, http.MethodPost, "/geocoding/extract-location", extractLocationRequest{Description: description}, &response); err != nil {
		return "", c.fail(ErrExtractLocation, err)
	}
	return response.LocationName, nil
}

type verifyImageRequest struct {
	DisasterID string `json:"disasterId"`
	ImageURL   string `json:"imageUrl"`
}

// VerifyImage asks the backend to assess whether an image plausibly depicts the disaster.
func (c *Client) VerifyImage(ctx context.Context, disasterID, imageURL string) (reports.Verification, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/verification/verify-image", verifyImageRequest{DisasterID: disasterID, ImageURL: imageURL}, &raw); err != nil {
		return reports.Verification{}, c.fail(ErrVerifyImage, err, zap.String("disaster_id", disasterID))
	}
	var verification reports.Verification
	if err := json.Unmarshal(raw, &verification); err != nil {
		return reports.Verification{}, c.fail(ErrVerifyImage, err, zap.String("disaster_id", disasterID))
	}
	verification.Raw = raw
	return verification, nil
}

// CreateReport submits a field report and returns the backend's acknowledgement.
func (c *Client) CreateReport(ctx context.Context, submission reports.Submission) (json.RawMessage, error) {
	var created json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/reports", submission, &created); err != nil {
		return nil, c.fail(ErrCreateReport, err, zap.String("disaster_id", submission.DisasterID))
	}
	return created, nil
}

type socialPostsRequest struct {
	DisasterID string   `json:"disasterId"`
	Keywords   []string `json:"keywords"`
}

type socialPostsResponse struct {
	Posts []social.Post `json:"posts"`
}

// SocialPosts fetches categorized posts matching keywords. On any failure it returns fallback posts.
func (c *Client) SocialPosts(ctx context.Context, disasterID string, keywords []string) []social.Post {
	if len(keywords) == 0 {
		keywords = social.DefaultKeywords()
	}
	var response socialPostsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/social-media/posts", socialPostsRequest{DisasterID: disasterID, Keywords: keywords}, &response); err != nil {
		c.logger.Warn("social media feed unavailable, using fallback posts",
			zap.String("disaster_id", disasterID),
			zap.Strings("keywords", keywords),
			zap.Error(err))
		return social.Fallback(disasterID, c.clock())
	}
	if response.Posts == nil {
		return []social.Post{}
	}
	return response.Posts
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(payload)
		if len(bodyStr) > maxErrorBody {
			bodyStr = bodyStr[:maxErrorBody]
		}
		return &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	if dest == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) fail(signal, cause error, fields ...zap.Field) error {
	attrs := append([]zap.Field{zap.String("operation", signal.Error()), zap.Error(cause)}, fields...)
	c.logger.Error("backend call failed", attrs...)
	return fmt.Errorf("%w: %w", signal, cause)
}
