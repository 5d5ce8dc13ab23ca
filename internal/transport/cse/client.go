// Package cse is an ExternalSearch backed by the Google Custom Search JSON API.
package cse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

// DefaultBaseURL is the public Custom Search endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// maxNum is the provider's page size limit.
const maxNum = 10

const maxErrorBody = 4 << 10

// Config holds the provider settings.
type Config struct {
	APIKey     string
	EngineID   string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the Custom Search API.
type Client struct {
	apiKey   string
	engineID string
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a Custom Search client. Missing credentials are
// reported per call, not here.
func NewClient(cfg *Config) *Client {
	c := &Client{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  cfg.BaseURL,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type response struct {
	Items []item `json:"items"`
}

type item struct {
	Title   string                      `json:"title"`
	Link    string                      `json:"link"`
	Snippet string                      `json:"snippet"`
	PageMap map[string][]map[string]any `json:"pagemap"`
}

// Search runs one provider query. Failures are *domain.RetrievalError.
func (c *Client) Search(
	ctx context.Context, query string, params domretrieval.Params,
) ([]candidate.Document, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, domain.NewRetrievalError(domain.RetrievalMissingCredentials, 0, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(query, params), http.NoBody)
	if err != nil {
		return nil, domain.NewRetrievalError(domain.RetrievalUpstream, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Search provider rejected request",
			zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return nil, domain.NewRetrievalError(kindForStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("%s", http.StatusText(resp.StatusCode)))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.NewRetrievalError(domain.RetrievalUpstream, resp.StatusCode,
			fmt.Errorf("decode response: %w", err))
	}

	docs := make([]candidate.Document, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it.Link == "" {
			continue
		}
		docs = append(docs, candidate.New(it.Link, it.Title, it.Snippet, markupFromPageMap(it.PageMap)))
	}
	return docs, nil
}

// HealthCheck reports whether credentials are configured. It never spends quota.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.apiKey == "" || c.engineID == "" {
		return domain.ErrMissingCredentials
	}
	return nil
}

func (c *Client) requestURL(query string, params domretrieval.Params) string {
	v := url.Values{}
	v.Set("key", c.apiKey)
	v.Set("cx", c.engineID)
	v.Set("q", query)
	num := params.Num
	if num <= 0 || num > maxNum {
		num = maxNum
	}
	v.Set("num", strconv.Itoa(num))
	if params.Lang != "" {
		v.Set("lr", params.Lang)
	}
	return c.baseURL + "?" + v.Encode()
}

func kindForStatus(status int) domain.RetrievalErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.RetrievalRateLimited
	case status == http.StatusForbidden:
		// Daily quota exhaustion is reported as 403 dailyLimitExceeded.
		return domain.RetrievalRateLimited
	case status == http.StatusUnauthorized || status == http.StatusBadRequest:
		// An invalid API key is reported as 400 keyInvalid.
		return domain.RetrievalMissingCredentials
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return domain.RetrievalTimeout
	default:
		return domain.RetrievalUpstream
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewRetrievalError(domain.RetrievalTimeout, 0, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return domain.NewRetrievalError(domain.RetrievalTimeout, 0, err)
	}
	return domain.NewRetrievalError(domain.RetrievalUpstream, 0, err)
}
