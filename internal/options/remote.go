package options

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/log"
)

// maxOptionsBody caps the size of one options response.
const maxOptionsBody = 4 << 20

// RemoteConfig configures the dimensions API client.
type RemoteConfig struct {
	BaseURL  string
	Token    string
	RetryMax int
	Timeout  time.Duration
	Logger   *log.Logger
}

// Remote reads options from the dimensions REST API:
// GET {base}/dimensions/{field}/options -> [{"code":..,"label":..}]
type Remote struct {
	baseURL *url.URL
	token   string
	client  *retryablehttp.Client
}

// NewRemote builds a client with retries on connection errors and 5xx.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("missing dimensions API base URL")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse dimensions API URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported dimensions API scheme %q", base.Scheme)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.Logger != nil {
		retryClient.Logger = cfg.Logger.WithComponent(log.ComponentOptions)
	} else {
		retryClient.Logger = nil
	}

	return &Remote{
		baseURL: base,
		token:   cfg.Token,
		client:  retryClient,
	}, nil
}

func (r *Remote) Options(ctx context.Context, field dimension.Field) ([]dimension.Option, error) {
	endpoint := r.baseURL.JoinPath("dimensions", string(field), "options")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build options request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s options: %w", field, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s options: unexpected status %d: %s", field, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var opts []dimension.Option
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOptionsBody)).Decode(&opts); err != nil {
		return nil, fmt.Errorf("decode %s options: %w", field, err)
	}
	return dedupe(opts), nil
}
