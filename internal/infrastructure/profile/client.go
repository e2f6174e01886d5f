// Package profile talks to the third-party profile store that mirrors
// contact names and emails.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/infrastructure/config"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxDetailBytes = 1024

// Settings configures the HTTP client
type Settings struct {
	BaseURL string        `validate:"required,url"`
	Token   string        `validate:"omitempty"`
	Timeout time.Duration `validate:"gt=0"`
}

// SettingsFromConfig extracts client settings from the application config
func SettingsFromConfig(cfg config.ProfileClientConfig) Settings {
	return Settings{BaseURL: cfg.BaseURL, Token: cfg.Token, Timeout: cfg.Timeout}
}

// HTTPClient implements propagation.ProfileClient over HTTP.
// Each update is a PUT of the field map to {base_url}/profiles/{ref}.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPClient validates settings and builds a traced HTTP client
func NewHTTPClient(s Settings, logger *zap.Logger) (*HTTPClient, error) {
	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid profile client settings: %w", err)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(s.BaseURL, "/"),
		token:   s.Token,
		http: &http.Client{
			Timeout:   s.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

// SetProfileFields sets fields on the external profile identified by externalRef
func (c *HTTPClient) SetProfileFields(ctx context.Context, externalRef string, fields propagation.ProfileUpdate) (bool, string, error) {
	if externalRef == "" {
		return false, "external profile reference is empty", nil
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return false, "", fmt.Errorf("encode profile update: %w", err)
	}

	endpoint := c.baseURL + "/profiles/" + url.PathEscape(externalRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("profile store request failed: %w", err)
	}
	defer resp.Body.Close()

	detail := readDetail(resp.Body)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, "", nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Warn("Profile store rejected update",
			zap.String("external_ref", externalRef),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		if detail == "" {
			detail = resp.Status
		}
		return false, detail, nil
	default:
		return false, "", fmt.Errorf("profile store returned %s: %s", resp.Status, detail)
	}
}

func readDetail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxDetailBytes))
	return strings.TrimSpace(string(b))
}

// NoopClient accepts every update without contacting anything. It is used
// when the profile store integration is disabled.
type NoopClient struct{}

// SetProfileFields always succeeds
func (NoopClient) SetProfileFields(context.Context, string, propagation.ProfileUpdate) (bool, string, error) {
	return true, "", nil
}

// New returns the client selected by configuration
func New(cfg config.ProfileClientConfig, logger *zap.Logger) (propagation.ProfileClient, error) {
	if !cfg.Enabled {
		logger.Info("Profile store integration disabled, using no-op client")
		return NoopClient{}, nil
	}
	return NewHTTPClient(SettingsFromConfig(cfg), logger)
}

var (
	_ propagation.ProfileClient = (*HTTPClient)(nil)
	_ propagation.ProfileClient = NoopClient{}
)
