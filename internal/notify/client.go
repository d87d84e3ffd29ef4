// Package notify is the client for the notification provider. It exposes the
// two capabilities the core needs: send one message (email or SMS) and send a
// bulk job. Provider failures surface as dispatch errors; no retry layer
// exists here, retries are caller policy.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cds-snc/list-manager/internal/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 10

	emailPath = "/v2/notifications/email"
	smsPath   = "/v2/notifications/sms"
	bulkPath  = "/v2/notifications/bulk"
)

// Config holds notification client configuration.
type Config struct {
	BaseURL string
	// APIKey is the default provider key, "name-<service uuid>-<secret uuid>".
	// Individual calls may override it.
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second across all calls
}

// Client talks to the notification provider over HTTPS.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a notification client. The default API key must parse;
// per-call override keys are parsed when used.
func NewClient(config Config) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}

	if _, _, err := splitAPIKey(config.APIKey); err != nil {
		return nil, fmt.Errorf("notify client: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Email is a single email notification.
type Email struct {
	To              string
	TemplateID      string
	Personalisation map[string]interface{}
	APIKey          string // optional override
}

// SMS is a single text-message notification.
type SMS struct {
	To              string
	TemplateID      string
	Personalisation map[string]interface{}
	APIKey          string // optional override
}

// Bulk is one provider bulk-send job: a header row followed by up to
// recipient-limit data rows.
type Bulk struct {
	JobName    string
	TemplateID string
	Rows       [][]interface{}
	APIKey     string // optional override
}

// SendEmail sends a single email notification.
func (c *Client) SendEmail(ctx context.Context, in Email) error {
	payload := map[string]interface{}{
		"email_address":   in.To,
		"template_id":     in.TemplateID,
		"personalisation": in.Personalisation,
	}
	return c.post(ctx, "email", emailPath, in.APIKey, payload)
}

// SendSMS sends a single text-message notification.
func (c *Client) SendSMS(ctx context.Context, in SMS) error {
	payload := map[string]interface{}{
		"phone_number":    in.To,
		"template_id":     in.TemplateID,
		"personalisation": in.Personalisation,
	}
	return c.post(ctx, "sms", smsPath, in.APIKey, payload)
}

// SendBulk submits one bulk job.
func (c *Client) SendBulk(ctx context.Context, in Bulk) error {
	payload := map[string]interface{}{
		"name":        in.JobName,
		"template_id": in.TemplateID,
		"rows":        in.Rows,
	}
	return c.post(ctx, "bulk", bulkPath, in.APIKey, payload)
}

func (c *Client) post(ctx context.Context, kind, path, apiKey string, payload interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Err: err}
	}

	token, err := c.bearerToken(apiKey)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NotifyRequests.WithLabelValues(kind, "transport_error").Inc()
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			respBody = []byte(fmt.Sprintf("unreadable body: %v", readErr))
		}
		metrics.NotifyRequests.WithLabelValues(kind, "api_error").Inc()
		slog.Error("notification provider rejected request",
			"kind", kind,
			"status", resp.StatusCode,
		)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	metrics.NotifyRequests.WithLabelValues(kind, "success").Inc()
	return nil
}

// bearerToken signs a short-lived token from the API key, the way the
// provider's official clients authenticate: HS256 over {iss: service id,
// iat: now}, keyed by the secret embedded in the key.
func (c *Client) bearerToken(override string) (string, error) {
	key := c.config.APIKey
	if override != "" {
		key = override
	}

	serviceID, secret, err := splitAPIKey(key)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": serviceID,
		"iat": time.Now().Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}
	return signed, nil
}

// splitAPIKey extracts the service id and signing secret from a provider API
// key. The key ends with two 36-character UUIDs: <name>-<service id>-<secret>.
func splitAPIKey(key string) (serviceID, secret string, err error) {
	if len(key) < 74 {
		return "", "", fmt.Errorf("api key is too short")
	}

	serviceID = key[len(key)-73 : len(key)-37]
	secret = key[len(key)-36:]

	if _, err := uuid.Parse(serviceID); err != nil {
		return "", "", fmt.Errorf("api key service id is malformed")
	}
	if _, err := uuid.Parse(secret); err != nil {
		return "", "", fmt.Errorf("api key secret is malformed")
	}

	return serviceID, secret, nil
}
