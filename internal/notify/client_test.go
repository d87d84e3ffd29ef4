package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testServiceID = "11111111-2222-4333-8444-555555555555"
	testSecret    = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	testAPIKey    = "testkey-" + testServiceID + "-" + testSecret

	otherServiceID = "99999999-8888-4777-8666-555555555555"
	otherSecret    = "ffffffff-0000-4111-8222-333333333333"
	otherAPIKey    = "otherkey-" + otherServiceID + "-" + otherSecret
)

type capturedRequest struct {
	path    string
	auth    string
	payload map[string]interface{}
}

func newTestClient(t *testing.T, status int, body string) (*Client, *capturedRequest, *httptest.Server) {
	t.Helper()

	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured.payload)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:   server.URL,
		APIKey:    testAPIKey,
		RateLimit: 1000,
	})
	require.NoError(t, err)

	return client, captured, server
}

func parseBearer(t *testing.T, header, secret string) jwt.MapClaims {
	t.Helper()

	require.True(t, strings.HasPrefix(header, "Bearer "))
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestNewClientRejectsMalformedKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://example.com", APIKey: "short"})
	assert.Error(t, err)

	_, err = NewClient(Config{
		BaseURL: "https://example.com",
		APIKey:  "testkey-not-a-uuid-at-all-not-a-uuid-at-all-x-" + testSecret,
	})
	assert.Error(t, err)
}

func TestSendEmailPayloadAndToken(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusCreated, `{}`)

	err := client.SendEmail(context.Background(), Email{
		To:              "a@example.com",
		TemplateID:      "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91",
		Personalisation: map[string]interface{}{"name": "Weather alerts"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/v2/notifications/email", captured.path)
	assert.Equal(t, "a@example.com", captured.payload["email_address"])
	assert.Equal(t, "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91", captured.payload["template_id"])

	claims := parseBearer(t, captured.auth, testSecret)
	assert.Equal(t, testServiceID, claims["iss"])
	iat, ok := claims["iat"].(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Unix(), int64(iat), 5)
}

func TestSendSMSPayload(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusCreated, `{}`)

	err := client.SendSMS(context.Background(), SMS{
		To:         "+15555550123",
		TemplateID: "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91",
	})

	require.NoError(t, err)
	assert.Equal(t, "/v2/notifications/sms", captured.path)
	assert.Equal(t, "+15555550123", captured.payload["phone_number"])
}

func TestSendBulkPayload(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusCreated, `{}`)

	err := client.SendBulk(context.Background(), Bulk{
		JobName:    "Bulk email",
		TemplateID: "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91",
		Rows: [][]interface{}{
			{"email address", "unsubscribe_link"},
			{"a@example.com", "https://example.com/unsubscribe/sub-a"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "/v2/notifications/bulk", captured.path)
	assert.Equal(t, "Bulk email", captured.payload["name"])

	rows, ok := captured.payload["rows"].([]interface{})
	require.True(t, ok)
	assert.Len(t, rows, 2)
}

func TestPerCallKeyOverride(t *testing.T) {
	client, captured, _ := newTestClient(t, http.StatusCreated, `{}`)

	err := client.SendEmail(context.Background(), Email{
		To:         "a@example.com",
		TemplateID: "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91",
		APIKey:     otherAPIKey,
	})

	require.NoError(t, err)
	claims := parseBearer(t, captured.auth, otherSecret)
	assert.Equal(t, otherServiceID, claims["iss"])
}

func TestProviderRejectionSurfacesAsAPIError(t *testing.T) {
	client, _, _ := newTestClient(t, http.StatusForbidden, `{"errors":[{"message":"Invalid token"}]}`)

	err := client.SendEmail(context.Background(), Email{
		To:         "a@example.com",
		TemplateID: "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91",
	})

	require.Error(t, err)
	assert.True(t, IsDispatchError(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Invalid token")
	assert.Equal(t, http.StatusForbidden, StatusCode(err, http.StatusBadGateway))
}

func TestTransportErrorSurfacesAsDispatchError(t *testing.T) {
	client, _, server := newTestClient(t, http.StatusCreated, `{}`)
	server.Close()

	err := client.SendEmail(context.Background(), Email{
		To:         "a@example.com",
		TemplateID: "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91",
	})

	require.Error(t, err)
	assert.True(t, IsDispatchError(err))

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err, http.StatusBadGateway))
}
