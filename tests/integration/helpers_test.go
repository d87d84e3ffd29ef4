//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/cds-snc/list-manager/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type listOption func(map[string]interface{})

func withPayload(key string, value interface{}) listOption {
	return func(m map[string]interface{}) {
		m[key] = value
	}
}

// createTestList creates a list owned by serviceID and returns its id. The
// list is deleted (with its subscriptions) when the test finishes.
func createTestList(t *testing.T, client *testutil.Client, serviceID string, opts ...listOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"name":       "List " + uuid.NewString()[:8],
		"language":   "en",
		"service_id": serviceID,
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/list", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.ID)

	t.Cleanup(func() {
		resp, err := testClient.DELETE("/list/" + result.ID)
		if err == nil {
			_ = resp.Body.Close()
		}
	})

	return result.ID
}

// seedSubscription inserts a subscription row directly and returns its id.
func seedSubscription(t *testing.T, listID string, email, phone *string, confirmed bool) string {
	t.Helper()

	var id string
	err := testDB.QueryRow(context.Background(),
		`INSERT INTO subscriptions (email, phone, confirmed, list_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		email, phone, confirmed, listID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// countListSubscriptions counts stored rows for a list, confirmed or not.
func countListSubscriptions(t *testing.T, listID string) int {
	t.Helper()

	var n int
	err := testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM subscriptions WHERE list_id = $1`, listID,
	).Scan(&n)
	require.NoError(t, err)
	return n
}

func strptr(s string) *string { return &s }

// newServiceID returns a service id no other test shares, so count
// assertions see only this test's lists.
func newServiceID() string {
	return "svc-" + uuid.NewString()
}
