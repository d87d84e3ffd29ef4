//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/cds-snc/list-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribe(t *testing.T, listID string, payload map[string]interface{}) string {
	t.Helper()

	payload["list_id"] = listID
	resp, err := newAnonymousClient().POST("/subscription", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.ID)
	return result.ID
}

func subscriptionConfirmed(t *testing.T, id string) bool {
	t.Helper()

	var confirmed bool
	err := testDB.QueryRow(context.Background(),
		`SELECT confirmed FROM subscriptions WHERE id = $1`, id,
	).Scan(&confirmed)
	require.NoError(t, err)
	return confirmed
}

func TestSubscribeStoresUnconfirmedRow(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())

	id := subscribe(t, listID, map[string]interface{}{"email": "a@example.com"})

	assert.False(t, subscriptionConfirmed(t, id))
	assert.Equal(t, 1, countListSubscriptions(t, listID))
}

func TestSubscribeTwiceReusesRow(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())

	first := subscribe(t, listID, map[string]interface{}{"email": "a@example.com"})
	second := subscribe(t, listID, map[string]interface{}{"email": "a@example.com"})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, countListSubscriptions(t, listID))

	// A different address on the same list is a new row.
	third := subscribe(t, listID, map[string]interface{}{"email": "b@example.com"})
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, countListSubscriptions(t, listID))
}

func TestSubscribeRedirect(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID(),
		withPayload("subscribe_redirect_url", "https://example.com/thanks"))

	resp, err := newAnonymousClient().POST("/subscription", map[string]interface{}{
		"list_id": listID,
		"email":   "a@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/thanks", resp.Header.Get("Location"))
	_ = resp.Body.Close()
}

func TestConfirmFlipsFlag(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())
	id := subscribe(t, listID, map[string]interface{}{"email": "a@example.com"})

	resp, err := newAnonymousClient().GET("/subscription/" + id + "/confirm")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.True(t, subscriptionConfirmed(t, id))
}

func TestUnsubscribeDeletesRow(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())
	id := subscribe(t, listID, map[string]interface{}{"phone": "+15555550123"})

	resp, err := newAnonymousClient().GET("/unsubscribe/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 0, countListSubscriptions(t, listID))

	// A second attempt finds nothing.
	resp, err = newAnonymousClient().GET("/unsubscribe/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestImportSetDifference(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())
	seedSubscription(t, listID, strptr("a@example.com"), nil, true)

	resp, err := testClient.POST("/list/"+listID+"/import", map[string]interface{}{
		"email": []string{"a@example.com", "b@example.com", "c@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Only the two new addresses were inserted, pre-confirmed.
	assert.Equal(t, 3, countListSubscriptions(t, listID))

	var confirmed int
	err = testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM subscriptions WHERE list_id = $1 AND confirmed`, listID,
	).Scan(&confirmed)
	require.NoError(t, err)
	assert.Equal(t, 3, confirmed)
}

func TestLegacyImport(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())

	resp, err := testClient.POST("/listimport", map[string]interface{}{
		"list_id": listID,
		"emails":  []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 2, countListSubscriptions(t, listID))
}

func TestResetKeepsList(t *testing.T) {
	serviceID := newServiceID()
	listID := createTestList(t, testClient, serviceID)
	seedSubscription(t, listID, strptr("a@example.com"), nil, true)
	seedSubscription(t, listID, strptr("b@example.com"), nil, false)

	resp, err := testClient.PUT("/list/"+listID+"/reset", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 0, countListSubscriptions(t, listID))
	assert.Contains(t, listsByService(t, serviceID), listID)
}

func TestSubscribeChannelValidation(t *testing.T) {
	listID := createTestList(t, testClient, newServiceID())

	resp, err := newAnonymousClient().POST("/subscription", map[string]interface{}{
		"list_id": listID,
		"email":   "a@example.com",
		"phone":   "+15555550123",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = newAnonymousClient().POST("/subscription", map[string]interface{}{
		"list_id": listID,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
