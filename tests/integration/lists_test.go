//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/cds-snc/list-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Language             string  `json:"language"`
	ServiceID            string  `json:"service_id"`
	SubscribeRedirectURL *string `json:"subscribe_redirect_url"`
	SubscriberCount      int     `json:"subscriber_count"`
}

type countResponse struct {
	ListID          string `json:"list_id"`
	SubscriberCount int    `json:"subscriber_count"`
}

// subscriberCounts fetches /lists/{service_id}/subscriber-count into a
// per-list map.
func subscriberCounts(t *testing.T, serviceID, query string) map[string]int {
	t.Helper()

	resp, err := testClient.GET("/lists/" + serviceID + "/subscriber-count" + query)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var counts []countResponse
	testutil.DecodeJSON(t, resp, &counts)

	result := make(map[string]int, len(counts))
	for _, c := range counts {
		result[c.ListID] = c.SubscriberCount
	}
	return result
}

func listsByService(t *testing.T, serviceID string) map[string]listResponse {
	t.Helper()

	resp, err := testClient.GET("/lists/" + serviceID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []listResponse
	testutil.DecodeJSON(t, resp, &items)

	result := make(map[string]listResponse, len(items))
	for _, item := range items {
		result[item.ID] = item
	}
	return result
}

func TestSubscriberCountsIncludeListsWithoutSubscribers(t *testing.T) {
	serviceID := newServiceID()
	populated := createTestList(t, testClient, serviceID)
	empty := createTestList(t, testClient, serviceID)

	seedSubscription(t, populated, strptr("a@example.com"), nil, true)
	seedSubscription(t, populated, strptr("b@example.com"), nil, true)

	counts := subscriberCounts(t, serviceID, "")
	require.Len(t, counts, 2)
	assert.Equal(t, 2, counts[populated])
	assert.Equal(t, 0, counts[empty])

	unique := subscriberCounts(t, serviceID, "?unique=true")
	require.Len(t, unique, 2)
	assert.Equal(t, 2, unique[populated])
	assert.Equal(t, 0, unique[empty])
}

func TestSubscriberCountsConfirmedOnly(t *testing.T) {
	serviceID := newServiceID()
	listID := createTestList(t, testClient, serviceID)

	seedSubscription(t, listID, strptr("a@example.com"), nil, true)
	seedSubscription(t, listID, strptr("b@example.com"), nil, true)
	seedSubscription(t, listID, strptr("c@example.com"), nil, true)
	seedSubscription(t, listID, strptr("d@example.com"), nil, false)
	seedSubscription(t, listID, strptr("e@example.com"), nil, false)

	counts := subscriberCounts(t, serviceID, "")
	assert.Equal(t, 3, counts[listID])
}

func TestSubscriberCountsUniqueDeduplicates(t *testing.T) {
	serviceID := newServiceID()
	listID := createTestList(t, testClient, serviceID)

	// Five confirmed rows over two distinct addresses.
	for _, email := range []string{
		"a@example.com", "a@example.com", "a@example.com",
		"b@example.com", "b@example.com",
	} {
		seedSubscription(t, listID, strptr(email), nil, true)
	}

	raw := subscriberCounts(t, serviceID, "")
	assert.Equal(t, 5, raw[listID])

	unique := subscriberCounts(t, serviceID, "?unique=true")
	assert.Equal(t, 2, unique[listID])
}

func TestListWithCountsZeroForEmptyList(t *testing.T) {
	serviceID := newServiceID()
	listID := createTestList(t, testClient, serviceID)

	lists := listsByService(t, serviceID)
	require.Contains(t, lists, listID)
	assert.Equal(t, 0, lists[listID].SubscriberCount)
}

func TestListPartialUpdate(t *testing.T) {
	serviceID := newServiceID()
	listID := createTestList(t, testClient, serviceID,
		withPayload("subscribe_redirect_url", "https://example.com/thanks"))

	resp, err := testClient.PUT("/list/"+listID, map[string]interface{}{
		"name": "Renamed list",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	lists := listsByService(t, serviceID)
	updated := lists[listID]
	assert.Equal(t, "Renamed list", updated.Name)
	// Untouched columns survive a partial update.
	assert.Equal(t, "en", updated.Language)
	require.NotNil(t, updated.SubscribeRedirectURL)
	assert.Equal(t, "https://example.com/thanks", *updated.SubscribeRedirectURL)

	// Empty string clears an optional column.
	resp, err = testClient.PUT("/list/"+listID, map[string]interface{}{
		"subscribe_redirect_url": "",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	lists = listsByService(t, serviceID)
	assert.Nil(t, lists[listID].SubscribeRedirectURL)
}

func TestListDeleteCascadesToSubscriptions(t *testing.T) {
	serviceID := newServiceID()
	listID := createTestList(t, testClient, serviceID)

	seedSubscription(t, listID, strptr("a@example.com"), nil, true)
	seedSubscription(t, listID, nil, strptr("+15555550123"), false)
	require.Equal(t, 2, countListSubscriptions(t, listID))

	resp, err := testClient.DELETE("/list/" + listID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 0, countListSubscriptions(t, listID))
	assert.NotContains(t, listsByService(t, serviceID), listID)
}

func TestListCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{
			"redirect host outside allow list",
			map[string]interface{}{
				"name": "x", "language": "en", "service_id": newServiceID(),
				"confirm_redirect_url": "https://evil.example.org/",
			},
		},
		{
			"short template id",
			map[string]interface{}{
				"name": "x", "language": "en", "service_id": newServiceID(),
				"subscribe_email_template_id": "short",
			},
		},
		{
			"missing name",
			map[string]interface{}{"language": "en", "service_id": newServiceID()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := testClient.POST("/list", tt.payload)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}
}

func TestMutatingEndpointsRequireToken(t *testing.T) {
	anonymous := newAnonymousClient()

	resp, err := anonymous.POST("/list", map[string]interface{}{
		"name": "x", "language": "en", "service_id": newServiceID(),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	// The read-only catalogue stays public.
	resp, err = anonymous.GET("/lists")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
