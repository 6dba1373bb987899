package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealmungchi/freegameworker/internal/crawler"
	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/services/dedup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *MockPublisher) {
	t.Helper()
	pub := NewMockPublisher()
	c := &MockCrawler{name: "Epic", store: offer.Epic, offers: []offer.RawOffer{freeRaw("a", "A")}}
	w := newTestWorker([]crawler.Crawler{c}, dedup.NewMemoryStore(), pub, NewMockLogger(), Options{})

	srv := httptest.NewServer(NewServer(":0", token, w).Handler())
	t.Cleanup(srv.Close)
	return srv, pub
}

func postCommand(t *testing.T, url, token string) (*http.Response, commandResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/freegames", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(CommandTokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body commandResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestServerRunsCommand(t *testing.T) {
	srv, pub := newTestServer(t, "")

	resp, body := postCommand(t, srv.URL, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1, body.Announced)
	assert.Equal(t, "Done! Posted 1 new games.", body.Message)
	assert.NotEmpty(t, body.RunID)
	assert.Len(t, pub.sent, 1)

	_, again := postCommand(t, srv.URL, "")
	assert.Zero(t, again.New)
	assert.Equal(t, "No new free games found right now.", again.Message)
}

func TestServerRequiresToken(t *testing.T) {
	srv, pub := newTestServer(t, "s3cret")

	resp, _ := postCommand(t, srv.URL, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postCommand(t, srv.URL, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, pub.sent)

	resp, body := postCommand(t, srv.URL, "s3cret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, body.Announced)
}

func TestServerHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.Nil(t, health.LastRun)

	postCommand(t, srv.URL, "")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	health = healthResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.NotNil(t, health.LastRun)
	assert.Equal(t, 1, health.LastRun.Announced)
}

func TestServerRejectsWrongMethod(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/freegames")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
