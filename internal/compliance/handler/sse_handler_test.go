package handler

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEStream_DeliversPublishedEvents(t *testing.T) {
	hub := events.NewHub(nil)
	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/events/stream", NewSSEHandler(hub).Stream)

	srv := httptest.NewServer(router)
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL+"/api/v1/events/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testutil.TokenFor("Auditor"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(events.TypeAuditUpdate, map[string]string{"id": "a-1", "to": "IN_PROGRESS"})

	var got []string
	for len(got) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: audit_update") || strings.HasPrefix(line, "data: {\"id\"") {
			got = append(got, strings.TrimSpace(line))
		}
	}
	assert.Equal(t, "event: audit_update", got[0])
	assert.Contains(t, got[1], `"to":"IN_PROGRESS"`)
}

func TestSSEStream_RequiresToken(t *testing.T) {
	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/events/stream", NewSSEHandler(events.NewHub(nil)).Stream)

	w := testutil.DoRequest(router, "GET", "/api/v1/events/stream", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
