package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func httpSnapshot(target string) monitor.Snapshot {
	return monitor.Snapshot{
		ID:          uuid.New(),
		Type:        monitor.TypeHTTP,
		Target:      target,
		IntervalSec: 60,
		TimeoutMS:   2000,
	}
}

func newHTTPExec() *HTTPExecutor {
	logger := zerolog.Nop()
	return NewHTTPExecutor(&http.Client{}, &logger)
}

func TestHTTPExecutor_StatusMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newHTTPExec().Execute(context.Background(), httpSnapshot(srv.URL))
	require.True(t, res.Success)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, res.Err)
}

func TestHTTPExecutor_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := newHTTPExec().Execute(context.Background(), httpSnapshot(srv.URL))
	require.False(t, res.Success)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	require.Equal(t, "expected status 200, got 503", res.Err)
}

func TestHTTPExecutor_CustomExpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	snap := httpSnapshot(srv.URL)
	snap.ExpectedStatus = http.StatusCreated
	snap.Method = http.MethodPost

	res := newHTTPExec().Execute(context.Background(), snap)
	require.True(t, res.Success)
}

func TestHTTPExecutor_ConnectionRefused(t *testing.T) {
	// grab a port nothing listens on
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := newHTTPExec().Execute(context.Background(), httpSnapshot(url))
	require.False(t, res.Success)
	require.NotEmpty(t, res.Err)
}

func TestHTTPExecutor_KeywordContains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>Operational: all systems GO</html>"))
	}))
	defer srv.Close()

	snap := httpSnapshot(srv.URL)
	snap.Type = monitor.TypeKeyword
	snap.Keyword = "operational"

	// matching is case-insensitive
	res := newHTTPExec().Execute(context.Background(), snap)
	require.True(t, res.Success)
	require.True(t, res.KeywordFound)

	snap.Keyword = "maintenance"
	res = newHTTPExec().Execute(context.Background(), snap)
	require.False(t, res.Success)
	require.False(t, res.KeywordFound)
	require.Equal(t, `keyword "maintenance" not found in response body`, res.Err)
}

func TestHTTPExecutor_KeywordNotContains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("503 service under maintenance"))
	}))
	defer srv.Close()

	snap := httpSnapshot(srv.URL)
	snap.Type = monitor.TypeKeyword
	snap.Keyword = "maintenance"
	snap.KeywordMode = "not_contains"

	res := newHTTPExec().Execute(context.Background(), snap)
	require.False(t, res.Success)
	require.True(t, res.KeywordFound)
	require.Equal(t, `keyword "maintenance" found but should not be present`, res.Err)
}

func TestHTTPExecutor_SendsConfiguredHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	snap := httpSnapshot(srv.URL)
	snap.Headers = map[string]string{"Authorization": "Bearer tok"}

	res := newHTTPExec().Execute(context.Background(), snap)
	require.True(t, res.Success)
	require.Equal(t, "Bearer tok", gotAuth)
}
