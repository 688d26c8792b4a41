package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/harun/apigate/pkg/toolerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing api name", cfg: Config{BaseURL: "https://example.com"}},
		{name: "missing credential", cfg: Config{API: "GHL", BaseURL: "https://example.com", Auth: AuthBearer}},
		{name: "bad scheme", cfg: Config{API: "GHL", BaseURL: "ftp://example.com"}},
		{name: "authenticated without base", cfg: Config{API: "GHL", Auth: AuthBearer, Credential: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestClient_BearerAuthAndVersionPath(t *testing.T) {
	var gotPath, gotAuth, gotVersion, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Version")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"contacts":[{"id":"c1"}],"meta":{"total":7}}`))
	}))
	defer srv.Close()

	client, err := New(Config{
		API:        "GHL",
		BaseURL:    srv.URL,
		Version:    "v1",
		Auth:       AuthBearer,
		Credential: "secret-key",
		Headers:    map[string]string{"Version": "2021-07-28"},
	})
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/contacts/", url.Values{
		"locationId":   {"loc-1"},
		"access_token": {"smuggled"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/contacts/", gotPath)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "2021-07-28", gotVersion)
	assert.Equal(t, "locationId=loc-1", gotQuery)
	assert.Equal(t, int64(7), resp.Get("meta.total").Int())
	assert.Equal(t, "c1", resp.Array("contacts")[0].Get("id").String())
}

func TestClient_QueryTokenAuthAppliedOnce(t *testing.T) {
	var tokens []string
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = r.URL.Query()["access_token"]
		assert.Empty(t, r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"id":"123"}`))
	}))
	defer srv.Close()

	client, err := New(Config{API: "Meta", BaseURL: srv.URL, Version: "v18.0", Auth: AuthQueryToken, Credential: "tok"})
	require.NoError(t, err)

	_, err = client.Post(context.Background(), "/act_1/campaigns",
		url.Values{"access_token": {"caller-supplied"}},
		map[string]interface{}{"name": "Launch", "status": "PAUSED"})
	require.NoError(t, err)

	assert.Equal(t, []string{"tok"}, tokens)
	assert.Equal(t, "Launch", body["name"])
	assert.NotContains(t, body, "access_token")
}

func TestClient_Non2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`Internal Server Error`))
	}))
	defer srv.Close()

	client, err := New(Config{API: "GHL", BaseURL: srv.URL, Auth: AuthBearer, Credential: "k"})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/contacts/", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, "Internal Server Error", apiErr.Body)
	assert.Equal(t, "GHL API Error: 500 - Internal Server Error", err.Error())
	assert.Equal(t, toolerr.KindUpstream, toolerr.KindOf(err))
	assert.Equal(t, 500, StatusOf(err))
}

func TestClient_EmptyAndInvalidBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/text":
			_, _ = w.Write([]byte(`ok`))
		}
	}))
	defer srv.Close()

	client, err := New(Config{API: "Zapier", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/empty", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text())

	_, err = client.Get(context.Background(), "/text", nil)
	assert.Equal(t, toolerr.KindUpstream, toolerr.KindOf(err))

	resp, err = client.Do(context.Background(), Request{Path: "/text", AcceptText: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
}

func TestClient_AbsoluteURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	plain, err := New(Config{API: "Webhook"})
	require.NoError(t, err)
	resp, err := plain.Post(context.Background(), srv.URL+"/hooks/catch/1/abc", nil, map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Get("status").String())

	authed, err := New(Config{API: "Zapier", BaseURL: srv.URL, Auth: AuthBearer, Credential: "k"})
	require.NoError(t, err)
	_, err = authed.Get(context.Background(), "https://evil.example.com/steal", nil)
	assert.ErrorContains(t, err, "absolute urls are not allowed")
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	client, err := New(Config{API: "Meta", BaseURL: addr, Auth: AuthQueryToken, Credential: "super-secret"})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/me", nil)
	require.Error(t, err)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, toolerr.KindNetwork, toolerr.KindOf(err))
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestClient_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := New(Config{API: "GHL", BaseURL: srv.URL, Auth: AuthBearer, Credential: "k"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = client.Get(ctx, "/slow", nil)
	require.Error(t, err)
	assert.Equal(t, toolerr.KindCancelled, toolerr.KindOf(err))
	assert.Equal(t, "GHL request cancelled", err.Error())
}

func TestClient_DeadlineIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := New(Config{API: "GHL", BaseURL: srv.URL, Auth: AuthBearer, Credential: "k", Timeout: 30 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/slow", nil)
	require.Error(t, err)
	assert.Equal(t, toolerr.KindNetwork, toolerr.KindOf(err))
}

func TestStatic(t *testing.T) {
	resp := Static(`{"meta":{"total":0}}`)

	assert.Equal(t, int64(0), resp.Get("meta.total").Int())
	assert.True(t, resp.Get("meta.total").Exists())
	assert.Empty(t, resp.Array("contacts"))
}
