package zapier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harun/apigate/pkg/toolerr"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const zapsBody = `{"data":[
	{"id":"1","title":"Lead to CRM","is_enabled":true,"steps":[{"app":{"name":"Facebook Lead Ads"}},{"app":{"name":"GoHighLevel"}},{"app":{}}],"last_run_at":"2024-02-01"},
	{"id":"2","title":"Old sync","is_enabled":false,"steps":[]}
]}`

func newTestExecutor(t *testing.T, baseURL string) *toolexecutor.Executor {
	t.Helper()
	gw, err := New(Config{APIKey: "zap-key", BaseURL: baseURL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	reg, err := toolexecutor.NewRegistry(gw.Tools()...)
	require.NoError(t, err)
	return toolexecutor.New(reg, toolexecutor.WithGateway("zapier"))
}

func TestTools_Order(t *testing.T) {
	exec := newTestExecutor(t, "https://example.com")
	assert.Equal(t, []string{
		"zapier_list_zaps",
		"zapier_get_zap",
		"zapier_enable_zap",
		"zapier_disable_zap",
		"zapier_get_zap_runs",
		"zapier_trigger_webhook",
		"zapier_get_account_status",
	}, exec.Registry().Names())
}

func TestListZaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/zaps", r.URL.Path)
		assert.Equal(t, "Bearer zap-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(zapsBody))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	env := exec.Execute(context.Background(), "zapier_list_zaps", nil)
	require.False(t, env.IsError(), env.Text())
	body := env.Text()
	assert.Equal(t, int64(2), gjson.Get(body, "count").Int())
	assert.Equal(t, "ON", gjson.Get(body, "zaps.0.status").String())
	assert.Equal(t, "Facebook Lead Ads", gjson.Get(body, "zaps.0.trigger_app").String())
	assert.Equal(t, []interface{}{"GoHighLevel"}, gjson.Get(body, "zaps.0.action_apps").Value())
	assert.Equal(t, "Unknown", gjson.Get(body, "zaps.1.trigger_app").String())

	env = exec.Execute(context.Background(), "zapier_list_zaps", map[string]interface{}{"status": "off"})
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, int64(1), gjson.Get(env.Text(), "count").Int())
	assert.Equal(t, "2", gjson.Get(env.Text(), "zaps.0.id").String())
}

func TestGetZap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/zaps/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"1","title":"Lead to CRM","is_enabled":true,"steps":[{"position":0,"app":{"name":"Facebook Lead Ads"},"action":{"name":"New Lead"}}]}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)
	env := exec.Execute(context.Background(), "zapier_get_zap", map[string]interface{}{"zap_id": "1"})
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, "New Lead", gjson.Get(env.Text(), "zap.steps.0.action").String())
}

func TestToggleZap(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	env := exec.Execute(context.Background(), "zapier_enable_zap", map[string]interface{}{"zap_id": "7"})
	require.False(t, env.IsError(), env.Text())
	assert.JSONEq(t, `{"is_enabled":true}`, gotBody)
	assert.Equal(t, "ON", gjson.Get(env.Text(), "new_status").String())
	assert.Equal(t, "Zap 7 has been enabled", gjson.Get(env.Text(), "message").String())

	env = exec.Execute(context.Background(), "zapier_disable_zap", map[string]interface{}{"zap_id": "7"})
	require.False(t, env.IsError(), env.Text())
	assert.JSONEq(t, `{"is_enabled":false}`, gotBody)
	assert.Equal(t, "OFF", gjson.Get(env.Text(), "new_status").String())
}

func TestToggleZap_FailureAdvisesManualToggle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte("not supported"))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)
	env := exec.Execute(context.Background(), "zapier_enable_zap", map[string]interface{}{"zap_id": "7"})

	require.True(t, env.IsError())
	assert.Equal(t, toolerr.KindUpstream, env.Kind)
	assert.Contains(t, env.Message(), "Please enable manually in Zapier dashboard")
	assert.Contains(t, env.Message(), "Zapier API Error: 405 - not supported")
}

func TestGetZapRuns_FiltersByStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/zaps/1/runs", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[
			{"id":"r1","status":"success","duration":1200,"error_message":"ignored"},
			{"id":"r2","status":"error","error_message":"Auth expired"}
		]}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	env := exec.Execute(context.Background(), "zapier_get_zap_runs", map[string]interface{}{"zap_id": "1"})
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, int64(2), gjson.Get(env.Text(), "count").Int())
	assert.Equal(t, gjson.Null, gjson.Get(env.Text(), "runs.0.error").Type)

	env = exec.Execute(context.Background(), "zapier_get_zap_runs", map[string]interface{}{"zap_id": "1", "status": "error"})
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, int64(1), gjson.Get(env.Text(), "count").Int())
	assert.Equal(t, "Auth expired", gjson.Get(env.Text(), "runs.0.error").String())
}

func TestTriggerWebhook(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("access_token"))
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"lead":"ada@example.com"}`, string(raw))
		_, _ = w.Write([]byte(`{"status":"success","id":"abc"}`))
	}))
	defer hook.Close()

	exec := newTestExecutor(t, "https://example.com")
	env := exec.Execute(context.Background(), "zapier_trigger_webhook", map[string]interface{}{
		"webhook_url": hook.URL + "/hooks/catch/1/abc/",
		"data":        map[string]interface{}{"lead": "ada@example.com"},
	})
	require.False(t, env.IsError(), env.Text())

	assert.Equal(t, int64(200), gjson.Get(env.Text(), "status_code").Int())
	assert.Equal(t, `{"status":"success","id":"abc"}`, gjson.Get(env.Text(), "response").String())
}

func TestTriggerWebhook_Failures(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte("hook disabled"))
	}))
	defer hook.Close()

	exec := newTestExecutor(t, "https://example.com")

	env := exec.Execute(context.Background(), "zapier_trigger_webhook", map[string]interface{}{
		"webhook_url": hook.URL,
		"data":        map[string]interface{}{},
	})
	require.True(t, env.IsError())
	assert.Equal(t, "Webhook API Error: 410 - hook disabled", env.Message())

	env = exec.Execute(context.Background(), "zapier_trigger_webhook", map[string]interface{}{
		"webhook_url": "file:///etc/passwd",
		"data":        map[string]interface{}{},
	})
	require.True(t, env.IsError())
	assert.Equal(t, toolerr.KindValidation, env.Kind)
}

func TestGetAccountStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/profile", r.URL.Path)
		_, _ = w.Write([]byte(`{"email":"ops@example.com","plan_name":"Professional","tasks_used":1200,"tasks_limit":2000,"zaps_count":14}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)
	env := exec.Execute(context.Background(), "zapier_get_account_status", nil)
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, int64(800), gjson.Get(env.Text(), "account.tasks_remaining").Int())
	assert.Equal(t, "Professional", gjson.Get(env.Text(), "account.plan").String())
}
