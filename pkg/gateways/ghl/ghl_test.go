package ghl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harun/apigate/pkg/toolerr"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const opportunitiesBody = `{"opportunities":[
	{"id":"o1","name":"Deal A","monetaryValue":1500,"status":"won","pipelineStageId":"s1","contactId":"c1","createdAt":"2024-01-02"},
	{"id":"o2","name":"Deal B","monetaryValue":250.5,"status":"won"},
	{"id":"o3","name":"Deal C","status":"open"},
	{"id":"o4","name":"Deal D","monetaryValue":900,"status":"lost"}
]}`

type fakeGHL struct {
	*httptest.Server
	contactsStatus int
	oppsStatus     int
	eventsStatus   int
	eventCalls     int32
}

func newFakeGHL(t *testing.T) *fakeGHL {
	t.Helper()
	f := &fakeGHL{contactsStatus: http.StatusOK, oppsStatus: http.StatusOK, eventsStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/contacts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" || r.Header.Get("Version") != DefaultAPIVersion {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid JWT"}`))
			return
		}
		if r.URL.Path == "/contacts/c1" {
			_, _ = w.Write([]byte(`{"contact":{"id":"c1","firstName":"Ada","email":"ada@example.com","customField":[{"id":"f1","value":"x"}]}}`))
			return
		}
		if f.contactsStatus != http.StatusOK {
			w.WriteHeader(f.contactsStatus)
			_, _ = w.Write([]byte("internal"))
			return
		}
		assert.Equal(t, "loc-1", r.URL.Query().Get("locationId"))
		_, _ = w.Write([]byte(`{"contacts":[{"id":"c1","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","tags":["vip"],"dateAdded":"2024-01-01"},{"id":"c2","lastName":"Hopper","phone":null}],"meta":{"total":42}}`))
	})
	mux.HandleFunc("/opportunities/search", func(w http.ResponseWriter, r *http.Request) {
		if f.oppsStatus != http.StatusOK {
			w.WriteHeader(f.oppsStatus)
			_, _ = w.Write([]byte("bad gateway"))
			return
		}
		_, _ = w.Write([]byte(opportunitiesBody))
	})
	mux.HandleFunc("/calendars/events", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.eventCalls, 1)
		if f.eventsStatus != http.StatusOK {
			w.WriteHeader(f.eventsStatus)
			return
		}
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startTime"))
		_, _ = w.Write([]byte(`{"events":[{"id":"e1","title":"Call","appointmentStatus":"confirmed"},{"id":"e2"},{"id":"e3"}]}`))
	})
	mux.HandleFunc("/opportunities/pipelines", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pipelines":[{"id":"p1","name":"Sales","stages":[{"id":"s1","name":"New","position":0}]}]}`))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestExecutor(t *testing.T, baseURL string) *toolexecutor.Executor {
	t.Helper()
	gw, err := New(Config{APIKey: "test-key", LocationID: "loc-1", BaseURL: baseURL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	reg, err := toolexecutor.NewRegistry(gw.Tools()...)
	require.NoError(t, err)
	return toolexecutor.New(reg, toolexecutor.WithGateway("ghl"))
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{LocationID: "loc-1"})
	assert.Error(t, err)
}

func TestTools_Order(t *testing.T) {
	exec := newTestExecutor(t, "https://example.com")

	assert.Equal(t, []string{
		"ghl_get_contacts",
		"ghl_get_contact",
		"ghl_get_opportunities",
		"ghl_get_pipelines",
		"ghl_get_appointments",
		"ghl_get_calendars",
		"ghl_get_conversations",
		"ghl_get_location_stats",
	}, exec.Registry().Names())
}

func TestGetContacts(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_contacts", nil)
	require.False(t, env.IsError(), env.Text())

	body := env.Text()
	assert.Equal(t, int64(2), gjson.Get(body, "count").Int())
	assert.Equal(t, "Ada Lovelace", gjson.Get(body, "contacts.0.name").String())
	assert.Equal(t, "vip", gjson.Get(body, "contacts.0.tags.0").String())
	assert.Equal(t, "2024-01-01", gjson.Get(body, "contacts.0.created").String())
	assert.Equal(t, "Hopper", gjson.Get(body, "contacts.1.name").String())

	// missing and null upstream fields both render as null; no key is dropped
	for _, key := range []string{"email", "phone", "tags", "source", "created"} {
		field := gjson.Get(body, "contacts.1."+key)
		assert.True(t, field.Exists(), key)
		assert.Equal(t, gjson.Null, field.Type, key)
	}
	assert.False(t, gjson.Get(body, "contacts.0.customFields").Exists())
}

func TestGetContact(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_contact", map[string]interface{}{"contact_id": "c1"})
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, "Ada", gjson.Get(env.Text(), "contact.name").String())
	assert.Equal(t, "f1", gjson.Get(env.Text(), "contact.customFields.0.id").String())

	env = exec.Execute(context.Background(), "ghl_get_contact", map[string]interface{}{})
	assert.True(t, env.IsError())
	assert.Equal(t, "Missing required argument: contact_id", env.Message())
}

func TestGetOpportunities_Values(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_opportunities", map[string]interface{}{"status": "all"})
	require.False(t, env.IsError(), env.Text())

	body := env.Text()
	assert.Equal(t, int64(4), gjson.Get(body, "count").Int())
	assert.Equal(t, "$1500", gjson.Get(body, "opportunities.0.value").String())
	assert.Equal(t, "s1", gjson.Get(body, "opportunities.0.stage").String())
	assert.Equal(t, "$250.5", gjson.Get(body, "opportunities.1.value").String())
	assert.Equal(t, "N/A", gjson.Get(body, "opportunities.2.value").String())
}

func TestGetOpportunities_InvalidStatus(t *testing.T) {
	exec := newTestExecutor(t, "https://example.com")

	env := exec.Execute(context.Background(), "ghl_get_opportunities", map[string]interface{}{"status": "pending"})
	assert.True(t, env.IsError())
	assert.Equal(t, toolerr.KindValidation, env.Kind)
}

func TestGetPipelines(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_pipelines", nil)
	require.False(t, env.IsError(), env.Text())
	assert.Equal(t, "New", gjson.Get(env.Text(), "pipelines.0.stages.0.name").String())
}

func TestGetAppointments_RequiresDates(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_appointments", map[string]interface{}{"start_date": "2024-01-01"})
	assert.True(t, env.IsError())
	assert.Equal(t, "Missing required argument: end_date", env.Message())
	assert.Zero(t, atomic.LoadInt32(&f.eventCalls))
}

func TestUpstreamError(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)
	f.oppsStatus = http.StatusBadGateway

	env := exec.Execute(context.Background(), "ghl_get_opportunities", nil)
	assert.True(t, env.IsError())
	assert.Equal(t, toolerr.KindUpstream, env.Kind)
	assert.Equal(t, "GHL API Error: 502 - bad gateway", env.Message())
}

func TestLocationStats_AllSlotsSucceed(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_location_stats", map[string]interface{}{
		"start_date": "2024-01-01",
		"end_date":   "2024-01-31",
	})
	require.False(t, env.IsError(), env.Text())

	stats := gjson.Get(env.Text(), "stats")
	assert.Equal(t, int64(42), stats.Get("total_contacts").Int())
	assert.Equal(t, int64(4), stats.Get("total_opportunities").Int())
	assert.Equal(t, int64(2), stats.Get("won_opportunities").Int())
	assert.Equal(t, "$1750.50", stats.Get("total_revenue").String())
	assert.Equal(t, int64(3), stats.Get("appointments_in_period").Int())
	assert.Equal(t, "50.0%", stats.Get("conversion_rate").String())
	assert.False(t, gjson.Get(env.Text(), "partial_failures").Exists())
}

func TestLocationStats_ContactsFailure(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)
	f.contactsStatus = http.StatusInternalServerError

	env := exec.Execute(context.Background(), "ghl_get_location_stats", nil)
	require.False(t, env.IsError(), env.Text())

	body := env.Text()
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.Equal(t, int64(0), gjson.Get(body, "stats.total_contacts").Int())
	assert.Equal(t, int64(4), gjson.Get(body, "stats.total_opportunities").Int())
	assert.Equal(t, "50.0%", gjson.Get(body, "stats.conversion_rate").String())
	assert.Equal(t, "contacts", gjson.Get(body, "partial_failures.0.slot").String())
	assert.Contains(t, gjson.Get(body, "partial_failures.0.error").String(), "500")
}

func TestLocationStats_SkipsAppointmentsWithoutDates(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	env := exec.Execute(context.Background(), "ghl_get_location_stats", map[string]interface{}{"start_date": "2024-01-01"})
	require.False(t, env.IsError(), env.Text())

	assert.Equal(t, int64(0), gjson.Get(env.Text(), "stats.appointments_in_period").Int())
	assert.Zero(t, atomic.LoadInt32(&f.eventCalls))
}

func TestLocationStats_NoOpportunities(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)
	f.oppsStatus = http.StatusServiceUnavailable

	env := exec.Execute(context.Background(), "ghl_get_location_stats", nil)
	require.False(t, env.IsError(), env.Text())

	assert.Equal(t, "N/A", gjson.Get(env.Text(), "stats.conversion_rate").String())
	assert.Equal(t, "$0.00", gjson.Get(env.Text(), "stats.total_revenue").String())
}

func TestLocationStats_AllSlotsFail(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)
	f.contactsStatus = http.StatusInternalServerError
	f.oppsStatus = http.StatusBadGateway
	f.eventsStatus = http.StatusBadGateway

	env := exec.Execute(context.Background(), "ghl_get_location_stats", map[string]interface{}{
		"start_date": "2024-01-01",
		"end_date":   "2024-01-31",
	})
	assert.True(t, env.IsError())
	assert.Equal(t, "GHL API Error: 500 - internal", env.Message())
}

func TestLocationStats_Idempotent(t *testing.T) {
	f := newFakeGHL(t)
	exec := newTestExecutor(t, f.URL)

	first := exec.Execute(context.Background(), "ghl_get_location_stats", nil)
	second := exec.Execute(context.Background(), "ghl_get_location_stats", nil)
	assert.Equal(t, first.JSON(), second.JSON())
}
