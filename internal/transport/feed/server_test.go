package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachtrij/internal/config"
	"wachtrij/internal/metrics"
	"wachtrij/internal/orders"
	persistlog "wachtrij/internal/persistence/log"
	"wachtrij/internal/protocol"
	"wachtrij/internal/refresh"
	"wachtrij/internal/render"
	"wachtrij/internal/settings"
)

type hiddenSurface struct{}

func (hiddenSurface) Present() bool                               { return false }
func (hiddenSurface) Redraw(context.Context, refresh.Frame) error { return nil }

type memJournal struct{ entries []persistlog.FeedEntry }

func (j *memJournal) WriteFeed(e persistlog.FeedEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

type fixture struct {
	mux     *http.ServeMux
	store   *orders.MemoryStore
	prefs   *settings.Manager
	journal *memJournal
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	prefs, err := settings.NewManager(context.Background(), nil)
	require.NoError(t, err)
	store := orders.NewMemoryStore()
	sched, err := refresh.New(refresh.Options{
		Period:  time.Hour,
		Source:  store,
		Surface: hiddenSurface{},
		Prefs:   prefs,
		Clock:   refresh.NewFakeClock(time.Unix(1050, 0)),
	})
	require.NoError(t, err)

	f := &fixture{
		mux:     http.NewServeMux(),
		store:   store,
		prefs:   prefs,
		journal: &memJournal{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	NewServer(cfg, Deps{Store: store, Panel: sched, Prefs: prefs, Journal: f.journal, Metrics: f.metrics}).Register(f.mux)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	r.RemoteAddr = "127.0.0.1:50123"
	rw := httptest.NewRecorder()
	f.mux.ServeHTTP(rw, r)
	return rw
}

func decodeError(t *testing.T, rw *httptest.ResponseRecorder) protocol.ErrorMsg {
	t.Helper()
	var e protocol.ErrorMsg
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &e))
	return e
}

const twoOrders = `{"type":"ORDERS","protocol_version":"1.0","sent_at":1049,"orders":[
 {"id":"a","unit_id":"sword","count":10,"created_at":1000,"to_be_completed_at":1100},
 {"id":"b","unit_id":"bireme","count":3,"created_at":1000,"to_be_completed_at":1300}]}`

func TestPostOrders_AcceptsAndJournals(t *testing.T) {
	f := newFixture(t, nil)

	rw := f.do(http.MethodPost, "/v1/orders", twoOrders)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	var ack protocol.AckMsg
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &ack))
	assert.Equal(t, protocol.TypeAck, ack.Type)
	assert.Equal(t, 2, ack.Accepted)
	assert.Equal(t, uint64(1), ack.Revision)
	_, err := uuid.Parse(ack.BatchID)
	assert.NoError(t, err)

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, ack.BatchID, f.journal.entries[0].BatchID)
	assert.Equal(t, int64(1049), f.journal.entries[0].SentAt)
	assert.Len(t, f.journal.entries[0].Orders, 2)

	st := f.store.Stats()
	assert.True(t, st.Loaded)
	assert.Equal(t, 2, st.Orders)
}

func TestPostOrders_RejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{`, protocol.ErrProtoBadRequest},
		{"zero count", `{"type":"ORDERS","protocol_version":"1.0","orders":[{"id":"a","unit_id":"sword","count":0,"created_at":1,"to_be_completed_at":2}]}`, protocol.ErrProtoBadRequest},
		{"wrong version", `{"type":"ORDERS","protocol_version":"9.9","orders":[]}`, protocol.ErrProtoBadRequest},
		{"repeated id", `{"type":"ORDERS","protocol_version":"1.0","orders":[
 {"id":"1","unit_id":"sword","count":5,"created_at":2000,"to_be_completed_at":2100},
 {"id":"1","unit_id":"archer","count":7,"created_at":2000,"to_be_completed_at":2100}]}`, protocol.ErrBadRequest},
		{"finishes before start", `{"type":"ORDERS","protocol_version":"1.0","orders":[{"id":"a","unit_id":"sword","count":1,"created_at":20,"to_be_completed_at":10}]}`, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rw := f.do(http.MethodPost, "/v1/orders", tc.body)
			require.Equal(t, http.StatusBadRequest, rw.Code)
			assert.Equal(t, tc.code, decodeError(t, rw).Code)
			assert.False(t, f.store.Stats().Loaded)
			assert.Empty(t, f.journal.entries)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FeedsRejected))
		})
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestPostOrders_UnreadableBodyIsBadRequest(t *testing.T) {
	f := newFixture(t, nil)
	r := httptest.NewRequest(http.MethodPost, "/v1/orders", failingBody{})
	r.RemoteAddr = "127.0.0.1:50123"
	rw := httptest.NewRecorder()
	f.mux.ServeHTTP(rw, r)

	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, protocol.ErrProtoBadRequest, decodeError(t, rw).Code)
}

func TestDeleteOrders_ZeroesOrderGauge(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/orders", twoOrders).Code)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Orders))

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/orders", "").Code)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Orders))
	assert.False(t, f.store.Stats().Loaded)
}

func TestPostOrders_BodyLimit(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Feed.MaxBodyBytes = 32 })
	rw := f.do(http.MethodPost, "/v1/orders", twoOrders)
	require.Equal(t, http.StatusRequestEntityTooLarge, rw.Code)
	assert.Equal(t, protocol.ErrProtoBadRequest, decodeError(t, rw).Code)
	assert.False(t, f.store.Stats().Loaded)
}

func TestPanel_LoadingThenCountsThenReset(t *testing.T) {
	f := newFixture(t, nil)

	rw := f.do(http.MethodGet, "/v1/panel", "")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), render.LoadingText)
	assert.Contains(t, rw.Header().Get("Content-Type"), "text/html")

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/orders", twoOrders).Code)
	body := f.do(http.MethodGet, "/v1/panel", "").Body.String()
	assert.Contains(t, body, "Land Units")
	assert.Contains(t, body, "Naval Units")
	assert.Contains(t, body, `id="`+render.ContentID+`"`)
	assert.NotContains(t, body, render.LoadingText)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/orders", "").Code)
	assert.Contains(t, f.do(http.MethodGet, "/v1/panel", "").Body.String(), render.LoadingText)
}

func TestSettings_RoundTripAndValidation(t *testing.T) {
	f := newFixture(t, nil)

	var got settings.Settings
	rw := f.do(http.MethodGet, "/v1/settings", "")
	require.Equal(t, http.StatusOK, rw.Code)
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	assert.Equal(t, settings.Defaults(), got)

	rw = f.do(http.MethodPut, "/v1/settings", `{"backgroundType":"builtin","backgroundValue":"ocean","opacity":0.3,"size":"tile"}`)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	cur, rev := f.prefs.Current()
	assert.Equal(t, uint64(1), rev)
	assert.Equal(t, "ocean", cur.BackgroundValue)
	assert.Equal(t, settings.SizeTile, cur.Size)

	rw = f.do(http.MethodPut, "/v1/settings", `{"backgroundType":"url","backgroundValue":"javascript:alert(1)","opacity":0.5,"size":"cover"}`)
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, protocol.ErrBadRequest, decodeError(t, rw).Code)
	_, rev = f.prefs.Current()
	assert.Equal(t, uint64(1), rev)

	rw = f.do(http.MethodPut, "/v1/settings", `{"colour":"red"}`)
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, protocol.ErrProtoBadRequest, decodeError(t, rw).Code)
}

func TestBootstrap_DescribesWindow(t *testing.T) {
	f := newFixture(t, nil)

	rw := f.do(http.MethodGet, "/v1/bootstrap", "")
	require.Equal(t, http.StatusOK, rw.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &raw))
	win := raw["window"].(map[string]any)
	assert.Equal(t, "Unit Production", win["title"])
	assert.Equal(t, float64(400), win["width"])
	assert.Equal(t, float64(600), win["height"])
	assert.Equal(t, []any{"center", float64(60)}, win["position"])

	var boot protocol.BootstrapResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &boot))
	assert.Equal(t, render.ContentID, boot.ContentID)
	assert.Equal(t, int64(2000), boot.RefreshPeriodMS)
	assert.Equal(t, []string{"ocean", "sand", "stone"}, boot.Builtins)
	require.Len(t, boot.Groups, 3)
	assert.Equal(t, "Land Units", boot.Groups[0].Title)
	assert.True(t, strings.Contains(boot.HTML, render.LoadingText))
}

func TestRoutes_LoopbackOnly(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/v1/orders", "/v1/panel", "/v1/settings", "/v1/bootstrap"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "192.0.2.10:4000"
		rw := httptest.NewRecorder()
		f.mux.ServeHTTP(rw, r)
		assert.Equal(t, http.StatusForbidden, rw.Code, path)
	}
}
