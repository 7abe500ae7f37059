package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
	"trader-explorer/internal/observability"
	"trader-explorer/internal/storage"
	"trader-explorer/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testColumns = []string{
	"trader", "trader_pnl", "trader_volume", "trader_label", "trader_ppv",
	"price_levels_per_volume", "transactions_per_day", "topic_Sports", "topic_Politics",
}

func seededStore(t *testing.T, rows ...[]any) *memory.TraderStore {
	t.Helper()
	table := etl.NewTable(testColumns)
	for _, r := range rows {
		table.AppendRow(r)
	}
	typed := etl.Normalize(table)
	topics, err := etl.Unpivot(typed)
	require.NoError(t, err)

	store := memory.NewTraderStore()
	ctx := context.Background()
	_, err = store.Replace(ctx, typed, topics)
	require.NoError(t, err)
	require.NoError(t, store.Refresh(ctx))
	return store
}

func defaultRows() [][]any {
	return [][]any{
		{"t1", "100", "1000", "A", "2", "0.1", "3", "0.5", "0.5"},
		{"t2", "-50", "500", "A", "4", "0.2", "5", "1", nil},
		{"t3", "10", "0", "B", nil, nil, nil, nil, nil},
	}
}

func newTestRouter(t *testing.T, sessions storage.SessionProvider) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger, _ := test.NewNullLogger()
	return NewRouter(Options{
		Sessions:       sessions,
		Metrics:        observability.NewMetrics("test", reg),
		MetricsHandler: observability.HandlerFor(reg),
		Logger:         logger,
	})
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestOverview(t *testing.T) {
	store := seededStore(t, defaultRows()...)
	r := newTestRouter(t, store)

	rec := get(t, r, "/overview/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body overviewResponse
	decode(t, rec, &body)
	assert.Equal(t, int64(3), body.TotalTraders)
	assert.InDelta(t, 60.0, body.TotalPnL, 1e-9)
	require.Len(t, body.TopTraders, 3)
	assert.Equal(t, "t1", body.TopTraders[0].Trader)
	assert.Nil(t, body.TopTraders[2].ROI)

	assert.Equal(t, int64(0), store.ActiveSessions(), "session released")
}

func TestOverview_ManyTradersTopTen(t *testing.T) {
	var rows [][]any
	for i := 0; i < 15; i++ {
		rows = append(rows, []any{fmt.Sprintf("t%02d", i), fmt.Sprint(i), "100", nil, nil, nil, nil, nil, nil})
	}
	r := newTestRouter(t, seededStore(t, rows...))

	var body overviewResponse
	decode(t, get(t, r, "/overview/"), &body)
	require.Len(t, body.TopTraders, 10)
	assert.Equal(t, "t14", body.TopTraders[0].Trader)
}

func TestLabelSummary(t *testing.T) {
	r := newTestRouter(t, seededStore(t, defaultRows()...))

	rec := get(t, r, "/labels/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body labelSummaryResponse
	decode(t, rec, &body)
	require.Len(t, body.Labels, 2)
	assert.Equal(t, "A", body.Labels[0].Label)
	assert.Equal(t, int64(2), body.Labels[0].Count)
	require.NotNil(t, body.Labels[0].ROIStd)
	assert.InDelta(t, 0.1, *body.Labels[0].ROIStd, 1e-9)
	assert.Equal(t, "B", body.Labels[1].Label)
	assert.Nil(t, body.Labels[1].ROIMean)

	// Null fields are serialized, not omitted.
	assert.Contains(t, rec.Body.String(), `"roi_mean":null`)
}

func TestFootprintScatter(t *testing.T) {
	r := newTestRouter(t, seededStore(t, defaultRows()...))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantPoints int
	}{
		{"default limit", "", http.StatusOK, 2},
		{"min limit", "?limit=10", http.StatusOK, 2},
		{"max limit", "?limit=5000", http.StatusOK, 2},
		{"below min", "?limit=9", http.StatusUnprocessableEntity, 0},
		{"above max", "?limit=5001", http.StatusUnprocessableEntity, 0},
		{"not a number", "?limit=abc", http.StatusUnprocessableEntity, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, r, "/footprint/scatter"+tt.query)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				var body errorResponse
				decode(t, rec, &body)
				assert.NotEmpty(t, body.Detail)
				return
			}
			var body footprintScatterResponse
			decode(t, rec, &body)
			assert.Len(t, body.Points, tt.wantPoints)
			assert.Equal(t, "t1", body.Points[0].Trader)
		})
	}
}

func TestTraderTopics(t *testing.T) {
	r := newTestRouter(t, seededStore(t, defaultRows()...))

	t.Run("with topics", func(t *testing.T) {
		rec := get(t, r, "/topics/trader/t1")
		require.Equal(t, http.StatusOK, rec.Code)

		var body traderTopicResponse
		decode(t, rec, &body)
		assert.Equal(t, "t1", body.Trader)
		assert.Equal(t, 2, body.ActiveTopics)
		assert.InDelta(t, 0.0, body.NicheScore, 1e-9)
		assert.Len(t, body.TopicShares, 2)
	})

	t.Run("no topic data", func(t *testing.T) {
		rec := get(t, r, "/topics/trader/t3")
		require.Equal(t, http.StatusOK, rec.Code)

		var body traderTopicResponse
		decode(t, rec, &body)
		assert.Equal(t, traderTopicResponse{
			Trader:       "t3",
			ActiveTopics: 0,
			TopicEntropy: 0,
			NicheScore:   1.0,
			TopicShares:  []topicShare{},
		}, body)
	})

	t.Run("unknown trader", func(t *testing.T) {
		rec := get(t, r, "/topics/trader/nobody")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"Trader not found"}`, rec.Body.String())
	})
}

func TestArchetypeMap(t *testing.T) {
	rows := append(defaultRows(), []any{"t4", "1", "1", nil, nil, nil, nil, nil, nil})
	r := newTestRouter(t, seededStore(t, rows...))

	rec := get(t, r, "/archetypes/map")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"archetypes":[
		{"id":1,"name":"A","members":["t1","t2"]},
		{"id":2,"name":"B","members":["t3"]},
		{"id":3,"name":"Unknown","members":["t4"]}
	]}`, rec.Body.String())
}

func TestArchetypeClusters(t *testing.T) {
	var rows [][]any
	for i := 0; i < 4; i++ {
		rows = append(rows,
			[]any{fmt.Sprintf("lo%d", i), "-10", "100", nil, nil, "0.1", "1", nil, nil},
			[]any{fmt.Sprintf("hi%d", i), "90", "100", nil, nil, "5", "50", nil, nil},
		)
	}
	r := newTestRouter(t, seededStore(t, rows...))

	rec := get(t, r, "/archetypes/clusters?k=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body clustersResponse
	decode(t, rec, &body)
	assert.Equal(t, 2, body.K)
	require.Len(t, body.Clusters, 2)
	assert.Len(t, body.Clusters[0].Members, 4)
	assert.Len(t, body.Clusters[1].Members, 4)

	assert.Equal(t, http.StatusUnprocessableEntity, get(t, r, "/archetypes/clusters?k=1").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, r, "/archetypes/clusters?k=13").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, r, "/archetypes/clusters?k=12").Code, "fewer traders than k")
}

func TestTraderProfile(t *testing.T) {
	r := newTestRouter(t, seededStore(t, defaultRows()...))

	rec := get(t, r, "/traders/t1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body traderProfileResponse
	decode(t, rec, &body)
	assert.Equal(t, "t1", body.Trader)
	require.NotNil(t, body.PnLPercentile)
	assert.InDelta(t, 1.0, *body.PnLPercentile, 1e-9)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/traders/nobody").Code)
}

// failingSessions returns sessions whose reads always fail.
type failingSessions struct {
	*memory.TraderStore
	acquireErr error
}

type failingSession struct {
	storage.Session
}

func (f failingSession) LabelSummary(context.Context) ([]domain.LabelSummary, error) {
	return nil, errors.New("connection reset")
}

func (f *failingSessions) Acquire(ctx context.Context) (storage.Session, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	s, err := f.TraderStore.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return failingSession{Session: s}, nil
}

func TestInternalErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	reg := prometheus.NewRegistry()

	store := memory.NewTraderStore()
	r := NewRouter(Options{
		Sessions:       &failingSessions{TraderStore: store},
		Metrics:        observability.NewMetrics("test", reg),
		MetricsHandler: observability.HandlerFor(reg),
		Logger:         logger,
	})

	rec := get(t, r, "/labels/summary")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Equal(t, int64(0), store.ActiveSessions())

	found := false
	for _, e := range hook.AllEntries() {
		if err, ok := e.Data[logrus.ErrorKey].(error); ok && err.Error() == "connection reset" {
			found = true
		}
	}
	assert.True(t, found, "error logged")

	r = NewRouter(Options{
		Sessions:       &failingSessions{TraderStore: store, acquireErr: errors.New("pool closed")},
		Metrics:        observability.NewMetrics("test", prometheus.NewRegistry()),
		MetricsHandler: observability.HandlerFor(reg),
		Logger:         logger,
	})
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/overview/").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, seededStore(t, defaultRows()...))

	rec := get(t, r, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	get(t, r, "/overview/")
	rec = get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_api_requests_total{method="GET",route="/overview/",status="200"} 1`)

	failing := NewRouter(Options{
		Sessions:       memory.NewTraderStore(),
		Ping:           func(context.Context) error { return errors.New("down") },
		Metrics:        observability.NewMetrics("test", prometheus.NewRegistry()),
		MetricsHandler: http.NotFoundHandler(),
		Logger:         logrus.New(),
	})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, failing, "/health").Code)
}
