package intake

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"main/internal/contract"
	"main/internal/model"
	"main/internal/store"
	"main/pkg/conn"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*http.ServeMux, *store.Store) {
	t.Helper()
	client, err := conn.New(conn.Option{Driver: conn.DriverSQLite, ConnString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	st := store.New(client.DB())
	require.NoError(t, st.Migrate())

	srv := NewServer(st, contract.NewReference(10))
	return srv.Router(prometheus.NewRegistry()), st
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, sonic.ConfigFastest.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestWebhookInsertsPending(t *testing.T) {
	mux, st := newTestRouter(t)

	rec, resp := do(t, mux, http.MethodPost, "/webhook",
		`{"symbol":"RB2510","action":"buy","price":3520.5,"volume":2,"strategy":"trend"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Signal received", resp.Message)

	pending, err := st.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	sig := pending[0]
	assert.Equal(t, "RB2510", sig.Symbol)
	assert.Equal(t, model.ActionBuy, sig.Action, "action is upper-cased on intake")
	assert.Equal(t, 3520.5, sig.Price)
	assert.Equal(t, 2, sig.Volume)
	assert.Equal(t, "trend", sig.Strategy)
	assert.Equal(t, model.StatusPending, sig.Status)
}

func TestWebhookDefaultsVolume(t *testing.T) {
	mux, st := newTestRouter(t)

	rec, _ := do(t, mux, http.MethodPost, "/webhook",
		`{"symbol":"RB2510","action":"SELL","price":3500,"strategy":"trend"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	pending, err := st.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Volume)
}

func TestWebhookValidation(t *testing.T) {
	mux, _ := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"symbol":`},
		{"missing symbol", `{"action":"BUY","price":3500,"strategy":"trend"}`},
		{"missing action", `{"symbol":"RB2510","price":3500,"strategy":"trend"}`},
		{"missing strategy", `{"symbol":"RB2510","action":"BUY","price":3500}`},
		{"zero price", `{"symbol":"RB2510","action":"BUY","price":0,"strategy":"trend"}`},
		{"negative price", `{"symbol":"RB2510","action":"BUY","price":-1,"strategy":"trend"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := do(t, mux, http.MethodPost, "/webhook", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestSignalsEndpoint(t *testing.T) {
	mux, st := newTestRouter(t)
	sig := model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500, Strategy: "trend"}
	require.NoError(t, st.InsertPending(&sig))

	rec, resp := do(t, mux, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rows, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row, ok := rows[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RB2510", row["symbol"])
	assert.Equal(t, "pending", row["status"])
}

func TestProfitsEndpointMatchesRoundTrip(t *testing.T) {
	mux, st := newTestRouter(t)

	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	open := model.Signal{Symbol: "AP510", Action: model.ActionBuy, Price: 8000, Volume: 1, Strategy: "trend", Timestamp: base}
	require.NoError(t, st.InsertPending(&open))
	closeSig := model.Signal{Symbol: "AP510", Action: model.ActionSellClose, Price: 8050, Volume: 1, Strategy: "trend", Timestamp: base.Add(time.Hour)}
	require.NoError(t, st.InsertPending(&closeSig))

	for i, id := range []int64{open.ID, closeSig.ID} {
		orderID := string(rune('A' + i))
		_, err := st.MarkSubmitted(id, orderID)
		require.NoError(t, err)
		_, err = st.TransitionByOrderID(orderID, model.StatusFilled)
		require.NoError(t, err)
	}

	rec, resp := do(t, mux, http.MethodGet, "/api/profits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	trades, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, trades, 1)
	trade, ok := trades[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AP510", trade["symbol"])
	assert.InDelta(t, 50.0, trade["pointProfit"], 1e-9)
}

func TestAccountEndpoint(t *testing.T) {
	mux, st := newTestRouter(t)

	rec, resp := do(t, mux, http.MethodGet, "/api/account", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no account data available", resp.Error)

	require.NoError(t, st.UpsertAccount(model.Account{Balance: 200000, Equity: 201000, Available: 150000, PositionProfit: 1000}))

	rec, resp = do(t, mux, http.MethodGet, "/api/account", "")
	require.Equal(t, http.StatusOK, rec.Code)
	acc, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 200000.0, acc["balance"], 1e-9)
	assert.InDelta(t, 1000.0, acc["profit"], 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
