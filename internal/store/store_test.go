package store

import (
	"testing"
	"time"

	"main/internal/model"
	"main/pkg/conn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	client, err := conn.New(conn.Option{Driver: conn.DriverSQLite, ConnString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	st := New(client.DB())
	require.NoError(t, st.Migrate())
	return st
}

func insert(t *testing.T, st *Store, sig model.Signal) model.Signal {
	t.Helper()
	require.NoError(t, st.InsertPending(&sig))
	return sig
}

func TestInsertPendingDefaults(t *testing.T) {
	st := newTestStore(t)
	sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500, Strategy: "trend"})

	got, err := st.Get(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.False(t, got.Processed)
	assert.Equal(t, 1, got.Volume, "volume defaults to 1")
	assert.Nil(t, got.OrderID)
}

func TestPendingOldestFirst(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	newest := insert(t, st, model.Signal{Symbol: "B", Action: model.ActionBuy, Price: 1, Timestamp: base.Add(time.Minute)})
	oldest := insert(t, st, model.Signal{Symbol: "A", Action: model.ActionBuy, Price: 1, Timestamp: base})

	pending, err := st.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, oldest.ID, pending[0].ID)
	assert.Equal(t, newest.ID, pending[1].ID)
}

func TestPendingExcludesNonPending(t *testing.T) {
	st := newTestStore(t)
	sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500})

	ok, err := st.MarkSubmitted(sig.ID, "ORDER_1")
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err := st.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMarkSubmittedSecondLeg(t *testing.T) {
	st := newTestStore(t)
	sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuyClose, Price: 3500, Volume: 4})

	ok, err := st.MarkSubmitted(sig.ID, "ORDER_1")
	require.NoError(t, err)
	require.True(t, ok)

	// Second close leg lands on the already-submitted row.
	ok, err = st.MarkSubmitted(sig.ID, "ORDER_2")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := st.Get(sig.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, "ORDER_2", *got.OrderID)
	assert.Equal(t, model.StatusSubmitted, got.Status)
}

func TestMarkSubmittedSkipsTerminalRow(t *testing.T) {
	st := newTestStore(t)
	sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500})

	_, err := st.Finalize(sig.ID, model.StatusRejected, "limit")
	require.NoError(t, err)

	ok, err := st.MarkSubmitted(sig.ID, "ORDER_1")
	require.NoError(t, err)
	assert.False(t, ok, "finalized row must not be resurrected")
}

func TestFinalizeStampsAndGuards(t *testing.T) {
	st := newTestStore(t)
	sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500})

	ok, err := st.Finalize(sig.ID, model.StatusPriceInvalid, "deviation 0.30%")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := st.Get(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPriceInvalid, got.Status)
	assert.True(t, got.Processed)
	require.NotNil(t, got.ProcessTime)
	assert.Equal(t, "deviation 0.30%", got.Message)

	// A second terminal write is ignored.
	ok, err = st.Finalize(sig.ID, model.StatusFailed, "later")
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := st.Get(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPriceInvalid, again.Status)

	// Finalize refuses non-terminal targets outright.
	_, err = st.Finalize(sig.ID, model.StatusSubmitted, "")
	assert.Error(t, err)
}

func TestTransitionByOrderID(t *testing.T) {
	st := newTestStore(t)
	sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500})
	_, err := st.MarkSubmitted(sig.ID, "X1")
	require.NoError(t, err)

	ok, err := st.TransitionByOrderID("X1", model.StatusPartial)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := st.Get(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, got.Status)
	assert.False(t, got.Processed, "non-terminal transitions do not stamp processed")
	assert.Nil(t, got.ProcessTime)

	ok, err = st.TransitionByOrderID("X1", model.StatusFilled)
	require.NoError(t, err)
	require.True(t, ok)

	got, err = st.Get(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFilled, got.Status)
	assert.True(t, got.Processed)
	require.NotNil(t, got.ProcessTime)
	firstStamp := *got.ProcessTime

	// Replayed terminal event leaves the row untouched.
	ok, err = st.TransitionByOrderID("X1", model.StatusFilled)
	require.NoError(t, err)
	assert.False(t, ok)

	// A late non-terminal callback cannot regress a terminal row.
	ok, err = st.TransitionByOrderID("X1", model.StatusSubmitted)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = st.Get(sig.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFilled, got.Status)
	assert.Equal(t, firstStamp.Unix(), got.ProcessTime.Unix())
}

func TestProcessedMatchesTerminalStatus(t *testing.T) {
	st := newTestStore(t)

	cases := []struct {
		status model.Status
		want   bool
	}{
		{model.StatusSubmitted, false},
		{model.StatusPartial, false},
		{model.StatusFilled, true},
		{model.StatusCancelled, true},
		{model.StatusRejected, true},
		{model.StatusFailed, true},
	}
	for i, tc := range cases {
		sig := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500})
		orderID := string(rune('A' + i))
		_, err := st.MarkSubmitted(sig.ID, orderID)
		require.NoError(t, err)
		_, err = st.TransitionByOrderID(orderID, tc.status)
		require.NoError(t, err)

		got, err := st.Get(sig.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Processed, "status %s", tc.status)
		assert.Equal(t, tc.want, got.ProcessTime != nil, "status %s", tc.status)
	}
}

func TestFilledOrderedByTime(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	late := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionSellClose, Price: 3550, Timestamp: base.Add(time.Hour)})
	early := insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500, Timestamp: base})
	insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 1, Timestamp: base.Add(2 * time.Hour)})

	for i, id := range []int64{late.ID, early.ID} {
		orderID := string(rune('A' + i))
		_, err := st.MarkSubmitted(id, orderID)
		require.NoError(t, err)
		_, err = st.TransitionByOrderID(orderID, model.StatusFilled)
		require.NoError(t, err)
	}

	filled, err := st.Filled()
	require.NoError(t, err)
	require.Len(t, filled, 2)
	assert.Equal(t, early.ID, filled[0].ID)
	assert.Equal(t, late.ID, filled[1].ID)
}

func TestUpsertAccount(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.Account()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.UpsertAccount(model.Account{Balance: 200000, Equity: 200500, Available: 150000, PositionProfit: 500}))
	require.NoError(t, st.UpsertAccount(model.Account{Balance: 201000, Equity: 201200, Available: 151000, PositionProfit: 200}))

	acc, ok, err := st.Account()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 201000.0, acc.Balance)
	assert.Equal(t, 200.0, acc.PositionProfit)
}

func TestPurge(t *testing.T) {
	st := newTestStore(t)
	insert(t, st, model.Signal{Symbol: "RB2510", Action: model.ActionBuy, Price: 3500})
	require.NoError(t, st.UpsertAccount(model.Account{Balance: 1}))

	require.NoError(t, st.Purge())

	rows, err := st.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, ok, err := st.Account()
	require.NoError(t, err)
	assert.False(t, ok)
}
