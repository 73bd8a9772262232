package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/storage/memory"
)

func newTestServer(t *testing.T, snapshots *memory.SnapshotStore) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewHandler(snapshots, nil).Router())
	t.Cleanup(server.Close)
	return server
}

func getSeries(t *testing.T, url string) (int, []seriesPoint) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var points []seriesPoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&points))
	return resp.StatusCode, points
}

func TestHandler_Health(t *testing.T) {
	server := newTestServer(t, memory.NewSnapshotStore())

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_LastWeek(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	snapshots.Now = func() time.Time { return now }

	inWindow := now.AddDate(0, 0, -2).Unix()
	require.NoError(t, snapshots.Insert(context.Background(), &domain.Snapshot{
		AgentAddress: "AGENT1", Asset: "asset1", USDPrice: 1.5, Timestamp: inWindow,
	}))

	server := newTestServer(t, snapshots)

	status, points := getSeries(t, server.URL+"/api/lastWeek?asset=asset1")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, points, 1)
	assert.Equal(t, inWindow, points[0].Timestamp)
	assert.InDelta(t, 1.5, points[0].Price, 0.0001)
}

func TestHandler_LastWeekMissingAsset(t *testing.T) {
	server := newTestServer(t, memory.NewSnapshotStore())

	status, _ := getSeries(t, server.URL+"/api/lastWeek")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_LastWeekBadTzOffset(t *testing.T) {
	server := newTestServer(t, memory.NewSnapshotStore())

	status, _ := getSeries(t, server.URL+"/api/lastWeek?asset=asset1&tzOffset=abc")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_LastWeekEmptySeries(t *testing.T) {
	server := newTestServer(t, memory.NewSnapshotStore())

	status, points := getSeries(t, server.URL+"/api/lastWeek?asset=unknown")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, points)
}

func TestHandler_LastMonth(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	snapshots.Now = func() time.Time { return now }

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, snapshots.Insert(ctx, &domain.Snapshot{
		AgentAddress: "AGENT1", Asset: "asset1", USDPrice: 2.0, Timestamp: day.Add(4 * time.Hour).Unix(),
	}))
	require.NoError(t, snapshots.Insert(ctx, &domain.Snapshot{
		AgentAddress: "AGENT1", Asset: "asset1", USDPrice: 1.0, Timestamp: day.Add(1 * time.Hour).Unix(),
	}))

	server := newTestServer(t, snapshots)

	status, points := getSeries(t, server.URL+"/api/lastMonth?asset=asset1")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, points, 1)
	assert.Equal(t, day.Add(1*time.Hour).Unix(), points[0].Timestamp)
	assert.InDelta(t, 1.0, points[0].Price, 0.0001)
}

func TestHandler_LastMonthMissingAsset(t *testing.T) {
	server := newTestServer(t, memory.NewSnapshotStore())

	status, _ := getSeries(t, server.URL+"/api/lastMonth")
	assert.Equal(t, http.StatusBadRequest, status)
}
