package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coopernico/coopernico/pkg/sensor"
	"github.com/coopernico/coopernico/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSnapshots struct {
	snap types.Snapshot
	ok   bool
}

func (s staticSnapshots) Latest() (types.Snapshot, bool) {
	return s.snap, s.ok
}

func f(v float64) *float64 { return &v }

func testSnapshot() types.Snapshot {
	hourly := make(map[string]*float64, 24)
	for h := 0; h < 24; h++ {
		hourly[fmt.Sprintf("H%02d", h)] = nil
	}
	hourly["H10"] = f(0.0612)
	return types.Snapshot{
		CurrentPrice:       f(0.06118),
		CurrentTS:          "2026-03-10T10:30:00Z",
		HourlyToday:        hourly,
		HourlyTomorrow:     map[string]*float64{},
		Interval15Today:    map[string]float64{"H10M15": 0.0612},
		Interval15Tomorrow: map[string]float64{},
		LastUpdate:         "2026-03-10T10:30:00Z",
	}
}

func TestServer(t *testing.T) {
	t.Run("Healthz", func(t *testing.T) {
		srv := &Server{snapshots: staticSnapshots{}}
		ts := httptest.NewServer(srv.setupHandler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("SnapshotBeforeFirstRun", func(t *testing.T) {
		srv := &Server{snapshots: staticSnapshots{ok: false}}
		ts := httptest.NewServer(srv.setupHandler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/snapshot")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("Snapshot", func(t *testing.T) {
		srv := &Server{snapshots: staticSnapshots{snap: testSnapshot(), ok: true}}
		ts := httptest.NewServer(srv.setupHandler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/snapshot")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var snap types.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		require.NotNil(t, snap.CurrentPrice)
		assert.Equal(t, 0.06118, *snap.CurrentPrice)
		assert.Len(t, snap.HourlyToday, 24)
	})

	t.Run("Sensors", func(t *testing.T) {
		srv := &Server{snapshots: staticSnapshots{snap: testSnapshot(), ok: true}}
		ts := httptest.NewServer(srv.setupHandler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/sensors")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var readings []sensor.Reading
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&readings))
		assert.Len(t, readings, 1+2+48+192)
	})

	t.Run("SensorByID", func(t *testing.T) {
		srv := &Server{snapshots: staticSnapshots{snap: testSnapshot(), ok: true}}
		ts := httptest.NewServer(srv.setupHandler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/sensors/current_price")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var reading sensor.Reading
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&reading))
		assert.Equal(t, "current_price", reading.ID)
		require.NotNil(t, reading.Value)
		assert.Equal(t, 0.0612, *reading.Value)
	})

	t.Run("SensorUnknownID", func(t *testing.T) {
		srv := &Server{snapshots: staticSnapshots{snap: testSnapshot(), ok: true}}
		ts := httptest.NewServer(srv.setupHandler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/sensors/H99")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
