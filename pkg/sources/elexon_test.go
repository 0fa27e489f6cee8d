package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.URL, srv.URL, srv.URL+"/warnings")
}

func TestGetCurrentPrice(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)

	t.Run("rounds to two decimals", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/balancing/pricing/market-index", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "APXMIDP", r.URL.Query().Get("dataProviders"))
			assert.Equal(t, "2024-02-29", r.URL.Query().Get("from"))
			fmt.Fprint(w, `{"data":[{"price":85.456},{"price":90.1}]}`)
		})
		c := testClient(t, mux)
		price, err := c.GetCurrentPrice(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 85.46, price)
	})

	t.Run("empty data is unexpected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/balancing/pricing/market-index", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		})
		c := testClient(t, mux)
		_, err := c.GetCurrentPrice(context.Background(), now)
		var dataErr *UnexpectedDataError
		require.ErrorAs(t, err, &dataErr)
		assert.True(t, IsRecoverable(err))
	})

	t.Run("bad status", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/balancing/pricing/market-index", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		c := testClient(t, mux)
		_, err := c.GetCurrentPrice(context.Background(), now)
		var statusErr *UnexpectedStatusCodeError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	})
}

func TestGetCurrentFrequency(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/system/frequency", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"measurementTime":"2024-03-01T12:40:00Z","frequency":50.02},
			{"measurementTime":"2024-03-01T12:44:45Z","frequency":49.95}
		]}`)
	})
	c := testClient(t, mux)
	freq, err := c.GetCurrentFrequency(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 49.95, freq)
}

func TestGetGeneration(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)

	t.Run("maps fuel codes at the latest instant", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/datasets/FUELINST", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"startTime":"2024-03-01T12:35:00Z","publishTime":"2024-03-01T12:40:00Z","fuelType":"CCGT","generation":9999},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"CCGT","generation":11500},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"OCGT","generation":500},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"WIND","generation":6000},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"NUCLEAR","generation":4500},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"NPSHYD","generation":400},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"PS","generation":600},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"INTFR","generation":1000},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"INTELEC","generation":500},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"INTIFA2","generation":250},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"INTIRL","generation":-100},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"INTVKL","generation":700},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"BIOMASS","generation":2000}
			]}`)
		})
		c := testClient(t, mux)
		gen, err := c.GetGeneration(context.Background(), now)
		require.NoError(t, err)

		// CCGT+OCGT from the newest start time only
		assert.Equal(t, 12000, gen.GasMWH)
		assert.Equal(t, 6000, gen.NationalWindMWH)
		assert.Equal(t, 6000, gen.WindMWH)
		assert.Equal(t, 4500, gen.NuclearMWH)
		assert.Equal(t, 400, gen.HydroMWH)
		assert.Equal(t, 600, gen.PumpedStorageMWH)
		assert.Equal(t, 1750, gen.FranceMWH)
		assert.Equal(t, -100, gen.IrelandMWH)
		assert.Equal(t, 700, gen.DenmarkMW)
		assert.Equal(t, 2000, gen.BiomassMWH)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 44, 0, 0, time.UTC), gen.GridCollectionTime)
	})

	t.Run("malformed publish time falls back to the start time", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/datasets/FUELINST", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"garbage","fuelType":"CCGT","generation":12000},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"garbage","fuelType":"NUCLEAR","generation":4500}
			]}`)
		})
		c := testClient(t, mux)
		gen, err := c.GetGeneration(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC), gen.GridCollectionTime)
	})

	t.Run("all zero primary fuels is unexpected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/datasets/FUELINST", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"CCGT","generation":0},
				{"startTime":"2024-03-01T12:40:00Z","publishTime":"2024-03-01T12:44:00Z","fuelType":"WIND","generation":8000}
			]}`)
		})
		c := testClient(t, mux)
		_, err := c.GetGeneration(context.Background(), now)
		var dataErr *UnexpectedDataError
		require.ErrorAs(t, err, &dataErr)
	})
}

func TestGetWindForecast(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)

	t.Run("matches the current hour", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/forecast/generation/wind/latest", func(w http.ResponseWriter, r *http.Request) {
			// window snapped to the publication anchor
			assert.Equal(t, "2024-02-29T00:00:00Z", r.URL.Query().Get("from"))
			assert.Equal(t, "2024-03-03T20:00:00Z", r.URL.Query().Get("to"))
			fmt.Fprint(w, `{"data":[
				{"startTime":"2024-03-01T11:00:00Z","generation":7100},
				{"startTime":"2024-03-01T12:00:00Z","generation":7500},
				{"startTime":"2024-03-01T13:00:00Z","generation":7800}
			]}`)
		})
		c := testClient(t, mux)
		forecast, err := c.GetWindForecast(context.Background(), now, false)
		require.NoError(t, err)
		assert.Equal(t, 7500, forecast.CurrentValue)
		assert.Len(t, forecast.Forecast, 3)
	})

	t.Run("before 03:30 snaps back a day", func(t *testing.T) {
		early := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
		mux := http.NewServeMux()
		mux.HandleFunc("/forecast/generation/wind/earliest", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2024-02-28T00:00:00Z", r.URL.Query().Get("from"))
			assert.Equal(t, "2024-03-02T20:00:00Z", r.URL.Query().Get("to"))
			fmt.Fprint(w, `{"data":[{"startTime":"2024-03-01T02:00:00Z","generation":5000}]}`)
		})
		c := testClient(t, mux)
		forecast, err := c.GetWindForecast(context.Background(), early, true)
		require.NoError(t, err)
		assert.Equal(t, 5000, forecast.CurrentValue)
	})

	t.Run("missing current hour is unexpected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/forecast/generation/wind/latest", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"startTime":"2024-03-01T15:00:00Z","generation":7100}]}`)
		})
		c := testClient(t, mux)
		_, err := c.GetWindForecast(context.Background(), now, false)
		var dataErr *UnexpectedDataError
		require.ErrorAs(t, err, &dataErr)
	})
}

func TestGetWindPeaks(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)

	t.Run("matches by settlement date", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/forecast/generation/wind/peak", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"settlementDate":"2024-03-02","startTime":"2024-03-02T18:00:00Z","generation":9900},
				{"settlementDate":"2024-03-01","startTime":"2024-03-01T17:30:00Z","generation":9100}
			]}`)
		})
		c := testClient(t, mux)
		wd, err := c.GetWindPeaks(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 9100.0, wd.TodayPeak)
		assert.Equal(t, time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC), wd.TodayPeakTime)
		assert.Equal(t, 9900.0, wd.TomorrowPeak)
	})

	t.Run("positional fallback when dates don't line up", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/forecast/generation/wind/peak", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"settlementDate":"2024-03-05","startTime":"2024-03-05T18:00:00Z","generation":8000},
				{"settlementDate":"2024-03-06","startTime":"2024-03-06T18:00:00Z","generation":8500}
			]}`)
		})
		c := testClient(t, mux)
		wd, err := c.GetWindPeaks(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 8000.0, wd.TodayPeak)
		assert.Equal(t, 8500.0, wd.TomorrowPeak)
	})
}

func TestGetSolarForecast(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/generation/wind-and-solar/day-ahead", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"businessType":"Wind generation","settlementDate":"2024-03-01","settlementPeriod":27,"quantity":9999},
			{"businessType":"Solar generation","settlementDate":"2024-03-01","settlementPeriod":27,"quantity":3100},
			{"businessType":"Solar generation","settlementDate":"2024-03-01","settlementPeriod":27,"quantity":3200},
			{"businessType":"Solar generation","settlementDate":"2024-03-01","settlementPeriod":28,"quantity":2900}
		]}`)
	})
	c := testClient(t, mux)
	forecast, err := c.GetSolarForecast(context.Background(), now)
	require.NoError(t, err)

	// duplicate settlement periods collapse to the first record, wind rows
	// are ignored
	require.Len(t, forecast.Forecast, 2)
	// period 27 starts at 13:00, which is the nearest half hour to 12:45
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), forecast.Forecast[0].StartTime)
	assert.Equal(t, 3100, forecast.CurrentValue)
}

func TestGetDemandDayAhead(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/demand/day-ahead/latest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "N", r.URL.Query().Get("boundary"))
		fmt.Fprint(w, `{"data":[
			{"startTime":"2024-03-01T13:00:00Z","transmissionSystemDemand":32000,"nationalDemand":30500},
			{"startTime":"2024-03-01T13:30:00Z","transmissionSystemDemand":31000,"nationalDemand":29800}
		]}`)
	})
	c := testClient(t, mux)
	forecast, err := c.GetDemandDayAhead(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 30500, forecast.CurrentValue)
	require.Len(t, forecast.Forecast, 2)
	assert.Equal(t, 32000, forecast.Forecast[0].TransmissionDemand)
}
