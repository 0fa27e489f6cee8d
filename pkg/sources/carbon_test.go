package sources

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCarbonIntensity(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC)

	t.Run("walks back to the newest measured value", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/pt24h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"from":"2024-03-01T11:30Z","intensity":{"forecast":120,"actual":118,"index":"moderate"}},
				{"from":"2024-03-01T12:00Z","intensity":{"forecast":125,"actual":122,"index":"moderate"}},
				{"from":"2024-03-01T12:30Z","intensity":{"forecast":130,"actual":null,"index":"moderate"}}
			]}`)
		})
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/fw48h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[
				{"from":"2024-03-01T13:00Z","intensity":{"forecast":128,"index":"moderate"}},
				{"from":"2024-03-01T13:30Z","intensity":{"forecast":131,"index":"moderate"}}
			]}`)
		})
		c := testClient(t, mux)
		ci, err := c.GetCarbonIntensity(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 122, ci.CurrentValue)
		require.Len(t, ci.Forecast, 2)
		assert.Equal(t, 128, ci.Forecast[0].Intensity)
		assert.Equal(t, "moderate", ci.Forecast[0].Index)
		assert.Nil(t, ci.Region)
	})

	t.Run("forecast failure degrades to empty", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/pt24h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"from":"2024-03-01T12:00Z","intensity":{"forecast":125,"actual":122,"index":"moderate"}}]}`)
		})
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/fw48h", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		c := testClient(t, mux)
		ci, err := c.GetCarbonIntensity(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 122, ci.CurrentValue)
		assert.Empty(t, ci.Forecast)
	})

	t.Run("no measured value is unexpected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/pt24h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"from":"2024-03-01T12:00Z","intensity":{"forecast":125,"actual":null,"index":"moderate"}}]}`)
		})
		c := testClient(t, mux)
		_, err := c.GetCarbonIntensity(context.Background(), now)
		var dataErr *UnexpectedDataError
		require.ErrorAs(t, err, &dataErr)
	})

	t.Run("rejected api key is invalid auth", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "bad-key", r.Header.Get("X-Api-Key"))
			w.WriteHeader(http.StatusForbidden)
		})
		c := testClient(t, mux)
		c.SetCarbonCredentials("bad-key", 0)
		_, err := c.GetCarbonIntensity(context.Background(), now)
		var authErr *InvalidAuthError
		require.ErrorAs(t, err, &authErr)
		assert.False(t, IsRecoverable(err))
	})

	t.Run("regional figures when a region is configured", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/pt24h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"from":"2024-03-01T12:00Z","intensity":{"forecast":125,"actual":122,"index":"moderate"}}]}`)
		})
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/fw48h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		})
		mux.HandleFunc("/regional/regionid/13", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"shortname":"London","data":[{"from":"2024-03-01T12:30Z","intensity":{"forecast":141,"index":"high"}}]}]}`)
		})
		mux.HandleFunc("/regional/intensity/2024-03-01T12:45Z/fw48h/regionid/13", func(w http.ResponseWriter, r *http.Request) {
			// the secondary regional forecast degrades without failing the
			// category
			w.WriteHeader(http.StatusInternalServerError)
		})
		c := testClient(t, mux)
		c.SetCarbonCredentials("", 13)
		ci, err := c.GetCarbonIntensity(context.Background(), now)
		require.NoError(t, err)
		require.NotNil(t, ci.Region)
		assert.Equal(t, "London", ci.Region.RegionName)
		assert.Equal(t, 141, ci.Region.CurrentValue)
		assert.Empty(t, ci.Region.Forecast)
	})

	t.Run("regional current failure fails the category", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/pt24h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"from":"2024-03-01T12:00Z","intensity":{"forecast":125,"actual":122,"index":"moderate"}}]}`)
		})
		mux.HandleFunc("/intensity/2024-03-01T12:45Z/fw48h", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		})
		mux.HandleFunc("/regional/regionid/13", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		c := testClient(t, mux)
		c.SetCarbonCredentials("", 13)
		_, err := c.GetCarbonIntensity(context.Background(), now)
		var statusErr *UnexpectedStatusCodeError
		require.ErrorAs(t, err, &statusErr)
	})
}
