package publisher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fplscraper/fplscraper/internal/config"
)

func testPublisher(ts *httptest.Server) *Publisher {
	return &Publisher{
		httpClient:  ts.Client(),
		topicPrefix: "fpl",
		haConfig: config.HAConfig{
			Enabled: true,
			URL:     ts.URL,
			Token:   "ha-tok",
		},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(config.MQTTConfig{}, config.HAConfig{Enabled: true, Token: "tok"})
	assert.Error(t, err, "enabled HA needs a URL")

	_, err = New(config.MQTTConfig{}, config.HAConfig{Enabled: true, URL: "http://ha.local"})
	assert.Error(t, err, "enabled HA needs a token")

	_, err = New(config.MQTTConfig{Enabled: true}, config.HAConfig{})
	assert.Error(t, err, "enabled MQTT needs a broker")

	pub, err := New(config.MQTTConfig{}, config.HAConfig{})
	require.NoError(t, err, "everything disabled is a valid publisher")
	pub.Close()
}

func TestPublishState(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var got HAPayload
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/appdaemon/backfill_state", r.URL.Path)
			assert.Equal(t, "Bearer ha-tok", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			fmt.Fprint(w, `{}`)
		}))
		defer ts.Close()

		ts2 := time.Date(2022, 3, 10, 12, 0, 0, 0, time.UTC)
		err := testPublisher(ts).PublishState("sensor.fpl_111_projected_bill", "120.00", ts2)
		require.NoError(t, err)

		assert.Equal(t, "sensor.fpl_111_projected_bill", got.EntityID)
		assert.Equal(t, "120.00", got.State)
		assert.Equal(t, "2022-03-10T12:00:00Z", got.LastChanged)
		assert.Equal(t, got.LastChanged, got.LastUpdated)
	})

	t.Run("HTTPError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such service", http.StatusNotFound)
		}))
		defer ts.Close()

		err := testPublisher(ts).PublishState("sensor.fpl_111_balance", "1.00", time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("Disabled", func(t *testing.T) {
		pub := &Publisher{httpClient: http.DefaultClient}
		err := pub.PublishState("sensor.fpl_111_balance", "1.00", time.Now())
		assert.Error(t, err)
	})
}

func TestGenerateStatistics(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/appdaemon/generate_statistics", r.URL.Path)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "sensor.fpl_111_daily_usage_kwh", payload["entity_id"])

			fmt.Fprint(w, `{"inserted":24,"updated":3,"total_hours":27}`)
		}))
		defer ts.Close()

		inserted, updated, err := testPublisher(ts).GenerateStatistics("sensor.fpl_111_daily_usage_kwh")
		require.NoError(t, err)
		assert.Equal(t, 24, inserted)
		assert.Equal(t, 3, updated)
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}))
		defer ts.Close()

		_, _, err := testPublisher(ts).GenerateStatistics("sensor.fpl_111_daily_usage_kwh")
		assert.Error(t, err)
	})

	t.Run("HTTPError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "appdaemon down", http.StatusBadGateway)
		}))
		defer ts.Close()

		_, _, err := testPublisher(ts).GenerateStatistics("sensor.fpl_111_daily_usage_kwh")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})
}

func TestEntityID(t *testing.T) {
	pub := &Publisher{haConfig: config.HAConfig{}}
	assert.Equal(t, "sensor.fpl_111_balance", pub.EntityID("111", "balance"))

	pub.haConfig.EntityPrefix = "sensor.power"
	assert.Equal(t, "sensor.power_111_balance", pub.EntityID("111", "balance"))
}

func TestPublishMQTTDisabled(t *testing.T) {
	pub := &Publisher{}
	err := pub.PublishMQTT("111/state", map[string]string{"k": "v"})
	assert.Error(t, err, "publishing without a connected client must fail, not panic")
}
