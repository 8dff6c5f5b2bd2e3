package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fplscraper/fplscraper/internal/config"
)

// Publisher pushes sensor states to Home Assistant and record snapshots to
// MQTT. Either transport can be disabled independently.
type Publisher struct {
	client      mqtt.Client
	httpClient  *http.Client
	topicPrefix string
	haConfig    config.HAConfig
}

// New validates the enabled transports and connects the MQTT client if
// configured.
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig) (*Publisher, error) {
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	var client mqtt.Client
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("fplscraper")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		topicPrefix: mqttCfg.GetTopicPrefix(),
		haConfig:    haCfg,
	}, nil
}

// HAPayload matches the Home Assistant backfill service call data
type HAPayload struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
	LastUpdated string `json:"last_updated"`
}

// EntityID builds the Home Assistant entity ID for one account sensor,
// e.g. sensor.fpl_1234567890_projected_bill.
func (p *Publisher) EntityID(account, key string) string {
	prefix := p.haConfig.EntityPrefix
	if prefix == "" {
		prefix = "sensor.fpl"
	}
	return fmt.Sprintf("%s_%s_%s", prefix, account, key)
}

// PublishState backfills a single sensor state into Home Assistant
func (p *Publisher) PublishState(entityID, state string, timestamp time.Time) error {
	if !p.haConfig.Enabled {
		return fmt.Errorf("Home Assistant publishing is not enabled in config")
	}

	apiURL := fmt.Sprintf("%s/api/appdaemon/backfill_state", p.haConfig.URL)

	payload := HAPayload{
		EntityID:    entityID,
		State:       state,
		LastChanged: timestamp.Format(time.RFC3339),
		LastUpdated: timestamp.Format(time.RFC3339),
	}

	return p.postJSON(apiURL, payload, 0, nil)
}

// GenerateStatistics asks Home Assistant to compile long-term statistics
// from the backfilled states of one entity. The response counters are
// returned for display.
func (p *Publisher) GenerateStatistics(entityID string) (inserted, updated int, err error) {
	if !p.haConfig.Enabled {
		return 0, 0, fmt.Errorf("Home Assistant publishing is not enabled in config")
	}

	apiURL := fmt.Sprintf("%s/api/appdaemon/generate_statistics", p.haConfig.URL)
	payload := map[string]string{"entity_id": entityID}

	var result map[string]interface{}
	// Statistics generation can take a while on a long backlog.
	if err := p.postJSON(apiURL, payload, 60*time.Second, &result); err != nil {
		return 0, 0, err
	}
	if v, ok := result["inserted"].(float64); ok {
		inserted = int(v)
	}
	if v, ok := result["updated"].(float64); ok {
		updated = int(v)
	}
	return inserted, updated, nil
}

// PublishMQTT publishes a JSON payload to {topic_prefix}/{topic}, retained
func (p *Publisher) PublishMQTT(topic string, payload interface{}) error {
	if p.client == nil {
		return fmt.Errorf("MQTT publishing is not enabled in config")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	fullTopic := fmt.Sprintf("%s/%s", p.topicPrefix, topic)
	if token := p.client.Publish(fullTopic, 0, true, body); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", fullTopic, token.Error())
	}
	return nil
}

func (p *Publisher) postJSON(apiURL string, payload interface{}, timeout time.Duration, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequest("POST", apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	client := p.httpClient
	if timeout > 0 {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
