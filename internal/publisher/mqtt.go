package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/gridconvert/internal/config"
	"github.com/jgoulah/gridconvert/pkg/models"
)

// Publisher sends standard records to the time-series platform
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	platform    config.PlatformConfig
	httpClient  *http.Client
}

// New creates a new publisher (supports both MQTT and the platform HTTP API)
func New(mqttCfg config.MQTTConfig, platformCfg config.PlatformConfig) (*Publisher, error) {
	if !mqttCfg.Enabled && !platformCfg.Enabled {
		return nil, fmt.Errorf("neither MQTT nor the platform API is enabled in config")
	}

	// Validate platform config if enabled
	if platformCfg.Enabled {
		if platformCfg.URL == "" {
			return nil, fmt.Errorf("platform URL is required when enabled")
		}
		if platformCfg.Token == "" {
			return nil, fmt.Errorf("platform token is required when enabled")
		}
	}

	var client mqtt.Client
	topicPrefix := mqttCfg.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = "gridconvert"
	}

	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		// Configure MQTT client options
		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("gridconvert")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		// Create and connect client
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		platform:    platformCfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Topic returns the MQTT topic of a record
func (p *Publisher) Topic(rec models.StandardRecord) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, rec.SourceID, rec.VariableID)
}

// Publish sends one record over every enabled transport
func (p *Publisher) Publish(rec models.StandardRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	if p.client != nil {
		token := p.client.Publish(p.Topic(rec), 1, false, body)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publishing to MQTT: %w", token.Error())
		}
	}

	if p.platform.Enabled {
		if err := p.post(body); err != nil {
			return err
		}
	}

	return nil
}

func (p *Publisher) post(body []byte) error {
	req, err := http.NewRequest("POST", p.platform.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.platform.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read error response body for debugging
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
