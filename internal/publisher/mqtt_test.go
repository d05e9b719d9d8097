package publisher

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridconvert/internal/config"
	"github.com/jgoulah/gridconvert/pkg/models"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	payload []byte
}

// fakeClient records publishes; other client methods are not used
type fakeClient struct {
	mqtt.Client
	sent []published
	err  error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) IsConnected() bool { return false }

var record = models.StandardRecord{Date: "2024-01-01 00:00:00", Value: "1.5", SourceID: "42", VariableID: "7"}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(config.MQTTConfig{}, config.PlatformConfig{})
	assert.Error(t, err)

	_, err = New(config.MQTTConfig{}, config.PlatformConfig{Enabled: true, Token: "x"})
	assert.Error(t, err)

	_, err = New(config.MQTTConfig{}, config.PlatformConfig{Enabled: true, URL: "http://localhost"})
	assert.Error(t, err)

	_, err = New(config.MQTTConfig{Enabled: true}, config.PlatformConfig{})
	assert.Error(t, err)

	p, err := New(config.MQTTConfig{}, config.PlatformConfig{Enabled: true, URL: "http://localhost", Token: "x"})
	require.NoError(t, err)
	assert.Equal(t, "gridconvert/42/7", p.Topic(record))
	p.Close()
}

func TestPublishHTTP(t *testing.T) {
	var got models.StandardRecord
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p, err := New(config.MQTTConfig{}, config.PlatformConfig{Enabled: true, URL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	require.NoError(t, p.Publish(record))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, record, got)
}

func TestPublishHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad variable", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p, err := New(config.MQTTConfig{}, config.PlatformConfig{Enabled: true, URL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	err = p.Publish(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "bad variable")
}

func TestPublishMQTT(t *testing.T) {
	client := &fakeClient{}
	p := &Publisher{client: client, topicPrefix: "site"}

	require.NoError(t, p.Publish(record))
	require.Len(t, client.sent, 1)
	assert.Equal(t, "site/42/7", client.sent[0].topic)
	assert.JSONEq(t, `{"date":"2024-01-01 00:00:00","value":"1.5","source_id":"42","variable_id":"7"}`, string(client.sent[0].payload))

	client.err = errors.New("not connected")
	assert.Error(t, p.Publish(record))
	p.Close()
}
