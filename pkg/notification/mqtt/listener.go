package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/payload"
)

// requestTopicFilter matches every request envelope regardless of object
// type and key.
const requestTopicFilter = "+/request/#"

// Handler consumes one inbound request envelope.
type Handler func(ctx context.Context, p *payload.Payload)

// MQTTListenerConfig configures the request listener.
type MQTTListenerConfig struct {
	// BrokerURL is the broker address, e.g. "tcp://localhost:1883".
	BrokerURL string

	// ClientID identifies this client to the broker.
	ClientID string

	// Username and Password are optional broker credentials.
	Username string
	Password string

	// ConnectTimeout bounds the initial connection (default 10s).
	ConnectTimeout time.Duration

	// DefaultSender is recorded on envelopes arriving without one.
	DefaultSender string
}

// MQTTListener subscribes to the request topics and rebuilds the envelopes
// arriving on them.
type MQTTListener struct {
	client paho.Client
	sender string
}

// NewMQTTListener connects to the broker and returns a listener.
func NewMQTTListener(cfg MQTTListenerConfig) (*MQTTListener, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("broker URL is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	if cfg.Username != "" {
		opts = opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to broker %s", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", cfg.BrokerURL, err)
	}
	return &MQTTListener{client: client, sender: cfg.DefaultSender}, nil
}

// Listen subscribes to the request topics and blocks until the context is
// cancelled. Malformed messages are logged and dropped; they never stop the
// subscription.
func (l *MQTTListener) Listen(ctx context.Context, handler Handler) error {
	token := l.client.Subscribe(requestTopicFilter, 0, func(_ paho.Client, msg paho.Message) {
		p, err := decodeRequest(msg.Topic(), msg.Payload(), l.sender)
		if err != nil {
			logger.Warn("dropping request on topic %q: %v", msg.Topic(), err)
			return
		}
		handler(ctx, p)
	})
	if !token.Wait() {
		return fmt.Errorf("failed to subscribe to %q", requestTopicFilter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", requestTopicFilter, err)
	}

	logger.Info("listening for requests on %q", requestTopicFilter)
	<-ctx.Done()

	if token := l.client.Unsubscribe(requestTopicFilter); token.Wait() && token.Error() != nil {
		logger.Warn("failed to unsubscribe from %q: %v", requestTopicFilter, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (l *MQTTListener) Close() error {
	l.client.Disconnect(250)
	return nil
}

// decodeRequest rebuilds a request envelope from its topic and body. The
// topic carries the classification ("<op>/request/<object>/<key...>"), the
// body carries the document.
func decodeRequest(topic string, body []byte, defaultSender string) (*payload.Payload, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return nil, fmt.Errorf("topic %q has no classification", topic)
	}
	opName, opType, objType := parts[0], parts[1], parts[2]
	if opType != payload.TypeRequest {
		return nil, fmt.Errorf("topic %q is not a request", topic)
	}
	switch opName {
	case payload.OpCreate, payload.OpUpdate, payload.OpDelete:
	default:
		return nil, fmt.Errorf("unknown operation %q", opName)
	}
	switch objType {
	case payload.ObjCollection, payload.ObjResource, payload.ObjUser, payload.ObjGroup:
	default:
		return nil, fmt.Errorf("unknown object type %q", objType)
	}

	doc := make(map[string]any)
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("invalid document: %w", err)
		}
	}

	return payload.New(opName, payload.TypeRequest, objType, doc, defaultSender), nil
}
