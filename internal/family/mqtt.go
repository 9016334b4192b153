package family

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// Timeouts for broker operations.
const (
	ConnectTimeout    = 30 * time.Second
	PublishTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
	publishAttempts   = 3
	publishRetryDelay = 500 * time.Millisecond
)

// MQTTConfig configures an MQTTMessenger.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
	// From is the address envelopes are signed with.
	From string
}

// MQTTConfigFromSettings maps the family settings onto an MQTTConfig.
func MQTTConfigFromSettings(s *conf.FamilySettings, from string) MQTTConfig {
	return MQTTConfig{
		Broker:      s.Broker,
		ClientID:    s.ClientID,
		TopicPrefix: s.TopicPrefix,
		Username:    s.Username,
		Password:    s.Password,
		QoS:         byte(s.QoS),
		From:        from,
	}
}

// InboxTopic returns the topic messages for address are published to.
func InboxTopic(prefix, address string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "eyedrop-checker"
	}
	return prefix + "/inbox/" + url.QueryEscape(address)
}

type subscription struct {
	topic   string
	handler Handler
}

// MQTTMessenger publishes envelopes to each recipient's inbox topic and delivers
// envelopes from subscribed inboxes.
type MQTTMessenger struct {
	config  MQTTConfig
	client  mqtt.Client
	metrics *metrics.FamilyMetrics
	log     logger.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewMQTTMessenger creates a messenger for cfg. Connect must be called before Send.
func NewMQTTMessenger(cfg MQTTConfig, m *metrics.FamilyMetrics) (*MQTTMessenger, error) {
	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component("family").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.QoS > 2 {
		return nil, errors.Newf("invalid mqtt qos %d", cfg.QoS).
			Component("family").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "eyedrop-checker-" + uuid.NewString()[:8]
	}

	mm := &MQTTMessenger{
		config:  cfg,
		metrics: m,
		log:     GetLogger().With(logger.String("broker", cfg.Broker)),
		subs:    make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetOrderMatters(false)
	opts.SetConnectTimeout(ConnectTimeout)
	opts.SetOnConnectHandler(mm.onConnect)
	opts.SetConnectionLostHandler(mm.onConnectionLost)
	mm.client = mqtt.NewClient(opts)
	return mm, nil
}

// Connect connects to the broker, giving up when ctx is done.
func (m *MQTTMessenger) Connect(ctx context.Context) error {
	token := m.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		m.log.Error("failed to connect to mqtt broker", logger.Error(err))
		return errors.New(err).
			Component("family").
			Category(errors.CategoryMQTTConnection).
			Context("broker", m.config.Broker).
			Build()
	}
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (m *MQTTMessenger) IsConnected() bool {
	return m.client.IsConnected()
}

// Disconnect closes the broker connection.
func (m *MQTTMessenger) Disconnect() {
	if m.client.IsConnected() {
		m.client.Disconnect(disconnectQuiesce)
	}
	if m.metrics != nil {
		m.metrics.UpdateConnectionStatus(false)
	}
}

// Send publishes one envelope per recipient. Delivery stops at the first
// recipient that cannot be published to.
func (m *MQTTMessenger) Send(ctx context.Context, recipients []string, message, kind string) error {
	if !m.client.IsConnected() {
		return errors.Newf("not connected to mqtt broker").
			Component("family").
			Category(errors.CategoryMQTTConnection).
			Context("broker", m.config.Broker).
			Build()
	}
	for _, to := range recipients {
		env := NewEnvelope(m.config.From, to, kind, message)
		payload, err := json.Marshal(env)
		if err != nil {
			return errors.New(err).
				Component("family").
				Category(errors.CategoryMQTTPublish).
				Build()
		}
		topic := InboxTopic(m.config.TopicPrefix, to)
		if err := m.publish(ctx, topic, payload); err != nil {
			return errors.New(err).
				Component("family").
				Category(errors.CategoryMQTTPublish).
				Context("topic", topic).
				Build()
		}
		m.log.Debug("published family message",
			logger.String("topic", topic),
			logger.String("id", env.ID))
	}
	return nil
}

func (m *MQTTMessenger) publish(ctx context.Context, topic string, payload []byte) error {
	return retry.Do(
		func() error {
			token := m.client.Publish(topic, m.config.QoS, false, payload)
			if !token.WaitTimeout(PublishTimeout) {
				return errors.NewStd("publish timed out")
			}
			return token.Error()
		},
		retry.Context(ctx),
		retry.Attempts(publishAttempts),
		retry.Delay(publishRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.log.Warn("retrying mqtt publish",
				logger.String("topic", topic),
				logger.Int("attempt", int(n)+1),
				logger.Error(err))
		}),
	)
}

// Subscribe delivers envelopes published to address's inbox until ctx is done.
// The subscription is restored after a reconnect.
func (m *MQTTMessenger) Subscribe(ctx context.Context, address string, handler Handler) error {
	sub := subscription{topic: InboxTopic(m.config.TopicPrefix, address), handler: handler}

	m.mu.Lock()
	m.subs[sub.topic] = sub
	m.mu.Unlock()

	if m.client.IsConnected() {
		token := m.client.Subscribe(sub.topic, m.config.QoS, m.messageHandler(sub))
		if !token.WaitTimeout(PublishTimeout) || token.Error() != nil {
			m.mu.Lock()
			delete(m.subs, sub.topic)
			m.mu.Unlock()
			err := token.Error()
			if err == nil {
				err = errors.NewStd("subscribe timed out")
			}
			return errors.New(err).
				Component("family").
				Category(errors.CategoryMQTTConnection).
				Context("topic", sub.topic).
				Build()
		}
	}

	context.AfterFunc(ctx, func() {
		m.mu.Lock()
		delete(m.subs, sub.topic)
		m.mu.Unlock()
		if m.client.IsConnected() {
			m.client.Unsubscribe(sub.topic).WaitTimeout(PublishTimeout)
		}
	})
	m.log.Info("subscribed to family inbox", logger.String("topic", sub.topic))
	return nil
}

func (m *MQTTMessenger) messageHandler(sub subscription) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var env Envelope
		if err := json.Unmarshal(msg.Payload(), &env); err != nil {
			m.log.Warn("dropping malformed family message",
				logger.String("topic", msg.Topic()),
				logger.Error(err))
			return
		}
		if m.metrics != nil {
			m.metrics.RecordReceived()
		}
		sub.handler(env)
	}
}

func (m *MQTTMessenger) onConnect(c mqtt.Client) {
	m.log.Info("connected to mqtt broker")
	if m.metrics != nil {
		m.metrics.UpdateConnectionStatus(true)
	}

	m.mu.Lock()
	subs := make([]subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	// Clean sessions drop subscriptions on reconnect.
	for _, s := range subs {
		token := c.Subscribe(s.topic, m.config.QoS, m.messageHandler(s))
		go func() {
			if token.WaitTimeout(PublishTimeout) && token.Error() == nil {
				return
			}
			m.log.Warn("failed to restore family subscription", logger.String("topic", s.topic))
		}()
	}
}

func (m *MQTTMessenger) onConnectionLost(_ mqtt.Client, err error) {
	m.log.Warn("connection to mqtt broker lost", logger.Error(err))
	if m.metrics != nil {
		m.metrics.UpdateConnectionStatus(false)
	}
}
