package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/go-logr/logr"

	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	TopicRoot string
	QoS       int
	Username  string
	Password  string
}

type mqttPublisher interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
}

// MQTTSink publishes slot events to "<root>/slots/<slotId>/<event type>" and
// slot-less events to "<root>/events/<event type>".
type MQTTSink struct {
	pub  mqttPublisher
	cm   *autopaho.ConnectionManager
	root string
	qos  byte
}

// NewMQTTSink starts a reconnecting broker connection bound to ctx.
func NewMQTTSink(ctx context.Context, cfg MQTTConfig, logger log.Logger) (*MQTTSink, error) {
	brokerURL, err := url.Parse(cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse mqtt broker url: %w", err)
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.QoS)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.WithName("mqtt")

	cm, err := autopaho.NewConnection(ctx, autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectUsername:               cfg.Username,
		ConnectPassword:               []byte(cfg.Password),
		Debug:                         pahoLogger{logger.Logr().V(1)},
		Errors:                        pahoLogger{logger.Logr()},
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			logger.Info("mqtt connection established", "broker", cfg.BrokerURL)
		},
		OnConnectError: func(err error) {
			logger.Error(err, "mqtt connection failed, retrying")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnClientError: func(err error) {
				logger.Error(err, "mqtt client error")
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start mqtt connection: %w", err)
	}

	s := newMQTTSink(cm, cfg.TopicRoot, byte(cfg.QoS))
	s.cm = cm
	return s, nil
}

func newMQTTSink(pub mqttPublisher, root string, qos byte) *MQTTSink {
	if root == "" {
		root = "cryovault"
	}
	return &MQTTSink{pub: pub, root: root, qos: qos}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Topic(msg Message) string {
	if msg.SlotID == "" {
		return s.root + "/events/" + string(msg.Type)
	}
	return s.root + "/slots/" + msg.SlotID + "/" + string(msg.Type)
}

func (s *MQTTSink) Send(ctx context.Context, msg Message) error {
	_, err := s.pub.Publish(ctx, &paho.Publish{
		Topic:   s.Topic(msg),
		QoS:     s.qos,
		Payload: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close(ctx context.Context) error {
	if s.cm == nil {
		return nil
	}
	return s.cm.Disconnect(ctx)
}

// pahoLogger routes the client's internal logging through logr.
type pahoLogger struct {
	l logr.Logger
}

func (p pahoLogger) Println(v ...any) {
	p.l.Info(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (p pahoLogger) Printf(format string, v ...any) {
	p.l.Info(fmt.Sprintf(format, v...))
}
