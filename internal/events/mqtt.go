package events

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/metrics"
	"github.com/snarg/mallok/internal/task"
)

// publisher is the subset of mqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes status events to <prefix>/tasks/<task_id>/status.
type MQTTPublisher struct {
	conn      mqtt.Client
	pub       publisher
	prefix    string
	qos       byte
	timeout   time.Duration
	connected atomic.Bool
	log       zerolog.Logger
}

type MQTTOptions struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Log         zerolog.Logger
}

// ConnectMQTT dials the broker and returns a publisher that reconnects on its
// own after connection loss.
func ConnectMQTT(opts MQTTOptions) (*MQTTPublisher, error) {
	p := newMQTTPublisher(nil, opts)

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	p.pub = p.conn
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return p, nil
}

func newMQTTPublisher(pub publisher, opts MQTTOptions) *MQTTPublisher {
	prefix := strings.Trim(opts.TopicPrefix, "/")
	if prefix == "" {
		prefix = "mallok"
	}
	return &MQTTPublisher{
		pub:     pub,
		prefix:  prefix,
		qos:     opts.QoS,
		timeout: 5 * time.Second,
		log:     opts.Log,
	}
}

func (p *MQTTPublisher) onConnect(_ mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Str("prefix", p.prefix).Msg("mqtt connected")
}

func (p *MQTTPublisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// Topic returns the status topic for a task.
func (p *MQTTPublisher) Topic(taskID string) string {
	return p.prefix + "/tasks/" + taskID + "/status"
}

// Publish sends ev without blocking the caller. Delivery failures are logged
// and counted.
func (p *MQTTPublisher) Publish(ev task.StatusEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return
	}
	// Terminal states are retained so late subscribers still see the outcome.
	token := p.pub.Publish(p.Topic(ev.TaskID), p.qos, ev.Status.Terminal(), payload)
	go p.await(token, ev)
}

func (p *MQTTPublisher) await(token mqtt.Token, ev task.StatusEvent) {
	if !token.WaitTimeout(p.timeout) {
		metrics.EventsPublishedTotal.WithLabelValues("timeout").Inc()
		p.log.Warn().Str("task_id", ev.TaskID).Str("status", string(ev.Status)).Msg("mqtt publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		p.log.Warn().Err(err).Str("task_id", ev.TaskID).Msg("mqtt publish failed")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
}

func (p *MQTTPublisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *MQTTPublisher) Close() {
	if p.conn == nil {
		return
	}
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}
