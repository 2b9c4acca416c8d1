// Package mqttbus implements internal/bus.Client on top of
// github.com/eclipse/paho.mqtt.golang, per SPEC_FULL.md §4.6.
package mqttbus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/scenescape/tracker/internal/bus"
	"github.com/scenescape/tracker/internal/busguard"
	"github.com/scenescape/tracker/internal/errs"
)

const (
	keepAlive           = 60 * time.Second
	connectTimeout       = 10 * time.Second
	minReconnectInterval = 1 * time.Second
	publishQoS           = byte(1)
	subscribeQoS         = byte(1)
	disconnectGraceMS    = 250
)

// TLSConfig carries the optional mutual-TLS material for a secure broker
// connection.
type TLSConfig struct {
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
	VerifyServer   bool
}

// Config describes how to reach the broker.
type Config struct {
	Host                string
	Port                int
	Insecure            bool
	TLS                 *TLSConfig
	ClientID            string
	MaxReconnectDelay   time.Duration
}

// Client is a bus.Client backed by one paho MQTT connection. Connection
// lifecycle events, reconnect, and pending-subscription re-issue are
// handled the way Paho's own OnConnect/OnConnectionLost hooks are commonly
// wired: SetAutoReconnect plus explicit state tracking, since Paho manages
// the retry loop itself once connected once.
type Client struct {
	cfg Config

	inner mqtt.Client

	mu            sync.Mutex
	handlers      map[string]bus.MessageHandler
	pending       map[string]bool
	connected     bool
	subscribed    bool

	guard busguard.Counter
}

var _ bus.Client = (*Client)(nil)

// New builds a disconnected client. Call Connect to establish the session.
func New(cfg Config) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = generateClientID()
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = 30 * time.Second
	}
	return &Client{
		cfg:      cfg,
		handlers: make(map[string]bus.MessageHandler),
		pending:  make(map[string]bool),
	}
}

func generateClientID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("tracker-%s-%d", host, os.Getpid())
}

// nonRetryableConnackReasons lists the paho connect-error strings that
// correspond to MQTT v3.1.1 CONNACK codes 1 (unacceptable protocol), 2
// (identifier rejected), 4 (bad credentials) and 5 (not authorized) — the
// auth/protocol rejections a reconnect loop cannot fix. Every other
// connect failure (refused connection, DNS failure, server unavailable,
// timeout) is retryable.
var nonRetryableConnackReasons = []string{
	"unacceptable protocol version",
	"identifier rejected",
	"bad user name or password",
	"not authorized",
}

func isRetryableConnectError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, reason := range nonRetryableConnackReasons {
		if strings.Contains(msg, reason) {
			return false
		}
	}
	return true
}

func (c *Client) scheme() string {
	if c.cfg.Insecure {
		return "tcp"
	}
	return "ssl"
}

func (c *Client) buildTLSConfig() (*tls.Config, error) {
	if c.cfg.TLS == nil {
		return &tls.Config{}, nil
	}
	t := c.cfg.TLS
	tlsCfg := &tls.Config{InsecureSkipVerify: !t.VerifyServer}

	if t.CACertPath != "" {
		pem, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, errs.NewConfigError("reading TLS CA certificate", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errs.NewConfigError("parsing TLS CA certificate", nil)
		}
		tlsCfg.RootCAs = pool
	}

	if t.ClientCertPath != "" && t.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.ClientCertPath, t.ClientKeyPath)
		if err != nil {
			return nil, errs.NewConfigError("loading TLS client certificate/key", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}

// Connect builds the paho client options and blocks for the initial
// connection attempt. On failure it classifies the error via
// isRetryableConnectError and wraps it as *errs.BusTransient or
// *errs.BusPermanent accordingly.
func (c *Client) Connect(ctx context.Context) error {
	tlsCfg, err := c.buildTLSConfig()
	if err != nil {
		return err
	}

	broker := fmt.Sprintf("%s://%s:%d", c.scheme(), c.cfg.Host, c.cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.cfg.MaxReconnectDelay)
	opts.SetKeepAlive(keepAlive)
	opts.SetConnectTimeout(connectTimeout)
	if !c.cfg.Insecure {
		opts.SetTLSConfig(tlsCfg)
	}
	opts.OnConnect = c.onConnect
	opts.OnConnectionLost = c.onConnectionLost
	opts.DefaultPublishHandler = c.onMessage

	c.inner = mqtt.NewClient(opts)

	log.Info().Str("component", "mqtt").Str("broker", broker).Str("client_id", c.cfg.ClientID).Msg("connecting")

	token := c.inner.Connect()
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return &errs.BusTransient{Err: ctx.Err()}
	case <-done:
	}

	if err := token.Error(); err != nil {
		if !isRetryableConnectError(err) {
			return &errs.BusPermanent{Err: err}
		}
		return &errs.BusTransient{Err: err}
	}
	return nil
}

func (c *Client) onConnect(cl mqtt.Client) {
	tok := c.guard.Acquire()
	defer tok.Release()
	if tok.ShouldSkip() {
		return
	}

	c.mu.Lock()
	c.connected = true
	topics := make([]string, 0, len(c.pending))
	for topic := range c.pending {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	log.Info().Str("component", "mqtt").Msg("connected")

	for _, topic := range topics {
		c.doSubscribe(topic)
	}
}

func (c *Client) onConnectionLost(cl mqtt.Client, err error) {
	tok := c.guard.Acquire()
	defer tok.Release()
	if tok.ShouldSkip() {
		return
	}

	c.mu.Lock()
	c.connected = false
	c.subscribed = false
	c.mu.Unlock()

	log.Warn().Str("component", "mqtt").Err(err).Msg("connection lost, auto-reconnect will retry")
}

func (c *Client) onMessage(cl mqtt.Client, msg mqtt.Message) {
	tok := c.guard.Acquire()
	defer tok.Release()
	if tok.ShouldSkip() {
		return
	}

	c.mu.Lock()
	handler, ok := c.handlers[msg.Topic()]
	c.mu.Unlock()
	if !ok {
		return
	}
	handler(msg.Topic(), msg.Payload())
}

// doSubscribe issues the paho subscribe call for a topic already recorded
// in c.pending. Called both from Subscribe (when connected) and from
// onConnect (re-issue after reconnect).
func (c *Client) doSubscribe(topic string) {
	token := c.inner.Subscribe(topic, subscribeQoS, nil)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Str("component", "mqtt").Str("topic", topic).Err(err).Msg("subscribe failed")
			return
		}
		c.mu.Lock()
		c.subscribed = true
		c.mu.Unlock()
		log.Info().Str("component", "mqtt").Str("topic", topic).Msg("subscribed")
	}()
}

// Subscribe registers handler for topic and records it as pending so it
// survives reconnects. If currently connected, issues the subscribe
// immediately; otherwise it is issued by onConnect once a session opens.
func (c *Client) Subscribe(topic string, handler bus.MessageHandler) error {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.pending[topic] = true
	connected := c.connected
	c.mu.Unlock()

	if connected {
		c.doSubscribe(topic)
	}
	return nil
}

// Unsubscribe removes topic from the pending set and, if connected, issues
// the paho unsubscribe.
func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	delete(c.pending, topic)
	delete(c.handlers, topic)
	connected := c.connected
	empty := len(c.pending) == 0
	if empty {
		c.subscribed = false
	}
	c.mu.Unlock()

	if !connected {
		return nil
	}
	token := c.inner.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

// Publish drops the message (logged) when not connected, rather than
// blocking or erroring the caller — publishing scene output must never
// stall the tracker loop on a broker outage.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		log.Warn().Str("component", "mqtt").Str("topic", topic).Msg("publish dropped, not connected")
		return nil
	}
	token := c.inner.Publish(topic, publishQoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Error().Str("component", "mqtt").Str("topic", topic).Err(err).Msg("publish failed")
		return err
	}
	return nil
}

// Disconnect drains in-flight callbacks before tearing down the paho
// client, matching the source client's callbacks_in_flight_ drain loop so
// no callback touches client state after disconnect returns. Safe to call
// more than once.
func (c *Client) Disconnect(ctx context.Context) error {
	c.guard.Stop()

	for c.guard.InFlight() > 0 {
		select {
		case <-ctx.Done():
			return &errs.BusTransient{Err: ctx.Err()}
		case <-time.After(time.Millisecond):
		}
	}

	if c.inner != nil && c.inner.IsConnected() {
		c.inner.Disconnect(disconnectGraceMS)
	}

	c.mu.Lock()
	c.connected = false
	c.subscribed = false
	c.mu.Unlock()
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// IsSubscribed reports whether at least one subscription has been
// confirmed by the broker since the last (re)connect.
func (c *Client) IsSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}
