package vesselsync

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/coregx/vesselsync/retry"
)

// Connection states reported through Status.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateReconnecting = "reconnecting"
	StateStopped      = "stopped"
)

// Retained presence payloads published on StatusTopic. The offline payload
// doubles as the broker-side last will.
const (
	onlineStatusPayload  = `{"status":"online"}`
	offlineStatusPayload = `{"status":"offline"}`
)

// MessageHandler receives raw inbound messages from the broker session.
type MessageHandler func(topic string, payload []byte)

// BrokerSession abstracts the broker operations used by the publisher, the
// subscription registry, and the catchup replayer, so they can be exercised
// without a live broker.
type BrokerSession interface {
	// IsConnected reports whether the session is currently established.
	IsConnected() bool

	// Publish sends one message and waits for broker acknowledgement
	// appropriate to the QoS level.
	Publish(topic string, qos byte, retain bool, payload []byte) error

	// Subscribe registers a broker-side subscription routed to handler.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Unsubscribe removes broker-side subscriptions.
	Unsubscribe(topics ...string) error
}

// ConnectionManager owns the single broker session of the process.
//
// The session is durable (non-clean) so broker-side subscription state
// survives reconnects, and it registers a retained offline status message
// as its last will. Reconnection retries indefinitely: a vessel may be
// offline for days and the system must never give up. Attempt logging is
// damped through retry.Damper to avoid flooding under prolonged outages.
//
// On every transition to connected the manager publishes a retained online
// status message and runs the registered on-connect hooks (resubscribe-all,
// queue flush) in registration order.
type ConnectionManager struct {
	brokerURL         string
	clientIDPrefix    string
	reconnectInterval time.Duration
	connectTimeout    time.Duration
	publishTimeout    time.Duration
	keepAlive         time.Duration
	tlsConfig         *tls.Config
	logger            Logger
	metrics           *Metrics

	client mqtt.Client
	damper *retry.Damper

	mu            sync.Mutex
	state         string
	everConnected bool
	onConnect     []func()
}

// ConnectionOption configures a ConnectionManager.
type ConnectionOption func(*ConnectionManager) error

// NewConnectionManager creates a new ConnectionManager with the provided options.
//
// Required options:
//   - WithBrokerURL: broker address (tcp://, ssl:// or mqtts:// scheme)
//   - WithConnectionLogger: logger instance
//
// Example:
//
//	conn, err := vesselsync.NewConnectionManager(
//	    vesselsync.WithBrokerURL("tcp://broker:1883"),
//	    vesselsync.WithConnectionLogger(logger),
//	    vesselsync.WithConnectionMetrics(metrics),
//	)
func NewConnectionManager(opts ...ConnectionOption) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		clientIDPrefix:    "vesselsync",
		reconnectInterval: 30 * time.Second,
		connectTimeout:    10 * time.Second,
		publishTimeout:    30 * time.Second,
		keepAlive:         30 * time.Second,
		damper:            retry.NewDamper(),
		state:             StateDisconnected,
	}

	for _, opt := range opts {
		if err := opt(cm); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply connection option", err)
		}
	}

	// Validate required dependencies
	if cm.brokerURL == "" {
		return nil, NewError(ErrCodeConfiguration, "broker URL is required (use WithBrokerURL)")
	}
	if cm.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithConnectionLogger)")
	}
	if cm.metrics == nil {
		cm.metrics = NewMetrics()
	}

	return cm, nil
}

// WithBrokerURL sets the broker address. Required.
func WithBrokerURL(brokerURL string) ConnectionOption {
	return func(cm *ConnectionManager) error {
		if brokerURL == "" {
			return fmt.Errorf("brokerURL cannot be empty")
		}
		cm.brokerURL = brokerURL
		return nil
	}
}

// WithClientIDPrefix sets the client-ID prefix. A random suffix is appended
// per process so parallel agents never collide on the broker.
func WithClientIDPrefix(prefix string) ConnectionOption {
	return func(cm *ConnectionManager) error {
		if prefix == "" {
			return fmt.Errorf("client ID prefix cannot be empty")
		}
		cm.clientIDPrefix = prefix
		return nil
	}
}

// WithConnectionLogger sets the logger instance. Required.
func WithConnectionLogger(logger Logger) ConnectionOption {
	return func(cm *ConnectionManager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		cm.logger = logger
		return nil
	}
}

// WithConnectionMetrics sets the shared counter set.
func WithConnectionMetrics(metrics *Metrics) ConnectionOption {
	return func(cm *ConnectionManager) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		cm.metrics = metrics
		return nil
	}
}

// WithReconnectInterval sets the maximum interval between reconnect attempts.
func WithReconnectInterval(interval time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) error {
		if interval <= 0 {
			return fmt.Errorf("reconnect interval must be > 0, got %v", interval)
		}
		cm.reconnectInterval = interval
		return nil
	}
}

// WithConnectTimeout bounds the wait for the initial connection at start-up.
// When the timeout expires the process continues in offline mode; connection
// attempts keep running in the background.
func WithConnectTimeout(timeout time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) error {
		if timeout <= 0 {
			return fmt.Errorf("connect timeout must be > 0, got %v", timeout)
		}
		cm.connectTimeout = timeout
		return nil
	}
}

// WithTLSConfig sets an explicit TLS configuration for the broker session.
func WithTLSConfig(cfg *tls.Config) ConnectionOption {
	return func(cm *ConnectionManager) error {
		cm.tlsConfig = cfg
		return nil
	}
}

// OnConnect registers a hook invoked on every transition to connected,
// after the retained online status has been published. Hooks run in
// registration order; register resubscription before queue flush.
func (cm *ConnectionManager) OnConnect(hook func()) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onConnect = append(cm.onConnect, hook)
}

// Start opens the broker session. The call blocks at most for the connect
// timeout: if no broker is reachable within it, Start still succeeds and the
// process runs in degraded offline mode, queuing everything, while connect
// retries continue in the background.
func (cm *ConnectionManager) Start() error {
	clientID := fmt.Sprintf("%s-%s", cm.clientIDPrefix, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(cm.brokerURL).
		SetClientID(clientID).
		SetCleanSession(false).
		SetKeepAlive(cm.keepAlive).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(cm.reconnectInterval).
		SetConnectRetry(true).
		SetConnectRetryInterval(cm.reconnectInterval).
		SetWill(StatusTopic, offlineStatusPayload, 1, true).
		SetOnConnectHandler(cm.handleConnect).
		SetConnectionLostHandler(cm.handleConnectionLost).
		SetConnectionAttemptHandler(cm.handleConnectionAttempt)

	if cm.tlsConfig != nil {
		opts.SetTLSConfig(cm.tlsConfig)
	}

	cm.setState(StateConnecting)
	cm.client = mqtt.NewClient(opts)

	cm.logger.Infof("Connecting to broker %s (client=%s, durable session)", cm.brokerURL, clientID)

	token := cm.client.Connect()
	if !token.WaitTimeout(cm.connectTimeout) {
		cm.logger.Warnf("No broker reachable within %v, starting in offline mode (retrying in background)", cm.connectTimeout)
		return nil
	}
	if err := token.Error(); err != nil {
		cm.logger.Warnf("Initial connection failed, starting in offline mode: %v", err)
		return nil
	}

	return nil
}

// Stop publishes a retained offline status synchronously, then closes the
// session. After Stop the manager does not reconnect.
func (cm *ConnectionManager) Stop() {
	cm.mu.Lock()
	if cm.state == StateStopped {
		cm.mu.Unlock()
		return
	}
	cm.mu.Unlock()

	if cm.client != nil && cm.client.IsConnectionOpen() {
		token := cm.client.Publish(StatusTopic, 1, true, offlineStatusPayload)
		if !token.WaitTimeout(cm.publishTimeout) || token.Error() != nil {
			cm.logger.Warnf("Failed to publish offline status on shutdown: %v", token.Error())
		}
	}
	if cm.client != nil {
		cm.client.Disconnect(250)
	}

	cm.setState(StateStopped)
	cm.logger.Info("Broker session stopped")
}

// IsConnected implements BrokerSession.
func (cm *ConnectionManager) IsConnected() bool {
	return cm.client != nil && cm.client.IsConnectionOpen()
}

// Publish implements BrokerSession.
func (cm *ConnectionManager) Publish(topic string, qos byte, retain bool, payload []byte) error {
	if cm.client == nil {
		return NewError(ErrCodeConnection, "session not started")
	}
	token := cm.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(cm.publishTimeout) {
		return NewError(ErrCodePublish, fmt.Sprintf("publish to %s timed out after %v", topic, cm.publishTimeout))
	}
	if err := token.Error(); err != nil {
		return NewErrorWithCause(ErrCodePublish, fmt.Sprintf("publish to %s failed", topic), err)
	}
	return nil
}

// Subscribe implements BrokerSession.
func (cm *ConnectionManager) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if cm.client == nil {
		return NewError(ErrCodeConnection, "session not started")
	}
	token := cm.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(cm.publishTimeout) {
		return NewError(ErrCodeConnection, fmt.Sprintf("subscribe to %s timed out", topic))
	}
	if err := token.Error(); err != nil {
		return NewErrorWithCause(ErrCodeConnection, fmt.Sprintf("subscribe to %s failed", topic), err)
	}
	return nil
}

// Unsubscribe implements BrokerSession.
func (cm *ConnectionManager) Unsubscribe(topics ...string) error {
	if cm.client == nil {
		return NewError(ErrCodeConnection, "session not started")
	}
	token := cm.client.Unsubscribe(topics...)
	if !token.WaitTimeout(cm.publishTimeout) {
		return NewError(ErrCodeConnection, "unsubscribe timed out")
	}
	if err := token.Error(); err != nil {
		return NewErrorWithCause(ErrCodeConnection, "unsubscribe failed", err)
	}
	return nil
}

// State returns the current connection state.
func (cm *ConnectionManager) State() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// BrokerURL returns the configured broker address.
func (cm *ConnectionManager) BrokerURL() string {
	return cm.brokerURL
}

// TLSEnabled reports whether the session uses TLS, either through an
// explicit configuration or a TLS broker URL scheme.
func (cm *ConnectionManager) TLSEnabled() bool {
	if cm.tlsConfig != nil {
		return true
	}
	return URLUsesTLS(cm.brokerURL)
}

// ReconnectAttempts returns the attempt counter of the current outage.
// Zero while connected.
func (cm *ConnectionManager) ReconnectAttempts() int64 {
	return cm.damper.Attempts()
}

// URLUsesTLS reports whether a broker URL scheme implies TLS transport.
func URLUsesTLS(brokerURL string) bool {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "mqtts", "ssl", "tls", "wss":
		return true
	}
	return false
}

func (cm *ConnectionManager) setState(state string) {
	cm.mu.Lock()
	cm.state = state
	cm.mu.Unlock()
}

// handleConnect runs on every successful (re)connection: publish retained
// online status, then run the on-connect hooks (resubscribe-all, flush).
func (cm *ConnectionManager) handleConnect(client mqtt.Client) {
	cm.mu.Lock()
	reconnected := cm.everConnected
	cm.everConnected = true
	cm.state = StateConnected
	hooks := make([]func(), len(cm.onConnect))
	copy(hooks, cm.onConnect)
	cm.mu.Unlock()

	if reconnected {
		cm.metrics.IncReconnects()
		cm.logger.Infof("Reconnected to broker %s after %d attempts", cm.brokerURL, cm.damper.Attempts())
	} else {
		cm.logger.Infof("Connected to broker %s", cm.brokerURL)
	}
	cm.damper.Reset()

	token := client.Publish(StatusTopic, 1, true, onlineStatusPayload)
	if !token.WaitTimeout(cm.publishTimeout) || token.Error() != nil {
		cm.logger.Warnf("Failed to publish online status: %v", token.Error())
	}

	for _, hook := range hooks {
		hook()
	}
}

func (cm *ConnectionManager) handleConnectionLost(_ mqtt.Client, err error) {
	cm.setState(StateReconnecting)
	cm.logger.Warnf("Broker connection lost: %v (reconnecting indefinitely)", err)
}

// handleConnectionAttempt fires before every connection attempt. It drives
// the damped reconnect logging: attempts 1-10 every time, then every 10th
// up to 100, then every 100th.
func (cm *ConnectionManager) handleConnectionAttempt(broker *url.URL, tlsCfg *tls.Config) *tls.Config {
	attempt := cm.damper.Next()
	if retry.ShouldLog(attempt) {
		cm.logger.Infof("Connection attempt %d to %s", attempt, broker.Redacted())
	}
	return tlsCfg
}
