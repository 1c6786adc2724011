// Package mqtt bridges devices to Home Assistant over MQTT: discovery
// configs, state topics, and command topics that drive capability setters.
package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	discoveryPrefix = "homeassistant"
	defaultPrefix   = "musiccast"
	connectTimeout  = 5 * time.Second
	publishTimeout  = 10 * time.Second
	commandTimeout  = 10 * time.Second
)

var ErrTimeout = errors.New("mqtt: timed out")

// Client is the part of paho_mqtt.Client the bridge uses.
type Client interface {
	Connect() paho_mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload any) paho_mqtt.Token
	Subscribe(topic string, qos byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token
}

type service struct {
	logger *zap.Logger
	client Client
	prefix string

	mu                sync.Mutex
	configuredDevices map[string]struct{}
}

func New(client Client) *service {
	return &service{
		logger:            zap.L(),
		client:            client,
		prefix:            defaultPrefix,
		configuredDevices: map[string]struct{}{},
	}
}

// NewClientOptions builds paho options for a broker url.
func NewClientOptions(broker, username, password, clientID string) *paho_mqtt.ClientOptions {
	return paho_mqtt.NewClientOptions().
		AddBroker(broker).
		SetUsername(username).
		SetPassword(password).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(false)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(connectTimeout)
	if err := token.Error(); err != nil {
		return err
	}
	if res {
		return nil
	}
	return errors.New("unable to connect in time")
}

func (s *service) Close() {
	s.client.Disconnect(250)
}

func wait(token paho_mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}
