package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/capability"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/publisher"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)

func component(k capability.Kind) string {
	switch k {
	case capability.KindBinarySensor:
		return "binary_sensor"
	case capability.KindNumberSetter:
		return "number"
	case capability.KindOptionSetter:
		return "select"
	case capability.KindBinarySetter:
		return "switch"
	}
	return "sensor"
}

func (s *service) base(deviceID, capID string) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, slug.Make(deviceID), capID)
}

func objectID(deviceID, capID string) string {
	return slug.Make(deviceID + "_" + capID)
}

// RegisterDevice publishes a retained discovery config per capability and
// subscribes to the command topics of the settable ones. A device is only
// registered once.
func (s *service) RegisterDevice(ctx context.Context, device *publisher.Device) error {
	s.mu.Lock()
	_, exists := s.configuredDevices[device.ID]
	s.mu.Unlock()
	if exists {
		return nil
	}

	for _, c := range device.Capabilities {
		registerMessage := s.registerMsg(device, c)
		topic := fmt.Sprintf("%s/%s/%s/config", discoveryPrefix, component(c.Kind()), objectID(device.ID, c.ID()))

		payload, err := json.Marshal(registerMessage)
		if err != nil {
			return err
		}
		if err := wait(s.client.Publish(topic, 1, true, payload), publishTimeout); err != nil {
			return fmt.Errorf("register %s: %w", topic, err)
		}
		if c.Kind().Settable() {
			cmdTopic := s.base(device.ID, c.ID()) + "/set"
			if err := wait(s.client.Subscribe(cmdTopic, 1, s.commandHandler(ctx, c)), publishTimeout); err != nil {
				return fmt.Errorf("subscribe %s: %w", cmdTopic, err)
			}
		}
	}

	s.mu.Lock()
	s.configuredDevices[device.ID] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("registered device", zap.String("device", device.ID), zap.Int("capabilities", len(device.Capabilities)))
	return nil
}

func (s *service) Write(ctx context.Context, data []publisher.Sample) error {
	for _, d := range data {
		if err := s.PublishData(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// PublishData sends one sample to its state topic.
func (s *service) PublishData(_ context.Context, sample publisher.Sample) error {
	topic := s.base(sample.DeviceID, sample.CapabilityID) + "/state"
	token := s.client.Publish(topic, 0, false, statePayload(sample))
	return wait(token, publishTimeout)
}

// statePayload renders a value the way the discovery config announced it.
func statePayload(sample publisher.Sample) string {
	switch sample.Kind {
	case capability.KindBinarySensor, capability.KindBinarySetter:
		if b, ok := sample.Value.(bool); ok && b {
			return payloadOn
		}
		return payloadOff
	case capability.KindOptionSetter:
		if sample.Label != "" {
			return sample.Label
		}
	}
	return fmt.Sprint(sample.Value)
}

func (s *service) registerMsg(device *publisher.Device, c *capability.Capability) model.RegisterMessage {
	msg := model.RegisterMessage{
		Tilda:      s.base(device.ID, c.ID()),
		Name:       c.Name(),
		ID:         objectID(device.ID, c.ID()),
		StateTopic: "~/state",
		Device: model.RegisterDevice{
			Name:         device.Name,
			Identifiers:  []string{device.ID},
			Model:        device.Model,
			Manufacturer: "Yamaha",
		},
	}
	switch c.EntityType() {
	case capability.Config:
		msg.EntityCategory = "config"
	case capability.Diagnostic, capability.System:
		msg.EntityCategory = "diagnostic"
	}
	if !c.Kind().Settable() {
		if c.Kind() == capability.KindBinarySensor {
			msg.PayloadOn, msg.PayloadOff = payloadOn, payloadOff
		}
		return msg
	}

	msg.CommandTopic = "~/set"
	switch c.Kind() {
	case capability.KindNumberSetter:
		r := c.Range()
		msg.Min, msg.Max, msg.Step = &r.Min, &r.Max, &r.Step
	case capability.KindOptionSetter:
		msg.Options = optionLabels(c.Options())
	case capability.KindBinarySetter:
		msg.PayloadOn, msg.PayloadOff = payloadOn, payloadOff
	}
	return msg
}

func optionLabels(options map[any]string) []string {
	labels := lo.Values(options)
	slices.Sort(labels)
	return labels
}

func (s *service) commandHandler(ctx context.Context, c *capability.Capability) paho_mqtt.MessageHandler {
	return func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		log := s.logger.With(zap.String("topic", msg.Topic()), zap.ByteString("payload", msg.Payload()))
		v, err := parseCommand(c, string(msg.Payload()))
		if err != nil {
			log.Error("invalid command", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if err := c.Set(ctx, v); err != nil {
			log.Error("command failed", zap.Error(err))
			return
		}
		log.Debug("command applied")
	}
}

// parseCommand turns a command payload into the value Set expects.
func parseCommand(c *capability.Capability, payload string) (any, error) {
	payload = strings.TrimSpace(payload)
	switch c.Kind() {
	case capability.KindNumberSetter:
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", capability.ErrInvalidType, payload)
		}
		return f, nil
	case capability.KindBinarySetter:
		switch strings.ToUpper(payload) {
		case payloadOn, "TRUE":
			return true, nil
		case payloadOff, "FALSE":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not ON or OFF", capability.ErrInvalidType, payload)
	case capability.KindOptionSetter:
		for key, label := range c.Options() {
			if label == payload {
				return key, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", capability.ErrInvalidOption, payload)
	}
	return nil, fmt.Errorf("%w: %s", capability.ErrReadOnly, c.ID())
}
