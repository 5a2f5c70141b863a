// Package events publishes appointment lifecycle and stock alerts so other
// systems (notifications, dashboards) can follow the garage activity.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Event types.
const (
	AppointmentBooked      = "appointment.booked"
	AppointmentAssigned    = "appointment.assigned"
	AppointmentRescheduled = "appointment.rescheduled"
	AppointmentReviewed    = "appointment.reviewed"
	ServiceStarted         = "service.started"
	ServiceCompleted       = "service.completed"
	ServiceCancelled       = "service.cancelled"
	ServiceAdded           = "service.added"
	StockLow               = "stock.low"
)

// Event is the JSON payload sent for every notification.
type Event struct {
	Type          string    `json:"type"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	InstanceID    string    `json:"instance_id,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	PartID        string    `json:"part_id,omitempty"`
	RowID         string    `json:"row_id,omitempty"`
	Quantity      *int      `json:"quantity,omitempty"`
	Threshold     *int      `json:"threshold,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Topic maps an event type under prefix: "garage" + "service.started"
// gives "garage/service/started".
func Topic(prefix, eventType string) string {
	topic := strings.ReplaceAll(eventType, ".", "/")
	if prefix == "" {
		return topic
	}
	return strings.TrimSuffix(prefix, "/") + "/" + topic
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

// MQTTPublisher publishes events with QoS 1 on an MQTT broker.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

// NewMQTTPublisher connects to cfg.Broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	p := newMQTTPublisher(client, cfg.TopicPrefix, cfg.Timeout)
	token := client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out after %s", cfg.Broker, p.timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	log.WithFields(log.Fields{"broker": cfg.Broker, "client_id": cfg.ClientID}).Info("Connected to MQTT broker")
	return p, nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, timeout time.Duration) *MQTTPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, prefix: prefix, timeout: timeout}
}

// Publish sends event and waits for the broker acknowledgement, bounded by
// the publisher timeout and ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	topic := Topic(p.prefix, event.Type)
	token := p.client.Publish(topic, 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish to %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, allowing in-flight messages 250ms to drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
