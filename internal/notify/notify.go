package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"plantcare/internal/metrics"
	"plantcare/internal/models"
)

// AlertEvent is the payload fanned out to MQTT and websocket subscribers
type AlertEvent struct {
	AlertID   string               `json:"alert_id"`
	DeviceID  string               `json:"device_id"`
	Type      models.AlertType     `json:"type"`
	Severity  models.AlertSeverity `json:"severity"`
	Message   string               `json:"message"`
	CreatedAt time.Time            `json:"created_at"`
}

// Notifier fans alert events out to two audiences: MQTT subscribers (other
// backend collaborators listening on alerts/<device_id>) and in-process
// websocket streams. Devices never receive alerts; they are polling-only.
type Notifier struct {
	mqttClient mqtt.Client

	mu   sync.Mutex
	subs map[chan AlertEvent]struct{}
}

// NewNotifier creates a notifier; mqttClient may be nil when MQTT is disabled
func NewNotifier(mqttClient mqtt.Client) *Notifier {
	return &Notifier{
		mqttClient: mqttClient,
		subs:       make(map[chan AlertEvent]struct{}),
	}
}

// Subscribe registers an in-process listener. The returned channel is
// buffered; slow consumers drop events rather than block the notifier.
func (n *Notifier) Subscribe() chan AlertEvent {
	ch := make(chan AlertEvent, 16)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel
func (n *Notifier) Unsubscribe(ch chan AlertEvent) {
	n.mu.Lock()
	if _, ok := n.subs[ch]; ok {
		delete(n.subs, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Publish delivers one alert event. The MQTT leg returns an error so the
// task queue can retry it; the in-process fanout is best-effort.
func (n *Notifier) Publish(event AlertEvent) error {
	n.broadcast(event)

	if n.mqttClient == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	topic := fmt.Sprintf("alerts/%s", event.DeviceID)
	token := n.mqttClient.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		metrics.Default.NotifyFailures.Add(1)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	log.Printf("NOTIFY: published %s alert for device %s to %s", event.Type, event.DeviceID, topic)
	return nil
}

func (n *Notifier) broadcast(event AlertEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- event:
		default:
			log.Printf("NOTIFY: dropping alert event for slow subscriber")
		}
	}
}

// FromAlert builds the wire event for a stored alert
func FromAlert(a *models.Alert) AlertEvent {
	return AlertEvent{
		AlertID:   a.ID.String(),
		DeviceID:  a.DeviceID.String(),
		Type:      a.Type,
		Severity:  a.Severity,
		Message:   a.Message,
		CreatedAt: a.CreatedAt,
	}
}
