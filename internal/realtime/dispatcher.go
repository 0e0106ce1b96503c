package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/lekesiz/HECS/internal/metrics"
)

// Dispatcher fans events out to registered connections. Delivery is
// best-effort and at-most-once: a failed send never aborts delivery to the
// remaining connections, and the only recovery is that the dead connection
// is pruned so future broadcasts stop failing on it.
type Dispatcher struct {
	registry *Registry
	clock    clockwork.Clock
}

func NewDispatcher(registry *Registry, clock clockwork.Clock) *Dispatcher {
	return &Dispatcher{registry: registry, clock: clock}
}

// Broadcast delivers an event to every admitted connection.
func (d *Dispatcher) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "type", event.Type, "error", err)
		return
	}
	metrics.BroadcastsTotal.WithLabelValues(event.Type).Inc()

	var failed []*Client
	for _, clients := range d.registry.All() {
		for _, c := range clients {
			if err := c.Send(data); err != nil {
				failed = append(failed, c)
			}
		}
	}
	d.prune(failed, event.Type)
}

// SendToUser delivers an event to one user's connections only, with the
// same failure-isolation contract as Broadcast.
func (d *Dispatcher) SendToUser(userID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "type", event.Type, "error", err)
		return
	}
	metrics.BroadcastsTotal.WithLabelValues(event.Type).Inc()

	var failed []*Client
	for _, c := range d.registry.ConnectionsFor(userID) {
		if err := c.Send(data); err != nil {
			failed = append(failed, c)
		}
	}
	d.prune(failed, event.Type)
}

// prune removes connections that failed a send, after the sweep completed.
func (d *Dispatcher) prune(failed []*Client, eventType string) {
	for _, c := range failed {
		metrics.BroadcastSendFailures.Inc()
		metrics.PrunedConnections.Inc()
		slog.Warn("Pruning dead connection after failed send",
			"connection_id", c.ID().String(),
			"user_id", c.UserID(),
			"event_type", eventType,
		)
		d.registry.Remove(c)
		c.stop()
	}
}

// BroadcastDeviceUpdate wraps device data in the canonical envelope and
// broadcasts it.
func (d *Dispatcher) BroadcastDeviceUpdate(data map[string]any) {
	d.Broadcast(NewEvent(EventDeviceUpdate, data, d.clock.Now()))
}

// BroadcastTaskUpdate wraps task data in the canonical envelope and
// broadcasts it.
func (d *Dispatcher) BroadcastTaskUpdate(data map[string]any) {
	d.Broadcast(NewEvent(EventTaskUpdate, data, d.clock.Now()))
}

// BroadcastCustomerUpdate wraps customer data in the canonical envelope and
// broadcasts it.
func (d *Dispatcher) BroadcastCustomerUpdate(data map[string]any) {
	d.Broadcast(NewEvent(EventCustomerUpdate, data, d.clock.Now()))
}

// BroadcastNotification broadcasts a generic notification to everyone.
func (d *Dispatcher) BroadcastNotification(data map[string]any) {
	d.Broadcast(NewEvent(EventNotification, data, d.clock.Now()))
}

// NotifyUser sends a notification to a single user's connections.
func (d *Dispatcher) NotifyUser(userID string, data map[string]any) {
	d.SendToUser(userID, NewEvent(EventNotification, data, d.clock.Now()))
}
