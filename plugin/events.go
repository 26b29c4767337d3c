package plugin

import (
	"fmt"
	"slices"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// EventType identifies a registry change.
type EventType int

// Registry events.
const (
	EventInstalled EventType = iota + 1
	EventUninstalled
	EventUpdated
	EventEnabled
	EventDisabled
)

func (t EventType) String() string {
	switch t {
	case EventInstalled:
		return "installed"
	case EventUninstalled:
		return "uninstalled"
	case EventUpdated:
		return "updated"
	case EventEnabled:
		return "enabled"
	case EventDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event describes a change to one descriptor.
type Event struct {
	Type       EventType
	Descriptor *entities.Descriptor
}

// Listener receives registry events synchronously, in order, before the
// triggering call returns. Errors and panics are logged and otherwise
// ignored. Listeners must be comparable to be removable.
type Listener interface {
	OnPluginEvent(e Event) error
}

// AddListener registers a listener.
func (m *Manager) AddListener(l Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters a listener and reports whether it was found.
func (m *Manager) RemoveListener(l Listener) bool {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	i := slices.Index(m.listeners, l)
	if i < 0 {
		return false
	}
	m.listeners = slices.Delete(m.listeners, i, i+1)
	return true
}

// emit queues an event. Must be called with the registry lock held.
func (m *Manager) emit(t EventType, d *entities.Descriptor) {
	m.pending = append(m.pending, Event{Type: t, Descriptor: d})
}

func (m *Manager) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}

	m.listenersMu.RLock()
	listeners := slices.Clone(m.listeners)
	m.listenersMu.RUnlock()

	for _, e := range events {
		for _, l := range listeners {
			m.notify(l, e)
		}
	}
}

func (m *Manager) notify(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("plugin listener panicked", "event", e.Type.String(), "plugin", e.Descriptor.ClassName(), "panic", r)
		}
	}()

	if err := l.OnPluginEvent(e); err != nil {
		m.logger.Warn("plugin listener failed", "event", e.Type.String(), "plugin", e.Descriptor.ClassName(), "error", err)
	}
}
