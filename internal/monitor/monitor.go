// Package monitor implements the monitoring hub: the external
// collaborator that the Stream Reader, Alert Manager, and State Janitor
// all notify about connect/connected/disconnect/activity/error events and
// active-set snapshots. It is modeled on internal/radio/stream.go's
// Broadcaster client-map fan-out, generalized to a ring-buffered event
// log plus a live subscriber fan-out, and enriched with host metrics via
// gopsutil since this is the one place in the pipeline that reports on
// itself rather than on a stream.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/wx-endec/eas-listener/internal/eas"
)

// EventKind distinguishes the observable stream lifecycle transitions.
type EventKind string

const (
	EventConnecting  EventKind = "connecting"
	EventConnected   EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventActivity    EventKind = "activity"
	EventError       EventKind = "error"
)

// Event is one recorded note, bounded to a ring buffer per Hub.
type Event struct {
	Kind   EventKind
	Source string
	Detail string
	At     time.Time
}

// Hub is the monitoring hub: a bounded event ring buffer plus live
// subscriber fan-out for both stream events and active-alert-set
// snapshots.
type Hub struct {
	mu     sync.RWMutex
	events []Event
	cap    int

	subs   map[uint64]chan Event
	nextID uint64

	alertSubs   map[uint64]chan []eas.Alert
	alertNextID uint64

	lastAlerts []eas.Alert
}

// New constructs a Hub retaining at most capacity events.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	return &Hub{
		cap:       capacity,
		subs:      make(map[uint64]chan Event),
		alertSubs: make(map[uint64]chan []eas.Alert),
	}
}

func (h *Hub) note(kind EventKind, source, detail string) {
	ev := Event{Kind: kind, Source: source, Detail: detail, At: time.Now()}

	h.mu.Lock()
	h.events = append(h.events, ev)
	if len(h.events) > h.cap {
		h.events = h.events[len(h.events)-h.cap:]
	}
	subs := make([]chan Event, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Connecting, Connected, Disconnected, and Activity satisfy
// internal/stream.Notifier.
func (h *Hub) Connecting(source string) { h.note(EventConnecting, source, "") }
func (h *Hub) Connected(source, contentType string) {
	h.note(EventConnected, source, contentType)
}
func (h *Hub) Disconnected(source string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	h.note(EventDisconnected, source, detail)
}
func (h *Hub) Activity(source string) { h.note(EventActivity, source, "") }

// Error records a non-stream error note (decode failures, subprocess
// failures, etc.) against source.
func (h *Hub) Error(source, detail string) { h.note(EventError, source, detail) }

// AlertsChanged satisfies internal/alertmgr.ActiveSetNotifier: it
// broadcasts the new active-set snapshot to every subscriber.
func (h *Hub) AlertsChanged(snapshot []eas.Alert) {
	h.mu.Lock()
	h.lastAlerts = snapshot
	subs := make([]chan []eas.Alert, 0, len(h.alertSubs))
	for _, ch := range h.alertSubs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// RecentEvents returns a snapshot of the retained event ring buffer.
func (h *Hub) RecentEvents() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// LastAlerts returns the most recently broadcast active-alert-set
// snapshot.
func (h *Hub) LastAlerts() []eas.Alert {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastAlerts
}

// SubscribeEvents registers a live event listener; call Unsubscribe with
// the returned id when done.
func (h *Hub) SubscribeEvents() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, 64)
	h.subs[id] = ch
	return id, ch
}

// UnsubscribeEvents removes a previously registered event listener.
func (h *Hub) UnsubscribeEvents(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// SubscribeAlerts registers a live active-set listener.
func (h *Hub) SubscribeAlerts() (uint64, <-chan []eas.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.alertNextID
	h.alertNextID++
	ch := make(chan []eas.Alert, 8)
	h.alertSubs[id] = ch
	return id, ch
}

// UnsubscribeAlerts removes a previously registered active-set listener.
func (h *Hub) UnsubscribeAlerts(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.alertSubs[id]; ok {
		delete(h.alertSubs, id)
		close(ch)
	}
}

// HostMetrics is a point-in-time snapshot of the host's resource usage,
// surfaced on the dashboard.
type HostMetrics struct {
	CPUPercent    float64
	MemoryPercent float64
}

// ReadHostMetrics samples current CPU and memory utilization via
// gopsutil.
func ReadHostMetrics(ctx context.Context) (HostMetrics, error) {
	percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil {
		return HostMetrics{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostMetrics{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	return HostMetrics{CPUPercent: cpuPct, MemoryPercent: vm.UsedPercent}, nil
}
