package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
	applogger "SignalDesk/pkg/logger"
)

// Nop drops every event.
type Nop struct{}

func (Nop) Update(models.ProgressEvent) {}

// LogObserver writes events to the structured log at debug level.
type LogObserver struct {
	log *applogger.Logger
}

func NewLogObserver(l *applogger.Logger) *LogObserver {
	if l == nil {
		l = applogger.NewNop()
	}
	return &LogObserver{log: l}
}

func (o *LogObserver) Update(ev models.ProgressEvent) {
	o.log.Debug("progress",
		applogger.String("agent", ev.Agent),
		applogger.String("ticker", ev.Ticker),
		applogger.String("status", ev.Status),
	)
}

// Multi fans an event out to several observers in order.
type Multi []domsvc.ProgressObserver

func (m Multi) Update(ev models.ProgressEvent) {
	for _, o := range m {
		if o != nil {
			o.Update(ev)
		}
	}
}

// Hub broadcasts events to subscribers over buffered channels. A subscriber
// that falls behind loses events instead of blocking the pipeline.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan models.ProgressEvent
	next    int
	buffer  int
	dropped atomic.Int64
	now     func() time.Time
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[int]chan models.ProgressEvent), buffer: buffer, now: time.Now}
}

// Subscribe returns an event channel and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan models.ProgressEvent, func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	ch := make(chan models.ProgressEvent, h.buffer)
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Update stamps the event when needed and offers it to every subscriber.
func (h *Hub) Update(ev models.ProgressEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var (
	_ domsvc.ProgressObserver = Nop{}
	_ domsvc.ProgressObserver = (*LogObserver)(nil)
	_ domsvc.ProgressObserver = Multi(nil)
	_ domsvc.ProgressObserver = (*Hub)(nil)
)
