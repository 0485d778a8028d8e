// Package events provides the in-process event bus connecting the
// application controller, the logger and the UI status surfaces.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/blogdesk/mdxmanager/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventStatus             EventType = "status"
	EventLog                EventType = "log"
	EventOperationStarted   EventType = "operation_started"
	EventOperationCompleted EventType = "operation_completed"
	EventOperationFailed    EventType = "operation_failed"
	EventTreeRebuilt        EventType = "tree_rebuilt"
	EventDocumentLoaded     EventType = "document_loaded"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// StatusEvent carries the one-line status bar text.
type StatusEvent struct {
	BaseEvent
	Message string
	Busy    bool
}

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Key     string // storage key the message is about, if any
	Error   error
}

// OperationEvent reports the lifecycle of one user action
// (refresh, upload, delete, ...).
type OperationEvent struct {
	BaseEvent
	Op       string
	Key      string
	Error    error
	Duration time.Duration
}

// TreeRebuiltEvent is published after every rebuild of the file tree.
type TreeRebuiltEvent struct {
	BaseEvent
	Folders int
	Files   int
	Skipped int
}

// DocumentLoadedEvent is published when a document is opened or reloaded.
type DocumentLoadedEvent struct {
	BaseEvent
	Key   string
	Title string
	Size  int
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. Events for
// a full subscriber are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		eb.offer(ch, event)
	}
	for _, ch := range eb.all {
		eb.offer(ch, event)
	}
}

func (eb *EventBus) offer(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		eb.droppedEvents.Add(1)
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message, key string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: base(EventLog),
		Level:     level,
		Message:   message,
		Key:       key,
		Error:     err,
	})
}

// PublishStatus publishes a status bar update.
func (eb *EventBus) PublishStatus(message string, busy bool) {
	eb.Publish(&StatusEvent{BaseEvent: base(EventStatus), Message: message, Busy: busy})
}

// PublishOperation publishes an operation lifecycle event. t must be one of
// EventOperationStarted, EventOperationCompleted or EventOperationFailed.
func (eb *EventBus) PublishOperation(t EventType, op, key string, d time.Duration, err error) {
	eb.Publish(&OperationEvent{BaseEvent: base(t), Op: op, Key: key, Duration: d, Error: err})
}

// PublishTreeRebuilt publishes tree statistics after a rebuild.
func (eb *EventBus) PublishTreeRebuilt(folders, files, skipped int) {
	eb.Publish(&TreeRebuiltEvent{BaseEvent: base(EventTreeRebuilt), Folders: folders, Files: files, Skipped: skipped})
}

// PublishDocumentLoaded publishes a document load.
func (eb *EventBus) PublishDocumentLoaded(key, title string, size int) {
	eb.Publish(&DocumentLoadedEvent{BaseEvent: base(EventDocumentLoaded), Key: key, Title: title, Size: size})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.subscribers[eventType] = without(eb.subscribers[eventType], ch)
}

// UnsubscribeAll removes a subscription channel from every list it is on.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	for eventType, subscribers := range eb.subscribers {
		eb.subscribers[eventType] = without(subscribers, ch)
	}
	eb.all = without(eb.all, ch)
}

func without(list []chan Event, ch <-chan Event) []chan Event {
	for i, subCh := range list {
		if subCh == ch {
			list[i] = list[len(list)-1]
			return list[:len(list)-1]
		}
	}
	return list
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}

// ResetDroppedEventCount resets the dropped event counter to zero
func (eb *EventBus) ResetDroppedEventCount() int64 {
	return eb.droppedEvents.Swap(0)
}
