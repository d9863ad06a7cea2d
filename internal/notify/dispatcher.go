// Package notify delivers student milestone events to the teacher-facing
// roster asynchronously, decoupling session completion latency from
// notification delivery.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mathquest/mathquest-api/internal/events"
)

// RosterClient delivers one event to the roster system. Implementations
// may be remote.
type RosterClient interface {
	Deliver(ctx context.Context, event *events.StudentEvent) error
}

// DispatcherConfig holds configuration for the dispatcher
type DispatcherConfig struct {
	// WorkerCount determines how many concurrent workers deliver events
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory event queue
	QueueSize int
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Dispatcher fans events out to the roster client through a bounded queue
// and a fixed worker pool. It implements events.EventHandler, so it can be
// registered directly on the event emitter.
type Dispatcher struct {
	client     RosterClient
	eventChan  chan *events.StudentEvent
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     DispatcherConfig
	logger     *slog.Logger
}

// NewDispatcher creates a new Dispatcher. Call Start to begin delivery.
func NewDispatcher(client RosterClient, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultDispatcherConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultDispatcherConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		client:     client,
		eventChan:  make(chan *events.StudentEvent, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "notify_dispatcher")),
	}
}

// HandleEvent implements events.EventHandler by enqueueing the event for
// asynchronous delivery. Returns an error if the queue is full.
func (d *Dispatcher) HandleEvent(_ context.Context, event *events.StudentEvent) error {
	select {
	case d.eventChan <- event:
		return nil
	default:
		return fmt.Errorf("notification queue is full, dropping event %s", event.ID)
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains the workers and shuts the dispatcher down. Events still in
// the queue are not delivered.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
	close(d.eventChan)
}

// worker delivers events from the queue until the dispatcher stops.
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("starting notification worker", "worker_id", id)

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("stopping notification worker", "worker_id", id)
			return

		case event, ok := <-d.eventChan:
			if !ok {
				return
			}
			d.deliver(event, id)
		}
	}
}

func (d *Dispatcher) deliver(event *events.StudentEvent, workerID int) {
	log := d.logger.With(
		"event_id", event.ID,
		"event_type", event.Type,
		"worker_id", workerID)

	if err := d.client.Deliver(d.ctx, event); err != nil {
		log.Error("failed to deliver notification", "error", err)
		return
	}
	log.Debug("notification delivered")
}

// Ensure Dispatcher implements events.EventHandler.
var _ events.EventHandler = (*Dispatcher)(nil)
