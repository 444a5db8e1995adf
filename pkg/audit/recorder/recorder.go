package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/b3ckham/Orchestrator/pkg/audit"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single storage write and how long Record waits
	// for room in a full buffer.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder records audit events. Events are enqueued and written by a
// background worker.
type Recorder struct {
	storage   audit.Storage
	config    *Config
	eventChan chan *audit.Event
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewRecorder creates a new audit recorder with the provided storage backend
// and configuration.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:   storage,
		config:    config,
		eventChan: make(chan *audit.Event, config.AsyncBuffer),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues an event for writing. It fills in ID and Timestamp when
// they are empty and returns without waiting for storage.
func (r *Recorder) Record(ctx context.Context, event *audit.Event) error {
	if !r.config.Enabled || event == nil {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping event",
			"event_id", event.ID,
			"type", event.Type,
		)
		return audit.NewRecorderError(event, audit.ErrRecorderClosed)
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.eventChan <- event:
		r.logger.Debug("audit event enqueued",
			"event_id", event.ID,
			"type", event.Type,
			"rule_set", event.RuleSet,
		)
		return nil
	case <-timer.C:
		r.logger.Error("audit channel full, dropping event",
			"event_id", event.ID,
			"type", event.Type,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return audit.NewRecorderError(event, context.DeadlineExceeded)
	case <-ctx.Done():
		return audit.NewRecorderError(event, ctx.Err())
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping event",
			"event_id", event.ID,
			"type", event.Type,
		)
		return audit.NewRecorderError(event, audit.ErrRecorderClosed)
	}
}

// Close gracefully shuts down the recorder by draining the async channel and
// waiting for all pending writes to complete. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

// worker drains the event channel and writes events to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.eventChan:
			r.writeEvent(event)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.eventChan),
			)
			for {
				select {
				case event := <-r.eventChan:
					r.writeEvent(event)
				default:
					r.logger.Info("audit channel drained")
					return
				}
			}
		}
	}
}

// writeEvent writes a single event to storage.
func (r *Recorder) writeEvent(event *audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, event); err != nil {
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"type", event.Type,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("audit event recorded",
		"event_id", event.ID,
		"type", event.Type,
		"rule_set", event.RuleSet,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"event_id", event.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
