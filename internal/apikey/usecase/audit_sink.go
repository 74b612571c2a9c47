package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/apikey/service"
	cryptoDomain "github.com/allisson/keyguard/internal/crypto/domain"
)

// loggerAuditSink writes audit events to the structured logger.
type loggerAuditSink struct {
	logger *slog.Logger
}

// Log emits failures at warn level and successes at debug level.
func (l *loggerAuditSink) Log(ctx context.Context, event *apikeyDomain.AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("actor", event.Actor),
		slog.String("outcome", string(event.Outcome)),
	}
	if event.KeyID != nil {
		attrs = append(attrs, slog.String("key_id", event.KeyID.String()))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	level := slog.LevelDebug
	if event.Outcome == apikeyDomain.OutcomeFailure {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, "audit event", attrs...)
}

// NewLoggerAuditSink creates an AuditSink that writes to logger.
func NewLoggerAuditSink(logger *slog.Logger) AuditSink {
	return &loggerAuditSink{logger: logger}
}

// multiAuditSink fans every event out to several sinks.
type multiAuditSink struct {
	sinks []AuditSink
}

func (m *multiAuditSink) Log(ctx context.Context, event *apikeyDomain.AuditEvent) {
	for _, sink := range m.sinks {
		sink.Log(ctx, event)
	}
}

// NewMultiAuditSink creates an AuditSink that forwards to every sink in order.
func NewMultiAuditSink(sinks ...AuditSink) AuditSink {
	return &multiAuditSink{sinks: sinks}
}

// AsyncAuditSink persists audit events from a bounded queue so emitting an
// event never blocks the request path. Events that arrive while the queue is
// full are dropped and counted.
type AsyncAuditSink struct {
	repo       AuditEventRepository
	signer     service.AuditSigner
	signingKey *cryptoDomain.SigningKey
	timeout    time.Duration
	logger     *slog.Logger

	mu      sync.RWMutex
	closed  bool
	events  chan *apikeyDomain.AuditEvent
	wg      sync.WaitGroup
	start   sync.Once
	dropped atomic.Int64
}

// NewAsyncAuditSink creates an AsyncAuditSink. A nil signingKey stores events unsigned.
func NewAsyncAuditSink(
	repo AuditEventRepository,
	signer service.AuditSigner,
	signingKey *cryptoDomain.SigningKey,
	bufferSize int,
	timeout time.Duration,
	logger *slog.Logger,
) *AsyncAuditSink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &AsyncAuditSink{
		repo:       repo,
		signer:     signer,
		signingKey: signingKey,
		timeout:    timeout,
		logger:     logger,
		events:     make(chan *apikeyDomain.AuditEvent, bufferSize),
	}
}

// Start launches the background writer. Calling it more than once has no effect.
func (s *AsyncAuditSink) Start() {
	s.start.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Log enqueues event without blocking.
func (s *AsyncAuditSink) Log(_ context.Context, event *apikeyDomain.AuditEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(event, "sink closed")
		return
	}

	select {
	case s.events <- event:
	default:
		s.drop(event, "queue full")
	}
}

// Close stops accepting events and waits for queued events to be written.
func (s *AsyncAuditSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	// Drain whatever Start never got to, then wait for the writer.
	s.Start()
	s.wg.Wait()
}

// Dropped returns how many events were discarded.
func (s *AsyncAuditSink) Dropped() int64 {
	return s.dropped.Load()
}

// Pending returns how many events are queued but not yet persisted.
func (s *AsyncAuditSink) Pending() int {
	return len(s.events)
}

func (s *AsyncAuditSink) run() {
	defer s.wg.Done()

	for event := range s.events {
		if err := s.persist(event); err != nil {
			s.logger.Error("failed to persist audit event",
				slog.String("audit_event_id", event.ID.String()),
				slog.String("event_type", string(event.EventType)),
				slog.Any("error", err),
			)
		}
	}
}

func (s *AsyncAuditSink) persist(event *apikeyDomain.AuditEvent) error {
	if s.signingKey != nil && s.signer != nil {
		signature, err := s.signer.Sign(s.signingKey.Key, event)
		if err != nil {
			return err
		}
		event.Signature = signature
		event.IsSigned = true
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return s.repo.Create(ctx, event)
}

func (s *AsyncAuditSink) drop(event *apikeyDomain.AuditEvent, reason string) {
	s.dropped.Add(1)
	s.logger.Warn("audit event dropped",
		slog.String("audit_event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("reason", reason),
	)
}
