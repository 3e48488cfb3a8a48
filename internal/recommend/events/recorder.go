// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/cache"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/metrics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Drop reasons reported on the interaction_events_dropped_total metric.
const (
	DropQueueFull            = "queue_full"
	DropStale                = "stale"
	DropUnknownActor         = "unknown_actor"
	DropUnknownTarget        = "unknown_target"
	DropExistenceCheckFailed = "existence_check_failed"
	DropPersistFailed        = "persist_failed"
)

// ExistenceChecker answers whether the actor and target of an event exist.
// It is implemented by the catalog collaborator.
type ExistenceChecker interface {
	ActorExists(ctx context.Context, actorType recommend.ActorType, id string) (bool, error)
	ItemExists(ctx context.Context, targetType recommend.TargetType, id string) (bool, error)
}

// RecorderConfig configures the asynchronous recorder.
type RecorderConfig struct {
	// QueueSize bounds the number of accepted events waiting for persistence.
	// When the queue is full new events are dropped, never blocked on.
	QueueSize int

	// BatchSize is the number of events persisted per Append call.
	BatchSize int

	// FlushInterval persists partial batches.
	FlushInterval time.Duration

	// DedupWindow is the bucket width inside which repeats are dropped.
	DedupWindow time.Duration

	// DedupCacheSize bounds the in-process dedup cache.
	DedupCacheSize int

	// ExistenceCacheSize and ExistenceCacheTTL bound the cache of positive
	// existence checks.
	ExistenceCacheSize int
	ExistenceCacheTTL  time.Duration

	// MaxClockSkew is how far in the future an occurredAt may be.
	MaxClockSkew time.Duration
}

// DefaultRecorderConfig returns production defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		QueueSize:          10000,
		BatchSize:          200,
		FlushInterval:      time.Second,
		DedupWindow:        5 * time.Minute,
		DedupCacheSize:     100000,
		ExistenceCacheSize: 50000,
		ExistenceCacheTTL:  10 * time.Minute,
		MaxClockSkew:       time.Minute,
	}
}

// Recorder accepts interaction events without blocking the caller.
//
// Record validates synchronously, assigns weight and ID, drops in-process
// repeats and enqueues. Serve drains the queue in batches, checks that actor
// and target exist and appends to the Log, which applies the durable dedup.
type Recorder struct {
	log     Log
	checker ExistenceChecker
	cfg     RecorderConfig
	logger  zerolog.Logger

	queue     chan recommend.InteractionEvent
	dedup     *cache.LRU[struct{}]
	existence *cache.LRU[struct{}]

	// persistMu serializes Serve and Flush so batches are appended in order.
	persistMu sync.Mutex

	now func() time.Time
}

// NewRecorder creates a recorder. checker may be nil, in which case
// existence checks are skipped.
//
//nolint:gocritic // logger passed by value for zerolog chaining
func NewRecorder(log Log, checker ExistenceChecker, cfg RecorderConfig, logger zerolog.Logger) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = def.DedupWindow
	}
	if cfg.DedupCacheSize <= 0 {
		cfg.DedupCacheSize = def.DedupCacheSize
	}
	if cfg.ExistenceCacheSize <= 0 {
		cfg.ExistenceCacheSize = def.ExistenceCacheSize
	}
	if cfg.ExistenceCacheTTL <= 0 {
		cfg.ExistenceCacheTTL = def.ExistenceCacheTTL
	}
	if cfg.MaxClockSkew < 0 {
		cfg.MaxClockSkew = 0
	}

	return &Recorder{
		log:       log,
		checker:   checker,
		cfg:       cfg,
		logger:    logger.With().Str("component", "recorder").Logger(),
		queue:     make(chan recommend.InteractionEvent, cfg.QueueSize),
		dedup:     cache.NewLRU[struct{}](cfg.DedupCacheSize, 2*cfg.DedupWindow),
		existence: cache.NewLRU[struct{}](cfg.ExistenceCacheSize, cfg.ExistenceCacheTTL),
		now:       time.Now,
	}
}

// SetClock overrides the recorder's clock. It must be called before use.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
	r.dedup.SetClock(now)
	r.existence.SetClock(now)
}

// Record accepts an event. It returns a *recommend.ValidationError for a
// malformed event and nil otherwise, including when the event is a repeat,
// older than one dedup window or dropped because the queue is full.
func (r *Recorder) Record(_ context.Context, event recommend.InteractionEvent) error {
	if err := recommend.ValidateEvent(&event); err != nil {
		return err
	}

	now := r.now()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now
	} else if event.OccurredAt.After(now.Add(r.cfg.MaxClockSkew)) {
		return recommend.NewValidationError("occurredAt", "occurredAt is in the future")
	} else if event.OccurredAt.Before(now.Add(-r.cfg.DedupWindow)) {
		// Dedup records of older buckets may already have expired, so a
		// late retry could be stored twice.
		metrics.InteractionsDropped.WithLabelValues(DropStale).Inc()
		r.logger.Debug().
			Str("event_type", string(event.EventType)).
			Time("occurred_at", event.OccurredAt).
			Msg("interaction older than the dedup window, event dropped")
		return nil
	}
	event.OccurredAt = event.OccurredAt.UTC()
	event.Weight = event.EventType.Weight()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if r.dedup.Seen(event.DedupKey(r.cfg.DedupWindow), struct{}{}) {
		metrics.InteractionsDeduplicated.Inc()
		return nil
	}

	select {
	case r.queue <- event:
		metrics.InteractionQueueDepth.Set(float64(len(r.queue)))
	default:
		// The dedup entry stays so a retry storm does not refill the queue.
		metrics.InteractionsDropped.WithLabelValues(DropQueueFull).Inc()
		r.logger.Warn().
			Str("event_type", string(event.EventType)).
			Int("queue_size", r.cfg.QueueSize).
			Msg("interaction queue full, event dropped")
	}
	return nil
}

// Serve drains the queue until ctx is cancelled. On shutdown the remaining
// queue is persisted with a short grace period.
func (r *Recorder) Serve(ctx context.Context) error {
	r.logger.Info().
		Int("batch_size", r.cfg.BatchSize).
		Dur("flush_interval", r.cfg.FlushInterval).
		Msg("interaction recorder started")

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]recommend.InteractionEvent, 0, r.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.persist(drainCtx, batch)
			if err := r.Flush(drainCtx); err != nil {
				r.logger.Warn().Err(err).Msg("interaction queue not fully drained on shutdown")
			}
			cancel()
			r.logger.Info().Msg("interaction recorder stopped")
			return ctx.Err()

		case event := <-r.queue:
			batch = append(batch, event)
			if len(batch) >= r.cfg.BatchSize {
				r.persist(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.persist(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// Flush persists everything currently queued. Events already taken by a
// running Serve loop are persisted by that loop.
func (r *Recorder) Flush(ctx context.Context) error {
	batch := make([]recommend.InteractionEvent, 0, r.cfg.BatchSize)
	for {
		select {
		case event := <-r.queue:
			batch = append(batch, event)
			if len(batch) >= r.cfg.BatchSize {
				r.persist(ctx, batch)
				batch = batch[:0]
			}
		default:
			r.persist(ctx, batch)
			return ctx.Err()
		}
	}
}

// QueueDepth returns the number of events waiting to be persisted.
func (r *Recorder) QueueDepth() int {
	return len(r.queue)
}

// String implements fmt.Stringer for suture.
func (r *Recorder) String() string {
	return "interaction-recorder"
}

func (r *Recorder) persist(ctx context.Context, batch []recommend.InteractionEvent) {
	metrics.InteractionQueueDepth.Set(float64(len(r.queue)))
	if len(batch) == 0 {
		return
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	byType := make(map[recommend.EventType][]recommend.InteractionEvent)
	for i := range batch {
		if reason, ok := r.exists(ctx, &batch[i]); !ok {
			metrics.InteractionsDropped.WithLabelValues(reason).Inc()
			continue
		}
		byType[batch[i].EventType] = append(byType[batch[i].EventType], batch[i])
	}

	for eventType, events := range byType {
		written, err := r.log.Append(ctx, events)
		if err != nil {
			metrics.InteractionsDropped.WithLabelValues(DropPersistFailed).Add(float64(len(events) - written))
			r.logger.Error().Err(err).
				Str("event_type", string(eventType)).
				Int("events", len(events)).
				Int("written", written).
				Msg("failed to persist interactions")
		}
		metrics.InteractionsRecorded.WithLabelValues(string(eventType)).Add(float64(written))
		if err == nil && written < len(events) {
			metrics.InteractionsDeduplicated.Add(float64(len(events) - written))
		}
	}
}

// exists reports whether both ends of the event exist, with the drop reason
// when they do not. Only positive answers are cached.
func (r *Recorder) exists(ctx context.Context, event *recommend.InteractionEvent) (string, bool) {
	if r.checker == nil {
		return "", true
	}

	actorKey := "actor|" + event.ActorKey()
	if _, ok := r.existence.Get(actorKey); !ok {
		found, err := r.checker.ActorExists(ctx, event.ActorType, event.ActorID)
		if err != nil {
			r.logger.Warn().Err(err).Str("actor", event.ActorKey()).Msg("actor existence check failed")
			return DropExistenceCheckFailed, false
		}
		if !found {
			return DropUnknownActor, false
		}
		r.existence.Add(actorKey, struct{}{})
	}

	itemKey := "item|" + event.ItemKey()
	if _, ok := r.existence.Get(itemKey); !ok {
		found, err := r.checker.ItemExists(ctx, event.TargetType, event.TargetID)
		if err != nil {
			r.logger.Warn().Err(err).Str("item", event.ItemKey()).Msg("target existence check failed")
			return DropExistenceCheckFailed, false
		}
		if !found {
			return DropUnknownTarget, false
		}
		r.existence.Add(itemKey, struct{}{})
	}
	return "", true
}
