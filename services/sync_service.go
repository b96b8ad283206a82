package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vnkhanh/vocasync/metrics"
	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/store"
	"github.com/vnkhanh/vocasync/utils"
)

const (
	wordsCollection   = "words"
	reviewsCollection = "reviews"
)

// SyncNotifier is told about accepted pushes so other devices can pull.
type SyncNotifier interface {
	NotifySync(subject string, event models.SyncEvent)
}

// SyncService merges client batches into the record store and serves
// incremental pulls. It holds no per-user state; every call is independent.
type SyncService struct {
	store    store.Store
	notifier SyncNotifier
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

type SyncOption func(*SyncService)

// WithNotifier publishes a SyncEvent after every push that changed something.
func WithNotifier(n SyncNotifier) SyncOption {
	return func(s *SyncService) { s.notifier = n }
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) SyncOption {
	return func(s *SyncService) { s.timeout = d }
}

func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) { s.now = now }
}

func WithLogger(l *slog.Logger) SyncOption {
	return func(s *SyncService) { s.logger = l }
}

func NewSyncService(st store.Store, opts ...SyncOption) *SyncService {
	s := &SyncService{store: st, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PushResult struct {
	Synced    models.SyncedCounts
	Timestamp int64
}

type PullResult struct {
	Words     []models.WordEntry
	Reviews   []models.ReviewState
	Timestamp int64
}

// Push validates the whole batch, then hands every record to the store as one
// conditional multi-path update. Records that lose the last-writer-wins
// comparison are skipped silently and only show up in the counts.
func (s *SyncService) Push(ctx context.Context, subject string, req models.PushRequest) (PushResult, error) {
	if err := validateSubject(subject); err != nil {
		return PushResult{}, err
	}
	if err := ValidatePushRequest(req); err != nil {
		return PushResult{}, err
	}
	start := time.Now()

	writes := make([]store.Write, 0, len(req.Words)+len(req.Reviews))
	for _, w := range req.Words {
		w.SyncedAt = req.Timestamp
		w.SyncedFrom = req.DeviceID
		value, err := json.Marshal(w)
		if err != nil {
			return PushResult{}, fmt.Errorf("encode word %q: %w", w.ID, err)
		}
		updatedAt := w.UpdatedAt
		writes = append(writes, store.Write{
			Path:       recordPath(subject, wordsCollection, w.ID),
			Stamp:      &updatedAt,
			ModifiedAt: w.ModifiedAt(),
			Value:      value,
		})
	}
	for _, r := range req.Reviews {
		r.SyncedAt = req.Timestamp
		r.SyncedFrom = req.DeviceID
		value, err := json.Marshal(r)
		if err != nil {
			return PushResult{}, fmt.Errorf("encode review %q: %w", r.WordID, err)
		}
		writes = append(writes, store.Write{
			Path:       recordPath(subject, reviewsCollection, r.WordID),
			Stamp:      r.ConflictStamp(),
			ModifiedAt: r.ModifiedAt(),
			Value:      value,
		})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	applied, err := s.store.Apply(ctx, writes)
	if err != nil {
		metrics.SyncRequests.WithLabelValues("push", "error").Inc()
		return PushResult{}, storeError("push", err)
	}

	var synced models.SyncedCounts
	for i, ok := range applied {
		if !ok {
			continue
		}
		if i < len(req.Words) {
			synced.Words++
		} else {
			synced.Reviews++
		}
	}
	recordPushMetrics(len(req.Words), len(req.Reviews), synced, time.Since(start))

	res := PushResult{Synced: synced, Timestamp: s.now().UnixMilli()}
	s.logger.InfoContext(ctx, "push applied",
		"subject", subject,
		"device", req.DeviceID,
		"words", fmt.Sprintf("%d/%d", synced.Words, len(req.Words)),
		"reviews", fmt.Sprintf("%d/%d", synced.Reviews, len(req.Reviews)),
	)

	if s.notifier != nil && synced.Words+synced.Reviews > 0 {
		s.notifier.NotifySync(subject, models.SyncEvent{
			Type:      models.SyncEventAvailable,
			DeviceID:  req.DeviceID,
			Synced:    synced,
			Timestamp: res.Timestamp,
		})
	}
	return res, nil
}

// Pull returns every word and review of subject modified after cursor; a zero
// cursor returns everything. Both collections are read whole and filtered
// here, which is fine for one user's vocabulary but does not scale to large
// namespaces.
func (s *SyncService) Pull(ctx context.Context, subject string, cursor int64) (PullResult, error) {
	if err := validateSubject(subject); err != nil {
		return PullResult{}, err
	}
	if cursor < 0 {
		return PullResult{}, invalid("lastSyncedAt", "must not be negative")
	}
	start := time.Now()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	wordRecs, err := s.store.Children(ctx, collectionPath(subject, wordsCollection))
	if err != nil {
		metrics.SyncRequests.WithLabelValues("pull", "error").Inc()
		return PullResult{}, storeError("pull words", err)
	}
	reviewRecs, err := s.store.Children(ctx, collectionPath(subject, reviewsCollection))
	if err != nil {
		metrics.SyncRequests.WithLabelValues("pull", "error").Inc()
		return PullResult{}, storeError("pull reviews", err)
	}

	res := PullResult{
		Words:   make([]models.WordEntry, 0, len(wordRecs)),
		Reviews: make([]models.ReviewState, 0, len(reviewRecs)),
	}
	for _, rec := range wordRecs {
		if !changedSince(rec.ModifiedAt, cursor) {
			continue
		}
		var w models.WordEntry
		id, err := decodeRecord(rec, &w)
		if err != nil {
			return PullResult{}, fmt.Errorf("pull words: %w", err)
		}
		w.ID = id
		res.Words = append(res.Words, w)
	}
	for _, rec := range reviewRecs {
		if !changedSince(rec.ModifiedAt, cursor) {
			continue
		}
		var r models.ReviewState
		id, err := decodeRecord(rec, &r)
		if err != nil {
			return PullResult{}, fmt.Errorf("pull reviews: %w", err)
		}
		r.WordID = id
		res.Reviews = append(res.Reviews, r)
	}
	res.Timestamp = s.now().UnixMilli()

	metrics.SyncRequests.WithLabelValues("pull", "ok").Inc()
	metrics.PulledRecords.WithLabelValues("word").Add(float64(len(res.Words)))
	metrics.PulledRecords.WithLabelValues("review").Add(float64(len(res.Reviews)))
	metrics.SyncDuration.WithLabelValues("pull").Observe(time.Since(start).Seconds())

	s.logger.DebugContext(ctx, "pull served",
		"subject", subject, "cursor", cursor,
		"words", len(res.Words), "reviews", len(res.Reviews),
	)
	return res, nil
}

// Review returns the stored review state of one word. ok is false when the word
// was never reviewed on any device.
func (s *SyncService) Review(ctx context.Context, subject, wordID string) (state models.ReviewState, ok bool, err error) {
	if err := validateSubject(subject); err != nil {
		return models.ReviewState{}, false, err
	}
	if !utils.ValidKey(wordID) {
		return models.ReviewState{}, false, invalid("wordId", "missing or malformed word id")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, err := s.store.Get(ctx, recordPath(subject, reviewsCollection, wordID))
	if errors.Is(err, store.ErrNotFound) {
		return models.ReviewState{}, false, nil
	}
	if err != nil {
		return models.ReviewState{}, false, storeError("get review", err)
	}
	id, err := decodeRecord(*rec, &state)
	if err != nil {
		return models.ReviewState{}, false, err
	}
	state.WordID = id
	return state, true, nil
}

func (s *SyncService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func changedSince(modifiedAt, cursor int64) bool {
	return cursor == 0 || modifiedAt > cursor
}

// collectionPath is users/{subject}/{collection}; subject and record ids go
// through the same key encoding on the write and the read path.
func collectionPath(subject, collection string) string {
	return store.Join("users", utils.EncodeKey(subject), collection)
}

func recordPath(subject, collection, id string) string {
	return store.Join(collectionPath(subject, collection), utils.EncodeKey(id))
}

// decodeRecord unmarshals rec into v and returns the record id recovered from its key.
func decodeRecord(rec store.Record, v any) (string, error) {
	id, err := utils.DecodeKey(store.Base(rec.Path))
	if err != nil {
		return "", fmt.Errorf("record %s: %w", rec.Path, err)
	}
	if err := json.Unmarshal(rec.Value, v); err != nil {
		return "", fmt.Errorf("record %s: %w", rec.Path, err)
	}
	return id, nil
}

func recordPushMetrics(words, reviews int, synced models.SyncedCounts, took time.Duration) {
	metrics.SyncRequests.WithLabelValues("push", "ok").Inc()
	metrics.PushedRecords.WithLabelValues("word", "accepted").Add(float64(synced.Words))
	metrics.PushedRecords.WithLabelValues("word", "skipped").Add(float64(words - synced.Words))
	metrics.PushedRecords.WithLabelValues("review", "accepted").Add(float64(synced.Reviews))
	metrics.PushedRecords.WithLabelValues("review", "skipped").Add(float64(reviews - synced.Reviews))
	metrics.SyncDuration.WithLabelValues("push").Observe(took.Seconds())
}
