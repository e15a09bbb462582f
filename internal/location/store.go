package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoReport = errors.New("no location reported")

// Report is what a device posts: either a fix or the code of the error the
// device hit while trying to get one.
type Report struct {
	Fix        Fix       `json:"fix"`
	Code       Code      `json:"code,omitempty"`
	ReportedAt time.Time `json:"reportedAt"`
}

func (r Report) Result() (Fix, error) {
	if r.Code != "" {
		return Fix{}, &Error{Code: r.Code}
	}
	return r.Fix, nil
}

type FixStore interface {
	Save(ctx context.Context, subject string, report Report) error
	Latest(ctx context.Context, subject string) (Report, error)
}

type MemoryFixStore struct {
	mu      sync.RWMutex
	reports map[string]Report
}

func NewMemoryFixStore() *MemoryFixStore {
	return &MemoryFixStore{reports: make(map[string]Report)}
}

func (s *MemoryFixStore) Save(_ context.Context, subject string, report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[subject] = report
	return nil
}

func (s *MemoryFixStore) Latest(_ context.Context, subject string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[subject]
	if !ok {
		return Report{}, ErrNoReport
	}
	return report, nil
}

const reportTTL = 24 * time.Hour

type RedisFixStore struct {
	client *redis.Client
}

func NewRedisFixStore(client *redis.Client) *RedisFixStore {
	return &RedisFixStore{client: client}
}

func reportKey(subject string) string {
	return fmt.Sprintf("location:report:%s", subject)
}

func (s *RedisFixStore) Save(ctx context.Context, subject string, report Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode location report: %w", err)
	}

	if err := s.client.Set(ctx, reportKey(subject), data, reportTTL).Err(); err != nil {
		return fmt.Errorf("failed to save location report: %w", err)
	}
	return nil
}

func (s *RedisFixStore) Latest(ctx context.Context, subject string) (Report, error) {
	data, err := s.client.Get(ctx, reportKey(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Report{}, ErrNoReport
		}
		return Report{}, fmt.Errorf("failed to load location report: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("failed to decode location report: %w", err)
	}
	return report, nil
}

const defaultPollInterval = 250 * time.Millisecond

// StoredLocator serves device reports from a FixStore. Until a report
// arrives it polls, so the Acquirer's timeout bounds the wait.
type StoredLocator struct {
	store        FixStore
	pollInterval time.Duration
	now          func() time.Time
}

func NewStoredLocator(store FixStore) *StoredLocator {
	return &StoredLocator{
		store:        store,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
}

func (l *StoredLocator) Locate(ctx context.Context, subject string, opts Options) (Fix, error) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		report, err := l.store.Latest(ctx, subject)
		switch {
		case err == nil && l.fresh(report, opts):
			return report.Result()
		case err != nil && !errors.Is(err, ErrNoReport):
			return Fix{}, err
		}

		select {
		case <-ctx.Done():
			return Fix{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// fresh rejects fixes older than MaxAge. Error reports are always fresh.
func (l *StoredLocator) fresh(report Report, opts Options) bool {
	if report.Code != "" || opts.MaxAge <= 0 {
		return true
	}
	return l.now().Sub(report.Fix.Timestamp) <= opts.MaxAge
}
