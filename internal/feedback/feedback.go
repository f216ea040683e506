// Package feedback tracks how well each intervention category works for a
// user. Every response becomes a score in [0,1]; each (user, category) keeps
// only its most recent scores, and the mean of those drives category choice.
package feedback

import (
	"context"
	"fmt"
	"sync"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

const (
	DefaultHistorySize  = 10
	DefaultNeutralPrior = 0.7
)

// Store persists bounded per-(user, category) score lists, newest first.
type Store interface {
	Append(ctx context.Context, userID string, c nudge.Category, score float64, limit int) error
	Scores(ctx context.Context, userID string, c nudge.Category) ([]float64, error)
}

// DefaultScore maps a response with no explicit rating to a score.
func DefaultScore(r nudge.Response) (float64, bool) {
	switch r {
	case nudge.ResponseCompleted:
		return 0.8, true
	case nudge.ResponseDismissed:
		return 0.3, true
	case nudge.ResponseDelayed:
		return 0.5, true
	case nudge.ResponseIgnored:
		return 0.2, true
	}
	return 0, false
}

// RatingScore normalizes a 1..5 rating to [0.2, 1.0].
func RatingScore(rating int) (float64, bool) {
	if rating < 1 || rating > 5 {
		return 0, false
	}
	return float64(rating) / 5, true
}

// Score resolves the score for a response. A valid rating wins over the
// response default.
func Score(r nudge.Response, rating *int) (float64, bool) {
	if rating != nil {
		if s, ok := RatingScore(*rating); ok {
			return s, true
		}
	}
	return DefaultScore(r)
}

// Tracker reads and writes scores through a Store.
type Tracker struct {
	store Store
	limit int
	prior float64
}

// NewTracker returns a tracker bounded to limit scores per category with the
// given prior for categories that have none. Non-positive values fall back
// to the defaults.
func NewTracker(store Store, limit int, prior float64) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if limit < 1 {
		limit = DefaultHistorySize
	}
	if prior < 0 || prior > 1 {
		prior = DefaultNeutralPrior
	}
	return &Tracker{store: store, limit: limit, prior: prior}
}

func (t *Tracker) Prior() float64 { return t.prior }

func (t *Tracker) Limit() int { return t.limit }

// Record appends a score for userID's category c.
func (t *Tracker) Record(ctx context.Context, userID string, c nudge.Category, score float64) error {
	if score < 0 || score > 1 {
		return fmt.Errorf("feedback: score %v out of range", score)
	}
	if err := t.store.Append(ctx, userID, c, score, t.limit); err != nil {
		return fmt.Errorf("feedback: record %s: %w", c, err)
	}
	return nil
}

// History returns the stored scores for a category, newest first.
func (t *Tracker) History(ctx context.Context, userID string, c nudge.Category) ([]float64, error) {
	s, err := t.store.Scores(ctx, userID, c)
	if err != nil {
		return nil, fmt.Errorf("feedback: history %s: %w", c, err)
	}
	return s, nil
}

// Mean returns the mean score for a category, or the prior when none exist.
func (t *Tracker) Mean(ctx context.Context, userID string, c nudge.Category) (float64, error) {
	s, err := t.History(ctx, userID, c)
	if err != nil {
		return 0, err
	}
	return mean(s, t.prior), nil
}

// Scores returns the mean for each of the given categories.
func (t *Tracker) Scores(ctx context.Context, userID string, cats []nudge.Category) (map[nudge.Category]float64, error) {
	out := make(map[nudge.Category]float64, len(cats))
	for _, c := range cats {
		m, err := t.Mean(ctx, userID, c)
		if err != nil {
			return nil, err
		}
		out[c] = m
	}
	return out, nil
}

// CategorySummary describes one category's recorded effectiveness.
type CategorySummary struct {
	Category nudge.Category `json:"category"`
	Mean     float64        `json:"mean"`
	Samples  int            `json:"samples"`
}

// Summary reports every category for userID in catalog order.
func (t *Tracker) Summary(ctx context.Context, userID string) ([]CategorySummary, error) {
	cats := nudge.Categories()
	out := make([]CategorySummary, 0, len(cats))
	for _, c := range cats {
		s, err := t.History(ctx, userID, c)
		if err != nil {
			return nil, err
		}
		out = append(out, CategorySummary{Category: c, Mean: mean(s, t.prior), Samples: len(s)})
	}
	return out, nil
}

func mean(s []float64, prior float64) float64 {
	if len(s) == 0 {
		return prior
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// MemoryStore keeps scores in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	scores map[string][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[string][]float64)}
}

func memKey(userID string, c nudge.Category) string { return userID + "\x00" + string(c) }

func (m *MemoryStore) Append(_ context.Context, userID string, c nudge.Category, score float64, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(userID, c)
	s := append([]float64{score}, m.scores[k]...)
	if len(s) > limit {
		s = s[:limit]
	}
	m.scores[k] = s
	return nil
}

func (m *MemoryStore) Scores(_ context.Context, userID string, c nudge.Category) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.scores[memKey(userID, c)]...), nil
}
