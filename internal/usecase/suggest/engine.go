// Package suggest ranks autocomplete candidates from the shared vocabulary.
package suggest

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
)

// Similarity levels.
const (
	SimilarityPrefix    = 1.0
	SimilaritySubstring = 0.6
	SimilarityEdit1     = 0.3
	SimilarityEdit2     = 0.15
)

// Defaults.
const (
	DefaultHalfLife     = 7 * 24 * time.Hour
	DefaultLimit        = 10
	MaxLimit            = 50
	MaxPrefixLength     = 256
	minFuzzyPrefixRunes = 3
)

// Config weights the three ranking signals. Zero values fall back to defaults.
type Config struct {
	SimilarityWeight float64
	UsageWeight      float64
	RecencyWeight    float64
	HalfLife         time.Duration
	DefaultLimit     int
	MaxLimit         int
}

// Engine ranks vocabulary entries against a typed prefix.
type Engine struct {
	vocab *Vocabulary
	cfg   Config
	now   func() time.Time
}

// NewEngine creates a suggestion engine over the vocabulary.
func NewEngine(vocab *Vocabulary, cfg Config) *Engine {
	if cfg.SimilarityWeight == 0 && cfg.UsageWeight == 0 && cfg.RecencyWeight == 0 {
		cfg.SimilarityWeight, cfg.UsageWeight, cfg.RecencyWeight = 1, 1, 1
	}
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = DefaultHalfLife
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = min(DefaultLimit, cfg.MaxLimit)
	}
	return &Engine{vocab: vocab, cfg: cfg, now: time.Now}
}

type candidate struct {
	entry      suggestion.Entry
	similarity float64
}

// Suggest returns up to limit suggestions for the prefix, best first.
// An empty prefix lists the entries of the requested types and requires at least one type.
func (e *Engine) Suggest(
	_ context.Context, prefix string, types []suggestion.Type, limit int,
) ([]suggestion.Suggestion, error) {
	out, err := e.suggest(prefix, types, limit)
	status := "ok"
	if err != nil {
		status = "invalid"
	}
	metrics.SuggestRequestsTotal.WithLabelValues(status).Inc()
	return out, err
}

func (e *Engine) suggest(prefix string, types []suggestion.Type, limit int) ([]suggestion.Suggestion, error) {
	prefix = analytics.NormalizeQuery(prefix)
	if prefix == "" && len(types) == 0 {
		return nil, domain.InvalidQuery("prefix or types required")
	}
	if utf8.RuneCountInString(prefix) > MaxPrefixLength {
		return nil, domain.InvalidQuery("prefix too long (max %d chars)", MaxPrefixLength)
	}
	for _, t := range types {
		if !t.IsValid() {
			return nil, domain.InvalidQuery("unknown suggestion type %q", t)
		}
	}
	switch {
	case limit < 0:
		return nil, domain.InvalidQuery("limit must be positive")
	case limit == 0:
		limit = e.cfg.DefaultLimit
	case limit > e.cfg.MaxLimit:
		limit = e.cfg.MaxLimit
	}

	var (
		cands    []candidate
		maxUsage int64
	)
	for _, entry := range e.vocab.Snapshot(types) {
		sim := Similarity(prefix, entry.Value)
		if sim <= 0 {
			continue
		}
		cands = append(cands, candidate{entry: entry, similarity: sim})
		maxUsage = max(maxUsage, entry.UsageCount)
	}

	now := e.now()
	type ranked struct {
		entry suggestion.Entry
		score float64
	}
	scoredCands := make([]ranked, len(cands))
	for i, c := range cands {
		var usage float64
		if maxUsage > 0 {
			usage = float64(c.entry.UsageCount) / float64(maxUsage)
		}
		score := c.similarity*e.cfg.SimilarityWeight +
			usage*e.cfg.UsageWeight +
			RecencyDecay(c.entry.LastUsedAt, now, e.cfg.HalfLife)*e.cfg.RecencyWeight
		scoredCands[i] = ranked{entry: c.entry, score: score}
	}

	slices.SortFunc(scoredCands, func(a, b ranked) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.entry.UsageCount, a.entry.UsageCount); c != 0 {
			return c
		}
		if c := strings.Compare(a.entry.Value, b.entry.Value); c != 0 {
			return c
		}
		return strings.Compare(string(a.entry.Type), string(b.entry.Type))
	})

	if len(scoredCands) > limit {
		scoredCands = scoredCands[:limit]
	}
	out := make([]suggestion.Suggestion, len(scoredCands))
	for i, r := range scoredCands {
		out[i] = suggestion.New(r.entry.Type, r.entry.Value, r.score)
	}
	return out, nil
}

// Similarity scores how well a value completes the normalized prefix.
// Exact prefix beats substring beats a small edit distance; zero means no match.
// Edit distance is only considered for prefixes of at least three characters and is measured
// against the value's leading characters as well as the whole value.
func Similarity(prefix, value string) float64 {
	if prefix == "" {
		return SimilarityPrefix
	}
	v := strings.ToLower(value)
	switch {
	case strings.HasPrefix(v, prefix):
		return SimilarityPrefix
	case strings.Contains(v, prefix):
		return SimilaritySubstring
	}

	n := utf8.RuneCountInString(prefix)
	if n < minFuzzyPrefixRunes {
		return 0
	}
	d := levenshtein.Distance(prefix, v, nil)
	if head := leadingRunes(v, n); head != v {
		d = min(d, levenshtein.Distance(prefix, head, nil))
	}
	switch d {
	case 1:
		return SimilarityEdit1
	case 2:
		return SimilarityEdit2
	}
	return 0
}

// RecencyDecay halves every halfLife since last use. A never-used entry scores zero.
func RecencyDecay(lastUsed, now time.Time, halfLife time.Duration) float64 {
	if lastUsed.IsZero() || halfLife <= 0 {
		return 0
	}
	age := now.Sub(lastUsed)
	if age < 0 {
		age = 0
	}
	return math.Exp(-math.Ln2 * float64(age) / float64(halfLife))
}

func leadingRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
