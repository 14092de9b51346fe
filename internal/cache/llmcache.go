// Package cache implements the two-tier LLM response cache (exact +
// semantic) and the TTS audio cache (§4.4), both keyed by optimization
// tier, both single-flighted per key so concurrent callers for the same key
// await one in-flight computation instead of duplicating it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedLLMResponse mirrors the spec entity (§3). Only entries with
// GuardrailSafe = true are ever stored — the write path in LLMCache.Store
// enforces this rather than trusting callers.
type CachedLLMResponse struct {
	Query            string
	NormalizedQuery  string
	ResponseText     string
	OptimizationTier string
	GuardrailSafe    bool
	TokenCount       int
	StoredAt         time.Time
	TTL              time.Duration
}

func (r CachedLLMResponse) expired(now time.Time) bool {
	return r.TTL > 0 && now.Sub(r.StoredAt) > r.TTL
}

// ExactKey hashes (normalized text, tier) into the stable cache key spec §8
// requires to survive process restarts: a pure function of its inputs, no
// random salt, no process-local state.
func ExactKey(normalizedText, tier string) string {
	sum := sha256.Sum256([]byte(tier + "\x00" + normalizedText))
	return hex.EncodeToString(sum[:])
}

// Normalize lowercases and collapses whitespace; the same normalization
// feeds both the exact-key hash and the semantic Jaccard scorer.
func Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	return strings.Join(fields, " ")
}

type llmEntry struct {
	key      string
	resp     CachedLLMResponse
	storedAt time.Time
}

// LLMCache is the two-lookup cache: exact-hash first, then (if the tier
// enables it) a bounded newest-K Jaccard semantic scan. A rolling
// insertion-order index bounds the semantic scan cost; spec §9 forbids an
// unbounded full-table scan.
type LLMCache struct {
	mu sync.RWMutex
	// exact maps ExactKey -> entry.
	exact map[string]*llmEntry
	// recentByTier holds, per tier, at most 4*maxScan of the newest inserted
	// entries in insertion order (oldest first); the semantic scan walks only
	// the newest maxScan of them, mirroring the ring-buffer idiom used elsewhere in this service
	// for bounded-recency sampling.
	recentByTier map[string][]*llmEntry
	maxScan      int

	sf singleflight.Group
}

// NewLLMCache builds an empty cache. maxScan bounds the semantic scan (spec
// default: 100).
func NewLLMCache(maxScan int) *LLMCache {
	if maxScan <= 0 {
		maxScan = 100
	}
	return &LLMCache{
		exact:        make(map[string]*llmEntry),
		recentByTier: make(map[string][]*llmEntry),
		maxScan:      maxScan,
	}
}

// Lookup is the combined exact+semantic result.
type Lookup struct {
	Hit      bool
	Semantic bool
	Response CachedLLMResponse
	Score    float64
}

// Get performs the exact lookup, then (if semanticEnabled) the semantic
// scan, per §4.4's ordering: exact wins on tie.
func (c *LLMCache) Get(query, tier string, semanticEnabled bool, semanticThreshold float64) Lookup {
	now := time.Now().UTC()
	normalized := Normalize(query)
	exactKey := ExactKey(normalized, tier)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.exact[exactKey]; ok {
		if e.resp.expired(now) {
			delete(c.exact, exactKey)
		} else {
			return Lookup{Hit: true, Response: e.resp}
		}
	}

	if !semanticEnabled {
		return Lookup{}
	}

	bucket := c.evictExpiredLocked(tier, now)
	window := bucket
	if len(window) > c.maxScan {
		window = window[len(window)-c.maxScan:]
	}

	var best *llmEntry
	var bestScore float64
	var bestAt time.Time
	queryWords := wordSet(normalized)
	for _, e := range window {
		score := jaccard(queryWords, wordSet(e.resp.NormalizedQuery))
		if score < semanticThreshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && e.storedAt.After(bestAt)) {
			best = e
			bestScore = score
			bestAt = e.storedAt
		}
	}
	if best == nil {
		return Lookup{}
	}
	return Lookup{Hit: true, Semantic: true, Response: best.resp, Score: bestScore}
}

// evictExpiredLocked drops expired entries from the tier's recency window
// and returns the remaining slice, in insertion order. Caller holds c.mu.
func (c *LLMCache) evictExpiredLocked(tier string, now time.Time) []*llmEntry {
	bucket := c.recentByTier[tier]
	live := bucket[:0:0]
	for _, e := range bucket {
		if e.resp.expired(now) {
			delete(c.exact, e.key)
			continue
		}
		live = append(live, e)
	}
	c.recentByTier[tier] = live
	return live
}

// Store writes resp keyed by (normalized query, tier). Refuses to store
// anything not marked GuardrailSafe — §3's invariant is enforced here, not
// merely documented.
func (c *LLMCache) Store(resp CachedLLMResponse) {
	if !resp.GuardrailSafe {
		return
	}
	if resp.NormalizedQuery == "" {
		resp.NormalizedQuery = Normalize(resp.Query)
	}
	if resp.StoredAt.IsZero() {
		resp.StoredAt = time.Now().UTC()
	}
	key := ExactKey(resp.NormalizedQuery, resp.OptimizationTier)
	e := &llmEntry{key: key, resp: resp, storedAt: resp.StoredAt}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.exact[key] = e
	bucket := append(c.recentByTier[resp.OptimizationTier], e)
	if len(bucket) > c.maxScan*4 {
		// Bound memory even between lazy-eviction reads: keep at most 4x the
		// scan window of raw history per tier.
		bucket = bucket[len(bucket)-c.maxScan*4:]
	}
	c.recentByTier[resp.OptimizationTier] = bucket
}

// SingleFlight ensures at most one in-flight computation per (query, tier):
// concurrent callers for the same key block on the first caller's result
// instead of starting duplicate LLM calls.
func (c *LLMCache) SingleFlight(ctx context.Context, query, tier string, fn func() (CachedLLMResponse, error)) (CachedLLMResponse, error, bool) {
	key := ExactKey(Normalize(query), tier)
	v, err, shared := c.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return CachedLLMResponse{}, err, shared
	}
	return v.(CachedLLMResponse), nil, shared
}

func wordSet(normalized string) map[string]struct{} {
	words := strings.Fields(normalized)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccard scores two lowercased word sets: |A∩B| / |A∪B|.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// sortedSnapshot returns a copy of a tier's recency bucket ordered by
// storedAt, oldest first. Nothing in the module calls it.
func (c *LLMCache) sortedSnapshot(tier string) []CachedLLMResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bucket := append([]*llmEntry(nil), c.recentByTier[tier]...)
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].storedAt.Before(bucket[j].storedAt) })
	out := make([]CachedLLMResponse, len(bucket))
	for i, e := range bucket {
		out[i] = e.resp
	}
	return out
}
