package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sarvam-ai/turnengine/internal/provider"
)

// CachedTTSResponse mirrors the spec entity (§3).
type CachedTTSResponse struct {
	TextHash   string
	VoiceID    string
	Provider   string
	Codec      string
	SampleRate int
	Audio      []byte
	StoredAt   time.Time
	TTL        time.Duration
}

func (r CachedTTSResponse) expired(now time.Time) bool {
	return r.TTL > 0 && now.Sub(r.StoredAt) > r.TTL
}

// TTSKey hashes (text, voice, provider, codec, sample rate, tuning) into a
// stable key. No semantic tier for audio.
func TTSKey(text, voiceID, providerName, codec string, sampleRate int, tuning provider.TTSTuning) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d\x00%.4f\x00%.4f\x00%.4f",
		text, voiceID, providerName, codec, sampleRate, tuning.Pitch, tuning.Pace, tuning.Loudness)
	return hex.EncodeToString(h.Sum(nil))
}

// TTSCache is the audio-blob cache, single-flighted per key.
type TTSCache struct {
	mu      sync.RWMutex
	entries map[string]CachedTTSResponse
	sf      singleflight.Group
}

func NewTTSCache() *TTSCache {
	return &TTSCache{entries: make(map[string]CachedTTSResponse)}
}

func (c *TTSCache) Get(key string) (CachedTTSResponse, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return CachedTTSResponse{}, false
	}
	if e.expired(time.Now().UTC()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return CachedTTSResponse{}, false
	}
	return e, true
}

func (c *TTSCache) Store(key string, resp CachedTTSResponse) {
	if resp.StoredAt.IsZero() {
		resp.StoredAt = time.Now().UTC()
	}
	c.mu.Lock()
	c.entries[key] = resp
	c.mu.Unlock()
}

// SingleFlight coalesces concurrent synthesis calls for the same key.
func (c *TTSCache) SingleFlight(key string, fn func() (CachedTTSResponse, error)) (CachedTTSResponse, error, bool) {
	v, err, shared := c.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return CachedTTSResponse{}, err, shared
	}
	return v.(CachedTTSResponse), nil, shared
}
