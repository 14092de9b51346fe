package provider

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sarvam-ai/turnengine/internal/turn"
)

// FailoverTTS wraps a primary and fallback TTSClient with the sticky
// failover state machine: once fallback activates (primary failed), it
// stays active until fallback itself fails, at which point primary is
// retried and promoted back to primary-preferred on success.
type FailoverTTS struct {
	primary        TTSClient
	fallback       TTSClient
	fallbackActive atomic.Bool
	onFallback     func()
}

// NewFailoverTTS builds a sticky-failover TTS client. onFallback, if
// non-nil, is invoked every time a call is actually served by the fallback
// provider (wiring point for the tts_fallback metric).
func NewFailoverTTS(primary, fallback TTSClient, onFallback func()) *FailoverTTS {
	return &FailoverTTS{primary: primary, fallback: fallback, onFallback: onFallback}
}

func (f *FailoverTTS) Name() string {
	return fmt.Sprintf("failover(%s,%s)", f.primary.Name(), f.fallback.Name())
}

func (f *FailoverTTS) SupportsLanguage(language string) bool {
	return f.primary.SupportsLanguage(language) || f.fallback.SupportsLanguage(language)
}

func (f *FailoverTTS) Synthesize(ctx context.Context, text, voiceID, language, codec string, sampleRate int, tuning TTSTuning, sessionID, turnID string) (TTSResult, error) {
	useFallbackFirst := f.fallbackActive.Load() || !f.primary.SupportsLanguage(language)

	if useFallbackFirst {
		res, fbErr := f.fallback.Synthesize(ctx, text, voiceID, language, codec, sampleRate, tuning, sessionID, turnID)
		if fbErr == nil {
			if f.onFallback != nil {
				f.onFallback()
			}
			return res, nil
		}
		if !f.primary.SupportsLanguage(language) {
			return TTSResult{}, fbErr
		}
		res, prErr := f.primary.Synthesize(ctx, text, voiceID, language, codec, sampleRate, tuning, sessionID, turnID)
		if prErr == nil {
			f.fallbackActive.Store(false)
			return res, nil
		}
		return TTSResult{}, fmt.Errorf("tts fallback failed: %v; tts primary failed: %w", fbErr, prErr)
	}

	res, prErr := f.primary.Synthesize(ctx, text, voiceID, language, codec, sampleRate, tuning, sessionID, turnID)
	if prErr == nil {
		return res, nil
	}

	if cancelledErr(prErr) {
		return TTSResult{}, prErr
	}

	res, fbErr := f.fallback.Synthesize(ctx, text, voiceID, language, codec, sampleRate, tuning, sessionID, turnID)
	if fbErr != nil {
		return TTSResult{}, fmt.Errorf("tts primary failed: %v; tts fallback failed: %w", prErr, fbErr)
	}
	f.fallbackActive.Store(true)
	if f.onFallback != nil {
		f.onFallback()
	}
	return res, nil
}

func cancelledErr(err error) bool {
	var c *turn.Cancelled
	return errors.As(err, &c)
}
