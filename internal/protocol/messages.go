// Package protocol defines the inbound turn-stream wire format (§6): the
// client→server {start, audio, text, interrupt, stop} message kinds and the
// server→client {session_started, config_loaded, response, interrupted,
// error, session_stopped} kinds, plus the base64 audio decoding rules
// (optional data-URL prefix, non-fatal decode errors) the session edge
// applies before handing a turn to the orchestrator.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies a websocket payload variant.
type MessageType string

const (
	TypeStart     MessageType = "start"
	TypeAudio     MessageType = "audio"
	TypeText      MessageType = "text"
	TypeInterrupt MessageType = "interrupt"
	TypeStop      MessageType = "stop"

	TypeSessionStarted MessageType = "session_started"
	TypeConfigLoaded   MessageType = "config_loaded"
	TypeResponse       MessageType = "response"
	TypeInterrupted    MessageType = "interrupted"
	TypeError          MessageType = "error"
	TypeSessionStopped MessageType = "session_stopped"
)

var ErrUnsupportedType = errors.New("unsupported message type")

// Start is the client's `start` message: open a session, optionally bound
// to a named configuration or with tier/language overrides.
type Start struct {
	Type             MessageType `json:"type"`
	SessionID        string      `json:"sessionId"`
	ConfigID         string      `json:"configId,omitempty"`
	OptimizationLevel string     `json:"optimizationLevel,omitempty"`
	TargetLanguage   string      `json:"targetLanguage,omitempty"`
}

// Audio is the client's `audio` message. AudioBase64 may carry a leading
// `data:audio/...;base64,` prefix, which DecodeAudio strips before decoding.
type Audio struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"sessionId"`
	AudioBase64       string      `json:"audio"`
	Timestamp         int64       `json:"timestamp"`
	OptimizationLevel string      `json:"optimizationLevel,omitempty"`
}

// Text is the client's `text` message (a text-entered turn; ASR is
// skipped).
type Text struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"sessionId"`
	Text              string      `json:"text"`
	OptimizationLevel string      `json:"optimizationLevel,omitempty"`
	TargetLanguage    string      `json:"targetLanguage,omitempty"`
}

// Interrupt is the client's `interrupt` message: cancel the named turn
// (barge-in).
type Interrupt struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	TurnID    string      `json:"turnId"`
}

// Stop is the client's `stop` message: end the session.
type Stop struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
}

// SessionStarted acknowledges a `start` message.
type SessionStarted struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
}

// ConfigLoaded reports the optimization tier and target language actually
// applied, which may differ from the request if a named configuration
// supplied defaults.
type ConfigLoaded struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"sessionId"`
	OptimizationLevel string      `json:"optimizationLevel"`
	TargetLanguage    string      `json:"targetLanguage"`
}

// Response is one completed turn's result.
type Response struct {
	Type           MessageType `json:"type"`
	SessionID      string      `json:"sessionId"`
	TurnID         string      `json:"turnId"`
	Transcript     string      `json:"transcript"`
	Text           string      `json:"text"`
	TranslatedText string      `json:"translated_text,omitempty"`
	AudioBase64    string      `json:"audio,omitempty"`
	AudioMime      string      `json:"audio_mime,omitempty"`
}

// Interrupted reports a cancelled turn.
type Interrupted struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	TurnID    string      `json:"turnId"`
	Reason    string      `json:"reason"`
}

// Error reports a non-fatal or fatal condition; the session continues
// unless the transport itself closes.
type Error struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Code      string      `json:"code"`
	Message   string      `json:"message"`
}

// SessionStopped acknowledges a `stop` message or a server-initiated close.
type SessionStopped struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
}

type clientInbound struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"sessionId"`
	ConfigID          string      `json:"configId"`
	OptimizationLevel string      `json:"optimizationLevel"`
	TargetLanguage    string      `json:"targetLanguage"`
	Audio             string      `json:"audio"`
	Timestamp         int64       `json:"timestamp"`
	Text              string      `json:"text"`
	TurnID            string      `json:"turnId"`
}

// ParseClientMessage decodes one inbound frame into its typed variant.
// Unknown kinds return ErrUnsupportedType; malformed required fields return
// a descriptive error — both are caller's responsibility to translate into
// an `error` message without closing the connection.
func ParseClientMessage(raw []byte) (any, error) {
	var inbound clientInbound
	if err := json.Unmarshal(raw, &inbound); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch inbound.Type {
	case TypeStart:
		if inbound.SessionID == "" {
			return nil, errors.New("invalid start: sessionId required")
		}
		return Start{
			Type: TypeStart, SessionID: inbound.SessionID, ConfigID: inbound.ConfigID,
			OptimizationLevel: inbound.OptimizationLevel, TargetLanguage: inbound.TargetLanguage,
		}, nil
	case TypeAudio:
		if inbound.SessionID == "" || inbound.Audio == "" {
			return nil, errors.New("invalid audio: sessionId and audio required")
		}
		return Audio{
			Type: TypeAudio, SessionID: inbound.SessionID, AudioBase64: inbound.Audio,
			Timestamp: inbound.Timestamp, OptimizationLevel: inbound.OptimizationLevel,
		}, nil
	case TypeText:
		if inbound.SessionID == "" || inbound.Text == "" {
			return nil, errors.New("invalid text: sessionId and text required")
		}
		return Text{
			Type: TypeText, SessionID: inbound.SessionID, Text: inbound.Text,
			OptimizationLevel: inbound.OptimizationLevel, TargetLanguage: inbound.TargetLanguage,
		}, nil
	case TypeInterrupt:
		if inbound.SessionID == "" {
			return nil, errors.New("invalid interrupt: sessionId required")
		}
		return Interrupt{Type: TypeInterrupt, SessionID: inbound.SessionID, TurnID: inbound.TurnID}, nil
	case TypeStop:
		if inbound.SessionID == "" {
			return nil, errors.New("invalid stop: sessionId required")
		}
		return Stop{Type: TypeStop, SessionID: inbound.SessionID}, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// dataURLSentinel ends a data-URL's scheme/mime/encoding header; for a
// payload starting with "data:", everything up to and including its first
// occurrence is stripped before base64 decoding.
const dataURLSentinel = ";base64,"

// DecodeAudio strips an optional `data:audio/...;base64,` prefix and
// base64-decodes the remainder. Per §6, decode errors here are meant to be
// non-fatal to the session: the caller drops the chunk and emits an `error`
// message rather than closing the connection.
func DecodeAudio(payload string) ([]byte, error) {
	if idx := strings.Index(payload, dataURLSentinel); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+len(dataURLSentinel):]
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return decoded, nil
}
