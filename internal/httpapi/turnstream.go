package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sarvam-ai/turnengine/internal/pipeline"
	"github.com/sarvam-ai/turnengine/internal/protocol"
	"github.com/sarvam-ai/turnengine/internal/session"
	"github.com/sarvam-ai/turnengine/internal/store"
	"github.com/sarvam-ai/turnengine/internal/turn"
)

// handleTurnWS is the persistent per-client connection: `start` opens a
// session, `audio`/`text` each drive exactly one ProcessTurn call,
// `interrupt` cancels the session's active turn, `stop` ends the session.
// One reader loop drives the connection; writes happen only from the
// reader goroutine (ProcessTurn calls are synchronous per spec's
// one-turn-at-a-time contract, so there is no separate writer goroutine to
// race with).
func (s *Server) handleTurnWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(8 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	var activeSessionID string

	writeJSON := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			if s.metrics != nil {
				s.metrics.WSWriteErrors.WithLabelValues("write_json").Inc()
			}
			return false
		}
		return true
	}

	sendError := func(sessionID, code, message string) {
		writeJSON(protocol.Error{Type: protocol.TypeError, SessionID: sessionID, Code: code, Message: message})
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			sendError(activeSessionID, "invalid_message", err.Error())
			continue
		}

		if t, ok := messageTypeOf(parsed); ok && s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch m := parsed.(type) {
		case protocol.Start:
			activeSessionID = m.SessionID
			tier, targetLanguage := s.resolveStartDefaults(r.Context(), m)
			s.sessions.Create(m.SessionID, tier, targetLanguage, m.ConfigID)
			if s.store != nil {
				_ = s.store.UpsertSession(r.Context(), sessionRowFor(m.SessionID, tier, targetLanguage, m.ConfigID))
			}
			if s.metrics != nil {
				s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
				s.metrics.SessionEvents.WithLabelValues("created").Inc()
			}
			writeJSON(protocol.SessionStarted{Type: protocol.TypeSessionStarted, SessionID: m.SessionID})
			writeJSON(protocol.ConfigLoaded{
				Type: protocol.TypeConfigLoaded, SessionID: m.SessionID,
				OptimizationLevel: tier, TargetLanguage: targetLanguage,
			})

		case protocol.Audio:
			audioBytes, decodeErr := protocol.DecodeAudio(m.AudioBase64)
			if decodeErr != nil {
				sendError(m.SessionID, "invalid_audio", decodeErr.Error())
				continue
			}
			s.runTurn(r, writeJSON, pipeline.TurnInput{
				SessionID:         m.SessionID,
				OptimizationTier:  m.OptimizationLevel,
				AudioBytes:        audioBytes,
				AudioFormat:       "wav",
			}, sendError)

		case protocol.Text:
			s.runTurn(r, writeJSON, pipeline.TurnInput{
				SessionID:         m.SessionID,
				OptimizationTier:  m.OptimizationLevel,
				TargetLanguage:    m.TargetLanguage,
				Text:              m.Text,
			}, sendError)

		case protocol.Interrupt:
			turnID := m.TurnID
			if turnID == "" {
				if active, ok := s.fabric.ActiveTurnID(m.SessionID); ok {
					turnID = active
				}
			}
			if turnID != "" {
				s.fabric.Cancel(m.SessionID, turnID, turn.ReasonUserBargeIn)
			}
			writeJSON(protocol.Interrupted{Type: protocol.TypeInterrupted, SessionID: m.SessionID, TurnID: turnID, Reason: string(turn.ReasonUserBargeIn)})

		case protocol.Stop:
			_, _ = s.sessions.End(m.SessionID)
			if s.metrics != nil {
				s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
				s.metrics.SessionEvents.WithLabelValues("ended").Inc()
			}
			writeJSON(protocol.SessionStopped{Type: protocol.TypeSessionStopped, SessionID: m.SessionID})
		}
	}

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}
}

func (s *Server) resolveStartDefaults(ctx context.Context, m protocol.Start) (tier, targetLanguage string) {
	tier = strings.TrimSpace(m.OptimizationLevel)
	targetLanguage = strings.TrimSpace(m.TargetLanguage)
	if m.ConfigID == "" || s.store == nil {
		return tier, targetLanguage
	}
	cfgRow, err := s.store.GetSessionConfiguration(ctx, m.ConfigID)
	if err != nil {
		return tier, targetLanguage
	}
	if tier == "" {
		tier = cfgRow.OptimizationTier
	}
	if targetLanguage == "" {
		targetLanguage = cfgRow.TargetLanguage
	}
	return tier, targetLanguage
}

func sessionRowFor(sessionID, tier, targetLanguage, configID string) store.SessionRow {
	now := time.Now().UTC()
	return store.SessionRow{
		SessionID: sessionID, OptimizationTier: tier, TargetLanguage: targetLanguage,
		ConfigurationID: configID, Status: string(session.StatusActive),
		CreatedAt: now, LastActivityAt: now,
	}
}

func (s *Server) runTurn(r *http.Request, writeJSON func(any) bool, in pipeline.TurnInput, sendError func(sessionID, code, message string)) {
	result, err := s.orchestrator.ProcessTurn(r.Context(), in)
	if err != nil || result == nil {
		sendError(in.SessionID, "turn_failed", errString(err))
		return
	}
	if result.Status == turn.StatusInterrupted {
		writeJSON(protocol.Interrupted{
			Type: protocol.TypeInterrupted, SessionID: in.SessionID, TurnID: result.TurnID,
			Reason: string(result.InterruptReason),
		})
		return
	}

	resp := protocol.Response{
		Type:           protocol.TypeResponse,
		SessionID:      in.SessionID,
		TurnID:         result.TurnID,
		Transcript:     result.Transcript,
		Text:           result.ResponseText,
		TranslatedText: result.TranslatedText,
	}
	if len(result.AudioBytes) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(result.AudioBytes)
		resp.AudioMime = mimeForCodec(result.AudioCodec)
	}
	writeJSON(resp)
}

func errString(err error) string {
	if err == nil {
		return "turn did not complete"
	}
	return err.Error()
}

func mimeForCodec(codec string) string {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "wav", "pcm":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.Start:
		return m.Type, true
	case protocol.Audio:
		return m.Type, true
	case protocol.Text:
		return m.Type, true
	case protocol.Interrupt:
		return m.Type, true
	case protocol.Stop:
		return m.Type, true
	default:
		return "", false
	}
}
