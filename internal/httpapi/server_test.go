package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sarvam-ai/turnengine/internal/config"
	"github.com/sarvam-ai/turnengine/internal/observability"
	"github.com/sarvam-ai/turnengine/internal/pipeline"
	"github.com/sarvam-ai/turnengine/internal/session"
	"github.com/sarvam-ai/turnengine/internal/store"
	"github.com/sarvam-ai/turnengine/internal/turn"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Config{
		SessionInactivityTimeout: 2 * time.Minute,
		AuthHeaderName:           "X-Api-Key",
		AuthSecret:               "test-secret",
		TurnDeadline:             2 * time.Second,
	}
	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	fabric := turn.NewFabric()
	st := store.NewInMemoryStore()
	orch := pipeline.New(sessions, fabric, st)
	metrics := observability.NewMetrics("test_httpapi_" + strconv.FormatInt(time.Now().UnixNano(), 10))
	srv := New(cfg, sessions, fabric, orch, st, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func authedGet(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Api-Key", "test-secret")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return res
}

func TestHealthIsUnauthenticated(t *testing.T) {
	_, ts := testServer(t)
	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestProtectedRouteRejectsMissingCredential(t *testing.T) {
	_, ts := testServer(t)
	res, err := http.Get(ts.URL + "/llm/providers")
	if err != nil {
		t.Fatalf("GET /llm/providers error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestProtectedRouteAcceptsHeaderCredential(t *testing.T) {
	_, ts := testServer(t)
	res := authedGet(t, ts, "/llm/providers")
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestSystemPromptCRUD(t *testing.T) {
	_, ts := testServer(t)

	body, _ := json.Marshal(systemPromptRequest{Name: "friendly", Text: "Be warm and concise."})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/system-prompts", bytes.NewReader(body))
	req.Header.Set("X-Api-Key", "test-secret")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create request error: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created systemPromptDTO
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("missing id in created system prompt")
	}

	delReq, _ := http.NewRequest(http.MethodDelete, ts.URL+"/system-prompts/"+created.ID, nil)
	delReq.Header.Set("X-Api-Key", "test-secret")
	delRes, err := http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("delete request error: %v", err)
	}
	defer delRes.Body.Close()
	if delRes.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", delRes.StatusCode, http.StatusOK)
	}
}

func TestFeedbackRejectsOutOfRangeRating(t *testing.T) {
	_, ts := testServer(t)
	body, _ := json.Marshal(feedbackRequest{SessionID: "s1", Rating: 7, RatingType: "stars"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/feedback", bytes.NewReader(body))
	req.Header.Set("X-Api-Key", "test-secret")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}
