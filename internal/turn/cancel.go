package turn

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cancelled is the typed condition every stage must propagate (never
// swallow) when it observes cancellation at a checkpoint.
type Cancelled struct {
	SessionID string
	TurnID    string
	Reason    InterruptReason
}

func (c *Cancelled) Error() string {
	return fmt.Sprintf("turn %s/%s cancelled: %s", c.SessionID, c.TurnID, c.Reason)
}

// Token is the explicit (context, token) handle threaded through every
// pipeline stage. Setting cancellation is idempotent and edge-triggered:
// late observers see it immediately on their next IsCancelled check.
type Token struct {
	sessionID string
	turnID    string

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	reason    InterruptReason
	cleanups  []func()
	finished  bool
}

// Context returns the context stage I/O should use for the outbound call;
// it is cancelled the instant Cancel or FinishTurn runs.
func (tok *Token) Context() context.Context {
	return tok.ctx
}

// IsCancelled reports whether the token has been cancelled. Stages call
// this at checkpoints: before the call, on every retry iteration, after the
// call returns, and after any guardrail check.
func (tok *Token) IsCancelled() bool {
	tok.mu.Lock()
	defer tok.mu.Unlock()
	return tok.cancelled
}

// Reason returns the interrupt reason set by Cancel, if any.
func (tok *Token) Reason() InterruptReason {
	tok.mu.Lock()
	defer tok.mu.Unlock()
	return tok.reason
}

// RegisterCleanup appends a cleanup to run on Cancel or FinishTurn. Cleanups
// must be idempotent and individually fast; the fabric runs each one to
// completion in registration order and imposes no time limit of its own.
func (tok *Token) RegisterCleanup(fn func()) {
	if fn == nil {
		return
	}
	tok.mu.Lock()
	defer tok.mu.Unlock()
	if tok.finished {
		// Turn already finished; run immediately rather than leak the cleanup.
		tok.mu.Unlock()
		fn()
		tok.mu.Lock()
		return
	}
	tok.cleanups = append(tok.cleanups, fn)
}

func (tok *Token) runCleanups() {
	tok.mu.Lock()
	cleanups := tok.cleanups
	tok.cleanups = nil
	tok.finished = true
	tok.mu.Unlock()

	// Target: bounded aggregate runtime (~100ms). Cleanups are expected to be
	// cheap (closing a body, releasing a pooled connection); we do not impose
	// a hard per-cleanup timeout because cleanups must be synchronous and
	// idempotent by contract, not because we trust them blindly.
	deadline := time.Now().Add(100 * time.Millisecond)
	for _, fn := range cleanups {
		fn()
		if time.Now().After(deadline) {
			continue
		}
	}
}

// Fabric is the process-wide interrupt fabric: per-(session, turn)
// cancellation tokens and cleanup callbacks.
type Fabric struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewFabric constructs an empty interrupt fabric.
func NewFabric() *Fabric {
	return &Fabric{tokens: make(map[string]*Token)}
}

func key(sessionID, turnID string) string {
	return sessionID + "/" + turnID
}

// StartTurn registers a new cancellation token for (session, turn). If an
// older turn is still registered for the same session, the caller is
// expected to have cancelled it first with ReasonReplaced — StartTurn
// itself does not enforce the at-most-one-active-turn invariant; that is
// the session manager's responsibility (§4.9).
func (f *Fabric) StartTurn(ctx context.Context, sessionID, turnID string) *Token {
	tokCtx, cancel := context.WithCancel(ctx)
	tok := &Token{
		sessionID: sessionID,
		turnID:    turnID,
		ctx:       tokCtx,
		cancel:    cancel,
	}
	f.mu.Lock()
	f.tokens[key(sessionID, turnID)] = tok
	f.mu.Unlock()
	return tok
}

// IsCancelled is a convenience wrapper mirroring the spec's free-function
// surface; stages typically hold the *Token directly.
func (f *Fabric) IsCancelled(tok *Token) bool {
	if tok == nil {
		return false
	}
	return tok.IsCancelled()
}

// Cancel marks the (session, turn) token cancelled, cancels its context, and
// runs registered cleanups. Safe to call multiple times; only the first
// call's reason sticks.
func (f *Fabric) Cancel(sessionID, turnID string, reason InterruptReason) {
	f.mu.Lock()
	tok, ok := f.tokens[key(sessionID, turnID)]
	f.mu.Unlock()
	if !ok {
		return
	}
	tok.mu.Lock()
	alreadyCancelled := tok.cancelled
	if !alreadyCancelled {
		tok.cancelled = true
		tok.reason = reason
	}
	tok.mu.Unlock()
	tok.cancel()
	if !alreadyCancelled {
		tok.runCleanups()
	}
}

// RegisterCleanup looks up the token for (session, turn) and registers fn on
// it, mirroring the spec's free-function surface.
func (f *Fabric) RegisterCleanup(sessionID, turnID string, fn func()) {
	f.mu.Lock()
	tok, ok := f.tokens[key(sessionID, turnID)]
	f.mu.Unlock()
	if !ok {
		return
	}
	tok.RegisterCleanup(fn)
}

// FinishTurn runs cleanups (if not already run by Cancel) and releases the
// token from the fabric.
func (f *Fabric) FinishTurn(sessionID, turnID string) {
	f.mu.Lock()
	tok, ok := f.tokens[key(sessionID, turnID)]
	delete(f.tokens, key(sessionID, turnID))
	f.mu.Unlock()
	if !ok {
		return
	}
	tok.mu.Lock()
	alreadyFinished := tok.finished
	tok.mu.Unlock()
	if !alreadyFinished {
		tok.runCleanups()
	}
	tok.cancel()
}

// ActiveTurnID returns a turn id registered for a session, if the fabric
// holds any token for it; with several, which one is returned is not
// defined. Used by the turn stream edge to detect a stale overlapping turn
// before replacing it.
func (f *Fabric) ActiveTurnID(sessionID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := sessionID + "/"
	for k := range f.tokens {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			return k[len(prefix):], true
		}
	}
	return "", false
}
