// services/session.go
package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"card-bot-system/events"
	"card-bot-system/models"
	"card-bot-system/storage"
)

// SessionState is the tracker's connectivity state machine:
// uninitialized → pairing → connected → disconnected → pairing.
type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StatePairing       SessionState = "pairing"
	StateConnected     SessionState = "connected"
	StateDisconnected  SessionState = "disconnected"
)

// SessionTracker persists the bot's link state and pairing code and
// broadcasts every transition. Observers can also pull the current
// state on demand.
type SessionTracker struct {
	store storage.Store
	bus   events.Bus

	mu    sync.Mutex
	state SessionState
	qr    string
}

func NewSessionTracker(store storage.Store, bus events.Bus) *SessionTracker {
	return &SessionTracker{store: store, bus: bus, state: StateUninitialized}
}

func (t *SessionTracker) State() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetPairing records a freshly issued pairing code. Re-announcing the
// same code is a no-op.
func (t *SessionTracker) SetPairing(ctx context.Context, qr string) error {
	t.mu.Lock()
	if t.state == StatePairing && t.qr == qr {
		t.mu.Unlock()
		return nil
	}
	t.state = StatePairing
	t.qr = qr
	t.mu.Unlock()

	log.Println("🔗 QR code généré")
	if err := t.persist(ctx, false, &qr); err != nil {
		return err
	}
	t.bus.Publish(events.Event{Type: events.TypeQRCode, Data: qr})
	return nil
}

// SetConnected confirms the pairing. Idempotent.
func (t *SessionTracker) SetConnected(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateConnected {
		t.mu.Unlock()
		return nil
	}
	t.state = StateConnected
	t.qr = ""
	t.mu.Unlock()

	log.Println("✅ Bot WhatsApp connecté et prêt !")
	empty := ""
	if err := t.persist(ctx, true, &empty); err != nil {
		return err
	}
	t.bus.Publish(events.Event{Type: events.TypeBotReady, Data: map[string]interface{}{"isConnected": true}})
	return nil
}

// SetDisconnected records a link loss. Idempotent.
func (t *SessionTracker) SetDisconnected(ctx context.Context, reason string) error {
	t.mu.Lock()
	if t.state == StateDisconnected {
		t.mu.Unlock()
		return nil
	}
	t.state = StateDisconnected
	t.qr = ""
	t.mu.Unlock()

	log.Printf("❌ Bot WhatsApp déconnecté: %s", reason)
	empty := ""
	if err := t.persist(ctx, false, &empty); err != nil {
		return err
	}
	t.bus.Publish(events.Event{Type: events.TypeBotDisconnected, Data: map[string]interface{}{
		"isConnected": false,
		"reason":      reason,
	}})
	return nil
}

// persist writes the transition into the current bot_sessions row,
// creating one (with a fresh session token) on first transition.
func (t *SessionTracker) persist(ctx context.Context, connected bool, qr *string) error {
	current, err := t.store.CurrentBotSession(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		token := uuid.NewString()
		session := &models.BotSession{SessionID: &token, IsConnected: connected, QRCode: qr}
		return t.store.CreateBotSession(ctx, session)
	}
	if err != nil {
		return err
	}
	_, err = t.store.UpdateBotSession(ctx, current.ID, storage.SessionUpdate{
		IsConnected: &connected,
		QRCode:      qr,
	})
	return err
}

// Connected answers the pull side: the stored session first, the
// in-memory flag as fallback.
func (t *SessionTracker) Connected(ctx context.Context) bool {
	if session, err := t.store.CurrentBotSession(ctx); err == nil {
		return session.IsConnected
	}
	return t.State() == StateConnected
}

// QRCode returns the current pairing code, "" when none.
func (t *SessionTracker) QRCode(ctx context.Context) string {
	if session, err := t.store.CurrentBotSession(ctx); err == nil && session.QRCode != nil && *session.QRCode != "" {
		return *session.QRCode
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.qr
}
