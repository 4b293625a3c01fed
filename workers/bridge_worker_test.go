package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"card-bot-system/events"
	"card-bot-system/services"
	"card-bot-system/storage"
	"card-bot-system/whatsapp"
)

// fakeBridge emulates the bridge's GET /qr endpoint with a mutable state.
type fakeBridge struct {
	mu      sync.Mutex
	qrCode  string
	isReady bool
	fail    bool
}

func (b *fakeBridge) set(qr string, ready, fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.qrCode, b.isReady, b.fail = qr, ready, fail
}

func (b *fakeBridge) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/qr", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.fail {
			http.Error(w, "bridge down", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"qrCode":  b.qrCode,
			"isReady": b.isReady,
		})
	})
	return mux
}

func newTestPoller(t *testing.T, bridge *fakeBridge) (*BridgePoller, *services.SessionTracker) {
	t.Helper()
	server := httptest.NewServer(bridge.handler())
	t.Cleanup(server.Close)

	store := storage.NewMemory()
	tracker := services.NewSessionTracker(store, events.NewHub())
	return NewBridgePoller(whatsapp.NewBridgeClient(server.URL), tracker), tracker
}

func TestPollerFollowsBridgeLifecycle(t *testing.T) {
	bridge := &fakeBridge{}
	poller, tracker := newTestPoller(t, bridge)
	ctx := context.Background()

	// Bridge up, no code issued yet: nothing to record.
	poller.poll(ctx)
	if got := tracker.State(); got != services.StateUninitialized {
		t.Fatalf("expected uninitialized, got %s", got)
	}

	bridge.set("data:image/png;base64,QR1", false, false)
	poller.poll(ctx)
	if got := tracker.State(); got != services.StatePairing {
		t.Fatalf("expected pairing, got %s", got)
	}
	if got := tracker.QRCode(ctx); got != "data:image/png;base64,QR1" {
		t.Fatalf("QR not propagated, got %q", got)
	}

	bridge.set("", true, false)
	poller.poll(ctx)
	if got := tracker.State(); got != services.StateConnected {
		t.Fatalf("expected connected, got %s", got)
	}

	// Connected flag drops with no fresh code: the link is down.
	bridge.set("", false, false)
	poller.poll(ctx)
	if got := tracker.State(); got != services.StateDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}

	// A new code starts a fresh pairing round.
	bridge.set("data:image/png;base64,QR2", false, false)
	poller.poll(ctx)
	if got := tracker.QRCode(ctx); got != "data:image/png;base64,QR2" {
		t.Fatalf("expected new QR, got %q", got)
	}
}

func TestPollerRecordsBridgeFailure(t *testing.T) {
	bridge := &fakeBridge{}
	poller, tracker := newTestPoller(t, bridge)
	ctx := context.Background()

	bridge.set("", true, false)
	poller.poll(ctx)
	if got := tracker.State(); got != services.StateConnected {
		t.Fatalf("expected connected, got %s", got)
	}

	bridge.set("", false, true)
	poller.poll(ctx)
	if got := tracker.State(); got != services.StateDisconnected {
		t.Fatalf("bridge error must mark the link disconnected, got %s", got)
	}
	if tracker.Connected(ctx) {
		t.Fatal("stored session must report disconnected")
	}
}
