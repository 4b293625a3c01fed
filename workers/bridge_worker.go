// workers/bridge_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"card-bot-system/services"
	"card-bot-system/whatsapp"
)

// BridgePoller keeps the session tracker in step with the external
// transport: it polls the client state and feeds each change into the
// tracker, which persists and broadcasts it.
type BridgePoller struct {
	Client  whatsapp.Client
	Tracker *services.SessionTracker
}

func NewBridgePoller(client whatsapp.Client, tracker *services.SessionTracker) *BridgePoller {
	return &BridgePoller{Client: client, Tracker: tracker}
}

// Run polls until the context is done.
func (p *BridgePoller) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting bridge status polling...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Bridge polling stopped.")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *BridgePoller) poll(ctx context.Context) {
	state, err := p.Client.State(ctx)
	if err != nil {
		log.Printf("⚠️ [BRIDGE] Poll failed: %v", err)
		if trackErr := p.Tracker.SetDisconnected(ctx, err.Error()); trackErr != nil {
			log.Printf("❌ [BRIDGE] Failed to record disconnect: %v", trackErr)
		}
		return
	}

	switch {
	case state.Connected:
		err = p.Tracker.SetConnected(ctx)
	case state.QRCode != "":
		err = p.Tracker.SetPairing(ctx, state.QRCode)
	case p.Tracker.State() == services.StateUninitialized:
		// Bridge is up but has not issued a code yet; nothing to record.
	default:
		err = p.Tracker.SetDisconnected(ctx, "link down")
	}
	if err != nil {
		log.Printf("❌ [BRIDGE] Failed to record state: %v", err)
	}
}
