// whatsapp/simulated.go
package whatsapp

import (
	"context"
	"log"
	"sync"
	"time"
)

// simulatedQRCode is a 1x1 PNG data URL, enough for the dashboard to
// render something while no real bridge is attached.
const simulatedQRCode = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// SimulatedClient mimics the transport without a browser: it pairs
// immediately and reports connected after a short delay. Sends are
// logged, never delivered.
type SimulatedClient struct {
	connectAfter time.Duration

	mu      sync.Mutex
	started time.Time
}

func NewSimulatedClient() *SimulatedClient {
	return &SimulatedClient{connectAfter: 2 * time.Second, started: time.Now()}
}

func (c *SimulatedClient) State(_ context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.started) < c.connectAfter {
		return State{Connected: false, QRCode: simulatedQRCode}, nil
	}
	return State{Connected: true}, nil
}

func (c *SimulatedClient) SendMessage(_ context.Context, to, message string) error {
	log.Printf("📤 [SIMULATION] Message envoyé à %s (%d chars)", to, len(message))
	return nil
}
