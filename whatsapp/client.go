// whatsapp/client.go
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// State is a point-in-time snapshot of the transport link. QRCode is only
// populated while the link is pairing.
type State struct {
	Connected bool   `json:"isConnected"`
	QRCode    string `json:"qrCode,omitempty"`
}

// Client abstracts the chat transport. The real browser-automation bot
// lives in a separate process behind an HTTP bridge; the simulated client
// stands in when no bridge is configured.
type Client interface {
	State(ctx context.Context) (State, error)
	SendMessage(ctx context.Context, to, message string) error
}

// BridgeClient talks to the local WhatsApp bridge process
// (GET /qr, GET /status, POST /send).
type BridgeClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewBridgeClient(baseURL string) *BridgeClient {
	return &BridgeClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *BridgeClient) State(ctx context.Context) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/qr", nil)
	if err != nil {
		return State{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return State{}, fmt.Errorf("failed to reach bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return State{}, fmt.Errorf("bridge returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		QRCode  string `json:"qrCode"`
		IsReady bool   `json:"isReady"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return State{}, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	return State{Connected: payload.IsReady, QRCode: payload.QRCode}, nil
}

func (c *BridgeClient) SendMessage(ctx context.Context, to, message string) error {
	body, err := json.Marshal(map[string]string{"to": to, "message": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send", strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("bridge send returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
