// handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"card-bot-system/events"
	"card-bot-system/services"
	"card-bot-system/whatsapp"
)

// clientFrame is what the dashboard sends over the socket.
type clientFrame struct {
	Type    string `json:"type"`
	To      string `json:"to,omitempty"`
	Message string `json:"message,omitempty"`
}

// SetupWebSocket registers the bidirectional dashboard channel on /ws.
// Every hub event is pushed as a {type, data} frame; the three client
// kinds are answered on the same socket.
func SetupWebSocket(app *fiber.App, hub *events.Hub, tracker *services.SessionTracker, client whatsapp.Client) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		log.Println("🔌 Nouvelle connexion WebSocket")
		defer log.Println("🔌 Connexion WebSocket fermée")

		feed, cancel := hub.Subscribe()
		defer cancel()

		// Writes come from the push goroutine and the reply path below.
		var writeMu sync.Mutex
		write := func(e events.Event) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return conn.WriteJSON(e)
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case e, ok := <-feed:
					if !ok {
						return
					}
					if write(e) != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		ctx := context.Background()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame clientFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				log.Printf("❌ Erreur WebSocket: %v", err)
				_ = write(events.Event{Type: events.TypeError, Data: fiber.Map{
					"message": "Erreur lors du traitement de la requête",
				}})
				continue
			}

			switch frame.Type {
			case "get_status":
				_ = write(events.Event{Type: events.TypeStatusUpdate, Data: fiber.Map{
					"isConnected": tracker.Connected(ctx),
				}})
			case "get_qr_code":
				_ = write(events.Event{Type: events.TypeQRCode, Data: tracker.QRCode(ctx)})
			case "send_test_message":
				err := client.SendMessage(ctx, frame.To, frame.Message)
				if err != nil {
					log.Printf("⚠️ Erreur lors de l'envoi du message de test: %v", err)
				}
				_ = write(events.Event{Type: events.TypeMessageSent, Data: fiber.Map{
					"success": err == nil,
				}})
			default:
				_ = write(events.Event{Type: events.TypeError, Data: fiber.Map{
					"message": "Erreur lors du traitement de la requête",
				}})
			}
		}
	}))
}
