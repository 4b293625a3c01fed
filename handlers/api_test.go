package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"card-bot-system/events"
	"card-bot-system/services"
	"card-bot-system/storage"
	"card-bot-system/whatsapp"
)

func newTestApp(t *testing.T) (*fiber.App, *storage.Memory) {
	t.Helper()
	t.Setenv("DASHBOARD_TOKEN", "")

	store := storage.NewMemory()
	store.SeedDefaultCards()
	hub := events.NewHub()
	client := whatsapp.NewSimulatedClient()

	dispatcher := services.NewDispatcher(store, hub, services.Policy{})
	tracker := services.NewSessionTracker(store, hub)

	trainerService := services.NewTrainerService(store)
	cardService := services.NewCardService(store)
	duelService := services.NewDuelService(store)
	botService := services.NewBotService(dispatcher, tracker, client)

	app := fiber.New()
	SetupAPIRoutes(app, trainerService, cardService, duelService, botService)
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// doJSONList is doJSON for endpoints returning a JSON array.
func doJSONList(t *testing.T, app *fiber.App, method, path string) (*http.Response, []interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var decoded []interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("expected a JSON array, got %s", raw)
	}
	return resp, decoded
}

func TestCreateAndFetchTrainer(t *testing.T) {
	app, _ := newTestApp(t)

	resp, created := doJSON(t, app, "POST", "/api/trainers", fiber.Map{
		"phoneNumber": "+33611111111",
		"name":        "Ondine",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, created)
	}
	id := created["id"].(float64)

	resp, fetched := doJSON(t, app, "GET", fmt.Sprintf("/api/trainers/%d", int(id)), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fetched["phoneNumber"] != "+33611111111" || fetched["name"] != "Ondine" {
		t.Fatalf("unexpected trainer payload: %v", fetched)
	}
}

func TestCreateTrainerValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/trainers", fiber.Map{"name": "Pierre"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("missing phone must be 400, got %d: %v", resp.StatusCode, body)
	}

	doJSON(t, app, "POST", "/api/trainers", fiber.Map{"phoneNumber": "+33622222222"})
	resp, _ = doJSON(t, app, "POST", "/api/trainers", fiber.Map{"phoneNumber": "+33622222222"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("duplicate phone must be 400, got %d", resp.StatusCode)
	}
}

func TestGetTrainerNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, "GET", "/api/trainers/999", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body["error"] != "Dresseur non trouvé" {
		t.Fatalf("unexpected error payload: %v", body)
	}
}

func TestTestNewTrainerDistributesActiveCard(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/test/new-trainer", fiber.Map{"phoneNumber": "+33633333333"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	card, ok := body["card"].(map[string]interface{})
	if !ok {
		t.Fatalf("response must carry the distributed card: %v", body)
	}
	if card["isActive"] != true {
		t.Fatalf("distributed card must be active: %v", card)
	}

	resp, body = doJSON(t, app, "POST", "/api/test/new-trainer", fiber.Map{"phoneNumber": "+33633333333"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("re-registration must be 400, got %d: %v", resp.StatusCode, body)
	}
}

func TestTrainerCardsEmptyCollectionIsArray(t *testing.T) {
	app, _ := newTestApp(t)

	_, created := doJSON(t, app, "POST", "/api/trainers", fiber.Map{"phoneNumber": "+33644444444"})
	id := int(created["id"].(float64))

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/trainers/%d/cards", id), nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var cards []interface{}
	if err := json.Unmarshal(raw, &cards); err != nil {
		t.Fatalf("collection must be a JSON array, got %s", raw)
	}
	if len(cards) != 0 {
		t.Fatalf("expected empty collection, got %v", cards)
	}
}

func TestCardCRUD(t *testing.T) {
	app, _ := newTestApp(t)

	resp, created := doJSON(t, app, "POST", "/api/cards", fiber.Map{
		"name":   "Mewtwo",
		"type":   "Psy",
		"level":  90,
		"rarity": "Légendaire",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, created)
	}
	id := int(created["id"].(float64))

	resp, updated := doJSON(t, app, "PUT", fmt.Sprintf("/api/cards/%d", id), fiber.Map{"level": 99})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, updated)
	}
	if updated["level"].(float64) != 99 {
		t.Fatalf("level not updated: %v", updated)
	}
	if updated["name"] != "Mewtwo" {
		t.Fatalf("untouched fields must survive a partial update: %v", updated)
	}

	resp, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/cards/%d", id), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/cards/%d", id), nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("second delete must be 404, got %d", resp.StatusCode)
	}
}

func TestUpdateUnknownCard(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, "PUT", "/api/cards/999", fiber.Map{"level": 1})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d: %v", resp.StatusCode, body)
	}
	if body["error"] != "Carte non trouvée" {
		t.Fatalf("unexpected error payload: %v", body)
	}
}

func TestCreateCardValidation(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, "POST", "/api/cards", fiber.Map{"name": "Sans type"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("incomplete card must be 400, got %d", resp.StatusCode)
	}
}

func TestStatsReflectActivity(t *testing.T) {
	app, _ := newTestApp(t)

	_, t1 := doJSON(t, app, "POST", "/api/test/new-trainer", fiber.Map{"phoneNumber": "+33655555551"})
	_, t2 := doJSON(t, app, "POST", "/api/test/new-trainer", fiber.Map{"phoneNumber": "+33655555552"})
	doJSON(t, app, "POST", "/api/webhook/whatsapp", fiber.Map{"from": "+33655555551", "body": "pavé"})

	resp, stats := doJSON(t, app, "GET", "/api/stats", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stats["activeDresseurs"].(float64) != 2 {
		t.Fatalf("expected 2 active trainers: %v", stats)
	}
	if stats["cardsDistributed"].(float64) != 2 {
		t.Fatalf("expected 2 distributions: %v", stats)
	}
	// The pavé duel is still waiting for an opponent.
	if stats["activeDuels"].(float64) != 0 {
		t.Fatalf("waiting duels must not count as active: %v", stats)
	}

	// An opponent joins; the duel now counts.
	id1 := int(t1["trainer"].(map[string]interface{})["id"].(float64))
	id2 := int(t2["trainer"].(map[string]interface{})["id"].(float64))
	_, duels := doJSONList(t, app, "GET", "/api/duels")
	duelID := int(duels[0].(map[string]interface{})["id"].(float64))
	if trainer1 := int(duels[0].(map[string]interface{})["trainer1Id"].(float64)); trainer1 != id1 {
		t.Fatalf("duel must belong to the pavé sender, got trainer1Id=%d", trainer1)
	}
	doJSON(t, app, "POST", fmt.Sprintf("/api/duels/%d/join", duelID), fiber.Map{"trainerId": id2})

	_, stats = doJSON(t, app, "GET", "/api/stats", nil)
	if stats["activeDuels"].(float64) != 1 {
		t.Fatalf("expected 1 active duel after join: %v", stats)
	}
}

func TestWebhookRoundTrip(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/webhook/whatsapp", fiber.Map{
		"from": "+33666666666",
		"body": "new dresseur",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	reply, _ := body["reply"].(string)
	if reply == "" {
		t.Fatalf("registration must produce a reply: %v", body)
	}

	resp, body = doJSON(t, app, "POST", "/api/webhook/whatsapp", fiber.Map{"body": "orphan"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("missing sender must be 400, got %d: %v", resp.StatusCode, body)
	}
}

func TestDuelCreateAndJoin(t *testing.T) {
	app, _ := newTestApp(t)

	_, t1 := doJSON(t, app, "POST", "/api/trainers", fiber.Map{"phoneNumber": "+33677777771"})
	_, t2 := doJSON(t, app, "POST", "/api/trainers", fiber.Map{"phoneNumber": "+33677777772"})
	id1 := int(t1["id"].(float64))
	id2 := int(t2["id"].(float64))

	resp, duel := doJSON(t, app, "POST", "/api/duels", fiber.Map{"trainer1Id": id1})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, duel)
	}
	if duel["status"] != "waiting" {
		t.Fatalf("fresh duel must be waiting: %v", duel)
	}
	if duel["arena"] != "Arena Centrale" || duel["distance"] != "6m" {
		t.Fatalf("duel must carry defaults: %v", duel)
	}
	duelID := int(duel["id"].(float64))

	resp, joined := doJSON(t, app, "POST", fmt.Sprintf("/api/duels/%d/join", duelID), fiber.Map{"trainerId": id2})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, joined)
	}
	if joined["status"] != "active" {
		t.Fatalf("joined duel must be active: %v", joined)
	}

	// The duel already has two participants.
	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/duels/%d/join", duelID), fiber.Map{"trainerId": id1})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("joining a non-waiting duel must be 400, got %d", resp.StatusCode)
	}
}

func TestCreateDuelValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/duels", fiber.Map{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("missing trainer1Id must be 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/duels", fiber.Map{"trainer1Id": 999})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("unknown trainer must be 404, got %d", resp.StatusCode)
	}
}

func TestTestPaveServesTemplate(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/api/test/pave", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	text, _ := body["paveText"].(string)
	if text == "" {
		t.Fatalf("expected the fixed announcement, got %v", body)
	}
}

func TestBotStatusEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/api/bot/status", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := body["isConnected"].(bool); !ok {
		t.Fatalf("status must carry isConnected: %v", body)
	}
}

func TestAdminTokenGuardsMutations(t *testing.T) {
	t.Setenv("DASHBOARD_TOKEN", "secret")

	app, _ := newTestAppKeepToken(t)

	raw, _ := json.Marshal(fiber.Map{"name": "Évoli", "type": "Normal", "level": 19, "rarity": "Commune"})

	req := httptest.NewRequest("POST", "/api/cards", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("mutation without token must be 401, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/cards", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("mutation with token must pass, got %d", resp.StatusCode)
	}

	// Read routes stay open.
	req = httptest.NewRequest("GET", "/api/cards", nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("read route must stay open, got %d", resp.StatusCode)
	}
}

// newTestAppKeepToken builds the app without clearing DASHBOARD_TOKEN.
func newTestAppKeepToken(t *testing.T) (*fiber.App, *storage.Memory) {
	t.Helper()

	store := storage.NewMemory()
	store.SeedDefaultCards()
	hub := events.NewHub()
	client := whatsapp.NewSimulatedClient()

	dispatcher := services.NewDispatcher(store, hub, services.Policy{})
	tracker := services.NewSessionTracker(store, hub)

	app := fiber.New()
	SetupAPIRoutes(app,
		services.NewTrainerService(store),
		services.NewCardService(store),
		services.NewDuelService(store),
		services.NewBotService(dispatcher, tracker, client),
	)
	return app, store
}
