// services/dispatcher.go
package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"card-bot-system/events"
	"card-bot-system/models"
	"card-bot-system/storage"
)

const (
	cmdNewTrainer = "new dresseur"
	cmdPave       = "pavé"
)

var (
	// ErrAlreadyRegistered means the phone number already has a trainer row.
	ErrAlreadyRegistered = errors.New("trainer already registered")
	// ErrNoActiveCards means nothing to distribute; the trainer row may
	// already exist with an empty collection.
	ErrNoActiveCards = errors.New("no active card available")
)

// Policy selects between the two historical behaviors for unrecognized
// text: silence (default) or an explicit reply.
type Policy struct {
	ReplyUnknown bool
}

// Dispatcher routes inbound chat messages to the two commands. It is
// stateless per call; all state lives in the store it touches.
type Dispatcher struct {
	store  storage.Store
	bus    events.Bus
	policy Policy
}

func NewDispatcher(store storage.Store, bus events.Bus, policy Policy) *Dispatcher {
	return &Dispatcher{store: store, bus: bus, policy: policy}
}

// normalizeCommand trims, lowercases and NFC-normalizes the text.
// Matching stays exact-string; NFC only collapses the two Unicode
// encodings of "pavé" some clients produce.
func normalizeCommand(body string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(body)))
}

// HandleMessage processes one inbound message and returns the reply text
// ("" means no reply). Storage failures never escape: they become the
// apology reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, from, body string) string {
	log.Printf("📨 Message reçu de %s: %s", from, body)
	d.bus.Publish(events.Event{Type: events.TypeMessageReceived, Data: map[string]interface{}{
		"from":      from,
		"body":      body,
		"timestamp": time.Now(),
	}})

	var (
		reply string
		err   error
	)
	switch normalizeCommand(body) {
	case cmdNewTrainer:
		reply, err = d.handleNewTrainer(ctx, from)
	case cmdPave:
		reply, err = d.handlePave(ctx, from)
	default:
		if d.policy.ReplyUnknown {
			return msgUnknownCommand
		}
		return ""
	}
	if err != nil {
		log.Printf("❌ Erreur lors du traitement du message de %s: %v", from, err)
		return msgApology
	}
	return reply
}

func (d *Dispatcher) handleNewTrainer(ctx context.Context, from string) (string, error) {
	_, card, err := d.RegisterTrainer(ctx, from)
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		return msgAlreadyRegistered, nil
	case errors.Is(err, ErrNoActiveCards):
		return msgNoCardsAvailable, nil
	case err != nil:
		return "", err
	}
	return welcomeMessage(card), nil
}

// RegisterTrainer runs the full "new dresseur" flow: create the trainer,
// draw a card, append the distribution, announce. It is shared with the
// dashboard test endpoint.
func (d *Dispatcher) RegisterTrainer(ctx context.Context, phone string) (*models.Trainer, *models.Card, error) {
	if existing, err := d.store.GetTrainerByPhone(ctx, phone); err == nil && existing != nil {
		return existing, nil, ErrAlreadyRegistered
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, err
	}

	trainer := &models.Trainer{PhoneNumber: phone, IsActive: true}
	if err := d.store.CreateTrainer(ctx, trainer); err != nil {
		if errors.Is(err, storage.ErrDuplicatePhone) {
			// Lost a race with a concurrent registration from the same
			// number; the constraint is the authority.
			existing, lookupErr := d.store.GetTrainerByPhone(ctx, phone)
			if lookupErr != nil {
				return nil, nil, lookupErr
			}
			return existing, nil, ErrAlreadyRegistered
		}
		return nil, nil, err
	}

	card, err := d.store.RandomActiveCard(ctx)
	if err != nil {
		return trainer, nil, err
	}
	if card == nil {
		// The trainer exists but keeps an empty collection; the two
		// writes are deliberately not atomic.
		return trainer, nil, ErrNoActiveCards
	}

	if err := d.store.CreateDistribution(ctx, &models.CardDistribution{
		TrainerID: trainer.ID,
		CardID:    card.ID,
	}); err != nil {
		return trainer, nil, err
	}

	log.Printf("🆕 Nouveau dresseur %s — carte %s distribuée", phone, card.Name)
	d.bus.Publish(events.Event{Type: events.TypeNewTrainer, Data: map[string]interface{}{
		"trainer": trainer,
		"card":    card,
	}})
	return trainer, card, nil
}

func (d *Dispatcher) handlePave(ctx context.Context, from string) (string, error) {
	trainer, err := d.store.GetTrainerByPhone(ctx, from)
	if errors.Is(err, storage.ErrNotFound) {
		// Unregistered senders are told to register; no duel row.
		return msgRegisterFirst, nil
	}
	if err != nil {
		return "", err
	}

	cards, err := d.store.ListTrainerCards(ctx, trainer.ID)
	if err != nil {
		return "", err
	}

	duel := &models.Duel{Trainer1ID: trainer.ID}
	if err := d.store.CreateDuel(ctx, duel); err != nil {
		return "", err
	}

	log.Printf("⚔️ Duel #%d ouvert par %s", duel.ID, trainer.DisplayName())
	d.bus.Publish(events.Event{Type: events.TypeDuelCreated, Data: map[string]interface{}{
		"duel":    duel,
		"trainer": trainer,
	}})
	return duelAnnouncement(trainer, cards), nil
}
