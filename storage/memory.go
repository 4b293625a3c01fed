// storage/memory.go
package storage

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"card-bot-system/models"
)

// Memory is the in-process backend: indexed maps behind one mutex.
// It honors the same contracts as the Postgres backend, including the
// unique phone-number constraint.
type Memory struct {
	mu sync.RWMutex

	trainers      map[uint]*models.Trainer
	phoneIndex    map[string]uint
	cards         map[uint]*models.Card
	distributions map[uint]*models.CardDistribution
	duels         map[uint]*models.Duel
	sessions      map[uint]*models.BotSession
	users         map[uint]*models.User
	usernameIndex map[string]uint

	nextTrainerID      uint
	nextCardID         uint
	nextDistributionID uint
	nextDuelID         uint
	nextSessionID      uint
	nextUserID         uint
}

func NewMemory() *Memory {
	return &Memory{
		trainers:      make(map[uint]*models.Trainer),
		phoneIndex:    make(map[string]uint),
		cards:         make(map[uint]*models.Card),
		distributions: make(map[uint]*models.CardDistribution),
		duels:         make(map[uint]*models.Duel),
		sessions:      make(map[uint]*models.BotSession),
		users:         make(map[uint]*models.User),
		usernameIndex: make(map[string]uint),
	}
}

func strPtr(s string) *string { return &s }

// SeedDefaultCards loads the original starter set so a fresh memory
// deployment can distribute cards right away.
func (m *Memory) SeedDefaultCards() {
	ctx := context.Background()
	defaults := []models.Card{
		{Name: "Pikachu", Type: "Électrique", Level: 25, Rarity: "Commune",
			Description: strPtr("Pokémon Souris électrique"), IsActive: true},
		{Name: "Charizard", Type: "Feu/Vol", Level: 55, Rarity: "Rare",
			Description: strPtr("Pokémon Flamme"), IsActive: true},
		{Name: "Blastoise", Type: "Eau", Level: 50, Rarity: "Rare",
			Description: strPtr("Pokémon Carapace"), IsActive: true},
		{Name: "Venusaur", Type: "Plante/Poison", Level: 48, Rarity: "Rare",
			Description: strPtr("Pokémon Graine"), IsActive: true},
	}
	for i := range defaults {
		_ = m.CreateCard(ctx, &defaults[i])
	}
}

// --- Trainers ---

func (m *Memory) GetTrainer(_ context.Context, id uint) (*models.Trainer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trainers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) GetTrainerByPhone(_ context.Context, phone string) (*models.Trainer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.phoneIndex[phone]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.trainers[id]
	return &cp, nil
}

func (m *Memory) CreateTrainer(_ context.Context, t *models.Trainer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.phoneIndex[t.PhoneNumber]; exists {
		return ErrDuplicatePhone
	}
	m.nextTrainerID++
	t.ID = m.nextTrainerID
	t.RegisteredAt = time.Now()
	cp := *t
	m.trainers[t.ID] = &cp
	m.phoneIndex[t.PhoneNumber] = t.ID
	return nil
}

func (m *Memory) ListTrainers(_ context.Context) ([]models.Trainer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Trainer, 0, len(m.trainers))
	for _, t := range m.trainers {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateTrainer(_ context.Context, id uint, u TrainerUpdate) (*models.Trainer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Name != nil {
		t.Name = u.Name
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
	cp := *t
	return &cp, nil
}

// --- Cards ---

func (m *Memory) GetCard(_ context.Context, id uint) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) ListCards(_ context.Context) ([]models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListActiveCards(_ context.Context) ([]models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Card
	for _, c := range m.cards {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateCard(_ context.Context, c *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCardID++
	c.ID = m.nextCardID
	cp := *c
	m.cards[c.ID] = &cp
	return nil
}

func (m *Memory) UpdateCard(_ context.Context, id uint, u CardUpdate) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Type != nil {
		c.Type = *u.Type
	}
	if u.Level != nil {
		c.Level = *u.Level
	}
	if u.Rarity != nil {
		c.Rarity = *u.Rarity
	}
	if u.ImageURL != nil {
		c.ImageURL = u.ImageURL
	}
	if u.Description != nil {
		c.Description = u.Description
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) DeleteCard(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return false, nil
	}
	delete(m.cards, id)
	return true, nil
}

func (m *Memory) RandomActiveCard(ctx context.Context) (*models.Card, error) {
	active, err := m.ListActiveCards(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	card := active[rand.Intn(len(active))]
	return &card, nil
}

// --- Distributions ---

func (m *Memory) CreateDistribution(_ context.Context, d *models.CardDistribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trainers[d.TrainerID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.cards[d.CardID]; !ok {
		return ErrNotFound
	}
	m.nextDistributionID++
	d.ID = m.nextDistributionID
	d.DistributedAt = time.Now()
	cp := *d
	m.distributions[d.ID] = &cp
	return nil
}

func (m *Memory) ListDistributions(_ context.Context) ([]models.CardDistribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CardDistribution, 0, len(m.distributions))
	for _, d := range m.distributions {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListTrainerCards(_ context.Context, trainerID uint) ([]models.TrainerCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.TrainerCard
	for _, d := range m.distributions {
		if d.TrainerID != trainerID {
			continue
		}
		card, ok := m.cards[d.CardID]
		if !ok {
			// Card was hard-deleted after distribution; the ledger row
			// stays but cannot be rendered.
			continue
		}
		out = append(out, models.TrainerCard{CardDistribution: *d, Card: *card})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Duels ---

func (m *Memory) CreateDuel(_ context.Context, d *models.Duel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trainers[d.Trainer1ID]; !ok {
		return ErrNotFound
	}
	applyDuelDefaults(d)
	m.nextDuelID++
	d.ID = m.nextDuelID
	d.CreatedAt = time.Now()
	cp := *d
	m.duels[d.ID] = &cp
	return nil
}

func (m *Memory) GetDuel(_ context.Context, id uint) (*models.Duel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.duels[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListDuels(_ context.Context) ([]models.Duel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Duel, 0, len(m.duels))
	for _, d := range m.duels {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListActiveDuels(_ context.Context) ([]models.Duel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Duel
	for _, d := range m.duels {
		if d.Status == models.DuelStatusActive {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListWaitingDuelsBefore(_ context.Context, cutoff time.Time) ([]models.Duel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Duel
	for _, d := range m.duels {
		if d.Status == models.DuelStatusWaiting && d.CreatedAt.Before(cutoff) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BackdateDuel rewrites a duel's creation time. Test hook for the
// expiry scheduler; not part of Store.
func (m *Memory) BackdateDuel(id uint, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.duels[id]; ok {
		d.CreatedAt = createdAt
	}
}

func (m *Memory) UpdateDuel(_ context.Context, id uint, u DuelUpdate) (*models.Duel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.duels[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Trainer2ID != nil {
		d.Trainer2ID = u.Trainer2ID
	}
	if u.Arena != nil {
		d.Arena = *u.Arena
	}
	if u.Distance != nil {
		d.Distance = *u.Distance
	}
	if u.Latency != nil {
		d.Latency = *u.Latency
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
	cp := *d
	return &cp, nil
}

// --- Bot sessions ---

func (m *Memory) CreateBotSession(_ context.Context, s *models.BotSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSessionID++
	s.ID = m.nextSessionID
	s.LastActivity = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) UpdateBotSession(_ context.Context, id uint, u SessionUpdate) (*models.BotSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.SessionID != nil {
		s.SessionID = u.SessionID
	}
	if u.IsConnected != nil {
		s.IsConnected = *u.IsConnected
	}
	if u.QRCode != nil {
		s.QRCode = u.QRCode
	}
	s.LastActivity = time.Now()
	cp := *s
	return &cp, nil
}

func (m *Memory) CurrentBotSession(_ context.Context) (*models.BotSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var current *models.BotSession
	for _, s := range m.sessions {
		if current == nil || s.ID > current.ID {
			current = s
		}
	}
	if current == nil {
		return nil, ErrNotFound
	}
	cp := *current
	return &cp, nil
}

// --- Admin users ---

func (m *Memory) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usernameIndex[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usernameIndex[u.Username]; exists {
		return ErrDuplicateUsername
	}
	m.nextUserID++
	u.ID = m.nextUserID
	cp := *u
	m.users[u.ID] = &cp
	m.usernameIndex[u.Username] = u.ID
	return nil
}

// --- Stats ---

func (m *Memory) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{CardsDistributed: int64(len(m.distributions))}
	for _, t := range m.trainers {
		if t.IsActive {
			st.ActiveDresseurs++
		}
	}
	for _, d := range m.duels {
		if d.Status == models.DuelStatusActive {
			st.ActiveDuels++
		}
	}
	return st, nil
}
