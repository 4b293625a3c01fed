// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"card-bot-system/models"
	"card-bot-system/storage"
)

// StartExpiryScheduler closes waiting duels whose latency window (plus
// the one minute of additional time the rules grant) has run out.
func (s *DuelService) StartExpiryScheduler(ttl time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.ExpireStaleDuels(context.Background(), ttl)
		}),
	)
}

// ExpireStaleDuels runs one expiry pass: every waiting duel created
// before now-ttl is marked completed.
func (s *DuelService) ExpireStaleDuels(ctx context.Context, ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	stale, err := s.Store.ListWaitingDuelsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}
	completed := models.DuelStatusCompleted
	for _, d := range stale {
		if _, err := s.Store.UpdateDuel(ctx, d.ID, storage.DuelUpdate{Status: &completed}); err != nil {
			log.Printf("[Scheduler] Failed to expire duel %d: %v", d.ID, err)
		} else {
			log.Printf("⏰ Duel %d expiré après %s sans adversaire", d.ID, ttl)
		}
	}
}
