// services/messages.go
package services

import (
	"fmt"
	"strings"

	"card-bot-system/models"
)

// Chat reply texts. These are the bot's user-facing voice; keep them in
// the source locale.
const (
	msgAlreadyRegistered = `🎯 Vous êtes déjà inscrit au Centre Pokémon ! Utilisez "pavé" pour lancer un duel.`
	msgNoCardsAvailable  = `🚫 Aucune carte disponible pour le moment. Contactez un administrateur.`
	msgApology           = `Désolé, une erreur s'est produite. Veuillez réessayer plus tard.`
	msgRegisterFirst     = `👋 Vous n'êtes pas encore inscrit au Centre Pokémon. Envoyez "new dresseur" pour recevoir votre première carte !`
	msgUnknownCommand    = `❓ Commande non reconnue. Envoyez "new dresseur" ou "pavé".`
)

// welcomeMessage composes the first-card reply for a fresh trainer.
func welcomeMessage(card *models.Card) string {
	description := ""
	if card.Description != nil {
		description = *card.Description
	}
	return fmt.Sprintf(`🎉 Bienvenue au Centre Pokémon ! Voici votre première carte :

🎴 **%s** - Niveau %d
⚡ Type: %s
🌟 Rareté: %s

%s

Utilisez "pavé" pour lancer un duel !`, card.Name, card.Level, card.Type, card.Rarity, description)
}

// duelAnnouncement renders the per-trainer duel block with the trainer's
// full collection; an empty collection renders the placeholder line.
func duelAnnouncement(trainer *models.Trainer, cards []models.TrainerCard) string {
	lines := make([]string, 0, len(cards))
	for _, tc := range cards {
		lines = append(lines, fmt.Sprintf("• %s (%s) - Niveau %d - %s",
			tc.Card.Name, tc.Card.Type, tc.Card.Level, tc.Card.Rarity))
	}
	cardsList := strings.Join(lines, "\n")
	if cardsList == "" {
		cardsList = "• Aucune carte disponible"
	}

	return fmt.Sprintf(`🎮 **DUEL POKÉMON** 🎮
━━━━━━━━━━━━━━━━━━━━━━━━

👤 **Dresseur:** %s
📱 **Contact:** %s

🎯 **Cartes disponibles:**
%s

⚔️ **RÈGLES DU DUEL:**
• Distance max: 50km
• Latence: 7min maximum
• Arène: Sélection automatique
• Mode: Combat 1v1

🏆 **Statut:** En attente d'adversaire
📍 **Localisation:** Détection automatique

━━━━━━━━━━━━━━━━━━━━━━━━
💬 Tapez "duel [nom_dresseur]" pour défier
🔄 Tapez "pavé" pour actualiser

⏰ Session active pendant 7 minutes`, trainer.DisplayName(), trainer.PhoneNumber, cardsList)
}

// PaveTemplate is the moderators' fixed announcement block served by
// /api/test/pave, verbatim.
const PaveTemplate = `✧═══════[ *DUEL☮️* ]══════✧
       *🔸 GAME - MODO 🎮◻️*
*══════════════════════*
*👤 DRESSEUR 1🎴:*
                🆚
*👤 DRESSEUR 2🎴:*

*⛩️DISTANCE🔸: 6m*
*🏟️ARENA🔸:*
*🔻LATENCE: 7min🔸*
*══════════════════════*
*rules 💢 :*

*🚫: Ne pas dévaloriser le verdict d'un modérateurs sans preuve concrête sinon vous aurez une ammende et une défaite Direct de votre duel en cours.*

*⛔: Tout votre pavé ne sera pas validé si vous êtes en retard donc après 7 minute, plus les une minute de temps additionnel accordé donc 7 + 1*

*♻️: En cas d'urgence vous pouvez demander un temps morts allant jusqu'à 10min et si cela vous semble insuffisant  vous devez soit declarer forfait soit demandé au modo et a l'adversaire si vous pouvez reporté le match (un arrangement entre vous)*

▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓

   *🔶POKEMO UNITE 🎴🎮*

✧═══════[ *GAME🎮* ]══════✧`
