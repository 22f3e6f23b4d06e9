// Package gate holds the eligibility checks a participant must pass before an
// activation counts, such as membership of the tournament's channels.
package gate

import (
	"context"
	"strings"
)

const (
	discordPrefix  = "dc:"
	whatsappPrefix = "wa:"
)

// DiscordID is the participant identifier for a Discord user snowflake.
func DiscordID(userID string) string { return discordPrefix + userID }

// WhatsAppID is the participant identifier for a WhatsApp user JID.
func WhatsAppID(jid string) string { return whatsappPrefix + jid }

func splitID(participantID, prefix string) (string, bool) {
	if !strings.HasPrefix(participantID, prefix) {
		return "", false
	}
	raw := strings.TrimPrefix(participantID, prefix)
	return raw, raw != ""
}

// AllowAll admits everyone; used when no channels are configured.
type AllowAll struct{}

func (AllowAll) IsEligible(context.Context, string) (bool, error) { return true, nil }
