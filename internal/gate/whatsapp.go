package gate

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow/types"
)

type groupInfo interface {
	GetGroupInfo(ctx context.Context, jid types.JID) (*types.GroupInfo, error)
}

// WhatsAppGroups requires membership of every listed group JID.
type WhatsAppGroups struct {
	client groupInfo
	groups []types.JID
}

func NewWhatsAppGroups(client groupInfo, groups []string) (*WhatsAppGroups, error) {
	g := &WhatsAppGroups{client: client}
	for _, raw := range groups {
		jid, err := types.ParseJID(raw)
		if err != nil {
			return nil, fmt.Errorf("parse group jid %q: %w", raw, err)
		}
		g.groups = append(g.groups, jid)
	}
	return g, nil
}

func (g *WhatsAppGroups) IsEligible(ctx context.Context, participantID string) (bool, error) {
	raw, ok := splitID(participantID, whatsappPrefix)
	if !ok {
		return false, nil
	}
	user, err := types.ParseJID(raw)
	if err != nil {
		return false, nil
	}
	for _, group := range g.groups {
		info, err := g.client.GetGroupInfo(ctx, group)
		if err != nil {
			return false, err
		}
		if !hasMember(info, user) {
			return false, nil
		}
	}
	return true, nil
}

func hasMember(info *types.GroupInfo, user types.JID) bool {
	for _, p := range info.Participants {
		if p.JID.User == user.User && p.JID.Server == user.Server {
			return true
		}
	}
	return false
}
