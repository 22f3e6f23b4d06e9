package gate

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

type guildMembers interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// DiscordGuilds requires membership of every listed guild.
type DiscordGuilds struct {
	session guildMembers
	guilds  []string
}

func NewDiscordGuilds(session *discordgo.Session, guilds []string) *DiscordGuilds {
	return &DiscordGuilds{session: session, guilds: guilds}
}

func (g *DiscordGuilds) IsEligible(ctx context.Context, participantID string) (bool, error) {
	userID, ok := splitID(participantID, discordPrefix)
	if !ok {
		return false, nil
	}
	for _, guildID := range g.guilds {
		_, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err == nil {
			continue
		}
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
