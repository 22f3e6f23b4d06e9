package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"reftourney/internal/gate"
)

const (
	customIDPrefix = "reftourney:"
	eventTimeout   = 15 * time.Second
)

type Discord struct {
	session *discordgo.Session
	log     *slog.Logger
}

func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	return &Discord{session: s, log: logger}, nil
}

// Session is exposed for the guild-membership gate.
func (d *Discord) Session() *discordgo.Session { return d.session }

// Run connects to the gateway and serves events until ctx is done.
func (d *Discord) Run(ctx context.Context, h *Handler) error {
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		d.onMessage(ctx, h, m)
	})
	d.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		d.onInteraction(ctx, h, i)
	})
	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.log.Info("discord connected", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	<-ctx.Done()
	d.log.Info("discord shutdown")
	return d.session.Close()
}

func (d *Discord) onMessage(ctx context.Context, h *Handler, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	cmd, arg, ok := parseCommand(m.Content)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	userID := gate.DiscordID(m.Author.ID)
	var reply Reply
	if cmd == CommandStart {
		reply = h.Start(ctx, userID, discordName(m.Author), arg)
	} else {
		reply = h.Action(ctx, userID, cmd)
	}
	_, err := d.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:    reply.Text,
		Components: discordComponents(reply.Buttons),
		Reference:  m.Reference(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		d.log.Error("discord send failed", "channel_id", m.ChannelID, "err", err)
	}
}

func (d *Discord) onInteraction(ctx context.Context, h *Handler, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	action, ok := strings.CutPrefix(i.MessageComponentData().CustomID, customIDPrefix)
	if !ok {
		return
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	reply := h.Action(ctx, gate.DiscordID(user.ID), action)
	err := d.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    reply.Text,
			Components: discordComponents(reply.Buttons),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		d.log.Error("discord interaction respond failed", "action", action, "err", err)
	}
}

// discordComponents renders buttons as one action row; Discord allows five
// buttons per row, which is exactly the main menu.
func discordComponents(buttons []Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return []discordgo.MessageComponent{}
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		btn := discordgo.Button{Label: b.Label}
		if b.URL != "" {
			btn.Style = discordgo.LinkButton
			btn.URL = b.URL
		} else {
			btn.Style = discordgo.PrimaryButton
			btn.CustomID = customIDPrefix + b.Action
		}
		row.Components = append(row.Components, btn)
	}
	return []discordgo.MessageComponent{row}
}

func discordName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
