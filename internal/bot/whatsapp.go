package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"reftourney/internal/config"
	"reftourney/internal/gate"
)

type WhatsApp struct {
	client *whatsmeow.Client
	log    *slog.Logger
}

// NewWhatsApp loads (or creates) the paired device from the Postgres device
// store at cfg.DeviceDSN.
func NewWhatsApp(ctx context.Context, cfg config.WhatsAppConfig, logger *slog.Logger) (*WhatsApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	container, err := sqlstore.New(ctx, "postgres", cfg.DeviceDSN, waLog.Stdout("Database", cfg.LogLevel, true))
	if err != nil {
		return nil, fmt.Errorf("whatsapp device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp device: %w", err)
	}
	client := whatsmeow.NewClient(device, waLog.Stdout("Client", cfg.LogLevel, true))
	return &WhatsApp{client: client, log: logger}, nil
}

// Client is exposed for the group-membership gate.
func (w *WhatsApp) Client() *whatsmeow.Client { return w.client }

// Run connects, printing a pairing QR code on first login, and serves messages
// until ctx is done.
func (w *WhatsApp) Run(ctx context.Context, h *Handler) error {
	w.client.AddEventHandler(func(evt any) {
		if msg, ok := evt.(*events.Message); ok {
			w.onMessage(ctx, h, msg)
		}
	})

	if w.client.Store.ID == nil {
		qrChan, err := w.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("whatsapp qr channel: %w", err)
		}
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("whatsapp connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				fmt.Fprintln(os.Stdout, "Scan this code with WhatsApp > Linked devices:")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				continue
			}
			w.log.Info("whatsapp pairing event", "event", evt.Event)
		}
	} else if err := w.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp connect: %w", err)
	}

	<-ctx.Done()
	w.log.Info("whatsapp shutdown")
	w.client.Disconnect()
	return nil
}

func (w *WhatsApp) onMessage(ctx context.Context, h *Handler, msg *events.Message) {
	if msg.Info.IsFromMe || msg.Info.IsGroup {
		return
	}
	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	cmd, arg, ok := parseCommand(text)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	userID := gate.WhatsAppID(msg.Info.Sender.ToNonAD().String())
	var reply Reply
	if cmd == CommandStart {
		reply = h.Start(ctx, userID, msg.Info.PushName, arg)
	} else {
		reply = h.Action(ctx, userID, cmd)
	}
	_, err := w.client.SendMessage(ctx, msg.Info.Chat, &waE2E.Message{
		Conversation: proto.String(whatsappText(reply)),
	})
	if err != nil {
		w.log.Error("whatsapp send failed", "chat", msg.Info.Chat.String(), "err", err)
	}
}

// whatsappText inlines buttons as a reply menu since plain chats have none.
func whatsappText(r Reply) string {
	if len(r.Buttons) == 0 {
		return r.Text
	}
	var b strings.Builder
	b.WriteString(r.Text)
	b.WriteString("\n")
	for _, btn := range r.Buttons {
		if btn.URL != "" {
			fmt.Fprintf(&b, "\n%s: %s", btn.Label, btn.URL)
			continue
		}
		fmt.Fprintf(&b, "\n%s: send *%s*", btn.Label, btn.Action)
	}
	return b.String()
}
