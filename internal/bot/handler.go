// Package bot turns chat events into tournament operations and renders the
// replies. Transports (Discord, WhatsApp) only translate Reply values into
// their own message formats.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"reftourney/internal/tournament"
)

const (
	ActionRefer       = "refer"
	ActionLeaderboard = "leaderboard"
	ActionRules       = "rules"
	ActionUpdates     = "updates"
	ActionSupport     = "support"
	ActionBack        = "back"
)

const maxLimiters = 4096

type Button struct {
	Label  string
	Action string
	URL    string
}

type Reply struct {
	Text    string
	Buttons []Button
}

type Handler struct {
	svc *tournament.Service
	log *slog.Logger

	every time.Duration
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHandler allows each user one activation per every, with bursts of burst.
func NewHandler(svc *tournament.Service, logger *slog.Logger, every time.Duration, burst int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		svc:      svc,
		log:      logger,
		every:    every,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Start handles the start command with its optional referral payload.
func (h *Handler) Start(ctx context.Context, userID, displayName, payload string) Reply {
	if !h.allow(userID) {
		return Reply{Text: textSlowDown}
	}
	act, err := h.svc.Activate(ctx, tournament.ActivationRequest{
		UserID:      userID,
		DisplayName: displayName,
		Payload:     payload,
	})
	if err != nil {
		h.log.Error("activation failed", "user_id", userID, "err", err)
		return Reply{Text: textFailure}
	}
	cfg := h.svc.Config()
	switch act.Status {
	case tournament.StatusInactive:
		return Reply{Text: textInactive}
	case tournament.StatusIneligible:
		return eligibilityReply(cfg)
	}
	if act.Referral.Applied {
		h.log.Info("activation credited referrer", "user_id", userID, "referrer_id", act.Referral.ReferrerID)
	}
	return Reply{Text: startText(cfg, act.Rank, act.RankKnown), Buttons: menuButtons()}
}

// Action handles a menu button press.
func (h *Handler) Action(ctx context.Context, userID, action string) Reply {
	cfg := h.svc.Config()
	switch action {
	case ActionRefer:
		info, err := h.svc.ReferralInfo(ctx, userID)
		if errors.Is(err, tournament.ErrNotFound) {
			return Reply{Text: textNotJoined}
		}
		if err != nil {
			h.log.Error("referral info failed", "user_id", userID, "err", err)
			return Reply{Text: textFailure}
		}
		return Reply{Text: referText(info), Buttons: backButton()}
	case ActionLeaderboard:
		return Reply{Text: leaderboardText(h.svc.Leaderboard(), cfg), Buttons: backButton()}
	case ActionRules:
		return Reply{Text: rulesText(cfg), Buttons: backButton()}
	case ActionUpdates:
		return Reply{Text: updatesText(cfg), Buttons: backButton()}
	case ActionSupport:
		return Reply{Text: supportText(cfg), Buttons: backButton()}
	case ActionBack:
		rank, known, err := h.svc.Rank(ctx, userID)
		if err != nil {
			h.log.Error("rank failed", "user_id", userID, "err", err)
			return Reply{Text: textFailure}
		}
		return Reply{Text: backText(rank, known), Buttons: menuButtons()}
	default:
		return Reply{Text: textUnknownAction, Buttons: menuButtons()}
	}
}

func (h *Handler) allow(userID string) bool {
	if h.every <= 0 {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.limiters[userID]
	if !ok {
		if len(h.limiters) >= maxLimiters {
			h.pruneLocked()
		}
		lim = rate.NewLimiter(rate.Every(h.every), h.burst)
		h.limiters[userID] = lim
	}
	return lim.Allow()
}

// pruneLocked drops limiters that have fully refilled; they carry no state.
func (h *Handler) pruneLocked() {
	for id, lim := range h.limiters {
		if lim.Tokens() >= float64(h.burst) {
			delete(h.limiters, id)
		}
	}
}

func menuButtons() []Button {
	return []Button{
		{Label: "🔗 Refer & Win", Action: ActionRefer},
		{Label: "📊 Leaderboard", Action: ActionLeaderboard},
		{Label: "📜 Rules", Action: ActionRules},
		{Label: "📢 Updates", Action: ActionUpdates},
		{Label: "🆘 Support", Action: ActionSupport},
	}
}

func backButton() []Button {
	return []Button{{Label: "Back", Action: ActionBack}}
}

func eligibilityReply(cfg tournament.Config) Reply {
	r := Reply{Text: textJoinChannels}
	if cfg.JoinURL != "" {
		r.Buttons = []Button{{Label: "Join Channels", URL: cfg.JoinURL}}
	}
	return r
}
