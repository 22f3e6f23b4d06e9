package tournament

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Gate decides whether a user may take part, e.g. by checking channel
// membership.
type Gate interface {
	IsEligible(ctx context.Context, userID string) (bool, error)
}

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusIneligible Status = "ineligible"
)

type ActivationRequest struct {
	UserID      string
	DisplayName string
	// Payload is the raw start argument, e.g. "ref_abcdefghijkl".
	Payload string
}

type Activation struct {
	Status      Status       `json:"status"`
	Participant *Participant `json:"participant,omitempty"`
	Rank        int64        `json:"rank,omitempty"`
	RankKnown   bool         `json:"rank_known"`
	Referral    Attribution  `json:"referral"`
}

type ReferralInfo struct {
	Participant Participant `json:"participant"`
	Link        string      `json:"link"`
	Rank        int64       `json:"rank,omitempty"`
	RankKnown   bool        `json:"rank_known"`
}

type Service struct {
	cfg         Config
	log         *slog.Logger
	store       Store
	gate        Gate
	registry    *Registry
	attribution *AttributionEngine
	ranker      *Ranker
	board       *Leaderboard
	now         func() time.Time
}

func NewService(store Store, gate Gate, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:         cfg,
		log:         logger,
		store:       store,
		gate:        gate,
		registry:    NewRegistry(store, cfg.TokenSecret),
		attribution: NewAttributionEngine(store, logger),
		ranker:      NewRanker(store),
		board:       NewLeaderboard(store, cfg, logger.With("component", "leaderboard")),
		now:         time.Now,
	}
}

func (s *Service) Config() Config { return s.cfg }

func (s *Service) Registry() *Registry { return s.registry }

func (s *Service) Ranker() *Ranker { return s.ranker }

func (s *Service) Board() *Leaderboard { return s.board }

// Start loads the persisted snapshot and launches the refresher.
func (s *Service) Start(ctx context.Context) error {
	if err := s.board.Load(ctx); err != nil {
		s.log.Warn("initial snapshot load failed", "err", err)
	}
	return s.board.Start(ctx)
}

func (s *Service) Stop() {
	s.board.Stop()
}

// Activate handles a user starting the bot, optionally with a referral
// payload. Outside the tournament window nothing is written.
func (s *Service) Activate(ctx context.Context, req ActivationRequest) (Activation, error) {
	now := s.now()
	if !s.cfg.Active(now) {
		activationsTotal.WithLabelValues(string(StatusInactive)).Inc()
		return Activation{Status: StatusInactive}, nil
	}

	var referrerID string
	if token, ok := ParsePayload(req.Payload); ok {
		referrer, err := s.registry.ResolveToken(ctx, token)
		switch {
		case err == nil:
			referrerID = referrer.ID
		case errors.Is(err, ErrNotFound):
			s.log.Debug("referral token does not resolve", "token", token)
		default:
			return Activation{}, err
		}
	}

	p, err := s.registry.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return Activation{}, err
	}

	if !s.eligible(ctx, p.ID) {
		activationsTotal.WithLabelValues(string(StatusIneligible)).Inc()
		return Activation{Status: StatusIneligible, Participant: &p}, nil
	}

	attribution, err := s.attribution.Apply(ctx, p.ID, referrerID)
	if err != nil {
		return Activation{}, err
	}
	if err := s.store.TouchActivation(ctx, p.ID, req.DisplayName, now.UTC()); err != nil {
		return Activation{}, unavailable("touch activation", err)
	}
	p, err = s.registry.Lookup(ctx, p.ID)
	if err != nil {
		return Activation{}, err
	}
	rank, known, err := s.ranker.RankOf(ctx, p)
	if err != nil {
		return Activation{}, err
	}

	activationsTotal.WithLabelValues(string(StatusActive)).Inc()
	return Activation{
		Status:      StatusActive,
		Participant: &p,
		Rank:        rank,
		RankKnown:   known,
		Referral:    attribution,
	}, nil
}

func (s *Service) eligible(ctx context.Context, userID string) bool {
	if s.gate == nil {
		return true
	}
	ok, err := s.gate.IsEligible(ctx, userID)
	if err != nil {
		s.log.Warn("eligibility check failed", "user_id", userID, "err", err)
		return false
	}
	return ok
}

// Leaderboard returns the cached snapshot without touching storage.
func (s *Service) Leaderboard() Snapshot {
	return s.board.Snapshot()
}

func (s *Service) ReferralInfo(ctx context.Context, userID string) (ReferralInfo, error) {
	p, err := s.registry.Lookup(ctx, userID)
	if err != nil {
		return ReferralInfo{}, err
	}
	rank, known, err := s.ranker.RankOf(ctx, p)
	if err != nil {
		return ReferralInfo{}, err
	}
	return ReferralInfo{
		Participant: p,
		Link:        s.cfg.ReferralLink(p.ReferralToken),
		Rank:        rank,
		RankKnown:   known,
	}, nil
}

// Rank is the live rank of userID; found is false for unknown users.
func (s *Service) Rank(ctx context.Context, userID string) (int64, bool, error) {
	return s.ranker.Rank(ctx, userID)
}
