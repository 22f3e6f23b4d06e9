package bot

import (
	"fmt"
	"strings"

	"reftourney/internal/tournament"
)

const (
	textInactive      = "Tournament has ended or not started yet."
	textJoinChannels  = "Please join the required channels to participate."
	textFailure       = "Something went wrong, please try again later."
	textSlowDown      = "Slow down a little and try again in a moment."
	textNotJoined     = "You have not joined the tournament yet. Send start first."
	textUnknownAction = "Unknown option."
	dateLayout        = "02/01"
)

func rankString(rank int64, known bool) string {
	if !known {
		return "N/A"
	}
	return fmt.Sprintf("%d", rank)
}

func startText(cfg tournament.Config, rank int64, known bool) string {
	var b strings.Builder
	b.WriteString("🏆 Referral Tournament\n")
	if !cfg.Start.IsZero() && !cfg.End.IsZero() {
		fmt.Fprintf(&b, "Duration: %s - %s\n", cfg.Start.Format(dateLayout), cfg.End.Format(dateLayout))
	}
	if cfg.PrizePool != "" {
		fmt.Fprintf(&b, "Prize Pool: %s\n", cfg.PrizePool)
	}
	fmt.Fprintf(&b, "Top %d Winners!\n\n", leaderboardSize(cfg))
	b.WriteString("Steps:\n")
	b.WriteString("1. Share your referral link.\n")
	b.WriteString("2. Get friends to join channels & start the bot.\n")
	b.WriteString("3. Climb the leaderboard!\n\n")
	fmt.Fprintf(&b, "Your Rank: %s", rankString(rank, known))
	return b.String()
}

func backText(rank int64, known bool) string {
	return fmt.Sprintf("🏆 Tournament Active\nYour Rank: %s", rankString(rank, known))
}

func referText(info tournament.ReferralInfo) string {
	return fmt.Sprintf("🔗 Your Referral Link: %s\nTotal Referrals: %d\nCurrent Rank: %s",
		info.Link, info.Participant.ReferralCount, rankString(info.Rank, info.RankKnown))
}

func leaderboardText(snap tournament.Snapshot, cfg tournament.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Top %d Referrers:\n\n", leaderboardSize(cfg))
	if snap.Empty() {
		b.WriteString("No referrals yet. Be the first!")
		return b.String()
	}
	for _, e := range snap.Entries {
		fmt.Fprintf(&b, "%d. %s - %d referrals\n", e.Position, e.Name(), e.ReferralCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func rulesText(cfg tournament.Config) string {
	return strings.Join([]string{
		"📜 Rules:",
		"- Share your unique link to refer friends.",
		"- Referrals count only after joining required channels and starting the bot.",
		"- No self-referrals, duplicates, or abuse.",
		"- Anti-fraud policy: Violations lead to disqualification.",
		fmt.Sprintf("- Winners: Top %d by referral count at tournament end.", leaderboardSize(cfg)),
	}, "\n")
}

func updatesText(cfg tournament.Config) string {
	if cfg.UpdateChannel == "" {
		return "📢 No update channel configured."
	}
	return "📢 Follow for updates: " + cfg.UpdateChannel
}

func supportText(cfg tournament.Config) string {
	if cfg.SupportContact == "" {
		return "🆘 No support contact configured."
	}
	return "🆘 Contact Support: " + cfg.SupportContact
}

func leaderboardSize(cfg tournament.Config) int {
	if cfg.LeaderboardSize <= 0 {
		return tournament.DefaultLeaderboardSize
	}
	return cfg.LeaderboardSize
}
