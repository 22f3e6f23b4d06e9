package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"reftourney/internal/tournament"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		v, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		v = strings.TrimSpace(v)
		if v != "" {
			return v, nil
		}
		printWarn(label + " is required.")
	}
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if v := strings.TrimSpace(string(raw)); v != "" {
			return v, nil
		}
		printWarn(label + " is required.")
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func renderLeaderboard(snap tournament.Snapshot) {
	accent.Println("\n== LEADERBOARD ==")
	if snap.Empty() {
		printInfo("No leaderboard snapshot published yet.")
		return
	}
	fmt.Printf("%-6s %-24s %10s\n", "POS", "PARTICIPANT", "REFERRALS")
	for _, e := range snap.Entries {
		fmt.Printf("%-6d %-24s %10s\n", e.Position, truncate(e.Name(), 24), comma(e.ReferralCount))
	}
	neutral.Printf("\nsnapshot %s published %s\n\n", truncate(snap.ID, 8), snap.PublishedAt.Local().Format("2006-01-02 15:04:05"))
}

func renderReferralInfo(info tournament.ReferralInfo) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(info.Participant.Name()))
	fmt.Printf("%-12s %s\n", "Link", info.Link)
	fmt.Printf("%-12s %s\n", "Referrals", comma(info.Participant.ReferralCount))
	fmt.Printf("%-12s %s\n", "Rank", rankText(info.Rank, info.RankKnown))
	if info.Participant.ReferredBy != nil {
		fmt.Printf("%-12s %s\n", "Referred by", *info.Participant.ReferredBy)
	}
	fmt.Println()
}

func renderActivation(a tournament.Activation) {
	switch a.Status {
	case tournament.StatusInactive:
		printWarn("Tournament is not active; nothing recorded.")
		return
	case tournament.StatusIneligible:
		printWarn("Participant is not eligible yet.")
		return
	}
	if a.Referral.Applied {
		printSuccess(fmt.Sprintf("Referral credited to %s.", a.Referral.ReferrerID))
	} else if a.Referral.Reason != "" && a.Referral.Reason != tournament.SkipNoReferrer {
		printInfo(fmt.Sprintf("Referral skipped: %s.", strings.ReplaceAll(a.Referral.Reason, "_", " ")))
	}
	if a.Participant != nil {
		fmt.Printf("%-12s %s\n", "Participant", a.Participant.ID)
		fmt.Printf("%-12s %s\n", "Referrals", comma(a.Participant.ReferralCount))
	}
	fmt.Printf("%-12s %s\n", "Rank", rankText(a.Rank, a.RankKnown))
}

func rankText(rank int64, known bool) string {
	if !known {
		return danger.Sprint("N/A")
	}
	return success.Sprint("#" + strconv.FormatInt(rank, 10))
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
