package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cl "reftourney/internal/cli"
	"reftourney/internal/config"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "reftctl",
		Short:        "Referral tournament operator CLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newLeaderboardCmd(&apiBase),
		newInfoCmd(&apiBase),
		newActivateCmd(&apiBase),
		newLinkCmd(&apiBase),
		newWatchCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newClient builds an authenticated client from the saved session. A base
// URL stored at login wins over the default but not over --api.
func newClient(cmd *cobra.Command, apiBase *string) (*cl.Client, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("login required: %w", err)
	}
	base := strings.TrimSpace(*apiBase)
	if !cmd.Flags().Changed("api") && sess.APIBaseURL != "" {
		base = sess.APIBaseURL
	}
	return cl.NewClient(base, sess.Token), nil
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Save the API token for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := promptSecret("API token")
			if err != nil {
				return err
			}
			base := strings.TrimRight(strings.TrimSpace(*apiBase), "/")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := cl.NewClient(base, token).Health(ctx); err != nil {
				return fmt.Errorf("api unreachable at %s: %w", base, err)
			}
			if err := cl.SaveSession(cl.Session{APIBaseURL: base, Token: token}); err != nil {
				return err
			}
			printSuccess("Login saved.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the published leaderboard snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			snap, err := client.Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(snap)
			return nil
		},
	}
}

func newInfoCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info [user_id]",
		Short: "Show a participant's referral link, count and rank",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := argOrPrompt(args, 0, "User ID")
			if err != nil {
				return err
			}
			client, err := newClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			info, err := client.ReferralInfo(ctx, userID)
			if err != nil {
				return err
			}
			renderReferralInfo(info)
			return nil
		},
	}
}

func newActivateCmd(apiBase *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "activate [user_id] [payload]",
		Short: "Record an activation, optionally with a ref_ payload",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := argOrPrompt(args, 0, "User ID")
			if err != nil {
				return err
			}
			payload := ""
			if len(args) > 1 {
				payload = args[1]
			}
			client, err := newClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Activate(ctx, userID, name, payload)
			if err != nil {
				return err
			}
			renderActivation(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name to record")
	return cmd
}

func newLinkCmd(apiBase *string) *cobra.Command {
	var qr bool
	cmd := &cobra.Command{
		Use:   "link [user_id]",
		Short: "Print a participant's referral link",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := argOrPrompt(args, 0, "User ID")
			if err != nil {
				return err
			}
			client, err := newClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			info, err := client.ReferralInfo(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Println(info.Link)
			if qr && isTerminal(os.Stdout) {
				qrterminal.GenerateHalfBlock(info.Link, qrterminal.M, os.Stdout)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&qr, "qr", false, "also render the link as a QR code")
	return cmd
}

func newWatchCmd(apiBase *string) *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live leaderboard view",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd, apiBase)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), client, every)
		},
	}
	cmd.Flags().DurationVar(&every, "every", 10*time.Second, "poll interval")
	return cmd
}

func argOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx && strings.TrimSpace(args[idx]) != "" {
		return strings.TrimSpace(args[idx]), nil
	}
	return promptRequired(label)
}
