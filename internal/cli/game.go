package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/assassins-go/internal/api/request"
	"github.com/mcoot/assassins-go/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameStartCmd())
	cmd.AddCommand(newGameReseedCmd())
	cmd.AddCommand(newGameTeamsCmd())
	cmd.AddCommand(newGameAssignmentsCmd())
	cmd.AddCommand(newGameLeaderboardCmd())

	return cmd
}

func gamePath(gameID string) string {
	return "/api/v1/games/" + url.PathEscape(gameID)
}

func newGameCreateCmd() *cobra.Command {
	var req request.CreateGameRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game; you become its first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Game name (required)")
	cmd.Flags().StringVar(&req.PairingPolicy, "policy", "", "Pairing policy: solo_allowed, strict_pairs")
	cmd.Flags().BoolVar(&req.SafeIsTargetable, "safe-targetable", false, "Allow kills involving safe players")
	cmd.Flags().StringSliceVar(&req.AdminEmails, "admin", nil, "Additional admin email (repeatable)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <game>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Get(cmd.Context(), gamePath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <game>",
		Short: "Close registration and start the game (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Post(cmd.Context(), gamePath(args[0])+"/start", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameReseedCmd() *cobra.Command {
	var req request.ReseedRequest

	cmd := &cobra.Command{
		Use:   "reseed <game>",
		Short: "Shuffle live teams into a fresh target circle (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Reseed

			if err := client.Post(cmd.Context(), gamePath(args[0])+"/assignments/reseed", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Policy, "policy", "", "Pairing policy override: solo_allowed, strict_pairs")

	return cmd
}

func newGameTeamsCmd() *cobra.Command {
	var status, policy string

	cmd := &cobra.Command{
		Use:   "teams <game>",
		Short: "Show the game's teams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if status != "" {
				query.Set("status", status)
			}
			if policy != "" {
				query.Set("policy", policy)
			}
			path := gamePath(args[0]) + "/teams"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var result response.Teams
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Comma-separated eligible statuses (default alive,safe)")
	cmd.Flags().StringVar(&policy, "policy", "", "Pairing policy override")

	return cmd
}

func newGameAssignmentsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "assignments <game>",
		Short: "List every target assignment (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := gamePath(args[0]) + "/assignments"
			if status != "" {
				path += "?" + url.Values{"status": {status}}.Encode()
			}

			var result []response.Assignment
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Comma-separated statuses: pending, complete, expired")

	return cmd
}

func newGameLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard <game>",
		Short: "Show the game's standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.LeaderboardEntry

			if err := client.Get(cmd.Context(), gamePath(args[0])+"/leaderboard", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newKillCmd() *cobra.Command {
	var gameID string

	cmd := &cobra.Command{
		Use:   "kill <assignment>",
		Short: "Record that an assignment's hunter eliminated its target (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Kill

			path := gamePath(gameID) + "/assignments/" + url.PathEscape(args[0]) + "/kill"
			if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameID, "game", "", "Game id (required)")
	_ = cmd.MarkFlagRequired("game")

	return cmd
}
