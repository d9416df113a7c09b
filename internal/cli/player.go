package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/assassins-go/internal/api/request"
	"github.com/mcoot/assassins-go/internal/api/response"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}

	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerListCmd())
	cmd.AddCommand(newPlayerInviteCmd())
	cmd.AddCommand(newPlayerRespondCmd("accept", "Accept a partner invitation"))
	cmd.AddCommand(newPlayerRespondCmd("reject", "Reject a partner invitation"))
	cmd.AddCommand(newPlayerActionCmd("safe", "Toggle a player between alive and safe (admin only)"))
	cmd.AddCommand(newPlayerActionCmd("disqualify", "Disqualify a player (admin only)"))
	cmd.AddCommand(newPlayerTargetCmd())

	return cmd
}

func playerPath(gameID, playerID string) string {
	return gamePath(gameID) + "/players/" + url.PathEscape(playerID)
}

func newPlayerRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <game>",
		Short: "Join a game as yourself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Player

			if err := client.Post(cmd.Context(), gamePath(args[0])+"/players", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <game>",
		Short: "List a game's players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.Player

			if err := client.Get(cmd.Context(), gamePath(args[0])+"/players", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <game> <player> <to-player>",
		Short: "Invite another player to be your partner",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.InviteRequest{ToPlayerID: args[2]}
			var result response.Player

			if err := client.Post(cmd.Context(), playerPath(args[0], args[1])+"/invite", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerRespondCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <game> <player> <inviter>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.RespondRequest{InviterID: args[2]}
			var result response.Player

			if err := client.Post(cmd.Context(), playerPath(args[0], args[1])+"/"+action, req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newPlayerActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <game> <player>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := playerPath(args[0], args[1]) + "/" + action
			out := output(cmd)

			if action == "safe" {
				var result response.SafeToggle
				if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result response.Disqualification
			if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}
}

func newPlayerTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "target <game> <player>",
		Short: "Show a player's current target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.CurrentTarget

			if err := client.Get(cmd.Context(), playerPath(args[0], args[1])+"/assignment", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
