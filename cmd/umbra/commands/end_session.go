package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"umbra/internal/domain"
)

func endSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end-session <address>",
		Short: "Delete the session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			if err := wire.Sessions.DeleteSession(cmd.Context(), peer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session with %s deleted\n", peer)
			return nil
		},
	}
}
