package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

func trustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage the sealed-sender trust root and revoked server keys",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <root-public-key-b64>",
			Short: "Set the trust root that signs server certificates",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := decodeB64(args[0], 32, "trust root")
				if err != nil {
					return err
				}
				if err := wire.Stores.Trust.SaveTrustRoot(cmd.Context(), domain.Ed25519Public(b)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Trust root set (key id %s)\n", crypto.KeyID(b))
				return nil
			},
		},
		&cobra.Command{
			Use:   "revoke <server-key-id>",
			Short: "Reject certificates signed by a server key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("server key id: %w", err)
				}
				if err := wire.Stores.Trust.RevokeServerKey(cmd.Context(), uint32(id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Server key %d revoked\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the trust root and revoked server keys",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				root, err := wire.Stores.Trust.TrustRoot(ctx)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					fmt.Fprintln(out, "Trust root: (none)")
				case err != nil:
					return err
				default:
					fmt.Fprintf(out, "Trust root: %s\n", crypto.B64(root[:]))
				}
				revoked, err := wire.Stores.Trust.RevokedServerKeyIDs(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Revoked server keys: %v\n", revoked)
				return nil
			},
		},
	)
	return cmd
}
