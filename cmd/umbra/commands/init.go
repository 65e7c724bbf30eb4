package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"umbra/internal/domain"
	"umbra/internal/services/identity"
)

func initCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := identity.CheckPassphrase(wire.Config.Passphrase); err != nil {
				return err
			}

			var addr domain.Address
			if address != "" {
				var err error
				if addr, err = domain.ParseAddress(address); err != nil {
					return err
				}
			}

			_, err := wire.Identities.LoadIdentity(ctx)
			switch {
			case err == nil:
				return errors.New("identity already exists")
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}

			id, keyID, err := wire.Identities.GenerateIdentity(ctx, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nAddress: %s\nKey ID: %s\n", id.Address, keyID)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "address as <uuid>.<device> (default: random uuid, device 1)")
	return cmd
}
