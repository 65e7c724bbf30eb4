package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"umbra/internal/crypto"
)

func keyIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keyid",
		Short: "Print the address, key id and identity public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wire.Identities.LoadIdentity(cmd.Context())
			if err != nil {
				return err
			}
			defer id.Wipe()
			fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\nKey ID: %s\nIdentity key: %s\n",
				id.Address, crypto.KeyID(id.XPub[:]), crypto.B64(id.XPub[:]))
			return nil
		},
	}
}
