package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// unseal <envelope>: unseal and decrypt a base64 envelope from a file or stdin.
func unsealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unseal <envelope-file|->",
		Short: "Unseal and decrypt a received envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			env, err := decodeB64(string(raw), 0, "envelope")
			if err != nil {
				return err
			}
			m, err := wire.Sealed.ReceiveSealed(cmd.Context(), env, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", m.From, string(m.Plaintext))
			return nil
		},
	}
}
