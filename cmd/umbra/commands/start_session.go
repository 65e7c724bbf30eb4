package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

// startSessionCmd performs the X3DH handshake against a peer's pre-key bundle
// and persists a new session for future messaging.
func startSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <bundle.json|->",
		Short: "Establish a secure session from a peer's bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var bundle domain.PreKeyBundle
			if err := json.Unmarshal(raw, &bundle); err != nil {
				return fmt.Errorf("parse bundle: %w", err)
			}
			if err := wire.Sessions.InitiateSession(cmd.Context(), bundle); err != nil {
				return fmt.Errorf("starting session with %s: %w", bundle.Address, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session created with %s (key id %s)\n",
				bundle.Address, crypto.KeyID(bundle.IdentityKey[:]))
			return nil
		},
	}
}
