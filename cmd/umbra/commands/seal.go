package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/codec"
)

// seal --to <peer> --cert <file> <message>: encrypt and seal a message.
func sealCmd() *cobra.Command {
	var (
		to       string
		certPath string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "seal <message>",
		Short: "Encrypt a message on the session with a peer and seal it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseAddress(to)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, certPath)
			if err != nil {
				return err
			}
			certBytes, err := decodeB64(string(raw), 0, "sender certificate")
			if err != nil {
				return err
			}
			cert, err := codec.DecodeSenderCertificate(certBytes)
			if err != nil {
				return err
			}

			env, err := wire.Sealed.SendSealed(cmd.Context(), cert, peer, []byte(strings.Join(args, " ")))
			if err != nil {
				return fmt.Errorf("sealing for %s: %w", peer, err)
			}
			return writeOutput(cmd, out, []byte(crypto.B64(env)+"\n"))
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address <uuid>.<device>")
	cmd.Flags().StringVar(&certPath, "cert", "", "sender certificate file (base64, from authority issue)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "envelope file (default stdout)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("cert")
	return cmd
}
