package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/certificate"
	"umbra/internal/protocol/codec"
)

const authorityFilename = "authority.json"

// authorityFile holds a trust root and one server key. It stands in for the
// service that issues sender certificates.
type authorityFile struct {
	RootPublic        string `json:"root_public"`
	RootPrivate       string `json:"root_private"`
	ServerPrivate     string `json:"server_private"`
	ServerCertificate string `json:"server_certificate"`
}

func authorityCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "authority",
		Short: "Run a local sealed-sender certificate authority",
		// The authority keeps its own files and needs no identity store.
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", ".", "directory holding "+authorityFilename)
	cmd.AddCommand(authorityInitCmd(&dir), authorityIssueCmd(&dir))
	return cmd
}

func authorityInitCmd(dir *string) *cobra.Command {
	var keyID uint32
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a trust root and a server certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(*dir, authorityFilename)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}

			rootPriv, rootPub, err := crypto.GenerateEd25519()
			if err != nil {
				return err
			}
			serverPriv, serverPub, err := crypto.GenerateEd25519()
			if err != nil {
				return err
			}
			server, err := certificate.IssueServerCertificate(rootPriv, keyID, serverPub)
			if err != nil {
				return err
			}
			serverBytes, err := codec.EncodeServerCertificate(server)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(authorityFile{
				RootPublic:        crypto.B64(rootPub[:]),
				RootPrivate:       crypto.B64(rootPriv[:]),
				ServerPrivate:     crypto.B64(serverPriv[:]),
				ServerCertificate: crypto.B64(serverBytes),
			}, "", "  ")
			if err != nil {
				return err
			}
			if err := os.MkdirAll(*dir, 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(path, b, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authority created in %s\nTrust root: %s\n", path, crypto.B64(rootPub[:]))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&keyID, "key-id", 1, "server key id")
	return cmd
}

func authorityIssueCmd(dir *string) *cobra.Command {
	var (
		address     string
		identityKey string
		ttl         time.Duration
		out         string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a sender certificate (base64) for an address and identity key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAuthority(filepath.Join(*dir, authorityFilename))
			if err != nil {
				return err
			}
			sender, err := domain.ParseAddress(address)
			if err != nil {
				return err
			}
			key, err := decodeB64(identityKey, 32, "identity key")
			if err != nil {
				return err
			}

			cert, err := certificate.IssueSenderCertificate(
				a.serverPriv, a.server, sender, domain.X25519Public(key), time.Now().Add(ttl))
			if err != nil {
				return err
			}
			b, err := codec.EncodeSenderCertificate(cert)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, []byte(crypto.B64(b)+"\n"))
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "sender address <uuid>.<device>")
	cmd.Flags().StringVar(&identityKey, "identity-key", "", "sender identity key (base64, see keyid)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "certificate lifetime")
	cmd.Flags().StringVarP(&out, "out", "o", "", "certificate file (default stdout)")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("identity-key")
	return cmd
}

type authority struct {
	serverPriv domain.Ed25519Private
	server     domain.ServerCertificate
}

func loadAuthority(path string) (authority, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return authority{}, err
	}
	var f authorityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return authority{}, fmt.Errorf("parse %s: %w", path, err)
	}
	priv, err := decodeB64(f.ServerPrivate, 64, "server private key")
	if err != nil {
		return authority{}, err
	}
	certBytes, err := decodeB64(f.ServerCertificate, 0, "server certificate")
	if err != nil {
		return authority{}, err
	}
	server, err := codec.DecodeServerCertificate(certBytes)
	if err != nil {
		return authority{}, err
	}
	return authority{serverPriv: domain.Ed25519Private(priv), server: server}, nil
}
