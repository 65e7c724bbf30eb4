package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"umbra/internal/crypto"
)

// readInput returns the contents of path, or of stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes b to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, b []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// decodeB64 decodes base64 text, ignoring surrounding whitespace. want > 0
// also checks the decoded length.
func decodeB64(s string, want int, what string) ([]byte, error) {
	b, err := crypto.FromB64(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if want > 0 && len(b) != want {
		return nil, fmt.Errorf("%s: want %d bytes, got %d", what, want, len(b))
	}
	return b, nil
}
