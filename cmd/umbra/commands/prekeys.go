package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// prekeys: rotate the signed pre-key, add one-time pre-keys and export the bundle.
func prekeysCmd() *cobra.Command {
	var (
		count  int
		export bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "prekeys",
		Short: "Generate pre-keys and write the public bundle as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !export {
				if _, _, err := wire.PreKeys.GenerateAndStorePreKeys(ctx, count); err != nil {
					return err
				}
			}
			bundle, err := wire.PreKeys.LoadPreKeyBundle(ctx)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, append(b, '\n')); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Bundle for %s written to %s\n", bundle.Address, out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of one-time pre-keys to generate")
	cmd.Flags().BoolVar(&export, "export-only", false, "write the current bundle without generating keys")
	cmd.Flags().StringVarP(&out, "out", "o", "", "bundle file (default stdout)")
	return cmd
}
